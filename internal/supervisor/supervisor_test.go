package supervisor

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ndrandal/marketdata-ingestor/internal/config"
	"github.com/ndrandal/marketdata-ingestor/internal/logging"
	"github.com/ndrandal/marketdata-ingestor/internal/metrics"
	"github.com/ndrandal/marketdata-ingestor/internal/tracing"
)

func testConfig() config.Config {
	return config.Config{
		Symbols:             []string{"BTCUSDT", "ETHUSDT"},
		ExchangeWSURL:       "wss://stream.example.com/stream",
		ExchangeRESTURL:     "https://api.example.com",
		BusURL:              "redis://localhost:6379/0",
		OrderBookDepth:      20,
		HealthPort:          9090,
		ShmName:             "test",
		ShmCapacity:         1024,
		ReconnectDelayMs:    1000,
		MaxReconnectDelayMs: 60000,
		LogLevel:            "info",
	}
}

func TestNewBuildsOneClientPerSymbol(t *testing.T) {
	reg := metrics.New(prometheus.NewRegistry())
	sup, err := New(testConfig(), reg, tracing.NewNoop(), zap.NewNop(), logging.ParseLevelSpec("info"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(sup.clients) != 2 {
		t.Fatalf("len(clients) = %d, want 2", len(sup.clients))
	}
	if sup.ActiveStreams() != 0 {
		t.Fatalf("ActiveStreams() = %d, want 0 before Run", sup.ActiveStreams())
	}
	if sup.Store() == nil {
		t.Fatal("expected non-nil Store")
	}
	if sup.Publisher() == nil {
		t.Fatal("expected non-nil Publisher")
	}
}

func TestNewWithRESTBootstrapAttachesBootstrapper(t *testing.T) {
	cfg := testConfig()
	cfg.RESTBootstrap = true
	reg := metrics.New(prometheus.NewRegistry())

	sup, err := New(cfg, reg, tracing.NewNoop(), zap.NewNop(), logging.ParseLevelSpec("info"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Bootstrap should be consulted on first Apply-adjacent Bootstrap call
	// rather than failing because no Bootstrapper was attached.
	ok, err := sup.Store().Bootstrap(context.Background(), "BTCUSDT")
	if err == nil && !ok {
		t.Fatal("expected bootstrap attempt to at least be consulted (ok or network error), got ok=false err=nil")
	}
}
