// Command marketdata runs the real-time market-data ingestion and
// distribution service: one Feed Client per configured symbol feeding
// a shared Order Book Store and Publisher, with an observability HTTP
// server alongside.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ndrandal/marketdata-ingestor/internal/config"
	"github.com/ndrandal/marketdata-ingestor/internal/health"
	"github.com/ndrandal/marketdata-ingestor/internal/logging"
	"github.com/ndrandal/marketdata-ingestor/internal/metrics"
	"github.com/ndrandal/marketdata-ingestor/internal/supervisor"
	"github.com/ndrandal/marketdata-ingestor/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, levels, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("marketdata ingestor starting", zap.Strings("symbols", cfg.Symbols))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	var tp *tracing.Provider
	if cfg.TracingEnabled {
		tp, err = tracing.NewSDK("marketdata-ingestor")
		if err != nil {
			log.Fatal("tracing init failed", zap.Error(err))
		}
	} else {
		tp = tracing.NewNoop()
	}
	defer tp.Shutdown(context.Background())

	reg := metrics.New(prometheus.DefaultRegisterer)

	sup, err := supervisor.New(cfg, reg, tp, log, levels)
	if err != nil {
		log.Fatal("supervisor init failed", zap.Error(err))
	}

	healthSrv := health.NewServer(sup.Publisher(), sup)
	mux := http.NewServeMux()
	healthSrv.Register(mux)

	addr := fmt.Sprintf(":%d", cfg.HealthPort)
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	bindErrCh := make(chan error, 1)
	go func() {
		log.Info("observability server listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			bindErrCh <- err
			return
		}
		bindErrCh <- nil
	}()

	go func() {
		if err := <-bindErrCh; err != nil {
			log.Error("observability server failed to bind, shutting down", zap.Error(err))
			cancel()
			os.Exit(1)
		}
	}()

	sup.Run(ctx)
	log.Info("marketdata ingestor stopped")
}
