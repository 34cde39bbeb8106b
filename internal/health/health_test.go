package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ndrandal/marketdata-ingestor/internal/bus"
	"github.com/ndrandal/marketdata-ingestor/internal/metrics"
	"github.com/ndrandal/marketdata-ingestor/internal/shm"

	"github.com/prometheus/client_golang/prometheus"
)

type stubStreamStatus struct {
	active int
}

func (s stubStreamStatus) ActiveStreams() int { return s.active }

type stubCmdable struct {
	redis.Cmdable
	pingErr error
}

func (s *stubCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if s.pingErr != nil {
		cmd.SetErr(s.pingErr)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

func newTestServer(t *testing.T, pingErr error, active int) *Server {
	t.Helper()
	fc := &stubCmdable{pingErr: pingErr}
	mgr := bus.NewManagerFromClient(fc, bus.DefaultConfig(""))
	reg := metrics.New(prometheus.NewRegistry())
	ring := shm.New("test", 16, 4096)
	pub := bus.NewPublisher(mgr, ring, reg, zap.NewNop())
	return NewServer(pub, stubStreamStatus{active: active})
}

func TestHandleHealthAlwaysOK(t *testing.T) {
	s := newTestServer(t, nil, 0)
	mux := http.NewServeMux()
	s.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header on /health")
	}

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "healthy" {
		t.Fatalf("status = %q, want %q", resp.Status, "healthy")
	}
	if resp.Service == "" || resp.Version == "" {
		t.Fatal("expected non-empty service and version")
	}
}

func TestHandleReadyReportsNotReadyWithNoActiveStreams(t *testing.T) {
	s := newTestServer(t, nil, 0)
	mux := http.NewServeMux()
	s.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp readyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "not_ready" {
		t.Fatalf("status = %q, want %q", resp.Status, "not_ready")
	}
}

func TestHandleReadyReportsReadyWithBusAndStreams(t *testing.T) {
	s := newTestServer(t, nil, 2)
	mux := http.NewServeMux()
	s.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp readyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "ready" {
		t.Fatalf("status = %q, want %q", resp.Status, "ready")
	}
}

func TestHandleReadyReportsNotReadyWhenBusDown(t *testing.T) {
	s := newTestServer(t, context.DeadlineExceeded, 2)
	mux := http.NewServeMux()
	s.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
