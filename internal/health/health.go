// Package health serves the service's observability HTTP surface:
// /health, /ready, and /metrics, per spec.md §4.F.
//
// Adapted from the teacher's internal/api mux-registration style
// (Server.Register attaching "METHOD /path" routes to an *http.ServeMux,
// writeJSON as a shared response helper); CORS headers on every route
// are grounded on original_source/services/market-data/src/health.rs's
// add_cors_headers, carried forward per spec.md §9's reconciliation
// note that observability endpoints keep CORS even though the core API
// surface has none.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ndrandal/marketdata-ingestor/internal/bus"
)

// serviceName and version identify this process in /health responses.
const (
	serviceName = "marketdata-ingestor"
	version     = "1.0.0"
)

// StreamStatus reports whether a symbol's Feed Client is currently
// connected, for the /ready check.
type StreamStatus interface {
	// ActiveStreams returns the count of symbols currently in the
	// Streaming state.
	ActiveStreams() int
}

// Server exposes the observability endpoints.
type Server struct {
	publisher *bus.Publisher
	streams   StreamStatus
	startAt   time.Time
}

// NewServer builds a health Server. /metrics serves the prometheus
// default gatherer via promhttp.Handler.
func NewServer(publisher *bus.Publisher, streams StreamStatus) *Server {
	return &Server{publisher: publisher, streams: streams, startAt: time.Now()}
}

// Register attaches the observability routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", cors(s.handleHealth))
	mux.HandleFunc("GET /ready", cors(s.handleReady))
	mux.Handle("GET /metrics", corsHandler(promhttp.Handler()))
}

func cors(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addCORSHeaders(w)
		h(w, r)
	}
}

func corsHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addCORSHeaders(w)
		h.ServeHTTP(w, r)
	})
}

func addCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// healthResponse is the wire shape pinned by spec.md §4.F; Uptime is an
// addition beyond the pinned fields and is safe for consumers that only
// read status/service/version.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: version,
		Uptime:  time.Since(s.startAt).Truncate(time.Second).String(),
	})
}

// readyResponse's Status is the wire shape pinned by spec.md §4.F
// ("ready"/"not_ready"); BusConnected and ActiveStreams extend it with
// the readiness check's own inputs.
type readyResponse struct {
	Status        string `json:"status"`
	BusConnected  bool   `json:"bus_connected"`
	ActiveStreams int    `json:"active_streams"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	busOK := s.publisher.HealthCheck(r.Context())
	active := s.streams.ActiveStreams()
	ready := busOK && active > 0

	resp := readyResponse{
		Status:        "not_ready",
		BusConnected:  busOK,
		ActiveStreams: active,
	}
	status := http.StatusServiceUnavailable
	if ready {
		resp.Status = "ready"
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}
