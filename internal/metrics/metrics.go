// Package metrics is the process-wide Prometheus registry: every
// counter, gauge, and histogram named in spec.md §4.F, labelled by
// symbol (and, where the spec calls for it, by message/sink type).
//
// Grounded on the fd1az-arbitrage-bot example's
// github.com/prometheus/client_golang dependency, and matching the
// original Rust source's prometheus crate usage in metrics.rs
// counter-for-counter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric this service exposes. It is safe for
// concurrent use — the underlying prometheus vectors are internally
// synchronized, per spec.md §5's "metrics registry: internally
// synchronized".
type Registry struct {
	WebsocketConnected     *prometheus.GaugeVec
	WebsocketDisconnects   *prometheus.CounterVec
	MessagesProcessed      *prometheus.CounterVec
	MessagesError          *prometheus.CounterVec
	OrderbookUpdates       *prometheus.CounterVec
	SequenceErrors         *prometheus.CounterVec
	TradesProcessed        *prometheus.CounterVec
	BusPublishes           *prometheus.CounterVec
	BusErrors              *prometheus.CounterVec
	RingDropped            *prometheus.CounterVec
	ProcessingLatencyMicros *prometheus.HistogramVec
}

// New registers and returns the metric set against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer wrapped accordingly for the running
// process.
func New(reg prometheus.Registerer) *Registry {
	f := promauto.With(reg)

	return &Registry{
		WebsocketConnected: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "websocket_connected",
			Help: "WebSocket connection status (1=connected, 0=disconnected)",
		}, []string{"symbol"}),

		WebsocketDisconnects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "websocket_disconnects_total",
			Help: "Total number of WebSocket disconnections",
		}, []string{"symbol"}),

		MessagesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_processed_total",
			Help: "Total number of messages processed",
		}, []string{"symbol", "type"}),

		MessagesError: f.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_error_total",
			Help: "Total number of message processing errors",
		}, []string{"symbol"}),

		OrderbookUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_updates_total",
			Help: "Total number of order book updates",
		}, []string{"symbol"}),

		SequenceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sequence_errors_total",
			Help: "Total number of sequence validation errors",
		}, []string{"symbol"}),

		TradesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trades_processed_total",
			Help: "Total number of trades processed",
		}, []string{"symbol"}),

		BusPublishes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "redis_publishes_total",
			Help: "Total number of bus publishes",
		}, []string{"symbol", "type"}),

		BusErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total number of bus errors",
		}, []string{"symbol"}),

		RingDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shm_ring_dropped_total",
			Help: "Total number of shared-memory ring writes dropped because the ring was full or the record was too large",
		}, []string{"symbol"}),

		ProcessingLatencyMicros: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "processing_latency_microseconds",
			Help:    "Message processing latency in microseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 75, 100, 250, 500, 1000},
		}, []string{"symbol"}),
	}
}
