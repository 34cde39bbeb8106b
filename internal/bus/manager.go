// Package bus is the distribution side of the service: publishing book
// snapshots, quote summaries, and trade prints onto a Redis pub/sub bus
// and a short-lived cache, guarded by a circuit breaker so a stalled
// bus degrades ingestion throughput instead of blocking it.
//
// Grounded on rishavpaul-system-design's rate-limiter gateway, which
// wraps github.com/redis/go-redis/v9 behind a small Cmdable-based
// manager with its own Ping health check; the circuit breaker is
// github.com/sony/gobreaker/v2, present in fd1az-arbitrage-bot's go.mod
// as the pack's standard way of shielding an external dependency call.
package bus

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

// Config configures the Manager's connection to the bus.
type Config struct {
	URL string

	// BreakerMaxRequests is the number of requests let through in the
	// half-open state before the breaker decides whether to close.
	BreakerMaxRequests uint32
	// BreakerInterval is how often the closed-state failure counters
	// reset to zero. Zero disables the periodic reset.
	BreakerInterval time.Duration
	// BreakerTimeout is how long the breaker stays open before trying
	// a half-open probe.
	BreakerTimeout time.Duration
	// BreakerFailureRatio opens the breaker once this fraction of
	// requests in a sampling window have failed.
	BreakerFailureRatio float64
}

// DefaultConfig returns sane defaults: a 30s open-state cooldown and a
// 60% failure ratio trip threshold over at least 10 requests.
func DefaultConfig(url string) Config {
	return Config{
		URL:                 url,
		BreakerMaxRequests:  3,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      30 * time.Second,
		BreakerFailureRatio: 0.6,
	}
}

// Manager wraps a Redis client with a circuit breaker so that Publish
// and SetWithTTL fail fast while the bus is unhealthy rather than
// piling up blocked goroutines.
type Manager struct {
	client  redis.Cmdable
	breaker *gobreaker.CircuitBreaker[any]
}

// NewManager builds a Redis client for cfg.URL and wraps Publish and
// SetWithTTL in a breaker. It opens no connection: an unreachable bus
// is not detected here, only on the first command.
func NewManager(cfg Config) (*Manager, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	settings := gobreaker.Settings{
		Name:        "bus",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.BreakerFailureRatio
		},
	}

	return &Manager{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}, nil
}

// NewManagerFromClient wraps an already-constructed redis.Cmdable (a
// real client or a fake) in a breaker with the given settings. Used by
// tests to substitute a miniredis-backed or in-memory client.
func NewManagerFromClient(client redis.Cmdable, cfg Config) *Manager {
	settings := gobreaker.Settings{
		Name:        "bus",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.BreakerFailureRatio
		},
	}
	return &Manager{client: client, breaker: gobreaker.NewCircuitBreaker[any](settings)}
}

// Publish sends payload on channel through the breaker.
func (m *Manager) Publish(ctx context.Context, channel string, payload []byte) error {
	_, err := m.breaker.Execute(func() (any, error) {
		return nil, m.client.Publish(ctx, channel, payload).Err()
	})
	return err
}

// SetWithTTL stores payload under key with the given expiry through the
// breaker.
func (m *Manager) SetWithTTL(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	_, err := m.breaker.Execute(func() (any, error) {
		return nil, m.client.Set(ctx, key, payload, ttl).Err()
	})
	return err
}

// Ping reports whether the bus is currently reachable. It bypasses the
// breaker: health checks must reflect live state, not the breaker's
// cached verdict.
func (m *Manager) Ping(ctx context.Context) bool {
	return m.client.Ping(ctx).Err() == nil
}

// State returns the breaker's current state, for /ready reporting.
func (m *Manager) State() gobreaker.State {
	return m.breaker.State()
}
