// Package supervisor wires the Order Book Store, Publisher, and one
// Feed Client per configured symbol together, and owns their shared
// lifecycle: start all symbol tasks and wait for them to stop on
// shutdown. The observability server is started by cmd/marketdata. Grounded on the teacher's cmd/feedsim/main.go
// wiring (context-with-cancel plus a signal-notify goroutine, one
// goroutine per symbol), generalized from a standalone main func into
// a reusable Supervisor type so cmd/marketdata/main.go stays thin.
package supervisor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ndrandal/marketdata-ingestor/internal/book"
	"github.com/ndrandal/marketdata-ingestor/internal/bus"
	"github.com/ndrandal/marketdata-ingestor/internal/config"
	"github.com/ndrandal/marketdata-ingestor/internal/feed"
	"github.com/ndrandal/marketdata-ingestor/internal/logging"
	"github.com/ndrandal/marketdata-ingestor/internal/metrics"
	"github.com/ndrandal/marketdata-ingestor/internal/shm"
	"github.com/ndrandal/marketdata-ingestor/internal/tracing"
)

// Supervisor owns every per-symbol Feed Client plus the shared Store
// and Publisher they write through.
type Supervisor struct {
	cfg     config.Config
	store   *book.Store
	pub     *bus.Publisher
	metrics *metrics.Registry
	tracer  *tracing.Provider
	log     *zap.Logger

	clients []*feed.Client
}

// New builds a Supervisor and one Feed Client per cfg.Symbols entry.
// If cfg.RESTBootstrap is set, store is given a feed.Bootstrapper.
// levels scopes each component's logger to its own configured level,
// per spec.md §6's per-module log filtering requirement.
func New(cfg config.Config, reg *metrics.Registry, tp *tracing.Provider, log *zap.Logger, levels logging.LevelMap) (*Supervisor, error) {
	mgr, err := bus.NewManager(bus.DefaultConfig(cfg.BusURL))
	if err != nil {
		return nil, err
	}

	ring := shm.New(cfg.ShmName, cfg.ShmCapacity, shm.DefaultMaxRecord)
	pub := bus.NewPublisher(mgr, ring, reg, levels.WithComponent(log, "bus"))

	store := book.New(cfg.OrderBookDepth)
	if cfg.RESTBootstrap {
		store = store.WithBootstrapper(feed.NewBootstrapper(cfg.ExchangeRESTURL, cfg.OrderBookDepth))
	}

	s := &Supervisor{
		cfg:     cfg,
		store:   store,
		pub:     pub,
		metrics: reg,
		tracer:  tp,
		log:     log,
	}

	for _, symbol := range cfg.Symbols {
		client := feed.New(feed.Config{
			Symbol:         symbol,
			BaseWSURL:      cfg.ExchangeWSURL,
			InitialBackoff: cfg.ReconnectDelay(),
			MaxBackoff:     cfg.MaxReconnectDelay(),
		}, store, pub, reg, tp, levels.WithComponent(log, "feed"))
		s.clients = append(s.clients, client)
	}

	return s, nil
}

// ActiveStreams implements health.StreamStatus.
func (s *Supervisor) ActiveStreams() int {
	var n int
	for _, c := range s.clients {
		if c.State() == feed.StateStreaming {
			n++
		}
	}
	return n
}

// Publisher returns the shared Publisher, for wiring into the health
// server's readiness check.
func (s *Supervisor) Publisher() *bus.Publisher { return s.pub }

// Store returns the shared Order Book Store.
func (s *Supervisor) Store() *book.Store { return s.store }

// Run starts every symbol's Feed Client and blocks until ctx is
// cancelled, then waits for all of them to stop.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, c := range s.clients {
		wg.Add(1)
		go func(c *feed.Client) {
			defer wg.Done()
			c.Run(ctx)
		}(c)
	}
	s.log.Info("supervisor started", zap.Int("symbols", len(s.clients)))
	<-ctx.Done()
	wg.Wait()
	s.log.Info("supervisor stopped")
}
