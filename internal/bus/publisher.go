package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ndrandal/marketdata-ingestor/internal/book"
	"github.com/ndrandal/marketdata-ingestor/internal/metrics"
	"github.com/ndrandal/marketdata-ingestor/internal/shm"
)

// QuoteTTL is how long a published quote summary remains cached under
// its market_data:{symbol} key, per spec.md §6.
const QuoteTTL = 300 * time.Second

// Publisher fans a book snapshot or trade print out to every sink named
// in spec.md §4.C: the pub/sub bus, the TTL quote cache, and the local
// shared-memory ring. Each sink's failure is independent of the others
// — a ring-full drop never prevents the bus publish, and a bus error
// never prevents the ring write — so PublishOrderBook and PublishTrade
// return nil unless the payload itself cannot be marshalled; sink
// failures are observed via metrics and logs only.
type Publisher struct {
	mgr     *Manager
	ring    *shm.Ring
	metrics *metrics.Registry
	log     *zap.Logger
}

// NewPublisher wires a Manager, an optional shared-memory ring (nil
// disables the ring sink), a metrics registry, and a logger into a
// Publisher.
func NewPublisher(mgr *Manager, ring *shm.Ring, m *metrics.Registry, log *zap.Logger) *Publisher {
	return &Publisher{mgr: mgr, ring: ring, metrics: m, log: log}
}

// PublishOrderBook publishes snap on orderbook:{symbol}, derives and
// caches+publishes its QuoteSummary on market_data:{symbol}, and writes
// the wire payload into the shared-memory ring. Every step's failure is
// counted and logged independently; none is fatal to the caller.
func (p *Publisher) PublishOrderBook(ctx context.Context, snap book.Snapshot) error {
	symbol := snap.Symbol
	wire := snap.ToWire()

	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal orderbook payload for %s: %w", symbol, err)
	}

	channel := "orderbook:" + symbol
	if err := p.mgr.Publish(ctx, channel, payload); err != nil {
		p.metrics.BusErrors.WithLabelValues(symbol).Inc()
		p.log.Error("orderbook publish failed", zap.String("symbol", symbol), zap.Error(err))
	} else {
		p.metrics.BusPublishes.WithLabelValues(symbol, "orderbook").Inc()
	}

	quote := snap.Quote(time.Now().UnixMicro())
	quotePayload, err := json.Marshal(quote)
	if err != nil {
		p.log.Error("marshal quote summary failed", zap.String("symbol", symbol), zap.Error(err))
	} else {
		key := "market_data:" + symbol
		if err := p.mgr.SetWithTTL(ctx, key, quotePayload, QuoteTTL); err != nil {
			p.metrics.BusErrors.WithLabelValues(symbol).Inc()
			p.log.Error("quote cache set failed", zap.String("symbol", symbol), zap.Error(err))
		}
		quoteChannel := "market_data:" + symbol
		if err := p.mgr.Publish(ctx, quoteChannel, quotePayload); err != nil {
			p.metrics.BusErrors.WithLabelValues(symbol).Inc()
			p.log.Error("quote publish failed", zap.String("symbol", symbol), zap.Error(err))
		} else {
			p.metrics.BusPublishes.WithLabelValues(symbol, "quote").Inc()
		}
	}

	if p.ring != nil {
		if err := p.ring.Write(payload); err != nil {
			p.metrics.RingDropped.WithLabelValues(symbol).Inc()
			if errors.Is(err, shm.ErrFull) {
				p.log.Warn("ring full, orderbook payload dropped", zap.String("symbol", symbol), zap.Error(err))
			} else {
				p.log.Error("ring write failed, orderbook payload dropped", zap.String("symbol", symbol), zap.Error(err))
			}
		}
	}

	return nil
}

// PublishTrade publishes trade on trades:{symbol}. Trades are not
// cached and never pushed into the shared-memory ring, per spec.md §6.
func (p *Publisher) PublishTrade(ctx context.Context, trade book.Trade) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("marshal trade payload for %s: %w", trade.Symbol, err)
	}

	channel := "trades:" + trade.Symbol
	if err := p.mgr.Publish(ctx, channel, payload); err != nil {
		p.metrics.BusErrors.WithLabelValues(trade.Symbol).Inc()
		p.log.Error("trade publish failed", zap.String("symbol", trade.Symbol), zap.Error(err))
		return nil
	}
	p.metrics.BusPublishes.WithLabelValues(trade.Symbol, "trade").Inc()
	return nil
}

// HealthCheck reports whether the bus is currently reachable.
func (p *Publisher) HealthCheck(ctx context.Context) bool {
	return p.mgr.Ping(ctx)
}
