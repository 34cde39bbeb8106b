package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ndrandal/marketdata-ingestor/internal/book"
	"github.com/ndrandal/marketdata-ingestor/internal/bus"
	"github.com/ndrandal/marketdata-ingestor/internal/metrics"
	"github.com/ndrandal/marketdata-ingestor/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Ping/pong timing, grounded on the teacher's internal/session.Handler
// constants (writeWait, pongWait, pingPeriod), generalized from the
// server side's accept loop to this client's dial loop.
const (
	writeWait = 10 * time.Second
	pongWait  = 90 * time.Second
	pingPeriod = 30 * time.Second

	slowFrameThreshold = 100 * time.Microsecond
)

// State is the Feed Client's connection lifecycle state, per spec.md
// §4.D's state diagram.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// Client streams one symbol's depth and trade data from the exchange,
// applies depth deltas against the shared Store, and hands every
// update and trade to the shared Publisher.
type Client struct {
	symbol  string
	baseURL string

	store     *book.Store
	publisher *bus.Publisher
	metrics   *metrics.Registry
	tracer    *tracing.Provider
	log       *zap.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration

	state State
}

// Config configures a single symbol's Client.
type Config struct {
	Symbol         string
	BaseWSURL      string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// New constructs a Client for one symbol.
func New(cfg Config, store *book.Store, pub *bus.Publisher, m *metrics.Registry, tp *tracing.Provider, log *zap.Logger) *Client {
	return &Client{
		symbol:         strings.ToUpper(cfg.Symbol),
		baseURL:        cfg.BaseWSURL,
		store:          store,
		publisher:      pub,
		metrics:        m,
		tracer:         tp,
		log:            withSymbol(log, cfg.Symbol),
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		state:          StateIdle,
	}
}

func withSymbol(log *zap.Logger, symbol string) *zap.Logger {
	return log.With(zap.String("symbol", symbol))
}

// State returns the client's current lifecycle state.
func (c *Client) State() State { return c.state }

// Run drives the client forever: connect, stream, and on any
// disconnect or error back off and retry, until ctx is cancelled. It
// never returns except when ctx is done.
func (c *Client) Run(ctx context.Context) {
	delay := c.initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		c.state = StateConnecting
		conn, err := c.dial(ctx)
		if err != nil {
			c.log.Warn("connect failed", zap.Error(err), zap.Duration("backoff", delay))
			c.state = StateBackoff
			if !c.sleep(ctx, delay) {
				return
			}
			delay = nextBackoff(delay, c.maxBackoff)
			continue
		}

		// Each connection starts from a fresh book; last_update_id does
		// not carry over from the previous stream.
		c.store.Reset(c.symbol)
		if ok, err := c.store.Bootstrap(ctx, c.symbol); err != nil {
			c.log.Warn("rest bootstrap failed, falling back to first-delta seating", zap.Error(err))
		} else if ok {
			c.log.Info("book seated from rest snapshot")
		}

		c.state = StateStreaming
		c.metrics.WebsocketConnected.WithLabelValues(c.symbol).Set(1)
		delay = c.initialBackoff

		cleanClose := c.stream(ctx, conn)
		conn.Close()
		c.metrics.WebsocketConnected.WithLabelValues(c.symbol).Set(0)
		c.metrics.WebsocketDisconnects.WithLabelValues(c.symbol).Inc()

		if ctx.Err() != nil {
			return
		}
		if cleanClose {
			// A clean remote close reconnects immediately, without backoff.
			c.state = StateIdle
			continue
		}

		c.state = StateBackoff
		if !c.sleep(ctx, delay) {
			return
		}
		delay = nextBackoff(delay, c.maxBackoff)
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		next = max
	}
	return next
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("streams", streamNames(c.symbol))
	u.RawQuery = q.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// stream runs the read pump and heartbeat for one connection. It
// returns true if the remote closed cleanly (no backoff warranted).
func (c *Client) stream(ctx context.Context, conn *websocket.Conn) bool {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.heartbeat(streamCtx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true
			}
			return false
		}
		c.handleFrame(ctx, data)

		if ctx.Err() != nil {
			return false
		}
	}
}

// heartbeat sends a protocol-level ping every pingPeriod. A failed
// send terminates the heartbeat; the read side then observes the
// resulting close and the caller backs off, per spec.md §4.D.
func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(ctx context.Context, data []byte) {
	start := time.Now()

	var env streamEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.metrics.MessagesError.WithLabelValues(c.symbol).Inc()
		c.log.Error("envelope decode failed", zap.Error(err))
		return
	}

	ctx, span := c.tracer.Tracer().Start(ctx, "feed.process_message")
	span.SetAttributes(attribute.String("symbol", c.symbol), attribute.String("stream", env.Stream))
	defer span.End()

	kind := streamKind(env.Stream)
	switch kind {
	case "depth":
		c.handleDepth(env.Data)
	case "aggTrade":
		c.handleTrade(ctx, env.Data)
	default:
		c.metrics.MessagesError.WithLabelValues(c.symbol).Inc()
		c.log.Warn("unknown stream", zap.String("stream", env.Stream))
		return
	}

	c.metrics.MessagesProcessed.WithLabelValues(c.symbol, kind).Inc()

	elapsed := time.Since(start)
	c.metrics.ProcessingLatencyMicros.WithLabelValues(c.symbol).Observe(float64(elapsed.Microseconds()))
	if elapsed > slowFrameThreshold {
		c.log.Warn("slow frame", zap.Duration("elapsed", elapsed), zap.String("stream", env.Stream))
	}
}

func (c *Client) handleDepth(data []byte) {
	update, err := decodeDepthUpdate(c.symbol, data)
	if err != nil {
		c.metrics.MessagesError.WithLabelValues(c.symbol).Inc()
		c.log.Error("depth decode failed", zap.Error(err))
		return
	}
	if err := update.Validate(); err != nil {
		c.metrics.MessagesError.WithLabelValues(c.symbol).Inc()
		c.log.Error("depth update invalid", zap.Error(err))
		return
	}

	snap, err := c.store.Apply(update)
	switch {
	case err == nil:
		if _, bidOK := snap.BestBid(); bidOK {
			if _, askOK := snap.BestAsk(); askOK {
				c.metrics.OrderbookUpdates.WithLabelValues(c.symbol).Inc()
				ctx := context.Background()
				if pubErr := c.publisher.PublishOrderBook(ctx, snap); pubErr != nil {
					c.log.Error("publish orderbook failed", zap.Error(pubErr))
				}
			}
		}
	case errors.Is(err, book.ErrStale):
		// Silently dropped per spec.md §4.A; not logged as an error.
	case errors.Is(err, book.ErrCrossedBook):
		c.metrics.MessagesError.WithLabelValues(c.symbol).Inc()
		c.log.Error("book crossed, reset", zap.Error(err))
	default:
		var gapErr *book.GapError
		if errors.As(err, &gapErr) {
			c.metrics.SequenceErrors.WithLabelValues(c.symbol).Inc()
			c.store.Reset(c.symbol)
			c.log.Warn("sequence gap, book reset", zap.Error(err))
			return
		}
		c.metrics.MessagesError.WithLabelValues(c.symbol).Inc()
		c.log.Error("apply depth update failed", zap.Error(err))
	}
}

func (c *Client) handleTrade(ctx context.Context, data []byte) {
	trade, err := decodeTrade(c.symbol, data)
	if err != nil {
		c.metrics.MessagesError.WithLabelValues(c.symbol).Inc()
		c.log.Error("trade decode failed", zap.Error(err))
		return
	}
	c.metrics.TradesProcessed.WithLabelValues(c.symbol).Inc()
	if err := c.publisher.PublishTrade(ctx, trade); err != nil {
		c.log.Error("publish trade failed", zap.Error(err))
	}
}
