package book

import (
	"context"
	"sync"
	"time"
)

// Bootstrapper optionally seeds a symbol's book from an out-of-band
// source (e.g. a REST depth snapshot) instead of treating the first
// streamed delta as baseline. See §9's open question in SPEC_FULL.md.
type Bootstrapper interface {
	FetchSnapshot(ctx context.Context, symbol string) (*Snapshot, error)
}

type entry struct {
	mu   sync.RWMutex
	book *OrderBook
}

// Store owns every per-symbol OrderBook. It is the sole writer of book
// state; all other components receive cloned Snapshots. Each symbol has
// its own lock (a striped lock, per spec.md §4.A), so applies against
// different symbols never contend.
type Store struct {
	depth int

	mu      sync.RWMutex // guards the entries map itself, not book contents
	entries map[string]*entry

	bootstrapper Bootstrapper
}

// New creates a Store. depth is the default cap used by TopLevels
// callers that don't specify their own N (order_book_depth in config).
func New(depth int) *Store {
	return &Store{
		depth:   depth,
		entries: make(map[string]*entry),
	}
}

// WithBootstrapper attaches an optional REST snapshot source. Nil is a
// valid value (the default): the first delta seats the book.
func (s *Store) WithBootstrapper(b Bootstrapper) *Store {
	s.bootstrapper = b
	return s
}

func (s *Store) entryFor(symbol string) *entry {
	s.mu.RLock()
	e, ok := s.entries[symbol]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[symbol]; ok {
		return e
	}
	e = &entry{}
	s.entries[symbol] = e
	return e
}

// Apply validates and applies a DepthUpdate against symbol's book,
// creating the book on first use. On success it returns a Snapshot
// cloned from the post-apply state. On ErrStale the pre-apply snapshot
// is returned alongside the sentinel error. On *GapError or
// ErrCrossedBook the book has already been left unchanged / reset by
// the time the error is returned; callers do not need to call Reset
// themselves for ErrCrossedBook (the store already did), but must call
// Reset for a GapError per spec.md §4.D ("On GapError ... call
// Store.reset(symbol)").
func (s *Store) Apply(u DepthUpdate) (Snapshot, error) {
	e := s.entryFor(u.Symbol)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.book == nil {
		e.book = newOrderBook(u.Symbol)
	}

	now := time.Now()
	err := e.book.apply(u, now)
	snap := e.book.snapshot()
	if err == ErrCrossedBook {
		e.book = nil
	}
	if err != nil {
		return snap, err
	}
	return snap, nil
}

// Reset drops symbol's book entirely; the next Apply re-bootstraps it
// from that delta, per spec.md §4.A.
func (s *Store) Reset(symbol string) {
	e := s.entryFor(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.book = nil
}

// Get returns a read-only copy of symbol's book, or ok=false if no book
// exists yet for that symbol.
func (s *Store) Get(symbol string) (Snapshot, bool) {
	e := s.entryFor(symbol)
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.book == nil {
		return Snapshot{}, false
	}
	return e.book.snapshot(), true
}

// TopLevels returns up to n bids (descending) and n asks (ascending)
// for symbol, or ok=false if no book exists yet.
func (s *Store) TopLevels(symbol string, n int) (bids, asks []PriceLevel, ok bool) {
	snap, ok := s.Get(symbol)
	if !ok {
		return nil, nil, false
	}
	bids, asks = snap.TopLevels(n)
	return bids, asks, true
}

// Bootstrap seeds symbol's book from the Store's Bootstrapper, if one is
// configured. It is a no-op (ok=false) when no Bootstrapper was
// attached, or when symbol already has a book.
func (s *Store) Bootstrap(ctx context.Context, symbol string) (ok bool, err error) {
	if s.bootstrapper == nil {
		return false, nil
	}

	e := s.entryFor(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.book != nil {
		return false, nil
	}

	snap, err := s.bootstrapper.FetchSnapshot(ctx, symbol)
	if err != nil {
		return false, err
	}

	ob := newOrderBook(symbol)
	for _, lvl := range snap.Bids {
		ob.bids.upsert(lvl.Price, lvl.Quantity)
	}
	for _, lvl := range snap.Asks {
		ob.asks.upsert(lvl.Price, lvl.Quantity)
	}
	ob.lastUpdateID = snap.LastUpdateID
	ob.timestampMicros = time.Now().UnixMicro()
	e.book = ob
	return true, nil
}

// Depth returns the store's configured default top-N cap.
func (s *Store) Depth() int {
	return s.depth
}
