// Package book owns the per-symbol limit order book state: applying
// exchange depth deltas with sequence-gap detection, and producing
// read-only snapshots and derived quote summaries for publication.
package book

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single (price, quantity) pair. A Quantity of zero is
// only ever a delete sentinel on the wire; it is never stored.
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// DepthUpdate is one incremental change to a symbol's book, as decoded
// from the exchange feed.
type DepthUpdate struct {
	Symbol        string
	FirstUpdateID uint64
	LastUpdateID  uint64
	Bids          []PriceLevel
	Asks          []PriceLevel
}

// Validate checks the update's own invariant, independent of any book
// state: FirstUpdateID must not exceed LastUpdateID.
func (u DepthUpdate) Validate() error {
	if u.FirstUpdateID > u.LastUpdateID {
		return fmt.Errorf("depth update for %s: first_update_id %d > last_update_id %d",
			u.Symbol, u.FirstUpdateID, u.LastUpdateID)
	}
	return nil
}

// Trade is a single aggregate trade print.
type Trade struct {
	Symbol        string          `json:"symbol"`
	TradeID       uint64          `json:"trade_id"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	TimestampMs   int64           `json:"timestamp_millis"`
	IsBuyerMaker  bool            `json:"is_buyer_maker"`
}

// QuoteSummary is the reduced {bid, ask, mid} projection cached with a
// TTL and republished on its own channel.
type QuoteSummary struct {
	Symbol    string          `json:"symbol"`
	LastPrice decimal.Decimal `json:"last_price"`
	BidPrice  decimal.Decimal `json:"bid_price"`
	AskPrice  decimal.Decimal `json:"ask_price"`
	UpdatedAt int64           `json:"updated_at"`
}

// Snapshot is an immutable, independently-owned copy of a book at a
// point in time. Callers across goroutine boundaries receive a
// Snapshot, never a pointer into store-owned state.
type Snapshot struct {
	Symbol          string
	Bids            []PriceLevel // descending by price
	Asks            []PriceLevel // ascending by price
	LastUpdateID    uint64
	TimestampMicros int64
}

// BestBid returns the highest bid level, ok=false if the book has no bids.
func (s Snapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask level, ok=false if the book has no asks.
func (s Snapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// Mid returns (best_bid+best_ask)/2, ok=false unless both sides are non-empty.
func (s Snapshot) Mid() (decimal.Decimal, bool) {
	bid, ok := s.BestBid()
	if !ok {
		return decimal.Zero, false
	}
	ask, ok := s.BestAsk()
	if !ok {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// Quote derives the QuoteSummary projection from the snapshot.
func (s Snapshot) Quote(nowMicros int64) QuoteSummary {
	q := QuoteSummary{Symbol: s.Symbol, UpdatedAt: nowMicros / 1000}
	if bid, ok := s.BestBid(); ok {
		q.BidPrice = bid.Price
	}
	if ask, ok := s.BestAsk(); ok {
		q.AskPrice = ask.Price
	}
	if mid, ok := s.Mid(); ok {
		q.LastPrice = mid
	}
	return q
}

// TopLevels returns at most n levels per side, bids descending and asks
// ascending, as required by the top_levels contract.
func (s Snapshot) TopLevels(n int) (bids, asks []PriceLevel) {
	bids = s.Bids
	if len(bids) > n {
		bids = bids[:n]
	}
	asks = s.Asks
	if len(asks) > n {
		asks = asks[:n]
	}
	return bids, asks
}

// GapError reports a sequence gap detected while applying a DepthUpdate.
// The book is left unchanged when this is returned.
type GapError struct {
	Symbol       string
	Have         uint64 // book.LastUpdateID before the attempted apply
	WantAtLeast  uint64 // book.LastUpdateID + 1
	Got          uint64 // update.FirstUpdateID
}

func (e *GapError) Error() string {
	return fmt.Sprintf("sequence gap for %s: expected first_update_id <= %d, got %d (book at %d)",
		e.Symbol, e.WantAtLeast, e.Got, e.Have)
}

// ErrCrossedBook is returned (and the book reset) when applying an
// update would leave max(bid) >= min(ask).
var ErrCrossedBook = errors.New("book crossed after apply")

// ErrStale marks an update whose LastUpdateID is at or behind the book's
// current state; it is dropped without mutating anything. Callers that
// only care about "did it apply" can treat this like a no-op success.
var ErrStale = errors.New("stale update")
