package book

import (
	"time"
)

// OrderBook is the mutable state for one symbol. It is never exposed
// outside the store directly; callers receive a Snapshot instead.
type OrderBook struct {
	symbol          string
	bids            side // descending
	asks            side // ascending
	lastUpdateID    uint64
	timestampMicros int64
}

func newOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newSide(true),
		asks:   newSide(false),
	}
}

// apply validates sequencing and mutates the book in place. It never
// partially applies: on ErrStale or *GapError the book is byte-for-byte
// as it was, and on ErrCrossedBook it is reset to empty.
//
// Returns ErrStale (book unchanged, not an error worth surfacing) when
// the update trails the book, *GapError (book unchanged) when a gap is
// detected, ErrCrossedBook (book reset to empty, next update
// rebootstraps) when the apply would cross the book, or nil on success.
func (b *OrderBook) apply(u DepthUpdate, now time.Time) error {
	bootstrap := b.lastUpdateID == 0 && len(b.bids.levels) == 0 && len(b.asks.levels) == 0

	if !bootstrap {
		if u.LastUpdateID <= b.lastUpdateID {
			return ErrStale
		}
		if u.FirstUpdateID > b.lastUpdateID+1 {
			return &GapError{
				Symbol:      u.Symbol,
				Have:        b.lastUpdateID,
				WantAtLeast: b.lastUpdateID + 1,
				Got:         u.FirstUpdateID,
			}
		}
	}

	for _, lvl := range u.Bids {
		if lvl.Quantity.IsZero() {
			b.bids.remove(lvl.Price)
		} else {
			b.bids.upsert(lvl.Price, lvl.Quantity)
		}
	}
	for _, lvl := range u.Asks {
		if lvl.Quantity.IsZero() {
			b.asks.remove(lvl.Price)
		} else {
			b.asks.upsert(lvl.Price, lvl.Quantity)
		}
	}

	if crossed(b.bids, b.asks) {
		b.reset()
		return ErrCrossedBook
	}

	b.lastUpdateID = u.LastUpdateID
	b.timestampMicros = now.UnixMicro()
	return nil
}

func crossed(bids, asks side) bool {
	bb, ok1 := bids.best()
	ba, ok2 := asks.best()
	if !ok1 || !ok2 {
		return false
	}
	return bb.Price.GreaterThanOrEqual(ba.Price)
}

func (b *OrderBook) reset() {
	b.bids = newSide(true)
	b.asks = newSide(false)
	b.lastUpdateID = 0
	b.timestampMicros = 0
}

func (b *OrderBook) snapshot() Snapshot {
	return Snapshot{
		Symbol:          b.symbol,
		Bids:            b.bids.clone(),
		Asks:            b.asks.clone(),
		LastUpdateID:    b.lastUpdateID,
		TimestampMicros: b.timestampMicros,
	}
}
