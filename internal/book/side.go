package book

import (
	"sort"

	"github.com/shopspring/decimal"
)

// side is one half of an order book: a set of price levels kept sorted
// by price, ascending or descending depending on which side it backs.
// It mirrors the teacher's sorted-slice-of-levels approach (see
// internal/orderbook.Book.Bids/Asks in the retrieved feed-simulator)
// rather than a tree, which is adequate at the depths (tens of levels)
// this service maintains.
type side struct {
	descending bool
	levels     []PriceLevel
}

func newSide(descending bool) side {
	return side{descending: descending}
}

// better reports whether price a should sort before price b on this side.
func (s side) better(a, b decimal.Decimal) bool {
	if s.descending {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

// search returns the index of price, and whether it was found.
func (s side) search(price decimal.Decimal) (int, bool) {
	idx := sort.Search(len(s.levels), func(i int) bool {
		return !s.better(s.levels[i].Price, price)
	})
	if idx < len(s.levels) && s.levels[idx].Price.Equal(price) {
		return idx, true
	}
	return idx, false
}

// upsert inserts or replaces the level at price. Quantity must be > 0;
// callers route zero-quantity levels to remove instead.
func (s *side) upsert(price, qty decimal.Decimal) {
	idx, found := s.search(price)
	if found {
		s.levels[idx].Quantity = qty
		return
	}
	s.levels = append(s.levels, PriceLevel{})
	copy(s.levels[idx+1:], s.levels[idx:])
	s.levels[idx] = PriceLevel{Price: price, Quantity: qty}
}

// remove deletes the level at price, if present.
func (s *side) remove(price decimal.Decimal) {
	idx, found := s.search(price)
	if !found {
		return
	}
	s.levels = append(s.levels[:idx], s.levels[idx+1:]...)
}

// best returns the first (best-priced) level on this side.
func (s side) best() (PriceLevel, bool) {
	if len(s.levels) == 0 {
		return PriceLevel{}, false
	}
	return s.levels[0], true
}

// clone returns an independent copy of the level slice, safe to hand to
// a caller outside the store's lock.
func (s side) clone() []PriceLevel {
	if len(s.levels) == 0 {
		return nil
	}
	out := make([]PriceLevel, len(s.levels))
	copy(out, s.levels)
	return out
}
