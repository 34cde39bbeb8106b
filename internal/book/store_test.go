package book

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func level(price, qty string) PriceLevel {
	return PriceLevel{Price: dec(price), Quantity: dec(qty)}
}

// S1 — Bootstrap.
func TestApplyBootstrap(t *testing.T) {
	s := New(20)

	snap, err := s.Apply(DepthUpdate{
		Symbol:        "BTCUSDT",
		FirstUpdateID: 42,
		LastUpdateID:  45,
		Bids:          []PriceLevel{level("100.0", "1.5"), level("99.0", "2.0")},
		Asks:          []PriceLevel{level("101.0", "1.0")},
	})
	if err != nil {
		t.Fatalf("bootstrap apply: %v", err)
	}
	if snap.LastUpdateID != 45 {
		t.Fatalf("LastUpdateID = %d, want 45", snap.LastUpdateID)
	}

	bid, _ := snap.BestBid()
	if !bid.Price.Equal(dec("100.0")) {
		t.Fatalf("best bid = %s, want 100.0", bid.Price)
	}
	ask, _ := snap.BestAsk()
	if !ask.Price.Equal(dec("101.0")) {
		t.Fatalf("best ask = %s, want 101.0", ask.Price)
	}
	mid, ok := snap.Mid()
	if !ok || !mid.Equal(dec("100.5")) {
		t.Fatalf("mid = %v (ok=%v), want 100.5", mid, ok)
	}
}

// S2 — Delete via zero-qty.
func TestApplyDeleteZeroQuantity(t *testing.T) {
	s := New(20)
	mustBootstrap(t, s)

	snap, err := s.Apply(DepthUpdate{
		Symbol:        "BTCUSDT",
		FirstUpdateID: 46,
		LastUpdateID:  46,
		Bids:          []PriceLevel{level("99.0", "0")},
	})
	if err != nil {
		t.Fatalf("delete apply: %v", err)
	}
	if len(snap.Bids) != 1 {
		t.Fatalf("len(bids) = %d, want 1", len(snap.Bids))
	}
	if !snap.Bids[0].Price.Equal(dec("100.0")) {
		t.Fatalf("remaining bid = %s, want 100.0", snap.Bids[0].Price)
	}
	if snap.LastUpdateID != 46 {
		t.Fatalf("LastUpdateID = %d, want 46", snap.LastUpdateID)
	}
}

// S3 — Gap.
func TestApplyGap(t *testing.T) {
	s := New(20)
	mustBootstrap(t, s)

	_, err := s.Apply(DepthUpdate{
		Symbol:        "BTCUSDT",
		FirstUpdateID: 100,
		LastUpdateID:  100,
	})
	var gapErr *GapError
	if !errors.As(err, &gapErr) {
		t.Fatalf("err = %v, want *GapError", err)
	}

	snap, _ := s.Get("BTCUSDT")
	if snap.LastUpdateID != 45 {
		t.Fatalf("LastUpdateID after gap = %d, want unchanged 45", snap.LastUpdateID)
	}
}

// S4 — Stale.
func TestApplyStale(t *testing.T) {
	s := New(20)
	mustBootstrap(t, s)

	_, err := s.Apply(DepthUpdate{
		Symbol:        "BTCUSDT",
		FirstUpdateID: 10,
		LastUpdateID:  20,
		Bids:          []PriceLevel{level("100.0", "9.9")},
	})
	if !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}

	snap, _ := s.Get("BTCUSDT")
	if snap.LastUpdateID != 45 {
		t.Fatalf("LastUpdateID after stale = %d, want unchanged 45", snap.LastUpdateID)
	}
	bid, _ := snap.BestBid()
	if !bid.Quantity.Equal(dec("1.5")) {
		t.Fatalf("bid qty after stale = %s, want unchanged 1.5", bid.Quantity)
	}
}

func TestResetRebootstraps(t *testing.T) {
	s := New(20)
	mustBootstrap(t, s)

	s.Reset("BTCUSDT")
	if _, ok := s.Get("BTCUSDT"); ok {
		t.Fatal("expected no book after reset")
	}

	snap, err := s.Apply(DepthUpdate{
		Symbol:        "BTCUSDT",
		FirstUpdateID: 9000,
		LastUpdateID:  9001,
		Bids:          []PriceLevel{level("50.0", "1")},
	})
	if err != nil {
		t.Fatalf("rebootstrap apply: %v", err)
	}
	if snap.LastUpdateID != 9001 {
		t.Fatalf("LastUpdateID = %d, want 9001", snap.LastUpdateID)
	}
}

func TestTopLevelsOrderingAndCap(t *testing.T) {
	s := New(20)
	_, err := s.Apply(DepthUpdate{
		Symbol:        "ETHUSDT",
		FirstUpdateID: 1,
		LastUpdateID:  1,
		Bids: []PriceLevel{
			level("10", "1"), level("12", "1"), level("11", "1"),
		},
		Asks: []PriceLevel{
			level("15", "1"), level("13", "1"), level("14", "1"),
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	bids, asks, ok := s.TopLevels("ETHUSDT", 2)
	if !ok {
		t.Fatal("expected book to exist")
	}
	if len(bids) != 2 || len(asks) != 2 {
		t.Fatalf("len(bids)=%d len(asks)=%d, want 2/2", len(bids), len(asks))
	}
	if !bids[0].Price.Equal(dec("12")) || !bids[1].Price.Equal(dec("11")) {
		t.Fatalf("bids not descending: %+v", bids)
	}
	if !asks[0].Price.Equal(dec("13")) || !asks[1].Price.Equal(dec("14")) {
		t.Fatalf("asks not ascending: %+v", asks)
	}
}

func TestCrossedBookResets(t *testing.T) {
	s := New(20)
	mustBootstrap(t, s) // bids top 100.0, asks top 101.0

	_, err := s.Apply(DepthUpdate{
		Symbol:        "BTCUSDT",
		FirstUpdateID: 46,
		LastUpdateID:  46,
		Bids:          []PriceLevel{level("102.0", "1")}, // now crosses the 101.0 ask
	})
	if !errors.Is(err, ErrCrossedBook) {
		t.Fatalf("err = %v, want ErrCrossedBook", err)
	}
	if _, ok := s.Get("BTCUSDT"); ok {
		t.Fatal("expected book reset after crossed apply")
	}
}

func TestNoStoredLevelHasZeroQuantity(t *testing.T) {
	s := New(20)
	mustBootstrap(t, s)
	snap, _ := s.Get("BTCUSDT")
	for _, lvl := range append(append([]PriceLevel{}, snap.Bids...), snap.Asks...) {
		if lvl.Quantity.IsZero() {
			t.Fatalf("stored level with zero quantity: %+v", lvl)
		}
	}
}

func mustBootstrap(t *testing.T, s *Store) {
	t.Helper()
	_, err := s.Apply(DepthUpdate{
		Symbol:        "BTCUSDT",
		FirstUpdateID: 42,
		LastUpdateID:  45,
		Bids:          []PriceLevel{level("100.0", "1.5"), level("99.0", "2.0")},
		Asks:          []PriceLevel{level("101.0", "1.0")},
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
}
