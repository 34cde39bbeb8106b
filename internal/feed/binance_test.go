package feed

import (
	"encoding/json"
	"testing"
)

func TestStreamKind(t *testing.T) {
	cases := map[string]string{
		"btcusdt@depth@100ms": "depth",
		"btcusdt@aggTrade":    "aggTrade",
		"btcusdt@bookTicker":  "unknown",
	}
	for stream, want := range cases {
		if got := streamKind(stream); got != want {
			t.Errorf("streamKind(%q) = %q, want %q", stream, got, want)
		}
	}
}

func TestSymbolFromStream(t *testing.T) {
	if got := symbolFromStream("btcusdt@depth@100ms"); got != "BTCUSDT" {
		t.Fatalf("symbolFromStream = %q, want BTCUSDT", got)
	}
}

func TestDecodeDepthUpdate(t *testing.T) {
	data := json.RawMessage(`{
		"e":"depthUpdate","E":123456789,"s":"BTCUSDT",
		"U":157,"u":160,
		"b":[["100.00","1.5"],["99.00","0"]],
		"a":[["101.00","2.0"]]
	}`)

	update, err := decodeDepthUpdate("BTCUSDT", data)
	if err != nil {
		t.Fatalf("decodeDepthUpdate: %v", err)
	}
	if update.FirstUpdateID != 157 || update.LastUpdateID != 160 {
		t.Fatalf("update ids = %d/%d, want 157/160", update.FirstUpdateID, update.LastUpdateID)
	}
	if len(update.Bids) != 2 || len(update.Asks) != 1 {
		t.Fatalf("len(bids)=%d len(asks)=%d, want 2/1", len(update.Bids), len(update.Asks))
	}
	if !update.Bids[1].Quantity.IsZero() {
		t.Fatal("expected second bid to carry the zero-quantity delete sentinel")
	}
}

func TestDecodeTrade(t *testing.T) {
	data := json.RawMessage(`{
		"e":"aggTrade","E":123456789,"s":"BTCUSDT","a":5933014,
		"p":"100.50","q":"0.25","T":123456785,"m":true
	}`)

	trade, err := decodeTrade("BTCUSDT", data)
	if err != nil {
		t.Fatalf("decodeTrade: %v", err)
	}
	if trade.TradeID != 5933014 {
		t.Fatalf("TradeID = %d, want 5933014", trade.TradeID)
	}
	if !trade.IsBuyerMaker {
		t.Fatal("expected IsBuyerMaker true")
	}
}

func TestStreamNames(t *testing.T) {
	got := streamNames("BTCUSDT")
	want := "btcusdt@depth@100ms/btcusdt@aggTrade"
	if got != want {
		t.Fatalf("streamNames = %q, want %q", got, want)
	}
}
