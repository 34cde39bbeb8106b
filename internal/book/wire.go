package book

// WirePayload is the canonical JSON shape published on
// orderbook:{symbol}, matching spec.md §6 exactly: bids/asks are
// objects keyed by the canonical decimal price string, not arrays, so
// that repeated publishes of the same price key serialize identically
// byte-for-byte in the map values (only the quantity field changes).
type WirePayload struct {
	Symbol       string            `json:"symbol"`
	Bids         map[string]string `json:"bids"`
	Asks         map[string]string `json:"asks"`
	LastUpdateID uint64            `json:"last_update_id"`
	TimestampUs  int64             `json:"timestamp"`
}

// ToWire converts the snapshot into the exchange-compatible wire shape.
func (s Snapshot) ToWire() WirePayload {
	w := WirePayload{
		Symbol:       s.Symbol,
		Bids:         make(map[string]string, len(s.Bids)),
		Asks:         make(map[string]string, len(s.Asks)),
		LastUpdateID: s.LastUpdateID,
		TimestampUs:  s.TimestampMicros,
	}
	for _, lvl := range s.Bids {
		w.Bids[lvl.Price.String()] = lvl.Quantity.String()
	}
	for _, lvl := range s.Asks {
		w.Asks[lvl.Price.String()] = lvl.Quantity.String()
	}
	return w
}
