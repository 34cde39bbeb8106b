// Package feed dials the upstream exchange WebSocket, decodes depth
// and trade frames, and drives them into the order book store and bus
// publisher. Wire message shapes are grounded on fd1az-arbitrage-bot's
// business/pricing/infra/binance package (messages.go), the pack's only
// complete Binance stream-message decoder.
package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/marketdata-ingestor/internal/book"
)

// streamEnvelope is the combined-stream wrapper Binance sends when a
// connection subscribes to multiple streams via ?streams=a/b/c.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// partialDepthEvent is the top-N book snapshot delivered on
// <symbol>@depth<N>@<speed>ms streams.
type partialDepthEvent struct {
	LastUpdateID  uint64     `json:"lastUpdateId"`
	FirstUpdateID uint64     `json:"U"`
	FinalUpdateID uint64     `json:"u"`
	Bids          [][]string `json:"b"`
	Asks          [][]string `json:"a"`
}

// diffDepthEvent is the incremental delta delivered on
// <symbol>@depth@<speed>ms streams.
type diffDepthEvent struct {
	EventType     string     `json:"e"`
	EventTime     int64      `json:"E"`
	Symbol        string     `json:"s"`
	FirstUpdateID uint64     `json:"U"`
	FinalUpdateID uint64     `json:"u"`
	Bids          [][]string `json:"b"`
	Asks          [][]string `json:"a"`
}

type aggTradeEvent struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	AggTradeID   uint64 `json:"a"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// streamKind classifies a stream name by the suffix Binance uses.
func streamKind(stream string) string {
	switch {
	case strings.Contains(stream, "@depth"):
		return "depth"
	case strings.Contains(stream, "@aggTrade"):
		return "aggTrade"
	default:
		return "unknown"
	}
}

func symbolFromStream(stream string) string {
	idx := strings.IndexByte(stream, '@')
	if idx < 0 {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(stream[:idx])
}

func parseLevels(raw [][]string) ([]book.PriceLevel, error) {
	levels := make([]book.PriceLevel, 0, len(raw))
	for _, r := range raw {
		if len(r) < 2 {
			continue
		}
		price, err := decimal.NewFromString(r[0])
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", r[0], err)
		}
		qty, err := decimal.NewFromString(r[1])
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", r[1], err)
		}
		levels = append(levels, book.PriceLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}

// decodeDepthUpdate decodes a diff-depth frame for symbol into a
// book.DepthUpdate.
func decodeDepthUpdate(symbol string, data json.RawMessage) (book.DepthUpdate, error) {
	var ev diffDepthEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return book.DepthUpdate{}, fmt.Errorf("decode depth update: %w", err)
	}
	bids, err := parseLevels(ev.Bids)
	if err != nil {
		return book.DepthUpdate{}, err
	}
	asks, err := parseLevels(ev.Asks)
	if err != nil {
		return book.DepthUpdate{}, err
	}
	return book.DepthUpdate{
		Symbol:        symbol,
		FirstUpdateID: ev.FirstUpdateID,
		LastUpdateID:  ev.FinalUpdateID,
		Bids:          bids,
		Asks:          asks,
	}, nil
}

// decodeTrade decodes an aggTrade frame for symbol into a book.Trade.
func decodeTrade(symbol string, data json.RawMessage) (book.Trade, error) {
	var ev aggTradeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return book.Trade{}, fmt.Errorf("decode trade: %w", err)
	}
	price, err := decimal.NewFromString(ev.Price)
	if err != nil {
		return book.Trade{}, fmt.Errorf("parse trade price %q: %w", ev.Price, err)
	}
	qty, err := decimal.NewFromString(ev.Quantity)
	if err != nil {
		return book.Trade{}, fmt.Errorf("parse trade quantity %q: %w", ev.Quantity, err)
	}
	return book.Trade{
		Symbol:       symbol,
		TradeID:      ev.AggTradeID,
		Price:        price,
		Quantity:     qty,
		TimestampMs:  ev.TradeTime,
		IsBuyerMaker: ev.IsBuyerMaker,
	}, nil
}

// streamNames builds the combined-stream subscription path fragment
// for a symbol: <symbol>@depth@100ms/<symbol>@aggTrade.
func streamNames(symbol string) string {
	lower := strings.ToLower(symbol)
	return lower + "@depth@100ms/" + lower + "@aggTrade"
}
