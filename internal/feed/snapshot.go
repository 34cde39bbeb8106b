package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ndrandal/marketdata-ingestor/internal/book"
)

// restSnapshot is the REST depth-snapshot response shape, matching the
// exchange's GET /fapi/v1/depth response.
type restSnapshot struct {
	LastUpdateID uint64     `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// Bootstrapper fetches a REST depth snapshot to seed a symbol's book
// instead of treating the first streamed delta as baseline. Grounded
// on original_source/services/market-data/src/snapshot.rs, which this
// expansion carries forward as an opt-in alternative to
// bootstrap-from-first-delta (spec.md §9's first Open Question).
type Bootstrapper struct {
	BaseRESTURL string
	Depth       int
	HTTPClient  *http.Client
}

// NewBootstrapper constructs a Bootstrapper whose HTTPClient has a 5 s
// request timeout. FetchSnapshot requires a non-nil HTTPClient.
func NewBootstrapper(baseRESTURL string, depth int) *Bootstrapper {
	return &Bootstrapper{
		BaseRESTURL: baseRESTURL,
		Depth:       depth,
		HTTPClient:  &http.Client{Timeout: 5 * time.Second},
	}
}

var _ book.Bootstrapper = (*Bootstrapper)(nil)

// FetchSnapshot implements book.Bootstrapper.
func (b *Bootstrapper) FetchSnapshot(ctx context.Context, symbol string) (*book.Snapshot, error) {
	url := fmt.Sprintf("%s/fapi/v1/depth?symbol=%s&limit=%d",
		strings.TrimRight(b.BaseRESTURL, "/"), strings.ToUpper(symbol), b.Depth)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request for %s: unexpected status %d", symbol, resp.StatusCode)
	}

	var raw restSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", symbol, err)
	}

	bids, err := parseLevels(raw.Bids)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot bids for %s: %w", symbol, err)
	}
	asks, err := parseLevels(raw.Asks)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot asks for %s: %w", symbol, err)
	}

	return &book.Snapshot{
		Symbol:          strings.ToUpper(symbol),
		Bids:            bids,
		Asks:            asks,
		LastUpdateID:    raw.LastUpdateID,
		TimestampMicros: time.Now().UnixMicro(),
	}, nil
}
