// Package discovery fetches the tradable instrument universe from the
// primary venue's REST API once at startup and filters it to liquid
// perpetual-futures pairs. This is cold-path code: allocation and JSON
// unmarshalling via encoding/json are acceptable here.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"xvenue/internal/errs"
)

// DefaultMinVolume24h is the default 24h quote-volume floor in USDT.
const DefaultMinVolume24h = 1_000_000.0

// DefaultTimeout bounds the discovery HTTP call.
const DefaultTimeout = 10 * time.Second

// Instrument describes one liquid perpetual discovered on the primary
// venue, canonicalized to its base/quote pair.
type Instrument struct {
	Name      string // canonical exchange symbol, e.g. "BTCUSDT"
	BaseAsset string
	QuoteAsset string
	Volume24h float64
}

// Client fetches the 24h ticker list from the primary venue and filters
// it by minimum quote volume.
type Client struct {
	httpClient *http.Client
	url        string
	minVolume  float64
}

// New constructs a discovery client against url (the primary venue's 24h
// ticker REST endpoint) with the given minimum-volume filter.
func New(url string, minVolume float64, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if minVolume <= 0 {
		minVolume = DefaultMinVolume24h
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		minVolume:  minVolume,
	}
}

// ticker24h mirrors the fields actually consumed from the primary venue's
// 24hr ticker response; every other field in the real payload is ignored.
type ticker24h struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

// FetchLiquidUniverse calls the configured endpoint, decodes the ticker
// array, keeps only USDT-quoted perpetuals whose quote volume meets the
// minimum, and returns them sorted by volume descending. An empty or
// failed response is reported as an error; there is no fallback list.
func (c *Client) FetchLiquidUniverse(ctx context.Context) ([]Instrument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("discovery: read response: %w", err)
	}

	var tickers []ticker24h
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("discovery: decode response: %w", err)
	}

	instruments := make([]Instrument, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}
		// The venue reports quote volume as a decimal string; parsed with
		// decimal.Decimal rather than a bare float64 so a malformed or
		// overflowing value is rejected instead of silently truncated.
		volume, err := decimal.NewFromString(t.QuoteVolume)
		if err != nil || volume.LessThan(decimal.NewFromFloat(c.minVolume)) {
			continue
		}
		base, quote, ok := splitSymbolPair(t.Symbol)
		if !ok {
			continue
		}
		instruments = append(instruments, Instrument{
			Name:       t.Symbol,
			BaseAsset:  base,
			QuoteAsset: quote,
			Volume24h:  volume.InexactFloat64(),
		})
	}

	if len(instruments) == 0 {
		return nil, &errs.DiscoveryError{Err: fmt.Errorf("no liquid instruments found (min volume %.0f)", c.minVolume)}
	}

	sort.Slice(instruments, func(i, j int) bool {
		return instruments[i].Volume24h > instruments[j].Volume24h
	})

	return instruments, nil
}

// splitSymbolPair splits "BTCUSDT" into ("BTC", "USDT").
func splitSymbolPair(symbol string) (base, quote string, ok bool) {
	const suffix = "USDT"
	if !strings.HasSuffix(symbol, suffix) {
		return "", "", false
	}
	base = symbol[:len(symbol)-len(suffix)]
	if base == "" {
		return "", "", false
	}
	return base, suffix, true
}
