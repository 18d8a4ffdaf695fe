// Package client talks to the upstream market-data service: exchange
// metadata, candle history, and cross-asset price series.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"backtestopt/internal/apperrors"
	"backtestopt/internal/candle"
	"backtestopt/internal/filters"
	"backtestopt/internal/primitives"
	"backtestopt/internal/resilience"
)

// CandleType selects which price field a candle series is built from.
type CandleType string

const (
	CandleTypeRegular CandleType = "regular"
	CandleTypeHeikinAshi CandleType = "heikin_ashi"
)

// Client fetches market data from a single data-feed base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

// New constructs a Client. timeout bounds every request; zero uses the
// http.Client default of no timeout. Every request goes through a circuit
// breaker keyed by baseURL, so a run of failures against a down data feed
// stops queuing further requests instead of retrying into it one by one.
func New(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    resilience.NewCircuitBreaker(baseURL, resilience.DefaultCircuitBreakerConfig()),
	}
}

// BreakerStats reports the circuit breaker's current counters, for a
// health endpoint to surface.
func (c *Client) BreakerStats() resilience.CircuitBreakerStats {
	return c.breaker.Stats()
}

type exchangeInfoQuery struct {
	Exchange string `url:"exchange"`
}

// GetExchangeInfo fetches fees, filters, borrow terms and asset precision
// for exchange.
func (c *Client) GetExchangeInfo(ctx context.Context, exchange string) (filters.ExchangeInfo, error) {
	var out filters.ExchangeInfo
	err := c.getJSON(ctx, "/exchange_info", exchangeInfoQuery{Exchange: exchange}, &out)
	return out, err
}

type candlesQuery struct {
	Exchange string `url:"exchange"`
	Symbol   string `url:"symbol"`
	Interval uint64 `url:"interval"`
	Start    uint64 `url:"start"`
	End      uint64 `url:"end"`
	Type     string `url:"type"`
}

// ListCandles fetches the candle series for symbol over [start, end).
func (c *Client) ListCandles(ctx context.Context, exchange, symbol string, interval primitives.Interval, start, end primitives.Timestamp, typ CandleType) ([]candle.Candle, error) {
	q := candlesQuery{Exchange: exchange, Symbol: symbol, Interval: uint64(interval), Start: uint64(start), End: uint64(end), Type: string(typ)}
	var out []candle.Candle
	err := c.getJSON(ctx, "/candles", q, &out)
	return out, err
}

// ListCandlesFillMissingWithNone fetches the same series as ListCandles but
// with a nil element wherever the upstream service has no candle, so the
// caller's slice length always matches the expected number of intervals.
func (c *Client) ListCandlesFillMissingWithNone(ctx context.Context, exchange, symbol string, interval primitives.Interval, start, end primitives.Timestamp, typ CandleType) ([]*candle.Candle, error) {
	q := candlesQuery{Exchange: exchange, Symbol: symbol, Interval: uint64(interval), Start: uint64(start), End: uint64(end), Type: string(typ)}
	var out []*candle.Candle
	err := c.getJSON(ctx, "/candles_fill_missing_with_none", q, &out)
	return out, err
}

type candleIntervalsQuery struct {
	Exchange string `url:"exchange"`
}

// ListCandleIntervals fetches the candle intervals exchange supports.
func (c *Client) ListCandleIntervals(ctx context.Context, exchange string) ([]primitives.Interval, error) {
	var out []primitives.Interval
	err := c.getJSON(ctx, "/candle_intervals", candleIntervalsQuery{Exchange: exchange}, &out)
	return out, err
}

type pricesQuery struct {
	Exchange     string `url:"exchange"`
	Assets       string `url:"assets"`
	Interval     uint64 `url:"interval"`
	Start        uint64 `url:"start"`
	End          uint64 `url:"end"`
	TargetAsset  string `url:"target_asset"`
}

// MapAssetPrices fetches, for every asset, its price series against
// targetAsset over [start, end).
func (c *Client) MapAssetPrices(ctx context.Context, exchange string, assets []string, interval primitives.Interval, start, end primitives.Timestamp, targetAsset string) (map[string][]float64, error) {
	q := pricesQuery{
		Exchange:    exchange,
		Assets:      strings.Join(assets, ","),
		Interval:    uint64(interval),
		Start:       uint64(start),
		End:         uint64(end),
		TargetAsset: targetAsset,
	}
	out := make(map[string][]float64)
	err := c.getJSON(ctx, "/prices", q, &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, q interface{}, out interface{}) error {
	values, err := query.Values(q)
	if err != nil {
		return fmt.Errorf("client: encoding query for %s: %w", path, err)
	}

	u := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		u += "?" + encoded
	}

	return c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("client: building request for %s: %w", path, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("client: requesting %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			body := readBodyForError(resp)
			return &apperrors.UpstreamHTTPError{Method: http.MethodGet, URL: redactQuery(u), StatusCode: resp.StatusCode, Body: body}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("client: decoding response from %s: %w", path, err)
		}
		return nil
	})
}

func readBodyForError(resp *http.Response) string {
	buf := make([]byte, 2048)
	n, _ := resp.Body.Read(buf)
	return string(buf[:n])
}

// redactQuery drops the query string from a URL before it's attached to an
// error, since query parameters here are exchange/symbol identifiers, not
// secrets, but logging helpers downstream assume URLs never carry request
// parameters they'd need to scrub individually.
func redactQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
