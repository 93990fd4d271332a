// Package marketdata fetches OHLCV bars and last prices from the exchange.
// Failures are returned as errors; callers treat them as "no data this
// cycle" for the asset and keep scanning.
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"phoenix/internal/model"

	"github.com/go-resty/resty/v2"
)

// BarSource supplies time-ordered bar history for an asset/timeframe.
type BarSource interface {
	GetBars(ctx context.Context, asset, timeframe string, limit int) ([]model.Bar, error)
	GetBarsRange(ctx context.Context, asset, timeframe string, start, end time.Time) ([]model.Bar, error)
}

// PriceSource supplies the current market price for an asset.
type PriceSource interface {
	LastPrice(ctx context.Context, asset string) (float64, error)
}

// BybitClient reads public market data from the Bybit v5 REST API.
type BybitClient struct {
	http     *resty.Client
	category string
}

// NewBybitClient creates a market-data client.
func NewBybitClient(baseURL, category string, timeout time.Duration) *BybitClient {
	return &BybitClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
		category: category,
	}
}

type klineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List [][]string `json:"list"`
	} `json:"result"`
}

type tickersResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
}

// GetBars fetches the most recent limit bars for an asset/timeframe.
func (c *BybitClient) GetBars(ctx context.Context, asset, timeframe string, limit int) ([]model.Bar, error) {
	return c.fetchKlines(ctx, map[string]string{
		"category": c.category,
		"symbol":   asset,
		"interval": timeframe,
		"limit":    strconv.Itoa(limit),
	}, asset)
}

// GetBarsRange fetches bars between start and end.
func (c *BybitClient) GetBarsRange(ctx context.Context, asset, timeframe string, start, end time.Time) ([]model.Bar, error) {
	return c.fetchKlines(ctx, map[string]string{
		"category": c.category,
		"symbol":   asset,
		"interval": timeframe,
		"start":    strconv.FormatInt(start.UnixMilli(), 10),
		"end":      strconv.FormatInt(end.UnixMilli(), 10),
		"limit":    "1000",
	}, asset)
}

func (c *BybitClient) fetchKlines(ctx context.Context, params map[string]string, asset string) ([]model.Bar, error) {
	var out klineResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get("/v5/market/kline")
	if err != nil {
		return nil, fmt.Errorf("fetching klines for %s: %w", asset, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching klines for %s: http %d", asset, resp.StatusCode())
	}
	if out.RetCode != 0 {
		return nil, fmt.Errorf("fetching klines for %s: %s", asset, out.RetMsg)
	}

	bars := make([]model.Bar, 0, len(out.Result.List))
	for _, row := range out.Result.List {
		bar, err := parseKlineRow(row)
		if err != nil {
			return nil, fmt.Errorf("parsing kline for %s: %w", asset, err)
		}
		bars = append(bars, bar)
	}
	// Bybit returns newest-first; the decision core wants strictly
	// increasing timestamps.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseKlineRow(row []string) (model.Bar, error) {
	if len(row) < 6 {
		return model.Bar{}, fmt.Errorf("short kline row: %d fields", len(row))
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return model.Bar{}, fmt.Errorf("timestamp %q: %w", row[0], err)
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("field %d %q: %w", i+1, row[i+1], err)
		}
		vals[i] = v
	}
	return model.Bar{
		Time:   time.UnixMilli(ms).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// LastPrice fetches the current market price for an asset.
func (c *BybitClient) LastPrice(ctx context.Context, asset string) (float64, error) {
	var out tickersResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"category": c.category,
			"symbol":   asset,
		}).
		SetResult(&out).
		Get("/v5/market/tickers")
	if err != nil {
		return 0, fmt.Errorf("fetching ticker for %s: %w", asset, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("fetching ticker for %s: http %d", asset, resp.StatusCode())
	}
	if out.RetCode != 0 || len(out.Result.List) == 0 {
		return 0, fmt.Errorf("fetching ticker for %s: %s", asset, out.RetMsg)
	}
	price, err := strconv.ParseFloat(out.Result.List[0].LastPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing last price for %s: %w", asset, err)
	}
	return price, nil
}
