// Package market fetches stock quotes and index data from the Yahoo
// Finance chart API.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/tycho-agent/tycho/internal/httpkit"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// ValidPeriods are the accepted history ranges for quote lookups.
var ValidPeriods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y"}

// indexSymbols maps Yahoo index tickers to display names for the
// market overview, in presentation order.
var indexSymbols = []struct {
	Symbol string
	Name   string
}{
	{"^GSPC", "S&P 500"},
	{"^DJI", "Dow Jones"},
	{"^IXIC", "NASDAQ"},
}

// Quote is a snapshot of a symbol built from its recent price history.
type Quote struct {
	Symbol        string             `json:"symbol"`
	Name          string             `json:"company_name"`
	Price         float64            `json:"current_price"`
	Change        float64            `json:"price_change"`
	ChangePercent float64            `json:"price_change_percent"`
	Volume        int64              `json:"volume"`
	High52        float64            `json:"52_week_high,omitempty"`
	Low52         float64            `json:"52_week_low,omitempty"`
	RecentCloses  map[string]float64 `json:"recent_prices"`
}

// IndexQuote is one entry of the market overview.
type IndexQuote struct {
	Symbol        string  `json:"symbol"`
	Current       float64 `json:"current"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// Client talks to the Yahoo Finance chart endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a market data client. An empty baseURL selects the
// public Yahoo endpoint; tests point it at a local fixture server.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		logger:  logger.With("component", "market"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(15 * time.Second),
			httpkit.WithRetry(2, time.Second),
		),
	}
}

// ValidPeriod reports whether p is an accepted history range.
func ValidPeriod(p string) bool {
	for _, v := range ValidPeriods {
		if p == v {
			return true
		}
	}
	return false
}

// chart API wire format

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		LongName           string  `json:"longName"`
		ShortName          string  `json:"shortName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		FiftyTwoWeekHigh   float64 `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow    float64 `json:"fiftyTwoWeekLow"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// History fetches a quote for symbol over the given period. Daily bars
// are requested regardless of period; nulls in the close series (market
// holidays, thin sessions) are skipped.
func (c *Client) History(ctx context.Context, symbol, period string) (*Quote, error) {
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("invalid period %q (valid: %v)", period, ValidPeriods)
	}

	params := url.Values{
		"range":    {period},
		"interval": {"1d"},
	}
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("symbol %q not found", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("fetch %s: HTTP %d: %s", symbol, resp.StatusCode, body)
	}

	var cr chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode response for %s: %w", symbol, err)
	}

	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	quote, err := buildQuote(&cr.Chart.Result[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	c.logger.Debug("fetched quote",
		"symbol", quote.Symbol,
		"price", quote.Price,
		"period", period,
	)
	return quote, nil
}

// Overview fetches the major index quotes. A failed index is logged and
// skipped so one outage doesn't blank the whole overview; an error is
// returned only when every index fails.
func (c *Client) Overview(ctx context.Context) (map[string]IndexQuote, error) {
	overview := make(map[string]IndexQuote, len(indexSymbols))
	var lastErr error

	for _, idx := range indexSymbols {
		quote, err := c.History(ctx, idx.Symbol, "5d")
		if err != nil {
			c.logger.Warn("index fetch failed", "symbol", idx.Symbol, "error", err)
			lastErr = err
			continue
		}
		overview[idx.Name] = IndexQuote{
			Symbol:        quote.Symbol,
			Current:       quote.Price,
			Change:        quote.Change,
			ChangePercent: round2(quote.ChangePercent),
		}
	}

	if len(overview) == 0 {
		return nil, fmt.Errorf("market overview unavailable: %w", lastErr)
	}
	return overview, nil
}

// buildQuote derives a Quote from one chart result.
func buildQuote(cr *chartResult) (*Quote, error) {
	type bar struct {
		ts     int64
		close  float64
		volume int64
	}

	var bars []bar
	if len(cr.Indicators.Quote) > 0 {
		q := cr.Indicators.Quote[0]
		for i, ts := range cr.Timestamp {
			if i >= len(q.Close) || q.Close[i] == nil {
				continue
			}
			b := bar{ts: ts, close: *q.Close[i]}
			if i < len(q.Volume) && q.Volume[i] != nil {
				b.volume = *q.Volume[i]
			}
			bars = append(bars, b)
		}
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no price data")
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].ts < bars[j].ts })

	last := bars[len(bars)-1]
	quote := &Quote{
		Symbol: cr.Meta.Symbol,
		Name:   cr.Meta.LongName,
		Price:  last.close,
		Volume: last.volume,
		High52: cr.Meta.FiftyTwoWeekHigh,
		Low52:  cr.Meta.FiftyTwoWeekLow,
	}
	if quote.Name == "" {
		quote.Name = cr.Meta.ShortName
	}
	if quote.Name == "" {
		quote.Name = cr.Meta.Symbol
	}

	if len(bars) > 1 {
		prev := bars[len(bars)-2]
		quote.Change = last.close - prev.close
		if prev.close != 0 {
			quote.ChangePercent = quote.Change / prev.close * 100
		}
	}

	// Last five closes keyed by date, for trend context.
	quote.RecentCloses = make(map[string]float64)
	start := len(bars) - 5
	if start < 0 {
		start = 0
	}
	for _, b := range bars[start:] {
		date := time.Unix(b.ts, 0).UTC().Format("2006-01-02")
		quote.RecentCloses[date] = b.close
	}

	return quote, nil
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5*sign(f))) / 100
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
