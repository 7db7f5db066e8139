package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/petroflow/petroflow/internal/errs"
)

const defaultQuoteBaseURL = "https://quotes.petroflow.io/v1"

// QuoteClient fetches daily OHLCV bars from the quote feed. The feed is
// keyless; price for the canonical record is the close.
type QuoteClient struct {
	rest    *restClient
	cache   *seriesCache
	baseURL string
}

// NewQuoteClient constructs the adapter. No credential is required.
func NewQuoteClient(s Settings) (*QuoteClient, error) {
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = defaultQuoteBaseURL
	}
	return &QuoteClient{
		rest:    newRESTClient("quotes", s.UserAgent, s),
		cache:   newSeriesCache("quotes", s.CacheEnabled, s.CacheTTL, s.CacheMaxEntries),
		baseURL: baseURL,
	}, nil
}

func (c *QuoteClient) Name() string { return "quotes" }

// FetchSeries returns the close of each daily bar, ascending by date.
func (c *QuoteClient) FetchSeries(ctx context.Context, ticker string, start, end time.Time) ([]Observation, error) {
	bars, err := c.FetchBars(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	observations := make([]Observation, 0, len(bars))
	for _, bar := range bars {
		observations = append(observations, Observation{Date: bar.Date, Value: bar.Close})
	}
	return observations, nil
}

// FetchBars fetches full OHLCV bars for a ticker, missing closes dropped,
// ascending by date.
func (c *QuoteClient) FetchBars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	const op = "quotes.fetch_bars"

	start, end, clamped, err := normalizeWindow(op, start, end, time.Now())
	if err != nil {
		return nil, err
	}
	if clamped {
		log.Warn().Str("provider", "quotes").Str("ticker", ticker).
			Msg("end date in the future, clamped to today")
	}

	key := cacheKey(ticker, start, end)
	if cached, ok := c.cache.get(key); ok {
		return copyBars(cached.([]Bar)), nil
	}

	params := url.Values{}
	params.Set("ticker", ticker)
	params.Set("start", start.Format(dateLayout))
	params.Set("end", end.Format(dateLayout))

	fullURL := fmt.Sprintf("%s/history?%s", c.baseURL, params.Encode())
	body, err := c.rest.getJSON(ctx, op, fullURL)
	if err != nil {
		return nil, err
	}

	bars, err := parseQuoteResponse(op, body)
	if err != nil {
		return nil, err
	}

	c.cache.put(key, copyBars(bars))
	return bars, nil
}

// parseQuoteResponse decodes the tabular bar payload. Bars without a close
// are dropped; the remaining OHLC fields default to the close when absent.
func parseQuoteResponse(op string, body []byte) ([]Bar, error) {
	var payload struct {
		Bars []struct {
			Date   string   `json:"date"`
			Open   *float64 `json:"open"`
			High   *float64 `json:"high"`
			Low    *float64 `json:"low"`
			Close  *float64 `json:"close"`
			Volume *float64 `json:"volume"`
		} `json:"bars"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errs.Wrap(errs.KindParse, op, err)
	}
	if payload.Bars == nil {
		return nil, errs.New(errs.KindParse, op, "response missing bars array")
	}

	bars := make([]Bar, 0, len(payload.Bars))
	for _, row := range payload.Bars {
		date, err := time.ParseInLocation(dateLayout, row.Date, time.UTC)
		if err != nil {
			return nil, errs.Wrapf(errs.KindParse, op, err, "bad date %q", row.Date)
		}
		if row.Close == nil {
			continue
		}
		bar := Bar{Date: date, Close: *row.Close}
		bar.Open = valueOr(row.Open, bar.Close)
		bar.High = valueOr(row.High, bar.Close)
		bar.Low = valueOr(row.Low, bar.Close)
		if row.Volume != nil {
			bar.Volume = *row.Volume
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

// Probe checks feed connectivity without consuming the retry budget.
func (c *QuoteClient) Probe(ctx context.Context) *ProbeResult {
	return c.rest.probe(ctx, c.baseURL)
}

// CacheStats reports the adapter's cache counters.
func (c *QuoteClient) CacheStats() CacheStats { return c.cache.stats() }
