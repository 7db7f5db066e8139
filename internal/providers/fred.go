package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/errs"
)

const defaultFREDBaseURL = "https://api.stlouisfed.org/fred"

// FREDClient fetches economic series observations from the FRED API. FRED
// encodes missing observations as the string ".".
type FREDClient struct {
	rest    *restClient
	cache   *seriesCache
	baseURL string
	apiKey  string
}

// NewFREDClient constructs the adapter. The API key comes from the settings
// or the FRED_API_KEY environment variable; absence is a config error.
func NewFREDClient(s Settings) (*FREDClient, error) {
	apiKey := s.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(config.EnvFREDAPIKey)
	}
	if apiKey == "" {
		return nil, errs.New(errs.KindConfig, "fred.new", "missing FRED API key")
	}

	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = defaultFREDBaseURL
	}

	return &FREDClient{
		rest:    newRESTClient("fred", s.UserAgent, s),
		cache:   newSeriesCache("fred", s.CacheEnabled, s.CacheTTL, s.CacheMaxEntries),
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

func (c *FREDClient) Name() string { return "fred" }

// FetchSeries fetches one FRED series for the window, dropping "." sentinels
// and returning observations ascending by date.
func (c *FREDClient) FetchSeries(ctx context.Context, seriesID string, start, end time.Time) ([]Observation, error) {
	const op = "fred.fetch_series"

	start, end, clamped, err := normalizeWindow(op, start, end, time.Now())
	if err != nil {
		return nil, err
	}
	if clamped {
		log.Warn().Str("provider", "fred").Str("series", seriesID).
			Msg("end date in the future, clamped to today")
	}

	key := cacheKey(seriesID, start, end)
	if cached, ok := c.cache.get(key); ok {
		return copyObservations(cached.([]Observation)), nil
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("series_id", seriesID)
	params.Set("observation_start", start.Format(dateLayout))
	params.Set("observation_end", end.Format(dateLayout))

	fullURL := fmt.Sprintf("%s/series/observations?%s", c.baseURL, params.Encode())
	body, err := c.rest.getJSON(ctx, op, fullURL)
	if err != nil {
		return nil, err
	}

	observations, err := parseFREDResponse(op, body)
	if err != nil {
		return nil, err
	}

	c.cache.put(key, copyObservations(observations))
	return observations, nil
}

// parseFREDResponse decodes {observations:[{date,value}]} where value "."
// means missing.
func parseFREDResponse(op string, body []byte) ([]Observation, error) {
	var payload struct {
		Observations []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"observations"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errs.Wrap(errs.KindParse, op, err)
	}
	if payload.Observations == nil {
		return nil, errs.New(errs.KindParse, op, "response missing observations array")
	}

	observations := make([]Observation, 0, len(payload.Observations))
	for _, row := range payload.Observations {
		date, err := time.ParseInLocation(dateLayout, row.Date, time.UTC)
		if err != nil {
			return nil, errs.Wrapf(errs.KindParse, op, err, "bad date %q", row.Date)
		}
		value, ok := parseWireValue(row.Value)
		if !ok {
			continue
		}
		observations = append(observations, Observation{Date: date, Value: value})
	}

	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date)
	})
	return observations, nil
}

// Probe checks API connectivity without consuming the retry budget.
func (c *FREDClient) Probe(ctx context.Context) *ProbeResult {
	return c.rest.probe(ctx, c.baseURL)
}

// CacheStats reports the adapter's cache counters.
func (c *FREDClient) CacheStats() CacheStats { return c.cache.stats() }
