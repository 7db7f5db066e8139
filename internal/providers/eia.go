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

const defaultEIABaseURL = "https://api.eia.gov/v2"

// EIAClient fetches daily series from the EIA open-data API.
type EIAClient struct {
	rest    *restClient
	cache   *seriesCache
	baseURL string
	apiKey  string
}

// NewEIAClient constructs the adapter. The API key comes from the settings
// or the EIA_API_KEY environment variable; absence is a config error.
func NewEIAClient(s Settings) (*EIAClient, error) {
	apiKey := s.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(config.EnvEIAAPIKey)
	}
	if apiKey == "" {
		return nil, errs.New(errs.KindConfig, "eia.new", "missing EIA API key")
	}

	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = defaultEIABaseURL
	}

	return &EIAClient{
		rest:    newRESTClient("eia", s.UserAgent, s),
		cache:   newSeriesCache("eia", s.CacheEnabled, s.CacheTTL, s.CacheMaxEntries),
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

func (c *EIAClient) Name() string { return "eia" }

// FetchSeries fetches one EIA series for the window, returning observations
// ascending by date with missing values dropped.
func (c *EIAClient) FetchSeries(ctx context.Context, seriesID string, start, end time.Time) ([]Observation, error) {
	const op = "eia.fetch_series"

	start, end, clamped, err := normalizeWindow(op, start, end, time.Now())
	if err != nil {
		return nil, err
	}
	if clamped {
		log.Warn().Str("provider", "eia").Str("series", seriesID).
			Msg("end date in the future, clamped to today")
	}

	key := cacheKey(seriesID, start, end)
	if cached, ok := c.cache.get(key); ok {
		return copyObservations(cached.([]Observation)), nil
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("start", start.Format(dateLayout))
	params.Set("end", end.Format(dateLayout))

	fullURL := fmt.Sprintf("%s/seriesid/%s?%s", c.baseURL, url.PathEscape(seriesID), params.Encode())
	body, err := c.rest.getJSON(ctx, op, fullURL)
	if err != nil {
		return nil, err
	}

	observations, err := parseEIAResponse(op, body)
	if err != nil {
		return nil, err
	}

	c.cache.put(key, copyObservations(observations))
	return observations, nil
}

// parseEIAResponse decodes the v2 envelope {response:{data:[{period,value}]}}.
// value arrives as a number, numeric string, or null.
func parseEIAResponse(op string, body []byte) ([]Observation, error) {
	var payload struct {
		Response struct {
			Data []struct {
				Period string      `json:"period"`
				Value  interface{} `json:"value"`
			} `json:"data"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errs.Wrap(errs.KindParse, op, err)
	}
	if payload.Response.Data == nil {
		return nil, errs.New(errs.KindParse, op, "response missing data array")
	}

	observations := make([]Observation, 0, len(payload.Response.Data))
	for _, row := range payload.Response.Data {
		date, err := time.ParseInLocation(dateLayout, row.Period, time.UTC)
		if err != nil {
			return nil, errs.Wrapf(errs.KindParse, op, err, "bad period %q", row.Period)
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
func (c *EIAClient) Probe(ctx context.Context) *ProbeResult {
	return c.rest.probe(ctx, c.baseURL)
}

// CacheStats reports the adapter's cache counters.
func (c *EIAClient) CacheStats() CacheStats { return c.cache.stats() }
