// Package providers implements the per-source HTTP adapters. Every adapter
// owns its HTTP client, credential, rate limiter, circuit breaker, and series
// cache, and exposes the same FetchSeries capability.
package providers

import (
	"context"
	"strconv"
	"time"

	"github.com/petroflow/petroflow/internal/errs"
)

// Observation is a single (date, value) pair from a provider time series.
// Dates are UTC midnights; missing observations are dropped before an
// adapter returns.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Bar is a full OHLCV observation from a quote-style provider.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Provider is the uniform capability every adapter implements. seriesID is
// provider-native; the caller translates to and from canonical symbols.
type Provider interface {
	Name() string

	// FetchSeries returns observations in [start, end] ordered ascending by
	// date, missing observations removed. An empty result is not an error.
	FetchSeries(ctx context.Context, seriesID string, start, end time.Time) ([]Observation, error)

	// Probe issues a cheap connectivity check against the provider.
	Probe(ctx context.Context) *ProbeResult

	// CacheStats reports the adapter's series-cache counters.
	CacheStats() CacheStats
}

// BarFetcher is implemented by adapters that can return full OHLCV bars.
// The orchestrator type-asserts to enrich records with the quartet.
type BarFetcher interface {
	FetchBars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
}

// ProbeResult reports a provider health probe.
type ProbeResult struct {
	Provider  string    `json:"provider"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int       `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// normalizeWindow truncates the window to UTC dates, clamps a future end to
// now, and enforces start <= end. clamped reports whether end was pulled back.
func normalizeWindow(op string, start, end, now time.Time) (s, e time.Time, clamped bool, err error) {
	s = midnightUTC(start)
	e = midnightUTC(end)
	today := midnightUTC(now)

	if e.After(today) {
		e = today
		clamped = true
	}
	if s.After(e) {
		return s, e, clamped, errs.Newf(errs.KindValidation, op,
			"start %s is after end %s", s.Format(dateLayout), e.Format(dateLayout))
	}
	return s, e, clamped, nil
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

const dateLayout = "2006-01-02"

// parseWireValue interprets a provider value field that may arrive as a JSON
// number, a numeric string, a missing-value sentinel (".", ""), or null.
// ok is false for missing or unparseable values; such rows are dropped.
func parseWireValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case string:
		if v == "." || v == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
