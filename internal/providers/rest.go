package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/petroflow/petroflow/internal/errs"
	"github.com/petroflow/petroflow/internal/metrics"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRetryAttempts  = 3
	defaultBackoffBase    = 2 * time.Second
	defaultBackoffCap     = 10 * time.Second
	defaultRateRPS        = 5.0
	defaultRateBurst      = 5
)

// restClient is the shared HTTP machinery behind every adapter: User-Agent,
// client-side rate limiting, circuit breaking, and bounded exponential
// backoff on transient failures. One instance per adapter, never shared.
type restClient struct {
	provider    string
	hc          *http.Client
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	userAgent   string
	attempts    int
	backoffBase time.Duration
	backoffCap  time.Duration
}

func newRESTClient(provider, userAgent string, s Settings) *restClient {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	attempts := s.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	backoffBase := s.BackoffBase
	if backoffBase <= 0 {
		backoffBase = defaultBackoffBase
	}
	backoffCap := s.BackoffCap
	if backoffCap <= 0 {
		backoffCap = defaultBackoffCap
	}
	rps := s.RateRPS
	if rps <= 0 {
		rps = defaultRateRPS
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    provider,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && counts.ConsecutiveFailures >= 5
		},
	})

	return &restClient{
		provider:    provider,
		hc:          &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), defaultRateBurst),
		breaker:     breaker,
		userAgent:   userAgent,
		attempts:    attempts,
		backoffBase: backoffBase,
		backoffCap:  backoffCap,
	}
}

// getJSON performs a GET with retry on transient failures. Exactly
// c.attempts HTTP attempts are made when every attempt is transient; the
// final error is then KindRetriesExhausted. Non-transient errors propagate
// immediately. Cancellation is cooperative at retry boundaries.
func (c *restClient) getJSON(ctx context.Context, op, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, c.backoffFor(attempt)); err != nil {
				return nil, errs.Wrap(errs.KindTransient, op, err)
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errs.Wrap(errs.KindTransient, op, err)
		}

		body, err := c.attemptOnce(ctx, op, rawURL)
		if err == nil {
			return body, nil
		}
		if errs.KindOf(err) != errs.KindTransient {
			return nil, err
		}
		lastErr = err
		log.Warn().
			Str("provider", c.provider).
			Int("attempt", attempt).
			Int("max_attempts", c.attempts).
			Err(err).
			Msg("transient provider failure")
	}
	return nil, errs.Wrapf(errs.KindRetriesExhausted, op, lastErr,
		"%d attempts exhausted", c.attempts)
}

// attemptOnce issues a single HTTP request through the circuit breaker and
// classifies the outcome into the error taxonomy.
func (c *restClient) attemptOnce(ctx context.Context, op, rawURL string) ([]byte, error) {
	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if reqErr != nil {
			return nil, errs.Wrap(errs.KindClient, op, reqErr)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, doErr := c.hc.Do(req)
		if doErr != nil {
			metrics.ProviderRequests.WithLabelValues(c.provider, "transient").Inc()
			return nil, errs.Wrap(errs.KindTransient, op, doErr)
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			metrics.ProviderRequests.WithLabelValues(c.provider, "transient").Inc()
			return nil, errs.Wrap(errs.KindTransient, op, readErr)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			metrics.ProviderRequests.WithLabelValues(c.provider, "success").Inc()
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			metrics.ProviderRequests.WithLabelValues(c.provider, "transient").Inc()
			return nil, errs.Newf(errs.KindTransient, op, "HTTP %d", resp.StatusCode)
		default:
			metrics.ProviderRequests.WithLabelValues(c.provider, "client_error").Inc()
			return nil, errs.Newf(errs.KindClient, op, "HTTP %d", resp.StatusCode)
		}
	})
	metrics.ProviderRequestDuration.WithLabelValues(c.provider).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errs.Wrap(errs.KindTransient, op, err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

// backoffFor returns the wait before the given attempt: 2s before attempt 2,
// 4s before attempt 3, capped.
func (c *restClient) backoffFor(attempt int) time.Duration {
	wait := c.backoffBase << (attempt - 2)
	if wait > c.backoffCap || wait <= 0 {
		wait = c.backoffCap
	}
	return wait
}

// probe issues one uncounted GET against the base URL for health checks.
// Any response below 500 proves connectivity.
func (c *restClient) probe(ctx context.Context, baseURL string) *ProbeResult {
	start := time.Now()
	result := &ProbeResult{Provider: c.provider, Timestamp: start}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.hc.Do(req)
	result.LatencyMS = int(time.Since(start).Milliseconds())
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return result
	}
	result.Healthy = true
	return result
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
