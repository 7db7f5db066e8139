package providers

import (
	"sort"
	"time"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/errs"
)

// Settings configures one adapter instance. Zero values fall back to the
// documented defaults.
type Settings struct {
	UserAgent       string
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RetryAttempts   int
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	RateRPS         float64
	CacheEnabled    bool
	CacheTTL        time.Duration
	CacheMaxEntries int
}

// Build constructs one adapter per enabled source in the configuration.
// Credentials come from the config's environment overlay; a missing
// credential fails construction with KindConfig.
func Build(cfg *config.Config) (map[string]Provider, error) {
	built := make(map[string]Provider)

	names := cfg.EnabledSources()
	sort.Strings(names)

	for _, name := range names {
		src := cfg.DataSources[name]
		settings := Settings{
			UserAgent:     cfg.UserAgent(),
			BaseURL:       src.BaseURL,
			Timeout:       defaultRequestTimeout,
			RetryAttempts: cfg.ErrorHandling.RetryAttempts,
			RateRPS:       src.RateRPS,
			CacheEnabled:  true,
			CacheTTL:      cfg.Credentials.CacheTTL,
		}

		var (
			p   Provider
			err error
		)
		switch name {
		case "eia":
			settings.APIKey = cfg.Credentials.EIAAPIKey
			p, err = NewEIAClient(settings)
		case "fred":
			settings.APIKey = cfg.Credentials.FREDAPIKey
			p, err = NewFREDClient(settings)
		case "quotes":
			p, err = NewQuoteClient(settings)
		default:
			return nil, errs.Newf(errs.KindConfig, "providers.build", "unknown data source %q", name)
		}
		if err != nil {
			return nil, err
		}
		built[name] = p
	}
	return built, nil
}
