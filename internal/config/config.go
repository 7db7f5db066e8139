// Package config loads the pipeline configuration from YAML, applies
// defaults, and overlays credentials from the environment. The loaded value
// is immutable after startup and passed by reference.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petroflow/petroflow/internal/errs"
)

// Environment variable names recognized by the loader.
const (
	EnvEIAAPIKey       = "EIA_API_KEY"
	EnvFREDAPIKey      = "FRED_API_KEY"
	EnvCacheTTLMinutes = "CACHE_TTL_MINUTES"
	EnvDatabaseURL     = "DATABASE_URL"
)

// Run modes for date-range computation.
const (
	ModeIncremental = "incremental"
	ModeFullRefresh = "full_refresh"
	ModeBackfill    = "backfill"
)

// Config is the root configuration value.
type Config struct {
	Pipeline      PipelineConfig          `yaml:"pipeline"`
	DataSources   map[string]SourceConfig `yaml:"data_sources"`
	DateRange     DateRangeConfig         `yaml:"date_range"`
	Validation    ValidationConfig        `yaml:"validation"`
	Storage       StorageConfig           `yaml:"storage"`
	ErrorHandling ErrorHandlingConfig     `yaml:"error_handling"`

	// Credentials come from the environment, never from the YAML file.
	Credentials Credentials `yaml:"-"`
}

// PipelineConfig identifies the pipeline in logs and the User-Agent header.
type PipelineConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SourceConfig enables a provider and selects what it fetches. Series holds
// provider-native identifiers (EIA series paths, FRED series IDs); Tickers
// holds quote-style tickers. Commodities filters by canonical symbol.
type SourceConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Commodities []string          `yaml:"commodities,omitempty"`
	Series      []string          `yaml:"series,omitempty"`
	Tickers     []string          `yaml:"tickers,omitempty"`
	BaseURL     string            `yaml:"base_url,omitempty"`
	RateRPS     float64           `yaml:"rate_rps,omitempty"`
	Symbols     map[string]string `yaml:"symbols,omitempty"` // extra native->canonical mappings
}

// DateRangeConfig controls fetch-window computation.
type DateRangeConfig struct {
	Mode         string `yaml:"mode"`
	LookbackDays int    `yaml:"lookback_days"`
}

// ValidationConfig holds every validator threshold.
type ValidationConfig struct {
	QualityThreshold int                `yaml:"quality_threshold"`
	ExcludeWeekends  bool               `yaml:"exclude_weekends"`
	Outliers         OutlierConfig      `yaml:"outliers"`
	Completeness     CompletenessConfig `yaml:"completeness"`
	Tolerances       ToleranceConfig    `yaml:"tolerances"`
	QualityWeights   QualityWeights     `yaml:"quality_weights"`
}

// OutlierConfig tunes z-score and IQR outlier detection.
type OutlierConfig struct {
	ZScoreThreshold   float64 `yaml:"z_score_threshold"`
	IQRMultiplier     float64 `yaml:"iqr_multiplier"`
	RollingWindowDays int     `yaml:"rolling_window_days"`
}

// CompletenessConfig tunes gap detection.
type CompletenessConfig struct {
	MaxGapDays     int     `yaml:"max_gap_days"`
	MinDataPoints  int     `yaml:"min_data_points"`
	MaxMissingRate float64 `yaml:"max_missing_rate"`
}

// ToleranceConfig tunes cross-source and day-over-day checks.
type ToleranceConfig struct {
	CrossSourceTolerance float64 `yaml:"cross_source_tolerance"`
	MaxDailyChange       float64 `yaml:"max_daily_change"`
}

// QualityWeights weight the four sub-scores in the overall score.
type QualityWeights struct {
	Completeness     float64 `yaml:"completeness"`
	Consistency      float64 `yaml:"consistency"`
	SchemaCompliance float64 `yaml:"schema_compliance"`
	Outlier          float64 `yaml:"outlier"`
}

// StorageConfig configures the Postgres adapter.
type StorageConfig struct {
	DSN       string `yaml:"dsn,omitempty"` // DATABASE_URL wins when set
	BatchSize int    `yaml:"batch_size"`
	Upsert    bool   `yaml:"upsert"`
}

// ErrorHandlingConfig configures retry and partial-failure behavior.
type ErrorHandlingConfig struct {
	RetryAttempts            int  `yaml:"retry_attempts"`
	ContinueOnPartialFailure bool `yaml:"continue_on_partial_failure"`
}

// Credentials carries provider API keys and cache overrides from the
// environment.
type Credentials struct {
	EIAAPIKey  string
	FREDAPIKey string
	CacheTTL   time.Duration // zero means adapter default
}

// Load reads, parses, defaults, and validates the configuration file, then
// overlays environment credentials.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfig, "config.load", err, "read %s", path)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrapf(errs.KindConfig, "config.load", err, "parse %s", path)
	}

	cfg.overlayEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a config populated with the documented defaults.
// YAML unmarshalling overrides only the keys present in the file.
func defaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{Name: "petroflow", Version: "dev"},
		DateRange: DateRangeConfig{
			Mode:         ModeIncremental,
			LookbackDays: 90,
		},
		Validation: ValidationConfig{
			QualityThreshold: 70,
			ExcludeWeekends:  true,
			Outliers: OutlierConfig{
				ZScoreThreshold:   3.0,
				IQRMultiplier:     1.5,
				RollingWindowDays: 30,
			},
			Completeness: CompletenessConfig{
				MaxGapDays:     2,
				MinDataPoints:  10,
				MaxMissingRate: 0.1,
			},
			Tolerances: ToleranceConfig{
				CrossSourceTolerance: 0.05,
				MaxDailyChange:       0.2,
			},
			QualityWeights: QualityWeights{
				Completeness:     0.4,
				Consistency:      0.3,
				SchemaCompliance: 0.2,
				Outlier:          0.1,
			},
		},
		Storage: StorageConfig{
			BatchSize: 1000,
			Upsert:    true,
		},
		ErrorHandling: ErrorHandlingConfig{
			RetryAttempts:            3,
			ContinueOnPartialFailure: true,
		},
	}
}

// overlayEnv pulls credentials and overrides from the environment.
func (c *Config) overlayEnv() {
	c.Credentials.EIAAPIKey = os.Getenv(EnvEIAAPIKey)
	c.Credentials.FREDAPIKey = os.Getenv(EnvFREDAPIKey)

	if v := os.Getenv(EnvCacheTTLMinutes); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			c.Credentials.CacheTTL = time.Duration(minutes) * time.Minute
		}
	}
	if dsn := os.Getenv(EnvDatabaseURL); dsn != "" {
		c.Storage.DSN = dsn
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.DateRange.Mode {
	case ModeIncremental, ModeFullRefresh, ModeBackfill:
	default:
		return errs.Newf(errs.KindConfig, "config.validate",
			"invalid date_range.mode %q", c.DateRange.Mode)
	}
	if c.DateRange.LookbackDays <= 0 {
		return errs.New(errs.KindConfig, "config.validate", "date_range.lookback_days must be positive")
	}
	if c.Validation.QualityThreshold < 0 || c.Validation.QualityThreshold > 100 {
		return errs.New(errs.KindConfig, "config.validate", "validation.quality_threshold must be in [0,100]")
	}
	w := c.Validation.QualityWeights
	if w.Completeness < 0 || w.Consistency < 0 || w.SchemaCompliance < 0 || w.Outlier < 0 {
		return errs.New(errs.KindConfig, "config.validate", "quality_weights must be non-negative")
	}
	if sum := w.Completeness + w.Consistency + w.SchemaCompliance + w.Outlier; sum <= 0 {
		return errs.New(errs.KindConfig, "config.validate", "quality_weights must not sum to zero")
	}
	if c.Storage.BatchSize <= 0 {
		return errs.New(errs.KindConfig, "config.validate", "storage.batch_size must be positive")
	}
	if c.ErrorHandling.RetryAttempts <= 0 {
		return errs.New(errs.KindConfig, "config.validate", "error_handling.retry_attempts must be positive")
	}
	for name, src := range c.DataSources {
		if !src.Enabled {
			continue
		}
		if len(src.Series) == 0 && len(src.Tickers) == 0 {
			return errs.Newf(errs.KindConfig, "config.validate",
				"data source %q is enabled but lists no series or tickers", name)
		}
	}
	return nil
}

// EnabledSources returns the names of enabled sources. Map iteration order
// is unspecified; callers sort when order matters.
func (c *Config) EnabledSources() []string {
	names := make([]string, 0, len(c.DataSources))
	for name, src := range c.DataSources {
		if src.Enabled {
			names = append(names, name)
		}
	}
	return names
}

// UserAgent returns the User-Agent header every adapter sends.
func (c *Config) UserAgent() string {
	return fmt.Sprintf("%s/%s (energy-data-pipeline)", c.Pipeline.Name, c.Pipeline.Version)
}
