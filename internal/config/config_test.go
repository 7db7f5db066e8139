package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroflow/petroflow/internal/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalYAML = `
data_sources:
  eia:
    enabled: true
    series: [PET.RWTC.D]
`

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv(EnvEIAAPIKey, "")
	t.Setenv(EnvDatabaseURL, "")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, ModeIncremental, cfg.DateRange.Mode)
	assert.Equal(t, 90, cfg.DateRange.LookbackDays)
	assert.Equal(t, 70, cfg.Validation.QualityThreshold)
	assert.True(t, cfg.Validation.ExcludeWeekends)
	assert.Equal(t, 3.0, cfg.Validation.Outliers.ZScoreThreshold)
	assert.Equal(t, 1000, cfg.Storage.BatchSize)
	assert.Equal(t, 3, cfg.ErrorHandling.RetryAttempts)
	assert.True(t, cfg.ErrorHandling.ContinueOnPartialFailure)

	w := cfg.Validation.QualityWeights
	assert.Equal(t, 0.4, w.Completeness)
	assert.Equal(t, 0.3, w.Consistency)
	assert.Equal(t, 0.2, w.SchemaCompliance)
	assert.Equal(t, 0.1, w.Outlier)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
data_sources:
  fred:
    enabled: true
    series: [DCOILWTICO]
    rate_rps: 2
date_range:
  mode: backfill
  lookback_days: 365
validation:
  quality_threshold: 85
`))
	require.NoError(t, err)

	assert.Equal(t, ModeBackfill, cfg.DateRange.Mode)
	assert.Equal(t, 365, cfg.DateRange.LookbackDays)
	assert.Equal(t, 85, cfg.Validation.QualityThreshold)
	assert.Equal(t, 2.0, cfg.DataSources["fred"].RateRPS)
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	t.Setenv(EnvEIAAPIKey, "eia-secret")
	t.Setenv(EnvFREDAPIKey, "fred-secret")
	t.Setenv(EnvCacheTTLMinutes, "15")
	t.Setenv(EnvDatabaseURL, "postgres://env-wins")

	cfg, err := Load(writeConfig(t, minimalYAML+`
storage:
  dsn: postgres://from-yaml
`))
	require.NoError(t, err)

	assert.Equal(t, "eia-secret", cfg.Credentials.EIAAPIKey)
	assert.Equal(t, "fred-secret", cfg.Credentials.FREDAPIKey)
	assert.Equal(t, 15*time.Minute, cfg.Credentials.CacheTTL)
	assert.Equal(t, "postgres://env-wins", cfg.Storage.DSN, "DATABASE_URL wins over YAML")
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
date_range:
  mode: hourly
`))
	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))
}

func TestLoadRejectsSourceWithoutSeries(t *testing.T) {
	_, err := Load(writeConfig(t, `
data_sources:
  eia:
    enabled: true
`))
	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))
}

func TestLoadRejectsBadWeights(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
validation:
  quality_weights:
    completeness: -1
`))
	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))
}

func TestEnabledSources(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
data_sources:
  eia:
    enabled: true
    series: [PET.RWTC.D]
  fred:
    enabled: false
    series: [DCOILWTICO]
  quotes:
    enabled: true
    tickers: [CL=F]
`))
	require.NoError(t, err)

	names := cfg.EnabledSources()
	assert.ElementsMatch(t, []string{"eia", "quotes"}, names)
}

func TestUserAgent(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
pipeline:
  name: petroflow
  version: "0.3.0"
`))
	require.NoError(t, err)
	assert.Equal(t, "petroflow/0.3.0 (energy-data-pipeline)", cfg.UserAgent())
}
