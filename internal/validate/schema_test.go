package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/domain"
)

func testValidationConfig() config.ValidationConfig {
	return config.ValidationConfig{
		QualityThreshold: 70,
		ExcludeWeekends:  true,
		Outliers: config.OutlierConfig{
			ZScoreThreshold:   3.0,
			IQRMultiplier:     1.5,
			RollingWindowDays: 30,
		},
		Completeness: config.CompletenessConfig{
			MaxGapDays:     2,
			MinDataPoints:  10,
			MaxMissingRate: 0.1,
		},
		Tolerances: config.ToleranceConfig{
			CrossSourceTolerance: 0.05,
			MaxDailyChange:       0.2,
		},
		QualityWeights: config.QualityWeights{
			Completeness:     0.4,
			Consistency:      0.3,
			SchemaCompliance: 0.2,
			Outlier:          0.1,
		},
	}
}

func rec(day int, price float64) domain.PriceRecord {
	return domain.PriceRecord{
		Timestamp: time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
		Symbol:    "WTI_CRUDE",
		Source:    "eia",
		Price:     price,
	}
}

func TestValidateSchemaCleanBatch(t *testing.T) {
	v := New(testValidationConfig())

	res := v.ValidateSchema([]domain.PriceRecord{rec(5, 74.2), rec(6, 74.8)})

	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, 2, res.Checked)
	assert.Zero(t, res.Invalid)
	assert.Empty(t, res.Errors)
}

func TestValidateSchemaFindings(t *testing.T) {
	v := New(testValidationConfig())

	bad := rec(6, -1) // non-positive price
	noSymbol := rec(7, 74.0)
	noSymbol.Symbol = ""
	noSource := rec(8, 74.0)
	noSource.Source = ""
	zeroTS := domain.PriceRecord{Symbol: "WTI_CRUDE", Source: "eia", Price: 74.0}

	res := v.ValidateSchema([]domain.PriceRecord{rec(5, 74.2), bad, noSymbol, noSource, zeroTS})

	assert.Equal(t, 5, res.Checked)
	assert.Equal(t, 4, res.Invalid)
	assert.Equal(t, 20.0, res.Score)

	joined := ""
	for _, e := range res.Errors {
		joined += e + "\n"
	}
	assert.Contains(t, joined, CodeNonPositivePrice)
	assert.Contains(t, joined, CodeMissingSymbol)
	assert.Contains(t, joined, CodeMissingSource)
	assert.Contains(t, joined, CodeZeroTimestamp)
}

func TestValidateSchemaNonUTCWarnsOnly(t *testing.T) {
	v := New(testValidationConfig())

	local := rec(5, 74.2)
	local.Timestamp = time.Date(2026, 1, 5, 0, 0, 0, 0, time.FixedZone("EST", -5*3600))

	res := v.ValidateSchema([]domain.PriceRecord{local})

	assert.Equal(t, 100.0, res.Score, "non-UTC is a warning, not an error")
	assert.NotEmpty(t, res.Warnings)
}

func TestValidateSchemaEmptyBatch(t *testing.T) {
	v := New(testValidationConfig())

	res := v.ValidateSchema(nil)

	assert.Equal(t, 100.0, res.Score)
	assert.NotEmpty(t, res.Warnings)
}
