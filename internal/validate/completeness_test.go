package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroflow/petroflow/internal/domain"
)

// 2026-01-05 is a Monday.

func TestCheckCompletenessFullWeek(t *testing.T) {
	v := New(testValidationConfig())

	batch := []domain.PriceRecord{
		rec(5, 74.1), rec(6, 74.2), rec(7, 74.3), rec(8, 74.4), rec(9, 74.5),
	}
	res := v.CheckCompleteness(batch, true)

	assert.Equal(t, 5, res.Expected)
	assert.Equal(t, 5, res.Actual)
	assert.Equal(t, 100.0, res.Score)
	assert.Empty(t, res.Gaps)
}

func TestCheckCompletenessRecordsLongGap(t *testing.T) {
	v := New(testValidationConfig())

	// Mon, Tue, then the next Monday: Wed..Fri missing, a 3-weekday gap.
	batch := []domain.PriceRecord{rec(5, 74.1), rec(6, 74.2), rec(12, 74.9)}
	res := v.CheckCompleteness(batch, true)

	assert.Equal(t, 6, res.Expected) // Jan 5,6,7,8,9,12
	assert.Equal(t, 3, res.Actual)
	assert.Equal(t, 50.0, res.Score)

	require.Len(t, res.Gaps, 1)
	gap := res.Gaps[0]
	assert.Equal(t, 3, gap.Days)
	assert.Equal(t, 7, gap.From.Day())
	assert.Equal(t, 9, gap.To.Day())

	// Under min_data_points and over max_missing_rate, plus the gap itself.
	assert.Len(t, res.Warnings, 3)
}

func TestCheckCompletenessShortGapTolerated(t *testing.T) {
	v := New(testValidationConfig())

	// Wed and Thu missing: 2 days, equal to max_gap_days, not a gap finding.
	batch := []domain.PriceRecord{rec(5, 74.1), rec(6, 74.2), rec(9, 74.5)}
	res := v.CheckCompleteness(batch, true)

	assert.Empty(t, res.Gaps)
	assert.Equal(t, 5, res.Expected)
	assert.Equal(t, 3, res.Actual)
}

func TestCheckCompletenessWeekendNotExpected(t *testing.T) {
	v := New(testValidationConfig())

	// Fri Jan 9 to Mon Jan 12: the weekend is not a miss.
	batch := []domain.PriceRecord{rec(9, 74.5), rec(12, 74.9)}
	res := v.CheckCompleteness(batch, true)

	assert.Equal(t, 2, res.Expected)
	assert.Equal(t, 2, res.Actual)
	assert.Equal(t, 100.0, res.Score)
	assert.Empty(t, res.Gaps)
}

func TestCheckCompletenessWeekendsIncluded(t *testing.T) {
	v := New(testValidationConfig())

	batch := []domain.PriceRecord{rec(9, 74.5), rec(12, 74.9)}
	res := v.CheckCompleteness(batch, false)

	assert.Equal(t, 4, res.Expected) // Fri, Sat, Sun, Mon
	assert.Equal(t, 2, res.Actual)
}

func TestCheckCompletenessEmptyBatch(t *testing.T) {
	v := New(testValidationConfig())

	res := v.CheckCompleteness(nil, true)
	assert.Zero(t, res.Score)
	assert.NotEmpty(t, res.Warnings)
}
