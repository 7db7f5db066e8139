package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceRecordKey(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	a := PriceRecord{
		Timestamp: time.Date(2026, 1, 5, 19, 0, 0, 0, est),
		Symbol:    "WTI_CRUDE",
		Source:    "eia",
		Price:     74.2,
	}
	b := PriceRecord{
		Timestamp: time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
		Symbol:    "WTI_CRUDE",
		Source:    "eia",
		Price:     75.0,
	}

	// Same instant in different zones yields the same natural key.
	assert.Equal(t, a.Key(), b.Key())

	c := b
	c.Source = "fred"
	assert.NotEqual(t, b.Key(), c.Key())
}

func TestNormalizeTimestamp(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	in := time.Date(2026, 1, 5, 19, 0, 0, 0, est)

	out := NormalizeTimestamp(in)
	assert.Equal(t, time.UTC, out.Location())
	assert.True(t, in.Equal(out))
}

func TestExecutionResultJSONRoundTrip(t *testing.T) {
	result := ExecutionResult{
		RunID:       "test-run",
		Status:      RunPartialSuccess,
		Mode:        "incremental",
		StartedAt:   time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC),
		FinishedAt:  time.Date(2026, 8, 25, 6, 0, 42, 0, time.UTC),
		WindowStart: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		RecordsFetched: map[string]int{
			"eia":  17,
			"fred": 17,
		},
		RecordsStored: map[string]int{
			"eia":  17,
			"fred": 0,
		},
		QualityScores: map[string]float64{
			"eia":  96.5,
			"fred": 62.0,
		},
		Errors:   []string{"source fred: storage: connection reset"},
		Warnings: []string{"end date in the future, clamped to 2026-08-25"},
		Summary:  "run test-run partial_success in 42s",
	}

	data, err := json.Marshal(&result)
	require.NoError(t, err)

	var decoded ExecutionResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result, decoded)

	assert.Equal(t, 42*time.Second, decoded.Duration())
	assert.Equal(t, 17, decoded.TotalStored())
}

func TestCommodityNameKnownSymbols(t *testing.T) {
	assert.Equal(t, "WTI Crude Oil", CommodityName(SymbolWTICrude))
	assert.Equal(t, "Brent Crude Oil", CommodityName(SymbolBrentCrude))
	assert.Equal(t, "Henry Hub Natural Gas", CommodityName(SymbolNaturalGas))
	assert.Equal(t, "UNKNOWN_X", CommodityName("UNKNOWN_X"))
}
