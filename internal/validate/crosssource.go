package validate

import (
	"math"
	"sort"
	"time"

	"github.com/petroflow/petroflow/internal/domain"
)

// maxDiscrepancies caps the discrepancy list per source pair.
const maxDiscrepancies = 100

// Discrepancy is one timestamp where two sources disagree beyond tolerance.
type Discrepancy struct {
	Timestamp time.Time `json:"timestamp"`
	PriceA    float64   `json:"price_a"`
	PriceB    float64   `json:"price_b"`
	AbsDiff   float64   `json:"abs_diff"`
	PctDiff   float64   `json:"pct_diff"`
}

// CrossSourceResult reports the consistency of two sources over their common
// timestamps.
type CrossSourceResult struct {
	SourceA       string        `json:"source_a"`
	SourceB       string        `json:"source_b"`
	Common        int           `json:"common"`
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
	Score         float64       `json:"score"` // 100 * (1 - discrepancy rate)
}

// ValidateCrossSource inner-joins two batches on timestamp and flags rows
// whose relative difference exceeds the configured tolerance. With no common
// timestamps the score is 100: absence of overlap is not a discrepancy.
func (v *Validator) ValidateCrossSource(batchA, batchB []domain.PriceRecord) CrossSourceResult {
	result := CrossSourceResult{Score: 100}
	if len(batchA) > 0 {
		result.SourceA = batchA[0].Source
	}
	if len(batchB) > 0 {
		result.SourceB = batchB[0].Source
	}

	pricesB := make(map[time.Time]float64, len(batchB))
	for _, rec := range batchB {
		pricesB[rec.Timestamp.UTC()] = rec.Price
	}

	tolerance := v.cfg.Tolerances.CrossSourceTolerance
	exceeded := 0
	for _, rec := range batchA {
		ts := rec.Timestamp.UTC()
		priceB, ok := pricesB[ts]
		if !ok {
			continue
		}
		result.Common++

		absDiff := math.Abs(rec.Price - priceB)
		pctDiff := 0.0
		if rec.Price != 0 {
			pctDiff = absDiff / math.Abs(rec.Price)
		}
		if pctDiff > tolerance {
			exceeded++
			if len(result.Discrepancies) < maxDiscrepancies {
				result.Discrepancies = append(result.Discrepancies, Discrepancy{
					Timestamp: ts,
					PriceA:    rec.Price,
					PriceB:    priceB,
					AbsDiff:   absDiff,
					PctDiff:   pctDiff,
				})
			}
		}
	}

	sort.Slice(result.Discrepancies, func(i, j int) bool {
		return result.Discrepancies[i].Timestamp.Before(result.Discrepancies[j].Timestamp)
	})

	if result.Common > 0 {
		result.Score = 100 * (1 - float64(exceeded)/float64(result.Common))
	}
	return result
}
