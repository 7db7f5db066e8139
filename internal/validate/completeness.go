package validate

import (
	"fmt"
	"time"

	"github.com/petroflow/petroflow/internal/domain"
)

// Gap is a stretch of consecutive expected dates with no observation.
type Gap struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Days int       `json:"days"`
}

// CompletenessResult reports expected-versus-actual coverage for a batch's
// date span.
type CompletenessResult struct {
	Score    float64  `json:"score"` // 100 * actual / expected
	Expected int      `json:"expected"`
	Actual   int      `json:"actual"`
	Gaps     []Gap    `json:"gaps,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// CheckCompleteness counts expected daily observations across the batch's
// date span, optionally excluding weekends for trading series, and
// enumerates gaps longer than max_gap_days.
func (v *Validator) CheckCompleteness(batch []domain.PriceRecord, excludeWeekends bool) CompletenessResult {
	result := CompletenessResult{}
	if len(batch) == 0 {
		result.Warnings = append(result.Warnings, "empty batch, completeness is zero")
		return result
	}

	seen := make(map[time.Time]bool, len(batch))
	var first, last time.Time
	for _, rec := range batch {
		day := dateOf(rec.Timestamp)
		seen[day] = true
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
	}

	var gapStart time.Time
	gapLen := 0
	closeGap := func(endExclusive time.Time) {
		if gapLen > v.cfg.Completeness.MaxGapDays {
			result.Gaps = append(result.Gaps, Gap{
				From: gapStart,
				To:   endExclusive.AddDate(0, 0, -1),
				Days: gapLen,
			})
		}
		gapLen = 0
	}

	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if excludeWeekends && isWeekend(day) {
			continue
		}
		result.Expected++
		if seen[day] {
			result.Actual++
			closeGap(day)
			continue
		}
		if gapLen == 0 {
			gapStart = day
		}
		gapLen++
	}
	closeGap(last.AddDate(0, 0, 1))

	if result.Expected > 0 {
		result.Score = 100 * float64(result.Actual) / float64(result.Expected)
	}
	if result.Actual < v.cfg.Completeness.MinDataPoints {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("only %d data points, below minimum %d",
				result.Actual, v.cfg.Completeness.MinDataPoints))
	}
	missingRate := 1 - result.Score/100
	if missingRate > v.cfg.Completeness.MaxMissingRate {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("missing rate %.1f%% exceeds maximum %.1f%%",
				100*missingRate, 100*v.cfg.Completeness.MaxMissingRate))
	}
	for _, gap := range result.Gaps {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("gap of %d days from %s to %s",
				gap.Days, gap.From.Format("2006-01-02"), gap.To.Format("2006-01-02")))
	}
	return result
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
