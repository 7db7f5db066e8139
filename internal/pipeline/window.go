package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/errs"
	"github.com/petroflow/petroflow/internal/persistence"
)

// computeWindow selects the fetch window for a run. In incremental mode the
// window begins strictly after the latest stored timestamp so already-covered
// days are never re-fetched; empty storage falls back to the lookback.
func computeWindow(ctx context.Context, repo persistence.PriceRepo, dr config.DateRangeConfig,
	mode string, explicitStart, explicitEnd *time.Time, now time.Time,
) (start, end time.Time, warnings []string, err error) {
	const op = "pipeline.compute_window"

	today := midnightUTC(now)

	end = today
	if explicitEnd != nil {
		end = midnightUTC(*explicitEnd)
	}
	if end.After(today) {
		warnings = append(warnings, "end date in the future, clamped to "+today.Format("2006-01-02"))
		end = today
	}

	switch {
	case explicitStart != nil:
		start = midnightUTC(*explicitStart)
	case mode == config.ModeIncremental:
		latest, lookupErr := repo.LatestTimestamp(ctx)
		if lookupErr != nil {
			return start, end, warnings, lookupErr
		}
		if latest == nil {
			start = today.AddDate(0, 0, -dr.LookbackDays)
			warnings = append(warnings,
				"storage empty, falling back to lookback of "+strconv.Itoa(dr.LookbackDays)+" days")
		} else {
			start = midnightUTC(*latest).AddDate(0, 0, 1)
		}
	default: // full_refresh, backfill
		start = today.AddDate(0, 0, -dr.LookbackDays)
	}

	if start.After(end) {
		return start, end, warnings, errs.Newf(errs.KindValidation, op,
			"window start %s is after end %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return start, end, warnings, nil
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
