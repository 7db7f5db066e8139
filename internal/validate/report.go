package validate

import (
	"fmt"
	"time"

	"github.com/petroflow/petroflow/internal/domain"
)

// recommendationThreshold is the sub-score below which the report attaches
// an actionable recommendation.
const recommendationThreshold = 85.0

// SubResults carries the validator sub-checks feeding one report.
// Consistency is nil when the source had no overlapping peer.
type SubResults struct {
	Schema       SchemaResult
	Completeness CompletenessResult
	Outliers     OutlierResult
	Consistency  *CrossSourceResult
}

// GenerateReport combines the sub-scores via the configured weighted sum and
// maps the result to a quality level. An absent consistency signal counts as
// neutral 100, never against the source.
func (v *Validator) GenerateReport(source string, sub SubResults) domain.QualityReport {
	consistencyScore := 100.0
	if sub.Consistency != nil {
		consistencyScore = sub.Consistency.Score
	}

	w := v.cfg.QualityWeights
	weightSum := w.Completeness + w.Consistency + w.SchemaCompliance + w.Outlier
	overall := (w.Completeness*sub.Completeness.Score +
		w.Consistency*consistencyScore +
		w.SchemaCompliance*sub.Schema.Score +
		w.Outlier*sub.Outliers.Score) / weightSum

	report := domain.QualityReport{
		Source:            source,
		SchemaScore:       sub.Schema.Score,
		CompletenessScore: sub.Completeness.Score,
		ConsistencyScore:  consistencyScore,
		OutlierScore:      sub.Outliers.Score,
		OverallScore:      overall,
		Level:             domain.LevelForScore(overall),
		GeneratedAt:       time.Now().UTC(),
	}

	report.Warnings = append(report.Warnings, sub.Schema.Warnings...)
	report.Warnings = append(report.Warnings, sub.Completeness.Warnings...)
	report.Warnings = append(report.Warnings, sub.Schema.Errors...)

	report.Recommendations = v.recommend(sub, consistencyScore)
	return report
}

// recommend derives actionable guidance from sub-scores below threshold.
func (v *Validator) recommend(sub SubResults, consistencyScore float64) []string {
	var recs []string
	if sub.Schema.Score < recommendationThreshold {
		recs = append(recs, fmt.Sprintf(
			"schema compliance %.1f: inspect provider payload for malformed rows", sub.Schema.Score))
	}
	if sub.Completeness.Score < recommendationThreshold {
		recs = append(recs, fmt.Sprintf(
			"completeness %.1f with %d gaps: consider a backfill run over the gap windows",
			sub.Completeness.Score, len(sub.Completeness.Gaps)))
	}
	if consistencyScore < recommendationThreshold && sub.Consistency != nil {
		recs = append(recs, fmt.Sprintf(
			"consistency %.1f vs %s: review %d discrepant timestamps before trusting either series",
			consistencyScore, sub.Consistency.SourceB, len(sub.Consistency.Discrepancies)))
	}
	if sub.Outliers.Score < recommendationThreshold {
		recs = append(recs, fmt.Sprintf(
			"outlier rate %.1f%%: verify provider did not ship a unit or scaling change",
			100-sub.Outliers.Score))
	}
	return recs
}
