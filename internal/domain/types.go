// Package domain holds the canonical entities shared by every pipeline stage.
package domain

import (
	"time"
)

// Commodity is a long-lived reference entity, created on first sighting.
type Commodity struct {
	ID          int64   `json:"id" db:"id"`
	Symbol      string  `json:"symbol" db:"symbol"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
	Unit        *string `json:"unit,omitempty" db:"unit"`
}

// DataSource is a long-lived reference entity describing an upstream provider.
type DataSource struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
	BaseURL     *string `json:"base_url,omitempty" db:"base_url"`
	APIVersion  *string `json:"api_version,omitempty" db:"api_version"`
}

// PriceRecord is the canonical unit of ingestion. Timestamp is always a UTC
// instant; Symbol is the canonical commodity symbol, never a provider-native
// identifier.
type PriceRecord struct {
	Timestamp time.Time `json:"ts" db:"ts"`
	Symbol    string    `json:"symbol" db:"symbol"`
	Source    string    `json:"source" db:"source"`
	Price     float64   `json:"price" db:"price"`
	Volume    *float64  `json:"volume,omitempty" db:"volume"`
	Open      *float64  `json:"open,omitempty" db:"open"`
	High      *float64  `json:"high,omitempty" db:"high"`
	Low       *float64  `json:"low,omitempty" db:"low"`
	Close     *float64  `json:"close,omitempty" db:"close"`
}

// Key returns the natural key of the record. At most one stored row exists
// per key.
func (r PriceRecord) Key() RecordKey {
	return RecordKey{Timestamp: r.Timestamp.UTC(), Symbol: r.Symbol, Source: r.Source}
}

// RecordKey is the natural key (timestamp, commodity, source).
type RecordKey struct {
	Timestamp time.Time
	Symbol    string
	Source    string
}

// NormalizeTimestamp converts a timestamp to a UTC instant. Naive wall-clock
// values are assumed UTC by the adapters before records reach this point.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC()
}

// QualityLevel is the discretization of an overall quality score.
type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityFair      QualityLevel = "fair"
	QualityPoor      QualityLevel = "poor"
	QualityUnusable  QualityLevel = "unusable"
)

// LevelForScore maps an overall score in [0,100] to its quality level.
func LevelForScore(score float64) QualityLevel {
	switch {
	case score >= 95:
		return QualityExcellent
	case score >= 85:
		return QualityGood
	case score >= 70:
		return QualityFair
	case score >= 50:
		return QualityPoor
	default:
		return QualityUnusable
	}
}

// QualityReport summarizes the validator's signals for one source in one run.
type QualityReport struct {
	Source            string       `json:"source"`
	SchemaScore       float64      `json:"schema_score"`
	CompletenessScore float64      `json:"completeness_score"`
	ConsistencyScore  float64      `json:"consistency_score"`
	OutlierScore      float64      `json:"outlier_score"`
	OverallScore      float64      `json:"overall_score"`
	Level             QualityLevel `json:"level"`
	Warnings          []string     `json:"warnings,omitempty"`
	Recommendations   []string     `json:"recommendations,omitempty"`
	GeneratedAt       time.Time    `json:"generated_at"`
}

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	RunPending        RunStatus = "pending"
	RunSuccess        RunStatus = "success"
	RunPartialSuccess RunStatus = "partial_success"
	RunFailed         RunStatus = "failed"
)

// ExecutionResult aggregates one end-to-end pipeline run.
type ExecutionResult struct {
	RunID          string             `json:"run_id"`
	Status         RunStatus          `json:"status"`
	Mode           string             `json:"mode"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	WindowStart    time.Time          `json:"window_start"`
	WindowEnd      time.Time          `json:"window_end"`
	RecordsFetched map[string]int     `json:"records_fetched"`
	RecordsStored  map[string]int     `json:"records_stored"`
	QualityScores  map[string]float64 `json:"quality_scores"`
	Errors         []string           `json:"errors,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
	Summary        string             `json:"summary"`
}

// Duration returns the wall-clock duration of the run.
func (r *ExecutionResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// TotalStored returns the number of rows stored across all sources.
func (r *ExecutionResult) TotalStored() int {
	total := 0
	for _, n := range r.RecordsStored {
		total += n
	}
	return total
}
