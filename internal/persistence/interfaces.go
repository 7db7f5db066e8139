// Package persistence defines the storage contract the orchestrator depends
// on. The canonical store keys price rows by (timestamp, commodity, source)
// and upserts are idempotent: replaying a batch leaves the same rows.
package persistence

import (
	"context"
	"time"

	"github.com/petroflow/petroflow/internal/domain"
)

// RangeQuery bounds a range read. Nil bounds are open; Limit <= 0 means no
// limit.
type RangeQuery struct {
	Start *time.Time
	End   *time.Time
	Limit int
}

// LatestPoint is the most recent stored observation for one
// (commodity, source) pair.
type LatestPoint struct {
	Timestamp time.Time `json:"timestamp" db:"ts"`
	Price     float64   `json:"price" db:"price"`
}

// Statistics aggregates stored rows for one commodity across all sources.
type Statistics struct {
	Count       int64   `json:"count" db:"count"`
	Mean        float64 `json:"mean" db:"mean"`
	Min         float64 `json:"min" db:"min"`
	Max         float64 `json:"max" db:"max"`
	TotalVolume float64 `json:"total_volume" db:"total_volume"`
}

// PriceRepo persists canonical records idempotently and serves the read
// paths the orchestrator needs for windowing and reporting.
type PriceRepo interface {
	// UpsertBatch atomically inserts the batch, overwriting all value
	// columns on natural-key conflict. Returns the number of rows affected.
	UpsertBatch(ctx context.Context, batch []domain.PriceRecord) (int64, error)

	// LatestTimestamp returns the global max timestamp, nil when empty.
	LatestTimestamp(ctx context.Context) (*time.Time, error)

	// LatestFor returns the max timestamp and its price for one pair,
	// nil when the pair has no rows.
	LatestFor(ctx context.Context, symbol, source string) (*LatestPoint, error)

	// Range returns rows for a pair ascending by timestamp.
	Range(ctx context.Context, symbol, source string, q RangeQuery) ([]domain.PriceRecord, error)

	// Statistics aggregates one commodity across all sources.
	Statistics(ctx context.Context, symbol string, start, end *time.Time) (*Statistics, error)

	// EnsureCommodity idempotently creates the reference row, returning its
	// surrogate identifier.
	EnsureCommodity(ctx context.Context, symbol, name string) (int64, error)

	// EnsureSource idempotently creates the reference row, returning its
	// surrogate identifier.
	EnsureSource(ctx context.Context, name string) (int64, error)

	// Ping verifies connectivity for health checks.
	Ping(ctx context.Context) error
}
