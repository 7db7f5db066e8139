// Package postgres implements the persistence contract on PostgreSQL
// (TimescaleDB-compatible). All writes go through upserts on the natural key
// so replays are idempotent.
package postgres

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/petroflow/petroflow/internal/domain"
	"github.com/petroflow/petroflow/internal/errs"
	"github.com/petroflow/petroflow/internal/persistence"
)

const defaultQueryTimeout = 15 * time.Second

// PriceRepo is the sqlx-backed implementation of persistence.PriceRepo.
type PriceRepo struct {
	db      *sqlx.DB
	timeout time.Duration

	mu           sync.Mutex
	commodityIDs map[string]int64
	sourceIDs    map[string]int64
}

// Connect opens the database and verifies connectivity.
func Connect(dsn string) (*PriceRepo, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, "postgres.connect", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewPriceRepo(db, 0), nil
}

// NewPriceRepo wraps an existing connection pool. A non-positive timeout
// falls back to the default.
func NewPriceRepo(db *sqlx.DB, timeout time.Duration) *PriceRepo {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &PriceRepo{
		db:           db,
		timeout:      timeout,
		commodityIDs: make(map[string]int64),
		sourceIDs:    make(map[string]int64),
	}
}

// UpsertBatch inserts the batch in one transaction; conflicting rows on
// (ts, commodity_id, source_id) have every value column overwritten. The
// whole batch commits or none of it does.
func (r *PriceRepo) UpsertBatch(ctx context.Context, batch []domain.PriceRecord) (int64, error) {
	const op = "postgres.upsert_batch"
	if len(batch) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(batch)/500+1))
	defer cancel()

	// Resolve reference IDs before opening the write transaction so the
	// upsert does not hold the connection across reference churn.
	type resolved struct {
		rec         domain.PriceRecord
		commodityID int64
		sourceID    int64
	}
	rows := make([]resolved, 0, len(batch))
	for _, rec := range batch {
		commodityID, err := r.EnsureCommodity(ctx, rec.Symbol, domain.CommodityName(rec.Symbol))
		if err != nil {
			return 0, err
		}
		sourceID, err := r.EnsureSource(ctx, rec.Source)
		if err != nil {
			return 0, err
		}
		rows = append(rows, resolved{rec: rec, commodityID: commodityID, sourceID: sourceID})
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errs.Wrap(errs.KindStorage, op, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_data (ts, commodity_id, source_id, price, volume, open, high, low, close)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ts, commodity_id, source_id) DO UPDATE SET
			price = EXCLUDED.price,
			volume = EXCLUDED.volume,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close`)
	if err != nil {
		return 0, errs.Wrap(errs.KindStorage, op, err)
	}
	defer stmt.Close()

	var affected int64
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx,
			row.rec.Timestamp.UTC(), row.commodityID, row.sourceID,
			row.rec.Price, row.rec.Volume,
			row.rec.Open, row.rec.High, row.rec.Low, row.rec.Close)
		if err != nil {
			return 0, classify(op, err)
		}
		n, _ := res.RowsAffected()
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, errs.Wrap(errs.KindStorage, op, err)
	}
	return affected, nil
}

// LatestTimestamp returns the global max timestamp across all rows.
func (r *PriceRepo) LatestTimestamp(ctx context.Context) (*time.Time, error) {
	const op = "postgres.latest_timestamp"
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var ts sql.NullTime
	err := r.db.QueryRowxContext(ctx, `SELECT MAX(ts) FROM price_data`).Scan(&ts)
	if err != nil {
		return nil, classify(op, err)
	}
	if !ts.Valid {
		return nil, nil
	}
	utc := ts.Time.UTC()
	return &utc, nil
}

// LatestFor returns the newest stored point for one (commodity, source) pair.
func (r *PriceRepo) LatestFor(ctx context.Context, symbol, source string) (*persistence.LatestPoint, error) {
	const op = "postgres.latest_for"
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var point persistence.LatestPoint
	err := r.db.QueryRowxContext(ctx, `
		SELECT p.ts, p.price
		FROM price_data p
		JOIN commodities c ON c.id = p.commodity_id
		JOIN data_sources s ON s.id = p.source_id
		WHERE c.symbol = $1 AND s.name = $2
		ORDER BY p.ts DESC
		LIMIT 1`, symbol, source).StructScan(&point)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}
	point.Timestamp = point.Timestamp.UTC()
	return &point, nil
}

// Range returns rows for one pair ascending by timestamp.
func (r *PriceRepo) Range(ctx context.Context, symbol, source string, q persistence.RangeQuery) ([]domain.PriceRecord, error) {
	const op = "postgres.range"
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT p.ts, c.symbol, s.name AS source, p.price, p.volume, p.open, p.high, p.low, p.close
		FROM price_data p
		JOIN commodities c ON c.id = p.commodity_id
		JOIN data_sources s ON s.id = p.source_id
		WHERE c.symbol = $1 AND s.name = $2
		  AND ($3::timestamptz IS NULL OR p.ts >= $3)
		  AND ($4::timestamptz IS NULL OR p.ts <= $4)
		ORDER BY p.ts ASC`
	args := []interface{}{symbol, source, q.Start, q.End}
	if q.Limit > 0 {
		query += ` LIMIT $5`
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	var records []domain.PriceRecord
	for rows.Next() {
		var rec domain.PriceRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, classify(op, err)
		}
		rec.Timestamp = rec.Timestamp.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return records, nil
}

// Statistics aggregates one commodity across all sources.
func (r *PriceRepo) Statistics(ctx context.Context, symbol string, start, end *time.Time) (*persistence.Statistics, error) {
	const op = "postgres.statistics"
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stats persistence.Statistics
	err := r.db.QueryRowxContext(ctx, `
		SELECT COUNT(*) AS count,
		       COALESCE(AVG(p.price), 0) AS mean,
		       COALESCE(MIN(p.price), 0) AS min,
		       COALESCE(MAX(p.price), 0) AS max,
		       COALESCE(SUM(p.volume), 0) AS total_volume
		FROM price_data p
		JOIN commodities c ON c.id = p.commodity_id
		WHERE c.symbol = $1
		  AND ($2::timestamptz IS NULL OR p.ts >= $2)
		  AND ($3::timestamptz IS NULL OR p.ts <= $3)`,
		symbol, start, end).StructScan(&stats)
	if err != nil {
		return nil, classify(op, err)
	}
	return &stats, nil
}

// EnsureCommodity creates the reference row on first sighting and returns
// its surrogate identifier. IDs are cached per repo instance.
func (r *PriceRepo) EnsureCommodity(ctx context.Context, symbol, name string) (int64, error) {
	const op = "postgres.ensure_commodity"

	r.mu.Lock()
	if id, ok := r.commodityIDs[symbol]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO commodities (symbol, name)
		VALUES ($1, $2)
		ON CONFLICT (symbol) DO UPDATE SET symbol = EXCLUDED.symbol
		RETURNING id`, symbol, name).Scan(&id)
	if err != nil {
		return 0, classify(op, err)
	}

	r.mu.Lock()
	r.commodityIDs[symbol] = id
	r.mu.Unlock()
	return id, nil
}

// EnsureSource creates the reference row on first sighting and returns its
// surrogate identifier.
func (r *PriceRepo) EnsureSource(ctx context.Context, name string) (int64, error) {
	const op = "postgres.ensure_source"

	r.mu.Lock()
	if id, ok := r.sourceIDs[name]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO data_sources (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, classify(op, err)
	}

	r.mu.Lock()
	r.sourceIDs[name] = id
	r.mu.Unlock()
	return id, nil
}

// Ping verifies connectivity for health checks.
func (r *PriceRepo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return errs.Wrap(errs.KindStorage, "postgres.ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *PriceRepo) Close() error {
	return r.db.Close()
}

// classify tags database errors with storage context, keeping the pq error
// code visible in the chain.
func classify(op string, err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		return errs.Wrapf(errs.KindStorage, op, err, "pq code %s", pqErr.Code)
	}
	return errs.Wrap(errs.KindStorage, op, err)
}
