package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroflow/petroflow/internal/domain"
	"github.com/petroflow/petroflow/internal/errs"
	"github.com/petroflow/petroflow/internal/persistence"
)

func newMockRepo(t *testing.T) (*PriceRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPriceRepo(sqlx.NewDb(db, "postgres"), time.Second), mock
}

func ts(day int) time.Time {
	return time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestUpsertBatch(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO commodities`).
		WithArgs("WTI_CRUDE", "WTI Crude Oil").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO data_sources`).
		WithArgs("eia").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO price_data`)
	mock.ExpectExec(`INSERT INTO price_data`).
		WithArgs(ts(5), int64(1), int64(2), 74.2, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO price_data`).
		WithArgs(ts(6), int64(1), int64(2), 74.8, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := []domain.PriceRecord{
		{Timestamp: ts(5), Symbol: "WTI_CRUDE", Source: "eia", Price: 74.2},
		{Timestamp: ts(6), Symbol: "WTI_CRUDE", Source: "eia", Price: 74.8},
	}
	affected, err := repo.UpsertBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchCachesReferenceIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	// One resolution round; the second record reuses the cached IDs.
	mock.ExpectQuery(`INSERT INTO commodities`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO data_sources`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO price_data`)
	mock.ExpectExec(`INSERT INTO price_data`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO price_data`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := []domain.PriceRecord{
		{Timestamp: ts(5), Symbol: "WTI_CRUDE", Source: "eia", Price: 74.2},
		{Timestamp: ts(6), Symbol: "WTI_CRUDE", Source: "eia", Price: 74.8},
	}
	_, err := repo.UpsertBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)

	affected, err := repo.UpsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestTimestamp(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT MAX\(ts\) FROM price_data`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(ts(9)))

	latest, err := repo.LatestTimestamp(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, ts(9), *latest)
}

func TestLatestTimestampEmptyTable(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT MAX\(ts\) FROM price_data`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	latest, err := repo.LatestTimestamp(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest, "empty table reads as nil, not an error")
}

func TestLatestForNoRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT p\.ts, p\.price`).
		WithArgs("WTI_CRUDE", "eia").
		WillReturnRows(sqlmock.NewRows([]string{"ts", "price"}))

	point, err := repo.LatestFor(context.Background(), "WTI_CRUDE", "eia")
	require.NoError(t, err)
	assert.Nil(t, point)
}

func TestLatestFor(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT p\.ts, p\.price`).
		WithArgs("WTI_CRUDE", "eia").
		WillReturnRows(sqlmock.NewRows([]string{"ts", "price"}).AddRow(ts(9), 75.1))

	point, err := repo.LatestFor(context.Background(), "WTI_CRUDE", "eia")
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.Equal(t, ts(9), point.Timestamp)
	assert.Equal(t, 75.1, point.Price)
}

func TestRangeScansRecords(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"ts", "symbol", "source", "price", "volume", "open", "high", "low", "close"}).
		AddRow(ts(5), "WTI_CRUDE", "eia", 74.2, nil, nil, nil, nil, nil).
		AddRow(ts(6), "WTI_CRUDE", "eia", 74.8, nil, nil, nil, nil, nil)
	mock.ExpectQuery(`SELECT p\.ts, c\.symbol`).
		WillReturnRows(rows)

	records, err := repo.Range(context.Background(), "WTI_CRUDE", "eia",
		persistence.RangeQuery{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 74.2, records[0].Price)
	assert.Equal(t, "eia", records[1].Source)
}

func TestStatistics(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"count", "mean", "min", "max", "total_volume"}).
		AddRow(int64(20), 74.5, 70.1, 79.9, 0.0)
	mock.ExpectQuery(`SELECT COUNT\(\*\) AS count`).
		WithArgs("WTI_CRUDE", nil, nil).
		WillReturnRows(rows)

	stats, err := repo.Statistics(context.Background(), "WTI_CRUDE", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(20), stats.Count)
	assert.Equal(t, 74.5, stats.Mean)
}

func TestUpsertBatchStorageErrorTagged(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO commodities`).
		WillReturnError(context.DeadlineExceeded)

	_, err := repo.UpsertBatch(context.Background(), []domain.PriceRecord{
		{Timestamp: ts(5), Symbol: "WTI_CRUDE", Source: "eia", Price: 74.2},
	})
	require.Error(t, err)
	assert.True(t, errs.IsStorage(err))
}
