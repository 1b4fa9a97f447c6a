package history

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aasquery/backend/internal/model"
)

func newMockRecorder(t *testing.T) (*PostgresRecorder, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRecorder(db), mock
}

func TestRecord(t *testing.T) {
	recorder, mock := newMockRecorder(t)
	executedAt := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO query_history")).
		WithArgs("MDX", "SELECT FROM [Model]", 3, true, "", int64(120), executedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := recorder.Record(context.Background(), Entry{
		QueryType:  model.QueryTypeMDX,
		Statement:  "SELECT FROM [Model]",
		RowCount:   3,
		Succeeded:  true,
		DurationMs: 120,
		ExecutedAt: executedAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordError(t *testing.T) {
	recorder, mock := newMockRecorder(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO query_history")).
		WillReturnError(errors.New("connection reset"))

	err := recorder.Record(context.Background(), Entry{QueryType: model.QueryTypeDAX, ExecutedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRecent(t *testing.T) {
	recorder, mock := newMockRecorder(t)
	executedAt := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "query_type", "statement", "row_count", "succeeded", "error", "duration_ms", "executed_at",
	}).
		AddRow(2, "DAX", "EVALUATE 'Product'", 0, false, "syntax error", 15, executedAt).
		AddRow(1, "MDX", "SELECT FROM [Model]", 3, true, "", 120, executedAt.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("FROM query_history")).
		WithArgs(10).
		WillReturnRows(rows)

	entries, err := recorder.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(2), entries[0].ID)
	assert.Equal(t, model.QueryTypeDAX, entries[0].QueryType)
	assert.False(t, entries[0].Succeeded)
	assert.Equal(t, "syntax error", entries[0].Error)
	assert.Equal(t, model.QueryTypeMDX, entries[1].QueryType)
	assert.Equal(t, int64(120), entries[1].DurationMs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentEmpty(t *testing.T) {
	recorder, mock := newMockRecorder(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM query_history")).
		WithArgs(DefaultLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	entries, err := recorder.Recent(context.Background(), DefaultLimit)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestEnsureSchema(t *testing.T) {
	recorder, mock := newMockRecorder(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS query_history")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, recorder.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
