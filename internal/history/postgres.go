package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"hermannm.dev/wrap"

	"aasquery/backend/internal/model"
)

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS query_history (
		id          BIGSERIAL PRIMARY KEY,
		query_type  TEXT        NOT NULL,
		statement   TEXT        NOT NULL,
		row_count   INTEGER     NOT NULL,
		succeeded   BOOLEAN     NOT NULL,
		error       TEXT        NOT NULL DEFAULT '',
		duration_ms BIGINT      NOT NULL,
		executed_at TIMESTAMPTZ NOT NULL
	)
`

type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Connect opens the history database and makes sure the table exists.
func Connect(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, wrap.Error(err, "failed to open history database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrap.Error(err, "failed to reach history database")
	}

	recorder := NewPostgresRecorder(db)
	if err := recorder.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return recorder, nil
}

func (p *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createTableQuery); err != nil {
		return wrap.Error(err, "failed to create query_history table")
	}
	return nil
}

func (p *PostgresRecorder) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresRecorder) Record(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO query_history
			(query_type, statement, row_count, succeeded, error, duration_ms, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.db.ExecContext(
		ctx,
		query,
		entry.QueryType.String(),
		entry.Statement,
		entry.RowCount,
		entry.Succeeded,
		entry.Error,
		entry.DurationMs,
		entry.ExecutedAt.UTC(),
	)
	if err != nil {
		return wrap.Error(err, "failed to insert query history entry")
	}
	return nil
}

func (p *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, query_type, statement, row_count, succeeded, error, duration_ms, executed_at
		FROM query_history
		ORDER BY executed_at DESC, id DESC
		LIMIT $1
	`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, wrap.Error(err, "failed to query history")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		var queryType string
		if err := rows.Scan(
			&entry.ID,
			&queryType,
			&entry.Statement,
			&entry.RowCount,
			&entry.Succeeded,
			&entry.Error,
			&entry.DurationMs,
			&entry.ExecutedAt,
		); err != nil {
			return nil, wrap.Error(err, "failed to scan history entry")
		}

		var ok bool
		if entry.QueryType, ok = model.ParseQueryType(queryType); !ok {
			return nil, fmt.Errorf("invalid query type '%s' in history", queryType)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(err, "failed to read history rows")
	}

	return entries, nil
}
