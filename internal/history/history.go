package history

import (
	"context"
	"time"

	"aasquery/backend/internal/model"
)

// Entry is one dispatched query. Requests rejected during validation are not
// recorded.
type Entry struct {
	ID         int64           `json:"id"`
	QueryType  model.QueryType `json:"queryType"`
	Statement  string          `json:"statement"`
	RowCount   int             `json:"rowCount"`
	Succeeded  bool            `json:"succeeded"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"durationMs"`
	ExecutedAt time.Time       `json:"executedAt"`
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)
