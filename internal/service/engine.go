package service

import (
	"context"

	"aasquery/backend/internal/model"
)

// QueryEngine runs a DAX or MDX statement against the analytical server,
// authenticating with the given bearer token.
type QueryEngine interface {
	Execute(ctx context.Context, token string, statement string) ([]model.Row, error)
}

// ExecutionError covers every failure after a token was acquired: cluster
// resolution, connectivity, permissions and query errors reported by the server.
type ExecutionError struct {
	Err error
}

func (err *ExecutionError) Error() string {
	return "failed to execute query: " + err.Err.Error()
}

func (err *ExecutionError) Unwrap() error {
	return err.Err
}
