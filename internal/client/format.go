package client

import (
	"encoding/json"
	"errors"

	"aasquery/backend/internal/model"
)

const noRowsMessage = "Query executed successfully but returned no rows."

type formattedResult struct {
	RowCount int         `json:"row_count"`
	Rows     []model.Row `json:"rows"`
}

// FormatResult renders a query outcome as text for a human or a tool-calling
// agent.
func FormatResult(rows []model.Row, err error) string {
	if err != nil {
		var respErr *ResponseError
		if errors.As(err, &respErr) {
			return "Query failed: " + respErr.Error()
		}
		return "Error: " + err.Error()
	}

	if len(rows) == 0 {
		return noRowsMessage
	}

	data, err := json.MarshalIndent(formattedResult{RowCount: len(rows), Rows: rows}, "", "  ")
	if err != nil {
		return "Error: " + err.Error()
	}
	return string(data)
}
