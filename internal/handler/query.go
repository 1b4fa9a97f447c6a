package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"hermannm.dev/devlog/log"

	"aasquery/backend/internal/history"
	"aasquery/backend/internal/model"
	"aasquery/backend/internal/observability"
)

const invalidJSONMessage = "Invalid JSON payload."

// QueryHandler serves POST /query. Input errors are answered in plain text
// before anything is sent upstream; auth and execution errors as {"error": ...}.
func (h *Handler) QueryHandler(c *gin.Context) {
	// The whole body must be one JSON value; trailing data is malformed input.
	var req model.QueryRequest
	body, err := c.GetRawData()
	if err != nil || json.Unmarshal(body, &req) != nil {
		c.String(http.StatusBadRequest, invalidJSONMessage)
		return
	}

	query, err := req.Validate()
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	start := h.now()
	log.Infof("executing %s query (trace %s)", query.Type, observability.TraceIDFromContext(ctx))

	rows, outcome, err := h.execute(ctx, query)
	elapsed := h.now().Sub(start)

	observability.ObserveQuery(query.Type, outcome, elapsed.Seconds(), len(rows))
	h.record(ctx, query, start, elapsed, rows, err)

	if err != nil {
		log.ErrorCause(err, "query failed")
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	log.Infof("%s query returned %d rows in %s", query.Type, len(rows), elapsed)
	c.JSON(http.StatusOK, model.QueryResponse{Rows: rows})
}

func (h *Handler) execute(
	ctx context.Context,
	query model.Query,
) ([]model.Row, observability.Outcome, error) {
	token, err := h.tokens.Token(ctx)
	if err != nil {
		return nil, observability.OutcomeAuthError, err
	}

	rows, err := h.engine.Execute(ctx, token, query.Statement)
	if err != nil {
		return nil, observability.OutcomeExecutionError, err
	}

	if rows == nil {
		rows = []model.Row{}
	}
	return rows, observability.OutcomeSuccess, nil
}

func (h *Handler) record(
	ctx context.Context,
	query model.Query,
	start time.Time,
	elapsed time.Duration,
	rows []model.Row,
	queryErr error,
) {
	if h.history == nil {
		return
	}

	entry := history.Entry{
		QueryType:  query.Type,
		Statement:  query.Statement,
		RowCount:   len(rows),
		Succeeded:  queryErr == nil,
		DurationMs: elapsed.Milliseconds(),
		ExecutedAt: start,
	}
	if queryErr != nil {
		entry.Error = queryErr.Error()
	}

	if err := h.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		log.ErrorCause(err, "failed to record query history")
	}
}

func (h *Handler) HistoryHandler(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Query history is not enabled"})
		return
	}

	limit := history.DefaultLimit
	if val := c.Query("limit"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed < 1 || parsed > history.MaxLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a number between 1 and " + strconv.Itoa(history.MaxLimit),
			})
			return
		}
		limit = parsed
	}

	entries, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		log.ErrorCause(err, "failed to list query history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
