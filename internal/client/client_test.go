package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aasquery/backend/internal/model"
)

func TestQuerySendsRequestAndDecodesRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "EVALUATE 'Product'", body["query"])
		assert.Equal(t, "MDX", body["queryType"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"rows":[{"Name":"Bike","Price":12.5,"Color":null}]}`)
	}))
	defer server.Close()

	rows, err := New(server.URL, server.Client()).Query(context.Background(), "MDX", "EVALUATE 'Product'")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, []string{"Name", "Price", "Color"}, rows[0].Columns())
	price, _ := rows[0].Get("price")
	assert.True(t, price.Equal(model.Float(12.5)))
}

func TestQueryOmitsEmptyQueryType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, present := body["queryType"]
		assert.False(t, present)
		_, _ = io.WriteString(w, `{"rows":[]}`)
	}))
	defer server.Close()

	rows, err := New(server.URL, server.Client()).Query(context.Background(), "", "EVALUATE x")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name            string
		contentType     string
		body            string
		expectedMessage string
	}{
		{
			name:            "json error",
			contentType:     "application/json",
			body:            `{"error":"failed to execute query: syntax error"}`,
			expectedMessage: "failed to execute query: syntax error",
		},
		{
			name:            "plain text error",
			contentType:     "text/plain",
			body:            "Request must include 'query'.",
			expectedMessage: "Request must include 'query'.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer server.Close()

			_, err := New(server.URL, server.Client()).Query(context.Background(), "DAX", "EVALUATE x")

			var respErr *ResponseError
			require.True(t, errors.As(err, &respErr))
			assert.Equal(t, http.StatusBadRequest, respErr.StatusCode)
			assert.Equal(t, tc.expectedMessage, respErr.Message)
			assert.Equal(t, "Query failed: HTTP error 400: "+tc.expectedMessage, FormatResult(nil, err))
		})
	}
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, noRowsMessage, FormatResult([]model.Row{}, nil))
	assert.Equal(t, "Error: connection refused", FormatResult(nil, errors.New("connection refused")))

	row := model.NewRow(2)
	row.Set("Name", model.String("Bike"))
	row.Set("Color", model.Null())

	expected := `{
  "row_count": 1,
  "rows": [
    {
      "Name": "Bike",
      "Color": null
    }
  ]
}`
	assert.Equal(t, expected, FormatResult([]model.Row{*row}, nil))
}
