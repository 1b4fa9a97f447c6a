package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) string {
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestQueryCommandPrintsRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"rows":[{"Name":"Bike"}]}`)
	}))
	defer server.Close()

	out := runCommand(t, "query", "--url", server.URL, "EVALUATE 'Product'")
	assert.Contains(t, out, `"row_count": 1`)
	assert.Contains(t, out, `"Name": "Bike"`)
}

func TestQueryCommandPrintsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"failed to execute query: syntax error"}`)
	}))
	defer server.Close()

	out := runCommand(t, "query", "--url", server.URL, "--type", "mdx", "SELECT")
	assert.Equal(t, "Query failed: HTTP error 400: failed to execute query: syntax error\n", out)
}

func TestQueryCommandRejectsUnknownType(t *testing.T) {
	root := newRootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"query", "--type", "SQL", "SELECT 1"})

	assert.Error(t, root.Execute())
}

func TestRootCommandRegistersMCPServer(t *testing.T) {
	mcpCommand, _, err := newRootCommand().Find([]string{"mcp"})
	require.NoError(t, err)
	assert.Equal(t, "mcp", mcpCommand.Name())

	url := mcpCommand.Flags().Lookup("url")
	require.NotNil(t, url)
	assert.Equal(t, defaultServiceURL(), url.DefValue)
}

func TestDefaultServiceURLFromEnv(t *testing.T) {
	t.Setenv("AASQUERY_URL", "http://aasquery.internal/query")
	assert.Equal(t, "http://aasquery.internal/query", defaultServiceURL())
}
