package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aasquery/backend/internal/config"
)

type fakeAnalysisServer struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	xmlaRequests []string

	resolveStatus int
	executeStatus int
	executeBody   string
}

func newFakeAnalysisServer(t *testing.T) *fakeAnalysisServer {
	fake := &fakeAnalysisServer{
		t:             t,
		resolveStatus: http.StatusOK,
		executeStatus: http.StatusOK,
		executeBody:   productRowset,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webapi/clusterResolve", fake.clusterResolve)
	mux.HandleFunc("/webapi/xmla", fake.xmla)
	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)

	return fake
}

func (fake *fakeAnalysisServer) host() string {
	return strings.TrimPrefix(fake.server.URL, "http://")
}

func (fake *fakeAnalysisServer) clusterResolve(w http.ResponseWriter, r *http.Request) {
	assert.Equal(fake.t, http.MethodPost, r.Method)
	assert.Equal(fake.t, "Bearer token-123", r.Header.Get("Authorization"))

	var body map[string]string
	assert.NoError(fake.t, json.NewDecoder(r.Body).Decode(&body))
	assert.Equal(fake.t, "adventureworks", body["serverName"])

	if fake.resolveStatus != http.StatusOK {
		w.WriteHeader(fake.resolveStatus)
		_, _ = io.WriteString(w, "Authentication failed.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"clusterFQDN":    fake.host(),
		"coreServerName": "adventureworks:rw",
		"tenantId":       "tenant",
	})
}

func (fake *fakeAnalysisServer) xmla(w http.ResponseWriter, r *http.Request) {
	assert.Equal(fake.t, "Bearer token-123", r.Header.Get("Authorization"))
	assert.Equal(fake.t, "adventureworks:rw", r.Header.Get("x-ms-xmlaserver"))
	assert.Equal(fake.t, executeSOAPAction, r.Header.Get("SOAPAction"))

	body, err := io.ReadAll(r.Body)
	assert.NoError(fake.t, err)

	fake.mu.Lock()
	fake.xmlaRequests = append(fake.xmlaRequests, string(body))
	fake.mu.Unlock()

	w.Header().Set("Content-Type", "text/xml")
	switch {
	case strings.Contains(string(body), "BeginSession"), strings.Contains(string(body), "EndSession"):
		_, _ = io.WriteString(w, emptyResponse)
	default:
		w.WriteHeader(fake.executeStatus)
		_, _ = io.WriteString(w, fake.executeBody)
	}
}

func (fake *fakeAnalysisServer) requests() []string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return append([]string(nil), fake.xmlaRequests...)
}

func (fake *fakeAnalysisServer) client() *AnalysisServicesClient {
	return NewAnalysisServicesClient(
		config.AnalysisServices{
			RegionHost: fake.host(),
			ServerName: "adventureworks",
			Database:   "adventureworks",
		},
		WithScheme("http"),
		WithHTTPClient(fake.server.Client()),
	)
}

func TestExecuteReturnsRowsAndEndsSession(t *testing.T) {
	fake := newFakeAnalysisServer(t)

	rows, err := fake.client().Execute(context.Background(), "token-123", "EVALUATE 'Product'")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	requests := fake.requests()
	require.Len(t, requests, 3)
	assert.Contains(t, requests[0], "BeginSession")
	assert.Contains(t, requests[1], `SessionId="session-1"`)
	assert.Contains(t, requests[1], "EVALUATE &#39;Product&#39;")
	assert.Contains(t, requests[2], "EndSession")
}

func TestExecuteEndsSessionOnQueryFault(t *testing.T) {
	fake := newFakeAnalysisServer(t)
	fake.executeStatus = http.StatusInternalServerError
	fake.executeBody = faultResponse

	_, err := fake.client().Execute(context.Background(), "token-123", "EVALUATE Product")
	require.Error(t, err)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Contains(t, err.Error(), "The syntax for 'Product' is incorrect.")

	requests := fake.requests()
	require.Len(t, requests, 3)
	assert.Contains(t, requests[2], "EndSession")
}

func TestExecuteReportsServerStatusWithoutFault(t *testing.T) {
	fake := newFakeAnalysisServer(t)
	fake.executeStatus = http.StatusInternalServerError
	fake.executeBody = "<html>gateway error</html>"

	_, err := fake.client().Execute(context.Background(), "token-123", "EVALUATE 'Product'")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestExecuteFailsWhenClusterCannotBeResolved(t *testing.T) {
	fake := newFakeAnalysisServer(t)
	fake.resolveStatus = http.StatusUnauthorized

	_, err := fake.client().Execute(context.Background(), "token-123", "EVALUATE 'Product'")
	require.Error(t, err)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, err.Error(), "Authentication failed.")
	assert.Empty(t, fake.requests())
}

func TestExecuteEmptyResultIsNotNil(t *testing.T) {
	fake := newFakeAnalysisServer(t)
	fake.executeBody = emptyResponse

	rows, err := fake.client().Execute(context.Background(), "token-123", "EVALUATE FILTER('Product', FALSE())")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
