package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"aasquery/backend/internal/model"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aasquery_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aasquery_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aasquery_queries_total",
			Help: "Dispatched queries by type and outcome.",
		},
		[]string{"query_type", "outcome"},
	)

	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aasquery_query_duration_seconds",
			Help:    "Time from token request to materialized rows.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"query_type"},
	)

	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aasquery_query_rows_returned",
			Help:    "Rows returned by successful queries.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)

type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeAuthError      Outcome = "auth_error"
	OutcomeExecutionError Outcome = "execution_error"
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		queriesTotal,
		queryDurationSeconds,
		queryRowsReturned,
	)
}

func ObserveQuery(queryType model.QueryType, outcome Outcome, seconds float64, rows int) {
	queriesTotal.WithLabelValues(queryType.String(), string(outcome)).Inc()
	queryDurationSeconds.WithLabelValues(queryType.String()).Observe(seconds)
	if outcome == OutcomeSuccess {
		queryRowsReturned.Observe(float64(rows))
	}
}
