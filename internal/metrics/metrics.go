package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteflow_http_requests_total",
		Help: "HTTP requests served, by method, route and status.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voteflow_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteflow_upstream_requests_total",
		Help: "Calls to the VoteFlow API, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteflow_import_rows_total",
		Help: "Rows processed by bulk import, by result.",
	}, []string{"result"})

	ImportSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voteflow_import_sessions_active",
		Help: "Import sessions currently held in memory.",
	})

	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteflow_payments_total",
		Help: "Payment attempts, by outcome.",
	}, []string{"outcome"})
)
