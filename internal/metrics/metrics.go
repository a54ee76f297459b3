// Package metrics holds the Prometheus collectors shared by the API and the worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutoring_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tutoring_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutoring_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutoring_cache_lookups_total",
		Help: "Read-cache lookups by entity and result (hit, miss, error).",
	}, []string{"entity", "result"})

	DashboardBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutoring_dashboard_builds_total",
		Help: "Combined dashboard aggregates served, by viewer role.",
	}, []string{"role"})

	ChangesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutoring_worker_changes_total",
		Help: "Change events handled by the worker, by entity and outcome.",
	}, []string{"entity", "outcome"})

	NoticesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutoring_worker_notices_swept_total",
		Help: "Expired notices deleted by the worker.",
	})
)
