// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regwatch_http_requests_total",
		Help: "HTTP requests processed, by path, method and status code.",
	}, []string{"path", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "regwatch_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	// SourceFetchesTotal counts upstream fetch attempts. Outcome is one of
	// ok, blocked_scheme, request_error, bad_status, parse_error.
	SourceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regwatch_source_fetches_total",
		Help: "Upstream source fetch attempts by outcome.",
	}, []string{"source", "outcome"})

	RateLimitDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regwatch_rate_limit_denials_total",
		Help: "Requests denied by the rate limiter, by endpoint.",
	}, []string{"path"})
)
