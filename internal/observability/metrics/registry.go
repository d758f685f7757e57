// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track requests served by the relay agent
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)
)

// Outbound metrics track calls made through the resilient client
var (
	// FetchAttemptsTotal counts single HTTP attempts by dependency and result
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_attempts_total",
			Help: "Total number of outbound HTTP attempts",
		},
		[]string{"dependency", "result"}, // result: success, client_error, server_error, rate_limited, network_error
	)

	// FetchDuration measures the duration of a complete call including retries
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_duration_seconds",
			Help:    "Outbound call duration in seconds, including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"dependency"},
	)

	// FetchFallbackTotal counts calls answered with fallback data
	FetchFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_fallback_total",
			Help: "Total number of calls that returned fallback data",
		},
		[]string{"dependency", "reason"}, // reason: circuit_open, exhausted, error
	)
)

// Live metrics poller
var (
	// LiveMetricsRefreshTotal counts snapshot refreshes by source
	LiveMetricsRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_metrics_refresh_total",
			Help: "Total number of live metrics refreshes",
		},
		[]string{"source"}, // source: live, cache
	)

	// LiveMetricsLastSuccess records the unix time of the last live snapshot
	LiveMetricsLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_metrics_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful live metrics refresh",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
}
