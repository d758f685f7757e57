// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the metrics shared across components:
//   - HTTP request metrics for the relay agent (duration, count, size)
//   - Outbound call metrics for the resilient client (attempts, duration, fallbacks)
//   - Live metrics poller refreshes
//
// Component-specific metrics (batcher queue, circuit breaker state) live next to
// their component. All metrics are registered with the Prometheus default
// registry and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "sitepulse/internal/observability/metrics"
//
//	start := time.Now()
//	err := client.Do(ctx, req, &out)
//	metrics.RecordFetchDuration("analytics", time.Since(start))
package metrics
