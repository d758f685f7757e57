// Package observability groups the logging, metrics and tracing infrastructure
// shared by the batcher, the resilient client and the relay agent.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry tracer and HTTP middleware
//   - slo: Delivery service level objectives
package observability
