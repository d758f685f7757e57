// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created for every request served by the relay agent, every batch
// flush and every outbound call made through the resilient client. No exporter
// is installed by default; the global no-op provider applies until one is set.
//
// Example usage:
//
//	import "sitepulse/internal/observability/tracing"
//
//	handler := tracing.Middleware(mux)
//
//	func flush(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "track.Flush")
//	    defer span.End()
//	}
package tracing
