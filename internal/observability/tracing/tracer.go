package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation name for all sitepulse spans.
const tracerName = "sitepulse"

// GetTracer returns the tracer for creating spans.
// It resolves the global provider on every call so a provider installed at
// startup (or in tests) is always honoured.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
