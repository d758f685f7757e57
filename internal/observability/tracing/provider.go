package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InitProvider installs a global SDK tracer provider sampling the given
// ratio of new traces (parent decisions are respected) and the W3C trace
// context propagator. Extra options such as span processors are appended.
//
// The returned function flushes and stops the provider.
func InitProvider(sampleRatio float64, opts ...sdktrace.TracerProviderOption) func(context.Context) error {
	options := append([]sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	}, opts...)

	tp := sdktrace.NewTracerProvider(options...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}
