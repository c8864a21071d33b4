// Package telemetry exposes the OpenTelemetry tracer used across the
// client. Span export is wired by whoever embeds the client; with no SDK
// configured the tracer is a no-op.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/openclaw/cockpit"

// Tracer returns the shared tracer handle.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span with string attributes.
func StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, name)
	for k, v := range attrs {
		span.SetAttributes(attribute.String(k, v))
	}
	return ctx, span
}

// EndSpan ends a span, recording the error if any.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
