// Package tracing provides OpenTelemetry span helpers for the long-running
// operations in hikecore: graph builds and A* searches. The core never
// dials a collector itself — embedding applications call Configure, and
// spans opened through these helpers go to whatever provider is
// installed, defaulting to a no-op tracer. pkg/graph and pkg/routing do
// not call these helpers.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName identifies this package's spans in a trace backend.
	TracerName = "github.com/hherb/hikecore"
)

// Tracer is the package-wide tracer. It defaults to a no-op implementation
// so the core has zero tracing overhead until an embedder opts in.
var Tracer trace.Tracer = noop.NewTracerProvider().Tracer(TracerName)

// Configure points the package at a caller-supplied TracerProvider, e.g.
// one wired to an OTLP exporter by the embedding application.
func Configure(tp trace.TracerProvider) {
	Tracer = tp.Tracer(TracerName)
}

// StartSpan starts a new span under the package tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer.Start(ctx, name, opts...)
}

// RecordError records an error on the span carried by ctx, if any.
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if span != nil && span.IsRecording() {
		span.RecordError(err, opts...)
	}
}

// SetStatus sets the status of the span carried by ctx, if any.
func SetStatus(ctx context.Context, code codes.Code, description string) {
	span := trace.SpanFromContext(ctx)
	if span != nil && span.IsRecording() {
		span.SetStatus(code, description)
	}
}

// AddEvent adds an event to the span carried by ctx, if any.
func AddEvent(ctx context.Context, name string, opts ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if span != nil && span.IsRecording() {
		span.AddEvent(name, opts...)
	}
}

// SetAttributes sets attributes on the span carried by ctx, if any.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span != nil && span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}
