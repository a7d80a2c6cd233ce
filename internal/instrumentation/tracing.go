package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type TracingHelper struct {
	tracer trace.Tracer
}

func NewTracingHelper(tracer trace.Tracer) *TracingHelper {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &TracingHelper{
		tracer: tracer,
	}
}

// StartSpan starts a new span with optional attributes
func (t *TracingHelper) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetTraceID returns the trace ID from the given context
func (t *TracingHelper) GetTraceID(ctx context.Context) trace.TraceID {
	return trace.SpanContextFromContext(ctx).TraceID()
}
