package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// MethodMeta contains metadata about a method for telemetry purposes.
type MethodMeta struct {
	OwnerID string // Owning client id (optional)
	Verb    string // Request verb (required)
	URL     string // Full target URL
	Name    string // Snapshot name (optional)
	Key     string // Identity key (optional)
}

// Label returns the name if present, else the URL.
func (m MethodMeta) Label() string {
	if m.Name != "" {
		return m.Name
	}
	return m.URL
}

// SpanName returns the deterministic span name for this method.
// Format: request.<VERB>.<name|url>
func (m MethodMeta) SpanName() string {
	return "request." + m.Verb + "." + m.Label()
}

func (m MethodMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("method.verb", m.Verb),
		attribute.String("method.label", m.Label()),
	}
	if m.Name != "" {
		attrs = append(attrs, attribute.String("method.name", m.Name))
	}
	if m.OwnerID != "" {
		attrs = append(attrs, attribute.String("method.owner", m.OwnerID))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with method-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a transport call.
	StartSpan(ctx context.Context, meta MethodMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with method metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta MethodMeta) (context.Context, trace.Span) {
	attrs := meta.attributes()
	attrs = append(attrs, attribute.Bool("method.error", false))
	if meta.URL != "" {
		attrs = append(attrs, attribute.String("url.full", meta.URL))
	}
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("method.key", meta.Key))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("method.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta MethodMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
