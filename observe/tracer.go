package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CallMeta identifies a gateway call for telemetry purposes.
type CallMeta struct {
	Operation string // operation name (required)
	Namespace string // operation namespace, e.g. "dns" (may be empty)
	Customer  string // validated customer ID the call runs as (may be empty)
}

// SpanName returns the deterministic span name for the call.
// Format: edge.call.<namespace>.<operation> or edge.call.<operation>
func (m CallMeta) SpanName() string {
	return "edge.call." + m.Qualified()
}

// UpstreamSpanName returns the span name for the upstream fetch leg of the
// call. Cache hits and coalesced joins never produce this span.
func (m CallMeta) UpstreamSpanName() string {
	return "edge.upstream." + m.Qualified()
}

// Qualified returns the namespace-qualified operation name.
func (m CallMeta) Qualified() string {
	if m.Namespace != "" {
		return m.Namespace + "." + m.Operation
	}
	return m.Operation
}

// Validate checks that the metadata can name a span.
func (m CallMeta) Validate() error {
	if m.Operation == "" {
		return ErrMissingOperation
	}
	return nil
}

// attributes returns the call identity as span/metric attributes.
func (m CallMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("call.operation", m.Operation),
	}
	if m.Namespace != "" {
		attrs = append(attrs, attribute.String("call.namespace", m.Namespace))
	}
	if m.Customer != "" {
		attrs = append(attrs, attribute.String("call.customer", m.Customer))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with call-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan derives the returned context from the one given.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts the outer span covering the whole call, whether it is
	// served from cache, joined in flight, or fetched upstream.
	StartSpan(ctx context.Context, call CallMeta) (context.Context, trace.Span)

	// StartUpstreamSpan starts the nested span covering only the upstream
	// fetch. It should be started from a context carrying the outer span.
	StartUpstreamSpan(ctx context.Context, call CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

var _ Tracer = (*tracerImpl)(nil)

// NewTracer wraps the given OpenTelemetry tracer. Wrapping a no-op tracer
// yields a no-op Tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, call CallMeta) (context.Context, trace.Span) {
	attrs := append(call.attributes(), attribute.Bool("call.error", false))
	return t.tracer.Start(ctx, call.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) StartUpstreamSpan(ctx context.Context, call CallMeta) (context.Context, trace.Span) {
	attrs := append(call.attributes(), attribute.Bool("call.error", false))
	// The upstream leg is an outbound API request.
	return t.tracer.Start(ctx, call.UpstreamSpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("call.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
