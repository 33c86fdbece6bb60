package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/rpcquery/response"
)

// Tracer starts and ends spans for operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span for the operation.
	StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span)

	// EndSpan records the outcome and ends the span.
	EndSpan(span trace.Span, res *response.Result, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("rpc.method", meta.Method),
		attribute.String("rpc.path", meta.Path),
		attribute.String("rpcquery.kind", meta.Kind),
	}
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("rpcquery.key", meta.Key))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, res *response.Result, err error) {
	switch {
	case err != nil:
		if re, ok := response.AsResponseError(err); ok {
			span.SetAttributes(
				attribute.Int("http.response.status_code", re.Status),
				attribute.String("rpcquery.format", string(re.Format)),
			)
		}
		span.SetAttributes(attribute.String("error.type", ErrorType(err)))
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	case res != nil:
		span.SetAttributes(
			attribute.Int("http.response.status_code", res.Status),
			attribute.String("rpcquery.format", string(res.Format)),
		)
		span.SetStatus(codes.Ok, "")
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// ErrorType classifies err for telemetry: "response" for structured server
// errors, "canceled" and "deadline" for context errors, "transport" for
// everything else, and "" for nil.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case response.IsResponseError(err):
		return "response"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline"
	default:
		return "transport"
	}
}

type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer returns a tracer whose spans record nothing.
func NewNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ *response.Result, _ error) {
	span.End()
}
