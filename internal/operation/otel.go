package operation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "stegoctl.operation"

// Tracer provides OpenTelemetry spans around operation execution.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer backed by the global provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartOperation opens the span covering one operation's flight.
func (t *Tracer) StartOperation(ctx context.Context, id string, req Request) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("operation.execute.%s", req.Kind)
	return t.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("operation.id", id),
			attribute.String("operation.kind", string(req.Kind)),
			attribute.String("operation.method", string(req.Method)),
		),
	)
}

// EndOperation records the terminal state on the span and closes it.
func (t *Tracer) EndOperation(span trace.Span, status Status, err error) {
	span.SetAttributes(attribute.String("operation.status", string(status)))
	switch status {
	case StatusSucceeded:
		span.SetStatus(codes.Ok, "")
	case StatusCancelled:
		// Cancellation is a legitimate outcome, not an error.
		span.SetStatus(codes.Unset, "")
	default:
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
