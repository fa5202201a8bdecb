package services

import (
	"context"

	"github.com/gofrs/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "taskboard/backend/internal/services"

func startSpan(ctx context.Context, name string, principal uuid.UUID) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(instrumentationName).Start(ctx, name,
		trace.WithAttributes(attribute.String("principal.id", principal.String())))
}

// endSpan tags expected failures with their kind and marks anything else
// as an error.
func endSpan(span trace.Span, err error) {
	if err != nil {
		if e, ok := AsError(err); ok {
			span.SetAttributes(attribute.String("error.kind", string(e.Kind)))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
