package monitoring

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogExporter writes finished spans to the structured log.
type LogExporter struct {
	entry *log.Entry
}

func NewLogExporter(entry *log.Entry) *LogExporter {
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	return &LogExporter{entry: entry}
}

func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		fields := log.Fields{
			"span":        span.Name(),
			"trace_id":    span.SpanContext().TraceID().String(),
			"span_id":     span.SpanContext().SpanID().String(),
			"duration_ms": span.EndTime().Sub(span.StartTime()).Milliseconds(),
		}
		for _, kv := range span.Attributes() {
			fields[string(kv.Key)] = kv.Value.Emit()
		}

		entry := e.entry.WithFields(fields)
		if span.Status().Code == codes.Error {
			entry.WithField("status", span.Status().Description).Warn("span")
			continue
		}
		entry.Debug("span")
	}
	return nil
}

func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}

// InstallTracing makes a batching provider that logs spans the global one.
// The returned func flushes and stops it.
func InstallTracing(serviceName string) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(NewLogExporter(log.WithField("service", serviceName))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
