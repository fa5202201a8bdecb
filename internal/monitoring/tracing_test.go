package monitoring

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLogExporter_WritesSpans(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(NewLogExporter(logger.WithField("service", "taskboard-test"))),
	)
	defer tp.Shutdown(context.Background())

	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "CreateBoard")
	span.SetAttributes(attribute.String("error.kind", "duplicate_title"))
	span.End()

	_, failed := tracer.Start(context.Background(), "DeleteBoard")
	failed.RecordError(errors.New("connection reset"))
	failed.SetStatus(codes.Error, "connection reset")
	failed.End()

	entries := hook.AllEntries()
	require.Len(t, entries, 2)

	assert.Equal(t, log.DebugLevel, entries[0].Level)
	assert.Equal(t, "CreateBoard", entries[0].Data["span"])
	assert.Equal(t, "duplicate_title", entries[0].Data["error.kind"])
	assert.Equal(t, "taskboard-test", entries[0].Data["service"])

	assert.Equal(t, log.WarnLevel, entries[1].Level)
	assert.Equal(t, "DeleteBoard", entries[1].Data["span"])
	assert.Equal(t, "connection reset", entries[1].Data["status"])
}
