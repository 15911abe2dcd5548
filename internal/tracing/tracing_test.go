package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"stockwatch/internal/adapters/config"
	"stockwatch/pkg/errors"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), config.AppConfig{}, config.TracingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInstall_WritesSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := install(context.Background(), config.AppConfig{Name: "stockwatch", Version: "test"}, false, &buf)
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "unit")
	assert.NotEmpty(t, TraceID(ctx))
	End(span, nil)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"unit"`)
}

func TestEnd_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "failing")
	End(span, errors.ErrDataUnavailable)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "failing", spans[0].Name())
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
