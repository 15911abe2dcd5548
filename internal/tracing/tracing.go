// Package tracing configures the OpenTelemetry tracer provider. Until Init is
// called spans go to the global no-op provider.
package tracing

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"stockwatch/internal/adapters/config"
	"stockwatch/pkg/errors"
)

const instrumentation = "stockwatch"

// Init installs a batching stdout exporter. It returns a shutdown func that
// flushes pending spans; with tracing disabled the func is a no-op.
func Init(ctx context.Context, app config.AppConfig, cfg config.TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	return install(ctx, app, cfg.Pretty, os.Stdout)
}

func install(ctx context.Context, app config.AppConfig, pretty bool, w io.Writer) (func(context.Context) error, error) {
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create stdout trace exporter")
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", app.Name),
		attribute.String("service.version", app.Version),
		attribute.String("deployment.environment", app.Env),
	))
	if err != nil {
		return nil, errors.Wrap(err, "build trace resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// StartSpan starts a span on the global provider
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentation).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on the span, if any, and ends it
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceID returns the active trace id for log correlation, or "" outside a sampled span
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
