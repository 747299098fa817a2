package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ajitpratap0/nebula-orm/pkg/config"
	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
)

// Exporter names accepted in ObservabilityConfig.TracingExporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// ShutdownFunc flushes and stops a tracer provider.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// InitTracing installs a global tracer provider according to cfg. When
// tracing is disabled the global no-op provider is left in place. Spans of
// the stdout exporter are written to w, or to os.Stdout when w is nil.
func InitTracing(ctx context.Context, cfg config.ObservabilityConfig, w io.Writer) (ShutdownFunc, error) {
	if !cfg.EnableTracing {
		return noopShutdown, nil
	}

	var exporter sdktrace.SpanExporter
	switch cfg.TracingExporter {
	case ExporterNone, "":
		return noopShutdown, nil
	case ExporterStdout:
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "unknown tracing exporter").
			WithDetail("key", "tracing_exporter").
			WithDetail("value", cfg.TracingExporter)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = TracerName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
