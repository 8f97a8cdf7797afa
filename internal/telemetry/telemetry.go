// Package telemetry installs the global OpenTelemetry tracer and meter
// providers used by the supervisor.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "launchwarden"

// Config controls Init.
type Config struct {
	Enabled bool
	Version string
	// Writer receives exported spans and metrics. Nil discards them.
	Writer io.Writer
	Logger *slog.Logger
}

// Shutdown flushes and stops the providers installed by Init.
type Shutdown func(context.Context) error

// Init initializes OpenTelemetry tracing and metrics. When disabled it
// installs nothing and returns a no-op Shutdown.
func Init(ctx context.Context, cfg Config) (Shutdown, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.Writer == nil {
		cfg.Writer = io.Discard
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tracerProvider, err := newTracerProvider(res, cfg.Writer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	meterProvider, err := newMeterProvider(res, cfg.Writer)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize meter: %w", err)
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	if cfg.Logger != nil {
		cfg.Logger.DebugContext(ctx, "OpenTelemetry initialized", "service", serviceName)
	}

	return func(ctx context.Context) error {
		// spans first so the run span lands before the final metric export
		return errors.Join(tracerProvider.Shutdown(ctx), meterProvider.Shutdown(ctx))
	}, nil
}

func newTracerProvider(res *resource.Resource, w io.Writer) (*trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
		stdouttrace.WithWriter(w),
	)
	if err != nil {
		return nil, err
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(exporter),
		trace.WithSampler(trace.AlwaysSample()),
	), nil
}

func newMeterProvider(res *resource.Resource, w io.Writer) (*metric.MeterProvider, error) {
	exporter, err := stdoutmetric.New(
		stdoutmetric.WithPrettyPrint(),
		stdoutmetric.WithWriter(w),
	)
	if err != nil {
		return nil, err
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter)),
	), nil
}
