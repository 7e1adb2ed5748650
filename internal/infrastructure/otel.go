package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	ServiceName    = "makertrends"
	ServiceVersion = "1.0.0"
	MeterName      = "makertrends"
)

// TelemetryConfig holds the run telemetry options for one command
type TelemetryConfig struct {
	Command       string
	EnableTracing bool
	EnableMetrics bool
	TracePath     string // JSON span dump, one file per command
	MetricsPath   string // Prometheus textfile
}

// Telemetry holds the providers for one pipeline run
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *RunMetrics
	Runtime        *RuntimeMetrics
	Registry       *prometheus.Registry

	cfg       TelemetryConfig
	traceFile *os.File
	logger    *slog.Logger
	started   time.Time
}

// InitializeTelemetry sets up tracing and metrics for a batch run. Disabled
// parts fall back to no-op implementations so callers never nil-check.
func InitializeTelemetry(ctx context.Context, cfg TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	res, err := createResource(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{
		cfg:     cfg,
		logger:  logger,
		started: time.Now(),
		Tracer:  noop.NewTracerProvider().Tracer(MeterName),
	}

	if cfg.EnableTracing {
		if err := t.initializeTracing(res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if err := t.initializeMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.InfoContext(ctx, "Telemetry initialized",
		slog.String("command", cfg.Command),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return t, nil
}

// createResource creates the OpenTelemetry resource
func createResource(command string) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("makertrends.command", command),
	), nil
}

// initializeTracing writes finished spans as JSON to the trace file
func (t *Telemetry) initializeTracing(res *resource.Resource) error {
	var out io.Writer = io.Discard
	if t.cfg.TracePath != "" {
		if err := os.MkdirAll(filepath.Dir(t.cfg.TracePath), 0755); err != nil {
			return fmt.Errorf("failed to create trace directory: %w", err)
		}
		file, err := os.Create(t.cfg.TracePath)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		t.traceFile = file
		out = file
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// Spans are written as they end.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)

	t.TracerProvider = tp
	t.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
	otel.SetTracerProvider(tp)

	return nil
}

// initializeMetrics bridges otel instruments into a private Prometheus registry
func (t *Telemetry) initializeMetrics(res *resource.Resource) error {
	t.Registry = prometheus.NewRegistry()

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(t.Registry),
		otelprom.WithoutScopeInfo(),
		otelprom.WithoutTargetInfo(),
	)
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = t.MeterProvider.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))

	metrics, err := NewRunMetrics(t.Meter)
	if err != nil {
		return err
	}
	t.Metrics = metrics

	runtimeMetrics, err := NewRuntimeMetrics(t.Meter)
	if err != nil {
		return fmt.Errorf("failed to create runtime metrics: %w", err)
	}
	t.Runtime = runtimeMetrics
	return nil
}

// StartStage opens a span for one pipeline stage and tags the context with its name.
func (t *Telemetry) StartStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	ctx = WithStage(ctx, stage)
	return t.Tracer.Start(ctx, stage, trace.WithAttributes(
		attribute.String("trace_id", GetTraceID(ctx)),
	))
}

// Shutdown flushes spans, writes the metrics textfile, and releases files.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.traceFile != nil {
		if err := t.traceFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if t.cfg.EnableMetrics && t.cfg.MetricsPath != "" {
		stats := t.Runtime.Collect(ctx, t.started)
		t.logger.DebugContext(ctx, "Runtime snapshot",
			slog.Int64("heap_bytes", stats.MemoryUsage),
			slog.Duration("run_duration", stats.RunDuration))
		if err := WriteMetricsTextfile(t.Registry, t.cfg.MetricsPath); err != nil {
			errs = append(errs, err)
		} else {
			t.logger.InfoContext(ctx, "Run metrics written", slog.String("path", t.cfg.MetricsPath))
		}
	}

	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RecordError records an error on the span in ctx
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets integer counters on the span in ctx
func SetSpanAttributes(ctx context.Context, attrs map[string]int) {
	span := trace.SpanFromContext(ctx)
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.Int(k, v))
	}
	span.SetAttributes(kvs...)
}
