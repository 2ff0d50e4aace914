package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// DefaultMetricsInterval is the push interval of the OTLP metric reader
const DefaultMetricsInterval = 60 * time.Second

func newResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.GetServiceName()),
			semconv.ServiceVersion(cfg.GetServiceVersion()),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// newTracerProvider returns an OTLP-backed provider, or a no-op provider when
// tracing is disabled.
func newTracerProvider(ctx context.Context, cfg *Config, res *resource.Resource) (trace.TracerProvider, error) {
	if cfg.Tracing == nil || !cfg.Tracing.Enabled {
		slog.Info("Tracing disabled, using no-op tracer provider")
		return tracenoop.NewTracerProvider(), nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.GetEndpoint())}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.Tracing.GetSampling())),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("Tracing initialized",
		"endpoint", cfg.GetEndpoint(),
		"sampling_ratio", cfg.Tracing.GetSampling(),
		"insecure", cfg.Insecure)
	return tp, nil
}

// newMeterProvider returns a meter provider exporting over OTLP or through a
// Prometheus registry. The registry is nil unless the Prometheus exporter is used.
func newMeterProvider(
	ctx context.Context,
	cfg *Config,
	res *resource.Resource,
) (metric.MeterProvider, *prometheus.Registry, error) {
	if cfg.Metrics == nil || !cfg.Metrics.Enabled {
		slog.Info("Metrics disabled, using no-op meter provider")
		return metricnoop.NewMeterProvider(), nil, nil
	}

	var (
		reader   sdkmetric.Reader
		registry *prometheus.Registry
	)

	switch cfg.Metrics.GetExporter() {
	case ExporterPrometheus:
		registry = prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		reader = exporter
	default:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.GetEndpoint())}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricsInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized", "exporter", cfg.Metrics.GetExporter())
	return mp, registry, nil
}
