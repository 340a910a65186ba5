// Package telemetry provides logging and OpenTelemetry instrumentation
// for sagecycle.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ProviderConfig controls exporter wiring.
type ProviderConfig struct {
	ServiceName   string
	TraceEndpoint string // OTLP gRPC endpoint, tracing disabled when empty
	Insecure      bool
}

// Provider wraps OTEL tracer and meter providers. Metrics are exposed
// through the prometheus registry so the daemon can serve them over
// promhttp.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter

	pollDuration    metric.Float64Histogram
	resourcesListed metric.Int64Counter
	deletions       metric.Int64Counter
	deleteErrors    metric.Int64Counter
	releases        metric.Int64Counter
}

// NewProvider creates a telemetry provider.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Provider{}

	if err := p.setupTracing(ctx, cfg, res); err != nil {
		return nil, err
	}

	if err := p.setupMetrics(res); err != nil {
		if p.tracerProvider != nil {
			_ = p.tracerProvider.Shutdown(ctx)
		}
		return nil, err
	}

	if err := p.initMetrics(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) setupTracing(ctx context.Context, cfg ProviderConfig, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	if cfg.TraceEndpoint != "" {
		expOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.TraceEndpoint),
		}
		if cfg.Insecure {
			expOpts = append(expOpts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, expOpts...)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(p.tracerProvider)
	p.tracer = p.tracerProvider.Tracer("sagecycle")

	return nil
}

func (p *Provider) setupMetrics(res *resource.Resource) error {
	exp, err := otelprom.New()
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp),
	)
	otel.SetMeterProvider(p.meterProvider)
	p.meter = p.meterProvider.Meter("sagecycle")

	return nil
}

func (p *Provider) initMetrics() error {
	var err error

	p.pollDuration, err = p.meter.Float64Histogram(
		"sagecycle_poll_duration_seconds",
		metric.WithDescription("Wall-clock duration of wait-for-terminal calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create poll_duration: %w", err)
	}

	p.resourcesListed, err = p.meter.Int64Counter(
		"sagecycle_resources_listed_total",
		metric.WithDescription("Resources enumerated by cleanup runs"),
	)
	if err != nil {
		return fmt.Errorf("create resources_listed: %w", err)
	}

	p.deletions, err = p.meter.Int64Counter(
		"sagecycle_resources_deleted_total",
		metric.WithDescription("Resources deleted by cleanup runs"),
	)
	if err != nil {
		return fmt.Errorf("create deletions: %w", err)
	}

	p.deleteErrors, err = p.meter.Int64Counter(
		"sagecycle_delete_errors_total",
		metric.WithDescription("Per-item delete failures"),
	)
	if err != nil {
		return fmt.Errorf("create delete_errors: %w", err)
	}

	p.releases, err = p.meter.Int64Counter(
		"sagecycle_releases_created_total",
		metric.WithDescription("Release packages created"),
	)
	if err != nil {
		return fmt.Errorf("create releases: %w", err)
	}

	return nil
}

// StartSpan starts a new span.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name)
}

// RecordPollDuration records one wait-for-terminal call.
func (p *Provider) RecordPollDuration(ctx context.Context, resourceType string, timedOut bool, d time.Duration) {
	p.pollDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("resource.type", resourceType),
		attribute.Bool("timed_out", timedOut),
	))
}

// RecordCleanup records the counts from one cleanup pass.
func (p *Provider) RecordCleanup(ctx context.Context, resourceType string, listed, deleted, failed int) {
	attrs := metric.WithAttributes(attribute.String("resource.type", resourceType))
	p.resourcesListed.Add(ctx, int64(listed), attrs)
	p.deletions.Add(ctx, int64(deleted), attrs)
	p.deleteErrors.Add(ctx, int64(failed), attrs)
}

// RecordRelease records a created release.
func (p *Provider) RecordRelease(ctx context.Context, releaseType string) {
	p.releases.Add(ctx, 1, metric.WithAttributes(
		attribute.String("release.type", releaseType),
	))
}

// Shutdown flushes and shuts down the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter: %w", err)
		}
	}
	return nil
}
