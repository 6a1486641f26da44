// Package telemetry sets up OpenTelemetry metrics and traces for the panel.
//
// Nothing is exported unless an OTLP endpoint is configured; without one the
// instruments and tracer are no-ops.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "shogun-panel"

// Version is overridden by the server command.
var Version = "dev"

// Config selects the OTLP/HTTP collector.
type Config struct {
	Endpoint string // base URL, e.g. "http://localhost:4318"
	Headers  string // comma separated key=value pairs
}

// Telemetry owns the providers and the panel's instruments.
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	tracer  trace.Tracer
	Metrics *Metrics
}

// parseHeaders parses "key=value,key2=value2" in the
// OTEL_EXPORTER_OTLP_HEADERS format.
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	if raw == "" {
		return headers
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if idx := strings.IndexByte(pair, '='); idx > 0 {
			key := strings.TrimSpace(pair[:idx])
			if key != "" {
				headers[key] = strings.TrimSpace(pair[idx+1:])
			}
		}
	}
	return headers
}

// Init installs OTLP exporters when cfg.Endpoint is set and creates the
// instruments.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	t := &Telemetry{}

	if cfg.Endpoint != "" {
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
				semconv.ServiceVersion(Version),
			),
			resource.WithHost(),
		)
		if err != nil {
			return nil, fmt.Errorf("otel resource: %w", err)
		}

		u, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("otel: invalid endpoint URL %q: %w", cfg.Endpoint, err)
		}
		basePath := strings.TrimRight(u.Path, "/")
		headers := parseHeaders(cfg.Headers)

		traceOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(u.Host),
			otlptracehttp.WithURLPath(basePath + "/v1/traces"),
		}
		metricOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(u.Host),
			otlpmetrichttp.WithURLPath(basePath + "/v1/metrics"),
		}
		if u.Scheme == "http" {
			traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
			metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
		}
		if len(headers) > 0 {
			traceOpts = append(traceOpts, otlptracehttp.WithHeaders(headers))
			metricOpts = append(metricOpts, otlpmetrichttp.WithHeaders(headers))
		}

		traceExp, err := otlptracehttp.New(ctx, traceOpts...)
		if err != nil {
			return nil, fmt.Errorf("otel trace exporter: %w", err)
		}
		t.tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExp),
			sdktrace.WithResource(res),
		)

		metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
		if err != nil {
			return nil, fmt.Errorf("otel metric exporter: %w", err)
		}
		t.mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
				sdkmetric.WithInterval(15*time.Second))),
			sdkmetric.WithResource(res),
		)

		otel.SetTracerProvider(t.tp)
		otel.SetMeterProvider(t.mp)
	}

	t.tracer = otel.Tracer(serviceName)

	metrics, err := NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("otel metrics: %w", err)
	}
	t.Metrics = metrics
	return t, nil
}

// Enabled reports whether data is being exported.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.mp != nil
}

// StartSpan starts a span on the panel tracer. It is safe on a nil
// Telemetry.
func (t *Telemetry) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return otel.Tracer(serviceName).Start(ctx, name, opts...)
	}
	return t.tracer.Start(ctx, name, opts...)
}

// MetricsOrNil returns the instruments, or nil on a nil Telemetry.
func (t *Telemetry) MetricsOrNil() *Metrics {
	if t == nil {
		return nil
	}
	return t.Metrics
}

// Shutdown flushes and stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) {
	if t == nil {
		return
	}
	if t.tp != nil {
		_ = t.tp.Shutdown(ctx)
	}
	if t.mp != nil {
		_ = t.mp.Shutdown(ctx)
	}
}
