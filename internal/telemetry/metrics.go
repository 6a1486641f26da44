package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "shogun-panel"

// Metrics holds the panel's instruments. A nil *Metrics records nothing.
type Metrics struct {
	Captures           metric.Int64Counter
	CaptureFailures    metric.Int64Counter
	CaptureDuration    metric.Float64Histogram
	Broadcasts         metric.Int64Counter
	SubscribersDropped metric.Int64Counter
	Subscribers        metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on the global MeterProvider. They are
// no-ops until a provider is registered.
func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(meterName))
}

// NewMetricsFor creates the instruments on mp.
func NewMetricsFor(mp metric.MeterProvider) (*Metrics, error) {
	return newMetrics(mp.Meter(meterName))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.Captures, err = meter.Int64Counter("panel.captures",
		metric.WithDescription("Pane capture passes"))
	if err != nil {
		return nil, err
	}

	m.CaptureFailures, err = meter.Int64Counter("panel.capture_failures",
		metric.WithDescription("Capture passes that returned an error"))
	if err != nil {
		return nil, err
	}

	m.CaptureDuration, err = meter.Float64Histogram("panel.capture.duration",
		metric.WithDescription("Time spent in one capture pass"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	m.Broadcasts, err = meter.Int64Counter("panel.broadcasts",
		metric.WithDescription("Payloads published to subscribers"))
	if err != nil {
		return nil, err
	}

	m.SubscribersDropped, err = meter.Int64Counter("panel.subscribers_dropped",
		metric.WithDescription("Subscribers removed after a failed delivery"))
	if err != nil {
		return nil, err
	}

	m.Subscribers, err = meter.Int64UpDownCounter("panel.subscribers",
		metric.WithDescription("Currently connected subscribers"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func broadcasterAttr(name string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("broadcaster", name))
}

// RecordCapture records one capture pass of the named broadcaster.
func (m *Metrics) RecordCapture(ctx context.Context, name string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := broadcasterAttr(name)
	m.Captures.Add(ctx, 1, attrs)
	m.CaptureDuration.Record(ctx, float64(d)/float64(time.Millisecond), attrs)
	if err != nil {
		m.CaptureFailures.Add(ctx, 1, attrs)
	}
}

// RecordBroadcast records a payload of the given kind published to n
// subscribers.
func (m *Metrics) RecordBroadcast(ctx context.Context, name, kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Broadcasts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("broadcaster", name),
		attribute.String("payload.type", kind),
	))
}

// RecordDropped records subscribers removed after a failed send.
func (m *Metrics) RecordDropped(ctx context.Context, name string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SubscribersDropped.Add(ctx, int64(n), broadcasterAttr(name))
}

// RecordSubscribers adjusts the live subscriber gauge by delta.
func (m *Metrics) RecordSubscribers(ctx context.Context, name string, delta int) {
	if m == nil || delta == 0 {
		return
	}
	m.Subscribers.Add(ctx, int64(delta), broadcasterAttr(name))
}
