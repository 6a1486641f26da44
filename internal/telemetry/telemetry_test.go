package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		raw  string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"Authorization=Basic abc", map[string]string{"Authorization": "Basic abc"}},
		{" a = 1 , b=2,=skip,novalue", map[string]string{"a": "1", "b": "2"}},
		{"k=v=w", map[string]string{"k": "v=w"}},
	}
	for _, tt := range tests {
		got := parseHeaders(tt.raw)
		if len(got) != len(tt.want) {
			t.Errorf("parseHeaders(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("parseHeaders(%q)[%q] = %q, want %q", tt.raw, k, got[k], v)
			}
		}
	}
}

func TestInitWithoutEndpoint(t *testing.T) {
	tel, err := Init(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	defer tel.Shutdown(context.Background())

	if tel.Enabled() {
		t.Error("Enabled() = true without endpoint")
	}
	if tel.Metrics == nil {
		t.Fatal("Metrics is nil")
	}
	_, span := tel.StartSpan(context.Background(), "noop")
	span.End()
}

func TestNilSafety(t *testing.T) {
	var tel *Telemetry
	var m *Metrics
	ctx := context.Background()

	m.RecordCapture(ctx, "x", time.Millisecond, errors.New("boom"))
	m.RecordBroadcast(ctx, "x", "delta", 1)
	m.RecordDropped(ctx, "x", 1)
	m.RecordSubscribers(ctx, "x", 1)

	if tel.Enabled() {
		t.Error("nil Telemetry reports enabled")
	}
	if tel.MetricsOrNil() != nil {
		t.Error("nil Telemetry returned metrics")
	}
	_, span := tel.StartSpan(ctx, "noop")
	span.End()
	tel.Shutdown(ctx)
}

func TestRecordCapture(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := newMetrics(mp.Meter(meterName))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	m.RecordCapture(ctx, "monitor", 5*time.Millisecond, nil)
	m.RecordCapture(ctx, "monitor", 7*time.Millisecond, errors.New("tmux gone"))
	m.RecordDropped(ctx, "monitor", 2)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}

	sums := map[string]int64{}
	var histCount uint64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histCount += dp.Count
				}
			}
		}
	}

	if sums["panel.captures"] != 2 {
		t.Errorf("panel.captures = %d, want 2", sums["panel.captures"])
	}
	if sums["panel.capture_failures"] != 1 {
		t.Errorf("panel.capture_failures = %d, want 1", sums["panel.capture_failures"])
	}
	if sums["panel.subscribers_dropped"] != 2 {
		t.Errorf("panel.subscribers_dropped = %d, want 2", sums["panel.subscribers_dropped"])
	}
	if histCount != 2 {
		t.Errorf("panel.capture.duration count = %d, want 2", histCount)
	}
}
