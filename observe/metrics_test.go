package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*metricsImpl, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	found := findMetric(rm, name)
	if found == nil {
		return 0
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, found.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordExecution(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := MethodMeta{Verb: "GET", URL: "/unit-test", Name: "get-method"}
	ctx := context.Background()

	m.RecordExecution(ctx, meta, 100*time.Millisecond, nil)
	m.RecordExecution(ctx, meta, 10*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)
	if got := sumValue(t, rm, MetricExecTotal); got != 2 {
		t.Errorf("%s = %d, want 2", MetricExecTotal, got)
	}
	if got := sumValue(t, rm, MetricExecErrors); got != 1 {
		t.Errorf("%s = %d, want 1", MetricExecErrors, got)
	}

	hist := findMetric(rm, MetricExecDuration)
	if hist == nil {
		t.Fatalf("%s not found", MetricExecDuration)
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	if len(data.DataPoints) == 0 || data.DataPoints[0].Count != 2 {
		t.Errorf("expected 2 histogram samples, got %+v", data.DataPoints)
	}
}

func TestMetrics_CacheAndSharing(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := MethodMeta{Verb: "GET", URL: "/unit-test"}
	ctx := context.Background()

	m.RecordCacheLookup(ctx, meta, true)
	m.RecordCacheLookup(ctx, meta, true)
	m.RecordCacheLookup(ctx, meta, false)
	m.RecordSharedJoin(ctx, meta)

	rm := collect(t, reader)
	if got := sumValue(t, rm, MetricCacheHits); got != 2 {
		t.Errorf("%s = %d, want 2", MetricCacheHits, got)
	}
	if got := sumValue(t, rm, MetricCacheMisses); got != 1 {
		t.Errorf("%s = %d, want 1", MetricCacheMisses, got)
	}
	if got := sumValue(t, rm, MetricSharedJoins); got != 1 {
		t.Errorf("%s = %d, want 1", MetricSharedJoins, got)
	}
}
