package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricExecTotal    = "request.exec.total"
	MetricExecErrors   = "request.exec.errors"
	MetricExecDuration = "request.exec.duration_ms"
	MetricCacheHits    = "request.cache.hits"
	MetricCacheMisses  = "request.cache.misses"
	MetricSharedJoins  = "request.shared.joins"
)

// Metrics records execution, cache and sharing metrics for methods.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records a transport call with duration and error status.
	RecordExecution(ctx context.Context, meta MethodMeta, duration time.Duration, err error)

	// RecordCacheLookup records a response cache hit or miss.
	RecordCacheLookup(ctx context.Context, meta MethodMeta, hit bool)

	// RecordSharedJoin records a caller attaching to an in-flight request.
	RecordSharedJoin(ctx context.Context, meta MethodMeta)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	sharedJoins  metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.totalCount, MetricExecTotal, "Total number of transport calls", "{call}"},
		{&m.errorCount, MetricExecErrors, "Total number of failed transport calls", "{error}"},
		{&m.cacheHits, MetricCacheHits, "Response cache hits", "{hit}"},
		{&m.cacheMisses, MetricCacheMisses, "Response cache misses", "{miss}"},
		{&m.sharedJoins, MetricSharedJoins, "Callers attached to an in-flight request", "{join}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, err
		}
	}

	m.durationHist, err = meter.Float64Histogram(
		MetricExecDuration,
		metric.WithDescription("Transport call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func metaOption(meta MethodMeta) metric.MeasurementOption {
	return metric.WithAttributes(meta.attributes()...)
}

// RecordExecution records metrics for a transport call.
func (m *metricsImpl) RecordExecution(ctx context.Context, meta MethodMeta, duration time.Duration, err error) {
	opt := metaOption(meta)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordCacheLookup counts a hit or a miss.
func (m *metricsImpl) RecordCacheLookup(ctx context.Context, meta MethodMeta, hit bool) {
	if hit {
		m.cacheHits.Add(ctx, 1, metaOption(meta))
		return
	}
	m.cacheMisses.Add(ctx, 1, metaOption(meta))
}

// RecordSharedJoin counts a shared join.
func (m *metricsImpl) RecordSharedJoin(ctx context.Context, meta MethodMeta) {
	m.sharedJoins.Add(ctx, 1, metaOption(meta))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (noopMetrics) RecordExecution(context.Context, MethodMeta, time.Duration, error) {}
func (noopMetrics) RecordCacheLookup(context.Context, MethodMeta, bool)              {}
func (noopMetrics) RecordSharedJoin(context.Context, MethodMeta)                     {}
