package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature for transport calls wrapped by Middleware.
type ExecuteFunc func(ctx context.Context, meta MethodMeta) (any, error)

// Middleware wraps method execution with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: Results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// WithLogger returns a copy of m logging to l.
func (m *Middleware) WithLogger(l Logger) *Middleware {
	if l == nil {
		return m
	}
	c := *m
	c.logger = l
	return &c
}

// Wrap wraps an ExecuteFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, meta MethodMeta) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, meta, duration, err)

		logger := m.logger.WithMethod(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "request failed", fields...)
		} else {
			logger.Debug(ctx, "request completed", fields...)
		}

		return result, err
	}
}

// CacheLookup reports a response cache lookup.
func (m *Middleware) CacheLookup(ctx context.Context, meta MethodMeta, hit bool) {
	m.metrics.RecordCacheLookup(ctx, meta, hit)
	if hit {
		m.logger.WithMethod(meta).Debug(ctx, "response served from cache")
	}
}

// SharedJoin reports a caller attaching to an in-flight request.
func (m *Middleware) SharedJoin(ctx context.Context, meta MethodMeta) {
	m.metrics.RecordSharedJoin(ctx, meta)
	m.logger.WithMethod(meta).Debug(ctx, "joined in-flight request")
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
