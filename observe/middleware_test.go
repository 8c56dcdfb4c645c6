package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type middlewareFixture struct {
	mw     *Middleware
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newMiddlewareFixture(t *testing.T) *middlewareFixture {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	metrics, reader := newTestMetrics(t)
	logs := &bytes.Buffer{}

	return &middlewareFixture{
		mw:     NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", logs)),
		spans:  spans,
		reader: reader,
		logs:   logs,
	}
}

func TestMiddleware_SuccessPath(t *testing.T) {
	f := newMiddlewareFixture(t)
	meta := MethodMeta{Verb: "GET", URL: "/users", Name: "list-users"}

	wrapped := f.mw.Wrap(func(ctx context.Context, m MethodMeta) (any, error) {
		return "success_result", nil
	})
	result, err := wrapped(context.Background(), meta)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result != "success_result" {
		t.Errorf("expected result %q, got %v", "success_result", result)
	}

	spans := f.spans.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "request.GET.list-users" {
		t.Errorf("unexpected span name %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", spans[0].Status())
	}

	if got := sumValue(t, collect(t, f.reader), MetricExecTotal); got != 1 {
		t.Errorf("%s = %d, want 1", MetricExecTotal, got)
	}
	if !bytes.Contains(f.logs.Bytes(), []byte("request completed")) {
		t.Errorf("expected completion log, got %s", f.logs.String())
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	f := newMiddlewareFixture(t)
	meta := MethodMeta{Verb: "POST", URL: "/users"}
	wantErr := errors.New("transport down")

	_, err := f.mw.Wrap(func(context.Context, MethodMeta) (any, error) {
		return nil, wantErr
	})(context.Background(), meta)

	if !errors.Is(err, wantErr) {
		t.Fatalf("expected error to propagate unchanged, got %v", err)
	}

	spans := f.spans.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected one errored span, got %+v", spans)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected the error to be recorded as a span event")
	}

	if got := sumValue(t, collect(t, f.reader), MetricExecErrors); got != 1 {
		t.Errorf("%s = %d, want 1", MetricExecErrors, got)
	}
	if !bytes.Contains(f.logs.Bytes(), []byte("transport down")) {
		t.Errorf("expected error log, got %s", f.logs.String())
	}
}

func TestMiddleware_CacheAndShareEvents(t *testing.T) {
	f := newMiddlewareFixture(t)
	meta := MethodMeta{Verb: "GET", URL: "/users"}
	ctx := context.Background()

	f.mw.CacheLookup(ctx, meta, true)
	f.mw.CacheLookup(ctx, meta, false)
	f.mw.SharedJoin(ctx, meta)

	rm := collect(t, f.reader)
	if got := sumValue(t, rm, MetricCacheHits); got != 1 {
		t.Errorf("%s = %d, want 1", MetricCacheHits, got)
	}
	if got := sumValue(t, rm, MetricCacheMisses); got != 1 {
		t.Errorf("%s = %d, want 1", MetricCacheMisses, got)
	}
	if got := sumValue(t, rm, MetricSharedJoins); got != 1 {
		t.Errorf("%s = %d, want 1", MetricSharedJoins, got)
	}
}

func TestNopMiddleware(t *testing.T) {
	mw := NopMiddleware()
	got, err := mw.Wrap(func(context.Context, MethodMeta) (any, error) {
		return 42, nil
	})(context.Background(), MethodMeta{Verb: "GET"})
	if err != nil || got != 42 {
		t.Errorf("NopMiddleware changed the result: %v, %v", got, err)
	}
	mw.CacheLookup(context.Background(), MethodMeta{}, true)
	mw.SharedJoin(context.Background(), MethodMeta{})
}

func TestMiddleware_WithLogger(t *testing.T) {
	f := newMiddlewareFixture(t)
	var other bytes.Buffer
	mw := f.mw.WithLogger(NewLoggerWithWriter("debug", &other))

	_, _ = mw.Wrap(func(context.Context, MethodMeta) (any, error) {
		return nil, nil
	})(context.Background(), MethodMeta{Verb: "GET", URL: "/x"})

	if f.logs.Len() != 0 {
		t.Error("original middleware logger should be untouched")
	}
	if !bytes.Contains(other.Bytes(), []byte("request completed")) {
		t.Errorf("expected log on the new logger, got %s", other.String())
	}
	if f.mw.WithLogger(nil) != f.mw {
		t.Error("WithLogger(nil) should return the receiver")
	}
}
