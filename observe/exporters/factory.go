// Package exporters builds the OpenTelemetry span exporters and metric
// readers selectable by name in observe.Config.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrUnknownExporter indicates an exporter name with no factory.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")

	// ErrEndpointNotConfigured indicates the OTLP endpoint variables are unset.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")
)

// Stdout is where the stdout exporters write. Tests may replace it.
var Stdout io.Writer = os.Stdout

// Prometheus receives the collectors of "prometheus" metric readers. The
// admin server exposes it on /metrics.
var Prometheus = prometheus.NewRegistry()

type (
	spanFactory   func(context.Context) (sdktrace.SpanExporter, error)
	readerFactory func(context.Context) (sdkmetric.Reader, error)
)

var spanFactories = map[string]spanFactory{
	"":       discardSpans,
	"none":   discardSpans,
	"stdout": stdoutSpans,
	"otlp":   otlpSpans,
}

var readerFactories = map[string]readerFactory{
	"":           manualReader,
	"none":       manualReader,
	"stdout":     stdoutReader,
	"otlp":       otlpReader,
	"prometheus": prometheusReader,
}

// TracingExporters lists the accepted tracing exporter names.
var TracingExporters = names(spanFactories)

// MetricsExporters lists the accepted metrics exporter names.
var MetricsExporters = names(readerFactories)

// NewTracingExporter creates the span exporter registered under name.
func NewTracingExporter(ctx context.Context, name string) (sdktrace.SpanExporter, error) {
	f, ok := spanFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: tracing %q", ErrUnknownExporter, name)
	}
	return f(ctx)
}

// NewMetricsReader creates the metric reader registered under name.
func NewMetricsReader(ctx context.Context, name string) (sdkmetric.Reader, error) {
	f, ok := readerFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: metrics %q", ErrUnknownExporter, name)
	}
	return f(ctx)
}

func discardSpans(context.Context) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
}

func stdoutSpans(context.Context) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithWriter(Stdout))
}

func otlpSpans(ctx context.Context) (sdktrace.SpanExporter, error) {
	if err := requireEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
		return nil, err
	}
	return otlptracegrpc.New(ctx)
}

func manualReader(context.Context) (sdkmetric.Reader, error) {
	return sdkmetric.NewManualReader(), nil
}

func stdoutReader(context.Context) (sdkmetric.Reader, error) {
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(Stdout))
	if err != nil {
		return nil, fmt.Errorf("exporters: stdout metrics: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exp), nil
}

func otlpReader(ctx context.Context) (sdkmetric.Reader, error) {
	if err := requireEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
		return nil, err
	}
	exp, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporters: otlp metrics: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exp), nil
}

func prometheusReader(context.Context) (sdkmetric.Reader, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(Prometheus))
	if err != nil {
		return nil, fmt.Errorf("exporters: prometheus: %w", err)
	}
	return exp, nil
}

// requireEnv fails unless at least one of vars is set.
func requireEnv(vars ...string) error {
	for _, v := range vars {
		if os.Getenv(v) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: set %s", ErrEndpointNotConfigured, strings.Join(vars, " or "))
}

func names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
