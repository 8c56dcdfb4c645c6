package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/reqcache/observe/exporters"
)

// InstrumentationName names the tracer and meter of an Observer.
const InstrumentationName = "github.com/jonwraymond/reqcache"

// Config configures an Observer.
type Config struct {
	// ServiceName is recorded as the service.name resource attribute.
	// Default: "reqcache"
	ServiceName string

	// Version is recorded as service.version.
	Version string

	Tracing TracingConfig
	Metrics MetricsConfig
	Logging LoggingConfig

	// Global installs the providers as the otel global providers.
	Global bool
}

// TracingConfig configures request spans.
type TracingConfig struct {
	Enabled bool

	// Exporter is one of exporters.TracingExporters.
	Exporter string

	// SampleRatio is the fraction of root spans kept, in [0, 1]. Spans
	// started under a caller's span follow the caller's decision.
	SampleRatio float64
}

// MetricsConfig configures request and cache metrics.
type MetricsConfig struct {
	Enabled bool

	// Exporter is one of exporters.MetricsExporters.
	Exporter string
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error

	// Output receives log lines. Default: os.Stderr.
	Output io.Writer
}

// ValidLogLevels lists valid log level names.
var ValidLogLevels = []string{"debug", "info", "warn", "error", ""}

// DefaultConfig logs at info level with tracing and metrics off.
func DefaultConfig() Config {
	return Config{
		ServiceName: "reqcache",
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}
}

// Validate checks the enabled subsystems only.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if t := c.Tracing; t.Enabled {
		if !slices.Contains(exporters.TracingExporters, t.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, t.Exporter)
		}
		if t.SampleRatio < 0 || t.SampleRatio > 1 {
			return fmt.Errorf("%w, got %g", ErrInvalidSampleRatio, t.SampleRatio)
		}
	}
	if m := c.Metrics; m.Enabled && !slices.Contains(exporters.MetricsExporters, m.Exporter) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, m.Exporter)
	}
	if l := c.Logging; l.Enabled && !slices.Contains(ValidLogLevels, l.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}
	return nil
}

// Observer provides access to telemetry primitives.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown flushes every provider and joins their errors.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
	Shutdown(ctx context.Context) error
}

type observer struct {
	tracer    trace.Tracer
	meter     metric.Meter
	logger    Logger
	shutdowns []func(context.Context) error
}

// NewObserver builds the providers enabled in cfg. Disabled subsystems get
// no-op implementations.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	o := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(InstrumentationName),
		meter:  noop.NewMeterProvider().Meter(InstrumentationName),
		logger: NopLogger(),
	}

	if cfg.Tracing.Enabled {
		if err := o.startTracing(ctx, cfg, res); err != nil {
			return nil, err
		}
	}
	if cfg.Metrics.Enabled {
		if err := o.startMetrics(ctx, cfg, res); err != nil {
			_ = o.Shutdown(ctx)
			return nil, err
		}
	}
	if cfg.Logging.Enabled {
		out := cfg.Logging.Output
		if out == nil {
			out = os.Stderr
		}
		o.logger = NewLoggerWithWriter(cfg.Logging.Level, out)
	}
	return o, nil
}

func (o *observer) startTracing(ctx context.Context, cfg Config, res *resource.Resource) error {
	exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter)
	if err != nil {
		return fmt.Errorf("observe: tracing: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SampleRatio))),
		sdktrace.WithBatcher(exp),
	)
	if cfg.Global {
		otel.SetTracerProvider(tp)
	}
	o.tracer = tp.Tracer(InstrumentationName)
	o.shutdowns = append(o.shutdowns, tp.Shutdown)
	return nil
}

func (o *observer) startMetrics(ctx context.Context, cfg Config, res *resource.Resource) error {
	reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter)
	if err != nil {
		return fmt.Errorf("observe: metrics: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	if cfg.Global {
		otel.SetMeterProvider(mp)
	}
	o.meter = mp.Meter(InstrumentationName)
	o.shutdowns = append(o.shutdowns, mp.Shutdown)
	return nil
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter   { return o.meter }
func (o *observer) Logger() Logger        { return o.logger }

// Shutdown flushes providers in reverse start order.
func (o *observer) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(o.shutdowns) - 1; i >= 0; i-- {
		if err := o.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	o.shutdowns = nil
	return errors.Join(errs...)
}
