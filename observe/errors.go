package observe

import "errors"

// Configuration errors.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrInvalidSampleRatio indicates Tracing.SampleRatio is outside [0, 1].
	ErrInvalidSampleRatio = errors.New("observe: sample ratio must be between 0 and 1")

	// ErrInvalidTracingExporter indicates an unknown tracing exporter name.
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")

	// ErrInvalidMetricsExporter indicates an unknown metrics exporter name.
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")

	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("observe: invalid log level")
)

// ErrNilObserver indicates a nil Observer was provided.
var ErrNilObserver = errors.New("observe: observer is nil")

// RedactedFields lists field keys whose values are replaced in log output.
// Request bodies and auth material never reach the logs verbatim.
var RedactedFields = []string{
	"authorization",
	"body",
	"data",
	"password",
	"token",
	"bearer",
	"signing_key",
	"api_key",
}
