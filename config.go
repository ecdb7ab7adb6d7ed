package healops

import (
	"github.com/go-playground/validator/v10"

	"github.com/healops/healops-go/internal/healopserr"
)

// Config is the caller-supplied configuration for a Client. Programmatic
// configuration always wins over environment defaults — see
// internal/config for the full precedence and bounds-clamping rules.
type Config struct {
	// APIKey authenticates this SDK instance against the ingestion
	// backend. Required.
	APIKey string `validate:"required"`

	// ServiceName identifies this application in the HealOps dashboard.
	// Required.
	ServiceName string `validate:"required"`

	// Release and Environment are attached to every record when set.
	// There is no Go analogue of the browser's meta-tag auto-detection,
	// so these are always either caller-supplied or left blank.
	Release     string
	Environment string

	// Source tags every record's source field. Defaults to "healops-sdk"
	// when unset.
	Source string

	// IngestBaseURL overrides the default ingestion endpoint. Intended
	// for testing against a local server.
	IngestBaseURL string

	// BatchSize and BatchIntervalMs bound the batcher's size and time
	// triggers. Zero means "use the environment/default value"; both are
	// clamped to their documented ranges regardless of source.
	BatchSize       int
	BatchIntervalMs int

	// CaptureConsole enables wrapping log.Default()/slog.Default() (C7).
	CaptureConsole bool
	// CaptureErrors enables panic recovery, signal-driven shutdown, and
	// the http.DefaultTransport wrapper (C8).
	CaptureErrors bool

	// EnableSourceMaps enables fetching and resolving source maps for
	// bundled frames (C3). SourceMapCacheSize bounds each of the two
	// in-process caches; RedisCacheAddr, when set, switches to a
	// distributed cache shared across instances instead.
	EnableSourceMaps   bool
	SourceMapCacheSize int
	RedisCacheAddr     string
	RedisPassword      string
	RedisDB            int

	// EnableSelfMetrics turns on the SDK's self-instrumentation (C10),
	// exported to MetricsEndpoint over OTLP/gRPC. Entirely independent of
	// log/span delivery.
	EnableSelfMetrics bool
	MetricsEndpoint   string

	// DiagnosticLogPath, when set, is where the JSON diagnostic backend
	// (selected automatically in non-interactive processes when
	// HEALOPS_DEBUG is set) writes rotated log files instead of stderr.
	DiagnosticLogPath string
}

var configValidator = validator.New()

// Validate checks required fields and returns a descriptive error when the
// configuration cannot be used to construct a Client. This is the one
// place this module returns an error directly to the caller — nothing has
// started running yet, so there is no running SDK behavior to protect from
// surfacing errors.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return healopserr.ConfigInvalid(err)
	}
	return nil
}
