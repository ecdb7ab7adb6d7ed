// Package selflog provides the SDK's own diagnostic logger, entirely
// separate from the application logs the SDK captures and ships. It backs
// the HEALOPS_DEBUG / HEALOPS_DEBUG_SOURCEMAPS environment flags.
package selflog

// Logger defines the diagnostic logging contract used internally by every
// other package in this module. It is never exposed to, or driven by, the
// host application's own logging.
type Logger interface {
	// WithField adds a single key-value pair to the logging context.
	WithField(key string, value any) Logger

	// WithFields adds multiple key-value pairs to the logging context.
	WithFields(fields map[string]any) Logger

	// Debug logs a message at the Debug level.
	Debug(message string)
	// Info logs a message at the Info level.
	Info(message string)
	// Warn logs a message at the Warn level.
	Warn(message string)
	// Error logs a message at the Error level.
	Error(message string)
}

// Mode selects which backend New constructs.
type Mode string

const (
	// ModeOff disables diagnostic logging entirely (the default).
	ModeOff Mode = "off"
	// ModeStdout renders tinted, human-readable output, meant for local
	// development with a TTY attached to stderr.
	ModeStdout Mode = "stdout"
	// ModeJSON renders structured JSON with rotation, meant for processes
	// running unattended (containers, daemons, CI workers).
	ModeJSON Mode = "json"
)

// New constructs a Logger for the given mode. An unrecognized mode falls
// back to the no-op logger rather than erroring, since failing to build a
// diagnostic logger must never prevent SDK construction.
func New(mode Mode, path string) Logger {
	switch mode {
	case ModeJSON:
		return NewJSON(path)
	case ModeStdout:
		return NewStdout()
	default:
		return NewNoOp()
	}
}
