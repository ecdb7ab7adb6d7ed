package selflog

type noopLogger struct{}

var _ Logger = (*noopLogger)(nil)

// NewNoOp returns a Logger that discards everything. This is the default
// when debug mode is disabled.
func NewNoOp() Logger { return &noopLogger{} }

func (l *noopLogger) WithField(key string, value any) Logger {
	return l
}

func (l *noopLogger) WithFields(fields map[string]any) Logger {
	return l
}

func (l *noopLogger) Debug(message string) {}
func (l *noopLogger) Info(message string)  {}
func (l *noopLogger) Warn(message string)  {}
func (l *noopLogger) Error(message string) {}
