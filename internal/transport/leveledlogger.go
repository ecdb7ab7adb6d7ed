package transport

import (
	"fmt"

	"github.com/healops/healops-go/internal/selflog"
)

// leveledLoggerAdapter satisfies retryablehttp.LeveledLogger by forwarding
// to the SDK's own diagnostic logger, so retry noise only surfaces in
// debug mode instead of going to stderr unconditionally.
type leveledLoggerAdapter struct {
	log selflog.Logger
}

func newLeveledLoggerAdapter(log selflog.Logger) *leveledLoggerAdapter {
	return &leveledLoggerAdapter{log: log}
}

func (l *leveledLoggerAdapter) format(msg string, keysAndValues ...any) string {
	if len(keysAndValues) == 0 {
		return msg
	}
	out := msg
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out += fmt.Sprintf(" %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return out
}

func (l *leveledLoggerAdapter) Error(msg string, keysAndValues ...any) {
	l.log.Error(l.format(msg, keysAndValues...))
}

func (l *leveledLoggerAdapter) Info(msg string, keysAndValues ...any) {
	l.log.Info(l.format(msg, keysAndValues...))
}

func (l *leveledLoggerAdapter) Debug(msg string, keysAndValues ...any) {
	l.log.Debug(l.format(msg, keysAndValues...))
}

func (l *leveledLoggerAdapter) Warn(msg string, keysAndValues ...any) {
	l.log.Warn(l.format(msg, keysAndValues...))
}
