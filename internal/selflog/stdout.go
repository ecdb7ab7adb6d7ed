package selflog

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

type stdoutLogger struct {
	logger *slog.Logger
}

var _ Logger = (*stdoutLogger)(nil)

// NewStdout returns a tinted, human-readable diagnostic logger writing to
// stderr. Intended for local development, not for unattended processes.
func NewStdout() Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.TimeOnly,
	})
	return &stdoutLogger{logger: slog.New(handler).With(slog.String("component", "healops"))}
}

func (l *stdoutLogger) WithField(key string, value any) Logger {
	return &stdoutLogger{logger: l.logger.With(slog.Any(key, value))}
}

func (l *stdoutLogger) WithFields(fields map[string]any) Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &stdoutLogger{logger: l.logger.With(args...)}
}

func (l *stdoutLogger) Debug(message string) { l.logger.Log(context.Background(), slog.LevelDebug, message) }
func (l *stdoutLogger) Info(message string)  { l.logger.Info(message) }
func (l *stdoutLogger) Warn(message string)  { l.logger.Warn(message) }
func (l *stdoutLogger) Error(message string) { l.logger.Error(message) }
