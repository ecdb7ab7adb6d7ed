package selflog

import (
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type jsonLogger struct {
	log *logrus.Entry
}

var _ Logger = (*jsonLogger)(nil)

// NewJSON returns a rotated JSON diagnostic logger. When path is empty it
// writes to stderr without rotation, which is the common case: most
// embedding applications do not want this SDK managing a second log file
// next to their own.
func NewJSON(path string) Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetLevel(logrus.DebugLevel)

	if path != "" {
		base.SetOutput(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		})
	}

	return &jsonLogger{log: logrus.NewEntry(base).WithField("component", "healops")}
}

func (l *jsonLogger) WithField(key string, value any) Logger {
	return &jsonLogger{log: l.log.WithField(key, value)}
}

func (l *jsonLogger) WithFields(fields map[string]any) Logger {
	return &jsonLogger{log: l.log.WithFields(fields)}
}

func (l *jsonLogger) Debug(message string) { l.log.Debug(message) }
func (l *jsonLogger) Info(message string)  { l.log.Info(message) }
func (l *jsonLogger) Warn(message string)  { l.log.Warn(message) }
func (l *jsonLogger) Error(message string) { l.log.Error(message) }
