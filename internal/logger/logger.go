package logger

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type Fields = logrus.Fields

type Logger struct {
	l *logrus.Entry
}

func New(l *logrus.Logger) *Logger {
	return &Logger{l: logrus.NewEntry(l)}
}

// Configure builds a logrus logger from the level/format pair in config.
func Configure(out io.Writer, level, format string) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	l.SetLevel(lvl)

	switch format {
	case "json":
		//nolint:exhaustruct
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		//nolint:exhaustruct
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return l, nil
}

func (l *Logger) With(fields Fields) *Logger {
	return &Logger{l: l.l.WithFields(fields)}
}

func (l *Logger) LogErrorf(format string, v ...any) {
	l.l.Errorf(format, v...)
}

func (l *Logger) LogInfo(format string, v ...any) {
	l.l.Infof(format, v...)
}

func (l *Logger) LogDebug(format string, v ...any) {
	l.l.Debugf(format, v...)
}
