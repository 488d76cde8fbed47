package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process wide logger.
var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stdout
	l.Level = logrus.InfoLevel
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}
	return l
}

// Configure applies a level name ("debug", "info", ...) and a format ("json" or "text").
func Configure(level, format string) error {
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return err
		}
		Logger.SetLevel(lvl)
	}
	if format == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// SetOutput sets the logger output.
func SetOutput(out io.Writer) {
	Logger.SetOutput(out)
}

// WithField starts an entry with one field.
func WithField(key string, value any) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields starts an entry with several fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithError starts an entry carrying err.
func WithError(err error) *logrus.Entry {
	return Logger.WithError(err)
}

func Infof(format string, args ...any) { Logger.Infof(format, args...) }
