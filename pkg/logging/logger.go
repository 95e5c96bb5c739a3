package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. Level is a logrus level name and falls back
// to INFO when it cannot be parsed. Format "json" selects logrus's JSON output,
// "plain" the key=value formatter without colors, anything else the colored one.
func NewLogger(level, format string) *logrus.Logger {
	return newLogger(os.Stderr, level, format)
}

// FromEnv is NewLogger configured by LOG_LEVEL and LOG_FORMAT
func FromEnv() *logrus.Logger {
	return NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func newLogger(out io.Writer, level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "plain":
		f := NewColoredFormatter()
		f.DisableColors = true
		log.SetFormatter(f)
	default:
		log.SetFormatter(NewColoredFormatter())
	}

	if parsed, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	} else {
		log.SetLevel(logrus.InfoLevel)
		if level != "" {
			log.WithFields(logrus.Fields{
				"attempted_level": level,
				"default_level":   "INFO",
			}).Warn("Invalid log level specified, defaulting to INFO")
		}
	}
	return log
}

// HasFormatter reports whether log already uses one of the formatters this
// package installs
func HasFormatter(log *logrus.Logger) bool {
	switch log.Formatter.(type) {
	case *ColoredFormatter, *logrus.JSONFormatter:
		return true
	}
	return false
}
