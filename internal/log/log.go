package log

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logging goes to stderr; stdout is reserved for inventory JSON.
var logger = newLogger("info", "console")

// Configure sets the global log level and output format.
// Level is one of trace, debug, info, warn, error; format is "console" or "json".
func Configure(level, format string) {
	logger = newLogger(level, format)
}

func newLogger(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(parseLevel(level))
	if strings.ToLower(format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{})
	}
	return l
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// fields converts alternating key/value arguments into structured fields.
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		f[key] = args[i+1]
	}
	return f
}

// Debug logs a debug message with key/value pairs
func Debug(msg string, args ...any) {
	logger.WithFields(fields(args)).Debug(msg)
}

// Info logs an informational message with key/value pairs
func Info(msg string, args ...any) {
	logger.WithFields(fields(args)).Info(msg)
}

// Warn logs a warning message with key/value pairs
func Warn(msg string, args ...any) {
	logger.WithFields(fields(args)).Warn(msg)
}

// Error logs an error message with key/value pairs
func Error(msg string, args ...any) {
	logger.WithFields(fields(args)).Error(msg)
}
