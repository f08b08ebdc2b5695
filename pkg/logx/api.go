package logx

import (
	"fmt"
	"os"
	"strings"
)

// defaultLogger is the package-level logger, configured from the environment:
// LOG_LEVEL (debug|info|warn|error|off) and LOG_FORMAT (console|json).
var defaultLogger *Logger

func init() {
	defaultLogger = NewLogger()
	defaultLogger.SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		defaultLogger.SetJSON(true)
	}
}

// SetDefaultLogger replaces the package-level logger.
func SetDefaultLogger(l *Logger) {
	defaultLogger = l
}

// SetLevel sets the level of the package-level logger.
func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
}

// Debug logs a debug level message.
func Debug(msg string) { defaultLogger.log(LevelDebug, msg, nil) }

// Info logs an info level message.
func Info(msg string) { defaultLogger.log(LevelInfo, msg, nil) }

// Warn logs a warning level message.
func Warn(msg string) { defaultLogger.log(LevelWarn, msg, nil) }

// Error logs an error level message.
func Error(msg string) { defaultLogger.log(LevelError, msg, nil) }

// Fatal logs a fatal message and exits.
func Fatal(msg string) {
	defaultLogger.log(LevelFatal, msg, nil)
	defaultLogger.exitFn(1)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...any) {
	defaultLogger.log(LevelDebug, fmt.Sprintf(format, args...), nil)
}

// Infof logs a formatted info message.
func Infof(format string, args ...any) {
	defaultLogger.log(LevelInfo, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...any) {
	defaultLogger.log(LevelWarn, fmt.Sprintf(format, args...), nil)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...any) {
	defaultLogger.log(LevelError, fmt.Sprintf(format, args...), nil)
}

// Fatalf logs a formatted fatal message and exits.
func Fatalf(format string, args ...any) {
	defaultLogger.log(LevelFatal, fmt.Sprintf(format, args...), nil)
	defaultLogger.exitFn(1)
}

// WithFields starts an entry with fields on the package-level logger.
func WithFields(fields Fields) *Entry {
	return defaultLogger.WithFields(fields)
}

// WithField starts an entry with a single field.
func WithField(key string, value any) *Entry {
	return defaultLogger.WithField(key, value)
}

// WithError starts an entry with an error field.
func WithError(err error) *Entry {
	return defaultLogger.WithError(err)
}
