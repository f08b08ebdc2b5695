package logx

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// Fields is a set of structured key/value pairs attached to a log line.
type Fields map[string]any

// Logger is a leveled logger writing either human-readable console lines or
// one JSON object per line.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	json   bool
	exitFn func(int)
}

// NewLogger creates a logger writing console lines to stderr at info level.
func NewLogger() *Logger {
	return &Logger{
		out:    os.Stderr,
		level:  LevelInfo,
		exitFn: os.Exit,
	}
}

// SetLevel sets the minimum level that gets written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput redirects log output.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// SetJSON switches between JSON and console formatting.
func (l *Logger) SetJSON(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.json = enabled
}

// WithFields starts an entry carrying structured fields.
func (l *Logger) WithFields(fields Fields) *Entry {
	e := &Entry{logger: l, fields: make(Fields, len(fields))}
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithField starts an entry carrying a single field.
func (l *Logger) WithField(key string, value any) *Entry {
	return l.WithFields(Fields{key: value})
}

// WithError starts an entry carrying an error field.
func (l *Logger) WithError(err error) *Entry {
	e := &Entry{logger: l, fields: make(Fields, 1)}
	if err != nil {
		e.fields["error"] = err.Error()
	}
	return e
}

func (l *Logger) log(level Level, msg string, fields Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	now := time.Now()
	if l.json {
		line := make(map[string]any, len(fields)+3)
		for k, v := range fields {
			line[k] = v
		}
		line["time"] = now.Format(time.RFC3339)
		line["level"] = level.String()
		line["msg"] = msg
		b, err := json.Marshal(line)
		if err != nil {
			fmt.Fprintf(l.out, `{"level":"ERROR","msg":"logx: marshal failed: %v"}`+"\n", err)
			return
		}
		l.out.Write(append(b, '\n'))
		return
	}

	fmt.Fprintf(l.out, "%s [%-5s] %s", now.Format("2006-01-02 15:04:05"), level.String(), msg)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(l.out, " %s=%v", k, fields[k])
		}
	}
	fmt.Fprintln(l.out)
}

// Entry accumulates fields before emitting a single log line.
type Entry struct {
	logger *Logger
	fields Fields
}

// WithField adds a field to the entry (chainable).
func (e *Entry) WithField(key string, value any) *Entry {
	e.fields[key] = value
	return e
}

// WithFields adds multiple fields to the entry (chainable).
func (e *Entry) WithFields(fields Fields) *Entry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithError adds an error field (chainable).
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.fields["error"] = err.Error()
	}
	return e
}

func (e *Entry) Debug(msg string) { e.logger.log(LevelDebug, msg, e.fields) }
func (e *Entry) Info(msg string)  { e.logger.log(LevelInfo, msg, e.fields) }
func (e *Entry) Warn(msg string)  { e.logger.log(LevelWarn, msg, e.fields) }
func (e *Entry) Error(msg string) { e.logger.log(LevelError, msg, e.fields) }

func (e *Entry) Debugf(format string, args ...any) {
	e.logger.log(LevelDebug, fmt.Sprintf(format, args...), e.fields)
}
func (e *Entry) Infof(format string, args ...any) {
	e.logger.log(LevelInfo, fmt.Sprintf(format, args...), e.fields)
}
func (e *Entry) Warnf(format string, args ...any) {
	e.logger.log(LevelWarn, fmt.Sprintf(format, args...), e.fields)
}
func (e *Entry) Errorf(format string, args ...any) {
	e.logger.log(LevelError, fmt.Sprintf(format, args...), e.fields)
}

// Fatal logs the message and exits.
func (e *Entry) Fatal(msg string) {
	e.logger.log(LevelFatal, msg, e.fields)
	e.logger.exitFn(1)
}
