// Package logging provides structured JSON logging with correlation-ID
// propagation. The teacher service logged via stdlib log.Printf with a
// bracketed component tag ("[CLEANUP] ..."); this package keeps that
// per-component convention but renders it as a logrus field so every line
// is a JSON object with timestamp, level, logger, message, module,
// function, line, and an optional correlation_id/exception.
package logging

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

type correlationIDKey struct{}

// WithCorrelationID returns a context carrying the correlation ID so that
// loggers derived via FromContext attach it automatically.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID extracts a correlation ID previously stored with
// WithCorrelationID, or "" if none is present.
func CorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey{}).(string)
	return v
}

var base = newBaseLogger()

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the global log level (DEBUG, INFO, WARN, ERROR).
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)
	// Third-party library chatter (driver, nats client) stays at WARN.
	logrus.SetLevel(logrus.WarnLevel)
}

// Logger is a thin wrapper binding a "module" field (the component tag)
// to every emitted line, plus call-site function/line metadata.
type Logger struct {
	entry *logrus.Entry
}

// For returns a Logger tagged with the given module/component name, e.g.
// For("scheduler") for every line the job scheduler emits.
func For(module string) *Logger {
	return &Logger{entry: base.WithFields(logrus.Fields{"logger": module, "module": module})}
}

// WithContext attaches the correlation ID (if any) found on ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	id := CorrelationID(ctx)
	if id == "" {
		return l
	}
	return &Logger{entry: l.entry.WithField("correlation_id", id)}
}

func (l *Logger) withCaller() *logrus.Entry {
	pc, _, line, ok := runtime.Caller(2)
	if !ok {
		return l.entry
	}
	function := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = fn.Name()
	}
	return l.entry.WithField("line", line).WithField("function", function)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.withCaller().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.withCaller().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.withCaller().Warnf(format, args...) }

// Errorf logs at ERROR level. If err is non-nil its type and message are
// attached as an "exception" field, per the spec's structured-log shape.
func (l *Logger) Errorf(err error, format string, args ...interface{}) {
	entry := l.withCaller()
	if err != nil {
		entry = entry.WithField("exception", map[string]string{
			"type":    errTypeName(err),
			"message": err.Error(),
		})
	}
	entry.Errorf(format, args...)
}

func errTypeName(err error) string {
	return fmt.Sprintf("%T", err)
}
