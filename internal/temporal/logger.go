// Package temporal bridges the Temporal SDK's logging interface onto
// the zap logger the rest of the service uses.
package temporal

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// zapLogger forwards Temporal SDK log lines to zap. The SDK passes
// alternating key/value pairs; odd tails and non-string keys are
// dropped rather than panicking inside a log call.
type zapLogger struct {
	base *zap.Logger
}

// NewLogger wraps a zap logger for use as the Temporal client/worker
// logger.
func NewLogger(base *zap.Logger) log.Logger {
	return &zapLogger{base: base}
}

func (l *zapLogger) Debug(msg string, keyvals ...interface{}) {
	l.base.Debug(msg, fields(keyvals)...)
}

func (l *zapLogger) Info(msg string, keyvals ...interface{}) {
	l.base.Info(msg, fields(keyvals)...)
}

func (l *zapLogger) Warn(msg string, keyvals ...interface{}) {
	l.base.Warn(msg, fields(keyvals)...)
}

func (l *zapLogger) Error(msg string, keyvals ...interface{}) {
	l.base.Error(msg, fields(keyvals)...)
}

func fields(keyvals []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		switch v := keyvals[i+1].(type) {
		case error:
			out = append(out, zap.NamedError(key, v))
		default:
			out = append(out, zap.Any(key, v))
		}
	}
	return out
}
