package logger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stockwatch/pkg/errors"
)

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// Logger wraps zap.SugaredLogger and mirrors error-level entries to an error tracker
type Logger struct {
	*zap.SugaredLogger
	errorTracker errors.Tracker
}

// Init initializes the global logger. env "production" selects the JSON encoder.
func Init(level string, env string) error {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	base, err := config.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return errors.Wrap(err, "build zap logger")
	}

	globalMu.Lock()
	globalLogger = &Logger{SugaredLogger: base.Sugar()}
	globalMu.Unlock()
	return nil
}

// SetErrorTracker enables automatic error reporting for loggers derived after the call
func SetErrorTracker(tracker errors.Tracker) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger != nil {
		globalLogger.errorTracker = tracker
	}
}

// Get returns the global logger, falling back to a development logger before Init
func Get() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		base, _ := zap.NewDevelopment()
		globalLogger = &Logger{SugaredLogger: base.Sugar()}
	}
	return globalLogger
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// With creates a child logger with additional key/value fields
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(args...),
		errorTracker:  l.errorTracker,
	}
}

// WithFields creates a child logger from a field map
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.With(args...)
}

// Errorw logs a structured error entry and forwards it to the tracker.
// An "error" key in keysAndValues is reported as the captured error.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
	l.capture(context.Background(), msg, keysAndValues)
}

// Errorf logs a formatted error and forwards it to the tracker
func (l *Logger) Errorf(template string, args ...interface{}) {
	l.SugaredLogger.Errorf(template, args...)
	if l.errorTracker != nil {
		_ = l.errorTracker.CaptureError(context.Background(), fmt.Errorf(template, args...), nil)
	}
}

// ErrorWithContext logs err and sends it to the tracker with ctx tags
func (l *Logger) ErrorWithContext(ctx context.Context, err error, tags map[string]string) {
	l.SugaredLogger.Errorw(err.Error(), "tags", tags)
	if l.errorTracker != nil {
		_ = l.errorTracker.CaptureError(ctx, err, tags)
	}
}

func (l *Logger) capture(ctx context.Context, msg string, kv []interface{}) {
	if l.errorTracker == nil {
		return
	}
	var cause error
	tags := make(map[string]string)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if e, isErr := kv[i+1].(error); isErr && key == "error" {
			cause = e
			continue
		}
		tags[key] = fmt.Sprint(kv[i+1])
	}
	err := errors.New(msg)
	if cause != nil {
		err = errors.Wrap(cause, msg)
	}
	_ = l.errorTracker.CaptureError(ctx, err, tags)
}

// Package-level helpers on the global logger
func Debugw(msg string, kv ...interface{}) { Get().Debugw(msg, kv...) }
func Infow(msg string, kv ...interface{})  { Get().Infow(msg, kv...) }
func Warnw(msg string, kv ...interface{})  { Get().Warnw(msg, kv...) }
func Errorw(msg string, kv ...interface{}) { Get().Errorw(msg, kv...) }
func Fatalw(msg string, kv ...interface{}) { Get().Fatalw(msg, kv...) }

// Sync flushes any buffered log entries
func Sync() error {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}
