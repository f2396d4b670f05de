// Package logger holds the process-wide zap logger of the VM wizard service and the
// request-scoped loggers derived from it.
//
// The level is a zap.AtomicLevel so /log/level can change it at runtime. A request
// logger carries request_id, and session_id on session routes; handlers and middleware
// fetch it with From.
//
// Import Path: kv-shepherd.io/vmwizard/internal/pkg/logger
package logger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global      *zap.Logger
	atomicLevel = zap.NewAtomicLevel()
	once        sync.Once
)

// Init builds the global logger once. level is debug, info, warn or error; format is
// json or console. Later calls are no-ops.
func Init(level, format string) error {
	var initErr error
	once.Do(func() {
		if err := atomicLevel.UnmarshalText([]byte(level)); err != nil {
			initErr = fmt.Errorf("parse log level %q: %w", level, err)
			return
		}

		cfg := zap.NewProductionConfig()
		if format == "console" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.Level = atomicLevel

		l, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			initErr = fmt.Errorf("build logger: %w", err)
			return
		}
		global = l
	})
	return initErr
}

// Level returns the current level.
func Level() zapcore.Level { return atomicLevel.Level() }

// L returns the global logger. Panics if Init has not been called.
func L() *zap.Logger {
	if global == nil {
		panic("logger.Init() must be called before logger.L()")
	}
	return global
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// Named creates a child logger for a component, e.g. "wizard" or "session".
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Replace swaps the global logger and returns a func restoring the previous one.
// Tests use it to observe what the package functions log.
func Replace(l *zap.Logger) (restore func()) {
	prev := global
	global = l
	return func() { global = prev }
}

type ctxKey struct{}

// WithFields returns ctx carrying the logger of ctx extended with fields.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, ctxKey{}, From(ctx).With(fields...))
}

// From returns the request logger of ctx, or the global logger when there is none.
// The request logger does not skip a caller frame, unlike the package functions.
// Before Init it returns a no-op logger.
func From(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	if global == nil {
		return zap.NewNop()
	}
	return global.WithOptions(zap.AddCallerSkip(-1))
}

// HTTPHandler serves the current level on GET and changes it on PUT {"level":"debug"}.
// The router mounts it at /log/level.
func HTTPHandler() *zap.AtomicLevel {
	return &atomicLevel
}

// Sync flushes buffered entries.
func Sync() error {
	if global == nil {
		return nil
	}
	return global.Sync()
}
