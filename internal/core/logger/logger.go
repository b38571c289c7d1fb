package logger

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global atomic.Pointer[zap.Logger]
	nop    = zap.NewNop()
)

// Init builds the process logger and installs it globally.
// Production writes JSON with ISO8601 timestamps, anything else writes
// coloured console output. An unknown level falls back to info.
func Init(environment string, level string, fields ...zap.Field) error {
	cfg := configFor(environment)

	lvl, lvlErr := zapcore.ParseLevel(level)
	if lvlErr != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build(zap.Fields(fields...))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	if lvlErr != nil {
		l.Warn("Unknown log level, using info", zap.String("level", level))
	}

	global.Store(l)
	return nil
}

func configFor(environment string) zap.Config {
	if environment == "production" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// Set replaces the global logger. Tests use it with an observer core.
func Set(l *zap.Logger) {
	global.Store(l)
}

// Get returns the global logger, or a no-op logger before Init.
func Get() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	return nop
}

// Ctx returns the global logger tagged with the trace and span ids of the
// span carried by ctx, so log lines can be joined to traces.
func Ctx(ctx context.Context) *zap.Logger {
	l := Get()
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// Sync flushes any buffered log entries.
func Sync() {
	if l := global.Load(); l != nil {
		_ = l.Sync()
	}
}
