// Package logging provides the structured logger used across fastrtc-go.
//
// The shape follows the sugared zap logger the rest of the stack is written
// against: keyed fields (Infow/Warnw/Errorw/Debugw) for structured call
// sites, and printf-style helpers (Infof/Debugf) for the cases that don't
// warrant fields.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging contract used throughout the codebase.
// Every component takes one of these rather than reaching for a package
// level logger, so tests can inject a no-op or observed logger.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})

	Info(args ...interface{})

	// With returns a logger with the given keyed fields pre-bound, for
	// per-session loggers (e.g. correlation id attached once).
	With(kv ...interface{}) Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewApplicationLogger builds the default production logger: JSON encoded,
// at info level (use NewLogger for another level), and returns a
// flush/sync function the caller should defer.
func NewApplicationLogger() (Logger, func() error) {
	return NewLogger("info")
}

// NewLogger builds a logger at the given level ("debug", "info", "warn",
// "error"). An unrecognized level falls back to info.
func NewLogger(level string) (Logger, func() error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zap.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build()
	if err != nil {
		// Should only happen on an invalid config; fall back to a no-op
		// core so callers never have to nil-check the returned Logger.
		base = zap.NewNop()
	}

	l := &zapLogger{s: base.Sugar()}
	return l, base.Sync
}

// NewTestLogger returns a Logger suitable for unit tests: human readable,
// debug level, writes to stderr.
func NewTestLogger() Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	base, _ := cfg.Build()
	return &zapLogger{s: base.Sugar()}
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }

func (l *zapLogger) Info(args ...interface{}) { l.s.Info(args...) }

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}
