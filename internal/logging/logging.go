// Package logging builds the zap loggers used by the binaries.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger at the given level
// (debug, info, warn, error). Debug switches to the console encoder.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// Must is New for process startup, falling back to info on a bad level.
func Must(level string) *zap.Logger {
	l, err := New(level)
	if err == nil {
		return l
	}
	l, berr := New("info")
	if berr != nil {
		panic(berr)
	}
	l.Warn("invalid log level, using info", zap.String("level", level), zap.Error(err))
	return l
}
