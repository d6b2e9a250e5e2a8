// Package xlog wraps zap for the structured logging used throughout
// the scopy and tcp transport cores. Every interface takes one logger
// at construction time (a no-op logger when given nil) and threads it
// down to its endpoints; nothing here is global mutable state.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package xlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger appropriate for production use, switching to a
// development encoder (human-readable, caller-annotated) when
// UCX_DEBUG is set in the environment — mirroring the teacher's
// environment-driven debug toggles in control/debug.go.
func New(component string) *zap.Logger {
	var cfg zap.Config
	if os.Getenv("UCX_DEBUG") != "" {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		// zap's own construction failing means stderr is unusable;
		// fall back to a logger that discards everything rather than
		// panic inside a constructor.
		logger = zap.NewNop()
	}
	return logger.Named(component)
}

// Nop returns a logger that discards everything, for tests that don't
// want log noise but need a non-nil *zap.Logger to satisfy a
// constructor.
func Nop() *zap.Logger {
	return zap.NewNop()
}
