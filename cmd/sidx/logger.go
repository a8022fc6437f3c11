package main

import (
	"go.uber.org/zap"
)

// newLogger builds a stderr JSON logger; --verbose lowers the level to debug.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
