package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newDebugLogger builds the write-only debug sink. With debug disabled it is
// a nop; enabled, it appends console-encoded lines to the configured file.
// Never stdout/stderr: the terminal belongs to the UI.
func newDebugLogger(cfg config, path string) (*zap.Logger, error) {
	if !cfg.Debug {
		return zap.NewNop(), nil
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	zcfg.OutputPaths = []string{path}
	zcfg.ErrorOutputPaths = []string{path}
	return zcfg.Build()
}
