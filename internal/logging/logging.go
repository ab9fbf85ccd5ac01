// Package logging builds the gateway's structured logger (spec.md 6.5's
// logging.{level,console,file} keys).
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Level is one of "error", "warning", "info", "debug" (spec.md 6.5).
	Level string
	// Console, if true, uses zap's human-readable console encoder instead
	// of JSON.
	Console bool
	// File, if non-empty, additionally writes the log to this path.
	File string
}

// levelAliases maps spec.md's level vocabulary onto zap's, since zap has
// no "warning" level (it calls it "warn").
var levelAliases = map[string]string{
	"error":   "error",
	"warning": "warn",
	"warn":    "warn",
	"info":    "info",
	"debug":   "debug",
}

// Build constructs a *zap.Logger per opts. An empty Level defaults to
// "info".
func Build(opts Options) (*zap.Logger, error) {
	level := opts.Level
	if level == "" {
		level = "info"
	}
	zapLevelName, ok := levelAliases[level]
	if !ok {
		return nil, fmt.Errorf("logging: unknown level %q", opts.Level)
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(zapLevelName)); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	var cfg zap.Config
	if opts.Console {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	if opts.File != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, opts.File)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, opts.File)
	}

	return cfg.Build()
}
