package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger. Production environments get JSON output at
// info level; everything else gets colored console output at debug level.
// A non-empty level overrides the environment default.
func NewLogger(level, env string) (*zap.Logger, error) {
	var config zap.Config

	if isProduction(env) {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	switch {
	case level != "":
		config.Level = zap.NewAtomicLevelAt(lvl)
	case isProduction(env):
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

// Logger builds the logger described by the configuration.
func (c *Config) Logger() (*zap.Logger, error) {
	return NewLogger(c.LogLevel, c.Environment)
}

func isProduction(env string) bool {
	return env == "production" || env == "prod"
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(level)
}
