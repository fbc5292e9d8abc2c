package logging

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap.Logger honoring the log-level and log-format configured via Viper.
// The console format drops timestamps and callers so progress notices stay readable.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch format := viper.GetString("log-format"); format {
	case "", "json":
	case "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig.TimeKey = zapcore.OmitKey
		cfg.EncoderConfig.CallerKey = zapcore.OmitKey
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	levelStr := viper.GetString("log-level")
	if levelStr != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(levelStr)); err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}
