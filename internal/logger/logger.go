package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rl1809/item-stock/internal/config"
)

// New builds the application logger. An unknown level falls back to info.
func New(cfg config.LoggerConfig, appEnv string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if appEnv == "development" || appEnv == "dev" {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	if cfg.Encoding != "" {
		zapCfg.Encoding = cfg.Encoding
	}
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.DisableCaller = cfg.DisableCaller
	zapCfg.DisableStacktrace = cfg.DisableStacktrace

	return zapCfg.Build()
}
