package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Level   string
	Env     string
	Service string
}

// NewLogger builds a console logger for local and dev, JSON for prod.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Env == "prod" {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	fields := []zap.Field{zap.String("env", cfg.Env)}
	if cfg.Service != "" {
		fields = append(fields, zap.String("service", cfg.Service))
	}

	return zapCfg.Build(zap.Fields(fields...))
}

func (c *Config) LoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:   c.LogLevel,
		Env:     c.Env,
		Service: c.Telemetry.ServiceName,
	}
}
