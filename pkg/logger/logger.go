package logger

import (
	stdLog "log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	LogLevel zapcore.Level `yaml:"level" envconfig:"LOG_LEVEL"`
	Sink     string        `yaml:"sink" envconfig:"LOG_SINK"`
}

// NewLogger builds a named zap logger writing to stderr and, if set, cfg.Sink.
func NewLogger(cfg Log, name string) *zap.Logger {
	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Sink != "" {
		c.OutputPaths = append(c.OutputPaths, cfg.Sink)
	}
	log, err := c.Build()
	if err != nil {
		stdLog.Fatal("logger build ", err)
	}
	return log.Named(name)
}
