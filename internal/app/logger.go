package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger собирает логгер сервиса с уровнем из LOG_LEVEL
func NewLogger(env string, level zapcore.Level) *zap.Logger {
	logger, err := loggerConfig(env, level).Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger
}

// В production пишем JSON для сборщика логов, в остальных окружениях
// цветной консольный вывод
func loggerConfig(env string, level zapcore.Level) zap.Config {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stdout"}
	cfg.InitialFields = map[string]any{"service": "slotswap", "env": env}
	return cfg
}
