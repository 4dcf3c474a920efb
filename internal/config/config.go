package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

const (
	defaultHTTPAddr      = ":8080"
	defaultAuditInterval = time.Hour
	defaultDBMaxConns    = 10
)

type Config struct {
	TelegramToken string
	DBDSN         string
	Environment   string
	HTTPAddr      string
	AuditInterval time.Duration
	DBMaxConns    int32
	LogLevel      zapcore.Level
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		Environment:   envOr("ENV", "development"),
		HTTPAddr:      envOr("HTTP_ADDR", defaultHTTPAddr),
		AuditInterval: defaultAuditInterval,
		DBMaxConns:    defaultDBMaxConns,
		LogLevel:      zapcore.InfoLevel,
	}

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}

	if raw := os.Getenv("AUDIT_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil || interval <= 0 {
			return nil, fmt.Errorf("AUDIT_INTERVAL must be a positive duration, got %q", raw)
		}
		cfg.AuditInterval = interval
	}

	if raw := os.Getenv("DB_MAX_CONNS"); raw != "" {
		conns, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || conns <= 0 {
			return nil, fmt.Errorf("DB_MAX_CONNS must be a positive integer, got %q", raw)
		}
		cfg.DBMaxConns = int32(conns)
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

// RequireTelegram проверяет токен бота; миграциям он не нужен
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
