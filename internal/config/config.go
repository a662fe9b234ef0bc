package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" default:"development"`
	Port     string `env:"PORT" default:"8500"`
	RedisURL string `env:"REDIS_URL"`

	// LaunchCooldown is the minimum spacing between launches per client.
	LaunchCooldown time.Duration `env:"LAUNCH_COOLDOWN" default:"300ms"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	MaxConnections int `env:"MAX_CONNECTIONS" default:"10000"`

	StaticDir string `env:"STATIC_DIR" default:"web/static"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if cfg.LaunchCooldown <= 0 {
		return fmt.Errorf("LAUNCH_COOLDOWN must be positive, got %v", cfg.LaunchCooldown)
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", cfg.MaxConnections)
	}
	return nil
}
