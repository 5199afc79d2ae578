// Package config loads the dromos command configuration from the environment.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the configuration of the dromos command.
type Config struct {
	Addr            string        `env:"DROMOS_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"DROMOS_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"DROMOS_LOG_FORMAT" envDefault:"json"`
	Origins         []string      `env:"DROMOS_ORIGINS" envSeparator:","`
	ReadLimit       int64         `env:"DROMOS_READ_LIMIT" envDefault:"32768"`
	BodyLimit       int64         `env:"DROMOS_BODY_LIMIT" envDefault:"1048576"`
	MetricsPath     string        `env:"DROMOS_METRICS_PATH" envDefault:"/metrics"`
	NATSURL         string        `env:"DROMOS_NATS_URL"`
	NATSSubject     string        `env:"DROMOS_NATS_SUBJECT" envDefault:"dromos.relay"`
	ShutdownTimeout time.Duration `env:"DROMOS_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads the configuration from .env and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
