package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// jwtSecretMinLen is the minimum length for the JWT signing secret.
	// Shorter secrets do not provide enough entropy for HMAC-SHA256.
	jwtSecretMinLen = 32
)

// Config holds all environment-based configuration for the sync server.
type Config struct {
	// Address the HTTP server listens on.
	Address string `env:"FIELDSYNC_ADDRESS" envDefault:":8080"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `env:"FIELDSYNC_DB" envDefault:"fieldsync-server.db"`

	// JWTSecret signs site access tokens. Required.
	JWTSecret string `env:"FIELDSYNC_JWT_SECRET"`

	// TokenTTL is the lifetime of minted site tokens. Field sites work
	// offline for long stretches, so the default is one year.
	TokenTTL time.Duration `env:"FIELDSYNC_TOKEN_TTL" envDefault:"8760h"`

	// Rate limiting per client IP.
	RateLimit  int           `env:"FIELDSYNC_RATE_LIMIT" envDefault:"300"`
	RateWindow time.Duration `env:"FIELDSYNC_RATE_WINDOW" envDefault:"1m"`

	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `env:"FIELDSYNC_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// LogLevel controls log verbosity: debug, info, warn or error.
	LogLevel string `env:"FIELDSYNC_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("FIELDSYNC_JWT_SECRET is required")
	}

	if len(c.JWTSecret) < jwtSecretMinLen {
		return fmt.Errorf("FIELDSYNC_JWT_SECRET must be at least %d characters", jwtSecretMinLen)
	}

	if c.RateLimit <= 0 {
		return fmt.Errorf("FIELDSYNC_RATE_LIMIT must be positive")
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("FIELDSYNC_TOKEN_TTL must be positive")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("FIELDSYNC_LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
