package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the service runtime parameters. Environment variables are
// parsed from the DEVCONNECT_ prefix, e.g. DEVCONNECT_POSTGRES_DSN.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":7777"`

	PostgresDSN string `envconfig:"POSTGRES_DSN" required:"true"`

	// RedisAddr is optional; empty disables cross-instance chat fan-out and
	// the hub delivers to local connections only.
	RedisAddr string `envconfig:"REDIS_ADDR" default:""`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// CookieSecure should stay true behind HTTPS; it exists so local
	// development over plain HTTP can opt out.
	CookieSecure bool `envconfig:"COOKIE_SECURE" default:"true"`

	ReminderEnabled  bool          `envconfig:"REMINDER_ENABLED" default:"true"`
	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"24h"`
}

// New creates a Config from the environment.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("DEVCONNECT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.ReminderInterval <= 0 {
		return nil, fmt.Errorf("reminder interval must be positive, got %s", cfg.ReminderInterval)
	}
	return &cfg, nil
}
