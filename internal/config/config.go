package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        int    `env:"PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// BaseURL is used to build absolute profile picture URLs.
	BaseURL  string `env:"BASE_URL,default=http://localhost:8080"`
	MediaDir string `env:"MEDIA_DIR,default=./media"`

	// MaxRequestBytes caps the declared request size (default 5 MiB).
	MaxRequestBytes int64 `env:"MAX_REQUEST_BYTES,default=5242880"`

	CORSOrigins []string `env:"CORS_ORIGINS"`

	// Admin authentication (Google OIDC). Leaving GOOGLE_CLIENT_ID empty
	// disables the admin key-management endpoints.
	GoogleClientID      string   `env:"GOOGLE_CLIENT_ID"`
	GoogleAllowedDomain string   `env:"GOOGLE_ALLOWED_DOMAIN"`
	GoogleAllowedEmails []string `env:"GOOGLE_ALLOWED_EMAILS"`

	// HTTP server timeouts
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT,default=60s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxRequestBytes < 1 {
		return fmt.Errorf("MAX_REQUEST_BYTES must be positive, got %d", c.MaxRequestBytes)
	}
	if c.GoogleClientID != "" && c.GoogleAllowedDomain == "" && len(c.GoogleAllowedEmails) == 0 {
		return fmt.Errorf("admin auth requires GOOGLE_ALLOWED_DOMAIN or GOOGLE_ALLOWED_EMAILS")
	}
	return nil
}

// AdminEnabled reports whether the admin key-management API is configured.
func (c *Config) AdminEnabled() bool {
	return c.GoogleClientID != ""
}
