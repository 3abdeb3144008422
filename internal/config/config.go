// Package config loads the client configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bookshelf/internal/session"
)

// Config holds settings shared by every bk command. Command-line flags
// override the values loaded here.
type Config struct {
	APIRoot    string        `env:"BOOKSHELF_API_ROOT" envDefault:"http://localhost:8000"`
	APITimeout time.Duration `env:"BOOKSHELF_API_TIMEOUT" envDefault:"5s"`

	// DSN switches the client to direct database mode.
	DSN    string `env:"BOOKSHELF_DSN"`
	UserID string `env:"BOOKSHELF_USER_ID"`

	ConfigDir string  `env:"BOOKSHELF_CONFIG_DIR"`
	Debug     bool    `env:"BOOKSHELF_DEBUG"`
	NDLRoot   string  `env:"BOOKSHELF_NDL_ROOT" envDefault:"https://ndlsearch.ndl.go.jp"`
	SearchRPS float64 `env:"BOOKSHELF_SEARCH_RPS" envDefault:"1"`
}

// Load parses the environment and fills derived defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = session.DefaultDir()
	}
	return cfg, cfg.Validate()
}

// Validate checks values that env parsing alone cannot.
func (c Config) Validate() error {
	if c.APITimeout <= 0 {
		return fmt.Errorf("BOOKSHELF_API_TIMEOUT must be positive, got %s", c.APITimeout)
	}
	if c.SearchRPS < 0 {
		return fmt.Errorf("BOOKSHELF_SEARCH_RPS must not be negative, got %v", c.SearchRPS)
	}
	if c.UserID != "" {
		if _, err := uuid.FromString(c.UserID); err != nil {
			return fmt.Errorf("BOOKSHELF_USER_ID: %w", err)
		}
	}
	return nil
}

// Direct reports whether commands talk to PostgreSQL instead of the API.
func (c Config) Direct() bool { return c.DSN != "" }

// FixedUser returns the user configured for direct mode, if any.
func (c Config) FixedUser() (uuid.UUID, bool) {
	if c.UserID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.FromString(c.UserID)
	return id, err == nil
}
