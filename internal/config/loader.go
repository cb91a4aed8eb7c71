package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CLERB_CONFIG is set
//  3. env (prefix CLERB_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("CLERB_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CLERB_DATABASE_URL -> database_url; underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider("CLERB_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "clerb_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "":
		if c.DatabasePath == "" {
			return fmt.Errorf("%w: database_path is required for sqlite", ErrInvalidConfig)
		}
	case "postgres", "postgresql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported database_type %q", ErrInvalidConfig, c.DatabaseType)
	}
	if c.ListenChanges && !c.IsPostgres() {
		return fmt.Errorf("%w: listen_changes requires postgres", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json", "":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	if c.CatalogRatePerSecond <= 0 || c.CatalogBurst < 1 {
		return fmt.Errorf("%w: catalog rate and burst must be positive", ErrInvalidConfig)
	}
	return nil
}

// IsPostgres reports whether the configured store is PostgreSQL.
func (c *Config) IsPostgres() bool {
	switch strings.ToLower(c.DatabaseType) {
	case "postgres", "postgresql":
		return true
	}
	return false
}
