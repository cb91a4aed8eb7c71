// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and CLERB_ environment variables on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DatabaseType is sqlite or postgres.
	DatabaseType string `koanf:"database_type"`

	// DatabasePath is the SQLite file path.
	DatabasePath string `koanf:"database_path"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `koanf:"database_url"`

	// ListenChanges subscribes to Postgres NOTIFY so writes from other
	// instances reach local change-feed subscribers.
	ListenChanges bool `koanf:"listen_changes"`

	// RedisAddr enables the Redis cache when non-empty.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// CacheTTLSeconds bounds how long catalog results and spine colors are cached.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// GoogleBooksKey is appended to search requests when set.
	GoogleBooksKey string `koanf:"google_books_key"`
	GoogleBooksURL string `koanf:"google_books_url"`
	OpenLibraryURL string `koanf:"open_library_url"`

	// CatalogRatePerSecond and CatalogBurst throttle outbound catalog calls.
	CatalogRatePerSecond float64 `koanf:"catalog_rate_per_second"`
	CatalogBurst         int     `koanf:"catalog_burst"`
	CatalogTimeoutMS     int     `koanf:"catalog_timeout_ms"`

	// ColorQueueSize bounds pending spine color jobs.
	ColorQueueSize int `koanf:"color_queue_size"`

	// ColorWorkerCount sets the number of spine color workers.
	ColorWorkerCount int `koanf:"color_worker_count"`

	// DedupeSize sets the size of the pending-job and change-id dedupe sets.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		DatabaseType:         "sqlite",
		DatabasePath:         "clerb.db",
		CacheTTLSeconds:      3600,
		GoogleBooksURL:       "https://www.googleapis.com/books/v1",
		OpenLibraryURL:       "https://openlibrary.org",
		CatalogRatePerSecond: 5,
		CatalogBurst:         10,
		CatalogTimeoutMS:     8000,
		ColorQueueSize:       1024,
		ColorWorkerCount:     runtime.NumCPU(),
		DedupeSize:           10_000,
	}
}
