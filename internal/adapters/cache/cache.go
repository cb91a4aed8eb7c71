// Package cache stores JSON-encoded values with a time to live. Catalog
// search results and image URL spine colors are kept here.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/okian/clerb/pkg/metrics"
)

// ErrCache wraps backend failures.
var ErrCache = errors.New("cache error")

// Cache is a key/value store for JSON values.
type Cache interface {
	// Get decodes the value under key into dst. It reports false on a miss.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set stores v under key. A ttl <= 0 keeps the value until deleted.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

func record(hit bool) bool {
	metrics.RecordCacheLookup(hit)
	return hit
}
