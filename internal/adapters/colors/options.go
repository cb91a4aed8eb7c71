package colors

import (
	"net/http"
	"time"

	"github.com/okian/clerb/internal/adapters/cache"
)

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTTPClient replaces the client used to fetch images.
func WithHTTPClient(hc *http.Client) Option {
	return func(e *Extractor) {
		if hc != nil {
			e.http = hc
		}
	}
}

// WithCache remembers sampled colors per URL for ttl.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(e *Extractor) {
		e.cache = store
		if ttl > 0 {
			e.cacheTTL = ttl
		}
	}
}

// WithMaxBytes caps the image size read from the network.
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}
