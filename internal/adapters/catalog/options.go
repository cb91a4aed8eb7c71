package catalog

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/clerb/internal/adapters/cache"
)

// Option configures a catalog client.
type Option func(*httpClient)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit sets the outbound request rate and burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *httpClient) {
		if perSecond > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithCache caches decoded responses for ttl.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *httpClient) {
		c.cache = store
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}
