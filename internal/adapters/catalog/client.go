package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/clerb/internal/adapters/cache"
	"github.com/okian/clerb/pkg/logger"
	"github.com/okian/clerb/pkg/metrics"
)

const (
	defaultTimeout  = 8 * time.Second
	defaultCacheTTL = time.Hour
	maxBodyBytes    = 4 << 20
)

// httpClient is the transport shared by the catalog providers.
type httpClient struct {
	provider string
	http     *http.Client
	limiter  *rate.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
	log      logger.Logger
}

func newHTTPClient(provider string, opts []Option) *httpClient {
	c := &httpClient{
		provider: provider,
		http:     &http.Client{Timeout: defaultTimeout},
		limiter:  rate.NewLimiter(rate.Limit(5), 10),
		cacheTTL: defaultCacheTTL,
		log:      logger.Named("catalog").Named(provider),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON fetches url into dst. It reports false when the provider answered
// with a non-2xx status. Successful answers are cached under cacheKey.
func (c *httpClient) getJSON(ctx context.Context, url, cacheKey string, dst any) (bool, error) {
	if c.cache != nil && cacheKey != "" {
		ok, err := c.cache.Get(ctx, cacheKey, dst)
		if err != nil {
			c.log.Warn(ctx, "cache read failed", logger.String("key", cacheKey), logger.Error(err))
		}
		if ok {
			metrics.RecordCatalogRequest(c.provider, "cached")
			return true, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordCatalogRequest(c.provider, "rate_limited")
		return false, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	start := time.Now()
	defer func() {
		metrics.RecordCatalogLatency(c.provider, float64(time.Since(start).Milliseconds()))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("%w: build request: %w", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordCatalogRequest(c.provider, "error")
		return false, fmt.Errorf("%w: %s: %w", ErrUpstream, c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordCatalogRequest(c.provider, "not_ok")
		c.log.Debug(ctx, "provider returned non-2xx", logger.Int("status", resp.StatusCode))
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return false, nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dst); err != nil {
		metrics.RecordCatalogRequest(c.provider, "error")
		return false, fmt.Errorf("%w: decode %s response: %w", ErrUpstream, c.provider, err)
	}
	metrics.RecordCatalogRequest(c.provider, "ok")

	if c.cache != nil && cacheKey != "" {
		if err := c.cache.Set(ctx, cacheKey, dst, c.cacheTTL); err != nil {
			c.log.Warn(ctx, "cache write failed", logger.String("key", cacheKey), logger.Error(err))
		}
	}
	return true, nil
}
