// Package colors samples book cover images to pick a spine color.
package colors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/okian/clerb/internal/adapters/cache"
	"github.com/okian/clerb/internal/domain/spine"
	"github.com/okian/clerb/pkg/logger"
	"github.com/okian/clerb/pkg/metrics"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultMaxBytes = 10 << 20
	defaultCacheTTL = 24 * time.Hour
)

var (
	ErrEmptyURL  = errors.New("empty image url")
	ErrFetch     = errors.New("image fetch failed")
	ErrDecode    = errors.New("image decode failed")
	ErrTooLarge  = errors.New("image too large")
	errBadStatus = errors.New("unexpected status")
)

// Extractor turns an image URL into a darkened average color.
type Extractor struct {
	http     *http.Client
	cache    cache.Cache
	cacheTTL time.Duration
	maxBytes int64
	log      logger.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		http:     &http.Client{Timeout: defaultTimeout},
		cacheTTL: defaultCacheTTL,
		maxBytes: defaultMaxBytes,
		log:      logger.Named("colors"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DominantColor returns rgb(r, g, b) for the image at imageURL. Any failure
// yields a warm palette color chosen by the URL.
func (e *Extractor) DominantColor(ctx context.Context, imageURL string) string {
	color, err := e.Sample(ctx, imageURL)
	if err != nil {
		metrics.RecordColorJobFallback()
		e.log.Debug(ctx, "using fallback spine color",
			logger.String("url", imageURL), logger.Error(err))
		return spine.Fallback(imageURL)
	}
	return color
}

// Sample fetches and averages the image, reporting why it could not.
func (e *Extractor) Sample(ctx context.Context, imageURL string) (string, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", ErrEmptyURL
	}

	key := "spine:" + imageURL
	if e.cache != nil {
		var cached string
		if ok, _ := e.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	start := time.Now()
	defer func() {
		metrics.RecordColorExtractLatency(float64(time.Since(start).Milliseconds()))
	}()

	img, err := e.fetch(ctx, imageURL)
	if err != nil {
		return "", err
	}
	color := spine.FromPixel(Average(img))

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, color, e.cacheTTL); err != nil {
			e.log.Warn(ctx, "cache write failed", logger.Error(err))
		}
	}
	return color, nil
}

func (e *Extractor) fetch(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %w %d", ErrFetch, errBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if int64(len(body)) > e.maxBytes {
		return nil, ErrTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// Average shrinks img to one pixel with a box filter and returns its color.
func Average(img image.Image) (r, g, b uint8) {
	px := imaging.Resize(img, 1, 1, imaging.Box)
	c := px.NRGBAAt(0, 0)
	return c.R, c.G, c.B
}
