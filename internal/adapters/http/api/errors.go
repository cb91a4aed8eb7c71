package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/clerb/internal/adapters/catalog"
	"github.com/okian/clerb/internal/adapters/repository"
	service "github.com/okian/clerb/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrMissingMember = errors.New("missing X-Member-ID header")
	ErrStreaming     = errors.New("streaming unsupported")
)

// NewKind tags a sentinel kind with the operation that produced it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// Wrap adds the operation name to err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// WrapKind tags err with both an operation and a sentinel kind.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// classify maps an error onto a status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrMissingMember), errors.Is(err, repository.ErrInvalid):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, catalog.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, service.ErrCatalogDisabled):
		return http.StatusServiceUnavailable, "catalog_disabled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
