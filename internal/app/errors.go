package service

import (
	"errors"
	"fmt"

	"github.com/okian/clerb/internal/adapters/repository"
)

var (
	// ErrForbidden is returned when a member acts on another member's row.
	ErrForbidden = errors.New("forbidden")
	// ErrCatalogDisabled is returned when no catalog provider is configured.
	ErrCatalogDisabled = errors.New("catalog not configured")
)

func invalid(what string) error {
	return fmt.Errorf("%s: %w", what, repository.ErrInvalid)
}
