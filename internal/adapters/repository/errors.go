package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalid             = errors.New("invalid value")
	ErrUnsupportedDatabase = errors.New("unsupported database type")
	ErrMigration           = errors.New("migration failed")
)
