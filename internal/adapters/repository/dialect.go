package repository

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
)

// Dialect hides the differences between the supported SQL backends.
type Dialect interface {
	// DriverName returns the driver name for sql.Open.
	DriverName() string

	// DSN returns the data source name for the connection.
	DSN(config DialectConfig) string

	// RewriteQuery converts ? placeholders when the driver needs another syntax.
	RewriteQuery(query string) string

	// ConfigureConnection applies pool limits and connection pragmas.
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir names the embedded migrations directory.
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL for the migration ledger.
	CreateMigrationsTableQuery() string

	// NotifyQuery returns a statement taking (channel, payload) that fans a
	// change out to other processes, or "" when the backend has no such
	// mechanism.
	NotifyQuery() string

	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation(err error) bool
}

// DialectConfig holds connection settings.
type DialectConfig struct {
	// Path is the SQLite file.
	Path string

	// URL is the PostgreSQL connection string.
	URL string
}

// NewDialect picks a dialect by configured database type.
func NewDialect(databaseType string) (Dialect, error) {
	switch strings.ToLower(databaseType) {
	case "postgres", "postgresql":
		return NewPostgresDialect(), nil
	case "sqlite", "sqlite3", "":
		return NewSQLiteDialect(), nil
	default:
		return nil, ErrUnsupportedDatabase
	}
}

var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}
