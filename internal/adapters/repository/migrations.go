package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/okian/clerb/pkg/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every embedded migration for the dialect that has not run
// yet, in filename order. It returns the names of the files it applied.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	if _, err := db.ExecContext(ctx, db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return nil, fmt.Errorf("%w: create migrations table: %w", ErrMigration, err)
	}

	dir := path.Join("migrations", db.Dialect.MigrationsSubdir())
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrMigration, dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	log := logger.Named("migrations")
	var applied []string
	for _, name := range files {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE filename = ?", name).Scan(&count); err != nil {
			return applied, fmt.Errorf("%w: check %s: %w", ErrMigration, name, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile(path.Join(dir, name))
		if err != nil {
			return applied, fmt.Errorf("%w: read %s: %w", ErrMigration, name, err)
		}

		err = db.WithTx(ctx, func(tx *Tx) error {
			// Raw Exec: migration bodies contain no placeholders.
			if _, err := tx.Tx.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO migrations (filename) VALUES (?)", name)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("%w: %s: %w", ErrMigration, name, err)
		}

		log.Info(ctx, "migration applied", logger.String("file", name))
		applied = append(applied, name)
	}
	return applied, nil
}
