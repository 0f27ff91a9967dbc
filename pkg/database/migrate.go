package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"

	schema "frameworks/herald/pkg/database/sql"
	"frameworks/herald/pkg/logging"
)

// Migrate applies every embedded schema file in lexical order. The files are
// written to be re-runnable, so no version table is kept.
func Migrate(ctx context.Context, db *sql.DB, logger logging.Logger) error {
	return applySchema(ctx, db, schema.Content, logger)
}

func applySchema(ctx context.Context, db *sql.DB, files fs.FS, logger logging.Logger) error {
	names, err := fs.Glob(files, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := fs.ReadFile(files, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if logger != nil {
			logger.WithField("file", name).Info("Applied schema")
		}
	}
	return nil
}
