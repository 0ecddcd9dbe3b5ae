package store

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaStep is one embedded migration file, named "<version>_<name>.sql".
type schemaStep struct {
	version int
	name    string
	sql     string
}

func (s schemaStep) String() string {
	return fmt.Sprintf("%04d_%s", s.version, s.name)
}

// migrate brings the database at dbPath up to the newest embedded schema.
// Steps at or below the recorded schema version are skipped.
func migrate(ctx context.Context, db *sql.DB, dbPath string) error {
	steps, err := schemaSteps()
	if err != nil {
		return &StorageError{Kind: KindFormat, Path: dbPath, Err: err}
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return &StorageError{Kind: KindWrite, Path: dbPath, Err: fmt.Errorf("create schema_migrations: %w", err)}
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return &StorageError{Kind: KindRead, Path: dbPath, Err: err}
	}

	for _, step := range steps {
		if step.version <= current {
			continue
		}
		if err := applyStep(ctx, db, step); err != nil {
			return &StorageError{Kind: KindWrite, Path: dbPath, Err: err}
		}
	}
	return nil
}

// schemaSteps returns the embedded steps ordered by version.
func schemaSteps() ([]schemaStep, error) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	steps := make([]schemaStep, 0, len(files))
	for _, file := range files {
		version, name, err := parseStepName(path.Base(file))
		if err != nil {
			return nil, err
		}
		content, err := migrationsFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		steps = append(steps, schemaStep{version: version, name: name, sql: string(content)})
	}

	slices.SortFunc(steps, func(a, b schemaStep) int { return cmp.Compare(a.version, b.version) })
	for i := 1; i < len(steps); i++ {
		if steps[i].version == steps[i-1].version {
			return nil, fmt.Errorf("duplicate schema version %d", steps[i].version)
		}
	}
	return steps, nil
}

func parseStepName(filename string) (int, string, error) {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	prefix, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("invalid migration filename %q: expected '<version>_<name>.sql'", filename)
	}

	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("invalid migration version in %q", filename)
	}
	return version, name, nil
}

// schemaVersion reports the highest applied step, or 0 for a fresh database.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func applyStep(ctx context.Context, db *sql.DB, step schemaStep) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", step, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, step.sql); err != nil {
		return fmt.Errorf("apply %s: %w", step, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, step.version, step.name); err != nil {
		return fmt.Errorf("record %s: %w", step, err)
	}
	return tx.Commit()
}
