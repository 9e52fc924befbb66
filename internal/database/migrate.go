package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"path"
	"sort"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

func (db *DB) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := db.Pool.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	dir := path.Join("migrations", db.Dialect.Name)
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	// Sort migrations by filename
	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		applied, err := db.migrationApplied(ctx, filename)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			continue
		}

		content, err := migrationsFS.ReadFile(path.Join(dir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Pool.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		query, args, err := db.Builder().
			Insert("schema_migrations").
			Columns("version").
			Values(filename).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := db.Pool.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		slog.Info("applied migration", "file", filename, "dialect", db.Dialect.Name)
	}

	return nil
}

func (db *DB) migrationApplied(ctx context.Context, filename string) (bool, error) {
	query, args, err := db.Builder().
		Select("COUNT(*)").
		From("schema_migrations").
		Where("version = ?", filename).
		ToSql()
	if err != nil {
		return false, err
	}

	var n int
	if err := db.Pool.GetContext(ctx, &n, query, args...); err != nil {
		return false, err
	}
	return n > 0, nil
}
