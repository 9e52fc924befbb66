package database

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name        string // migrations subdirectory and log label
	DriverName  string // database/sql driver
	Placeholder sq.PlaceholderFormat
}

var (
	Postgres = Dialect{Name: "postgres", DriverName: "pgx", Placeholder: sq.Dollar}
	SQLite   = Dialect{Name: "sqlite", DriverName: "sqlite", Placeholder: sq.Question}
)

// DialectFor maps a configured driver name onto a Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3", "":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type DB struct {
	Pool    *sqlx.DB
	Dialect Dialect
}

func New(ctx context.Context, driver, dsn string) (*DB, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	pool, err := sqlx.ConnectContext(ctx, dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect.Name, err)
	}

	if dialect.Name == SQLite.Name {
		// A single connection keeps ":memory:" databases alive and serializes writers.
		pool.SetMaxOpenConns(1)
	}

	return &DB{Pool: pool, Dialect: dialect}, nil
}

// Builder returns a squirrel builder using this database's placeholders.
func (db *DB) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(db.Dialect.Placeholder)
}

func (db *DB) Close() error {
	return db.Pool.Close()
}
