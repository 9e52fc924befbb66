package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsIdempotentAndSeedsCategories(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))

	var versions int
	require.NoError(t, db.Pool.GetContext(ctx, &versions, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 1, versions)

	var names []string
	require.NoError(t, db.Pool.SelectContext(ctx, &names, "SELECT name FROM custom_event_categories ORDER BY id"))
	assert.Equal(t, []string{"Meetings", "Holidays"}, names)
}

func TestDialectFor(t *testing.T) {
	for _, name := range []string{"postgres", "PostgreSQL", "pgx"} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, Postgres.Name, d.Name)
	}
	for _, name := range []string{"sqlite", "sqlite3", ""} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, SQLite.Name, d.Name)
	}

	_, err := DialectFor("oracle")
	assert.Error(t, err)
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), "sqlite", "")
	assert.Error(t, err)
}
