package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverName, ":memory:")
	require.NoError(t, err)
	// Each in-memory connection is its own database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyMigrations(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))

	current, err := currentSchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, current.String())

	for _, table := range []string{"products", "sequences", "orders", "order_items", "order_history"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, ApplyMigrations(ctx, db))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestRollbackMigration(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, db))

	// 1.1.0 drops the append-only trigger
	require.NoError(t, RollbackMigration(ctx, db))
	current, err := currentSchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", current.String())

	var trigger string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='trigger' AND name='order_history_append_only'").Scan(&trigger)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// 1.0.0 drops everything
	require.NoError(t, RollbackMigration(ctx, db))
	var name string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='orders'").Scan(&name)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.Error(t, RollbackMigration(ctx, db))

	// Re-applying restores the full schema
	require.NoError(t, ApplyMigrations(ctx, db))
	current, err = currentSchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, current.String())
}
