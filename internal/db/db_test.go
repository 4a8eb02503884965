package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_SQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "nested", "feedback.db"))
	require.NoError(t, err)
	defer conn.Close()

	dir := MigrationsDir(filepath.Join("..", "..", "migrations"), "sqlite")
	require.NoError(t, RunMigrations(ctx, conn, dir))
	require.NoError(t, RunMigrations(ctx, conn, dir))

	var applied int
	require.NoError(t, conn.GetContext(ctx, &applied, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 1, applied)

	var tables int
	require.NoError(t, conn.GetContext(ctx, &tables,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('feedback', 'feedback_approvals', 'escalation_log')`))
	assert.Equal(t, 3, tables)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}

func TestMigrationsDir(t *testing.T) {
	assert.Equal(t, filepath.Join("migrations", "postgres"), MigrationsDir("migrations", "postgres"))
	assert.Equal(t, filepath.Join("migrations", "sqlite"), MigrationsDir("migrations", "SQLite"))
}
