package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"002_indexes.sql": "CREATE INDEX a ON b(c);",
		"001_init.sql":    "CREATE TABLE b (c INT);",
		"README.md":       "docs",
		"bogus.sql":       "SELECT 1;",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}

	migrations, err := LoadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "002_indexes.sql", migrations[1].Name)

	_, err = LoadMigrations(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRepositoryMigrations(t *testing.T) {
	migrations, err := LoadMigrations(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "001", migrations[0].Version)
}

func TestMigratorSkipsSQLite(t *testing.T) {
	db := setupSQLiteDB(t)
	assert.NoError(t, db.RunMigrations(context.Background(), "does-not-exist"))
}

func TestMigratorPostgresStatus(t *testing.T) {
	db := setupPostgresDB(t)
	ctx := context.Background()

	statuses, err := NewMigrator(db.Conn(), db.Type()).Status(ctx, filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	for _, st := range statuses {
		assert.True(t, st.Applied, st.Name)
	}

	// A second run is a no-op.
	assert.NoError(t, db.RunMigrations(ctx, filepath.Join("..", "..", "migrations")))
}
