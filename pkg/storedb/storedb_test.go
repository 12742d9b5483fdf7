package storedb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_things",
			SQL:     `CREATE TABLE things (id TEXT PRIMARY KEY, value TEXT);`,
		},
		{
			Version: 2,
			Name:    "add_index",
			SQL:     `CREATE INDEX idx_things_value ON things(value);`,
		},
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")

	db, err := Open(OpenOptions{Path: path, Module: "test", Migrations: testMigrations()})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO things (id, value) VALUES ('a', 'b')`)
	require.NoError(t, err)
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")

	db, err := Open(OpenOptions{Path: path, Module: "test", Migrations: testMigrations()})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// A second open must not re-run the CREATE statements.
	db, err = Open(OpenOptions{Path: path, Module: "test", Migrations: testMigrations()})
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.QueryRow(
		`SELECT MAX(version) FROM schema_migrations WHERE module = 'test'`,
	).Scan(&version))
	require.Equal(t, 2, version)
}

func TestModulesAreTrackedSeparately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")

	db, err := Open(OpenOptions{Path: path, Module: "first", Migrations: testMigrations()})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	other := []Migration{{
		Version: 1,
		Name:    "create_other",
		SQL:     `CREATE TABLE other (id TEXT PRIMARY KEY);`,
	}}
	db, err = Open(OpenOptions{Path: path, Module: "second", Migrations: other})
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM schema_migrations`,
	).Scan(&count))
	require.Equal(t, 3, count)
}
