// Package storedb opens per-module SQLite databases and applies
// versioned schema migrations.
package storedb

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vmlift/vmlift/internal/errx"
)

// Migration is one schema step. Versions are applied in ascending
// order and tracked per module, so reopening a database is idempotent.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

type OpenOptions struct {
	Path       string
	Module     string
	Migrations []Migration
}

// Open opens (creating if needed) the database at opts.Path and brings
// the schema for opts.Module up to the latest migration version.
func Open(opts OpenOptions) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, errx.Wrap(ErrCreateStateDir, err)
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, errx.Wrap(ErrOpenDatabase, err)
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  module TEXT NOT NULL,
  version INTEGER NOT NULL,
  name TEXT NOT NULL,
  applied_at TEXT NOT NULL,
  PRIMARY KEY (module, version)
);`); err != nil {
		db.Close()
		return nil, errx.Wrap(ErrMigrate, err)
	}

	var current sql.NullInt64
	if err := db.QueryRow(
		`SELECT MAX(version) FROM schema_migrations WHERE module = ?`, opts.Module,
	).Scan(&current); err != nil {
		db.Close()
		return nil, errx.Wrap(ErrMigrate, err)
	}

	for _, m := range opts.Migrations {
		if current.Valid && int64(m.Version) <= current.Int64 {
			continue
		}
		if err := apply(db, opts.Module, m); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func apply(db *sql.DB, module string, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return errx.Wrap(ErrMigrate, err)
	}
	if _, err := tx.Exec(m.SQL); err != nil {
		tx.Rollback()
		return errx.With(ErrMigrate, ": %s v%d (%s): %v", module, m.Version, m.Name, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (module, version, name, applied_at)
		 VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`,
		module, m.Version, m.Name,
	); err != nil {
		tx.Rollback()
		return errx.Wrap(ErrMigrate, err)
	}
	if err := tx.Commit(); err != nil {
		return errx.Wrap(ErrMigrate, err)
	}
	return nil
}
