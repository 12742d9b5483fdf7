// Package state keeps a local registry of VM runs so commands like
// "vmlift list" can report on VMs owned by other processes.
package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vmlift/vmlift/internal/errx"
	"github.com/vmlift/vmlift/pkg/storedb"
)

const stateModule = "vms"

// Run statuses recorded in the registry.
const (
	StatusStarting = "starting"
	StatusRunning  = "running"
	StatusStopped  = "stopped"
	StatusFailed   = "failed"
)

// Record is one VM run.
type Record struct {
	Name       string
	PID        int
	Status     string
	SocketPath string
	StartedAt  time.Time
	UpdatedAt  time.Time
}

type Manager struct {
	db *sql.DB
}

func defaultStateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "vmlift")
}

// NewManager opens the registry in the default state directory.
func NewManager() (*Manager, error) {
	return NewManagerWithDir(defaultStateDir())
}

// NewManagerWithDir opens the registry database under dir.
func NewManagerWithDir(dir string) (*Manager, error) {
	db, err := storedb.Open(storedb.OpenOptions{
		Path:       filepath.Join(dir, "state.db"),
		Module:     stateModule,
		Migrations: stateMigrations(),
	})
	if err != nil {
		return nil, err
	}
	return &Manager{db: db}, nil
}

func stateMigrations() []storedb.Migration {
	return []storedb.Migration{
		{
			Version: 1,
			Name:    "create_vms",
			SQL: `
CREATE TABLE IF NOT EXISTS vms (
  name TEXT PRIMARY KEY,
  pid INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  socket_path TEXT NOT NULL DEFAULT '',
  started_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vms_status ON vms(status);
`,
		},
	}
}

// Save upserts a run record. StartedAt defaults to now when unset.
func (m *Manager) Save(rec *Record) error {
	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}
	_, err := m.db.Exec(`
INSERT INTO vms (name, pid, status, socket_path, started_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  pid = excluded.pid,
  status = excluded.status,
  socket_path = excluded.socket_path,
  started_at = excluded.started_at,
  updated_at = excluded.updated_at`,
		rec.Name, rec.PID, rec.Status, rec.SocketPath,
		started.Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return errx.Wrap(ErrSaveRecord, err)
	}
	return nil
}

// SetStatus updates the status (and recorded PID) of an existing run.
func (m *Manager) SetStatus(name, status string, pid int) error {
	res, err := m.db.Exec(`
UPDATE vms SET status = ?, pid = ?, updated_at = ? WHERE name = ?`,
		status, pid, time.Now().UTC().Format(time.RFC3339), name)
	if err != nil {
		return errx.Wrap(ErrSaveRecord, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errx.With(ErrVMNotFound, ": %s", name)
	}
	return nil
}

// Get returns the record for a VM name.
func (m *Manager) Get(name string) (*Record, error) {
	rec, err := scanRecord(m.db.QueryRow(`
SELECT name, pid, status, socket_path, started_at, updated_at
  FROM vms WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, errx.With(ErrVMNotFound, ": %s", name)
	}
	return rec, err
}

// List returns all records ordered by start time, newest first.
func (m *Manager) List() ([]*Record, error) {
	rows, err := m.db.Query(`
SELECT name, pid, status, socket_path, started_at, updated_at
  FROM vms ORDER BY started_at DESC`)
	if err != nil {
		return nil, errx.Wrap(ErrListRecords, err)
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Remove deletes a record. A record still marked running is only
// removed when its process is gone, so a live VM cannot be dropped
// from the registry by accident.
func (m *Manager) Remove(name string) error {
	rec, err := m.Get(name)
	if err != nil {
		return err
	}
	if rec.Status == StatusRunning && rec.PID > 0 && processAlive(rec.PID) {
		return errx.With(ErrVMRunning, ": %s (pid %d)", name, rec.PID)
	}
	if _, err := m.db.Exec(`DELETE FROM vms WHERE name = ?`, name); err != nil {
		return errx.Wrap(ErrRemoveRecord, err)
	}
	return nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var started, updated string
	if err := row.Scan(&rec.Name, &rec.PID, &rec.Status, &rec.SocketPath, &started, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, errx.Wrap(ErrListRecords, err)
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339, started)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &rec, nil
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
