// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite stores everything in a single file on disk: no network, no
// separate server process. That fits the admin screen, which only needs
// to remember a handful of small snapshots per browser.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aanand-mishra/users-admin/internal/controller"
	"github.com/aanand-mishra/users-admin/internal/storage"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at path, creating its directory and the
// sessions table if they do not exist yet.
func New(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// Schema:
	//   id        : session id from the browser cookie
	//   snapshot  : JSON encoded controller.Snapshot
	//   updated_at: unix seconds of the last save, for purging
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT    PRIMARY KEY,
			snapshot   TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// SaveSession upserts the snapshot for id.
func (s *SQLite) SaveSession(ctx context.Context, id string, snap controller.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("SaveSession: encode: %w", err)
	}

	_, err = s.Db.ExecContext(ctx, `
		INSERT INTO sessions (id, snapshot, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			snapshot   = excluded.snapshot,
			updated_at = excluded.updated_at
	`, id, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("SaveSession: exec: %w", err)
	}
	return nil
}

// GetSession fetches the snapshot stored for id.
func (s *SQLite) GetSession(ctx context.Context, id string) (storage.Session, error) {
	var (
		data      string
		updatedAt int64
	)

	err := s.Db.QueryRowContext(ctx,
		"SELECT snapshot, updated_at FROM sessions WHERE id = ? LIMIT 1", id,
	).Scan(&data, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Session{}, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
		}
		return storage.Session{}, fmt.Errorf("GetSession: scan: %w", err)
	}

	var snap controller.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return storage.Session{}, fmt.Errorf("GetSession: decode: %w", err)
	}

	return storage.Session{
		ID:        id,
		Snapshot:  snap,
		UpdatedAt: time.Unix(updatedAt, 0),
	}, nil
}

// DeleteSession removes the row for id, if any.
func (s *SQLite) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.Db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("DeleteSession: exec: %w", err)
	}
	return nil
}

// PurgeBefore removes every session not saved since cutoff.
func (s *SQLite) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.Db.ExecContext(ctx,
		"DELETE FROM sessions WHERE updated_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("PurgeBefore: exec: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("PurgeBefore: rows affected: %w", err)
	}
	return n, nil
}

// Close releases the underlying connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}
