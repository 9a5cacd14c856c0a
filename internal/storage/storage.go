// Package storage defines the Storage interface: the contract any
// backend for browser-session state must satisfy.
//
// WHY AN INTERFACE?
// ─────────────────
// The session registry should not know or care where snapshots live. By
// depending only on this interface:
//
//   - Switching databases = implement the interface for the new store,
//     change one line in the serve command. Zero registry changes.
//
//   - Writing tests = pass a fake that satisfies the interface.
//
// Only the durable part of a session is stored (page, draft, edit
// marker). The users themselves belong to the remote backend and are
// never written here.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aanand-mishra/users-admin/internal/controller"
)

// ErrNotFound is returned when no snapshot exists for a session id.
var ErrNotFound = errors.New("session not found")

// Session is one stored snapshot.
type Session struct {
	ID        string
	Snapshot  controller.Snapshot
	UpdatedAt time.Time
}

// Storage is the session persistence contract.
type Storage interface {
	// SaveSession inserts or replaces the snapshot for id.
	SaveSession(ctx context.Context, id string, snap controller.Snapshot) error

	// GetSession returns the snapshot for id, or ErrNotFound.
	GetSession(ctx context.Context, id string) (Session, error)

	// DeleteSession removes the snapshot for id. Deleting a missing
	// session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// PurgeBefore removes snapshots last updated before cutoff and
	// returns how many were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
