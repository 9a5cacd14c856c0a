// Package session gives every browser its own admin screen controller.
//
// A visitor is identified by a random id in an HttpOnly cookie. The
// registry builds the visitor's controller on first sight, restores the
// durable part of its state from storage, and saves it back after each
// request so a half-typed draft survives a restart of the server.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/users-admin/internal/controller"
	"github.com/aanand-mishra/users-admin/internal/metrics"
	"github.com/aanand-mishra/users-admin/internal/storage"
)

// CookieName is the cookie carrying the session id.
const CookieName = "users_admin_session"

// syncWindow is how long an action's own refetch stands in for the page
// load that follows its redirect.
const syncWindow = 5 * time.Second

// Session is one visitor's screen.
type Session struct {
	ID         string
	Controller *controller.Controller
	Notices    *controller.Queue

	mu       sync.Mutex
	lastSeen time.Time
	syncedAt time.Time
}

// EnsureMounted fetches the current page unless it has been fetched
// already. Failures are notified by the controller and otherwise ignored:
// the screen renders with whatever it has.
func (s *Session) EnsureMounted(ctx context.Context) {
	if !s.Controller.State().Loaded {
		_ = s.Controller.Mount(ctx)
	}
}

// MarkSynced notes that an action has just left the screen up to date,
// so the next Refresh can skip its fetch.
func (s *Session) MarkSynced() {
	s.mu.Lock()
	s.syncedAt = time.Now()
	s.mu.Unlock()
}

// Refresh mounts the screen: it fetches the current page so changes made
// elsewhere show up on every page load. The fetch is skipped once after
// MarkSynced, if it was called within syncWindow.
func (s *Session) Refresh(ctx context.Context) {
	s.mu.Lock()
	fresh := !s.syncedAt.IsZero() && time.Since(s.syncedAt) < syncWindow
	s.syncedAt = time.Time{}
	s.mu.Unlock()

	if fresh && s.Controller.State().Loaded {
		return
	}
	_ = s.Controller.Mount(ctx)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Options configures a Registry.
type Options struct {
	Service  controller.UserService
	Store    storage.Storage
	Logger   *slog.Logger
	PageSize int

	// TTL is how long an idle session stays in memory.
	TTL time.Duration

	// Retention is how long an untouched snapshot stays in storage.
	// Zero means seven days.
	Retention time.Duration

	// Secure marks the cookie as HTTPS only.
	Secure bool
}

// Registry maps session ids to live sessions.
type Registry struct {
	opts Options
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = 7 * 24 * time.Hour
	}
	return &Registry{
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for the request, creating one (and setting its
// cookie on w) when the request has none or an unusable one.
func (r *Registry) Get(w http.ResponseWriter, req *http.Request) (*Session, error) {
	id := ""
	if c, err := req.Cookie(CookieName); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id = parsed.String()
		}
	}

	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		r.opts.Logger.Debug("new session", slog.String("session", id))
	}

	return r.load(req.Context(), id)
}

func (r *Registry) load(ctx context.Context, id string) (*Session, error) {
	now := r.now()

	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		s.touch(now)
		return s, nil
	}
	r.mu.Unlock()

	s := r.build(id)

	if r.opts.Store != nil {
		stored, err := r.opts.Store.GetSession(ctx, id)
		switch {
		case err == nil && now.Sub(stored.UpdatedAt) > r.opts.Retention:
			// Past retention but not yet purged: start over.
			if err := r.opts.Store.DeleteSession(ctx, id); err != nil {
				return nil, fmt.Errorf("drop expired session %s: %w", id, err)
			}
			r.opts.Logger.Debug("expired session dropped", slog.String("session", id))
		case err == nil:
			s.Controller.Restore(stored.Snapshot)
		case errors.Is(err, storage.ErrNotFound):
		default:
			return nil, fmt.Errorf("restore session %s: %w", id, err)
		}
	}
	s.touch(now)

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request for the same visitor may have won the race.
	if existing, ok := r.sessions[id]; ok {
		return existing, nil
	}
	r.sessions[id] = s
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	return s, nil
}

func (r *Registry) build(id string) *Session {
	notices := &controller.Queue{}
	log := r.opts.Logger.With(slog.String("session", id))
	return &Session{
		ID:         id,
		Controller: controller.New(r.opts.Service, notices, log, r.opts.PageSize),
		Notices:    notices,
	}
}

// Save persists the session's snapshot.
func (r *Registry) Save(ctx context.Context, s *Session) error {
	if r.opts.Store == nil {
		return nil
	}
	if err := r.opts.Store.SaveSession(ctx, s.ID, s.Controller.Snapshot()); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// Len reports how many sessions are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict drops sessions idle for longer than the TTL from memory and
// purges snapshots older than the retention period from storage.
func (r *Registry) Evict(ctx context.Context) (int, error) {
	now := r.now()

	r.mu.Lock()
	evicted := 0
	for id, s := range r.sessions {
		if s.idleSince(now) > r.opts.TTL {
			delete(r.sessions, id)
			evicted++
		}
	}
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	if r.opts.Store == nil {
		return evicted, nil
	}

	purged, err := r.opts.Store.PurgeBefore(ctx, now.Add(-r.opts.Retention))
	if err != nil {
		return evicted, fmt.Errorf("purge sessions: %w", err)
	}
	if evicted > 0 || purged > 0 {
		r.opts.Logger.Debug("sessions evicted",
			slog.Int("evicted", evicted),
			slog.Int64("purged", purged))
	}
	return evicted, nil
}

// Run calls Evict every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Evict(ctx); err != nil {
				r.opts.Logger.Warn("session eviction failed", slog.String("error", err.Error()))
			}
		}
	}
}
