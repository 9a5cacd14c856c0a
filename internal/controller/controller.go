// Package controller holds the state behind the users admin screen and
// the transitions that change it.
//
// A Controller is the single source of truth for the current page of
// users, the form draft, the edit marker and the page counters. Every
// user action is one method; each issues at most one write to the backend
// and then refetches the current page, so local state is always a copy of
// what the server last said.
//
// The form has two states:
//
//	Idle --BeginEdit(u)--> Editing(u.ID)
//	Editing --CancelEdit / Submit ok--> Idle
//	Editing --Submit failed--> Editing (draft kept)
//	Idle --Submit ok--> Idle (create)
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/aanand-mishra/users-admin/internal/metrics"
	"github.com/aanand-mishra/users-admin/internal/pagination"
	"github.com/aanand-mishra/users-admin/internal/types"
)

// ErrInvalidDraft is returned by Submit when the advisory validation
// fails; no request is issued in that case.
var ErrInvalidDraft = errors.New("invalid draft")

// UserService is the remote users collection.
type UserService interface {
	ListUsers(ctx context.Context, page, limit int) (types.UserPage, error)
	CreateUser(ctx context.Context, draft types.Draft) (types.User, error)
	UpdateUser(ctx context.Context, id int64, draft types.Draft) (types.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// State is a copy of everything the screen renders.
type State struct {
	Records []types.User
	Draft   types.Draft

	// EditID is only meaningful while Editing is true.
	EditID  int64
	Editing bool

	Page       int
	PageSize   int
	TotalPages int
	Total      int

	// Loaded is false until the first successful fetch.
	Loaded bool
}

// Window computes the pagination control for this state.
func (s State) Window() pagination.Window {
	return pagination.Compute(s.Page, s.TotalPages)
}

// Snapshot is the part of State that survives a restart. Records are
// not included; Mount fetches them again.
type Snapshot struct {
	Page    int         `json:"page"`
	Draft   types.Draft `json:"draft"`
	EditID  int64       `json:"editId,omitempty"`
	Editing bool        `json:"editing"`
}

// Controller mediates between the screen and the backend.
//
// It is safe for concurrent use. The lock is never held across a backend
// call; overlapping page loads are resolved by sequence number, so the
// most recently issued load wins even if an older one answers last.
// Overlapping writes are not serialised.
type Controller struct {
	svc      UserService
	notifier Notifier
	log      *slog.Logger
	pageSize int

	mu    sync.Mutex
	state State
	seq   uint64
}

// New returns a controller on page 1 with an empty form.
func New(svc UserService, notifier Notifier, log *slog.Logger, pageSize int) *Controller {
	if notifier == nil {
		notifier = Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		svc:      svc,
		notifier: notifier,
		log:      log,
		pageSize: pageSize,
		state: State{
			Page:       1,
			PageSize:   pageSize,
			TotalPages: 1,
		},
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Records = slices.Clone(c.state.Records)
	return s
}

// Mount loads the current page. The screen calls it when first shown.
func (c *Controller) Mount(ctx context.Context) error {
	return c.LoadPage(ctx, c.currentPage())
}

// LoadPage fetches page and, on success, replaces the records and page
// counters wholesale. On failure the previous records stay in place and
// the failure is logged and notified; nothing is retried.
//
// When the backend reports fewer pages than requested (the last row of
// the last page was just deleted, say) the last page is fetched instead.
func (c *Controller) LoadPage(ctx context.Context, page int) error {
	page = max(1, page)

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	res, err := c.svc.ListUsers(ctx, page, c.pageSize)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		metrics.StaleResponsesDiscarded.Inc()
		c.log.Debug("discarding stale page response",
			slog.Int("page", page),
			slog.Uint64("seq", seq),
			slog.Bool("failed", err != nil))
		return nil
	}

	if err != nil {
		c.mu.Unlock()
		c.fail("Could not load users", err, slog.Int("page", page))
		return fmt.Errorf("load page %d: %w", page, err)
	}

	// totalPages comes from the server as-is; an empty collection still
	// renders as one (empty) page.
	totalPages := max(1, res.TotalPages)

	c.state.Records = res.Data
	c.state.Total = res.Total
	c.state.TotalPages = totalPages
	c.state.Page = min(page, totalPages)
	c.state.Loaded = true
	c.mu.Unlock()

	c.log.Debug("users loaded",
		slog.Int("page", page),
		slog.Int("count", len(res.Data)),
		slog.Int("total_pages", totalPages))

	if page > totalPages {
		c.log.Info("requested page beyond last page, loading last page",
			slog.Int("page", page),
			slog.Int("total_pages", totalPages))
		return c.LoadPage(ctx, totalPages)
	}
	return nil
}

// GoToPage is the entry point for the pagination controls. Pages outside
// [1, totalPages] are ignored; the controls never offer them.
//
// totalPages is the count from the last load, so a page added to the
// collection since then stays unreachable until the next load (Mount, or
// any write) reports it.
func (c *Controller) GoToPage(ctx context.Context, page int) error {
	if !c.State().Window().InRange(page) {
		c.log.Debug("ignoring out of range page", slog.Int("page", page))
		return nil
	}
	return c.LoadPage(ctx, page)
}

// SetField changes one field of the draft. Unknown fields are ignored.
func (c *Controller) SetField(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case "name":
		c.state.Draft.Name = value
	case "email":
		c.state.Draft.Email = value
	}
}

// BeginEdit seeds the draft from u and marks u as being edited.
func (c *Controller) BeginEdit(u types.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Draft = types.DraftFrom(u)
	c.state.EditID = u.ID
	c.state.Editing = true
}

// BeginEditByID is BeginEdit for a user on the current page. It reports
// false, and changes nothing, when id is not on the page.
func (c *Controller) BeginEditByID(id int64) bool {
	u, ok := c.Find(id)
	if !ok {
		return false
	}
	c.BeginEdit(u)
	return true
}

// Find looks id up among the current records.
func (c *Controller) Find(id int64) (types.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, u := range c.state.Records {
		if u.ID == id {
			return u, true
		}
	}
	return types.User{}, false
}

// CancelEdit returns the form to Idle with an empty draft.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetForm()
}

func (c *Controller) resetForm() {
	c.state.Draft = types.Draft{}
	c.state.EditID = 0
	c.state.Editing = false
}

// Submit saves draft: an update of the user being edited, or a create
// when the form is Idle. draft becomes the form's content first, so it
// is still there to correct if anything goes wrong.
//
// The draft is checked locally before sending (ErrInvalidDraft); this is
// a convenience only, the backend has the final word. On success the form
// is reset and the current page is fetched again. A failed refetch is
// notified but does not make Submit fail: the write itself went through.
func (c *Controller) Submit(ctx context.Context, draft types.Draft) error {
	c.mu.Lock()
	c.state.Draft = draft
	editing, editID := c.state.Editing, c.state.EditID
	c.mu.Unlock()

	if err := draft.Validate(); err != nil {
		c.log.Info("draft rejected before sending", slog.String("reason", err.Error()))
		c.notifier.Notify(Notification{
			Level:   LevelError,
			Title:   "Please check the form",
			Message: err.Error(),
		})
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	payload := types.Draft{
		Name:  strings.TrimSpace(draft.Name),
		Email: strings.TrimSpace(draft.Email),
	}

	var err error
	if editing {
		_, err = c.svc.UpdateUser(ctx, editID, payload)
	} else {
		_, err = c.svc.CreateUser(ctx, payload)
	}
	if err != nil {
		c.fail("Could not save user", err,
			slog.Bool("editing", editing),
			slog.Int64("id", editID))
		return fmt.Errorf("submit user: %w", err)
	}

	c.mu.Lock()
	// Only reset if the user has not moved on to another record meanwhile.
	if c.state.Editing == editing && c.state.EditID == editID {
		c.resetForm()
	}
	c.mu.Unlock()

	title := "User created"
	if editing {
		title = "User updated"
		c.log.Info("user updated", slog.Int64("id", editID))
	} else {
		c.log.Info("user created", slog.String("email", payload.Email))
	}
	c.notifier.Notify(Notification{Level: LevelInfo, Title: title, Message: payload.Name})

	_ = c.LoadPage(ctx, c.currentPage())
	return nil
}

// Remove deletes user id once confirm approves. A declined confirmation
// changes nothing and issues no request; removed reports whether the
// backend actually deleted the user. A nil confirm declines.
func (c *Controller) Remove(ctx context.Context, id int64, confirm Confirmer) (removed bool, err error) {
	if confirm == nil {
		confirm = Never
	}

	ok, err := confirm(ctx, id)
	if err != nil {
		return false, fmt.Errorf("confirm delete of user %d: %w", id, err)
	}
	if !ok {
		c.log.Debug("delete declined", slog.Int64("id", id))
		return false, nil
	}

	if err := c.svc.DeleteUser(ctx, id); err != nil {
		c.fail("Could not delete user", err, slog.Int64("id", id))
		return false, fmt.Errorf("delete user %d: %w", id, err)
	}

	c.log.Info("user deleted", slog.Int64("id", id))
	c.notifier.Notify(Notification{Level: LevelInfo, Title: "User deleted"})

	_ = c.LoadPage(ctx, c.currentPage())
	return true, nil
}

// Snapshot exports the durable part of the state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Page:    c.state.Page,
		Draft:   c.state.Draft,
		EditID:  c.state.EditID,
		Editing: c.state.Editing,
	}
}

// Restore replaces the durable part of the state. Records are left alone
// and must be fetched with Mount.
func (c *Controller) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Page = max(1, s.Page)
	c.state.Draft = s.Draft
	c.state.Editing = s.Editing
	c.state.EditID = 0
	if s.Editing {
		c.state.EditID = s.EditID
	}
	// Unknown until the next fetch says otherwise.
	c.state.TotalPages = max(c.state.TotalPages, c.state.Page)
}

func (c *Controller) currentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Page
}

// fail logs err and sends exactly one error notification for it.
func (c *Controller) fail(title string, err error, attrs ...any) {
	c.log.Error(strings.ToLower(title), append(attrs, slog.String("error", err.Error()))...)
	c.notifier.Notify(Notification{
		Level:   LevelError,
		Title:   title,
		Message: err.Error(),
	})
}
