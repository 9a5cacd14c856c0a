// Package admin contains the HTTP handlers of the users admin screen.
//
// Every handler is built by a factory that closes over its dependencies:
//
//	router.HandleFunc("POST /users", admin.Submit(deps))
//
// Handlers look up the visitor's session, apply one controller action and
// then answer in one of two ways. An htmx request (HX-Request: true) gets
// the re-rendered #screen fragment. A plain form post is redirected with
// 303 See Other to /, which renders the whole page, so the browser's back
// button and reload never resubmit the form.
package admin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/users-admin/internal/controller"
	"github.com/aanand-mishra/users-admin/internal/pagination"
	"github.com/aanand-mishra/users-admin/internal/session"
	"github.com/aanand-mishra/users-admin/internal/types"
	"github.com/aanand-mishra/users-admin/internal/utils/response"
	"github.com/aanand-mishra/users-admin/internal/view"
)

// Deps are the dependencies shared by all handlers.
type Deps struct {
	Sessions *session.Registry
	Views    *view.Renderer
	Logger   *slog.Logger
}

// Register wires every admin route into router.
func Register(router *http.ServeMux, d Deps) {
	router.HandleFunc("GET /{$}", Index(d))
	router.HandleFunc("GET /page/{page}", Page(d))
	router.HandleFunc("POST /users", Submit(d))
	router.HandleFunc("POST /users/cancel", Cancel(d))
	router.HandleFunc("POST /users/draft", Draft(d))
	router.HandleFunc("POST /users/{id}/edit", Edit(d))
	router.HandleFunc("GET /users/{id}/delete", ConfirmDelete(d))
	router.HandleFunc("POST /users/{id}/delete", Delete(d))
	router.HandleFunc("GET /state", State(d))
	router.HandleFunc("GET /healthz", Health())
}

// ─────────────────────────────────────────────────────────────────────────────
// Index handles GET /
// Renders the whole screen. Every load fetches the current page again,
// except the one that follows an action's redirect: that action has just
// refetched it.
// ─────────────────────────────────────────────────────────────────────────────
func Index(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := d.session(w, r)
		if !ok {
			return
		}
		s.Refresh(r.Context())
		d.save(r.Context(), s)
		d.render(w, r, s)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Page handles GET /page/{page}
// Moves to another page. Pages outside [1, totalPages] are ignored and the
// screen is rendered as it was.
//
// Error responses:
//
//	400 Bad Request: page is not an integer
//
// ─────────────────────────────────────────────────────────────────────────────
func Page(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.PathValue("page"))
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid page: must be an integer")))
			return
		}

		s, ok := d.session(w, r)
		if !ok {
			return
		}
		s.EnsureMounted(r.Context())
		// Load failures are already queued as notices.
		_ = s.Controller.GoToPage(r.Context(), page)

		d.finish(w, r, s)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Submit handles POST /users
// Saves the form: an update while a user is being edited, a create
// otherwise.
//
// Form fields: name, email
// ─────────────────────────────────────────────────────────────────────────────
func Submit(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := d.session(w, r)
		if !ok {
			return
		}

		draft := types.Draft{
			Name:  r.PostFormValue("name"),
			Email: r.PostFormValue("email"),
		}
		if err := s.Controller.Submit(r.Context(), draft); err != nil {
			d.Logger.Debug("submit failed", slog.String("error", err.Error()))
		}

		d.finish(w, r, s)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Edit handles POST /users/{id}/edit
// Seeds the form from a user on the current page.
// ─────────────────────────────────────────────────────────────────────────────
func Edit(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		s, ok := d.session(w, r)
		if !ok {
			return
		}

		if !s.Controller.BeginEditByID(id) {
			s.Notices.Notify(controller.Notification{
				Level:   controller.LevelError,
				Title:   "User not found",
				Message: "The user is no longer on this page.",
			})
		}

		d.finish(w, r, s)
	}
}

// Cancel handles POST /users/cancel.
func Cancel(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := d.session(w, r)
		if !ok {
			return
		}
		s.Controller.CancelEdit()
		d.finish(w, r, s)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Draft handles POST /users/draft
// Keeps the form's fields as they are typed (htmx posts on change), so a
// reload shows the draft as it was.
//
// Form fields: name, email (either may be absent)
// Success response: 204 No Content
// ─────────────────────────────────────────────────────────────────────────────
func Draft(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		s, ok := d.session(w, r)
		if !ok {
			return
		}

		for _, field := range []string{"name", "email"} {
			if values, ok := r.PostForm[field]; ok && len(values) > 0 {
				s.Controller.SetField(field, values[0])
			}
		}

		d.save(r.Context(), s)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ConfirmDelete handles GET /users/{id}/delete
// Asks the visitor to confirm. Browsers without JavaScript land here from
// the list's delete link; with htmx the prompt is shown client side.
// ─────────────────────────────────────────────────────────────────────────────
func ConfirmDelete(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		s, ok := d.session(w, r)
		if !ok {
			return
		}

		u, found := s.Controller.Find(id)
		if !found {
			u = types.User{ID: id}
		}

		var buf bytes.Buffer
		if err := d.Views.ConfirmDelete(&buf, u); err != nil {
			d.renderFailed(w, err)
			return
		}
		writeHTML(w, http.StatusOK, &buf)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles POST /users/{id}/delete
// Deletes the user when the form carries confirm=yes. Without it nothing
// is sent to the backend and the visitor is sent to the confirmation
// page instead.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		s, ok := d.session(w, r)
		if !ok {
			return
		}

		confirmed := r.PostFormValue("confirm") == "yes"
		removed, err := s.Controller.Remove(r.Context(), id, formConfirmer(confirmed))
		if err != nil {
			d.Logger.Debug("delete failed", slog.Int64("id", id), slog.String("error", err.Error()))
		}

		if !confirmed {
			target := "/users/" + strconv.FormatInt(id, 10) + "/delete"
			if isHTMX(r) {
				w.Header().Set("HX-Redirect", target)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}

		if removed {
			d.Logger.Info("user removed", slog.Int64("id", id), slog.String("session", s.ID))
		}
		d.finish(w, r, s)
	}
}

// formConfirmer answers the controller's prompt with what the form said.
func formConfirmer(confirmed bool) controller.Confirmer {
	if confirmed {
		return controller.Always
	}
	return controller.Never
}

// stateResponse is the JSON shape of GET /state.
type stateResponse struct {
	Records    []types.User `json:"records"`
	Draft      types.Draft  `json:"draft"`
	EditID     int64        `json:"editId,omitempty"`
	Editing    bool         `json:"editing"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
	Total      int          `json:"total"`
	Loaded     bool         `json:"loaded"`
	Window     []int        `json:"window"`
}

func newStateResponse(st controller.State) stateResponse {
	records := st.Records
	if records == nil {
		records = []types.User{}
	}
	return stateResponse{
		Records:    records,
		Draft:      st.Draft,
		EditID:     st.EditID,
		Editing:    st.Editing,
		Page:       st.Page,
		PageSize:   st.PageSize,
		TotalPages: st.TotalPages,
		Total:      st.Total,
		Loaded:     st.Loaded,
		Window:     pagination.Compute(st.Page, st.TotalPages).Pages(),
	}
}

// State handles GET /state and returns the visitor's controller state as
// JSON. Pending notices are left for the next render.
func State(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := d.session(w, r)
		if !ok {
			return
		}
		s.EnsureMounted(r.Context())
		d.save(r.Context(), s)
		response.WriteJSON(w, http.StatusOK, newStateResponse(s.Controller.State()))
	}
}

// Health handles GET /healthz.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, response.OK())
	}
}

func (d Deps) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := d.Sessions.Get(w, r)
	if err != nil {
		d.Logger.Error("error loading session", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
		return nil, false
	}
	return s, true
}

func (d Deps) save(ctx context.Context, s *session.Session) {
	if err := d.Sessions.Save(ctx, s); err != nil {
		d.Logger.Warn("error saving session", slog.String("error", err.Error()))
	}
}

// finish saves the session and answers an action: the fragment for htmx,
// a redirect to the screen otherwise.
func (d Deps) finish(w http.ResponseWriter, r *http.Request, s *session.Session) {
	d.save(r.Context(), s)
	if isHTMX(r) {
		d.render(w, r, s)
		return
	}
	s.MarkSynced()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// render draws the screen and hands the pending notices to it.
func (d Deps) render(w http.ResponseWriter, r *http.Request, s *session.Session) {
	screen := view.NewScreen(s.Controller.State(), s.Notices.Drain())

	var buf bytes.Buffer
	var err error
	if isHTMX(r) {
		err = d.Views.Fragment(&buf, screen)
	} else {
		err = d.Views.Page(&buf, screen)
	}
	if err != nil {
		d.renderFailed(w, err)
		return
	}
	writeHTML(w, http.StatusOK, &buf)
}

func (d Deps) renderFailed(w http.ResponseWriter, err error) {
	d.Logger.Error("error rendering screen", slog.String("error", err.Error()))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeHTML(w http.ResponseWriter, status int, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id: must be an integer")))
		return 0, false
	}
	return id, true
}
