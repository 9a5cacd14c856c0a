// Package view renders the admin screen as HTML.
//
// The full page wraps a "screen" fragment. Requests coming from htmx only
// need the fragment, which is swapped into the page in place.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/aanand-mishra/users-admin/internal/controller"
	"github.com/aanand-mishra/users-admin/internal/pagination"
	"github.com/aanand-mishra/users-admin/internal/types"
)

//go:embed templates/*.html
var files embed.FS

// Title is the document title of every page.
const Title = "Users Admin"

// Screen is everything one render needs.
type Screen struct {
	Title   string
	State   controller.State
	Window  pagination.Window
	Notices []controller.Notification

	// Confirm, when set, replaces the screen with a delete confirmation
	// for that user.
	Confirm *types.User
}

// NewScreen builds the render data for state, deriving the pagination
// window from it.
func NewScreen(state controller.State, notices []controller.Notification) Screen {
	return Screen{
		Title:   Title,
		State:   state,
		Window:  state.Window(),
		Notices: notices,
	}
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustNew is New for package initialisation and tests.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Page writes a complete HTML document.
func (r *Renderer) Page(w io.Writer, s Screen) error {
	return r.tmpl.ExecuteTemplate(w, "layout", s)
}

// Fragment writes only the #screen element.
func (r *Renderer) Fragment(w io.Writer, s Screen) error {
	return r.tmpl.ExecuteTemplate(w, "screen", s)
}

// ConfirmDelete writes a complete page asking to confirm deleting u.
func (r *Renderer) ConfirmDelete(w io.Writer, u types.User) error {
	return r.tmpl.ExecuteTemplate(w, "layout", Screen{Title: Title, Confirm: &u})
}
