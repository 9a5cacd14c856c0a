// Package types holds the shared data structures used across the
// application. Keeping them in one place prevents import cycles: the
// backend client, the controller, the session store and the handlers all
// import types without depending on each other.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// User is a record owned by the remote backend.
//
// The ID is assigned by the server and is never sent back in a request
// body; the admin screen only ever holds a read-only copy of the current
// page of users.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Draft is the unsaved content of the create/edit form.
//
// The validate:"..." tags are checked by go-playground/validator before a
// request is issued. The check is advisory only: the backend remains the
// source of truth and may still reject a draft that passes here.
type Draft struct {
	Name  string `json:"name"  validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// DraftFrom seeds a draft from an existing user.
func DraftFrom(u User) Draft {
	return Draft{Name: u.Name, Email: u.Email}
}

// UserPage is the body returned by GET /users?page=P&limit=L.
type UserPage struct {
	Data       []User `json:"data"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// validate is safe for concurrent use and caches struct metadata, so one
// instance is shared by every caller.
var validate = validator.New()

// ValidationError lists the draft fields that failed the advisory check.
type ValidationError struct {
	Fields   []string
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// Validate runs the advisory checks on the draft. Leading and trailing
// whitespace is ignored, so a name of "   " counts as empty.
//
// It returns nil or a *ValidationError whose messages read like:
//
//	field name is required, field email must be a valid email address
func (d Draft) Validate() error {
	trimmed := Draft{
		Name:  strings.TrimSpace(d.Name),
		Email: strings.TrimSpace(d.Email),
	}

	err := validate.Struct(trimmed)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate draft: %w", err)
	}

	verr := &ValidationError{}
	for _, e := range fieldErrs {
		field := strings.ToLower(e.Field())
		verr.Fields = append(verr.Fields, field)

		switch e.ActualTag() {
		case "required":
			verr.Messages = append(verr.Messages,
				fmt.Sprintf("field %s is required", field))
		case "email":
			verr.Messages = append(verr.Messages,
				fmt.Sprintf("field %s must be a valid email address", field))
		default:
			verr.Messages = append(verr.Messages,
				fmt.Sprintf("field %s is invalid", field))
		}
	}
	return verr
}
