// Package api is the client for the remote users collection endpoint.
//
// The admin screen never talks to a database; every read and write goes
// through the four calls below:
//
//	GET    /users?page=P&limit=L   → { data, page, limit, total, totalPages }
//	POST   /users                  → created user
//	PUT    /users/{id}             → updated user
//	DELETE /users/{id}             → success / failure only
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/aanand-mishra/users-admin/internal/config"
	"github.com/aanand-mishra/users-admin/internal/metrics"
	"github.com/aanand-mishra/users-admin/internal/types"
)

const userAgent = "users-admin"

var (
	// ErrTransport wraps every failure to reach the backend at all
	// (connection refused, timeout, cancelled context).
	ErrTransport = errors.New("users backend unreachable")

	// ErrMalformedResponse wraps bodies that cannot be decoded, and list
	// responses that are missing one of their fields.
	ErrMalformedResponse = errors.New("malformed response from users backend")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("users backend returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("users backend returned HTTP %d: %s", e.Code, e.Message)
}

// Client talks to the users collection endpoint over a resty client.
type Client struct {
	client *resty.Client
}

// New builds a client for the backend described by cfg.
func New(cfg config.API) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
	return &Client{client: client}
}

// listBody mirrors types.UserPage with pointers so a missing field can be
// told apart from a zero value.
type listBody struct {
	Data       *[]types.User `json:"data"`
	Page       *int          `json:"page"`
	Limit      *int          `json:"limit"`
	Total      *int          `json:"total"`
	TotalPages *int          `json:"totalPages"`
}

// errorBody is the envelope the backend uses for failures:
//
//	{ "status": "error", "error": "field Name is required" }
type errorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// ListUsers fetches one page of users.
func (c *Client) ListUsers(ctx context.Context, page, limit int) (types.UserPage, error) {
	var result types.UserPage

	err := c.do(ctx, "list", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(limit),
		}).Get("/users")
	}, func(resp *resty.Response) error {
		var body listBody
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if missing := body.missing(); len(missing) > 0 {
			return fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
		}

		result = types.UserPage{
			Data:       *body.Data,
			Page:       *body.Page,
			Limit:      *body.Limit,
			Total:      *body.Total,
			TotalPages: *body.TotalPages,
		}
		return nil
	})
	return result, err
}

func (b listBody) missing() []string {
	var fields []string
	if b.Data == nil {
		fields = append(fields, "data")
	}
	if b.Page == nil {
		fields = append(fields, "page")
	}
	if b.Limit == nil {
		fields = append(fields, "limit")
	}
	if b.Total == nil {
		fields = append(fields, "total")
	}
	if b.TotalPages == nil {
		fields = append(fields, "totalPages")
	}
	return fields
}

// CreateUser posts a new user. The returned user is decoded best-effort:
// backends that answer with just { "id": N } yield a user with only the
// ID set.
func (c *Client) CreateUser(ctx context.Context, draft types.Draft) (types.User, error) {
	var user types.User
	err := c.do(ctx, "create", func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Content-Type", "application/json").
			SetBody(draft).
			Post("/users")
	}, decodeUser(&user))
	return user, err
}

// UpdateUser replaces the name and email of user id.
func (c *Client) UpdateUser(ctx context.Context, id int64, draft types.Draft) (types.User, error) {
	var user types.User
	err := c.do(ctx, "update", func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Content-Type", "application/json").
			SetPathParam("id", strconv.FormatInt(id, 10)).
			SetBody(draft).
			Put("/users/{id}")
	}, decodeUser(&user))
	if err != nil {
		return types.User{}, err
	}

	if user.ID == 0 {
		user.ID = id
	}
	return user, nil
}

// DeleteUser removes user id.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", strconv.FormatInt(id, 10)).
			Delete("/users/{id}")
	}, nil)
}

// do sends one request, classifies the outcome and hands successful
// responses to decode (which may be nil). Every call is counted once in
// the backend metrics under its final outcome.
func (c *Client) do(
	ctx context.Context,
	op string,
	send func(*resty.Request) (*resty.Response, error),
	decode func(*resty.Response) error,
) error {
	start := time.Now()

	resp, err := send(c.client.R().SetContext(ctx))
	if err != nil {
		metrics.ObserveBackend(op, metrics.OutcomeTransport, time.Since(start))
		return fmt.Errorf("%s users: %w: %v", op, ErrTransport, err)
	}

	if statusErr := classifyResponse(resp); statusErr != nil {
		metrics.ObserveBackend(op, metrics.OutcomeStatus, time.Since(start))
		return fmt.Errorf("%s users: %w", op, statusErr)
	}

	if decode != nil {
		if err := decode(resp); err != nil {
			metrics.ObserveBackend(op, metrics.OutcomeMalformed, time.Since(start))
			return fmt.Errorf("%s users: %w", op, err)
		}
	}

	metrics.ObserveBackend(op, metrics.OutcomeOK, time.Since(start))
	return nil
}

// classifyResponse returns nil for 2xx and a *StatusError otherwise.
func classifyResponse(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= 200 && code < 300 {
		return nil
	}

	statusErr := &StatusError{Code: code}

	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		statusErr.Message = body.Error
	} else {
		statusErr.Message = strings.TrimSpace(resp.String())
	}
	return statusErr
}

// decodeUser fills user from the body when it looks like a user and
// otherwise leaves it zero; only success or failure of a write is used.
func decodeUser(user *types.User) func(*resty.Response) error {
	return func(resp *resty.Response) error {
		_ = json.Unmarshal(resp.Body(), user)
		return nil
	}
}
