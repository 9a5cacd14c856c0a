package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/users-admin/internal/session"
	"github.com/aanand-mishra/users-admin/internal/types"
	"github.com/aanand-mishra/users-admin/internal/view"
)

// memService is an in-memory users backend.
type memService struct {
	mu      sync.Mutex
	users   []types.User
	nextID  int64
	listErr error
	calls   []string
}

func newMemService(names ...string) *memService {
	s := &memService{nextID: 1}
	for _, n := range names {
		s.users = append(s.users, types.User{
			ID:    s.nextID,
			Name:  n,
			Email: strings.ToLower(n) + "@x.com",
		})
		s.nextID++
	}
	return s
}

func (s *memService) ListUsers(_ context.Context, page, limit int) (types.UserPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("GET page=%d limit=%d", page, limit))
	if s.listErr != nil {
		return types.UserPage{}, s.listErr
	}

	total := len(s.users)
	totalPages := (total + limit - 1) / limit
	from := min(total, (page-1)*limit)
	to := min(total, from+limit)
	return types.UserPage{
		Data:       append([]types.User(nil), s.users[from:to]...),
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func (s *memService) CreateUser(_ context.Context, d types.Draft) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "POST")
	u := types.User{ID: s.nextID, Name: d.Name, Email: d.Email}
	s.nextID++
	s.users = append(s.users, u)
	return u, nil
}

func (s *memService) UpdateUser(_ context.Context, id int64, d types.Draft) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("PUT %d", id))
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].Name, s.users[i].Email = d.Name, d.Email
			return s.users[i], nil
		}
	}
	return types.User{}, errors.New("user not found")
}

func (s *memService) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("DELETE %d", id))
	for i := range s.users {
		if s.users[i].ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return errors.New("user not found")
}

func (s *memService) writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if !strings.HasPrefix(c, "GET") {
			out = append(out, c)
		}
	}
	return out
}

func (s *memService) lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, "GET") {
			n++
		}
	}
	return n
}

func (s *memService) add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, types.User{ID: s.nextID, Name: name, Email: strings.ToLower(name) + "@x.com"})
	s.nextID++
}

// browser keeps the session cookie between requests.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newBrowser(t *testing.T, svc *memService, pageSize int) *browser {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := http.NewServeMux()
	Register(router, Deps{
		Sessions: session.NewRegistry(session.Options{
			Service:  svc,
			Logger:   log,
			PageSize: pageSize,
		}),
		Views:  view.MustNew(),
		Logger: log,
	})
	return &browser{t: t, handler: router}
}

func (b *browser) do(method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	if cs := rec.Result().Cookies(); len(cs) > 0 {
		b.cookies = cs
	}
	return rec
}

func TestIndex_RendersFirstPage(t *testing.T) {
	b := newBrowser(t, newMemService("Ann", "Bob", "Cid"), 2)

	rec := b.do(http.MethodGet, "/", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, b.cookies)

	body := rec.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "Add User")
	assert.Contains(t, body, "Ann")
	assert.Contains(t, body, "Bob")
	assert.NotContains(t, body, "Cid")
	assert.Contains(t, body, `href="/page/2"`)
}

func TestPage_HTMXFragment(t *testing.T) {
	b := newBrowser(t, newMemService("Ann", "Bob", "Cid"), 2)
	b.do(http.MethodGet, "/", nil, false)

	rec := b.do(http.MethodGet, "/page/2", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, `id="screen"`)
	assert.Contains(t, body, "Cid")
	assert.NotContains(t, body, "Ann")
}

func TestPage_OutOfRangeIgnored(t *testing.T) {
	svc := newMemService("Ann", "Bob", "Cid")
	b := newBrowser(t, svc, 2)
	b.do(http.MethodGet, "/", nil, false)

	rec := b.do(http.MethodGet, "/page/9", nil, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = b.do(http.MethodGet, "/state", nil, false)
	var st stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Page)
}

func TestPage_InvalidNumber(t *testing.T) {
	b := newBrowser(t, newMemService(), 2)

	rec := b.do(http.MethodGet, "/page/abc", nil, false)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":"invalid page: must be an integer"}`, rec.Body.String())
}

func TestSubmit_CreateRedirectsThenShowsNotice(t *testing.T) {
	svc := newMemService("Ann")
	b := newBrowser(t, svc, 10)
	b.do(http.MethodGet, "/", nil, false)

	rec := b.do(http.MethodPost, "/users", url.Values{"name": {"Dee"}, "email": {"d@x.com"}}, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, []string{"POST"}, svc.writes())

	body := b.do(http.MethodGet, "/", nil, false).Body.String()
	assert.Contains(t, body, "User created")
	assert.Contains(t, body, "Dee")

	// notices are shown once
	body = b.do(http.MethodGet, "/", nil, false).Body.String()
	assert.NotContains(t, body, "User created")
}

func TestSubmit_InvalidDraftSendsNothing(t *testing.T) {
	svc := newMemService("Ann")
	b := newBrowser(t, svc, 10)
	b.do(http.MethodGet, "/", nil, false)

	rec := b.do(http.MethodPost, "/users", url.Values{"name": {"Dee"}, "email": {"not-an-email"}}, true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Please check the form")
	assert.Contains(t, body, `value="not-an-email"`)
	assert.Empty(t, svc.writes())
}

func TestEditThenSubmit_Updates(t *testing.T) {
	svc := newMemService("Ann", "Bob")
	b := newBrowser(t, svc, 10)
	b.do(http.MethodGet, "/", nil, false)

	rec := b.do(http.MethodPost, "/users/2/edit", url.Values{}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Edit User")
	assert.Contains(t, rec.Body.String(), `value="bob@x.com"`)

	rec = b.do(http.MethodPost, "/users", url.Values{"name": {"Robert"}, "email": {"bob@x.com"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"PUT 2"}, svc.writes())

	body := rec.Body.String()
	assert.Contains(t, body, "User updated")
	assert.Contains(t, body, "Robert")
	assert.Contains(t, body, "Add User")
}

func TestEdit_UnknownUser(t *testing.T) {
	b := newBrowser(t, newMemService("Ann"), 10)
	b.do(http.MethodGet, "/", nil, false)

	rec := b.do(http.MethodPost, "/users/42/edit", url.Values{}, true)

	assert.Contains(t, rec.Body.String(), "User not found")
	assert.Contains(t, rec.Body.String(), "Add User")
}

func TestCancel(t *testing.T) {
	b := newBrowser(t, newMemService("Ann"), 10)
	b.do(http.MethodGet, "/", nil, false)
	b.do(http.MethodPost, "/users/1/edit", url.Values{}, true)

	rec := b.do(http.MethodPost, "/users/cancel", url.Values{}, true)

	body := rec.Body.String()
	assert.Contains(t, body, "Add User")
	assert.NotContains(t, body, `value="ann@x.com"`)
}

func TestDelete_WithoutConfirmation(t *testing.T) {
	svc := newMemService("Ann")
	b := newBrowser(t, svc, 10)
	b.do(http.MethodGet, "/", nil, false)

	rec := b.do(http.MethodPost, "/users/1/delete", url.Values{}, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/users/1/delete", rec.Header().Get("Location"))

	rec = b.do(http.MethodPost, "/users/1/delete", url.Values{}, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/users/1/delete", rec.Header().Get("HX-Redirect"))

	assert.Empty(t, svc.writes())
}

func TestConfirmDeletePage(t *testing.T) {
	b := newBrowser(t, newMemService("Ann"), 10)
	b.do(http.MethodGet, "/", nil, false)

	rec := b.do(http.MethodGet, "/users/1/delete", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>Ann</strong>")
	assert.Contains(t, rec.Body.String(), `name="confirm" value="yes"`)
}

func TestDelete_Confirmed(t *testing.T) {
	svc := newMemService("Ann", "Bob")
	b := newBrowser(t, svc, 10)
	b.do(http.MethodGet, "/", nil, false)

	rec := b.do(http.MethodPost, "/users/1/delete", url.Values{"confirm": {"yes"}}, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"DELETE 1"}, svc.writes())
	body := rec.Body.String()
	assert.Contains(t, body, "User deleted")
	assert.NotContains(t, body, "ann@x.com")
	assert.Contains(t, body, "bob@x.com")
}

func TestDelete_LastUserOnLastPageMovesBack(t *testing.T) {
	svc := newMemService("Ann", "Bob", "Cid")
	b := newBrowser(t, svc, 2)
	b.do(http.MethodGet, "/", nil, false)
	b.do(http.MethodGet, "/page/2", nil, false)

	b.do(http.MethodPost, "/users/3/delete", url.Values{"confirm": {"yes"}}, false)

	var st stateResponse
	require.NoError(t, json.Unmarshal(b.do(http.MethodGet, "/state", nil, false).Body.Bytes(), &st))
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, 1, st.TotalPages)
	assert.Len(t, st.Records, 2)
}

func TestState(t *testing.T) {
	b := newBrowser(t, newMemService("Ann", "Bob", "Cid"), 1)

	rec := b.do(http.MethodGet, "/state", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	var st stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Loaded)
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, 3, st.TotalPages)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, []int{1, 2, 3}, st.Window)
	require.Len(t, st.Records, 1)
	assert.Equal(t, "Ann", st.Records[0].Name)
}

func TestIndex_BackendDown(t *testing.T) {
	svc := newMemService()
	svc.listErr = errors.New("connection refused")
	b := newBrowser(t, svc, 10)

	rec := b.do(http.MethodGet, "/", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "toast-error")
	assert.Contains(t, body, "connection refused")
	assert.Contains(t, body, "No users available")
}

func TestHealth(t *testing.T) {
	b := newBrowser(t, newMemService(), 10)

	rec := b.do(http.MethodGet, "/healthz", nil, false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndex_ReloadShowsChangesMadeElsewhere(t *testing.T) {
	svc := newMemService("Ann")
	b := newBrowser(t, svc, 10)

	require.NotContains(t, b.do(http.MethodGet, "/", nil, false).Body.String(), "Zed")

	// another admin adds a user
	svc.add("Zed")

	body := b.do(http.MethodGet, "/", nil, false).Body.String()
	assert.Contains(t, body, "Zed")
	assert.Equal(t, 2, svc.lists())
}

func TestIndex_NoSecondFetchAfterRedirect(t *testing.T) {
	svc := newMemService("Ann")
	b := newBrowser(t, svc, 10)
	b.do(http.MethodGet, "/", nil, false)
	require.Equal(t, 1, svc.lists())

	rec := b.do(http.MethodPost, "/users", url.Values{"name": {"Dee"}, "email": {"d@x.com"}}, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, 2, svc.lists(), "submit refetches once")

	body := b.do(http.MethodGet, "/", nil, false).Body.String()
	assert.Contains(t, body, "Dee")
	assert.Equal(t, 2, svc.lists(), "the redirect target reuses the refetch")

	b.do(http.MethodGet, "/", nil, false)
	assert.Equal(t, 3, svc.lists(), "a later reload fetches again")
}

func TestDraft_KeepsTypedFields(t *testing.T) {
	svc := newMemService("Ann")
	b := newBrowser(t, svc, 10)
	b.do(http.MethodGet, "/", nil, false)

	rec := b.do(http.MethodPost, "/users/draft", url.Values{"name": {"Half typed"}}, true)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	b.do(http.MethodPost, "/users/draft", url.Values{"email": {"half@x.com"}}, true)

	var st stateResponse
	require.NoError(t, json.Unmarshal(b.do(http.MethodGet, "/state", nil, false).Body.Bytes(), &st))
	assert.Equal(t, types.Draft{Name: "Half typed", Email: "half@x.com"}, st.Draft)
	assert.False(t, st.Editing)

	body := b.do(http.MethodGet, "/", nil, false).Body.String()
	assert.Contains(t, body, `value="Half typed"`)
	assert.Empty(t, svc.writes())
}
