package accounts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhijeet1005/SartiaProject/internal/view"
)

func newTestRouter(t *testing.T) (*chi.Mux, *testStack) {
	t.Helper()
	ts := newTestStack(t, ServiceConfig{})

	templates, err := view.NewEngine()
	require.NoError(t, err)

	mw := NewMiddleware(testLogger(), ts.codec, ts.revocations, ts.service, testCookieName)
	handler := NewHandler(testLogger(), ts.service, mw, templates, HandlerConfig{
		CookieName:   testCookieName,
		SecureCookie: false,
		SessionTTL:   time.Hour,
	})

	r := chi.NewRouter()
	r.Route("/api/users", handler.MountRoutes)
	return r, ts
}

func doJSON(t *testing.T, router http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func sessionCookieFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	// Register.
	rr := doJSON(t, router, http.MethodPost, "/api/users/register",
		`{"fullname":"Jane Doe","email":"jane@example.com","password":"hunter2","profile":"dev"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
	assert.NotContains(t, rr.Body.String(), "hunter2")

	var registered PublicUser
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &registered))
	assert.Equal(t, "jane@example.com", registered.Email)
	assert.Equal(t, RoleMember, registered.Role)
	assert.True(t, registered.IsActive)

	// Login sets the session cookie.
	rr = doJSON(t, router, http.MethodPost, "/api/users/login",
		`{"email":"jane@example.com","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookieFrom(t, rr)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	var loggedIn loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loggedIn))
	assert.Equal(t, cookie.Value, loggedIn.AccessToken)

	// The cookie authenticates.
	rr = doJSON(t, router, http.MethodGet, "/api/users/current-user", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var current PublicUser
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &current))
	assert.Equal(t, registered.ID, current.ID)

	// Logout clears and revokes.
	rr = doJSON(t, router, http.MethodPost, "/api/users/logout", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	cleared := sessionCookieFrom(t, rr)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)

	// The old cookie no longer works.
	rr = doJSON(t, router, http.MethodGet, "/api/users/current-user", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRegisterRejections(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/users/register",
		`{"fullname":"Jane","email":"jane@example.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Same address, different case.
	rr = doJSON(t, router, http.MethodPost, "/api/users/register",
		`{"fullname":"Other","email":"JANE@EXAMPLE.COM","password":"pw"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/users/register",
		`{"fullname":"Jane","email":"no-at-sign","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/users/register",
		`{"email":"jane2@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginRejections(t *testing.T) {
	router, ts := newTestRouter(t)
	ts.repo.seed(t, "a@x.com", "secret", RoleMember, true)
	ts.repo.seed(t, "off@x.com", "secret", RoleMember, false)

	rr := doJSON(t, router, http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/users/login", `{"email":"off@x.com","password":"secret"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/users/login", `{"email":"nobody@x.com","password":"secret"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/users/login", `{"password":"secret"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminEndpoints(t *testing.T) {
	router, ts := newTestRouter(t)
	ts.repo.seed(t, "member@x.com", "secret", RoleMember, true)
	ts.repo.seed(t, "admin@x.com", "secret", RoleAdmin, true)
	ts.repo.seed(t, "target@x.com", "secret", RoleMember, true)

	login := func(email string) *http.Cookie {
		rr := doJSON(t, router, http.MethodPost, "/api/users/login",
			`{"email":"`+email+`","password":"secret"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		return sessionCookieFrom(t, rr)
	}
	memberCookie := login("member@x.com")
	adminCookie := login("admin@x.com")

	// Members are forbidden, anonymous callers unauthorized.
	rr := doJSON(t, router, http.MethodGet, "/api/users/all-users", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = doJSON(t, router, http.MethodGet, "/api/users/all-users", "", memberCookie)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = doJSON(t, router, http.MethodPost, "/api/users/activation-toggle",
		`{"email":"target@x.com"}`, memberCookie)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Admin list.
	rr = doJSON(t, router, http.MethodGet, "/api/users/all-users", "", adminCookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var users []PublicUser
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	assert.Len(t, users, 3)
	assert.NotContains(t, rr.Body.String(), "passwordHash")

	// Admin deactivates the target.
	rr = doJSON(t, router, http.MethodPost, "/api/users/activation-toggle",
		`{"email":"target@x.com"}`, adminCookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "deactivated")

	rr = doJSON(t, router, http.MethodPost, "/api/users/login", `{"email":"target@x.com","password":"secret"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Unknown target.
	rr = doJSON(t, router, http.MethodPost, "/api/users/activation-toggle",
		`{"email":"nobody@x.com"}`, adminCookie)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestForgotPasswordRateLimit(t *testing.T) {
	router, ts := newTestRouter(t)
	ts.repo.seed(t, "a@x.com", "secret", RoleMember, true)

	// httptest requests share a client address, so the per-IP limiter sees a
	// single caller.
	for i := 0; i < forgotPasswordLimit; i++ {
		rr := doJSON(t, router, http.MethodPost, "/api/users/forgot-password", `{"email":"a@x.com"}`)
		require.Equal(t, http.StatusOK, rr.Code, "request %d", i+1)
	}
	rr := doJSON(t, router, http.MethodPost, "/api/users/forgot-password", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	router, ts := newTestRouter(t)
	ts.repo.seed(t, "a@x.com", "oldpass", RoleMember, true)

	rr := doJSON(t, router, http.MethodPost, "/api/users/forgot-password", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	raw := resetTokenFromMail(t, ts.mailer.last(t).body)

	// The emailed link renders the form with the token embedded.
	req := httptest.NewRequest(http.MethodGet, "/api/users/new-password?token="+url.QueryEscape(raw), nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), raw)

	// The form posts urlencoded.
	form := url.Values{"password": {"brand-new"}}
	req = httptest.NewRequest(http.MethodPost, "/api/users/new-password?token="+url.QueryEscape(raw),
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// New password works, old one does not.
	lr := doJSON(t, router, http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"brand-new"}`)
	assert.Equal(t, http.StatusOK, lr.Code)
	lr = doJSON(t, router, http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"oldpass"}`)
	assert.Equal(t, http.StatusUnauthorized, lr.Code)

	// Replaying the consumed token fails.
	req = httptest.NewRequest(http.MethodPost, "/api/users/new-password?token="+url.QueryEscape(raw),
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	router, ts := newTestRouter(t)
	ts.repo.seed(t, "a@x.com", "oldpass", RoleMember, true)

	rr := doJSON(t, router, http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"oldpass"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookieFrom(t, rr)

	rr = doJSON(t, router, http.MethodPost, "/api/users/change-password",
		`{"oldPassword":"wrong","newPassword":"newpass"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/users/change-password",
		`{"oldPassword":"oldpass","newPassword":"newpass"}`, cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"newpass"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}
