package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/EmpoweredVote/collective-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(f *fixture, provider SessionProvider) http.Handler {
	h := &Handler{Provider: provider, Profiles: f.profiles}
	r := chi.NewRouter()
	r.Use(middleware.AuthGate(provider))
	r.Group(Routes(h, middleware.NewRateLimiter(100)))
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func responseCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestRegisterHandler(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f, f.provider)

	rec := postJSON(t, router, "/register", map[string]string{
		"email": "ada@example.com", "password": "secret1", "display_name": "Ada",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), RegistrationSuccess)

	rec = postJSON(t, router, "/register", map[string]string{"email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "User already registered")

	rec = postJSON(t, router, "/register", map[string]string{"email": "bob@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password should be at least 6 characters")
}

func TestRegisterHandlerNotConfigured(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f, Disabled{})

	rec := postJSON(t, router, "/register", map[string]string{"email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registration is not configured. Please contact support.")
}

func TestLoginHandlerRedirects(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com", "secret1")
	router := newRouter(f, f.provider)

	rec := postJSON(t, router, "/login", map[string]string{
		"email": "ada@example.com", "password": "secret1", "redirected_from": "/dashboard/content/42",
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/dashboard/content/42", rec.Header().Get("Location"))
	assert.NotNil(t, responseCookie(rec))

	rec = postJSON(t, router, "/login", map[string]string{
		"email": "ada@example.com", "password": "secret1", "redirected_from": "https://evil.example/",
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestLoginHandlerFormPost(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com", "secret1")
	router := newRouter(f, f.provider)

	form := url.Values{"email": {"ada@example.com"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/login?redirectedFrom=%2Fadmin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestLoginHandlerInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com", "secret1")
	router := newRouter(f, f.provider)

	rec := postJSON(t, router, "/login", map[string]string{"email": "ada@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid login credentials")
	assert.Nil(t, responseCookie(rec))
}

func TestSignedInVisitorIsSentFromLoginToDashboard(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com", "secret1")
	cookie := f.signIn(t, "ada@example.com", "secret1")
	router := newRouter(f, f.provider)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie.Value})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestMeAndLogout(t *testing.T) {
	f := newFixture(t)
	cred := f.register(t, "ada@example.com", "secret1")
	cookie := f.signIn(t, "ada@example.com", "secret1")
	router := newRouter(f, f.provider)
	sent := &http.Cookie{Name: CookieName, Value: cookie.Value}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(sent)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, cred.UserID, me["id"])
	assert.Equal(t, false, me["approved"])

	rec = postJSON(t, router, "/logout", nil, sent)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	cleared := responseCookie(rec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(sent)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAfterGateRotation(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com", "secret1")
	cookie := f.signIn(t, "ada@example.com", "secret1")
	router := newRouter(f, f.provider)

	f.now = f.now.Add(4 * time.Hour)
	rec := postJSON(t, router, "/logout", nil, &http.Cookie{Name: CookieName, Value: cookie.Value})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Empty(t, f.repo.sessions)
	assert.Equal(t, []EventKind{EventSignedUp, EventSignedIn, EventRefreshed, EventSignedOut}, f.events)

	var last *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			last = c
		}
	}
	require.NotNil(t, last)
	assert.Equal(t, -1, last.MaxAge, "the clearing cookie must be the one the browser keeps")
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]string{
		"":                  "/dashboard",
		"/admin":            "/admin",
		"//evil.example":    "/dashboard",
		"/\\evil.example":   "/dashboard",
		"https://evil.test": "/dashboard",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeRedirect(in), in)
	}
}
