package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/EmpoweredVote/collective-backend/internal/middleware"
	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/EmpoweredVote/collective-backend/internal/utils"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// mockProfiles implements middleware.ProfileFetcher.
type mockProfiles struct {
	profile store.Profile
	err     error
}

func (m mockProfiles) GetProfile(ctx context.Context, id string) (store.Profile, error) {
	return m.profile, m.err
}

// callAs runs mw in front of a 200-OK handler, with userID in context when non-empty.
func callAs(t *testing.T, mw func(http.Handler) http.Handler, userID string) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.ProfileFromContext(r.Context()); !ok {
			http.Error(w, "profile not in context", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if userID != "" {
		req = req.WithContext(utils.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

func TestRequireSession_MissingUserID(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	middleware.RequireSession(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing user ID") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestAdminMiddleware(t *testing.T) {
	cases := []struct {
		name         string
		profiles     mockProfiles
		userID       string
		wantCode     int
		wantLocation string
	}{
		{"admin", mockProfiles{profile: store.Profile{IsAdmin: true}}, "u1", http.StatusOK, ""},
		{"admin awaiting approval", mockProfiles{profile: store.Profile{IsAdmin: true, Approved: false}}, "u1", http.StatusOK, ""},
		{"member", mockProfiles{profile: store.Profile{Approved: true}}, "u1", http.StatusSeeOther, "/dashboard"},
		{"profile lookup fails", mockProfiles{err: store.NotFound("profile not found")}, "u1", http.StatusSeeOther, "/dashboard"},
		{"anonymous", mockProfiles{}, "", http.StatusSeeOther, middleware.LoginRedirect("/admin")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := callAs(t, middleware.AdminMiddleware(tc.profiles), tc.userID)
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tc.wantLocation {
				t.Errorf("expected Location %q, got %q", tc.wantLocation, got)
			}
		})
	}
}

func TestRequireApproved(t *testing.T) {
	rec := callAs(t, middleware.RequireApproved(mockProfiles{profile: store.Profile{Approved: true}}), "u1")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	// Admin does not imply approved.
	rec = callAs(t, middleware.RequireApproved(mockProfiles{profile: store.Profile{IsAdmin: true}}), "u1")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Errorf("expected 303 to /dashboard, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestCORSMiddleware(t *testing.T) {
	mw := middleware.CORSMiddleware([]string{"http://localhost:5173"})
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin for unknown origin, got %q", got)
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := middleware.NewRateLimiter(2)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := limiter.Middleware(inner)

	post := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := post("10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := post("10.0.0.1:9999")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "30" {
		t.Errorf("expected Retry-After 30, got %q", rec.Header().Get("Retry-After"))
	}

	if rec := post("10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Errorf("other clients are unaffected, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	get := httptest.NewRecorder()
	h.ServeHTTP(get, req)
	if get.Code != http.StatusOK {
		t.Errorf("GET is never limited, got %d", get.Code)
	}
}

func TestRateLimiterIgnoresForwardedHeaders(t *testing.T) {
	limiter := middleware.NewRateLimiter(2)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := middleware.PeerAddr(chimiddleware.RealIP(limiter.Middleware(inner)))

	limited := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 18 {
		t.Errorf("expected 18 of 20 spoofed attempts limited, got %d", limited)
	}
	if limiter.Tracked() != 1 {
		t.Errorf("expected one tracked client, got %d", limiter.Tracked())
	}
}

func TestRateLimiterTrustProxyUsesForwardedAddress(t *testing.T) {
	limiter := middleware.NewRateLimiter(1).TrustProxy()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := middleware.PeerAddr(chimiddleware.RealIP(limiter.Middleware(inner)))

	for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200 behind a trusted proxy, got %d", ip, rec.Code)
		}
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := middleware.NewRateLimiter(2)
	limiter.SetClock(func() time.Time { return now })
	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	post := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 50; i++ {
		post(fmt.Sprintf("10.1.0.%d:1000", i))
	}
	if limiter.Tracked() != 50 {
		t.Fatalf("expected 50 tracked clients, got %d", limiter.Tracked())
	}

	now = now.Add(30 * time.Second)
	post("10.2.0.1:1000")
	if limiter.Tracked() != 51 {
		t.Errorf("clients are kept until their bucket refills, got %d", limiter.Tracked())
	}

	now = now.Add(time.Minute)
	if code := post("10.2.0.2:1000"); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if limiter.Tracked() != 1 {
		t.Errorf("expected idle clients evicted, got %d tracked", limiter.Tracked())
	}
}
