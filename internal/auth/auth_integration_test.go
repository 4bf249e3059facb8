package auth_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/EmpoweredVote/collective-backend/internal/auth"
	"github.com/EmpoweredVote/collective-backend/internal/db"
	"github.com/EmpoweredVote/collective-backend/internal/middleware"
	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// dbAvailable tracks whether the database connection was established.
var dbAvailable bool

// testServer is the shared httptest server for all integration tests.
var testServer *httptest.Server

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// No database available; every test skips.
		os.Exit(m.Run())
	}

	db.Connect(databaseURL)
	dbAvailable = true

	auth.Init()
	store.Init()

	profiles := store.NewGormStore(db.DB)
	provider := auth.NewProvider(auth.NewGormRepository(db.DB), profiles, auth.Options{
		Secret: "integration-secret",
		TTL:    time.Hour,
	})
	h := &auth.Handler{Provider: provider, Profiles: profiles}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.AuthGate(provider))
	r.Group(auth.Routes(h, middleware.NewRateLimiter(1000)))

	testServer = httptest.NewServer(r)
	code := m.Run()
	testServer.Close()
	os.Exit(code)
}

// registerTestUser signs up a unique user through the API and removes it afterwards.
func registerTestUser(t *testing.T) (email, password string) {
	t.Helper()
	if !dbAvailable {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}

	email = fmt.Sprintf("testuser_%s@example.com", uuid.New().String()[:8])
	password = "TestPass123!"

	resp := postJSON(t, newClientWithJar(t), "/register", map[string]string{
		"email":        email,
		"password":     password,
		"display_name": "Integration",
	})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: %d %s", resp.StatusCode, body)
	}

	var result map[string]string
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("invalid JSON body: %s", body)
	}
	userID := result["user_id"]

	t.Cleanup(func() {
		db.DB.Where("user_id = ?", userID).Delete(&auth.Session{})
		db.DB.Where("user_id = ?", userID).Delete(&auth.Credential{})
		db.DB.Where("id = ?", userID).Delete(&store.Profile{})
	})
	return email, password
}

// newClientWithJar returns a client that keeps cookies and does not follow redirects.
func newClientWithJar(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postJSON(t *testing.T, client *http.Client, path string, body any) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := client.Post(testServer.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// readBody reads and returns the response body as a string, draining and closing it.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func login(t *testing.T, client *http.Client, email, password string) {
	t.Helper()
	resp := postJSON(t, client, "/login", map[string]string{"email": email, "password": password})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 from /login, got %d; body: %s", resp.StatusCode, body)
	}
}

func TestRegisteredUserIsPending(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
	email, password := registerTestUser(t)
	client := newClientWithJar(t)
	login(t, client, email, password)

	resp, err := client.Get(testServer.URL + "/me")
	if err != nil {
		t.Fatalf("GET /me: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d; body: %s", resp.StatusCode, body)
	}

	var me map[string]any
	if err := json.Unmarshal([]byte(body), &me); err != nil {
		t.Fatalf("invalid JSON body: %s", body)
	}
	if me["email"] != email {
		t.Errorf("expected email %q, got %v", email, me["email"])
	}
	if me["approved"] != false || me["is_admin"] != false {
		t.Errorf("new profiles must be pending members, got %v", me)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
	email, password := registerTestUser(t)
	client := newClientWithJar(t)
	login(t, client, email, password)

	resp := postJSON(t, client, "/logout", nil)
	readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 from /logout, got %d", resp.StatusCode)
	}

	meResp, err := client.Get(testServer.URL + "/me")
	if err != nil {
		t.Fatalf("GET /me after logout: %v", err)
	}
	meBody := readBody(t, meResp)
	if meResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 from /me after logout, got %d; body: %s", meResp.StatusCode, meBody)
	}
}

func TestExpiredSessionIsAnonymous(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
	email, password := registerTestUser(t)
	client := newClientWithJar(t)
	login(t, client, email, password)

	var cred auth.Credential
	if err := db.DB.First(&cred, "email = ?", email).Error; err != nil {
		t.Fatalf("load credential: %v", err)
	}
	if err := db.DB.Model(&auth.Session{}).
		Where("user_id = ?", cred.UserID).
		Update("expires_at", time.Now().Add(-1*time.Hour)).Error; err != nil {
		t.Fatalf("failed to expire session: %v", err)
	}

	meResp, err := client.Get(testServer.URL + "/me")
	if err != nil {
		t.Fatalf("GET /me after expiry: %v", err)
	}
	meBody := readBody(t, meResp)
	if meResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 from /me with expired session, got %d; body: %s", meResp.StatusCode, meBody)
	}
}
