package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is not set")
	ErrMissingSessionSecret = errors.New("SESSION_SECRET is not set")
)

// DefaultSessionTTL matches the lifetime sessions have always had on the auth service.
const DefaultSessionTTL = 6 * time.Hour

const DefaultPort = "5050"

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:5174",
}

// Config holds the server configuration.
type Config struct {
	// Required. Without these the server runs in disabled mode
	// (or refuses to start in production).
	DatabaseURL   string
	SessionSecret string

	Port string
	// Deployed is true when PORT was provided by the environment; cookies are
	// only marked Secure in that case.
	Deployed   bool
	Env        string
	SessionTTL time.Duration

	AllowedOrigins  []string
	LoginRatePerMin int
	// TrustProxy keys the login limiter on the forwarded client address.
	// Only set it behind a proxy that overwrites X-Forwarded-For.
	TrustProxy bool
}

// LoadFromEnv loads configuration from environment variables.
//
// Environment variables:
//   - DATABASE_URL: Postgres DSN (required)
//   - SESSION_SECRET: HMAC key used to sign session cookies (required)
//   - PORT: listen port (default: 5050)
//   - APP_ENV: "production" makes missing configuration fatal (default: development)
//   - SESSION_TTL: Go duration for session lifetime (default: 6h)
//   - ALLOWED_ORIGINS: comma-separated CORS allow-list
//   - LOGIN_RATE_PER_MIN: sign-in/sign-up attempts per client per minute (default: 10)
//   - TRUST_PROXY: "true" to rate-limit on X-Forwarded-For/X-Real-IP (default: false)
func LoadFromEnv() Config {
	port := strings.TrimSpace(os.Getenv("PORT"))
	deployed := port != ""
	if port == "" {
		port = DefaultPort
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if env == "" {
		env = "development"
	}

	ttl := DefaultSessionTTL
	if raw := strings.TrimSpace(os.Getenv("SESSION_TTL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			ttl = d
		}
	}

	origins := defaultOrigins
	if raw := os.Getenv("ALLOWED_ORIGINS"); strings.TrimSpace(raw) != "" {
		origins = nil
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	rpm := 10
	if raw := strings.TrimSpace(os.Getenv("LOGIN_RATE_PER_MIN")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			rpm = n
		}
	}

	trustProxy, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("TRUST_PROXY")))

	return Config{
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		Port:            port,
		Deployed:        deployed,
		Env:             env,
		SessionTTL:      ttl,
		AllowedOrigins:  origins,
		LoginRatePerMin: rpm,
		TrustProxy:      trustProxy,
	}
}

// Validate reports every missing required value.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.SessionSecret == "" {
		errs = append(errs, ErrMissingSessionSecret)
	}
	return errors.Join(errs...)
}

func (c Config) Production() bool {
	return c.Env == "production"
}
