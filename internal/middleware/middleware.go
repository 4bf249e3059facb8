package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/EmpoweredVote/collective-backend/internal/utils"
)

// ProfileFetcher is the slice of the data store the guards need.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, id string) (store.Profile, error)
}

type profileKey struct{}

func WithProfile(ctx context.Context, p store.Profile) context.Context {
	return context.WithValue(ctx, profileKey{}, p)
}

// ProfileFromContext returns the profile loaded by RequireApproved or AdminMiddleware.
func ProfileFromContext(ctx context.Context) (store.Profile, bool) {
	p, ok := ctx.Value(profileKey{}).(store.Profile)
	return p, ok
}

func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			w.Header().Set("Access-Control-Expose-Headers", "Retry-After")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession answers 401 instead of redirecting. Used by API routes.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized: missing user ID in context", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// guard loads the caller's profile and sends it to /dashboard unless allow
// accepts it. Anonymous callers go to the login page.
func guard(profiles ProfileFetcher, name string, allow func(store.Profile) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, LoginRedirect(r.URL.Path), http.StatusSeeOther)
				return
			}

			profile, err := profiles.GetProfile(r.Context(), userID)
			if err != nil {
				log.Printf("[middleware] %s: profile %s: %v", name, userID, err)
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}
			if !allow(profile) {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), profile)))
		})
	}
}

func RequireApproved(profiles ProfileFetcher) func(http.Handler) http.Handler {
	return guard(profiles, "approved", func(p store.Profile) bool { return p.Approved })
}

// AdminMiddleware admits profiles with is_admin set, approved or not.
func AdminMiddleware(profiles ProfileFetcher) func(http.Handler) http.Handler {
	return guard(profiles, "admin", func(p store.Profile) bool { return p.IsAdmin })
}
