package middleware

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/EmpoweredVote/collective-backend/internal/utils"
)

// SessionResolver resolves the current user from the request. Cookies it
// returns (refreshed or cleared sessions) must reach the client whatever the
// gate decides.
type SessionResolver interface {
	ResolveSession(ctx context.Context, r *http.Request) (utils.SessionData, []*http.Cookie, error)
}

var staticAsset = regexp.MustCompile(`^/static/|^/favicon\.ico$|\.(svg|png|jpe?g|gif|webp)$`)

var protectedPrefixes = []string{"/dashboard", "/admin"}

var authEntryPaths = map[string]struct{}{
	"/login":    {},
	"/register": {},
}

type pathClass int

const (
	classPublic pathClass = iota
	classProtected
	classAuthEntry
)

func classify(path string) pathClass {
	for _, p := range protectedPrefixes {
		if strings.HasPrefix(path, p) {
			return classProtected
		}
	}
	if _, ok := authEntryPaths[path]; ok {
		return classAuthEntry
	}
	return classPublic
}

// LoginRedirect is where an anonymous request for path is sent.
func LoginRedirect(path string) string {
	return "/login?redirectedFrom=" + url.QueryEscape(path)
}

// AuthGate runs on every request. It never fails the request: resolution
// errors count as anonymous.
func AuthGate(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if staticAsset.MatchString(path) {
				next.ServeHTTP(w, r)
				return
			}

			session, cookies, err := resolver.ResolveSession(r.Context(), r)
			if err != nil {
				log.Printf("[gate] session lookup failed for %s: %v", path, err)
				session = utils.SessionData{}
			}
			for _, c := range cookies {
				http.SetCookie(w, c)
			}
			signedIn := session.UserID != ""

			switch classify(path) {
			case classProtected:
				if !signedIn {
					http.Redirect(w, r, LoginRedirect(path), http.StatusTemporaryRedirect)
					return
				}
			case classAuthEntry:
				if signedIn {
					http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
					return
				}
			}

			if signedIn {
				r = r.WithContext(utils.WithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}
