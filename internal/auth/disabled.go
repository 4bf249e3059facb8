package auth

import (
	"context"
	"net/http"

	"github.com/EmpoweredVote/collective-backend/internal/utils"
)

// Disabled is used when the server has no database or session secret. Every
// visitor is anonymous and sign-in/sign-up report that they are not configured.
type Disabled struct{}

func (Disabled) ResolveSession(ctx context.Context, r *http.Request) (utils.SessionData, []*http.Cookie, error) {
	return utils.SessionData{}, nil, nil
}

func (Disabled) SignIn(ctx context.Context, email, password string) (*http.Cookie, Credential, error) {
	return nil, Credential{}, ErrSignInNotConfigured
}

func (Disabled) SignUp(ctx context.Context, email, password, displayName string) (Credential, error) {
	return Credential{}, ErrRegistrationNotConfigured
}

func (Disabled) SignOut(ctx context.Context, r *http.Request) (*http.Cookie, error) {
	return &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1}, nil
}

func (Disabled) Subscribe(l Listener) func() { return func() {} }

var _ SessionProvider = Disabled{}
