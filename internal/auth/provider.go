// Package auth is the session provider: credentials, signed session cookies
// and session-change notifications.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/EmpoweredVote/collective-backend/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const CookieName = "session_id"

const MinPasswordLength = 6

// RotationGrace is how long a rotated session keeps resolving, to its
// successor, for requests that were already in flight.
const RotationGrace = 30 * time.Second

// These messages are shown to the user as-is.
var (
	ErrInvalidCredentials        = errors.New("Invalid login credentials")
	ErrUserExists                = errors.New("User already registered")
	ErrWeakPassword              = fmt.Errorf("Password should be at least %d characters", MinPasswordLength)
	ErrMissingEmail              = errors.New("Email is required")
	ErrRegistrationNotConfigured = errors.New("Registration is not configured. Please contact support.")
	ErrSignInNotConfigured       = errors.New("Sign in is not configured. Please contact support.")
)

type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedUp  EventKind = "signed_up"
	EventSignedOut EventKind = "signed_out"
	EventRefreshed EventKind = "refreshed"
	EventExpired   EventKind = "expired"
)

type Event struct {
	Kind   EventKind
	UserID string
	At     time.Time
}

type Listener func(Event)

// SessionProvider is what the handlers and the gate depend on.
type SessionProvider interface {
	ResolveSession(ctx context.Context, r *http.Request) (utils.SessionData, []*http.Cookie, error)
	SignIn(ctx context.Context, email, password string) (*http.Cookie, Credential, error)
	SignUp(ctx context.Context, email, password, displayName string) (Credential, error)
	SignOut(ctx context.Context, r *http.Request) (*http.Cookie, error)
	Subscribe(l Listener) (unsubscribe func())
}

// ProfileCreator creates the pending profile for a new account.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, p store.Profile) (store.Profile, error)
}

type Options struct {
	Secret string
	TTL    time.Duration
	// Secure marks cookies Secure with SameSite=None. Set when deployed.
	Secure bool
}

type Provider struct {
	repo     Repository
	profiles ProfileCreator
	secret   []byte
	ttl      time.Duration
	secure   bool
	now      func() time.Time

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func NewProvider(repo Repository, profiles ProfileCreator, opts Options) *Provider {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Provider{
		repo:      repo,
		profiles:  profiles,
		secret:    []byte(opts.Secret),
		ttl:       ttl,
		secure:    opts.Secure,
		now:       time.Now,
		listeners: map[int]Listener{},
	}
}

// NormalizeEmail trims and case-folds an address for storage and lookup.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

func (p *Provider) sign(id string) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

func (p *Provider) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	return id, hmac.Equal([]byte(p.sign(id)), []byte(id+"."+sig))
}

func (p *Provider) cookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Expires:  expires,
		SameSite: http.SameSiteLaxMode,
	}
	if p.secure {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

func (p *Provider) clearCookie() *http.Cookie {
	c := p.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	return c
}

// Subscribe registers l for session changes until the returned func is called.
func (p *Provider) Subscribe(l Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Provider) emit(kind EventKind, userID string) {
	p.mu.Lock()
	ls := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		ls = append(ls, l)
	}
	p.mu.Unlock()

	ev := Event{Kind: kind, UserID: userID, At: p.now()}
	for _, l := range ls {
		l(ev)
	}
}

// ResolveSession returns the signed-in user, if any. Sessions past half their
// lifetime are rotated and the new cookie returned; dead sessions return a
// clearing cookie. Only storage failures are errors.
func (p *Provider) ResolveSession(ctx context.Context, r *http.Request) (utils.SessionData, []*http.Cookie, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return utils.SessionData{}, nil, nil
	}

	id, ok := p.verify(c.Value)
	if !ok {
		return utils.SessionData{}, []*http.Cookie{p.clearCookie()}, nil
	}

	session, err := p.repo.FindSessionByID(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return utils.SessionData{}, []*http.Cookie{p.clearCookie()}, nil
	}
	if err != nil {
		return utils.SessionData{}, nil, fmt.Errorf("find session: %w", err)
	}

	now := p.now()
	if !session.ExpiresAt.After(now) {
		if err := p.repo.DeleteSession(ctx, id); err != nil {
			log.Printf("[auth] delete expired session for %s: %v", session.UserID, err)
		}
		if session.ReplacedBy == "" {
			p.emit(EventExpired, session.UserID)
		}
		return utils.SessionData{}, []*http.Cookie{p.clearCookie()}, nil
	}

	if session.ReplacedBy != "" {
		return p.resolveSuccessor(ctx, session, now)
	}

	data := utils.SessionData{SessionID: session.SessionID, UserID: session.UserID, ExpiresAt: session.ExpiresAt}
	if session.ExpiresAt.Sub(now) > p.ttl/2 {
		return data, nil, nil
	}

	next := Session{SessionID: uuid.NewString(), UserID: session.UserID, ExpiresAt: now.Add(p.ttl)}
	graceUntil := now.Add(RotationGrace)
	if session.ExpiresAt.Before(graceUntil) {
		graceUntil = session.ExpiresAt
	}
	if err := p.repo.RotateSession(ctx, id, next, graceUntil); err != nil {
		// The old session is still valid; try again next request.
		log.Printf("[auth] rotate session for %s: %v", session.UserID, err)
		return data, nil, nil
	}
	p.emit(EventRefreshed, session.UserID)

	data.SessionID = next.SessionID
	data.ExpiresAt = next.ExpiresAt
	return data, []*http.Cookie{p.cookie(p.sign(next.SessionID), next.ExpiresAt)}, nil
}

// resolveSuccessor serves a request that still carries a rotated cookie. The
// successor's cookie is sent again so whichever response lands last wins
// with a live session.
func (p *Provider) resolveSuccessor(ctx context.Context, old Session, now time.Time) (utils.SessionData, []*http.Cookie, error) {
	next, err := p.repo.FindSessionByID(ctx, old.ReplacedBy)
	if errors.Is(err, ErrRecordNotFound) {
		return utils.SessionData{}, []*http.Cookie{p.clearCookie()}, nil
	}
	if err != nil {
		return utils.SessionData{}, nil, fmt.Errorf("find session: %w", err)
	}
	if !next.ExpiresAt.After(now) || next.UserID != old.UserID {
		return utils.SessionData{}, []*http.Cookie{p.clearCookie()}, nil
	}
	data := utils.SessionData{SessionID: next.SessionID, UserID: next.UserID, ExpiresAt: next.ExpiresAt}
	return data, []*http.Cookie{p.cookie(p.sign(next.SessionID), next.ExpiresAt)}, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*http.Cookie, Credential, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, Credential{}, ErrInvalidCredentials
	}

	cred, err := p.repo.FindCredentialByEmail(ctx, email)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, Credential{}, ErrInvalidCredentials
	}
	if err != nil {
		return nil, Credential{}, fmt.Errorf("find credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.HashedPassword), []byte(password)); err != nil {
		return nil, Credential{}, ErrInvalidCredentials
	}

	session := Session{SessionID: uuid.NewString(), UserID: cred.UserID, ExpiresAt: p.now().Add(p.ttl)}
	if err := p.repo.CreateSession(ctx, session); err != nil {
		return nil, Credential{}, fmt.Errorf("create session: %w", err)
	}
	p.emit(EventSignedIn, cred.UserID)

	return p.cookie(p.sign(session.SessionID), session.ExpiresAt), cred, nil
}

// SignUp creates the credential and its pending profile. It does not sign
// the user in.
func (p *Provider) SignUp(ctx context.Context, email, password, displayName string) (Credential, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Credential{}, ErrMissingEmail
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return Credential{}, ErrWeakPassword
	}

	_, err := p.repo.FindCredentialByEmail(ctx, email)
	if err == nil {
		return Credential{}, ErrUserExists
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return Credential{}, fmt.Errorf("find credential: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Credential{}, fmt.Errorf("hash password: %w", err)
	}

	cred := Credential{
		UserID:         uuid.NewString(),
		Email:          email,
		HashedPassword: string(hashed),
		CreatedAt:      p.now(),
	}
	if err := p.repo.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, ErrUserExists) {
			return Credential{}, err
		}
		return Credential{}, fmt.Errorf("create credential: %w", err)
	}

	_, err = p.profiles.CreateProfile(ctx, store.Profile{
		ID:          cred.UserID,
		Email:       email,
		DisplayName: norm.NFC.String(strings.TrimSpace(displayName)),
	})
	if err != nil {
		if derr := p.repo.DeleteCredential(ctx, cred.UserID); derr != nil {
			log.Printf("[auth] orphaned credential %s after profile failure: %v", cred.UserID, derr)
		}
		return Credential{}, fmt.Errorf("create profile: %w", err)
	}

	p.emit(EventSignedUp, cred.UserID)
	return cred, nil
}

// SignOut deletes the current session. The session resolved by the gate is
// preferred over the request cookie, which may predate a rotation. The
// clearing cookie is returned even when there was nothing to delete.
func (p *Provider) SignOut(ctx context.Context, r *http.Request) (*http.Cookie, error) {
	cleared := p.clearCookie()

	id, ok := p.currentSessionID(ctx, r)
	if !ok {
		return cleared, nil
	}

	session, err := p.repo.FindSessionByID(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return cleared, nil
	}
	if err != nil {
		return cleared, fmt.Errorf("find session: %w", err)
	}
	if session.ReplacedBy != "" {
		id = session.ReplacedBy
	}
	if err := p.repo.DeleteSession(ctx, id); err != nil {
		return cleared, fmt.Errorf("delete session: %w", err)
	}

	p.emit(EventSignedOut, session.UserID)
	return cleared, nil
}

func (p *Provider) currentSessionID(ctx context.Context, r *http.Request) (string, bool) {
	if s, ok := utils.GetSessionFromContext(ctx); ok {
		return s.SessionID, true
	}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	return p.verify(c.Value)
}

var _ SessionProvider = (*Provider)(nil)
