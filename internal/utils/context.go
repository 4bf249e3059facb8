package utils

import (
	"context"
	"time"
)

type contextKey string

const (
	ContextUserIDKey  contextKey = "userID"
	ContextSessionKey contextKey = "session"
)

// SessionData is what a resolved session tells the rest of the request.
type SessionData struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID := ctx.Value(ContextUserIDKey)
	userIDStr, ok := userID.(string)
	return userIDStr, ok && userIDStr != ""
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserIDKey, userID)
}

// WithSession stores the resolved session along with its user ID.
func WithSession(ctx context.Context, s SessionData) context.Context {
	return WithUserID(context.WithValue(ctx, ContextSessionKey, s), s.UserID)
}

func GetSessionFromContext(ctx context.Context) (SessionData, bool) {
	s, ok := ctx.Value(ContextSessionKey).(SessionData)
	return s, ok && s.SessionID != ""
}
