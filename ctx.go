package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// SessionContextKey is the locals key guards use to expose the resolved
// session to downstream handlers.
const SessionContextKey = "session"

// WithContext sets the Session in the given context
func WithContext(r context.Context, session *Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// FromContext finds the session from the context.
func FromContext(ctx context.Context) (*Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*Session)
	return raw, ok
}

// FromRouterContext extracts the Session a route guard stored in the
// router context's locals.
func FromRouterContext(ctx router.Context, key ...string) (*Session, bool) {
	k := SessionContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}

	raw := ctx.Locals(k)
	if raw == nil {
		return nil, false
	}

	session, ok := raw.(*Session)
	return session, ok
}

// RoleFromContext returns the session's role, or "" when no session is
// in the context.
func RoleFromContext(ctx context.Context) Role {
	if session, ok := FromContext(ctx); ok && session != nil {
		return session.Profile.Role
	}
	return ""
}
