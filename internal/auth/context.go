package auth

import (
	"context"

	"github.com/bachelorbari/bachelorbari/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	authContextKey    contextKey = "auth_context"
	requestContextKey contextKey = "request_context"
)

// ContextWithAuth adds AuthContext to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves AuthContext from the context.
// Returns nil if not present.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// UserIDFromContext returns the authenticated user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	auth := AuthFromContext(ctx)
	if auth == nil {
		return ""
	}
	return auth.UserID
}

// ContextWithRequest adds the request-scoped client context.
func ContextWithRequest(ctx context.Context, rc *model.RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestFromContext retrieves the request-scoped client context.
// Returns nil if not present.
func RequestFromContext(ctx context.Context) *model.RequestContext {
	rc, ok := ctx.Value(requestContextKey).(*model.RequestContext)
	if !ok {
		return nil
	}
	return rc
}
