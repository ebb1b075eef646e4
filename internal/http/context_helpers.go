package httpx

import (
	"context"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
)

// identityKey is an unexported context key type to avoid collisions
// across packages. Centralized here so all handlers and middleware use
// the same key.
type identityKey struct{}

// SetIdentityInContext returns a child context carrying the identity.
// A nil identity returns the original ctx unchanged.
func SetIdentityInContext(ctx context.Context, identity *domainauth.Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentityFromContext returns the identity from context and a boolean
// indicating presence.
func GetIdentityFromContext(ctx context.Context) (*domainauth.Identity, bool) {
	if identity, ok := ctx.Value(identityKey{}).(*domainauth.Identity); ok && identity != nil {
		return identity, true
	}
	return nil, false
}

type requestIDKey struct{}

// SetRequestIDInContext returns a child context carrying the request ID.
func SetRequestIDInContext(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestIDFromContext returns the request ID, or "" when unset.
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
