package common

import "context"

type ctxKey string

const identityKey ctxKey = "auth/identity"

// Identity is the authenticated caller as far as pricing rules care: who they are, whether their
// identity has been verified, and which user groups they belong to.
type Identity struct {
	UserID           string
	IdentityVerified bool
	Groups           []string
}

// WithIdentity stores the authenticated identity on the provided context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the authenticated identity from the context if present.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	return id.UserID, ok
}
