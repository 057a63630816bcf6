package auth

import "context"

// Identity is a verified user identity produced from a bearer credential.
// A nil *Identity means the caller is anonymous; absence is a first-class
// state, not an error.
type Identity struct {
	ID    string // subject identifier from the identity provider, never empty
	Email string // empty if the provider returns no email claim
}

type contextKey struct{}

// WithIdentity stores an Identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext retrieves the Identity from the context.
// Returns nil if no identity is set (anonymous caller).
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(contextKey{}).(*Identity)
	return id
}
