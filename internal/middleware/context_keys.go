package middleware

import (
	"context"

	"github.com/SscSPs/school_ledger/internal/core/domain"
)

// identityKey is the key used to store the authenticated identity in the request context.
const identityKey = contextKey("identity")

// WithIdentity returns a copy of ctx carrying the acting identity.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentityFromCtx retrieves the authenticated identity from the request context.
// It returns the identity and a boolean indicating if it was found.
func GetIdentityFromCtx(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

// ContextIdentityResolver resolves the acting user from the request context populated by AuthMiddleware.
type ContextIdentityResolver struct{}

// CurrentUser returns nil when the request carries no identity.
func (ContextIdentityResolver) CurrentUser(ctx context.Context) (*domain.Identity, error) {
	identity, ok := GetIdentityFromCtx(ctx)
	if !ok {
		return nil, nil
	}
	return &identity, nil
}
