package accounts

import (
	"context"

	"github.com/Abhijeet1005/SartiaProject/internal/token"
)

type identityContextKey struct{}

type sessionClaimsContextKey struct{}

// ContextWithIdentity stores the resolved user in context.
func ContextWithIdentity(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, identityContextKey{}, user)
}

// IdentityFromContext extracts the resolved user from context.
func IdentityFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(identityContextKey{}).(*User)
	return user
}

// ContextWithSessionClaims stores the verified session claims in context so
// logout can revoke the presented token.
func ContextWithSessionClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, sessionClaimsContextKey{}, claims)
}

// SessionClaimsFromContext extracts the verified session claims from context.
func SessionClaimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(sessionClaimsContextKey{}).(*token.Claims)
	return claims
}
