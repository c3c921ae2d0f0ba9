package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Abhijeet1005/SartiaProject/internal/platform/httpx"
	"github.com/Abhijeet1005/SartiaProject/internal/token"
)

// Middleware guards protected routes: it verifies the session token, resolves
// the live user record and attaches it to the request context.
type Middleware struct {
	logger      *slog.Logger
	codec       *token.Codec
	revocations *token.RevocationStore
	service     *Service
	cookieName  string
}

// NewMiddleware constructs a Middleware.
func NewMiddleware(logger *slog.Logger, codec *token.Codec, revocations *token.RevocationStore, service *Service, cookieName string) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{logger: logger, codec: codec, revocations: revocations, service: service, cookieName: cookieName}
}

// sessionToken locates the raw token on the request: the session cookie
// first, then an Authorization bearer header for non-browser clients.
func (m *Middleware) sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// RequireSession rejects the request unless it carries a valid, unrevoked
// session token whose user still resolves in the store. The identity placed
// in context is always freshly fetched, never trusted from token contents, so
// role and activation changes take effect immediately.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := m.sessionToken(r)
		if raw == "" {
			httpx.RespondError(w, ErrMissingToken)
			return
		}

		claims, err := m.codec.Verify(raw, token.PurposeSession)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				httpx.RespondError(w, ErrExpiredToken)
				return
			}
			httpx.RespondError(w, ErrInvalidToken)
			return
		}

		revoked, err := m.revocations.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			m.logger.Error("revocation lookup failed", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if revoked {
			httpx.RespondError(w, ErrInvalidToken)
			return
		}

		userID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			httpx.RespondError(w, ErrInvalidToken)
			return
		}
		user, err := m.service.UserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				// A still-valid token for a user that no longer resolves.
				httpx.RespondError(w, ErrInvalidToken)
				return
			}
			m.logger.Error("resolve session user", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}

		ctx := ContextWithIdentity(r.Context(), user)
		ctx = ContextWithSessionClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects identities without the Admin role. Runs after
// RequireSession; pure predicate, no store access.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := IdentityFromContext(r.Context())
		if user == nil {
			httpx.RespondError(w, ErrMissingToken)
			return
		}
		if user.Role != RoleAdmin {
			httpx.RespondError(w, ErrNotAdmin)
			return
		}
		next.ServeHTTP(w, r)
	})
}
