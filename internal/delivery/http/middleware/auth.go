package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// SessionCookieName is the HttpOnly cookie carrying the session token.
const SessionCookieName = "token"

type contextKey string

const (
	userIDKey   contextKey = "userID"
	identityKey contextKey = "identity"
)

var (
	errMissingToken    = errors.New("missing token")
	errMalformedHeader = errors.New("invalid authorization format")
)

// SetUserID returns a context with the user ID set. Used by auth middleware.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user ID from the context, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SetIdentity stores the verified identity and its user ID in ctx.
func SetIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	return SetUserID(ctx, identity.UserID)
}

// IdentityFromContext returns the verified identity, if any.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*domain.Identity)
	return id, ok && id != nil
}

// TokenFromRequest extracts the session token from the Authorization header or,
// when no header is sent, from the session cookie. A header that is present but
// not a Bearer credential is an error; it never falls through to the cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			return "", errMalformedHeader
		}
		token := strings.TrimSpace(auth[len(prefix):])
		if token == "" {
			return "", errMissingToken
		}
		return token, nil
	}
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errMissingToken
}

// RequireAuth returns a wrapper that validates the session token and sets the identity in the request context.
// If the token is missing or invalid, it responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, err := TokenFromRequest(r)
			if err != nil {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, err.Error())
				return
			}
			identity, err := verifier.Verify(token)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			next(w, r.WithContext(SetIdentity(r.Context(), identity)))
		}
	}
}

// OptionalAuth sets the identity when a valid token is presented and otherwise
// serves the request anonymously.
func OptionalAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, err := TokenFromRequest(r)
			if err != nil {
				next(w, r)
				return
			}
			identity, err := verifier.Verify(token)
			if err != nil {
				logger.DebugContext(r.Context(), "ignoring invalid token", "path", r.URL.Path, "err", err)
				next(w, r)
				return
			}
			next(w, r.WithContext(SetIdentity(r.Context(), identity)))
		}
	}
}
