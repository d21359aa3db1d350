package jwt

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"popx/internal/pkg/errs"
	"popx/internal/pkg/logx"
	"popx/internal/pkg/resp"
)

// Define Context Key for storing the identity id, preventing key collisions with other packages.
type contextKey string

const (
	// ContextUserIDKey is the key used to store the verified identity id in the request Context.
	ContextUserIDKey contextKey = "auth_user_id"
)

// Verifier resolves a bearer token to an identity id.
type Verifier interface {
	Verify(tokenString string) (string, error)
}

// BearerToken extracts the credential from an "Authorization: Bearer <token>" header.
// It returns an empty string when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// RequireAuth rejects every request that does not carry a valid bearer token.
//
// The decision is binary: a request either reaches next with the identity id in its
// context, or is answered with 401 here. Nothing is cached between requests.
func RequireAuth(verifier Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := BearerToken(r)
			if tokenString == "" {
				logx.Ctx(r.Context()).Debug().Msg("auth: not authenticated, no bearer token")
				resp.RespondError(w, r, errs.NewError(errs.ErrNotAuthenticated))
				return
			}

			userID, err := verifier.Verify(tokenString)
			if err != nil {
				logx.Ctx(r.Context()).Warn().Str("reason", rejectionReason(err)).Msg("auth: bearer token rejected")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			logx.Annotate(r.Context(), "user_id", userID)

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying the verified identity id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserIDKey, userID)
}

// UserIDFromContext returns the identity id placed by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ContextUserIDKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
