package middleware

import (
	"context"
	"errors"
	"net/http"

	"cpdash/internal/common"
	"cpdash/internal/common/security"

	"github.com/go-chi/jwtauth/v5"
)

type identityKey struct{}

// Authenticator answers 401 unless jwtauth.Verifier found a valid token, then
// puts the caller's identity on the request context.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		switch {
		case token == nil && (err == nil || errors.Is(err, jwtauth.ErrNoTokenFound)):
			common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			return
		case err != nil:
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			return
		}

		id, err := security.IdentityFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func WithIdentity(ctx context.Context, id security.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (security.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(security.Identity)
	return id, ok && id.UserID != ""
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}
