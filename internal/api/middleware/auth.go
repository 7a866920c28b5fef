package middleware

import (
	"context"
	"net/http"

	"trackmeet/internal/common"
	"trackmeet/internal/common/security"

	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/zerolog/log"
)

type contextKey string

const identityCtxKey contextKey = "identity"

// Verifier looks for a token in the Authorization header, the bare "token" header
// and the jwt cookie, in that order.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromHeader, security.TokenFromRawHeader, jwtauth.TokenFromCookie)
}

// Authenticator turns the verified token into an Identity on the request context.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err == jwtauth.ErrNoTokenFound || (err == nil && token == nil) {
			common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			return
		}
		if err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Msg("token rejected")
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		identity, err := security.IdentityFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims")
			return
		}

		ctx := context.WithValue(r.Context(), identityCtxKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AthleteOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || !identity.IsAthlete() {
			common.RespondWithError(w, http.StatusForbidden, "Athlete access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || !identity.IsAdmin() {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext returns the identity set by Authenticator.
func IdentityFromContext(ctx context.Context) (security.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey).(security.Identity)
	return identity, ok
}
