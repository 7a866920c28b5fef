package handler

import (
	"encoding/json"
	"net/http"

	"trackmeet/internal/api/middleware"
	"trackmeet/internal/common"
	"trackmeet/internal/common/security"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.NewError(common.ErrBadRequest, "Invalid request payload")
	}
	return nil
}

// currentAthlete is only valid behind middleware.AthleteOnly.
func currentAthlete(r *http.Request) security.Identity {
	identity, _ := middleware.IdentityFromContext(r.Context())
	return identity
}

func orPassthrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
