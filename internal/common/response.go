package common

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Envelope is the success body shape: {"success": true, ...fields}.
type Envelope map[string]interface{}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Success: false, Message: message})
}

// RespondWithErr converts err at the handler boundary. 5xx details go to the log only.
func RespondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	code := HTTPStatusFromError(err)
	if code >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	RespondWithError(w, code, MessageFromError(err))
}

func RespondWithSuccess(w http.ResponseWriter, code int, fields Envelope) {
	body := Envelope{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	RespondWithJSON(w, code, body)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "message": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
