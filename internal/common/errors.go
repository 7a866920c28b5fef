package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict") // e.g., email already exists
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")
	ErrTooManyLogins  = errors.New("too many login attempts")
)

// Error is a user-facing error: Message is shown to the client verbatim and
// Kind decides the HTTP status.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validationf builds a validation error with a formatted client message.
func Validationf(format string, args ...interface{}) error {
	return NewError(ErrValidation, fmt.Sprintf(format, args...))
}

// Domain errors surfaced to clients.
var (
	ErrInvalidCredentials = NewError(ErrUnauthorized, "Invalid credentials")
	ErrEmailTaken         = NewError(ErrConflict, "Athlete already exists")
	ErrEntityExists       = NewError(ErrConflict, "Entity with this email already exists.")
	ErrAthleteNotFound    = NewError(ErrNotFound, "Athlete not found")
	ErrEntityNotFound     = NewError(ErrNotFound, "Entity not found.")
	ErrEventNotFound      = NewError(ErrNotFound, "Event not found")
	ErrAlreadyRegistered  = NewError(ErrConflict, "Already registered for this event")
	ErrNotRegistered      = NewError(ErrConflict, "You are not registered for this event")
	ErrInvalidDateFormat  = NewError(ErrValidation, "Invalid date format. Please use DD-MM-YYYY.")
	ErrMissingFields      = NewError(ErrValidation, "Please provide all required fields.")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrTooManyLogins) {
		return http.StatusTooManyRequests
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// MessageFromError returns the text a client may see for err. Unexpected
// failures are reduced to a generic message; callers log the detail.
func MessageFromError(err error) string {
	var userErr *Error
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	if HTTPStatusFromError(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
