package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	authdomain "lms/backend/internal/domain/auth"
	coursedomain "lms/backend/internal/domain/course"
	authusecase "lms/backend/internal/usecase/auth"
	courseusecase "lms/backend/internal/usecase/course"
)

// envelope is the uniform response shape: {success, message, ...payload}.
type envelope map[string]any

func writeSuccess(w http.ResponseWriter, status int, message string, payload envelope) {
	body := envelope{
		"success": true,
		"message": message,
	}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{
		"success": false,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeServiceError maps the domain error taxonomy to status classes:
// 400 validation/conflict, 401 authentication, 404 not found, everything
// else is a server error.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authusecase.ErrFieldsRequired),
		errors.Is(err, courseusecase.ErrFieldsRequired),
		errors.Is(err, authdomain.ErrInvalidName),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrPasswordTooShort),
		errors.Is(err, authdomain.ErrEmailExists),
		errors.Is(err, authdomain.ErrResetTokenInvalid),
		errors.Is(err, authdomain.ErrPasswordMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, authdomain.ErrAccountNotFound),
		errors.Is(err, coursedomain.ErrNotFound),
		errors.Is(err, coursedomain.ErrLectureNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
