package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// errorResponse is the uniform error body
type errorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error maps domain errors to HTTP status codes and writes a JSON error
// body. Unrecognized errors are logged and reported as 500 without leaking
// internals.
func Error(w http.ResponseWriter, log zerolog.Logger, err error) {
	var oversell *domain.OversellError
	var allocation *domain.AllocationValidationError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		JSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &oversell):
		JSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &allocation):
		JSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Msg("Request failed")
		JSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// BadRequest writes a 400 with the given message
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// Conflict writes a 409 with the given message
func Conflict(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusConflict, errorResponse{Error: msg})
}
