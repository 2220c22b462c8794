package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// NotFound is the JSON fallback for unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusNotFound, "Not Found")
}

// MethodNotAllowed is the JSON fallback for known paths with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// decodeJSON decodes a request body into v, rejecting unknown fields and
// trailing data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		return &domain.ValidationError{Detail: fmt.Sprintf("invalid JSON body: %v", err), Public: "Invalid request payload"}
	}
	if dec.More() {
		return &domain.ValidationError{Detail: "invalid JSON body: unexpected trailing data", Public: "Invalid request payload"}
	}
	return nil
}

// mapError translates domain errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise. With debug
// off, validation and internal errors are reduced to generic messages.
func mapError(w http.ResponseWriter, err error, debug bool) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(w, http.StatusBadRequest, ve.PublicMessage(debug))
	case errors.Is(err, domain.ErrInvalidID):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrNotScheduled):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQueueFull):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		msg := "Internal Server Error"
		if debug {
			msg = err.Error()
		}
		respondError(w, http.StatusInternalServerError, msg)
	}
}
