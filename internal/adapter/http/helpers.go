// Package http wires the gateway's HTTP boundary: request/response
// envelopes, middleware, routing, and handlers over the service layer.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/gateway/internal/domain"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeErrorEnvelope(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeErrorEnvelope(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message, Details: details}})
}

// writeDomainError maps a domain-level error to its HTTP status and error
// code, per the VALIDATION_ERROR/UNAUTHORIZED/FORBIDDEN/NOT_FOUND/CONFLICT/
// RATE_LIMIT_EXCEEDED/EXTERNAL_SERVICE_ERROR/INTERNAL_ERROR mapping.
func writeDomainError(w http.ResponseWriter, err error) {
	var rateLimited *domain.RateLimitedError
	var externalErr *domain.ExternalServiceError

	switch {
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(rateLimited.RetryAfterSeconds))
		writeErrorEnvelope(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "rate limit exceeded", nil)
	case errors.As(err, &externalErr):
		writeErrorEnvelope(w, http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR", externalErr.Detail, nil)
	case errors.Is(err, domain.ErrValidation):
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		writeErrorEnvelope(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid email or password", nil)
	case errors.Is(err, domain.ErrForbidden):
		writeErrorEnvelope(w, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
	case errors.Is(err, domain.ErrNotFound):
		writeErrorEnvelope(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	case errors.Is(err, domain.ErrConflict):
		writeErrorEnvelope(w, http.StatusConflict, "CONFLICT", "resource was modified by another request", nil)
	default:
		slog.Error("unhandled domain error", "error", err)
		writeErrorEnvelope(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
	}
}
