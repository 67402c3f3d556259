// Package httpserver contains HTTP handlers and middleware.
//
// It provides the REST API for the campaign orchestrator: campaign and
// phone number management, call initiation (single and bulk), provider
// callbacks, metrics, and the admin surface for dead letters and queue
// depths. The package keeps HTTP concerns separate from business logic;
// handlers translate between wire shapes and the usecase services.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// retryAfterSeconds is the back-off hint attached to 503 responses.
const retryAfterSeconds = 30

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	status := http.StatusInternalServerError
	code := "internal_server_error"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrSchemaInvalid):
		status = http.StatusBadRequest
		code = "bad_request"
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
		code = "conflict"
	case errors.Is(err, domain.ErrDuplicateCall), errors.Is(err, domain.ErrCapacityFull):
		status = http.StatusTooManyRequests
		code = "too_many_requests"
	case errors.Is(err, domain.ErrServiceUnavailable),
		errors.Is(err, domain.ErrUpstreamTimeout),
		errors.Is(err, domain.ErrUpstreamFailure):
		status = http.StatusServiceUnavailable
		code = "service_unavailable"
	}
	if status == http.StatusServiceUnavailable {
		// Transient failures carry a retry hint in both the header and the
		// envelope so non-HTTP-aware clients still see it.
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		if details == nil {
			details = map[string]int{"retry_after": retryAfterSeconds}
		}
	}
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: err.Error(), Details: details}})
}

// writeAPIError emits the envelope with a handler-chosen status and message,
// for endpoints whose wire messages are fixed.
func writeAPIError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message, Details: details}})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: apiError{Code: "unauthorized", Message: message}})
}
