// Package api provides common HTTP API utilities including error handling.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coachlink/coachlink-go/internal/invitation"
)

// Deterministic reason codes for stable error classification.
// These codes should remain stable across versions for client compatibility.
const (
	// Authentication and authorization
	ReasonUnauthenticated    = "unauthenticated"
	ReasonUnauthorized       = "unauthorized"
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonSessionExpired     = "session_expired"

	// Request validation
	ReasonBadRequest   = "bad_request"
	ReasonMissingField = "missing_field"
	ReasonInvalidField = "invalid_field"
	ReasonNotFound     = "not_found"
	ReasonConflict     = "conflict"

	// Invitation lifecycle
	ReasonDuplicatePending    = "duplicate_pending"
	ReasonInvalidState        = "invalid_state"
	ReasonPreconditionFailed  = "precondition_failed"
	ReasonBrokenReference     = "broken_reference"
	ReasonEstablishmentFailed = "establishment_failed"

	// Server errors
	ReasonInternalError = "internal_error"
)

// ErrorEnvelope is the standard error response format.
// All error responses should use this structure for consistency.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code       string `json:"code"`        // HTTP status text (e.g., "conflict")
	ReasonCode string `json:"reason_code"` // Deterministic reason code
	Message    string `json:"message"`     // Human-readable message
}

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, reasonCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	envelope := ErrorEnvelope{
		Error: ErrorDetail{
			Code:       http.StatusText(statusCode),
			ReasonCode: reasonCode,
			Message:    message,
		},
	}

	json.NewEncoder(w).Encode(envelope)
}

// Common error helpers for frequently used patterns

// WriteUnauthorized writes a 401 Unauthorized error.
func WriteUnauthorized(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusUnauthorized, reasonCode, message)
}

// WriteForbidden writes a 403 Forbidden error.
func WriteForbidden(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusForbidden, reasonCode, message)
}

// WriteNotFound writes a 404 Not Found error.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ReasonNotFound, message)
}

// WriteBadRequest writes a 400 Bad Request error.
func WriteBadRequest(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusBadRequest, reasonCode, message)
}

// WriteConflict writes a 409 Conflict error.
func WriteConflict(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusConflict, reasonCode, message)
}

// WriteInternalError writes a 500 Internal Server Error.
// Be careful not to leak sensitive information in the message.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ReasonInternalError, message)
}

// WriteDomainError translates an invitation lifecycle error into its HTTP
// shape. Unrecognized errors become a generic 500 so internals never leak.
func WriteDomainError(w http.ResponseWriter, err error) {
	var (
		transition    *invitation.InvalidTransitionError
		precondition  *invitation.PreconditionError
		broken        *invitation.BrokenReferenceError
		conflict      *invitation.StatusConflictError
		establishment *invitation.EstablishmentError
	)

	switch {
	case errors.Is(err, invitation.ErrNotFound):
		WriteNotFound(w, "invitation not found")
	case errors.Is(err, invitation.ErrDuplicatePending):
		WriteConflict(w, ReasonDuplicatePending, "a pending invitation already exists for this email")
	case errors.As(err, &transition):
		WriteConflict(w, ReasonInvalidState, transition.Error())
	case errors.As(err, &conflict):
		WriteConflict(w, ReasonConflict, conflict.Error())
	case errors.As(err, &precondition):
		WriteError(w, http.StatusUnprocessableEntity, ReasonPreconditionFailed, precondition.Error())
	case errors.As(err, &broken):
		WriteError(w, http.StatusInternalServerError, ReasonBrokenReference, "invitation references missing data")
	case errors.As(err, &establishment):
		WriteError(w, http.StatusInternalServerError, ReasonEstablishmentFailed, "failed to establish relationship")
	default:
		WriteInternalError(w, "internal error")
	}
}
