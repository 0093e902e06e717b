// internal/errors/errors.go
// Package errors provides standardized error handling for the catalog service.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code for the catalog service.
type ErrorCode string

const (
	// Caller errors
	CAT_VALIDATION  ErrorCode = "CAT_VALIDATION"  // Missing required field or malformed record
	CAT_DUPLICATE   ErrorCode = "CAT_DUPLICATE"   // Record already present by reference-id rules
	CAT_INDEX_RANGE ErrorCode = "CAT_INDEX_RANGE" // Edit/delete addressing a position outside catalog bounds
	CAT_STALE_INDEX ErrorCode = "CAT_STALE_INDEX" // Positional edit against an outdated catalog generation
	CAT_BAD_REQUEST ErrorCode = "CAT_BAD_REQUEST" // Malformed request

	// Authentication
	CAT_AUTHN ErrorCode = "CAT_AUTHN" // Authentication failed

	// Persistence and mirror errors
	CAT_IO                 ErrorCode = "CAT_IO"                 // Local persistence failure
	CAT_REMOTE_UNAVAILABLE ErrorCode = "CAT_REMOTE_UNAVAILABLE" // Mirror unreachable or timed out
	CAT_REMOTE_CONFLICT    ErrorCode = "CAT_REMOTE_CONFLICT"    // Optimistic-concurrency version mismatch on push

	// Server errors
	CAT_INTERNAL ErrorCode = "CAT_INTERNAL" // Internal server error
)

// Error represents a standardized error response.
type Error struct {
	Code          ErrorCode   `json:"code"`
	Message       string      `json:"message"`
	CorrelationID string      `json:"correlationId"`
	Details       interface{} `json:"details,omitempty"`
	HTTPStatus    int         `json:"-"`
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string, correlationID string) *Error {
	return &Error{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		HTTPStatus:    httpStatusCodeForCode(code),
	}
}

// NewWithDetails creates a new Error with the specified code, message, and details.
func NewWithDetails(code ErrorCode, message string, correlationID string, details interface{}) *Error {
	return &Error{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		Details:       details,
		HTTPStatus:    httpStatusCodeForCode(code),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// httpStatusCodeForCode maps error codes to HTTP status codes.
func httpStatusCodeForCode(code ErrorCode) int {
	switch code {
	case CAT_VALIDATION, CAT_BAD_REQUEST:
		return http.StatusBadRequest
	case CAT_AUTHN:
		return http.StatusUnauthorized
	case CAT_INDEX_RANGE:
		return http.StatusNotFound
	case CAT_DUPLICATE, CAT_STALE_INDEX, CAT_REMOTE_CONFLICT:
		return http.StatusConflict
	case CAT_REMOTE_UNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
