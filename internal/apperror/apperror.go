package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	TypeValidation ErrorType = "validation"
	TypeNetwork    ErrorType = "network"
	TypeUpstream   ErrorType = "upstream"
	TypePayload    ErrorType = "payload"
	TypeConflict   ErrorType = "conflict"
	TypeNotFound   ErrorType = "not_found"
	TypeInternal   ErrorType = "internal"
)

// Error is a failure that carries a message safe to show to the user.
// Message is shown verbatim; Detail is diagnostic only and never rendered.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Detail     string    `json:"-"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation creates an error for input rejected before any network call.
func Validation(message string) *Error {
	return &Error{Type: TypeValidation, Message: message, StatusCode: http.StatusBadRequest}
}

// Network creates an error for a request that produced no response at all.
func Network(message string, cause error) *Error {
	return &Error{Type: TypeNetwork, Message: message, StatusCode: http.StatusBadGateway, Cause: cause}
}

// Upstream creates an error for a non-2xx answer from a remote service.
func Upstream(message string, status int) *Error {
	return &Error{
		Type:       TypeUpstream,
		Message:    message,
		Detail:     fmt.Sprintf("upstream status %d", status),
		StatusCode: http.StatusBadGateway,
	}
}

// Payload creates an error for a 2xx answer whose body could not be used.
func Payload(message string, cause error) *Error {
	return &Error{Type: TypePayload, Message: message, StatusCode: http.StatusBadGateway, Cause: cause}
}

// Conflict creates an error for an operation refused because another one is pending.
func Conflict(message string, cause error) *Error {
	return &Error{Type: TypeConflict, Message: message, StatusCode: http.StatusConflict, Cause: cause}
}

// NotFound creates a not found error
func NotFound(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message, StatusCode: http.StatusNotFound}
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, StatusCode: http.StatusInternalServerError, Cause: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, t ErrorType) bool {
	e, ok := As(err)
	return ok && e.Type == t
}

// Message returns the user-facing message for err, or fallback when err carries none.
func Message(err error, fallback string) string {
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	return fallback
}

// StatusCode returns the HTTP status code for an error
func StatusCode(err error) int {
	if e, ok := As(err); ok && e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
