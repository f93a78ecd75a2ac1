// Package errors provides the application error type, its classification,
// and the HTTP status mapping used at the handler boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents an application error code.
type Code string

const (
	// Validation errors
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeMissingField  Code = "MISSING_FIELD"
	CodeInvalidFormat Code = "INVALID_FORMAT"

	// Resource errors
	CodeNotFound Code = "NOT_FOUND"

	// Upstream errors
	CodeExternalService Code = "EXTERNAL_SERVICE_ERROR"
	CodeNotConfigured   Code = "NOT_CONFIGURED"
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeTimeout         Code = "TIMEOUT"
	CodeWebhookInvalid  Code = "WEBHOOK_INVALID"

	CodeRateLimited Code = "RATE_LIMITED"

	// Internal errors
	CodeDatabase Code = "DATABASE_ERROR"
	CodeInternal Code = "INTERNAL_ERROR"
)

// Kind classifies an error for handling decisions.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUser is caused by the caller's input and is reported back.
	KindUser
	// KindSystem is an internal failure.
	KindSystem
	// KindUpstream is a third-party failure. Callers substitute a local
	// fallback instead of reporting it.
	KindUpstream
)

// FieldError describes one invalid field of a submitted form.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the base application error type.
type Error struct {
	Code    Code         `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
	Kind    Kind         `json:"-"`
	// Op is the operation being performed (e.g., "crm.PushLead").
	Op  string `json:"-"`
	Err error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeMissingField, CodeInvalidFormat:
		return http.StatusBadRequest
	case CodeWebhookInvalid:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeExternalService, CodeCircuitOpen, CodeNotConfigured:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Kind: kindForCode(code)}
}

// Wrap wraps an existing error with operation context.
func Wrap(err error, op string, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Kind: kindForCode(code), Op: op, Err: err}
}

func kindForCode(code Code) Kind {
	switch code {
	case CodeValidation, CodeMissingField, CodeInvalidFormat, CodeNotFound, CodeRateLimited, CodeWebhookInvalid:
		return KindUser
	case CodeExternalService, CodeNotConfigured, CodeCircuitOpen, CodeTimeout:
		return KindUpstream
	default:
		return KindSystem
	}
}

var (
	// ErrCircuitOpen indicates the circuit breaker rejected the call.
	ErrCircuitOpen = New(CodeCircuitOpen, "service temporarily unavailable")

	// ErrNotConfigured indicates the upstream has no credentials.
	ErrNotConfigured = New(CodeNotConfigured, "service not configured")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = New(CodeRateLimited, "rate limit exceeded")
)

// NotFound creates a not found error for a specific resource.
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource), Kind: KindUser}
}

// ValidationFailed creates a validation error carrying field-level details.
func ValidationFailed(message string, fields ...FieldError) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields, Kind: KindUser}
}

// MissingField creates a missing field validation error.
func MissingField(field string) *Error {
	return &Error{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing required field: %s", field),
		Fields:  []FieldError{{Field: field, Message: "is required"}},
		Kind:    KindUser,
	}
}

// InvalidFormat creates an invalid format validation error.
func InvalidFormat(field, expected string) *Error {
	return &Error{
		Code:    CodeInvalidFormat,
		Message: fmt.Sprintf("invalid format for %s: expected %s", field, expected),
		Fields:  []FieldError{{Field: field, Message: "must be " + expected}},
		Kind:    KindUser,
	}
}

// DatabaseError creates a database error with the underlying cause.
func DatabaseError(op string, err error) *Error {
	return &Error{Code: CodeDatabase, Message: "database operation failed", Kind: KindSystem, Op: op, Err: err}
}

// ExternalServiceError creates an upstream error for the named service.
func ExternalServiceError(service string, err error) *Error {
	return &Error{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s service error", service),
		Kind:    KindUpstream,
		Err:     err,
	}
}

// UpstreamStatus creates an upstream error for a non-OK HTTP status.
func UpstreamStatus(service string, status int) *Error {
	return &Error{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s returned status %d", service, status),
		Kind:    KindUpstream,
	}
}

// GetCode extracts the error code, returning CodeInternal for foreign errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetHTTPStatus extracts the HTTP status, returning 500 for foreign errors.
func GetHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsUpstream reports whether err came from a third-party collaborator.
func IsUpstream(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindUpstream
	}
	return false
}

// IsUserError reports whether err was caused by the caller's input.
func IsUserError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindUser
	}
	return false
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeNotFound
	}
	return false
}
