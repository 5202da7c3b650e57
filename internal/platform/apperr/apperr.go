package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so handlers can map it to a stable HTTP status
// and callers can branch on the failure class without string matching.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindState        Kind = "invalid_state"
	KindPrecondition Kind = "precondition_failed"
	KindPermission   Kind = "permission_denied"
	KindInternal     Kind = "internal"
)

// Error is the error type returned by all service-layer operations.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending field for validation errors.
	Field string
	// Err is the wrapped cause, never exposed to clients.
	Err error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func State(message string) *Error {
	return &Error{Kind: KindState, Message: message}
}

func Precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

func Permission(message string) *Error {
	return &Error{Kind: KindPermission, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindState:
		return http.StatusConflict
	case KindPrecondition:
		return http.StatusPreconditionFailed
	case KindPermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Payload is the JSON body returned for a service error. Internal causes
// are stripped so storage details never reach the client.
type Payload struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ToPayload builds the client-facing representation of err.
func ToPayload(err error) Payload {
	var e *Error
	if errors.As(err, &e) {
		msg := e.Message
		if e.Kind == KindInternal {
			msg = "internal error"
		}
		return Payload{Kind: e.Kind, Message: msg, Field: e.Field}
	}
	return Payload{Kind: KindInternal, Message: "internal error"}
}
