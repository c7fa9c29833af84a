// Package apperror defines the error kinds the API maps to HTTP statuses.
package apperror

import (
	"errors"
	"net/http"
	"runtime/debug"
)

// Kind tags an error with the HTTP status it resolves to.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is an application error carrying its HTTP status and a client-safe
// message. Operational errors are anticipated failures; everything else is a
// defect and gets reported.
type Error struct {
	Kind        Kind
	Message     string
	Operational bool
	Err         error
	// Stack is captured for internal errors only and must never be rendered
	// outside development.
	Stack string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status for the error.
func (e *Error) StatusCode() int { return e.Kind.Status() }

// Is matches another *Error of the same kind so callers can compare against
// the bare constructors, e.g. errors.Is(err, apperror.NotFound("")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newOperational(kind Kind, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{Kind: kind, Message: message, Operational: true}
}

// NotFound reports a missing target entity.
func NotFound(message string) *Error {
	return newOperational(KindNotFound, message, "Resource not found")
}

// Unauthorized reports a missing or invalid session.
func Unauthorized(message string) *Error {
	return newOperational(KindUnauthorized, message, "Unauthorized")
}

// Forbidden reports an authenticated caller acting on a resource it does not own.
func Forbidden(message string) *Error {
	return newOperational(KindForbidden, message, "Forbidden")
}

// BadRequest reports missing contextual data or invalid input.
func BadRequest(message string) *Error {
	return newOperational(KindBadRequest, message, "Bad request")
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *Error {
	return newOperational(KindConflict, message, "Conflict")
}

// Internal wraps an unexpected failure and records the current stack.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal Server Error", Err: err, Stack: string(debug.Stack())}
}

// WithStack replaces the recorded stack, e.g. with the stack of a recovered panic.
func (e *Error) WithStack(stack []byte) *Error {
	clone := *e
	clone.Stack = string(stack)
	return &clone
}

// Wrap attaches a cause to an operational error without changing its kind.
func (e *Error) Wrap(err error) *Error {
	clone := *e
	clone.Err = err
	return &clone
}

// From resolves any error into an *Error. Unknown errors become Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err resolves to the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
