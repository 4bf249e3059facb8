package store

import (
	"errors"
	"net/http"
)

// Kind classifies a data store failure so callers can branch on it
// without inspecting messages.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindInvalid
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus is the status a handler answers with for this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalid:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the only error shape returned across the store boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error { return newError(KindNotFound, msg, nil) }
func Conflict(msg string, err error) *Error { return newError(KindConflict, msg, err) }
func Forbidden(msg string) *Error { return newError(KindForbidden, msg, nil) }
func Invalid(msg string) *Error { return newError(KindInvalid, msg, nil) }
func Unavailable(msg string, err error) *Error { return newError(KindUnavailable, msg, err) }
func Internal(msg string, err error) *Error { return newError(KindInternal, msg, err) }

// KindOf reports the kind of err. Errors that did not come from the store
// are treated as internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message is the user-visible text for err. Wrapped driver errors are not exposed.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return "An unexpected error occurred"
}
