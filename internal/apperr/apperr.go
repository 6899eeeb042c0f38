// Package apperr carries the error taxonomy every service returns to the
// HTTP boundary. Handlers map a Kind to a status code exactly once, in the
// responder; raw gorm/driver errors never reach a caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota // malformed input, field-level message
	KindNotFound               // missing row
	KindConflict               // state precondition failed
	KindUnauthorized           // missing/invalid credentials or session
	KindForbidden              // role/ownership mismatch
	KindInternal               // infrastructure failure, surfaced generically
)

// Error is a tagged error with a stable machine code and a caller-safe
// message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error { return E(KindValidation, code, message) }
func NotFound(code, message string) *Error   { return E(KindNotFound, code, message) }
func Conflict(code, message string) *Error   { return E(KindConflict, code, message) }
func Unauthorized(message string) *Error     { return E(KindUnauthorized, "unauthorized", message) }
func Forbidden(message string) *Error        { return E(KindForbidden, "forbidden", message) }

// Internal wraps an infrastructure failure. The wrapped error is for logs;
// callers only ever see the generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: "temporary error, please retry", Err: err}
}

// From extracts an *Error, wrapping unknown errors as Internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}

// CodeOf returns the machine code of err, or "internal" for unknown errors.
func CodeOf(err error) string { return From(err).Code }
