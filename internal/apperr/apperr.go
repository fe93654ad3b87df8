// Package apperr defines the error taxonomy returned by the service layer.
// Every business-rule failure is converted to an *Error before it leaves a
// service method; anything else reaching the HTTP layer is treated as an
// internal failure.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindInvalidCredentials
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalidReference
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidReference:
		return "invalid_reference"
	default:
		return "internal"
	}
}

// Error is a classified failure. Msg is safe to show to clients; Err is the
// underlying cause and is only ever logged.
type Error struct {
	Kind    Kind
	Msg     string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// With attaches a client-visible detail and returns the same error.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 2)
	}
	e.Details[key] = value
	return e
}

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

func Validation(msg string) *Error         { return newErr(KindValidation, msg) }
func Unauthenticated(msg string) *Error    { return newErr(KindUnauthenticated, msg) }
func InvalidCredentials(msg string) *Error { return newErr(KindInvalidCredentials, msg) }
func Forbidden(msg string) *Error          { return newErr(KindForbidden, msg) }
func NotFound(msg string) *Error           { return newErr(KindNotFound, msg) }
func Conflict(msg string) *Error           { return newErr(KindConflict, msg) }
func InvalidReference(msg string) *Error   { return newErr(KindInvalidReference, msg) }

// Internal wraps an unexpected failure. The op names the failing operation
// so log lines can be traced back to it.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
