package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the stable categories the HTTP
// boundary and operators key on. Kinds are part of the public contract;
// messages are not.
type Kind string

const (
	KindNotFound      Kind = "NOT_FOUND"
	KindConflict      Kind = "CONFLICT"
	KindForbidden     Kind = "FORBIDDEN"
	KindUnavailable   Kind = "IDENTITY_PROVIDER_UNAVAILABLE"
	KindRejected      Kind = "IDENTITY_PROVIDER_REJECTED"
	KindPartialSync   Kind = "PARTIAL_SYNC_FAILURE"
	KindInvalidFilter Kind = "INVALID_FILTER"
	KindInvalidSort   Kind = "INVALID_SORT"
	KindInternal      Kind = "INTERNAL_ERROR"
)

// Error carries a stable kind plus a human-readable message. The wrapped
// cause never crosses the service boundary except through logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind. The message is what callers see.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a kinded error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error    { return New(KindNotFound, msg) }
func Conflict(msg string) *Error    { return New(KindConflict, msg) }
func Forbidden(msg string) *Error   { return New(KindForbidden, msg) }
func Unavailable(msg string) *Error { return New(KindUnavailable, msg) }
func Rejected(msg string) *Error    { return New(KindRejected, msg) }
func PartialSync(msg string) *Error { return New(KindPartialSync, msg) }
func Internal(msg string) *Error    { return New(KindInternal, msg) }

// KindOf returns the kind of err, or KindInternal for unclassified errors.
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

// MessageOf returns the user-visible message of err. Unclassified errors
// get a generic message so internal detail stays out of responses.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
