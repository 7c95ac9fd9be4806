// Package apperr defines the error taxonomy returned by every service
// operation.
//
// Each failure carries a Kind (what went wrong, used by the transport layer
// to pick a status code) and a human-readable Reason. Infrastructure errors
// also carry the underlying cause, reachable through errors.Unwrap.
//
// Sentinel values built with these constructors compare with errors.Is by
// identity, so packages can export them the same way the stores export
// ErrDuplicateEmail and friends.
package apperr

import "errors"

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is a store, network, or other infrastructure failure.
	KindInternal Kind = iota
	// KindValidation is a missing or malformed input field.
	KindValidation
	// KindNotFound means a referenced user, club, or event does not exist.
	KindNotFound
	// KindConflict covers duplicates, already-a-member, already-registered,
	// event full, and invalid state transitions.
	KindConflict
	// KindForbidden means the actor lacks the required role or membership.
	KindForbidden
	// KindUnauthorized means the caller could not be authenticated.
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindInternal:
		return "internal"
	}
	return "internal"
}

// Error is the structured failure returned by service operations.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a validation error with the given reason.
func Validation(reason string) *Error { return &Error{Kind: KindValidation, Reason: reason} }

// NotFound returns a not-found error with the given reason.
func NotFound(reason string) *Error { return &Error{Kind: KindNotFound, Reason: reason} }

// Conflict returns a conflict error with the given reason.
func Conflict(reason string) *Error { return &Error{Kind: KindConflict, Reason: reason} }

// Forbidden returns an authorization error with the given reason.
func Forbidden(reason string) *Error { return &Error{Kind: KindForbidden, Reason: reason} }

// Unauthorized returns an authentication error with the given reason.
func Unauthorized(reason string) *Error { return &Error{Kind: KindUnauthorized, Reason: reason} }

// Internal wraps an infrastructure failure. The reason names the operation
// ("Failed to join club"); err is the cause.
func Internal(reason string, err error) *Error {
	return &Error{Kind: KindInternal, Reason: reason, Err: err}
}

// KindOf returns the Kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the text reported to callers for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
