// Package apperr defines the typed error taxonomy shared across the engine
// and the API layer that translates it into HTTP responses.
package apperr

import "fmt"

// Kind classifies an error so handlers can map it to a stable HTTP status
// and response code without string-matching messages.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindInvalidState       Kind = "invalid_state"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindInsufficientLocked Kind = "insufficient_locked"
	KindDuplicateVote      Kind = "duplicate_vote"
	KindRateLimited        Kind = "rate_limited"
	KindConflict           Kind = "conflict"
	KindStoreError         Kind = "store_error"
)

// Error wraps a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if as(err, &e) {
		return e.Kind == kind
	}
	return false
}

// as is a tiny local errors.As to avoid importing errors just for this.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func InvalidInput(format string, args ...interface{}) *Error {
	return New(KindInvalidInput, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(KindForbidden, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return New(KindInvalidState, format, args...)
}

func InsufficientFunds(format string, args ...interface{}) *Error {
	return New(KindInsufficientFunds, format, args...)
}

func InsufficientLocked(format string, args ...interface{}) *Error {
	return New(KindInsufficientLocked, format, args...)
}

func DuplicateVote(format string, args ...interface{}) *Error {
	return New(KindDuplicateVote, format, args...)
}

func RateLimited(format string, args ...interface{}) *Error {
	return New(KindRateLimited, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

func StoreError(cause error, format string, args ...interface{}) *Error {
	return Wrap(KindStoreError, cause, format, args...)
}
