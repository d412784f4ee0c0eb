// internal/platform/apperrors/errors.go

// Package apperrors defines the error kinds the planet and membership
// services report to callers. Three kinds suffice: a referenced record is
// absent (NotFound), the actor lacks the required role (Forbidden), or a
// uniqueness constraint was violated (Conflict). Callers must be able to
// tell these apart, so plumbing code wraps with %w and never repackages one
// kind as another.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
)

// Error is a domain error carrying its kind and a caller-facing message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// NotFound reports that a referenced record does not exist or is not in the
// expected state.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Forbidden reports that the authenticated actor lacks the required role or
// ownership for the action.
func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness violation, such as a duplicate join request
// or bookmark.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, unwrapping as needed. Errors that are not
// domain errors report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool  { return KindOf(err) == KindNotFound }
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }
func IsConflict(err error) bool  { return KindOf(err) == KindConflict }

// HTTPStatus maps an error to the status code reported over HTTP. Unknown
// errors are internal failures.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
