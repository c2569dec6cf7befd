// Package apperr defines the structured error taxonomy shared by the service
// and controller layers. Every error carries a Kind so callers can branch on
// it instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindInvalidState      Kind = "invalid_state"
	KindAlreadyInProgress Kind = "already_in_progress"
	KindUnauthorized      Kind = "unauthorized"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindEvaluationFailed  Kind = "evaluation_failed"
	KindUpstream          Kind = "upstream"
	KindTimeout           Kind = "timeout"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// With attaches a context value and returns the same error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// KindOf extracts the Kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the caller may retry the failed operation as-is.
// Conflicts resolve once the competing writer finishes; timeouts and upstream
// hiccups are transient by nature.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindTimeout, KindUpstream, KindEvaluationFailed:
		return true
	}
	return false
}
