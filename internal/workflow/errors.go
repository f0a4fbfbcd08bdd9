package workflow

import (
	"errors"
	"fmt"
)

// Kind classifies workflow errors so callers can map them to a response.
type Kind string

// Error kinds.
const (
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindInvalidTarget Kind = "invalid_target"
	KindConflict      Kind = "conflict"
)

// Error is a classified workflow failure.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// Is matches the kind sentinels below, so errors.Is(err, ErrForbidden)
// holds for any forbidden error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrInvalidTarget = &Error{Kind: KindInvalidTarget}
	ErrConflict      = &Error{Kind: KindConflict}
)

func errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a workflow error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
