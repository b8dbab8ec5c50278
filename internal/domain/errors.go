package domain

import (
	"errors"
	"fmt"
)

// Repository sentinels. Repositories wrap these so services can translate them.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind string

const (
	KindInvalidTarget ErrorKind = "INVALID_TARGET"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindForbidden     ErrorKind = "FORBIDDEN"
	KindConflict      ErrorKind = "CONFLICT"
	KindInvalid       ErrorKind = "BAD_REQUEST"
	KindUnauthorized  ErrorKind = "UNAUTHORIZED"
	KindInternal      ErrorKind = "INTERNAL_ERROR"
)

// Error is the structured failure returned by services.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a service error of the given kind
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// internalError wraps an unexpected store or dependency failure
func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf reports the kind of err, or KindInternal for errors that are not *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
