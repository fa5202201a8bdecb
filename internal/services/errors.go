package services

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not_found"
	KindDuplicateTitle  Kind = "duplicate_title"
	KindConflict        Kind = "conflict"
	KindInvalidArgument Kind = "invalid_argument"
)

// Error is the only error type the services hand back on purpose. Anything
// else is an internal failure.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NotFound is returned both when the resource is absent and when the
// principal may not see it.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func DuplicateTitle(message string) *Error {
	return &Error{Kind: KindDuplicateTitle, Field: "title", Message: message}
}

func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

func InvalidArgument(field, message string) *Error {
	return &Error{Kind: KindInvalidArgument, Field: field, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the error kind, or "" for internal errors.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}
