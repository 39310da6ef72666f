package service

import (
	"errors"
	"fmt"
)

// Kind classifies every failure returned by ItemService.
type Kind int

const (
	KindUnknown Kind = iota
	KindStore
	KindNotFound
	KindConflict
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindStore:
		return "STORE_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	}
	return "UNKNOWN"
}

// Error is the only error type ItemService returns.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Targets for errors.Is. They match any *Error of the same kind.
var (
	ErrStore           = &Error{Kind: KindStore, Message: "store error"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
)

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func storeError(cause error, format string, args ...any) *Error {
	return newError(KindStore, fmt.Sprintf(format, args...), cause)
}

func notFound(format string, args ...any) *Error {
	return newError(KindNotFound, fmt.Sprintf(format, args...), nil)
}

func conflict(format string, args ...any) *Error {
	return newError(KindConflict, fmt.Sprintf(format, args...), nil)
}

func invalidArgument(message string) *Error {
	return newError(KindInvalidArgument, message, nil)
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
