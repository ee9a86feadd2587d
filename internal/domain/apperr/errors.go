package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so transports can map it deterministically.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidData
	KindNotActive
	KindNotAllowed
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidData:
		return "invalid_data"
	case KindNotActive:
		return "not_active"
	case KindNotAllowed:
		return "not_allowed"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the error type returned by the domain, the use cases and the repositories.
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

// Is reports a match on Kind, so errors.Is(err, ErrNotFound) works for any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInternal    = &Error{Kind: KindInternal, Message: "internal error"}
	ErrNotFound    = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidData = &Error{Kind: KindInvalidData, Message: "invalid data"}
	ErrNotActive   = &Error{Kind: KindNotActive, Message: "user is not active"}
	ErrNotAllowed  = &Error{Kind: KindNotAllowed, Message: "operation not allowed"}
	ErrConflict    = &Error{Kind: KindConflict, Message: "version conflict"}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func InvalidData(format string, args ...any) *Error {
	return New(KindInvalidData, format, args...)
}

func NotActive(format string, args ...any) *Error {
	return New(KindNotActive, format, args...)
}

func NotAllowed(format string, args ...any) *Error {
	return New(KindNotAllowed, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// Internal wraps a storage or transport failure; err may be nil.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the message of the first *Error in err's chain, or a generic text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrInternal.Message
}
