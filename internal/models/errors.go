package models

import (
	"errors"
	"fmt"
)

// Kind classifies an Error. Callers branch on kinds, never on messages.
type Kind string

// Error kinds.
const (
	KindUnsupportedFormat Kind = "UNSUPPORTED_FORMAT"
	KindDecode            Kind = "DECODE_ERROR"
	KindEmptyContent      Kind = "EMPTY_CONTENT"
	KindInvalidArgument   Kind = "INVALID_ARGUMENT"
	KindProvider          Kind = "PROVIDER_ERROR"
	KindAnswerProvider    Kind = "ANSWER_PROVIDER_ERROR"
	KindAuth              Kind = "AUTH_ERROR"
	KindTimeout           Kind = "TIMEOUT"
	KindDimensionMismatch Kind = "DIMENSION_MISMATCH"
	KindNotFound          Kind = "NOT_FOUND"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// Error is a classified error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, ErrTimeout) matches any timeout regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates an Error without a cause.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error with an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Errorf creates an Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal when err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Sentinels for errors.Is checks.
var (
	ErrUnsupportedFormat = NewError(KindUnsupportedFormat, "unsupported file format")
	ErrDecode            = NewError(KindDecode, "content could not be decoded")
	ErrEmptyContent      = NewError(KindEmptyContent, "content is empty")
	ErrInvalidArgument   = NewError(KindInvalidArgument, "invalid argument")
	ErrProvider          = NewError(KindProvider, "provider call failed")
	ErrAnswerProvider    = NewError(KindAnswerProvider, "answer provider call failed")
	ErrAuth              = NewError(KindAuth, "not authenticated")
	ErrTimeout           = NewError(KindTimeout, "operation timed out")
	ErrDimensionMismatch = NewError(KindDimensionMismatch, "embedding dimension mismatch")
	ErrNotFound          = NewError(KindNotFound, "not found")
)
