package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the transport layer can pick a response
// and the caller can decide whether a retry makes sense.
type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthenticated
	Forbidden
	Conflict
	NotFound
	Transient
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	default:
		return "internal"
	}
}

// Error is the error type returned by services and repositories.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	// Fields carries per-field validation messages, keyed by request field name.
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Invalid builds a Validation error with per-field details.
func Invalid(message string, fields map[string]string) error {
	return &Error{Kind: Validation, Message: message, Fields: fields}
}

// KindOf reports the kind of err. Errors not produced by this package are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldsOf returns validation field details, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
