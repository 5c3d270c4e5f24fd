package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error so transport layers can map it to a status code
// or a structured error payload without inspecting messages.
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindUnauthenticated Kind = "authentication_error"
	KindConflict        Kind = "conflict"
	KindStorage         Kind = "storage_fault"
	KindInternal        Kind = "internal_error"
)

// Error is the single error type crossing the service boundary. Field is set
// for validation failures that concern one input field.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

// ValidationField reports a validation failure tied to a specific input field.
func ValidationField(field, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Field: field}
}

func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }
func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Conflict(msg string) *Error        { return &Error{Kind: KindConflict, Message: msg} }

// Storage wraps an infrastructure-level failure (retryable by callers),
// as opposed to a permanent domain rejection.
func Storage(msg string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: msg, cause: cause}
}

func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// KindOf extracts the Kind from err, defaulting to KindInternal for
// errors that did not originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FieldOf returns the field detail of a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// MessageOf returns the user-facing message of err. Internal causes are
// never leaked to callers.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }
