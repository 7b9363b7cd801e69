// Package apperr defines the error kinds every public operation reports.
//
// Store and storage errors never cross an operation boundary as-is: they are
// converted into an *Error whose Kind is one of the sentinels below and whose
// Message is safe to show to the user.
package apperr

import "errors"

// Error kinds.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrNotFound         = errors.New("not found")
	ErrOwnership        = errors.New("ownership violation")
	ErrInvalid          = errors.New("invalid request")
	ErrDependency       = errors.New("dependency failure")
)

// Error is a structured failure with a user-safe message.
type Error struct {
	Kind    error
	Message string
	cause   error
}

// Error returns the user-safe message.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// New returns an *Error of the given kind.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NotFound returns an ErrNotFound error.
func NotFound(message string) *Error {
	return New(ErrNotFound, message)
}

// NotAuthorized returns an ErrNotAuthorized error.
func NotAuthorized(message string) *Error {
	return New(ErrNotAuthorized, message)
}

// Ownership returns an ErrOwnership error with the generic permission message.
func Ownership(verb, thing string) *Error {
	return New(ErrOwnership, "you don't have permission to "+verb+" this "+thing)
}

// Invalid returns an ErrInvalid error.
func Invalid(message string) *Error {
	return New(ErrInvalid, message)
}

// Dependency wraps a raw store or storage failure. The cause is kept for
// logging but never shown: Error returns message only.
func Dependency(message string, cause error) *Error {
	return &Error{Kind: ErrDependency, Message: message, cause: cause}
}

// KindOf returns the kind of err, or ErrDependency when err carries none.
func KindOf(err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	for _, kind := range []error{
		ErrNotAuthenticated, ErrNotAuthorized, ErrNotFound, ErrOwnership, ErrInvalid,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return ErrDependency
}

// Message returns the user-safe message for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}

	return "operation failed"
}
