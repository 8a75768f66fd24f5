// Package domainerrors defines the error kinds services hand back to the transport
// layer. Anticipated domain conditions are always one of these codes; anything else is
// CodeUnexpected.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeValidation       Code = "validation"
	CodeConflict         Code = "conflict"
	CodeAccessDenied     Code = "access_denied"
	CodeInvalidOrExpired Code = "invalid_or_expired"
	CodeUnexpected       Code = "unexpected"
)

// Error is a coded domain error. Message is safe to show to the caller.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a coded error with a caller-facing message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnexpected.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnexpected
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// MessageOf returns the caller-facing message, or a generic one for unexpected errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Code != CodeUnexpected {
		return de.Message
	}
	return "internal error"
}
