// Package apperr carries the error taxonomy shared by the client packages.
// Every failure that crosses a package boundary is an *AppError so callers
// can branch on the code instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Transport(msg string, cause error) error {
	return Wrap(CodeTransport, msg, cause)
}

func Malformed(msg string) error {
	return New(CodeMalformedPayload, msg)
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthenticated, msg)
}

func Internal(msg string) error {
	return New(CodeInternal, msg)
}

// CodeOf returns the code attached to err, or CodeUnknown for errors that
// did not originate in this package.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

func IsTransport(err error) bool { return CodeOf(err) == CodeTransport }

func IsUnauthorized(err error) bool { return CodeOf(err) == CodeUnauthenticated }
