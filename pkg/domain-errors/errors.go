// Package domainerrors is the error taxonomy shared by the API client, the stores
// and the front ends. Every error that crosses a package boundary carries a Code;
// validation failures additionally carry a field -> message map.
package domainerrors

import (
	"errors"
	"fmt"
	"maps"
)

// Code classifies an error for callers that need to branch on it.
type Code string

const (
	// CodeValidation is a per-field rejection from the backend or a local form check.
	CodeValidation Code = "validation"
	// CodeBadRequest is a general rejection with a single human-readable message.
	CodeBadRequest Code = "bad_request"
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	// CodeInternal is a 500-class backend failure. Its message is always the generic one.
	CodeInternal     Code = "internal_error"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	// CodeUnavailable covers unreachable hosts, timeouts and dropped connections.
	CodeUnavailable  Code = "unavailable"
	CodeInvalidInput Code = "invalid_input"
)

// Error is the concrete error type. Use New/Wrap/WithFields to build one.
type Error struct {
	Code    Code
	Message string
	// Status is the HTTP status that produced the error, zero when local.
	Status int
	Fields map[string]string
	Err    error
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

// New creates an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Validation creates a CodeValidation error from a field map.
func Validation(msg string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Fields: maps.Clone(fields)}
}

// WithStatus records the HTTP status on the error and returns it.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the code of the outermost domain error, or CodeInternal for
// foreign errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is is errors.Is, re-exported so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Fields returns a copy of the field map carried by err, or nil.
func Fields(err error) map[string]string {
	var de *Error
	if errors.As(err, &de) && len(de.Fields) > 0 {
		return maps.Clone(de.Fields)
	}
	return nil
}

// Message returns the user-facing message of the outermost domain error, falling
// back to err.Error() for foreign errors.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// IsAuth reports whether err is an authentication or authorization failure.
func IsAuth(err error) bool {
	return HasCode(err, CodeUnauthorized) || HasCode(err, CodeForbidden)
}

// IsNetwork reports whether err was caused by the transport rather than the server.
func IsNetwork(err error) bool {
	return HasCode(err, CodeUnavailable)
}

// ErrLoginRequired is returned when an operation needs a session token and
// none is held. Front ends treat it as a redirect to the login screen.
var ErrLoginRequired = New(CodeUnauthorized, "login required")
