// Package domainerrors defines the coded error type shared by services and
// transport. Stores return sentinel errors; services translate them into
// coded errors; the HTTP layer maps codes onto status lines.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure in a machine-checkable way. Codes are
// stable strings; they appear verbatim in HTTP error envelopes.
type Code string

const (
	CodeInvalidPath      Code = "invalid_path"
	CodePathEscape       Code = "path_escape"
	CodeNotFound         Code = "not_found"
	CodeCorruptDocument  Code = "corrupt_document"
	CodeValidationFailed Code = "validation_failed"
	CodeUnauthorized     Code = "unauthorized"
	CodeForbidden        Code = "forbidden"
	CodeInvalidPayload   Code = "invalid_payload"
	CodeBadRequest       Code = "bad_request"
	CodeUnsupportedMedia Code = "unsupported_media_type"
	CodeInternal         Code = "internal"
)

// Error carries a code, a human-readable message, and optional detail text
// (e.g. the cause list of a schema validation failure).
type Error struct {
	Code    Code
	Message string
	Details string
	wrapped error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches an underlying cause while keeping the coded surface.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, wrapped: err}
}

// WithDetails returns a copy of e carrying detail text for the response body.
func (e *Error) WithDetails(details string) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// Is reports whether err (anywhere in its chain) carries the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that never passed through this package.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto its HTTP status line.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidPath, CodeInvalidPayload, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodePathEscape, CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case CodeValidationFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
