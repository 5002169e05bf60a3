package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to relay clients.
const (
	CodeInvalidJSON    = "E_INVALID_JSON"
	CodeInvalidPayload = "E_INVALID_PAYLOAD"
	CodeInvalidField   = "E_INVALID_FIELD"
	CodeInvalidQuery   = "E_INVALID_QUERY"
	CodeBodyTooLarge   = "E_BODY_TOO_LARGE"
	CodeNotFound       = "E_NOT_FOUND"
	CodeInternal       = "E_INTERNAL"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Newf builds an error whose status is derived from code.
func Newf(code string, format string, args ...any) *Error {
	return &Error{Status: StatusFor(code), Code: code, Err: fmt.Errorf(format, args...)}
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case CodeInvalidJSON, CodeInvalidPayload, CodeInvalidField, CodeInvalidQuery:
		return http.StatusBadRequest
	case CodeBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err, wrapping anything else as E_INTERNAL.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, CodeInternal, err)
}
