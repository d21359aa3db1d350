/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, a kind, a client-safe message and an HTTP status code.
*/
package errs

import (
	"fmt"
	"net/http"

	"popx/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the server.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Kind is the taxonomy bucket the code belongs to.
	Kind Kind

	// Message is the client-safe error description.
	Message string

	// Status is the HTTP status code corresponding to this error.
	Status int
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (%s, HTTP %d): %s", e.Code, e.Kind, e.Status, e.Message)
}

// NewError constructs a *CustomError from a predefined code.
// Unknown codes fall back to ErrUnknown. For upstream failures the optional cause is
// logged server-side and never copied into the message.
func NewError(code int, cause ...error) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)
		templateErr = errorMap[ErrUnknown]
	}

	customErr := templateErr
	customErr.Status = kindStatus[customErr.Kind]
	if customErr.Status == 0 {
		customErr.Status = http.StatusInternalServerError
	}

	if customErr.Kind == KindUpstreamFailure {
		for _, c := range cause {
			if c != nil {
				logx.Error(c, "Upstream failure", "code", customErr.Code)
			}
		}
	}

	return &customErr
}

// WithMessage returns a copy of e carrying msg. Only validation errors accept a custom
// message; other kinds keep their fixed wording.
func (e *CustomError) WithMessage(msg string) *CustomError {
	if e == nil || e.Kind != KindValidation || msg == "" {
		return e
	}
	c := *e
	c.Message = msg
	return &c
}
