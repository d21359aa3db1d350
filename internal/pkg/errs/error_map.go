/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template: kind, client message and HTTP status.
*/
package errs

import "net/http"

const (
	// SignInAgainMessage is the only message a client sees for any token rejection.
	SignInAgainMessage = "Please sign in again."

	// InvalidCredentialsMessage is shared by "no such user" and "wrong password".
	InvalidCredentialsMessage = "Invalid email or password."

	// TransientFailureMessage is shown for every upstream failure.
	TransientFailureMessage = "Something went wrong. Please try again."
)

var errorMap = map[int]CustomError{
	// 1xxx: Request validation errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Kind: KindValidation, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Kind: KindValidation, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Kind: KindValidation, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Kind: KindValidation, Message: "Request contains unexpected data."},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Kind: KindValidation, Message: "Failed to process uploaded data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Kind: KindValidation, Message: "Request size is too large."},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Kind: KindValidation, Message: "Image must be 5 MB or smaller."},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Kind: KindValidation, Message: "Only image files are allowed."},
	ErrInvalidName:           {Code: ErrInvalidName, Kind: KindValidation, Message: "Name is required."},
	ErrInvalidEmail:          {Code: ErrInvalidEmail, Kind: KindValidation, Message: "Email is invalid."},
	ErrInvalidPhone:          {Code: ErrInvalidPhone, Kind: KindValidation, Message: "Phone number must be 10 digits."},
	ErrInvalidPassword:       {Code: ErrInvalidPassword, Kind: KindValidation, Message: "Password must be between 6 and 72 characters."},

	// 3xxx: Authentication errors
	ErrUnauthorized:       {Code: ErrUnauthorized, Kind: KindAuthRejected, Message: SignInAgainMessage},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Kind: KindAuthRejected, Message: InvalidCredentialsMessage},
	ErrNotAuthenticated:   {Code: ErrNotAuthenticated, Kind: KindAuthRejected, Message: "Not authenticated. Please sign in."},

	// 4xxx: Conflict errors
	ErrEmailTaken: {Code: ErrEmailTaken, Kind: KindConflict, Message: "An account with this email already exists."},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Kind: KindUpstreamFailure, Message: TransientFailureMessage},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Kind: KindUpstreamFailure, Message: TransientFailureMessage},
	ErrStoreUnavailable:  {Code: ErrStoreUnavailable, Kind: KindUpstreamFailure, Message: TransientFailureMessage},
}

// kindStatus is the HTTP status used for each Kind.
var kindStatus = map[Kind]int{
	KindValidation:      http.StatusBadRequest,
	KindAuthRejected:    http.StatusUnauthorized,
	KindConflict:        http.StatusConflict,
	KindUpstreamFailure: http.StatusInternalServerError,
}
