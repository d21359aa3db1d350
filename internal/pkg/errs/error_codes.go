/*
Package errs provides custom error types and application-level error code constants.

Every code belongs to exactly one Kind, which decides the HTTP status and how much of
the failure the client is allowed to see.
*/
package errs

// Kind classifies an error for propagation purposes.
type Kind string

const (
	// KindValidation marks bad input shape, type or size. Messages are user-correctable and surfaced verbatim.
	KindValidation Kind = "VALIDATION"

	// KindAuthRejected marks a missing, expired, malformed or forged credential.
	KindAuthRejected Kind = "AUTH_REJECTED"

	// KindConflict marks a uniqueness violation such as a duplicate email.
	KindConflict Kind = "CONFLICT"

	// KindUpstreamFailure marks storage or credential-store unavailability. Details stay server-side.
	KindUpstreamFailure Kind = "UPSTREAM_FAILURE"
)

// 1xxx: Request validation errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrFileSizeTooLarge indicates that an attachment exceeded the avatar size ceiling.
	ErrFileSizeTooLarge = 1101

	// ErrFileTypeInvalid indicates that an attachment is not a jpeg, png or gif image.
	ErrFileTypeInvalid = 1102

	// ErrInvalidName indicates a missing or overlong display name.
	ErrInvalidName = 1201

	// ErrInvalidEmail indicates a missing or malformed email address.
	ErrInvalidEmail = 1202

	// ErrInvalidPhone indicates a phone number that is not exactly 10 digits.
	ErrInvalidPhone = 1203

	// ErrInvalidPassword indicates a password outside the accepted length range.
	ErrInvalidPassword = 1204
)

// 3xxx: Authentication errors
const (
	// ErrUnauthorized indicates a missing or rejected bearer token.
	ErrUnauthorized = 3001

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = 3002

	// ErrNotAuthenticated indicates a protected request that carried no bearer token at all.
	ErrNotAuthenticated = 3003
)

// 4xxx: Conflict errors
const (
	// ErrEmailTaken indicates that the email is already registered to an account.
	ErrEmailTaken = 4001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that the attachment could not be persisted.
	ErrFileStorageFailed = 5001

	// ErrStoreUnavailable indicates that the credential store could not be reached.
	ErrStoreUnavailable = 5002
)
