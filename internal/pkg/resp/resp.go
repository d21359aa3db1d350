/*
Package resp provides helper functions for constructing and sending HTTP JSON responses.

Success bodies are written as-is, so an identity is a flat object and a session grant is
`{token, ...identity}`. Error bodies share one shape, `{code, kind, message}`.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"popx/internal/pkg/errs"
	"popx/internal/pkg/logx"
)

// ErrorResponse is the JSON body sent for every failed request.
type ErrorResponse struct {
	// Code is the business error code (see errs package).
	Code int `json:"code"`

	// Kind is the error taxonomy bucket.
	Kind errs.Kind `json:"kind"`

	// Message is the client-safe error message.
	Message string `json:"message"`
}

// RespondJSON sets the Content-Type and sends payload with httpStatus.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Ctx(r.Context()).Error().
			Err(err).
			Int("http_status", httpStatus).
			Msg("Error encoding JSON response")

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	_, _ = w.Write(response)
}

// RespondSuccess sends data with HTTP 200 OK.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, data)
}

// RespondCreated sends data with HTTP 201 Created.
func RespondCreated(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusCreated, data)
}

// RespondError sends an HTTP response describing customErr.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	if customErr.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="popx"`)
	}

	RespondJSON(w, r, customErr.Status, ErrorResponse{
		Code:    customErr.Code,
		Kind:    customErr.Kind,
		Message: customErr.Message,
	})
}
