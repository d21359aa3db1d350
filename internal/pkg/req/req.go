/*
Package req provides helper functions for HTTP request parsing and data binding.

It parses JSON and multipart bodies under fixed size limits and reports failures as
validation errors from the errs package.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"popx/internal/pkg/errs"
)

const (
	// MaxJSONBodySize caps JSON request bodies.
	MaxJSONBodySize int64 = 1 << 20 // 1 MB

	// MaxFormMemory is the amount of memory ParseMultipartForm may use before spilling file parts to disk.
	MaxFormMemory int64 = 8 << 20 // 8 MB

	// MaxMultipartBodySize caps the whole multipart body: the 5 MB avatar ceiling plus room for text fields.
	// Attachments between the ceiling and this limit are rejected by the avatar validator instead.
	MaxMultipartBodySize int64 = 6 << 20 // 6 MB
)

// IsJSON reports whether the request declares a JSON body.
func IsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// IsMultipart reports whether the request declares a multipart form body.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// BindJSON binds the JSON request body to dst, rejecting unknown fields and trailing data.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	if !IsJSON(r) {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if isTooLarge(err) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// SetupMultipart parses a multipart form from the request under MaxMultipartBodySize.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	if !IsMultipart(r) {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxMultipartBodySize)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		if isTooLarge(err) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}

// FormValue returns the first value submitted for key and whether the key was present at all.
// A present key with an empty value is reported as present.
func FormValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
