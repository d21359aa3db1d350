package req

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popx/internal/pkg/errs"
)

type creds struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func jsonRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantCode    int
	}{
		{"ok", `{"email":"a@x.com","password":"secret1"}`, "application/json", 0},
		{"charset param", `{"email":"a@x.com"}`, "application/json; charset=utf-8", 0},
		{"wrong type", `email=a@x.com`, "application/x-www-form-urlencoded", errs.ErrUnsupportedMediaType},
		{"no type", `{}`, "", errs.ErrUnsupportedMediaType},
		{"broken", `{"email":`, "application/json", errs.ErrInvalidJSONFormat},
		{"unknown field", `{"email":"a@x.com","admin":true}`, "application/json", errs.ErrInvalidJSONFormat},
		{"trailing data", `{"email":"a@x.com"}{"email":"b@x.com"}`, "application/json", errs.ErrExtraContentInBody},
		{"too large", `{"email":"` + strings.Repeat("a", int(MaxJSONBodySize)) + `"}`, "application/json", errs.ErrRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst creds
			err := BindJSON(httptest.NewRecorder(), jsonRequest(tt.body, tt.contentType), &dst)
			if tt.wantCode == 0 {
				require.Nil(t, err)
				assert.Equal(t, "a@x.com", dst.Email)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, errs.KindValidation, err.Kind)
		})
	}
}

func TestSetupMultipart_FormValuePresence(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Ann"))
	require.NoError(t, mw.WriteField("phone", ""))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPut, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	require.Nil(t, SetupMultipart(httptest.NewRecorder(), r))
	defer r.MultipartForm.RemoveAll()

	v, ok := FormValue(r, "name")
	assert.True(t, ok)
	assert.Equal(t, "Ann", v)

	v, ok = FormValue(r, "phone")
	assert.True(t, ok, "an empty value is still present")
	assert.Empty(t, v)

	_, ok = FormValue(r, "email")
	assert.False(t, ok)
}

func TestSetupMultipart_Rejections(t *testing.T) {
	err := SetupMultipart(httptest.NewRecorder(), jsonRequest(`{}`, "application/json"))
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrUnsupportedMediaType, err.Code)

	r := jsonRequest("not a multipart body", "multipart/form-data; boundary=xyz")
	err = SetupMultipart(httptest.NewRecorder(), r)
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrFormParseFailed, err.Code)

	_, ok := FormValue(jsonRequest("", ""), "name")
	assert.False(t, ok)
}
