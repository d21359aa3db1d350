package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"popx/internal/app/storage"
	"popx/internal/app/user"
	"popx/internal/configs"
	"popx/internal/pkg/auth/jwt"
	"popx/internal/pkg/errs"
)

const publicBase = "http://localhost:5000"

type testEnv struct {
	server *httptest.Server
	store  *user.MemoryStore
	disk   *storage.DiskStore
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStorage(t, nil)
}

// newTestEnvWithStorage wraps the disk store with wrap before handing it to the router.
func newTestEnvWithStorage(t *testing.T, wrap func(*storage.DiskStore) storage.StorageService) *testEnv {
	t.Helper()

	store := user.NewMemoryStore()
	disk, err := storage.NewDiskStore(t.TempDir(), publicBase)
	require.NoError(t, err)

	var svc storage.StorageService = disk
	if wrap != nil {
		svc = wrap(disk)
	}

	deps := &AppDeps{
		Config:         &configs.AppConfig{Environment: configs.EnvDevelopment},
		Users:          user.NewService(store, bcrypt.MinCost),
		Tokens:         jwt.NewTokenService("test-secret", time.Hour),
		StorageService: svc,
	}

	srv := httptest.NewServer(Router(deps))
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, store: store, disk: disk}
}

func (e *testEnv) do(t *testing.T, method, p, token, contentType string, body io.Reader) (*http.Response, map[string]any) {
	t.Helper()

	r, err := http.NewRequest(method, e.server.URL+p, body)
	require.NoError(t, err)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	defer res.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return res, out
}

func (e *testEnv) postJSON(t *testing.T, p string, v any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return e.do(t, http.MethodPost, p, "", "application/json", bytes.NewReader(b))
}

func (e *testEnv) register(t *testing.T, name, email string) string {
	t.Helper()
	res, body := e.postJSON(t, "/users/register", map[string]string{
		"name": name, "email": email, "phone": "5551234567", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	return body["token"].(string)
}

type filePart struct {
	filename    string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *filePart) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, AvatarField, file.filename))
		h.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) updateProfile(t *testing.T, token string, fields map[string]string, file *filePart) (*http.Response, map[string]any) {
	t.Helper()
	body, ct := multipartBody(t, fields, file)
	return e.do(t, http.MethodPut, "/users/profile", token, ct, body)
}

func (e *testEnv) uploadedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.disk.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func flipSignatureBit(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	sig[0] ^= 0x01
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)
	return strings.Join(parts, ".")
}

func pngFile(name string, size int) *filePart {
	return &filePart{filename: name, contentType: "image/png", data: bytes.Repeat([]byte{0x89}, size)}
}

func TestAnnScenario(t *testing.T) {
	env := newTestEnv(t)

	res, reg := env.postJSON(t, "/users/register", map[string]string{
		"name": "Ann", "email": "ann@x.com", "phone": "5551234567", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, reg)
	t1 := reg["token"].(string)
	require.NotEmpty(t, t1)
	assert.Equal(t, "ann@x.com", reg["email"])
	assert.NotContains(t, reg, "passwordHash")
	assert.NotContains(t, reg, "password")

	res, login := env.postJSON(t, "/users/login", map[string]string{"email": "ann@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, reg["id"], login["id"])
	assert.NotEmpty(t, login["token"])

	res, wrong := env.postJSON(t, "/users/login", map[string]string{"email": "ann@x.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, errs.InvalidCredentialsMessage, wrong["message"])

	res, unknown := env.postJSON(t, "/users/login", map[string]string{"email": "nobody@x.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, wrong, unknown, "unknown email and wrong password must look identical")

	res, me := env.do(t, http.MethodGet, "/users/me", t1, "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, reg["id"], me["id"])
	assert.Equal(t, "Ann", me["name"])
	assert.Equal(t, "", me["profileImage"])

	res, rejected := env.do(t, http.MethodGet, "/users/me", flipSignatureBit(t, t1), "", nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, string(errs.KindAuthRejected), rejected["kind"])
	assert.Equal(t, errs.SignInAgainMessage, rejected["message"])
}

func TestRegister_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann@x.com")

	tests := []struct {
		name     string
		body     map[string]string
		wantCode int
		wantKind errs.Kind
	}{
		{"duplicate email", map[string]string{"name": "A2", "email": "ANN@x.com", "phone": "5551234567", "password": "secret1"}, http.StatusConflict, errs.KindConflict},
		{"short password", map[string]string{"name": "B", "email": "b@x.com", "phone": "5551234567", "password": "123"}, http.StatusBadRequest, errs.KindValidation},
		{"bad phone", map[string]string{"name": "B", "email": "b@x.com", "phone": "555", "password": "secret1"}, http.StatusBadRequest, errs.KindValidation},
		{"bad email", map[string]string{"name": "B", "email": "nope", "phone": "5551234567", "password": "secret1"}, http.StatusBadRequest, errs.KindValidation},
		{"missing name", map[string]string{"email": "b@x.com", "phone": "5551234567", "password": "secret1"}, http.StatusBadRequest, errs.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := env.postJSON(t, "/users/register", tt.body)
			assert.Equal(t, tt.wantCode, res.StatusCode)
			assert.Equal(t, string(tt.wantKind), body["kind"])
		})
	}
}

func TestRegister_RejectsNonJSON(t *testing.T) {
	env := newTestEnv(t)
	res, body := env.do(t, http.MethodPost, "/users/register", "", "text/plain", strings.NewReader("hi"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.EqualValues(t, errs.ErrUnsupportedMediaType, body["code"])
}

func TestMe_WithoutToken(t *testing.T) {
	env := newTestEnv(t)
	res, body := env.do(t, http.MethodGet, "/users/me", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.EqualValues(t, errs.ErrNotAuthenticated, body["code"])
	assert.Contains(t, res.Header.Get("WWW-Authenticate"), "Bearer")
}

func TestUpdateProfile_PartialUpdateKeepsAvatar(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Ann", "ann@x.com")

	res, withAvatar := env.updateProfile(t, token, nil, pngFile("me.png", 128))
	require.Equal(t, http.StatusOK, res.StatusCode, withAvatar)
	avatarURL := withAvatar["profileImage"].(string)
	require.True(t, strings.HasPrefix(avatarURL, publicBase+"/uploads/"), avatarURL)

	res, renamed := env.updateProfile(t, token, map[string]string{"name": "New Name"}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, renamed)
	assert.Equal(t, "New Name", renamed["name"])
	assert.Equal(t, avatarURL, renamed["profileImage"])
	assert.Equal(t, "ann@x.com", renamed["email"])
	assert.Equal(t, "5551234567", renamed["phone"])
}

func TestUpdateProfile_OversizedAttachmentLeavesRecordUnchanged(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Ann", "ann@x.com")

	res, body := env.updateProfile(t, token, map[string]string{"name": "Other"}, pngFile("big.png", storage.MaxAvatarSize+1))
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, string(errs.KindValidation), body["kind"])
	assert.EqualValues(t, errs.ErrFileSizeTooLarge, body["code"])

	_, me := env.do(t, http.MethodGet, "/users/me", token, "", nil)
	assert.Equal(t, "Ann", me["name"])
	assert.Equal(t, "", me["profileImage"])
	assert.Empty(t, env.uploadedFiles(t))
}

func TestUpdateProfile_InvalidType(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Ann", "ann@x.com")

	file := &filePart{filename: "notes.txt", contentType: "text/plain", data: []byte("hello")}
	res, body := env.updateProfile(t, token, nil, file)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.EqualValues(t, errs.ErrFileTypeInvalid, body["code"])
	assert.Empty(t, env.uploadedFiles(t))
}

func TestUpdateProfile_ReplacesAndDeletesOldAvatar(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Ann", "ann@x.com")

	_, first := env.updateProfile(t, token, nil, pngFile("one.png", 16))
	oldKey := path.Base(first["profileImage"].(string))

	res, second := env.updateProfile(t, token, nil, &filePart{filename: "two.gif", contentType: "image/gif", data: []byte("GIF89a")})
	require.Equal(t, http.StatusOK, res.StatusCode, second)
	newKey := path.Base(second["profileImage"].(string))
	assert.NotEqual(t, oldKey, newKey)

	assert.Eventually(t, func() bool {
		files := env.uploadedFiles(t)
		return len(files) == 1 && files[0] == newKey
	}, 2*time.Second, 10*time.Millisecond)

	res, _ = env.do(t, http.MethodGet, "/uploads/"+newKey, "", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestUpdateProfile_EmailConflictRollsBackUpload(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Bob", "bob@x.com")
	token := env.register(t, "Ann", "ann@x.com")

	res, body := env.updateProfile(t, token, map[string]string{"email": "bob@x.com"}, pngFile("me.png", 32))
	require.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, string(errs.KindConflict), body["kind"])
	assert.Empty(t, env.uploadedFiles(t), "uploaded file must be removed when the update is not committed")

	_, me := env.do(t, http.MethodGet, "/users/me", token, "", nil)
	assert.Equal(t, "ann@x.com", me["email"])
	assert.Equal(t, "", me["profileImage"])
}

// brokenStorage fails every write and counts the attempts.
type brokenStorage struct {
	*storage.DiskStore
	puts atomic.Int32
}

func (b *brokenStorage) Put(context.Context, string, string, int64, io.Reader) error {
	b.puts.Add(1)
	return errors.New("disk full")
}

func TestUpdateProfile_StorageFailureLeavesRecordUnchanged(t *testing.T) {
	var broken *brokenStorage
	env := newTestEnvWithStorage(t, func(d *storage.DiskStore) storage.StorageService {
		broken = &brokenStorage{DiskStore: d}
		return broken
	})
	token := env.register(t, "Ann", "ann@x.com")

	res, body := env.updateProfile(t, token, map[string]string{"name": "New"}, pngFile("a.png", 32))
	require.Equal(t, http.StatusInternalServerError, res.StatusCode, body)
	assert.Equal(t, string(errs.KindUpstreamFailure), body["kind"])
	assert.EqualValues(t, errs.ErrFileStorageFailed, body["code"])
	assert.Equal(t, errs.TransientFailureMessage, body["message"])
	assert.EqualValues(t, 1, broken.puts.Load())

	u, err := env.store.GetByEmail(context.Background(), "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name, "no field is applied when the attachment cannot be stored")
	assert.Empty(t, u.AvatarKey)
	assert.Empty(t, env.uploadedFiles(t))
}

func TestUpdateProfile_JSON(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Ann", "ann@x.com")

	res, body := env.do(t, http.MethodPut, "/users/profile", token, "application/json", strings.NewReader(`{"phone":"5550000000"}`))
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Equal(t, "5550000000", body["phone"])
	assert.Equal(t, "Ann", body["name"])

	res, body = env.do(t, http.MethodPut, "/users/profile", token, "application/json", strings.NewReader(`{"name":""}`))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.EqualValues(t, errs.ErrInvalidName, body["code"])
}

func TestUpdateProfile_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.updateProfile(t, "", map[string]string{"name": "X"}, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestUpdateProfile_MultipleFilesRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Ann", "ann@x.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"a.png", "b.png"} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, AvatarField, name))
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte("x"))
	}
	require.NoError(t, mw.Close())

	res, body := env.do(t, http.MethodPut, "/users/profile", token, mw.FormDataContentType(), &buf)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.EqualValues(t, errs.ErrInvalidParams, body["code"])
}

func TestHealthAndBanner(t *testing.T) {
	env := newTestEnv(t)

	res, body := env.do(t, http.MethodGet, "/health", "", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, configs.EnvDevelopment, body["environment"])
	assert.NotEmpty(t, body["timestamp"])

	res, _ = env.do(t, http.MethodGet, "/", "", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestUploads_HidesDirectoryListing(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.do(t, http.MethodGet, "/uploads/", "", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestToCustomError(t *testing.T) {
	assert.Equal(t, errs.ErrEmailTaken, toCustomError(user.ErrEmailTaken).Code)
	assert.Equal(t, errs.ErrInvalidCredentials, toCustomError(fmt.Errorf("%w: x", user.ErrInvalidCredentials)).Code)
	assert.Equal(t, errs.ErrUnauthorized, toCustomError(user.ErrNotFound).Code)
	assert.Equal(t, errs.ErrInvalidPhone, toCustomError(errs.NewError(errs.ErrInvalidPhone)).Code)

	upstream := toCustomError(io.ErrUnexpectedEOF)
	assert.Equal(t, errs.ErrStoreUnavailable, upstream.Code)
	assert.Equal(t, errs.TransientFailureMessage, upstream.Message)
}
