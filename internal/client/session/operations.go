package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"popx/internal/app/user"
	"popx/internal/pkg/logx"
)

const avatarField = "profileImage"

var errNoToken = errors.New("no session token")

// Registration holds the fields sent to create an account.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Attachment is an image to upload with a profile update.
// An empty ContentType is derived from the file extension.
type Attachment struct {
	FileName    string
	ContentType string
	Data        io.Reader
}

// ProfileUpdate lists the fields to change. Absent fields are not sent and stay as they are.
type ProfileUpdate struct {
	Name   user.Optional[string]
	Email  user.Optional[string]
	Phone  user.Optional[string]
	Avatar *Attachment
}

// sent identifies the session an authenticated request was sent under.
type sent struct {
	token string
	epoch uint64
}

type response struct {
	status int
	body   []byte

	// purged is set when a 401 ended the session that sent the request.
	purged bool
}

// message returns the server's error message, or fallback when it sent none.
func (r *response) message(fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.body, &body); err == nil {
		if msg := strings.TrimSpace(body.Message); msg != "" {
			return msg
		}
	}
	return fallback
}

func (c *Client) newRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Request, error) {
	r, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Accept", "application/json")
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r, nil
}

func (c *Client) do(r *http.Request) (*response, error) {
	res, err := c.http.Do(r)
	if err != nil {
		logx.Debug("session: request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return &response{status: res.StatusCode, body: body}, nil
}

// attachAuth sets the bearer header from the current session and reports the token
// and epoch it used.
func (c *Client) attachAuth(r *http.Request) (string, uint64) {
	c.mu.Lock()
	token, epoch := c.state.Token, c.epoch
	c.mu.Unlock()

	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return token, epoch
}

// authCall sends an authenticated request. A 401 purges the session that sent it.
func (c *Client) authCall(ctx context.Context, method, path, contentType string, body io.Reader) (*response, sent, error) {
	r, err := c.newRequest(ctx, method, path, contentType, body)
	if err != nil {
		return nil, sent{}, err
	}

	var s sent
	s.token, s.epoch = c.attachAuth(r)
	if s.token == "" {
		return nil, s, errNoToken
	}

	res, err := c.do(r)
	if err != nil {
		return nil, s, err
	}
	if res.status == http.StatusUnauthorized {
		res.purged = c.purge(s.token, res.message(MsgSignInAgain))
	}
	return res, s, nil
}

func (c *Client) postJSON(ctx context.Context, path string, v any) (*response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r, err := c.newRequest(ctx, http.MethodPost, path, "application/json", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return c.do(r)
}

// failMutation ends a mutation with msg, unless the session changed meanwhile. A login
// that adopted its token in between counts as a change, so a failure never lands on it.
func (c *Client) failMutation(start sent, msg string) Outcome {
	applied := c.apply(start, func(s State) State {
		s.Loading = false
		s.Error = msg
		return s
	})
	if !applied {
		return fail(MsgSessionChanged)
	}
	return fail(msg)
}

// Register creates an account, persists the returned token and fetches the identity.
func (c *Client) Register(ctx context.Context, reg Registration) Outcome {
	return c.authenticate(ctx, "/users/register", reg, MsgRegisterFailed)
}

// Login signs in with email and password. On failure the server's message is passed through,
// which is the same for an unknown email and a wrong password.
func (c *Client) Login(ctx context.Context, email, password string) Outcome {
	creds := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}
	return c.authenticate(ctx, "/users/login", creds, MsgLoginFailed)
}

func (c *Client) authenticate(ctx context.Context, path string, payload any, fallback string) Outcome {
	start := c.begin()

	res, err := c.postJSON(ctx, path, payload)
	if err != nil {
		return c.failMutation(start, MsgNetwork)
	}
	if res.status != http.StatusOK && res.status != http.StatusCreated {
		return c.failMutation(start, res.message(fallback))
	}

	var grant struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(res.body, &grant); err != nil || grant.Token == "" {
		return c.failMutation(start, fallback)
	}

	if !c.adoptToken(ctx, start.epoch, grant.Token) {
		return fail(MsgSessionChanged)
	}
	return c.fetchIdentity(ctx)
}

// FetchIdentity reloads the identity for the persisted token.
// Any failure is treated as an invalid session and purges it.
func (c *Client) FetchIdentity(ctx context.Context) Outcome {
	return c.fetchIdentity(ctx)
}

func (c *Client) fetchIdentity(ctx context.Context) Outcome {
	res, s, err := c.authCall(ctx, http.MethodGet, "/users/me", "", nil)
	switch {
	case errors.Is(err, errNoToken):
		c.purge("", MsgNotAuthenticated)
		return fail(MsgNotAuthenticated)
	case err != nil:
		return c.purgeOutcome(s.token, MsgNetwork)
	case res.status == http.StatusUnauthorized:
		if !res.purged {
			return fail(MsgSessionChanged)
		}
		return fail(res.message(MsgSignInAgain))
	case res.status != http.StatusOK:
		return c.purgeOutcome(s.token, res.message(MsgSignInAgain))
	}

	var id Identity
	if err := json.Unmarshal(res.body, &id); err != nil || id.ID == "" {
		return c.purgeOutcome(s.token, MsgSignInAgain)
	}

	if !c.commitIdentity(s.epoch, s.token, id) {
		return fail(MsgSessionChanged)
	}
	return ok()
}

func (c *Client) purgeOutcome(token, msg string) Outcome {
	if !c.purge(token, msg) {
		return fail(MsgSessionChanged)
	}
	return fail(msg)
}

// UpdateProfile sends the present fields and optional avatar, then installs the record the
// server returns. The client does not merge fields itself.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) Outcome {
	start := c.begin()

	body, contentType, err := update.encode()
	if err != nil {
		logx.Debug("session: failed to encode profile update", "error", err.Error())
		return c.failMutation(start, MsgUpdateFailed)
	}

	res, s, err := c.authCall(ctx, http.MethodPut, "/users/profile", contentType, body)
	switch {
	case errors.Is(err, errNoToken):
		return c.failMutation(start, MsgNotAuthenticated)
	case err != nil:
		return c.failMutation(start, MsgNetwork)
	case res.status == http.StatusUnauthorized:
		if !res.purged {
			return fail(MsgSessionChanged)
		}
		return fail(res.message(MsgSignInAgain))
	case res.status != http.StatusOK:
		return c.failMutation(start, res.message(MsgUpdateFailed))
	}

	var id Identity
	if err := json.Unmarshal(res.body, &id); err != nil || id.ID == "" {
		return c.failMutation(start, MsgUpdateFailed)
	}

	if !c.commitIdentity(start.epoch, s.token, id) {
		return fail(MsgSessionChanged)
	}
	return ok()
}

func (u ProfileUpdate) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct {
		key   string
		value user.Optional[string]
	}{
		{"name", u.Name},
		{"email", u.Email},
		{"phone", u.Phone},
	}
	for _, f := range fields {
		if v, ok := f.value.Get(); ok {
			if err := mw.WriteField(f.key, v); err != nil {
				return nil, "", err
			}
		}
	}

	if u.Avatar != nil {
		contentType := u.Avatar.ContentType
		if contentType == "" {
			contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(u.Avatar.FileName)))
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, avatarField, filepath.Base(u.Avatar.FileName)))
		h.Set("Content-Type", contentType)

		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, u.Avatar.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
