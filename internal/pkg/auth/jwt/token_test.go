package jwt

import (
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// flipSignatureChar changes the first character of the signature segment.
// Unlike the last character, the first one never sits on base64 padding bits.
func flipSignatureChar(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewTokenService(testSecret, time.Hour)

	tok, err := svc.Issue("user-123")
	require.NoError(t, err)

	got, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", got)
}

func TestIssue_EmbedsClaims(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := NewTokenService(testSecret, 2*time.Hour).WithClock(fixedClock(issuedAt))

	tok, err := svc.Issue("u1")
	require.NoError(t, err)

	payload, err := ParseToken(tok, []byte(testSecret), issuedAt)
	require.NoError(t, err)
	assert.Equal(t, "u1", payload.ID)
	assert.Equal(t, issuedAt.Unix(), payload.IssuedAt)
	assert.Equal(t, issuedAt.Add(2*time.Hour).Unix(), payload.ExpiresAt)
	assert.Equal(t, TokenIssuer, payload.Issuer)
	assert.NotEmpty(t, payload.Id)
}

func TestIssue_UniqueTokenIDs(t *testing.T) {
	t.Parallel()

	svc := NewTokenService(testSecret, time.Hour)
	a, err := svc.Issue("u1")
	require.NoError(t, err)
	b, err := svc.Issue("u1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIssue_EmptyID(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService(testSecret, time.Hour).Issue("")
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Now()
	svc := NewTokenService(testSecret, time.Minute).WithClock(fixedClock(issuedAt))
	tok, err := svc.Issue("u1")
	require.NoError(t, err)

	later := svc.WithClock(fixedClock(issuedAt.Add(2 * time.Minute)))
	_, err = later.Verify(tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_ExpiredWinsOverBadSignature(t *testing.T) {
	t.Parallel()

	issuedAt := time.Now()
	tok, err := GenerateToken("u1", []byte(testSecret), issuedAt, -time.Second)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte(testSecret), issuedAt)
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = ParseToken(tok, []byte("other-secret"), issuedAt)
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = ParseToken(flipSignatureChar(t, tok), []byte(testSecret), issuedAt)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_BadSignature(t *testing.T) {
	t.Parallel()

	svc := NewTokenService(testSecret, time.Hour)
	tok, err := svc.Issue("u1")
	require.NoError(t, err)

	_, err = svc.Verify(flipSignatureChar(t, tok))
	require.ErrorIs(t, err, ErrTokenSignature)

	_, err = NewTokenService("wrong-secret", time.Hour).Verify(tok)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestVerify_TamperedPayload(t *testing.T) {
	t.Parallel()

	svc := NewTokenService(testSecret, time.Hour)
	victim, err := svc.Issue("victim")
	require.NoError(t, err)
	attacker, err := svc.Issue("attacker")
	require.NoError(t, err)

	vp := strings.Split(victim, ".")
	ap := strings.Split(attacker, ".")
	forged := strings.Join([]string{ap[0], vp[1], ap[2]}, ".")

	_, err = svc.Verify(forged)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	svc := NewTokenService(testSecret, time.Hour)

	for _, tok := range []string{"", "not-a-token", "not.a.jwt", "a.b", "....."} {
		_, err := svc.Verify(tok)
		assert.ErrorIs(t, err, ErrTokenMalformed, "token %q", tok)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	payload := &Payload{
		StandardClaims: gojwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
		ID:             "u1",
	}
	unsigned, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, payload).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService(testSecret, time.Hour).Verify(unsigned)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestVerify_MissingClaims(t *testing.T) {
	t.Parallel()

	noExpiry, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, &Payload{ID: "u1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = NewTokenService(testSecret, time.Hour).Verify(noExpiry)
	require.ErrorIs(t, err, ErrTokenMalformed)

	noID, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, &Payload{
		StandardClaims: gojwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = NewTokenService(testSecret, time.Hour).Verify(noID)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UserIdentityExpiration, NewTokenService(testSecret, 0).TTL())
	assert.Equal(t, time.Minute, NewTokenService(testSecret, time.Minute).TTL())
}
