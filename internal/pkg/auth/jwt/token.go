package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

const (
	// UserIdentityExpiration is the default lifetime of a session token.
	UserIdentityExpiration = 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "popx-api"
)

var (
	// ErrTokenExpired is returned when the embedded expiry lies in the past.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenMalformed is returned when the token cannot be parsed or lacks required claims.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenSignature is returned when the signature does not match the payload.
	ErrTokenSignature = errors.New("token signature invalid")
)

// signingMethods is the only algorithm set a token may declare.
var signingMethods = []string{jwt.SigningMethodHS256.Alg()}

// GenerateToken signs a token for userID valid from issuedAt for duration.
func GenerateToken(userID string, secretKey []byte, issuedAt time.Time, duration time.Duration) (string, error) {
	payload := &Payload{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			ExpiresAt: issuedAt.Add(duration).Unix(),
			IssuedAt:  issuedAt.Unix(),
			Issuer:    TokenIssuer,
		},
		ID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString(secretKey)
}

// ParseToken parses tokenString and checks it against secretKey as of now.
//
// Errors are checked in a fixed order: an unparseable token is ErrTokenMalformed;
// a parseable token past its expiry is ErrTokenExpired whatever its signature;
// otherwise a signature mismatch is ErrTokenSignature.
func ParseToken(tokenString string, secretKey []byte, now time.Time) (*Payload, error) {
	claims := &Payload{}

	parser := &jwt.Parser{
		ValidMethods:         signingMethods,
		SkipClaimsValidation: true,
	}

	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if !errors.As(err, &ve) || ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return nil, ErrTokenMalformed
		}
		if claims.ExpiresAt != 0 && isExpired(claims, now) {
			return nil, ErrTokenExpired
		}
		if ve.Errors&(jwt.ValidationErrorSignatureInvalid|jwt.ValidationErrorUnverifiable) != 0 {
			return nil, ErrTokenSignature
		}
		return nil, ErrTokenMalformed
	}

	if claims.ExpiresAt == 0 || claims.ID == "" {
		return nil, ErrTokenMalformed
	}

	if isExpired(claims, now) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

func isExpired(claims *Payload, now time.Time) bool {
	return now.Unix() > claims.ExpiresAt
}

// TokenService issues and verifies session tokens with a server-held secret.
// It keeps no per-token state: validity is decided by signature and expiry alone,
// so a token stays valid until it expires even after the holder logs out.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. A non-positive ttl selects UserIdentityExpiration.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = UserIdentityExpiration
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of s that reads the current time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	c := *s
	c.now = now
	return &c
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new token for the identity id.
func (s *TokenService) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("issue token: empty identity id")
	}
	return GenerateToken(userID, s.secret, s.now(), s.ttl)
}

// Verify checks tokenString and returns the identity id it was issued for.
func (s *TokenService) Verify(tokenString string) (string, error) {
	payload, err := ParseToken(tokenString, s.secret, s.now())
	if err != nil {
		return "", err
	}
	return payload.ID, nil
}
