package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims carried by a popx session token.
//
// The token binds nothing but the identity id and its validity window. Profile fields
// are not carried; callers re-read the current identity from the credential store.
type Payload struct {
	// StandardClaims carries exp, iat, iss and jti. The jti identifies the token
	// individually and is the key a future revocation list would use.
	jwt.StandardClaims

	// ID is the identity id of the token holder.
	ID string `json:"id"`
}
