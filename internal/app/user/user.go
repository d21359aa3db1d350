/*
Package user contains the identity model and the account logic built on it.

It defines the User record owned by the credential store, the optional-field patch used
for partial profile updates, the Store contract every credential store implements, and
the Service that registers, authenticates, reads and updates identities.
*/
package user

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no identity matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when an email is already owned by another identity.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for an unknown email and for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is the durable record of one registered account.
// ID is assigned at creation and never changes. PasswordHash never leaves the server.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	AvatarKey    string
	PasswordHash string `json:"-"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasAvatar reports whether an avatar file is referenced.
func (u *User) HasAvatar() bool {
	return u.AvatarKey != ""
}

// NormalizeEmail trims and lower-cases an email address for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
