package user

import "context"

// Store is the credential store contract.
//
// Email uniqueness is enforced by the store itself: Create and Update return
// ErrEmailTaken instead of writing a duplicate. Update applies the whole patch or
// nothing and returns the record as stored afterwards.
type Store interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, patch ProfilePatch) (*User, error)
}
