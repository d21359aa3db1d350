package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service implements the account operations over a Store.
type Service struct {
	store Store
	cost  int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService creates a Service over store. bcryptCost of 0 selects bcrypt.DefaultCost.
func NewService(store Store, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store: store,
		cost:  bcryptCost,
	}
}

// Register validates r, hashes the password and creates the identity.
// A duplicate email yields ErrEmailTaken; invalid input yields a *errs.CustomError.
func (s *Service) Register(ctx context.Context, r Registration) (*User, error) {
	if verr := r.Validate(); verr != nil {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.Create(ctx, &User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(r.Name),
		Email:        NormalizeEmail(r.Email),
		Phone:        r.Phone,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

// Authenticate returns the identity for a matching email and password.
//
// An unknown email and a wrong password both return ErrInvalidCredentials, and both
// cost one bcrypt comparison, so neither the result nor the latency tells them apart.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, fmt.Errorf("%w: unknown email", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
	}

	return u, nil
}

// Get returns the current identity for id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateProfile validates and applies patch to the identity id.
// An empty patch returns the stored identity unchanged.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*User, error) {
	if verr := patch.Validate(); verr != nil {
		return nil, verr
	}

	if name, ok := patch.Name.Get(); ok {
		patch.Name = Some(strings.TrimSpace(name))
	}
	patch = patch.Normalized()

	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	u, err := s.store.Update(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, ErrEmailTaken):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("popx-placeholder-password"), s.cost)
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
