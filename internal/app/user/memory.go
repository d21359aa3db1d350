package user

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a Store kept in process memory. It backs tests and
// DATABASE_URL=memory development runs; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// Create stores u. The caller assigns the id.
func (s *MemoryStore) Create(_ context.Context, u *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := NormalizeEmail(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return nil, ErrEmailTaken
	}

	rec := *u
	rec.Email = email
	now := s.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	s.byID[rec.ID] = rec
	s.byEmail[email] = rec.ID

	out := rec
	return &out, nil
}

// GetByID returns the identity with the given id.
func (s *MemoryStore) GetByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// GetByEmail returns the identity owning email.
func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	rec := s.byID[id]
	return &rec, nil
}

// Update merges patch into the identity under a single lock.
func (s *MemoryStore) Update(_ context.Context, id string, patch ProfilePatch) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	patch = patch.Normalized()
	if email, ok := patch.Email.Get(); ok && email != rec.Email {
		if _, taken := s.byEmail[email]; taken {
			return nil, ErrEmailTaken
		}
	}

	updated := patch.Apply(rec, s.now())
	if updated.Email != rec.Email {
		delete(s.byEmail, rec.Email)
		s.byEmail[updated.Email] = id
	}
	s.byID[id] = updated

	out := updated
	return &out, nil
}
