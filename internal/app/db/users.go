package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"popx/internal/app/user"
)

const userColumns = `id, name, email, phone, avatar_key, password_hash, created_at, updated_at`

// UserStore implements user.Store on PostgreSQL.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a UserStore over db.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

var _ user.Store = (*UserStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.AvatarKey, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts u and returns the stored row.
func (s *UserStore) Create(ctx context.Context, u *user.User) (*user.User, error) {
	q := `INSERT INTO users (id, name, email, phone, avatar_key, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, q, u.ID, u.Name, user.NormalizeEmail(u.Email), u.Phone, u.AvatarKey, u.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, user.ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// GetByID returns the user with the given id.
func (s *UserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.getOne(ctx, q, id)
}

// GetByEmail returns the user owning email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.getOne(ctx, q, user.NormalizeEmail(email))
}

func (s *UserStore) getOne(ctx context.Context, q string, arg any) (*user.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || IsInvalidText(err) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// Update applies patch in one statement. Absent fields are passed as NULL and kept by COALESCE.
func (s *UserStore) Update(ctx context.Context, id string, patch user.ProfilePatch) (*user.User, error) {
	patch = patch.Normalized()

	q := `UPDATE users SET
			name = COALESCE($2::text, name),
			email = COALESCE($3::text, email),
			phone = COALESCE($4::text, phone),
			avatar_key = COALESCE($5::text, avatar_key),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, q, id, patch.Name.Ptr(), patch.Email.Ptr(), patch.Phone.Ptr(), patch.AvatarKey.Ptr())
	u, err := scanUser(row)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), IsInvalidText(err):
			return nil, user.ErrNotFound
		case IsUniqueViolation(err):
			return nil, user.ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}
