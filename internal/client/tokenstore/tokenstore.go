/*
Package tokenstore persists the client's bearer token between runs.

The token is the only durable client state: its absence at startup means "signed out".
SQLiteStore keeps it in a single-row table; Memory keeps it for the life of the process.
*/
package tokenstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"popx/internal/pkg/logx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store loads, saves and clears the persisted token.
// Load returns an empty string and no error when nothing is stored.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// SQLiteStore is a Store backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if len(results) > 0 {
		logx.Debug("token store migrations applied", "count", len(results))
	}
	return nil
}

// Load returns the stored token.
func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM session WHERE id = 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// Save replaces the stored token. Saving an empty token clears the store.
func (s *SQLiteStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, saved_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at`, token)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear removes the stored token.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.Mutex
	token string
}

var _ Store = (*Memory)(nil)

// NewMemory returns a Memory store, optionally seeded with token.
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

// Load returns the held token.
func (m *Memory) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save replaces the held token. Saving an empty token clears it.
func (m *Memory) Save(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// Clear forgets the held token.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
