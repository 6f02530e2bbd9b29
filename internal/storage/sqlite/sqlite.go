// Package sqlite provides a file-backed BlobStore on the pure-Go SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/questweaver/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_states (
	key        TEXT    PRIMARY KEY,
	data       TEXT    NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store keeps blobs in a single SQLite table.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the table exists.
//
// Precondition: path must be non-empty.
// Postcondition: Returns a ready Store or a non-nil error.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create game_states table: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the blob under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM game_states WHERE key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("game state %q: %w", key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("querying game state %q: %w", key, err)
	}
	return []byte(data), nil
}

// Put upserts data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_states (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving game state %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM game_states WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting game state %q: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
