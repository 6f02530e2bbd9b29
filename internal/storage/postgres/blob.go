package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/questweaver/internal/storage"
)

var _ storage.BlobStore = (*Store)(nil)

// Get returns the blob stored under key.
//
// Postcondition: Returns the JSON document, or an error wrapping
// storage.ErrNotFound when no row exists.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM game_states WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("game state %q: %w", key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("querying game state %q: %w", key, err)
	}
	return data, nil
}

// Put upserts data under key and bumps updated_at.
//
// Precondition: data must be a valid JSON document.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_states (key, data, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		key, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving game state %q: %w", key, err)
	}
	return nil
}

// Delete removes the row for key, if any.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM game_states WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting game state %q: %w", key, err)
	}
	return nil
}
