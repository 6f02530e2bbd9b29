// Package supabase provides a BlobStore on a Supabase table through PostgREST.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	supa "github.com/supabase-community/supabase-go"

	"github.com/cory-johannsen/questweaver/internal/config"
	"github.com/cory-johannsen/questweaver/internal/storage"
)

// row matches the game_states table.
type row struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store reads and writes rows of one Supabase table. The PostgREST client
// does not take a context; calls are bounded by the client's HTTP timeout.
type Store struct {
	client *supa.Client
	table  string
}

// Open creates a client for cfg.URL authenticated with cfg.Key.
//
// Precondition: cfg.URL, cfg.Key and cfg.Table must be non-empty.
func Open(cfg config.SupabaseConfig) (*Store, error) {
	if cfg.URL == "" || cfg.Key == "" || cfg.Table == "" {
		return nil, errors.New("supabase url, key and table are required")
	}
	client, err := supa.NewClient(cfg.URL, cfg.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &Store{client: client, table: cfg.Table}, nil
}

// Get returns the data column of the row for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []row
	_, err := s.client.From(s.table).Select("key,data", "", false).Eq("key", key).ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("supabase select %q: %w", key, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("game state %q: %w", key, storage.ErrNotFound)
	}
	return rows[0].Data, nil
}

// Put upserts the row for key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := row{Key: key, Data: json.RawMessage(data), UpdatedAt: time.Now().UTC()}
	if _, _, err := s.client.From(s.table).Upsert(r, "key", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("supabase upsert %q: %w", key, err)
	}
	return nil
}

// Delete removes the row for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := s.client.From(s.table).Delete("minimal", "").Eq("key", key).Execute(); err != nil {
		return fmt.Errorf("supabase delete %q: %w", key, err)
	}
	return nil
}
