// Package redis provides a Redis-backed BlobStore using go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/cory-johannsen/questweaver/internal/config"
	"github.com/cory-johannsen/questweaver/internal/storage"
)

// Store keeps each blob in a Redis string key, optionally expiring it.
type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

// Open connects to Redis and verifies the connection.
//
// Precondition: cfg.Addr must be a reachable "host:port".
// Postcondition: Returns a connected Store or a non-nil error. A zero ttl
// stores blobs without expiry.
func Open(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	return New(client, ttl), nil
}

// New wraps an existing client.
func New(client *goredis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get returns the blob under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, nil
}

// Put stores data under key, resetting the expiry.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
