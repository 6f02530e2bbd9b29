// Package memory provides an in-process BlobStore.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cory-johannsen/questweaver/internal/storage"
)

// Store keeps blobs in a map. The zero value is not usable; call New.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Get returns a copy of the blob under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Put stores a copy of data under key.
func (s *Store) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Len returns the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
