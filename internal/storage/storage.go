// Package storage persists game-state snapshots as opaque JSON blobs keyed by
// session. BlobStore implementations live in the subpackages; Persister adds
// the encoding and the degrade-on-failure policy on top.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/game/state"
)

// DefaultKey is the blob key prefix used when none is configured.
const DefaultKey = "questweaver-game-state"

// ErrNotFound is returned by BlobStore.Get when no blob exists for the key.
var ErrNotFound = errors.New("blob not found")

// BlobStore is a key-value store for serialized snapshots.
//
// Implementations MUST be safe for concurrent use.
type BlobStore interface {
	// Get returns the blob stored under key, or an error wrapping ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key, overwriting any previous blob.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the blob under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Persister saves and restores game states through a BlobStore. Failures are
// logged and swallowed so persistence never interrupts play.
type Persister struct {
	store  BlobStore
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// NewPersister wraps store. An empty prefix uses DefaultKey.
//
// Precondition: store and logger must not be nil.
func NewPersister(store BlobStore, prefix string, logger *zap.Logger) *Persister {
	if prefix == "" {
		prefix = DefaultKey
	}
	return &Persister{store: store, prefix: prefix, logger: logger, now: time.Now}
}

// Key returns the blob key for sessionID. An empty session id maps to the
// bare prefix, the single-player slot.
func (p *Persister) Key(sessionID string) string {
	if sessionID == "" {
		return p.prefix
	}
	return p.prefix + ":" + sessionID
}

// Load restores the saved state for sessionID.
//
// Postcondition: Returns nil when nothing is saved or the blob cannot be
// decoded; decode and store errors are logged.
func (p *Persister) Load(ctx context.Context, sessionID string) *state.GameState {
	key := p.Key(sessionID)
	data, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("loading game state", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		p.logger.Warn("decoding saved game state", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &gs
}

// Save stamps LastSaved on a copy of gs and writes it under sessionID.
//
// Postcondition: Returns the stamped copy. Store errors are logged and the
// caller's state is unaffected.
func (p *Persister) Save(ctx context.Context, sessionID string, gs state.GameState) state.GameState {
	out := gs.Clone()
	ts := p.now().UnixMilli()
	out.LastSaved = &ts

	key := p.Key(sessionID)
	data, err := json.Marshal(out)
	if err != nil {
		p.logger.Error("encoding game state", zap.String("key", key), zap.Error(err))
		return out
	}
	if err := p.store.Put(ctx, key, data); err != nil {
		p.logger.Warn("saving game state", zap.String("key", key), zap.Error(err))
	}
	return out
}

// Clear removes the saved state for sessionID.
func (p *Persister) Clear(ctx context.Context, sessionID string) {
	key := p.Key(sessionID)
	if err := p.store.Delete(ctx, key); err != nil {
		p.logger.Warn("clearing game state", zap.String("key", key), zap.Error(err))
	}
}
