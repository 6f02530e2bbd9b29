package session

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/game/dice"
	"github.com/cory-johannsen/questweaver/internal/game/state"
	"github.com/cory-johannsen/questweaver/internal/narrator"
	"github.com/cory-johannsen/questweaver/internal/storage"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Manager tracks all open sessions.
// All methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session // id → session

	deps   *deps
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates an empty session Manager.
//
// Precondition: n, roller, persister, seed and logger must be non-nil.
func NewManager(n narrator.Narrator, roller *dice.Roller, persister *storage.Persister, seed SeedFunc, opts Options, logger *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions: make(map[string]*Session),
		deps: &deps{
			narrator:  n,
			roller:    roller,
			persister: persister,
			seed:      seed,
			opts:      opts,
			logger:    logger,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// ValidID reports whether id is usable as a session id.
func ValidID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Create opens a session under a fresh random id.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	return m.Open(ctx, uuid.NewString())
}

// Open returns the session for id, restoring it from persistence or seeding a
// new game when nothing is stored. Opening an open session returns it as is.
//
// Precondition: id must satisfy ValidID.
// Postcondition: Returns the open session, or ErrInvalidSessionID, or a seed error.
// A restored game caught mid enemy phase resumes that phase.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	if s, err := m.Get(id); err == nil {
		return s, nil
	}

	restored := m.deps.persister.Load(ctx, id)
	var initial state.GameState
	if restored != nil {
		initial = *restored
	} else {
		seeded, err := m.deps.seed()
		if err != nil {
			return nil, fmt.Errorf("seeding session %s: %w", id, err)
		}
		initial = seeded
	}

	m.mu.Lock()
	if s, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		return s, nil
	}
	s := newSession(m.ctx, id, m.deps, initial)
	m.sessions[id] = s
	m.mu.Unlock()

	s.opMu.Lock()
	if restored == nil {
		s.commit(ctx, initial)
	}
	if initial.Encounter != nil && !initial.Status.Terminal() && !state.IsPlayerTurn(initial) {
		s.startEnemyPhase()
	}
	s.opMu.Unlock()

	m.deps.logger.Info("session opened",
		zap.String("session", id),
		zap.Bool("restored", restored != nil),
	)
	return s, nil
}

// Get returns the open session for id.
//
// Postcondition: Returns ErrUnknownSession if id is not open.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	return s, nil
}

// Close removes the session from memory after its enemy phase stops.
// The persisted game is kept.
//
// Postcondition: Returns ErrUnknownSession if id is not open.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.close()
	m.deps.logger.Info("session closed", zap.String("session", id))
	return nil
}

// IDs returns the open session ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SessionCount returns the number of open sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops every session's background work and closes all sessions.
func (m *Manager) Shutdown() {
	m.cancel()

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	m.deps.logger.Info("session manager stopped", zap.Int("closed", len(sessions)))
}
