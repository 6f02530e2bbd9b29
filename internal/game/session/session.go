// Package session runs play sessions: it sequences player actions, narration,
// enemy turns and persistence around the pure state reducer.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/game/character"
	"github.com/cory-johannsen/questweaver/internal/game/dice"
	"github.com/cory-johannsen/questweaver/internal/game/state"
	"github.com/cory-johannsen/questweaver/internal/narrator"
	"github.com/cory-johannsen/questweaver/internal/storage"
)

var (
	// ErrNotPlayerTurn is returned when the player acts outside their turn.
	ErrNotPlayerTurn = errors.New("session: not the player's turn")
	// ErrGameOver is returned for actions after victory or defeat.
	ErrGameOver = errors.New("session: game is over")
	// ErrAbilityOnCooldown is returned when a cooling ability is used.
	ErrAbilityOnCooldown = errors.New("session: ability on cooldown")
	// ErrEnemyTurnInProgress is returned while the enemy phase holds the session.
	ErrEnemyTurnInProgress = errors.New("session: enemy turn in progress")
	// ErrInvalidAction is returned for malformed player actions.
	ErrInvalidAction = errors.New("session: invalid action")
	// ErrUnknownSession is returned by Manager.Get for an id that is not open,
	// and by every operation on a closed Session.
	ErrUnknownSession = errors.New("session: unknown session")
	// ErrInvalidSessionID is returned for ids outside [A-Za-z0-9_-]{1,64}.
	ErrInvalidSessionID = errors.New("session: invalid session id")
)

// SeedFunc produces the starting snapshot of a new game.
type SeedFunc func() (state.GameState, error)

// Options tunes the enemy phase.
type Options struct {
	// EnemyTurnDelay is the pause before each living enemy acts.
	EnemyTurnDelay time.Duration
	// EnemyAttackModifier is added to every enemy d20 attack roll.
	EnemyAttackModifier int
}

// deps are shared by every session of a Manager.
type deps struct {
	narrator  narrator.Narrator
	roller    *dice.Roller
	persister *storage.Persister
	seed      SeedFunc
	opts      Options
	logger    *zap.Logger
}

// Session is one game in progress. All methods are safe for concurrent use.
//
// Mutations are serialised by opMu, so at most one narration request is in
// flight per session. mu only guards the current snapshot.
type Session struct {
	id   string
	deps *deps

	opMu sync.Mutex
	// closed is guarded by opMu.
	closed bool

	mu      sync.RWMutex
	current state.GameState

	enemyTurn atomic.Bool
	hub       *hub

	// ctx outlives individual requests and drives background enemy phases.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

func newSession(parent context.Context, id string, d *deps, initial state.GameState) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:      id,
		deps:    d,
		current: initial,
		hub:     newHub(),
		ctx:     ctx,
		cancel:  cancel,
		logger:  d.logger.With(zap.String("session", id)),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() state.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// EnemyTurnInProgress reports whether the enemy phase is running.
func (s *Session) EnemyTurnInProgress() bool {
	return s.enemyTurn.Load()
}

// Subscribe streams a snapshot after every mutation, starting with the
// current one. Slow subscribers drop frames.
//
// Postcondition: cancel is idempotent and closes the channel. The channel is
// also closed when the session closes.
func (s *Session) Subscribe() (<-chan state.GameState, func()) {
	ch, cancel := s.hub.subscribe(s.Snapshot())
	s.logger.Debug("subscriber attached", zap.Int("subscribers", s.hub.len()))
	return ch, cancel
}

// PlayerAction resolves one player command and, when the turn passes to the
// enemies, starts the enemy phase in the background.
//
// Precondition: ctx bounds the narration call.
// Postcondition: Returns the snapshot after the player's step, or
// ErrEnemyTurnInProgress, ErrGameOver, ErrNotPlayerTurn, ErrAbilityOnCooldown,
// ErrInvalidAction, ErrUnknownSession once closed, narrator.ErrBadRequest or
// a context error. On a context error the action and roll messages are kept.
func (s *Session) PlayerAction(ctx context.Context, a Action) (state.GameState, error) {
	if s.enemyTurn.Load() {
		return state.GameState{}, ErrEnemyTurnInProgress
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.closed {
		return state.GameState{}, s.errClosed()
	}

	gs := s.Snapshot()
	if gs.Status.Terminal() {
		return state.GameState{}, ErrGameOver
	}
	if !state.IsPlayerTurn(gs) {
		return state.GameState{}, ErrNotPlayerTurn
	}
	label, err := resolveAction(gs.Character, a)
	if err != nil {
		return state.GameState{}, err
	}

	gs = state.AppendMessage(gs, state.Message{
		Type:    state.MessageAction,
		Content: label,
		Sender:  state.SenderPlayer,
	})

	var summary *narrator.RollSummary
	if rollsForAction(a.Type) {
		roll := s.deps.roller.RollD20(character.Modifier(gs.Character.Stats.Might))
		gs = state.AppendMessage(gs, state.Message{
			Type:       state.MessageRoll,
			Content:    fmt.Sprintf("%s rolls to hit...", gs.Character.Name),
			Sender:     state.SenderPlayer,
			RollResult: &roll,
		})
		summary = narrator.SummarizeRoll(roll)
	}
	s.set(gs)

	actionText := label
	if a.Type == narrator.ActionCustom {
		actionText = a.Text
	}
	resp, err := s.deps.narrator.Narrate(ctx, narrator.Request{
		GameState:  &gs,
		Action:     actionText,
		RollResult: summary,
		Kind:       a.Type,
		AbilityID:  a.AbilityID,
	})
	if err != nil {
		s.persist(ctx, gs)
		return state.GameState{}, fmt.Errorf("narrating player action: %w", err)
	}
	if a.Type == narrator.ActionAbility && resp.Delta.AbilityUsed == nil {
		id := a.AbilityID
		resp.Delta.AbilityUsed = &id
	}

	gs = s.resolve(gs, resp)
	if resp.Delta.AdvancesTurn() && state.IsPlayerTurn(gs) {
		// The turn wrapped straight back to the player.
		gs = state.TickCooldowns(gs)
	}
	gs = s.commit(ctx, gs)

	s.logger.Debug("player action resolved",
		zap.String("type", string(a.Type)),
		zap.String("ability", a.AbilityID),
		zap.String("status", string(gs.Status)),
		zap.String("current_turn", currentTurn(gs)),
	)

	if !gs.Status.Terminal() && gs.Encounter != nil && !state.IsPlayerTurn(gs) {
		s.startEnemyPhase()
	}
	return gs, nil
}

// Say sends free text to the narrator as a custom action.
func (s *Session) Say(ctx context.Context, text string) (state.GameState, error) {
	return s.PlayerAction(ctx, Action{Type: narrator.ActionCustom, Text: text})
}

// Roll is the manual dice roller. It records the result in the history
// without touching the turn.
//
// Postcondition: Returns a wrapped dice.ErrInvalidNotation for bad notation.
func (s *Session) Roll(ctx context.Context, notation string) (dice.Roll, state.GameState, error) {
	roll, err := s.deps.roller.Roll(notation)
	if err != nil {
		return dice.Roll{}, state.GameState{}, err
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.closed {
		return dice.Roll{}, state.GameState{}, s.errClosed()
	}

	gs := state.AppendMessage(s.Snapshot(), state.Message{
		Type:       state.MessageRoll,
		Content:    "Manual roll: " + roll.Dice,
		Sender:     state.SenderPlayer,
		RollResult: &roll,
	})
	return roll, s.commit(ctx, gs), nil
}

// Reset purges the persisted game and starts over from the seed.
//
// Postcondition: Returns ErrEnemyTurnInProgress while enemies are acting.
func (s *Session) Reset(ctx context.Context) (state.GameState, error) {
	if s.enemyTurn.Load() {
		return state.GameState{}, ErrEnemyTurnInProgress
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.closed {
		return state.GameState{}, s.errClosed()
	}

	gs, err := s.deps.seed()
	if err != nil {
		return state.GameState{}, fmt.Errorf("seeding session %s: %w", s.id, err)
	}
	s.deps.persister.Clear(ctx, s.id)
	s.logger.Info("session reset")
	return s.commit(ctx, gs), nil
}

// RunEnemyTurns resolves enemy slots until the player's turn returns or the
// game ends. It is the synchronous form of the phase PlayerAction starts.
//
// Postcondition: Returns ErrEnemyTurnInProgress if a phase is already running,
// ErrUnknownSession once closed, or ctx's error when cancelled before the
// player's turn returns.
func (s *Session) RunEnemyTurns(ctx context.Context) (state.GameState, error) {
	if !s.enemyTurn.CompareAndSwap(false, true) {
		return state.GameState{}, ErrEnemyTurnInProgress
	}
	defer s.enemyTurn.Store(false)
	return s.enemyPhase(ctx)
}

// Wait blocks until any background enemy phase has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// startEnemyPhase runs the enemy phase on the session context.
//
// Precondition: opMu is held, so close cannot be waiting on wg yet.
func (s *Session) startEnemyPhase() {
	if s.closed {
		return
	}
	if !s.enemyTurn.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.enemyTurn.Store(false)
		if _, err := s.enemyPhase(s.ctx); err != nil {
			s.logger.Debug("enemy phase stopped", zap.Error(err))
		}
	}()
}

// enemyPhase must only run while the enemyTurn latch is held.
//
// Postcondition: Once ctx is done or the session is closed, no further enemy
// step is narrated or committed and the error is returned.
func (s *Session) enemyPhase(ctx context.Context) (state.GameState, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	gs := s.Snapshot()
	if s.closed {
		return gs, s.errClosed()
	}
	if gs.Encounter == nil {
		return gs, nil
	}
	// A turn order without the player would never hand the turn back.
	limit := len(gs.Encounter.TurnOrder)
	for step := 0; ; step++ {
		if gs.Status.Terminal() {
			return gs, nil
		}
		if state.IsPlayerTurn(gs) {
			gs = state.TickCooldowns(gs)
			return s.commit(ctx, gs), nil
		}
		if err := ctx.Err(); err != nil {
			return gs, err
		}
		if step >= limit {
			s.logger.Error("turn order never returns to the player",
				zap.Strings("turn_order", gs.Encounter.TurnOrder),
			)
			return gs, nil
		}

		enemyID := gs.Encounter.CurrentTurn
		enemy, ok := gs.Encounter.Enemy(enemyID)
		if !ok || enemy.IsDefeated() {
			gs = s.commit(ctx, state.AdvanceTurn(gs))
			continue
		}

		pause(ctx, s.deps.opts.EnemyTurnDelay)
		if err := ctx.Err(); err != nil {
			return gs, err
		}
		next, err := s.enemyStep(ctx, gs, enemy)
		if err != nil {
			return gs, err
		}
		gs = next
	}
}

// enemyStep rolls, narrates and commits one enemy's turn. A cancelled ctx
// restores gs as the current snapshot and commits nothing.
func (s *Session) enemyStep(ctx context.Context, before state.GameState, enemy state.Enemy) (state.GameState, error) {
	roll := s.deps.roller.RollD20(s.deps.opts.EnemyAttackModifier)
	gs := state.AppendMessage(before, state.Message{
		Type:       state.MessageRoll,
		Content:    fmt.Sprintf("%s attacks...", enemy.Name),
		Sender:     state.SenderDM,
		RollResult: &roll,
	})
	s.set(gs)

	resp, err := s.deps.narrator.Narrate(ctx, narrator.Request{
		GameState:   &gs,
		RollResult:  narrator.SummarizeRoll(roll),
		IsEnemyTurn: true,
		EnemyID:     enemy.ID,
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.set(before)
		return before, ctxErr
	}
	if err != nil {
		s.logger.Warn("enemy narration failed, using fallback",
			zap.String("enemy_id", enemy.ID),
			zap.Error(err),
		)
		resp = narrator.Fallback()
	}

	turnBefore := gs.Encounter.CurrentTurn
	gs = s.resolve(gs, resp)
	if gs.Encounter.CurrentTurn == turnBefore && !gs.Status.Terminal() {
		gs = state.AdvanceTurn(gs)
	}

	s.logger.Debug("enemy turn resolved",
		zap.String("enemy_id", enemy.ID),
		zap.Int("roll", roll.Kept()),
		zap.Int("player_hp", gs.Character.HP.Current),
	)
	return s.commit(ctx, gs), nil
}

// resolve appends the narrative and applies the delta.
func (s *Session) resolve(gs state.GameState, resp narrator.Response) state.GameState {
	out, err := state.ApplyDelta(gs, resp.Delta)
	if err != nil {
		s.logger.Warn("delta partially applied", zap.Error(err))
	}
	return state.AppendMessage(out, state.Message{
		Type:    state.MessageNarrative,
		Content: resp.Narrative,
		Sender:  state.SenderDM,
	})
}

// commit persists gs, makes the stamped copy current and publishes it.
func (s *Session) commit(ctx context.Context, gs state.GameState) state.GameState {
	gs = s.persist(ctx, gs)
	s.set(gs)
	return gs
}

func (s *Session) persist(ctx context.Context, gs state.GameState) state.GameState {
	return s.deps.persister.Save(context.WithoutCancel(ctx), s.id, gs)
}

func (s *Session) set(gs state.GameState) {
	s.mu.Lock()
	s.current = gs.Clone()
	s.mu.Unlock()

	if dropped := s.hub.publish(gs); dropped > 0 {
		s.logger.Debug("subscribers dropped snapshot", zap.Int("dropped", dropped))
	}
}

// close stops background work and disconnects subscribers. An operation in
// flight finishes first; nothing is narrated or persisted after close returns.
func (s *Session) close() {
	s.cancel()
	s.opMu.Lock()
	s.closed = true
	s.opMu.Unlock()
	s.wg.Wait()
	s.hub.close()
}

func (s *Session) errClosed() error {
	return fmt.Errorf("%w: %q closed", ErrUnknownSession, s.id)
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func currentTurn(gs state.GameState) string {
	if gs.Encounter == nil {
		return ""
	}
	return gs.Encounter.CurrentTurn
}
