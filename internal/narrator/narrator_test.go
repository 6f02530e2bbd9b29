package narrator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/questweaver/internal/game/character"
	"github.com/cory-johannsen/questweaver/internal/game/dice"
	"github.com/cory-johannsen/questweaver/internal/game/state"
	"github.com/cory-johannsen/questweaver/internal/narrator"
)

func sampleState() *state.GameState {
	return &state.GameState{
		Character: character.Character{
			ID: "player-1", Name: "Thorin Ironforge", Class: "Warrior", Level: 3,
			Stats: character.Stats{Might: 16, Agility: 12, Wit: 10, Heart: 14},
			HP:    character.Vital{Current: 28, Max: 35},
			Abilities: []character.Ability{
				{ID: "power-strike", Name: "Power Strike", Effect: "Big hit.", Cooldown: 2},
				{ID: "shield-bash", Name: "Shield Bash", Effect: "Stun.", Cooldown: 3, CurrentCooldown: 1},
			},
			Equipment: []character.Equipment{
				{ID: "longsword", Name: "Steel Longsword", Type: character.CategoryWeapon, Equipped: true},
				{ID: "potion", Name: "Healing Potion", Type: character.CategoryConsumable},
			},
		},
		Encounter: &state.Encounter{
			Name: "The Goblin Ambush",
			Enemies: []state.Enemy{
				{ID: "goblin-1", Name: "Goblin Scout", HP: character.Vital{Current: 12, Max: 12}, Threat: "Sneaky", Abilities: []string{"Sneak Attack", "Flee"}},
				{ID: "goblin-3", Name: "Goblin Brute", HP: character.Vital{Current: 0, Max: 18}, Abilities: []string{"Smash"}},
			},
			TurnOrder:   []string{"player-1", "goblin-1", "goblin-3"},
			CurrentTurn: "player-1",
			Round:       2,
		},
		History: []state.Message{
			{Content: "one", Sender: state.SenderDM},
			{Content: "two", Sender: state.SenderPlayer},
			{Content: "three", Sender: state.SenderSystem},
		},
		Status: state.StatusActive,
	}
}

func intPtr(v int) *int { return &v }

func TestValidate(t *testing.T) {
	gs := sampleState()
	assert.ErrorIs(t, narrator.Validate(narrator.Request{Action: "Attack"}), narrator.ErrBadRequest)
	assert.ErrorIs(t, narrator.Validate(narrator.Request{GameState: gs}), narrator.ErrBadRequest)
	assert.NoError(t, narrator.Validate(narrator.Request{GameState: gs, Action: "Attack"}))
	assert.NoError(t, narrator.Validate(narrator.Request{GameState: gs, IsEnemyTurn: true, EnemyID: "goblin-1"}))
}

func TestFallback(t *testing.T) {
	r := narrator.Fallback()
	assert.Equal(t, narrator.FallbackNarrative, r.Narrative)
	require.NotNil(t, r.Delta.TurnAdvance)
	assert.True(t, *r.Delta.TurnAdvance)
	assert.Nil(t, r.Delta.PlayerDamage)
	assert.Empty(t, r.Delta.EnemyDamage)
}

func TestSanitize_FillsDefaults(t *testing.T) {
	r := narrator.Sanitize(narrator.Response{})
	assert.Equal(t, narrator.EmptyNarrative, r.Narrative)
	assert.True(t, r.Delta.AdvancesTurn())

	no := false
	kept := narrator.Sanitize(narrator.Response{Narrative: "x", Delta: state.Delta{TurnAdvance: &no}})
	assert.Equal(t, "x", kept.Narrative)
	assert.False(t, kept.Delta.AdvancesTurn())
}

func TestSummarizeRoll(t *testing.T) {
	s := narrator.SummarizeRoll(dice.FromResults("1d20", []int{15}, 3))
	assert.Equal(t, 15, s.Total)
	assert.Equal(t, 18, s.Kept())
	assert.Equal(t, "1d20", s.Dice)

	plain := narrator.SummarizeRoll(dice.FromResults("1d20", []int{9}, 0))
	assert.Nil(t, plain.ModifiedTotal)
	assert.Equal(t, 9, plain.Kept())
}

func TestResilient_PassesThroughSuccess(t *testing.T) {
	inner := narrator.Func(func(context.Context, narrator.Request) (narrator.Response, error) {
		return narrator.Response{Narrative: "Nice swing"}, nil
	})
	r := narrator.NewResilient(inner, zap.NewNop())
	resp, err := r.Narrate(context.Background(), narrator.Request{GameState: sampleState(), Action: "Attack"})
	require.NoError(t, err)
	assert.Equal(t, "Nice swing", resp.Narrative)
	assert.True(t, resp.Delta.AdvancesTurn())
}

func TestResilient_FallsBackAndLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calls := 0
	inner := narrator.Func(func(context.Context, narrator.Request) (narrator.Response, error) {
		calls++
		return narrator.Response{}, errors.New("upstream 503")
	})
	r := narrator.NewResilient(inner, zap.New(core))
	resp, err := r.Narrate(context.Background(), narrator.Request{GameState: sampleState(), Action: "Attack"})
	require.NoError(t, err)
	assert.Equal(t, narrator.Fallback(), resp)
	assert.Equal(t, 1, calls, "never retries")
	assert.Equal(t, 1, logs.Len())
}

func TestResilient_RejectsBadRequest(t *testing.T) {
	inner := narrator.Func(func(context.Context, narrator.Request) (narrator.Response, error) {
		t.Fatal("inner narrator must not be called")
		return narrator.Response{}, nil
	})
	_, err := narrator.NewResilient(inner, zap.NewNop()).Narrate(context.Background(), narrator.Request{})
	assert.ErrorIs(t, err, narrator.ErrBadRequest)
}

func TestResilient_ReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inner := narrator.Func(func(ctx context.Context, _ narrator.Request) (narrator.Response, error) {
		return narrator.Response{}, ctx.Err()
	})
	_, err := narrator.NewResilient(inner, zap.NewNop()).Narrate(ctx, narrator.Request{GameState: sampleState(), Action: "Attack"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResilient_ReportsUnknownEnemy(t *testing.T) {
	inner := narrator.Func(func(_ context.Context, req narrator.Request) (narrator.Response, error) {
		return narrator.Response{}, fmt.Errorf("enemy %q: %w", req.EnemyID, narrator.ErrUnknownEnemy)
	})
	req := narrator.Request{GameState: sampleState(), IsEnemyTurn: true, EnemyID: "dragon"}
	_, err := narrator.NewResilient(inner, zap.NewNop()).Narrate(context.Background(), req)
	assert.ErrorIs(t, err, narrator.ErrUnknownEnemy)
}
