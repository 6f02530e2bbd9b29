package offline_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/game/character"
	"github.com/cory-johannsen/questweaver/internal/game/dice"
	"github.com/cory-johannsen/questweaver/internal/game/state"
	"github.com/cory-johannsen/questweaver/internal/narrator"
	"github.com/cory-johannsen/questweaver/internal/narrator/offline"
)

// fixedSource always returns the same face (val+1).
type fixedSource struct {
	mu  sync.Mutex
	val int
}

func (f *fixedSource) Intn(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.val >= n {
		return n - 1
	}
	return f.val
}

func newOffline(face int) *offline.Narrator {
	return offline.New(dice.NewRoller(&fixedSource{val: face - 1}), zap.NewNop())
}

func gameState() *state.GameState {
	return &state.GameState{
		Character: character.Character{ID: "player-1", Name: "Thorin", HP: character.Vital{Current: 20, Max: 35}},
		Encounter: &state.Encounter{
			Enemies: []state.Enemy{
				{ID: "goblin-1", Name: "Goblin Scout", HP: character.Vital{Current: 0, Max: 12}},
				{ID: "goblin-2", Name: "Goblin Archer", HP: character.Vital{Current: 8, Max: 8}},
			},
			TurnOrder:   []string{"player-1", "goblin-1", "goblin-2"},
			CurrentTurn: "player-1",
			Round:       1,
		},
		Status: state.StatusActive,
	}
}

func roll(total int) *narrator.RollSummary { return &narrator.RollSummary{Total: total, Dice: "1d20"} }

func TestAttack_HitTargetsFirstLivingEnemy(t *testing.T) {
	n := newOffline(4)
	resp, err := n.Narrate(context.Background(), narrator.Request{
		GameState: gameState(), Action: "Attack", Kind: narrator.ActionAttack, RollResult: roll(12),
	})
	require.NoError(t, err)
	require.Len(t, resp.Delta.EnemyDamage, 1)
	assert.Equal(t, state.EnemyDamage{EnemyID: "goblin-2", Damage: 7}, resp.Delta.EnemyDamage[0])
	assert.Empty(t, resp.Delta.EnemyDefeated)
	assert.True(t, resp.Delta.AdvancesTurn())
	assert.Contains(t, resp.Narrative, "Goblin Archer takes 7 damage")
}

func TestAttack_KillingBlowMarksDefeated(t *testing.T) {
	n := newOffline(8)
	resp, err := n.Narrate(context.Background(), narrator.Request{
		GameState: gameState(), Action: "Attack", Kind: narrator.ActionAttack, RollResult: roll(19),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"goblin-2"}, resp.Delta.EnemyDefeated)
}

func TestAttack_Miss(t *testing.T) {
	resp, err := newOffline(8).Narrate(context.Background(), narrator.Request{
		GameState: gameState(), Action: "Attack", RollResult: roll(11),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Delta.EnemyDamage)
	assert.Contains(t, resp.Narrative, "goes wide")
}

func TestAbility_RallyHeals(t *testing.T) {
	resp, err := newOffline(3).Narrate(context.Background(), narrator.Request{
		GameState: gameState(), Action: "Uses Rally!", Kind: narrator.ActionAbility, AbilityID: "rally",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Delta.PlayerHealing)
	assert.Equal(t, 6, *resp.Delta.PlayerHealing)
	require.NotNil(t, resp.Delta.AbilityUsed)
	assert.Equal(t, "rally", *resp.Delta.AbilityUsed)
}

func TestAbility_StrikeUsesAbility(t *testing.T) {
	resp, err := newOffline(2).Narrate(context.Background(), narrator.Request{
		GameState: gameState(), Action: "Uses Power Strike!", AbilityID: "power-strike", RollResult: roll(15),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Delta.AbilityUsed)
	assert.Equal(t, "power-strike", *resp.Delta.AbilityUsed)
	require.Len(t, resp.Delta.EnemyDamage, 1)
	assert.Equal(t, 5, resp.Delta.EnemyDamage[0].Damage)
}

func TestEnemyTurn(t *testing.T) {
	n := newOffline(2)
	hit, err := n.Narrate(context.Background(), narrator.Request{
		GameState: gameState(), IsEnemyTurn: true, EnemyID: "goblin-2", RollResult: roll(14),
	})
	require.NoError(t, err)
	require.NotNil(t, hit.Delta.PlayerDamage)
	assert.Equal(t, 3, *hit.Delta.PlayerDamage)

	miss, err := n.Narrate(context.Background(), narrator.Request{
		GameState: gameState(), IsEnemyTurn: true, EnemyID: "goblin-2", RollResult: roll(13),
	})
	require.NoError(t, err)
	assert.Nil(t, miss.Delta.PlayerDamage)
	assert.True(t, miss.Delta.AdvancesTurn())

	_, err = n.Narrate(context.Background(), narrator.Request{GameState: gameState(), IsEnemyTurn: true, EnemyID: "troll"})
	assert.ErrorIs(t, err, narrator.ErrUnknownEnemy)
}

func TestDefendAndCustom(t *testing.T) {
	n := newOffline(1)
	def, err := n.Narrate(context.Background(), narrator.Request{GameState: gameState(), Action: "Defend", Kind: narrator.ActionDefend})
	require.NoError(t, err)
	assert.Contains(t, def.Narrative, "raise your shield")
	assert.Equal(t, state.Delta{TurnAdvance: def.Delta.TurnAdvance}, def.Delta)

	custom, err := n.Narrate(context.Background(), narrator.Request{GameState: gameState(), Action: "dance a jig"})
	require.NoError(t, err)
	assert.Contains(t, custom.Narrative, "dance a jig")
	assert.True(t, custom.Delta.AdvancesTurn())
}

func TestRejectsBadRequest(t *testing.T) {
	_, err := newOffline(1).Narrate(context.Background(), narrator.Request{GameState: gameState()})
	assert.ErrorIs(t, err, narrator.ErrBadRequest)
}
