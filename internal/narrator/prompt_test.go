package narrator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/questweaver/internal/narrator"
)

func TestBuildContext(t *testing.T) {
	out := narrator.BuildContext(*sampleState(), 2)

	assert.Contains(t, out, "### Hero: Thorin Ironforge (Warrior Level 3)")
	assert.Contains(t, out, "- HP: 28/35")
	assert.Contains(t, out, "- Stats: Might 16, Agility 12, Wit 10, Heart 14")
	assert.Contains(t, out, "- Equipment: Steel Longsword\n")
	assert.Contains(t, out, `Power Strike (id: "power-strike"): Big hit. ✓ Ready`)
	assert.Contains(t, out, `Shield Bash (id: "shield-bash"): Stun. (1 turns)`)
	assert.Contains(t, out, "Round 2")
	assert.Contains(t, out, "- Goblin Scout (goblin-1): HP: 12/12")
	assert.Contains(t, out, "- Goblin Brute (goblin-3): 💀 DEFEATED")
	assert.Contains(t, out, "Can use: Sneak Attack, Flee")
	assert.Contains(t, out, "### Current Turn: Thorin Ironforge")

	assert.NotContains(t, out, "📜 DM: one")
	assert.Contains(t, out, "🎮 Player: two")
	assert.Contains(t, out, "⚙️ System: three")
}

func TestBuildContext_NoEncounterNoHistory(t *testing.T) {
	gs := sampleState()
	gs.Encounter = nil
	out := narrator.BuildContext(*gs, 0)
	assert.NotContains(t, out, "### Encounter")
	assert.NotContains(t, out, "Recent Events")
}

func TestBuildActionPrompt_VerdictBands(t *testing.T) {
	cases := []struct {
		total int
		want  string
	}{
		{20, "(EXCELLENT!)"},
		{18, "(EXCELLENT!)"},
		{12, "(Hit!)"},
		{11, "(Miss)"},
		{6, "(Miss)"},
		{5, "(Yikes!)"},
	}
	for _, tc := range cases {
		p := narrator.BuildActionPrompt("Attack", &narrator.RollSummary{Total: tc.total, Dice: "1d20"})
		assert.Contains(t, p, tc.want, "total %d", tc.total)
	}

	p := narrator.BuildActionPrompt("Attack", &narrator.RollSummary{Total: 10, ModifiedTotal: intPtr(13), Dice: "1d20+3"})
	assert.Contains(t, p, "Dice Roll: 1d20+3 = 13 (Hit!)")

	assert.NotContains(t, narrator.BuildActionPrompt("Look around", nil), "Dice Roll")
}

func TestBuildEnemyTurnPrompt(t *testing.T) {
	gs := sampleState()
	scout := gs.Encounter.Enemies[0]
	p := narrator.BuildEnemyTurnPrompt(scout, *gs, &narrator.RollSummary{Total: 19, Dice: "1d20+2"})
	assert.Contains(t, p, "## Enemy Turn: Goblin Scout")
	assert.Contains(t, p, "(DEVASTATING!)")
	assert.Contains(t, p, "- Player HP: 28/35")
	assert.Contains(t, p, "2-5 damage on hit")

	fumble := narrator.BuildEnemyTurnPrompt(scout, *gs, &narrator.RollSummary{Total: 3, Dice: "1d20+2"})
	assert.Contains(t, fumble, "(Fumble!)")

	brute := narrator.BuildEnemyTurnPrompt(gs.Encounter.Enemies[1], *gs, nil)
	assert.Contains(t, brute, "4-8 damage on hit")
}

func TestBuildPrompt(t *testing.T) {
	gs := sampleState()
	p, err := narrator.BuildPrompt(narrator.Request{GameState: gs, Action: "Swing"}, narrator.DefaultHistoryWindow)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "## Current Game State"))
	assert.Contains(t, p, "## Player Action\nSwing")

	p, err = narrator.BuildPrompt(narrator.Request{GameState: gs, IsEnemyTurn: true, EnemyID: "goblin-1"}, 5)
	require.NoError(t, err)
	assert.Contains(t, p, "## Enemy Turn: Goblin Scout")

	_, err = narrator.BuildPrompt(narrator.Request{GameState: gs, IsEnemyTurn: true, EnemyID: "dragon"}, 5)
	assert.ErrorIs(t, err, narrator.ErrUnknownEnemy)
}
