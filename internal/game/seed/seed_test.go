package seed_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/questweaver/internal/game/seed"
	"github.com/cory-johannsen/questweaver/internal/game/state"
)

const minimalScenario = `
character:
  id: hero
  name: Hero
  class: Rogue
  level: 1
  hp: {current: 8, max: 8}
encounter:
  id: rats
  name: Rats
  turn_order: [hero, rat-1]
  current_turn: hero
  enemies:
    - id: rat-1
      name: Giant Rat
      hp: {current: 4, max: 4}
messages:
  - id: intro
    type: narrative
    sender: dm
    ago: 5s
    content: Squeaking fills the cellar.
`

func TestDefault_IsTheGoblinAmbush(t *testing.T) {
	gs, err := seed.Default()
	require.NoError(t, err)

	assert.Equal(t, state.StatusActive, gs.Status)
	assert.Equal(t, "Thorin Ironforge", gs.Character.Name)
	assert.Equal(t, 28, gs.Character.HP.Current)
	assert.Equal(t, 35, gs.Character.HP.Max)
	assert.Len(t, gs.Character.Abilities, 4)
	assert.Equal(t, 1, gs.Character.Abilities[1].CurrentCooldown)

	require.NotNil(t, gs.Encounter)
	assert.Equal(t, "goblin-ambush", gs.Encounter.ID)
	assert.Equal(t, []string{"player-1", "goblin-1", "goblin-2", "goblin-3"}, gs.Encounter.TurnOrder)
	assert.Equal(t, "player-1", gs.Encounter.CurrentTurn)
	assert.Equal(t, 1, gs.Encounter.Round)
	assert.True(t, state.IsPlayerTurn(gs))

	require.Len(t, gs.History, 6)
	roll := gs.History[3].RollResult
	require.NotNil(t, roll)
	assert.Equal(t, 17, roll.Total)
	assert.Equal(t, 18, roll.Kept())
}

func TestDefault_TimestampsRelativeToNow(t *testing.T) {
	before := time.Now().UnixMilli()
	gs, err := seed.Default()
	require.NoError(t, err)

	first := gs.History[0].Timestamp
	assert.InDelta(t, before-60_000, first, 5_000)
	for i := 1; i < len(gs.History); i++ {
		assert.Greater(t, gs.History[i].Timestamp, gs.History[i-1].Timestamp)
	}
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	a, err := seed.Default()
	require.NoError(t, err)
	a.Encounter.Enemies[0].HP.Current = 0
	a.Character.Abilities[0].CurrentCooldown = 9

	b, err := seed.Default()
	require.NoError(t, err)
	assert.Equal(t, 12, b.Encounter.Enemies[0].HP.Current)
	assert.Equal(t, 0, b.Character.Abilities[0].CurrentCooldown)
}

func TestLoadFromBytes_AppliesDefaults(t *testing.T) {
	sc, err := seed.LoadFromBytes([]byte(minimalScenario))
	require.NoError(t, err)
	gs := sc.State(time.UnixMilli(10_000))
	assert.Equal(t, state.StatusActive, gs.Status)
	assert.Equal(t, 1, gs.Encounter.Round)
	assert.Equal(t, int64(5_000), gs.History[0].Timestamp)
}

func TestLoadFromBytes_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"malformed":       "character: [",
		"unknown turn id": `
character: {id: hero, name: Hero, level: 1, hp: {current: 1, max: 1}}
encounter: {id: e, turn_order: [hero, ghost], current_turn: hero, round: 1}
`,
		"current not in order": `
character: {id: hero, name: Hero, level: 1, hp: {current: 1, max: 1}}
encounter: {id: e, turn_order: [hero], current_turn: nobody, round: 1}
`,
		"enemy max hp": `
character: {id: hero, name: Hero, level: 1, hp: {current: 1, max: 1}}
encounter:
  id: e
  turn_order: [hero, rat]
  current_turn: hero
  enemies: [{id: rat, name: Rat, hp: {current: 0, max: 0}}]
`,
		"bad status": `
status: paused
character: {id: hero, name: Hero, level: 1, hp: {current: 1, max: 1}}
`,
		"bad ago": `
character: {id: hero, name: Hero, level: 1, hp: {current: 1, max: 1}}
messages: [{id: m, content: hi, ago: soon}]
`,
		"invalid character": `
character: {id: "", name: Hero, level: 0, hp: {current: 1, max: 1}}
`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := seed.LoadFromBytes([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o600))

	sc, err := seed.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "rats", sc.State(time.Now()).Encounter.ID)

	_, err = seed.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
