package dice_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/questweaver/internal/game/dice"
)

// faceSource yields the given die faces in order, cycling when exhausted.
type faceSource struct {
	faces []int
	next  int
}

func (f *faceSource) Intn(n int) int {
	v := f.faces[f.next%len(f.faces)] - 1
	f.next++
	if v >= n {
		return n - 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func rollerWith(faces ...int) *dice.Roller {
	return dice.NewRoller(&faceSource{faces: faces})
}

func intPtr(v int) *int { return &v }

func TestRoll_D20WithModifier(t *testing.T) {
	r := rollerWith(17)
	roll, err := r.Roll("1d20+3")
	require.NoError(t, err)

	assert.Equal(t, "1d20+3", roll.Dice)
	assert.Equal(t, []int{17}, roll.Results)
	assert.Equal(t, 17, roll.Total)
	assert.Equal(t, intPtr(3), roll.Modifier)
	assert.Equal(t, intPtr(20), roll.ModifiedTotal)
	assert.Equal(t, "17 +3 = 20", dice.FormatRollResult(roll))
}

func TestRoll_ZeroModifierLeavesModifiedTotalUnset(t *testing.T) {
	for _, notation := range []string{"2d6", "2d6+0", "2d6-0"} {
		roll, err := rollerWith(4, 5).Roll(notation)
		require.NoError(t, err, notation)
		assert.Nil(t, roll.Modifier, notation)
		assert.Nil(t, roll.ModifiedTotal, notation)
		assert.False(t, roll.HasModifier(), notation)
		assert.Equal(t, 9, roll.Kept(), notation)
		assert.Equal(t, "[4, 5] = 9", dice.FormatRollResult(roll), notation)
	}
}

func TestRoll_CaseInsensitive(t *testing.T) {
	roll, err := rollerWith(3, 3, 3).Roll("3D6-2")
	require.NoError(t, err)
	assert.Equal(t, 9, roll.Total)
	assert.Equal(t, intPtr(7), roll.ModifiedTotal)
	assert.Equal(t, "[3, 3, 3] = 9 -2 = 7", dice.FormatRollResult(roll))
}

func TestParse_RejectsMalformedNotation(t *testing.T) {
	for _, bad := range []string{
		"", "d20", "20", "2x6", "0d6", "00d6", "1d0", "1d20+", "1d20++3", "1d20+-3",
		" 1d20", "1d20 +3", "1d20+3 ", "abc", "-1d6", "1.5d6", "1001d6",
	} {
		_, err := dice.Parse(bad)
		assert.ErrorIs(t, err, dice.ErrInvalidNotation, "notation %q", bad)
	}
}

func TestParse_ValidNotation(t *testing.T) {
	n, err := dice.Parse("4d8-2")
	require.NoError(t, err)
	assert.Equal(t, dice.Notation{Raw: "4d8-2", Count: 4, Sides: 8, Modifier: -2}, n)

	n, err = dice.Parse("1d20")
	require.NoError(t, err)
	assert.Equal(t, 0, n.Modifier)
}

func TestRoll_InvalidNotationReturnsNoRoll(t *testing.T) {
	roll, err := rollerWith(1).Roll("0d6")
	require.Error(t, err)
	assert.Empty(t, roll.Results)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("nope") })
	assert.NotPanics(t, func() { dice.MustParse("2d6+1") })
}

func TestD20Notation(t *testing.T) {
	assert.Equal(t, "1d20", dice.D20Notation(0))
	assert.Equal(t, "1d20+3", dice.D20Notation(3))
	assert.Equal(t, "1d20-2", dice.D20Notation(-2))
}

func TestRollD20(t *testing.T) {
	roll := rollerWith(11).RollD20(0)
	assert.Equal(t, "1d20", roll.Dice)
	assert.Equal(t, []int{11}, roll.Results)
	assert.Nil(t, roll.ModifiedTotal)
	assert.Equal(t, "11", dice.FormatRollResult(roll))

	roll = rollerWith(2).RollD20(-1)
	assert.Equal(t, "1d20-1", roll.Dice)
	assert.Equal(t, intPtr(1), roll.ModifiedTotal)
	assert.Equal(t, "2 -1 = 1", dice.FormatRollResult(roll))
}

func TestRollWithAdvantage_KeepsHigherAndReportsBoth(t *testing.T) {
	roll := rollerWith(5, 20).RollWithAdvantage(2)
	assert.Equal(t, "2d20 (advantage)", roll.Dice)
	assert.Equal(t, []int{5, 20}, roll.Results)
	assert.Equal(t, 20, roll.Total)
	assert.Equal(t, intPtr(22), roll.ModifiedTotal)
	assert.True(t, dice.IsCriticalSuccess(roll))
	assert.False(t, dice.IsCriticalFailure(roll))
	assert.Equal(t, "[5, 20] = 20 +2 = 22", dice.FormatRollResult(roll))
}

func TestRollWithDisadvantage_KeepsLower(t *testing.T) {
	roll := rollerWith(7, 3).RollWithDisadvantage(-1)
	assert.Equal(t, "2d20 (disadvantage)", roll.Dice)
	assert.Equal(t, []int{7, 3}, roll.Results)
	assert.Equal(t, 3, roll.Total)
	assert.Equal(t, intPtr(2), roll.ModifiedTotal)
}

func TestCriticals(t *testing.T) {
	nat20 := dice.Roll{Dice: "1d20+3", Results: []int{20}, Total: 20}
	nat1 := dice.Roll{Dice: "1d20", Results: []int{1}, Total: 1}
	d6 := dice.Roll{Dice: "1d6", Results: []int{1}, Total: 1}
	twenty6 := dice.Roll{Dice: "4d6", Results: []int{6, 6, 6, 2}, Total: 20}

	assert.True(t, dice.IsCriticalSuccess(nat20))
	assert.False(t, dice.IsCriticalFailure(nat20))
	assert.True(t, dice.IsCriticalFailure(nat1))
	assert.False(t, dice.IsCriticalSuccess(nat1))
	assert.False(t, dice.IsCriticalFailure(d6), "non-d20 rolls are never critical")
	assert.False(t, dice.IsCriticalSuccess(twenty6), "a total of 20 is not a natural 20")
}

func TestCriticals_UppercaseNotation(t *testing.T) {
	assert.True(t, dice.IsCriticalSuccess(dice.Roll{Dice: "1D20", Results: []int{20}, Total: 20}))
	assert.True(t, dice.IsCriticalFailure(dice.Roll{Dice: "1D20+2", Results: []int{1}, Total: 3}))
}

func TestRoll_CloneDoesNotAlias(t *testing.T) {
	roll, err := rollerWith(2, 3).Roll("2d6+1")
	require.NoError(t, err)
	c := roll.Clone()
	c.Results[0] = 6
	*c.Modifier = 4
	assert.Equal(t, 2, roll.Results[0])
	assert.Equal(t, 1, *roll.Modifier)
}

// TestRoll_Property verifies, for arbitrary valid notation, that every face is
// within [1, sides], the total is the sum, and ModifiedTotal is present iff
// the modifier is nonzero.
func TestRoll_Property(t *testing.T) {
	roller := dice.NewRoller(dice.NewCryptoSource())
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 12).Draw(rt, "count")
		sides := rapid.IntRange(1, 100).Draw(rt, "sides")
		mod := rapid.IntRange(-20, 20).Draw(rt, "modifier")

		notation := fmt.Sprintf("%dd%d", count, sides)
		if mod != 0 {
			notation += fmt.Sprintf("%+d", mod)
		}
		roll, err := roller.Roll(notation)
		require.NoError(rt, err)
		require.Len(rt, roll.Results, count)

		sum := 0
		for _, v := range roll.Results {
			assert.GreaterOrEqual(rt, v, 1)
			assert.LessOrEqual(rt, v, sides)
			sum += v
		}
		assert.Equal(rt, sum, roll.Total)
		if mod == 0 {
			assert.Nil(rt, roll.ModifiedTotal)
		} else {
			require.NotNil(rt, roll.ModifiedTotal)
			assert.Equal(rt, sum+mod, *roll.ModifiedTotal)
		}
	})
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestSeededSource_Deterministic(t *testing.T) {
	a := dice.NewRoller(dice.NewSeededSource(42))
	b := dice.NewRoller(dice.NewSeededSource(42))
	for i := 0; i < 20; i++ {
		ra, err := a.Roll("3d6")
		require.NoError(t, err)
		rb, err := b.Roll("3d6")
		require.NoError(t, err)
		assert.Equal(t, ra, rb)
	}
}

func TestFromResults(t *testing.T) {
	r := dice.FromResults("1d20", []int{17}, 1)
	assert.Equal(t, 17, r.Total)
	require.True(t, r.HasModifier())
	assert.Equal(t, 18, r.Kept())

	plain := dice.FromResults("2d6", []int{3, 4}, 0)
	assert.Equal(t, 7, plain.Total)
	assert.Nil(t, plain.Modifier)
	assert.Nil(t, plain.ModifiedTotal)
}
