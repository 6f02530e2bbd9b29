// Package dice provides the randomness abstraction, notation parser and
// roll-result types used by QuestWeaver for every player and enemy roll.
package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Roll is the outcome of a single dice evaluation as shown to the player and
// persisted in the message history.
//
// Invariant: Total == sum(Results) for plain rolls; for (dis)advantage rolls
// Total is the kept die. ModifiedTotal is non-nil iff Modifier is non-nil, and
// Modifier is never a pointer to zero.
type Roll struct {
	Dice          string `json:"dice"`
	Results       []int  `json:"results"`
	Total         int    `json:"total"`
	Modifier      *int   `json:"modifier,omitempty"`
	ModifiedTotal *int   `json:"modifiedTotal,omitempty"`
}

// HasModifier reports whether a nonzero modifier was applied to the roll.
func (r Roll) HasModifier() bool {
	return r.Modifier != nil && *r.Modifier != 0
}

// Kept returns the effective total: ModifiedTotal when a modifier was applied,
// Total otherwise.
func (r Roll) Kept() int {
	if r.ModifiedTotal != nil {
		return *r.ModifiedTotal
	}
	return r.Total
}

// Clone returns a deep copy of r.
func (r Roll) Clone() Roll {
	out := r
	out.Results = append([]int(nil), r.Results...)
	if r.Modifier != nil {
		m := *r.Modifier
		out.Modifier = &m
	}
	if r.ModifiedTotal != nil {
		mt := *r.ModifiedTotal
		out.ModifiedTotal = &mt
	}
	return out
}

// FromResults builds a plain Roll labelled dice from already rolled faces.
//
// Postcondition: Total == sum(results); Modifier is set iff modifier != 0.
func FromResults(dice string, results []int, modifier int) Roll {
	r := Roll{Dice: dice, Results: append([]int(nil), results...)}
	for _, v := range results {
		r.Total += v
	}
	return r.withModifier(modifier)
}

// withModifier sets Modifier and ModifiedTotal on r when modifier is nonzero.
func (r Roll) withModifier(modifier int) Roll {
	if modifier == 0 {
		r.Modifier = nil
		r.ModifiedTotal = nil
		return r
	}
	m := modifier
	mt := r.Total + modifier
	r.Modifier = &m
	r.ModifiedTotal = &mt
	return r
}

// IsCriticalSuccess reports whether roll is a d20 roll with a natural 20 among
// its results. Advantage rolls qualify because their label contains "d20".
func IsCriticalSuccess(roll Roll) bool {
	return isD20(roll) && containsFace(roll.Results, 20)
}

// IsCriticalFailure reports whether roll is a d20 roll with a natural 1 among
// its results.
func IsCriticalFailure(roll Roll) bool {
	return isD20(roll) && containsFace(roll.Results, 1)
}

// isD20 matches the die label case-insensitively, as the parser does.
func isD20(roll Roll) bool {
	return strings.Contains(strings.ToLower(roll.Dice), "d20")
}

func containsFace(results []int, face int) bool {
	for _, v := range results {
		if v == face {
			return true
		}
	}
	return false
}

// FormatRollResult renders roll for display:
//
//	"17"               single die, no modifier
//	"[4, 5] = 9"       several dice
//	"17 +3 = 20"       modifier applied
//	"[4, 5] = 9 -1 = 8"
func FormatRollResult(roll Roll) string {
	var b strings.Builder
	if len(roll.Results) > 1 {
		parts := make([]string, len(roll.Results))
		for i, v := range roll.Results {
			parts[i] = strconv.Itoa(v)
		}
		fmt.Fprintf(&b, "[%s] = %d", strings.Join(parts, ", "), roll.Total)
	} else {
		b.WriteString(strconv.Itoa(roll.Total))
	}
	if roll.HasModifier() {
		fmt.Fprintf(&b, " %+d = %d", *roll.Modifier, roll.Kept())
	}
	return b.String()
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
