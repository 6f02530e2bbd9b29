// Package turn implements the fixed round-robin turn order used by encounters.
package turn

// Next returns the combatant that acts after current and the resulting round.
//
// The order is cyclic: the successor of the last id is the first id, and
// wrapping to index 0 increments the round. A current id absent from order is
// treated as index -1, so the first id acts next and the round increments.
// Defeated combatants are not skipped; callers decide whether to resolve an
// action for a slot.
//
// Precondition: none. An empty order returns current and round unchanged.
// Postcondition: next is a member of order whenever order is non-empty.
func Next(order []string, current string, round int) (next string, nextRound int) {
	if len(order) == 0 {
		return current, round
	}
	idx := indexOf(order, current)
	nextIdx := (idx + 1) % len(order)
	if nextIdx == 0 {
		round++
	}
	return order[nextIdx], round
}

// Cycle applies Next steps times.
//
// Precondition: steps >= 0.
func Cycle(order []string, current string, round, steps int) (string, int) {
	for i := 0; i < steps; i++ {
		current, round = Next(order, current, round)
	}
	return current, round
}

// Contains reports whether id is a member of order.
func Contains(order []string, id string) bool {
	return indexOf(order, id) >= 0
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}
