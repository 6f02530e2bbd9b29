package state

import (
	"errors"
	"fmt"
)

// EnemyDamage is one damage entry of a Delta.
type EnemyDamage struct {
	EnemyID string `json:"enemyId"`
	Damage  int    `json:"damage"`
}

// CooldownUpdate is one explicit cooldown assignment of a Delta.
type CooldownUpdate struct {
	AbilityID string `json:"abilityId"`
	Cooldown  int    `json:"cooldown"`
}

// Delta is the set of state changes requested by the narrator after an action.
// Every field is optional; ids may be stale and are resolved as no-ops.
type Delta struct {
	PlayerDamage     *int             `json:"playerDamage,omitempty"`
	PlayerHealing    *int             `json:"playerHealing,omitempty"`
	EnemyDamage      []EnemyDamage    `json:"enemyDamage,omitempty"`
	EnemyDefeated    []string         `json:"enemyDefeated,omitempty"`
	AbilityUsed      *string          `json:"abilityUsed,omitempty"`
	CooldownsUpdated []CooldownUpdate `json:"cooldownsUpdated,omitempty"`
	TurnAdvance      *bool            `json:"turnAdvance,omitempty"`
	EncounterStatus  *Status          `json:"encounterStatus,omitempty"`
}

// AdvancesTurn reports whether the delta asks for the turn to move on.
func (d Delta) AdvancesTurn() bool {
	return d.TurnAdvance != nil && *d.TurnAdvance
}

// ApplyDelta maps every populated field of d onto the reducer operations.
//
// Order: ability used, cooldown updates, player healing, player damage, enemy
// damage, enemy defeated, encounter status, turn advance. Hit-point changes
// therefore land before any status transition is evaluated. The narrator's
// encounterStatus is honoured only as a transition out of active into a
// terminal status.
//
// Postcondition: Returns the resulting snapshot. Fields that could not be
// applied (negative amounts, unknown statuses) are skipped and reported in the
// joined error; the rest of the delta is still applied.
func ApplyDelta(s GameState, d Delta) (GameState, error) {
	var errs []error
	out := s.Clone()

	if d.AbilityUsed != nil && *d.AbilityUsed != "" {
		out = TriggerAbilityCooldown(out, *d.AbilityUsed)
	}
	for _, cu := range d.CooldownsUpdated {
		out = SetAbilityCooldown(out, cu.AbilityID, cu.Cooldown)
	}

	if d.PlayerHealing != nil {
		next, err := ApplyHealingToCharacter(out, *d.PlayerHealing)
		if err != nil {
			errs = append(errs, err)
		}
		out = next
	}
	if d.PlayerDamage != nil {
		next, err := ApplyDamageToCharacter(out, *d.PlayerDamage)
		if err != nil {
			errs = append(errs, err)
		}
		out = next
	}

	for _, ed := range d.EnemyDamage {
		next, err := ApplyDamageToEnemy(out, ed.EnemyID, ed.Damage)
		if err != nil {
			errs = append(errs, err)
		}
		out = next
	}
	for _, id := range d.EnemyDefeated {
		if out.Encounter == nil {
			break
		}
		en, ok := out.Encounter.Enemy(id)
		if !ok || en.IsDefeated() {
			continue
		}
		out, _ = ApplyDamageToEnemy(out, id, en.HP.Current)
	}

	if d.EncounterStatus != nil {
		switch st := *d.EncounterStatus; {
		case !st.Valid():
			errs = append(errs, fmt.Errorf("unknown encounter status %q", st))
		case st.Terminal() && out.Status == StatusActive:
			out = SetStatus(out, st)
		}
	}

	if d.AdvancesTurn() {
		out = AdvanceTurn(out)
	}

	return out, errors.Join(errs...)
}
