package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/questweaver/internal/game/turn"
)

// ErrNegativeAmount is returned when a damage or healing amount is negative.
var ErrNegativeAmount = errors.New("amount must not be negative")

// nowMillis and newMessageID are replaced in tests that need stable values.
var (
	nowMillis    = func() int64 { return time.Now().UnixMilli() }
	newMessageID = func() string { return "msg-" + uuid.NewString() }
)

// AppendMessage appends m to the history with a fresh id and the current timestamp.
//
// Postcondition: len(result.History) == len(s.History)+1; s.History is unchanged.
func AppendMessage(s GameState, m Message) GameState {
	out := s.Clone()
	m = m.clone()
	m.ID = newMessageID()
	m.Timestamp = nowMillis()
	out.History = append(out.History, m)
	return out
}

// ApplyDamageToCharacter subtracts amount from the character's hit points.
//
// Precondition: amount >= 0; a negative amount returns s unchanged and ErrNegativeAmount.
// Postcondition: 0 <= HP.Current <= HP.Max. When HP reaches 0 and the prior
// status was active, the status becomes defeat; any other status is kept.
func ApplyDamageToCharacter(s GameState, amount int) (GameState, error) {
	if amount < 0 {
		return s, fmt.Errorf("character damage %d: %w", amount, ErrNegativeAmount)
	}
	out := s.Clone()
	out.Character.HP = out.Character.HP.Damage(amount)
	if out.Character.HP.Current == 0 && out.Status == StatusActive {
		out.Status = StatusDefeat
	}
	return out, nil
}

// ApplyHealingToCharacter adds amount to the character's hit points, capped at max.
// The status is never changed.
//
// Precondition: amount >= 0; a negative amount returns s unchanged and ErrNegativeAmount.
func ApplyHealingToCharacter(s GameState, amount int) (GameState, error) {
	if amount < 0 {
		return s, fmt.Errorf("character healing %d: %w", amount, ErrNegativeAmount)
	}
	out := s.Clone()
	out.Character.HP = out.Character.HP.Heal(amount)
	return out, nil
}

// ApplyDamageToEnemy subtracts amount from the named enemy's hit points.
//
// Without an encounter, or for an unknown enemy id, no enemy changes. After
// the update, if every enemy has HP <= 0 and the prior status was active, the
// status becomes victory.
//
// Precondition: amount >= 0; a negative amount returns s unchanged and ErrNegativeAmount.
func ApplyDamageToEnemy(s GameState, enemyID string, amount int) (GameState, error) {
	if amount < 0 {
		return s, fmt.Errorf("enemy %q damage %d: %w", enemyID, amount, ErrNegativeAmount)
	}
	if s.Encounter == nil {
		return s, nil
	}
	out := s.Clone()
	for i := range out.Encounter.Enemies {
		if out.Encounter.Enemies[i].ID == enemyID {
			out.Encounter.Enemies[i].HP = out.Encounter.Enemies[i].HP.Damage(amount)
			break
		}
	}
	if out.Encounter.AllDefeated() && out.Status == StatusActive {
		out.Status = StatusVictory
	}
	return out, nil
}

// TriggerAbilityCooldown resets the named ability's CurrentCooldown to its
// Cooldown. An unknown id leaves every ability unchanged.
func TriggerAbilityCooldown(s GameState, abilityID string) GameState {
	out := s.Clone()
	for i := range out.Character.Abilities {
		if out.Character.Abilities[i].ID == abilityID {
			out.Character.Abilities[i].CurrentCooldown = out.Character.Abilities[i].Cooldown
		}
	}
	return out
}

// SetAbilityCooldown sets the named ability's CurrentCooldown to turns,
// floored at zero. An unknown id leaves every ability unchanged.
func SetAbilityCooldown(s GameState, abilityID string, turns int) GameState {
	out := s.Clone()
	for i := range out.Character.Abilities {
		if out.Character.Abilities[i].ID == abilityID {
			out.Character.Abilities[i].CurrentCooldown = max(0, turns)
		}
	}
	return out
}

// TickCooldowns decrements every ability's CurrentCooldown by one, floored at zero.
// Call it once per return to the player's turn.
func TickCooldowns(s GameState) GameState {
	out := s.Clone()
	for i := range out.Character.Abilities {
		out.Character.Abilities[i].CurrentCooldown = max(0, out.Character.Abilities[i].CurrentCooldown-1)
	}
	return out
}

// AdvanceTurn moves CurrentTurn to the next id in the turn order, incrementing
// Round on wrap-around. Without an encounter s is returned unchanged.
func AdvanceTurn(s GameState) GameState {
	if s.Encounter == nil {
		return s
	}
	out := s.Clone()
	enc := out.Encounter
	enc.CurrentTurn, enc.Round = turn.Next(enc.TurnOrder, enc.CurrentTurn, enc.Round)
	return out
}

// IsPlayerTurn reports whether an encounter exists and the character holds the turn.
func IsPlayerTurn(s GameState) bool {
	return s.Encounter != nil && s.Encounter.CurrentTurn == s.Character.ID
}

// CurrentTurnEntity returns the combatant holding the current turn.
//
// Postcondition: Returns (combatant, true) when the turn belongs to the
// character or a known enemy, (zero, false) otherwise.
func CurrentTurnEntity(s GameState) (Combatant, bool) {
	if s.Encounter == nil {
		return Combatant{}, false
	}
	if s.Encounter.CurrentTurn == s.Character.ID {
		c := s.Character
		return Combatant{ID: c.ID, Name: c.Name, IsPlayer: true, HP: c.HP, Portrait: c.Portrait}, true
	}
	en, ok := s.Encounter.Enemy(s.Encounter.CurrentTurn)
	if !ok {
		return Combatant{}, false
	}
	return Combatant{ID: en.ID, Name: en.Name, HP: en.HP, Portrait: en.Portrait}, true
}

// SetStatus overwrites the status unconditionally. Callers are responsible for
// not regressing a terminal status.
func SetStatus(s GameState, status Status) GameState {
	out := s.Clone()
	out.Status = status
	return out
}
