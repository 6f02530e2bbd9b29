// Package state holds the game-state snapshot and the pure reducer functions
// that transition it. Every reducer returns a new snapshot; the input is never
// modified and the two never share mutable memory.
package state

import (
	"github.com/cory-johannsen/questweaver/internal/game/character"
	"github.com/cory-johannsen/questweaver/internal/game/dice"
)

// Status is the overall game status.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusActive  Status = "active"
	StatusVictory Status = "victory"
	StatusDefeat  Status = "defeat"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusActive, StatusVictory, StatusDefeat:
		return true
	}
	return false
}

// Terminal reports whether s ends the encounter.
func (s Status) Terminal() bool {
	return s == StatusVictory || s == StatusDefeat
}

// MessageType classifies a history entry.
type MessageType string

const (
	MessageNarrative MessageType = "narrative"
	MessageAction    MessageType = "action"
	MessageRoll      MessageType = "roll"
	MessageSystem    MessageType = "system"
)

// Sender identifies who produced a history entry.
type Sender string

const (
	SenderDM     Sender = "dm"
	SenderPlayer Sender = "player"
	SenderSystem Sender = "system"
)

// Message is an immutable history entry. Timestamp is Unix milliseconds.
type Message struct {
	ID         string      `json:"id" yaml:"id"`
	Type       MessageType `json:"type" yaml:"type"`
	Content    string      `json:"content" yaml:"content"`
	Sender     Sender      `json:"sender" yaml:"sender"`
	Timestamp  int64       `json:"timestamp" yaml:"-"`
	RollResult *dice.Roll  `json:"rollResult,omitempty" yaml:"-"`
}

func (m Message) clone() Message {
	if m.RollResult != nil {
		r := m.RollResult.Clone()
		m.RollResult = &r
	}
	return m
}

// Enemy is a hostile combatant. It stays in the encounter after defeat.
type Enemy struct {
	ID     string          `json:"id" yaml:"id"`
	Name   string          `json:"name" yaml:"name"`
	HP     character.Vital `json:"hp" yaml:"hp"`
	Threat string          `json:"threat" yaml:"threat"`
	// Abilities are descriptive labels for the narrator only.
	Abilities []string `json:"abilities" yaml:"abilities"`
	Portrait  string   `json:"portrait,omitempty" yaml:"portrait"`
}

// IsDefeated reports whether the enemy has no hit points left.
func (e Enemy) IsDefeated() bool { return e.HP.Current <= 0 }

func (e Enemy) clone() Enemy {
	e.Abilities = append([]string(nil), e.Abilities...)
	return e
}

// Encounter is one combat with a fixed cast and turn order.
//
// Invariant: CurrentTurn is a member of TurnOrder; Round >= 1.
type Encounter struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Enemies     []Enemy  `json:"enemies" yaml:"enemies"`
	TurnOrder   []string `json:"turnOrder" yaml:"turn_order"`
	CurrentTurn string   `json:"currentTurn" yaml:"current_turn"`
	Round       int      `json:"round" yaml:"round"`
}

// Enemy looks up an enemy by id.
func (e *Encounter) Enemy(id string) (Enemy, bool) {
	for _, en := range e.Enemies {
		if en.ID == id {
			return en, true
		}
	}
	return Enemy{}, false
}

// LivingEnemies returns the enemies that still have hit points.
func (e *Encounter) LivingEnemies() []Enemy {
	var out []Enemy
	for _, en := range e.Enemies {
		if !en.IsDefeated() {
			out = append(out, en)
		}
	}
	return out
}

// AllDefeated reports whether every enemy is at or below zero hit points.
// An encounter without enemies counts as defeated.
func (e *Encounter) AllDefeated() bool {
	for _, en := range e.Enemies {
		if !en.IsDefeated() {
			return false
		}
	}
	return true
}

func (e *Encounter) clone() *Encounter {
	if e == nil {
		return nil
	}
	out := *e
	out.Enemies = make([]Enemy, len(e.Enemies))
	for i, en := range e.Enemies {
		out.Enemies[i] = en.clone()
	}
	out.TurnOrder = append([]string(nil), e.TurnOrder...)
	return &out
}

// GameState is the root aggregate of a play session.
type GameState struct {
	Encounter *Encounter          `json:"encounter"`
	Character character.Character `json:"character"`
	History   []Message           `json:"history"`
	Status    Status              `json:"status"`
	// LastSaved is the Unix millisecond time of the last persist, if any.
	LastSaved *int64 `json:"lastSaved,omitempty"`
}

// Clone returns a deep copy of s sharing no mutable memory with it.
func (s GameState) Clone() GameState {
	out := s
	out.Encounter = s.Encounter.clone()
	out.Character = s.Character.Clone()
	out.History = make([]Message, len(s.History))
	for i, m := range s.History {
		out.History[i] = m.clone()
	}
	if s.LastSaved != nil {
		ts := *s.LastSaved
		out.LastSaved = &ts
	}
	return out
}

// Combatant is a read-only view of whoever holds a turn slot.
type Combatant struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	IsPlayer bool            `json:"isPlayer"`
	HP       character.Vital `json:"hp"`
	Portrait string          `json:"portrait,omitempty"`
}
