// Package seed loads the starting game state: the default adventure embedded
// in the binary, or a custom scenario file.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/questweaver/internal/game/character"
	"github.com/cory-johannsen/questweaver/internal/game/dice"
	"github.com/cory-johannsen/questweaver/internal/game/state"
)

//go:embed content/default.yaml
var defaultContent []byte

// yamlScenario is the top-level YAML structure for scenario files.
type yamlScenario struct {
	Status    state.Status        `yaml:"status"`
	Character character.Character `yaml:"character"`
	Encounter *state.Encounter    `yaml:"encounter"`
	Messages  []yamlMessage       `yaml:"messages"`
}

// yamlMessage is the YAML representation of an opening history entry. Ago is
// how long before the scenario starts the message was sent.
type yamlMessage struct {
	ID      string            `yaml:"id"`
	Type    state.MessageType `yaml:"type"`
	Sender  state.Sender      `yaml:"sender"`
	Content string            `yaml:"content"`
	Ago     string            `yaml:"ago"`
	Roll    *yamlRoll         `yaml:"roll"`
}

type yamlRoll struct {
	Dice     string `yaml:"dice"`
	Results  []int  `yaml:"results"`
	Modifier int    `yaml:"modifier"`
}

type message struct {
	msg state.Message
	ago time.Duration
}

// Scenario is a validated starting point for a game. It is immutable; State
// produces independent snapshots.
type Scenario struct {
	status    state.Status
	character character.Character
	encounter *state.Encounter
	messages  []message
}

// State returns a fresh snapshot of the scenario with message timestamps
// relative to now.
//
// Postcondition: The result shares no mutable memory with s or with any other
// snapshot returned by State.
func (s *Scenario) State(now time.Time) state.GameState {
	gs := state.GameState{
		Encounter: s.encounter,
		Character: s.character,
		Status:    s.status,
		History:   make([]state.Message, 0, len(s.messages)),
	}
	for _, m := range s.messages {
		msg := m.msg
		msg.Timestamp = now.Add(-m.ago).UnixMilli()
		gs.History = append(gs.History, msg)
	}
	return gs.Clone()
}

var (
	defaultOnce     sync.Once
	defaultScenario *Scenario
	defaultErr      error
)

// Default returns a fresh copy of the embedded default adventure.
//
// Postcondition: Returns a valid active game state, or an error if the
// embedded content is malformed.
func Default() (state.GameState, error) {
	defaultOnce.Do(func() {
		defaultScenario, defaultErr = LoadFromBytes(defaultContent)
	})
	if defaultErr != nil {
		return state.GameState{}, fmt.Errorf("default scenario: %w", defaultErr)
	}
	return defaultScenario.State(time.Now()), nil
}

// LoadFromFile reads and validates a scenario YAML file.
//
// Precondition: path must point to a scenario YAML file.
// Postcondition: Returns a validated Scenario or a non-nil error.
func LoadFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %s: %w", path, err)
	}
	sc, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("scenario file %s: %w", path, err)
	}
	return sc, nil
}

// LoadFromBytes parses and validates a scenario from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the scenario schema.
// Postcondition: Returns a validated Scenario or a non-nil error.
func LoadFromBytes(data []byte) (*Scenario, error) {
	var ys yamlScenario
	if err := yaml.Unmarshal(data, &ys); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	if ys.Status == "" {
		ys.Status = state.StatusActive
	}
	if ys.Encounter != nil && ys.Encounter.Round == 0 {
		ys.Encounter.Round = 1
	}

	sc := &Scenario{
		status:    ys.Status,
		character: ys.Character,
		encounter: ys.Encounter,
	}
	var errs []error
	for i, ym := range ys.Messages {
		m, err := convertMessage(ym)
		if err != nil {
			errs = append(errs, fmt.Errorf("message %d: %w", i, err))
			continue
		}
		sc.messages = append(sc.messages, m)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func convertMessage(ym yamlMessage) (message, error) {
	m := message{msg: state.Message{
		ID:      ym.ID,
		Type:    ym.Type,
		Sender:  ym.Sender,
		Content: ym.Content,
	}}
	if ym.Ago != "" {
		d, err := time.ParseDuration(ym.Ago)
		if err != nil {
			return message{}, fmt.Errorf("ago %q is not a valid duration: %w", ym.Ago, err)
		}
		if d < 0 {
			return message{}, fmt.Errorf("ago %q must not be negative", ym.Ago)
		}
		m.ago = d
	}
	if ym.Roll != nil {
		r := dice.FromResults(ym.Roll.Dice, ym.Roll.Results, ym.Roll.Modifier)
		m.msg.RollResult = &r
	}
	return m, nil
}

// Validate checks that the scenario satisfies the game-state invariants.
//
// Postcondition: Returns nil iff the status is known, the character is valid,
// and, when an encounter is present, enemy ids are unique and non-empty with
// max HP >= 1, every turn-order id names the character or an enemy, the
// current turn is in the turn order and the round is >= 1. Every violation is
// reported.
func (s *Scenario) Validate() error {
	var errs []error
	if !s.status.Valid() {
		errs = append(errs, fmt.Errorf("unknown status %q", s.status))
	}
	if err := character.Validate(s.character); err != nil {
		errs = append(errs, err)
	}
	if enc := s.encounter; enc != nil {
		known := map[string]bool{s.character.ID: true}
		for _, en := range enc.Enemies {
			switch {
			case en.ID == "":
				errs = append(errs, errors.New("enemy id must not be empty"))
			case known[en.ID]:
				errs = append(errs, fmt.Errorf("duplicate combatant id %q", en.ID))
			}
			known[en.ID] = true
			if en.HP.Max < 1 {
				errs = append(errs, fmt.Errorf("enemy %q: hp.max must be >= 1", en.ID))
			}
			if en.HP.Current < 0 || en.HP.Current > en.HP.Max {
				errs = append(errs, fmt.Errorf("enemy %q: hp.current must be within [0, %d]", en.ID, en.HP.Max))
			}
		}
		if len(enc.TurnOrder) == 0 {
			errs = append(errs, errors.New("encounter turn_order must not be empty"))
		}
		for _, id := range enc.TurnOrder {
			if !known[id] {
				errs = append(errs, fmt.Errorf("turn_order references unknown combatant %q", id))
			}
		}
		if !slices.Contains(enc.TurnOrder, enc.CurrentTurn) {
			errs = append(errs, fmt.Errorf("current_turn %q is not in turn_order", enc.CurrentTurn))
		}
		if enc.Round < 1 {
			errs = append(errs, fmt.Errorf("round must be >= 1, got %d", enc.Round))
		}
	}
	for _, m := range s.messages {
		if m.msg.Content == "" {
			errs = append(errs, fmt.Errorf("message %q: content must not be empty", m.msg.ID))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("scenario: %w", errors.Join(errs...))
	}
	return nil
}
