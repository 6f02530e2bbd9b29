// Package narrator is the bridge between the game and a dungeon-master
// language model. It builds prompts from a game snapshot, turns the model's
// reply into a narrative plus a state delta, and degrades to flavor text when
// the model is unavailable.
package narrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/cory-johannsen/questweaver/internal/game/dice"
	"github.com/cory-johannsen/questweaver/internal/game/state"
)

var (
	// ErrBadRequest is returned for requests missing a game state or an action.
	ErrBadRequest = errors.New("bad narration request")
	// ErrUnknownEnemy is returned for an enemy turn naming an enemy not in the encounter.
	ErrUnknownEnemy = errors.New("unknown enemy")
	// ErrNoJSON is returned when a model reply contains no JSON object.
	ErrNoJSON = errors.New("no JSON object in model reply")
)

const (
	// DefaultHistoryWindow is how many trailing history messages the prompt carries.
	DefaultHistoryWindow = 5

	// FallbackNarrative is shown when the model could not be reached or understood.
	FallbackNarrative = "The chaos of battle makes it hard to see what happened... (AI temporarily unavailable)"
	// RetryNarrative is shown when the request itself failed and the turn must not advance.
	RetryNarrative = "The magical energies of the realm flicker momentarily... (try again)"
	// EmptyNarrative replaces a blank narrative in an otherwise valid reply.
	EmptyNarrative = "Something mysterious happens..."
)

// ActionKind classifies a player action.
type ActionKind string

const (
	ActionAttack  ActionKind = "attack"
	ActionAbility ActionKind = "ability"
	ActionDefend  ActionKind = "defend"
	ActionCustom  ActionKind = "custom"
)

// RollSummary is the part of a roll the model is told about.
type RollSummary struct {
	Total         int    `json:"total"`
	ModifiedTotal *int   `json:"modifiedTotal,omitempty"`
	Dice          string `json:"dice"`
}

// Kept returns ModifiedTotal when present, Total otherwise.
func (r RollSummary) Kept() int {
	if r.ModifiedTotal != nil {
		return *r.ModifiedTotal
	}
	return r.Total
}

// SummarizeRoll reduces a dice roll to what the model needs.
func SummarizeRoll(r dice.Roll) *RollSummary {
	out := &RollSummary{Total: r.Total, Dice: r.Dice}
	if r.ModifiedTotal != nil {
		mt := *r.ModifiedTotal
		out.ModifiedTotal = &mt
	}
	return out
}

// Request asks the narrator to resolve one player action or one enemy turn.
type Request struct {
	GameState   *state.GameState `json:"gameState"`
	Action      string           `json:"action"`
	RollResult  *RollSummary     `json:"rollResult,omitempty"`
	IsEnemyTurn bool             `json:"isEnemyTurn,omitempty"`
	EnemyID     string           `json:"enemyId,omitempty"`
	// Kind and AbilityID are optional structured hints about the action.
	Kind      ActionKind `json:"kind,omitempty"`
	AbilityID string     `json:"abilityId,omitempty"`
}

// Response is the narrator's answer: prose for the player and the state
// changes to apply.
type Response struct {
	Narrative string      `json:"narrative"`
	Delta     state.Delta `json:"delta"`
}

// Narrator resolves actions into narration.
//
// Implementations MUST be safe for concurrent use.
type Narrator interface {
	// Narrate resolves req.
	//
	// Precondition: Validate(req) == nil.
	// Postcondition: Returns a sanitized Response, or a non-nil error.
	Narrate(ctx context.Context, req Request) (Response, error)
}

// Func adapts a plain function to the Narrator interface.
type Func func(ctx context.Context, req Request) (Response, error)

// Narrate calls f.
func (f Func) Narrate(ctx context.Context, req Request) (Response, error) { return f(ctx, req) }

// Validate checks that req carries a game state and either an action or the
// enemy-turn flag.
//
// Postcondition: Returns nil or an error wrapping ErrBadRequest.
func Validate(req Request) error {
	if req.GameState == nil {
		return fmt.Errorf("%w: missing game state", ErrBadRequest)
	}
	if req.Action == "" && !req.IsEnemyTurn {
		return fmt.Errorf("%w: missing action or enemy turn flag", ErrBadRequest)
	}
	return nil
}

// Fallback returns the response used when narration fails: flavor text and a
// turn advance so play never stalls.
func Fallback() Response {
	advance := true
	return Response{
		Narrative: FallbackNarrative,
		Delta:     state.Delta{TurnAdvance: &advance},
	}
}

// Sanitize fills the defaults a model reply may omit: an empty narrative
// becomes EmptyNarrative and a missing turnAdvance becomes true.
func Sanitize(r Response) Response {
	if r.Narrative == "" {
		r.Narrative = EmptyNarrative
	}
	if r.Delta.TurnAdvance == nil {
		advance := true
		r.Delta.TurnAdvance = &advance
	}
	return r
}
