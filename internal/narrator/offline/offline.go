// Package offline implements narrator.Narrator without a language model. It
// resolves actions with the dice engine and canned prose, so the game stays
// playable without an API key.
package offline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/game/dice"
	"github.com/cory-johannsen/questweaver/internal/game/state"
	"github.com/cory-johannsen/questweaver/internal/narrator"
)

const (
	// PlayerHitThreshold is the lowest kept d20 total that lands a player attack.
	PlayerHitThreshold = 12
	// EnemyHitThreshold is the lowest kept d20 total that lands an enemy attack.
	EnemyHitThreshold = 14
	// EnemyAttackModifier is added to enemy attack rolls made here.
	EnemyAttackModifier = 2
)

var (
	playerDamage = dice.MustParse("1d8+3")
	enemyDamage  = dice.MustParse("1d4+1")
	rallyHealing = dice.MustParse("2d6")
)

// Narrator resolves actions locally.
type Narrator struct {
	roller *dice.Roller
	logger *zap.Logger
}

// New returns an offline Narrator drawing damage rolls from roller.
//
// Precondition: roller and logger must not be nil.
func New(roller *dice.Roller, logger *zap.Logger) *Narrator {
	return &Narrator{roller: roller, logger: logger}
}

// Narrate resolves req with fixed hit thresholds and damage dice.
func (n *Narrator) Narrate(_ context.Context, req narrator.Request) (narrator.Response, error) {
	if err := narrator.Validate(req); err != nil {
		return narrator.Response{}, err
	}
	n.logger.Debug("resolving action offline",
		zap.String("action", req.Action),
		zap.Bool("enemy_turn", req.IsEnemyTurn),
		zap.String("enemy_id", req.EnemyID),
	)
	s := *req.GameState
	if req.IsEnemyTurn && req.EnemyID != "" {
		var enemy state.Enemy
		ok := false
		if s.Encounter != nil {
			enemy, ok = s.Encounter.Enemy(req.EnemyID)
		}
		if !ok {
			return narrator.Response{}, fmt.Errorf("enemy %q: %w", req.EnemyID, narrator.ErrUnknownEnemy)
		}
		return n.enemyTurn(enemy, req.RollResult), nil
	}

	switch kindOf(req) {
	case narrator.ActionAbility:
		return n.ability(s, req), nil
	case narrator.ActionAttack:
		return n.attack(s, req.RollResult, ""), nil
	case narrator.ActionDefend:
		return respond("You raise your shield and brace yourself, ready to deflect incoming attacks. (+2 AC until your next turn)", state.Delta{}), nil
	default:
		return respond(fmt.Sprintf("You %s. The battlefield pauses for a heartbeat, unsure what to make of it.", req.Action), state.Delta{}), nil
	}
}

func kindOf(req narrator.Request) narrator.ActionKind {
	switch {
	case req.Kind != "":
		return req.Kind
	case req.AbilityID != "":
		return narrator.ActionAbility
	case req.RollResult != nil:
		return narrator.ActionAttack
	default:
		return narrator.ActionCustom
	}
}

func (n *Narrator) enemyTurn(enemy state.Enemy, roll *narrator.RollSummary) narrator.Response {
	total := n.keptOrRoll(roll, EnemyAttackModifier)
	if total < EnemyHitThreshold {
		return respond(fmt.Sprintf("The %s lunges, but you deflect the blow with your shield, sending it stumbling.", enemy.Name), state.Delta{})
	}
	dmg := n.roller.RollNotation(enemyDamage).Kept()
	return respond(
		fmt.Sprintf("The %s strikes true! You take %d damage.", enemy.Name, dmg),
		state.Delta{PlayerDamage: &dmg},
	)
}

func (n *Narrator) attack(s state.GameState, roll *narrator.RollSummary, abilityID string) narrator.Response {
	var d state.Delta
	if abilityID != "" {
		d.AbilityUsed = &abilityID
	}
	target, ok := firstLiving(s)
	if !ok {
		return respond("You swing at empty air. There is nobody left to fight.", d)
	}
	if n.keptOrRoll(roll, 0) < PlayerHitThreshold {
		return respond(fmt.Sprintf("Your swing goes wide as the %s ducks beneath your blade with a mocking cackle.", target.Name), d)
	}
	dmg := n.roller.RollNotation(playerDamage).Kept()
	d.EnemyDamage = []state.EnemyDamage{{EnemyID: target.ID, Damage: dmg}}
	if dmg >= target.HP.Current {
		d.EnemyDefeated = []string{target.ID}
		return respond(fmt.Sprintf("Your blade finds its mark! The %s takes %d damage and collapses in a heap.", target.Name, dmg), d)
	}
	return respond(fmt.Sprintf("Your blade finds its mark! The %s takes %d damage and staggers backward, hissing in pain.", target.Name, dmg), d)
}

func (n *Narrator) ability(s state.GameState, req narrator.Request) narrator.Response {
	if req.AbilityID == "rally" {
		heal := n.roller.RollNotation(rallyHealing).Kept()
		id := req.AbilityID
		return respond(
			fmt.Sprintf("You steel yourself and draw a deep breath, recovering %d HP.", heal),
			state.Delta{PlayerHealing: &heal, AbilityUsed: &id},
		)
	}
	return n.attack(s, req.RollResult, req.AbilityID)
}

func (n *Narrator) keptOrRoll(roll *narrator.RollSummary, modifier int) int {
	if roll != nil {
		return roll.Kept()
	}
	return n.roller.RollD20(modifier).Kept()
}

func firstLiving(s state.GameState) (state.Enemy, bool) {
	if s.Encounter == nil {
		return state.Enemy{}, false
	}
	living := s.Encounter.LivingEnemies()
	if len(living) == 0 {
		return state.Enemy{}, false
	}
	return living[0], true
}

func respond(text string, d state.Delta) narrator.Response {
	return narrator.Sanitize(narrator.Response{Narrative: text, Delta: d})
}
