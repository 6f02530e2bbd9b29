package session

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/questweaver/internal/game/character"
	"github.com/cory-johannsen/questweaver/internal/narrator"
)

// Action is a player command.
type Action struct {
	Type      narrator.ActionKind `json:"type"`
	AbilityID string              `json:"abilityId,omitempty"`
	Text      string              `json:"text,omitempty"`
}

// QuickAction is one button of the action bar.
type QuickAction struct {
	ID        string              `json:"id"`
	Label     string              `json:"label"`
	Icon      string              `json:"icon"`
	Type      narrator.ActionKind `json:"type"`
	AbilityID string              `json:"abilityId,omitempty"`
	Disabled  bool                `json:"disabled,omitempty"`
}

var abilityIcons = map[string]string{
	"power-strike": "💥",
	"shield-bash":  "🛡️",
	"rally":        "💪",
}

// QuickActions lists attack, one entry per ability and defend, in that order.
// Abilities still cooling down are disabled.
func QuickActions(c character.Character) []QuickAction {
	out := make([]QuickAction, 0, len(c.Abilities)+2)
	out = append(out, QuickAction{ID: "attack", Label: "Attack", Icon: "⚔️", Type: narrator.ActionAttack})
	for _, a := range c.Abilities {
		icon, ok := abilityIcons[a.ID]
		if !ok {
			icon = "📢"
		}
		out = append(out, QuickAction{
			ID:        a.ID,
			Label:     a.Name,
			Icon:      icon,
			Type:      narrator.ActionAbility,
			AbilityID: a.ID,
			Disabled:  !a.Ready(),
		})
	}
	out = append(out, QuickAction{ID: "defend", Label: "Defend", Icon: "🛡️", Type: narrator.ActionDefend})
	return out
}

// resolveAction checks a against the character and returns the text shown in
// the history.
//
// Postcondition: Returns ErrAbilityOnCooldown for a cooling ability,
// ErrInvalidAction for an unknown kind, ability or empty custom text.
func resolveAction(c character.Character, a Action) (string, error) {
	switch a.Type {
	case narrator.ActionAttack:
		if w, ok := equippedWeapon(c); ok {
			return fmt.Sprintf("Attacks with %s!", w.Name), nil
		}
		return "Attacks!", nil
	case narrator.ActionAbility:
		ab, ok := c.Ability(a.AbilityID)
		if !ok {
			return "", fmt.Errorf("%w: unknown ability %q", ErrInvalidAction, a.AbilityID)
		}
		if !ab.Ready() {
			return "", fmt.Errorf("%w: %s (%d turns)", ErrAbilityOnCooldown, ab.Name, ab.CurrentCooldown)
		}
		return fmt.Sprintf("Uses %s!", ab.Name), nil
	case narrator.ActionDefend:
		return "Takes a defensive stance", nil
	case narrator.ActionCustom:
		text := strings.TrimSpace(a.Text)
		if text == "" {
			return "", fmt.Errorf("%w: empty text", ErrInvalidAction)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidAction, a.Type)
}

func equippedWeapon(c character.Character) (character.Equipment, bool) {
	for _, e := range c.EquippedItems() {
		if e.Type == character.CategoryWeapon {
			return e, true
		}
	}
	return character.Equipment{}, false
}

// rollsForAction reports whether the action kind resolves with a d20 check.
func rollsForAction(kind narrator.ActionKind) bool {
	return kind == narrator.ActionAttack || kind == narrator.ActionAbility
}
