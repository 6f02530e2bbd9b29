package narrator

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/questweaver/internal/game/state"
)

// SystemPrompt defines the dungeon master persona and the JSON reply contract.
const SystemPrompt = `You are a fun, light-hearted Dungeon Master for a D&D-style adventure game called QuestWeaver. Your role is to narrate combat encounters in an engaging, slightly humorous way while keeping the game casual and accessible.

## Your Personality
- Enthusiastic and encouraging: celebrate cool moments!
- Slightly snarky humor: poke fun at both heroes and monsters
- Keep things light even in "danger"; this is fun, not stressful
- Use vivid, punchy descriptions (2-3 sentences max per beat)
- Occasional 4th-wall winks are fine

## Combat Rules
- The player has already rolled dice; use the roll result they provide
- Describe the action cinematically based on success or failure
- Be generous with hits (12+ on d20 hits, 8+ for abilities)
- Enemies should feel threatening but beatable
- Deaths are dramatic but not graphic
- Always move the story forward

## Response Format
You MUST respond with valid JSON in this exact format:
{
  "narrative": "Your exciting narration here (2-4 sentences)",
  "delta": {
    "playerDamage": number or null,
    "playerHealing": number or null,
    "enemyDamage": [{"enemyId": "goblin-1", "damage": number}] or null,
    "enemyDefeated": ["goblin-1"] or null,
    "abilityUsed": "power-strike" or null (use the exact ability ID from character abilities),
    "cooldownsUpdated": [{"abilityId": "power-strike", "cooldown": 2}] or null,
    "turnAdvance": true,
    "encounterStatus": "active" or "victory" or "defeat"
  }
}

IMPORTANT: Use the exact IDs provided in the game state (e.g., "goblin-1", "power-strike"), not the display names!

## Damage Guidelines
- Basic attack: 4-10 damage on hit
- Power Strike: 8-15 damage
- Shield Bash: 3-6 damage + skip enemy turn
- Enemy attacks: 2-6 damage typically
- Goblin Brute: 4-8 damage

## Victory/Defeat
- Set encounterStatus to "victory" when all enemies reach 0 HP
- Set encounterStatus to "defeat" if player HP reaches 0
- Give a satisfying ending narration for either outcome

Remember: Keep it FUN! This is a casual adventure, not a grueling survival game.`

// Acknowledgement is the model turn that follows SystemPrompt for backends
// without a dedicated system-instruction slot.
const Acknowledgement = "Understood! I'm ready to be your fun, engaging Dungeon Master. I'll respond with proper JSON format for all game actions. Let's make this adventure epic! 🎲"

// BuildContext renders the game snapshot for the model: hero, equipped items,
// ability readiness, enemies, whose turn it is and the last historyWindow
// history messages. A non-positive window omits history.
func BuildContext(s state.GameState, historyWindow int) string {
	var b strings.Builder
	c := s.Character

	b.WriteString("## Current Game State\n\n")
	fmt.Fprintf(&b, "### Hero: %s (%s Level %d)\n", c.Name, c.Class, c.Level)
	fmt.Fprintf(&b, "- HP: %d/%d\n", c.HP.Current, c.HP.Max)
	fmt.Fprintf(&b, "- Stats: Might %d, Agility %d, Wit %d, Heart %d\n",
		c.Stats.Might, c.Stats.Agility, c.Stats.Wit, c.Stats.Heart)

	equipped := c.EquippedItems()
	names := make([]string, len(equipped))
	for i, e := range equipped {
		names[i] = e.Name
	}
	fmt.Fprintf(&b, "- Equipment: %s\n", strings.Join(names, ", "))
	b.WriteString("- Abilities:\n")
	for _, a := range c.Abilities {
		ready := "✓ Ready"
		if !a.Ready() {
			ready = fmt.Sprintf("(%d turns)", a.CurrentCooldown)
		}
		fmt.Fprintf(&b, "  - %s (id: %q): %s %s\n", a.Name, a.ID, a.Effect, ready)
	}

	if enc := s.Encounter; enc != nil {
		fmt.Fprintf(&b, "\n### Encounter: %s\n", enc.Name)
		fmt.Fprintf(&b, "Round %d\n\n", enc.Round)
		b.WriteString("### Enemies:\n")
		for _, en := range enc.Enemies {
			status := fmt.Sprintf("HP: %d/%d", en.HP.Current, en.HP.Max)
			if en.IsDefeated() {
				status = "💀 DEFEATED"
			}
			fmt.Fprintf(&b, "- %s (%s): %s\n", en.Name, en.ID, status)
			fmt.Fprintf(&b, "  Threat: %s\n", en.Threat)
			fmt.Fprintf(&b, "  Can use: %s\n", strings.Join(en.Abilities, ", "))
		}
		current := "Unknown"
		if who, ok := state.CurrentTurnEntity(s); ok {
			current = who.Name
		}
		fmt.Fprintf(&b, "\n### Current Turn: %s\n", current)
	}

	history := s.History
	if historyWindow <= 0 {
		history = nil
	} else if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	if len(history) > 0 {
		b.WriteString("\n### Recent Events:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", senderLabel(m.Sender), m.Content)
		}
	}
	return b.String()
}

func senderLabel(s state.Sender) string {
	switch s {
	case state.SenderPlayer:
		return "🎮 Player"
	case state.SenderDM:
		return "📜 DM"
	default:
		return "⚙️ System"
	}
}

// verdict labels a roll total. Player and enemy rolls share the bands but not
// the words.
func verdict(total int, enemy bool) string {
	switch {
	case total >= 18 && enemy:
		return "DEVASTATING!"
	case total >= 18:
		return "EXCELLENT!"
	case total >= 12:
		return "Hit!"
	case total <= 5 && enemy:
		return "Fumble!"
	case total <= 5:
		return "Yikes!"
	default:
		return "Miss"
	}
}

func writeRoll(b *strings.Builder, roll *RollSummary, enemy bool) {
	if roll == nil {
		return
	}
	total := roll.Kept()
	fmt.Fprintf(b, "\nDice Roll: %s = %d (%s)", roll.Dice, total, verdict(total, enemy))
}

// BuildActionPrompt renders a player action and its optional roll.
func BuildActionPrompt(action string, roll *RollSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n## Player Action\n%s\n", action)
	writeRoll(&b, roll, false)
	b.WriteString("\n\nRespond with the JSON format specified. Be creative and fun!")
	return b.String()
}

// BuildEnemyTurnPrompt renders an enemy's turn and its optional roll.
func BuildEnemyTurnPrompt(enemy state.Enemy, s state.GameState, roll *RollSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n## Enemy Turn: %s\n\n", enemy.Name)
	fmt.Fprintf(&b, "The %s takes their turn. They can use: %s.\n\n", enemy.Name, strings.Join(enemy.Abilities, ", "))
	b.WriteString("Current state:\n")
	fmt.Fprintf(&b, "- %s HP: %d/%d\n", enemy.Name, enemy.HP.Current, enemy.HP.Max)
	fmt.Fprintf(&b, "- Player HP: %d/%d\n", s.Character.HP.Current, s.Character.HP.Max)
	writeRoll(&b, roll, true)

	damage := "2-5"
	if enemy.Name == "Goblin Brute" {
		damage = "4-8"
	}
	b.WriteString("\n\nNarrate the enemy's attack based on the dice roll result above. Make it dramatic!\n")
	fmt.Fprintf(&b, "Keep damage reasonable (%s damage on hit).\n\n", damage)
	b.WriteString("Respond with the JSON format specified.")
	return b.String()
}

// BuildPrompt assembles the full user prompt for req.
//
// Precondition: Validate(req) == nil.
// Postcondition: Returns the prompt, or an error wrapping ErrUnknownEnemy when
// an enemy turn names an enemy that is not in the encounter.
func BuildPrompt(req Request, historyWindow int) (string, error) {
	s := *req.GameState
	head := BuildContext(s, historyWindow)
	if req.IsEnemyTurn && req.EnemyID != "" {
		enemy, ok := findEnemy(s, req.EnemyID)
		if !ok {
			return "", fmt.Errorf("enemy %q: %w", req.EnemyID, ErrUnknownEnemy)
		}
		return head + BuildEnemyTurnPrompt(enemy, s, req.RollResult), nil
	}
	return head + BuildActionPrompt(req.Action, req.RollResult), nil
}

func findEnemy(s state.GameState, id string) (state.Enemy, bool) {
	if s.Encounter == nil {
		return state.Enemy{}, false
	}
	return s.Encounter.Enemy(id)
}
