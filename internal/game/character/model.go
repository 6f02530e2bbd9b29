// Package character defines the player character domain model: vitals,
// attribute scores, abilities with cooldowns, and equipment.
package character

// Vital is a bounded current/max resource such as hit points.
//
// Invariant: 0 <= Current <= Max after every mutation made through this package.
type Vital struct {
	Current int `json:"current" yaml:"current"`
	Max     int `json:"max" yaml:"max"`
}

// Clamp returns v with Current forced into [0, Max].
func (v Vital) Clamp() Vital {
	if v.Current < 0 {
		v.Current = 0
	}
	if v.Current > v.Max {
		v.Current = v.Max
	}
	return v
}

// Damage returns v reduced by amount, floored at zero.
//
// Precondition: amount >= 0.
func (v Vital) Damage(amount int) Vital {
	v = v.Clamp()
	if amount >= v.Current {
		v.Current = 0
		return v
	}
	v.Current -= amount
	return v
}

// Heal returns v increased by amount, capped at Max.
//
// Precondition: amount >= 0.
func (v Vital) Heal(amount int) Vital {
	v = v.Clamp()
	if amount >= v.Max-v.Current {
		v.Current = v.Max
		return v
	}
	v.Current += amount
	return v
}

// Depleted reports whether Current has reached zero.
func (v Vital) Depleted() bool { return v.Current <= 0 }

// Stats holds the four attribute scores, nominally 1-20.
type Stats struct {
	Might   int `json:"might" yaml:"might"`
	Agility int `json:"agility" yaml:"agility"`
	Wit     int `json:"wit" yaml:"wit"`
	Heart   int `json:"heart" yaml:"heart"`
}

// Modifier computes the attribute modifier using floor division: floor((score - 10) / 2).
func Modifier(score int) int {
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// Ability is an active power with a cooldown measured in player turns.
//
// Invariant: Cooldown >= 0 and CurrentCooldown >= 0. The ability is usable iff
// CurrentCooldown == 0.
type Ability struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	Description     string `json:"description" yaml:"description"`
	Cooldown        int    `json:"cooldown" yaml:"cooldown"`
	CurrentCooldown int    `json:"currentCooldown" yaml:"current_cooldown"`
	// Effect is free text consumed only by the narrator.
	Effect string `json:"effect" yaml:"effect"`
}

// Ready reports whether the ability can be used this turn.
func (a Ability) Ready() bool { return a.CurrentCooldown == 0 }

// Category is the equipment slot family.
type Category string

const (
	CategoryWeapon     Category = "weapon"
	CategoryArmor      Category = "armor"
	CategoryAccessory  Category = "accessory"
	CategoryConsumable Category = "consumable"
)

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWeapon, CategoryArmor, CategoryAccessory, CategoryConsumable:
		return true
	}
	return false
}

// Equipment is a single owned item. Several items may be equipped at once.
type Equipment struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Type        Category `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`
	Equipped    bool     `json:"equipped" yaml:"equipped"`
}

// Character is the player-controlled combatant.
type Character struct {
	ID        string      `json:"id" yaml:"id"`
	Name      string      `json:"name" yaml:"name"`
	Class     string      `json:"class" yaml:"class"`
	Level     int         `json:"level" yaml:"level"`
	Stats     Stats       `json:"stats" yaml:"stats"`
	HP        Vital       `json:"hp" yaml:"hp"`
	Abilities []Ability   `json:"abilities" yaml:"abilities"`
	Equipment []Equipment `json:"equipment" yaml:"equipment"`
	Portrait  string      `json:"portrait,omitempty" yaml:"portrait"`
}

// Clone returns a deep copy of c.
func (c Character) Clone() Character {
	out := c
	out.Abilities = append([]Ability(nil), c.Abilities...)
	out.Equipment = append([]Equipment(nil), c.Equipment...)
	return out
}

// Ability looks up an ability by id.
//
// Postcondition: Returns (ability, true) if found, or (zero, false) otherwise.
func (c Character) Ability(id string) (Ability, bool) {
	for _, a := range c.Abilities {
		if a.ID == id {
			return a, true
		}
	}
	return Ability{}, false
}

// EquippedItems returns the items currently equipped, in collection order.
func (c Character) EquippedItems() []Equipment {
	var out []Equipment
	for _, e := range c.Equipment {
		if e.Equipped {
			out = append(out, e)
		}
	}
	return out
}
