package character

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants of c.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Level >= 1,
// HP.Max >= 1 with 0 <= HP.Current <= HP.Max, ability and equipment ids are
// non-empty and unique, cooldowns are non-negative and equipment categories
// are known. Otherwise returns an error describing every violation.
func Validate(c Character) error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if c.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if c.Level < 1 {
		errs = append(errs, fmt.Errorf("level must be >= 1, got %d", c.Level))
	}
	if c.HP.Max < 1 {
		errs = append(errs, fmt.Errorf("hp.max must be >= 1, got %d", c.HP.Max))
	}
	if c.HP.Current < 0 || c.HP.Current > c.HP.Max {
		errs = append(errs, fmt.Errorf("hp.current must be within [0, %d], got %d", c.HP.Max, c.HP.Current))
	}

	seen := make(map[string]bool, len(c.Abilities))
	for _, a := range c.Abilities {
		switch {
		case a.ID == "":
			errs = append(errs, errors.New("ability id must not be empty"))
		case seen[a.ID]:
			errs = append(errs, fmt.Errorf("duplicate ability id %q", a.ID))
		}
		seen[a.ID] = true
		if a.Cooldown < 0 || a.CurrentCooldown < 0 {
			errs = append(errs, fmt.Errorf("ability %q: cooldowns must be >= 0", a.ID))
		}
	}

	seen = make(map[string]bool, len(c.Equipment))
	for _, e := range c.Equipment {
		switch {
		case e.ID == "":
			errs = append(errs, errors.New("equipment id must not be empty"))
		case seen[e.ID]:
			errs = append(errs, fmt.Errorf("duplicate equipment id %q", e.ID))
		}
		seen[e.ID] = true
		if !e.Type.Valid() {
			errs = append(errs, fmt.Errorf("equipment %q: unknown type %q", e.ID, e.Type))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("character %q: %w", c.ID, errors.Join(errs...))
	}
	return nil
}
