package dice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidNotation is returned when a notation string does not match
// <count>d<sides>[(+|-)<modifier>].
var ErrInvalidNotation = errors.New("dice: invalid notation")

// MaxCount bounds the number of dice in a single notation so a hostile
// request cannot allocate unbounded result slices.
const MaxCount = 1000

var notationPattern = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// Notation is a parsed dice notation string ready to be rolled.
//
// Invariant: Count >= 1 and Sides >= 1 after a successful Parse.
type Notation struct {
	Raw      string // original input string
	Count    int    // number of dice
	Sides    int    // faces per die
	Modifier int    // flat modifier (may be negative or zero)
}

// Parse parses a notation such as "1d20", "2d6+3" or "4D8-2".
//
// Precondition: none; any string is accepted as input.
// Postcondition: Returns a Notation with Count >= 1 and Sides >= 1, or an error
// wrapping ErrInvalidNotation.
func Parse(notation string) (Notation, error) {
	m := notationPattern.FindStringSubmatch(strings.ToLower(notation))
	if m == nil {
		return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
	}

	count, err := strconv.Atoi(m[1])
	if err != nil {
		return Notation{}, fmt.Errorf("%w: die count in %q: %v", ErrInvalidNotation, notation, err)
	}
	if count < 1 || count > MaxCount {
		return Notation{}, fmt.Errorf("%w: die count in %q must be 1-%d", ErrInvalidNotation, notation, MaxCount)
	}

	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Notation{}, fmt.Errorf("%w: die sides in %q: %v", ErrInvalidNotation, notation, err)
	}
	if sides < 1 {
		return Notation{}, fmt.Errorf("%w: die sides in %q must be >= 1", ErrInvalidNotation, notation)
	}

	modifier := 0
	if m[3] != "" {
		modifier, err = strconv.Atoi(m[3])
		if err != nil {
			return Notation{}, fmt.Errorf("%w: modifier in %q: %v", ErrInvalidNotation, notation, err)
		}
	}

	return Notation{
		Raw:      notation,
		Count:    count,
		Sides:    sides,
		Modifier: modifier,
	}, nil
}

// MustParse parses notation and panics on error. Useful for package-level values.
//
// Precondition: notation must be valid.
func MustParse(notation string) Notation {
	n, err := Parse(notation)
	if err != nil {
		panic("dice: MustParse failed for notation " + notation + ": " + err.Error())
	}
	return n
}

// D20Notation returns the notation label for a single d20 with modifier,
// e.g. "1d20", "1d20+3", "1d20-2".
func D20Notation(modifier int) string {
	if modifier == 0 {
		return "1d20"
	}
	return fmt.Sprintf("1d20%+d", modifier)
}
