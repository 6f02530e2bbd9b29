package dice

import "go.uber.org/zap"

// Roller rolls dice from a Source and logs every roll at debug level with the
// label, individual results, modifier and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller that draws from src without logging.
//
// Precondition: src must be non-nil.
func NewRoller(src Source) *Roller {
	return &Roller{src: src, logger: zap.NewNop()}
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// RollDie returns a uniformly distributed face in [1, sides].
//
// Precondition: sides >= 1.
func (r *Roller) RollDie(sides int) int {
	return r.src.Intn(sides) + 1
}

// Roll parses notation and rolls it.
//
// Postcondition: len(result.Results) == Count; every result is in [1, Sides];
// result.Total == sum(result.Results); ModifiedTotal is set iff the modifier is nonzero.
// Returns an error wrapping ErrInvalidNotation for malformed input.
func (r *Roller) Roll(notation string) (Roll, error) {
	n, err := Parse(notation)
	if err != nil {
		return Roll{}, err
	}
	return r.RollNotation(n), nil
}

// RollNotation rolls an already parsed Notation.
//
// Precondition: n must come from Parse.
func (r *Roller) RollNotation(n Notation) Roll {
	results := make([]int, n.Count)
	total := 0
	for i := range results {
		results[i] = r.RollDie(n.Sides)
		total += results[i]
	}
	out := Roll{Dice: n.Raw, Results: results, Total: total}.withModifier(n.Modifier)
	r.log(out)
	return out
}

// RollD20 rolls a single d20 with the given modifier.
func (r *Roller) RollD20(modifier int) Roll {
	return r.RollNotation(Notation{
		Raw:      D20Notation(modifier),
		Count:    1,
		Sides:    20,
		Modifier: modifier,
	})
}

// RollWithAdvantage rolls two d20s and keeps the higher one.
//
// Postcondition: Results holds both raw dice in roll order; Total is the kept die.
func (r *Roller) RollWithAdvantage(modifier int) Roll {
	return r.rollPair("2d20 (advantage)", modifier, func(a, b int) int { return max(a, b) })
}

// RollWithDisadvantage rolls two d20s and keeps the lower one.
//
// Postcondition: Results holds both raw dice in roll order; Total is the kept die.
func (r *Roller) RollWithDisadvantage(modifier int) Roll {
	return r.rollPair("2d20 (disadvantage)", modifier, func(a, b int) int { return min(a, b) })
}

func (r *Roller) rollPair(label string, modifier int, keep func(a, b int) int) Roll {
	first := r.RollDie(20)
	second := r.RollDie(20)
	out := Roll{
		Dice:    label,
		Results: []int{first, second},
		Total:   keep(first, second),
	}.withModifier(modifier)
	r.log(out)
	return out
}

func (r *Roller) log(roll Roll) {
	fields := []zap.Field{
		zap.String("dice", roll.Dice),
		zap.Ints("results", roll.Results),
		zap.Int("total", roll.Total),
	}
	if roll.HasModifier() {
		fields = append(fields, zap.Int("modifier", *roll.Modifier), zap.Int("modified_total", roll.Kept()))
	}
	r.logger.Debug("dice roll", fields...)
}
