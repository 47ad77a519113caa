package selector

import (
	"fmt"
	"strings"
)

// Strategy names a pair-selection heuristic.
type Strategy int

// Strategies.
const (
	Random Strategy = iota
	Active
	Balanced
)

// Strategies lists every strategy in display order.
func Strategies() []Strategy { return []Strategy{Random, Active, Balanced} }

func (s Strategy) String() string {
	switch s {
	case Random:
		return "random"
	case Active:
		return "active"
	case Balanced:
		return "balanced"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Next cycles through the strategies.
func (s Strategy) Next() Strategy {
	return Strategy((int(s) + 1) % len(Strategies()))
}

// ParseStrategy accepts the String form plus a few aliases.
func ParseStrategy(v string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "random":
		return Random, nil
	case "active", "active-learning", "active_learning", "smart":
		return Active, nil
	case "balanced", "balanced-coverage", "balanced_coverage", "coverage":
		return Balanced, nil
	default:
		return Random, fmt.Errorf("%w: %q", ErrUnknownStrategy, v)
	}
}
