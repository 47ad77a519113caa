// Package simulate runs offline pair-selection experiments against the
// ranking service using a synthetic judge.
package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/aptrank/internal/domain/selector"
)

// Defaults.
const (
	DefaultItems  = 30
	DefaultRounds = 300
	DefaultNoise  = 0.1
)

// ErrInvalidConfig is returned for unusable experiment parameters.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds the parameters of one experiment.
type Config struct {
	Items      int                 // Number of synthetic listings
	Rounds     int                 // Comparisons per strategy
	Noise      float64             // Judge temperature; larger is noisier
	Seed       int64               // Seed for utilities, judge and selector
	Strategies []selector.Strategy // Strategies to compare; empty means all
	K          float64             // Rating K factor; 0 keeps the default
	Window     int                 // Recent-match window
	Threshold  int                 // Coverage threshold
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		Items:     DefaultItems,
		Rounds:    DefaultRounds,
		Noise:     DefaultNoise,
		Seed:      1,
		Window:    selector.DefaultWindow,
		Threshold: selector.DefaultCoverageThreshold,
	}
}

func (c Config) validate() error {
	switch {
	case c.Items < 2:
		return fmt.Errorf("%w: need at least 2 items, got %d", ErrInvalidConfig, c.Items)
	case c.Rounds < 0:
		return fmt.Errorf("%w: rounds must not be negative", ErrInvalidConfig)
	case c.Noise <= 0:
		return fmt.Errorf("%w: noise must be positive", ErrInvalidConfig)
	case c.K < 0:
		return fmt.Errorf("%w: k must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) strategies() []selector.Strategy {
	if len(c.Strategies) == 0 {
		return selector.Strategies()
	}
	return c.Strategies
}
