// Package selector chooses the next pair of items to compare.
package selector

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"time"
)

// Defaults for the recent-match window and the coverage threshold.
const (
	DefaultWindow            = 5
	DefaultCoverageThreshold = 2
)

// Ratings is the read side of the rating table.
type Ratings interface {
	Get(key string) float64
}

// History is the read side of the match ledger.
type History interface {
	WasMatched(a, b string, withinLastN int) bool
	Appearances() map[string]int
}

// Pair is a selected comparison. Strategy is the heuristic that actually
// produced it, which differs from the requested one after a fallback.
type Pair struct {
	A, B     string
	Strategy Strategy
}

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithWindow sets how many recent outcomes make a pair "recently matched".
func WithWindow(n int) Option {
	return func(s *Selector) {
		if n >= 0 {
			s.window = n
		}
	}
}

// WithCoverageThreshold sets the appearance count at or below which an item
// counts as under-covered.
func WithCoverageThreshold(n int) Option {
	return func(s *Selector) {
		if n >= 0 {
			s.threshold = n
		}
	}
}

// WithRand injects the random source used by the Random strategy.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// Selector dispatches a Strategy to its heuristic. It is not safe for
// concurrent use because of the random source.
type Selector struct {
	window    int
	threshold int
	rng       *rand.Rand
}

// New creates a Selector.
func New(opts ...Option) *Selector {
	s := &Selector{
		window:    DefaultWindow,
		threshold: DefaultCoverageThreshold,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // not security sensitive
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select picks two distinct keys from keys, which must be in the items'
// original order.
func (s *Selector) Select(strategy Strategy, keys []string, ratings Ratings, history History) (Pair, error) {
	if len(keys) < 2 {
		return Pair{}, ErrNotEnoughItems
	}
	switch strategy {
	case Random:
		return s.random(keys), nil
	case Active:
		return s.active(keys, ratings, history), nil
	case Balanced:
		return s.balanced(keys, ratings, history), nil
	default:
		return Pair{}, ErrUnknownStrategy
	}
}

// random draws two distinct indices uniformly without replacement.
func (s *Selector) random(keys []string) Pair {
	i := s.rng.Intn(len(keys))
	j := s.rng.Intn(len(keys) - 1)
	if j >= i {
		j++
	}
	return Pair{A: keys[i], B: keys[j], Strategy: Random}
}

// active picks the closest-rated pair not matched recently; the first pair
// found in ascending index order wins ties.
func (s *Selector) active(keys []string, ratings Ratings, history History) Pair {
	best := Pair{}
	bestDiff := math.Inf(1)
	for i := 0; i < len(keys); i++ {
		ri := ratings.Get(keys[i])
		for j := i + 1; j < len(keys); j++ {
			if history.WasMatched(keys[i], keys[j], s.window) {
				continue
			}
			if d := math.Abs(ri - ratings.Get(keys[j])); d < bestDiff {
				bestDiff = d
				best = Pair{A: keys[i], B: keys[j], Strategy: Active}
			}
		}
	}
	if math.IsInf(bestDiff, 1) {
		return s.random(keys)
	}
	return best
}

// balanced pairs up the least-seen items first.
func (s *Selector) balanced(keys []string, ratings Ratings, history History) Pair {
	counts := history.Appearances()

	type candidate struct {
		key   string
		index int
		count int
	}
	var pool []candidate
	for i, k := range keys {
		if c := counts[k]; c <= s.threshold {
			pool = append(pool, candidate{key: k, index: i, count: c})
		}
	}
	slices.SortFunc(pool, func(a, b candidate) int {
		return cmp.Or(cmp.Compare(a.count, b.count), cmp.Compare(a.index, b.index))
	})

	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			if !history.WasMatched(pool[i].key, pool[j].key, s.window) {
				return Pair{A: pool[i].key, B: pool[j].key, Strategy: Balanced}
			}
		}
	}
	return s.active(keys, ratings, history)
}
