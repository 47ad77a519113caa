// Package rating implements the ELO update and the rating table it feeds.
package rating

import (
	"math"
)

// Defaults shared process-wide.
const (
	DefaultK      = 32.0
	DefaultRating = 1000.0

	// logisticScale is the rating gap at which the favourite is expected to
	// win ten times as often as the underdog.
	logisticScale = 400.0
)

// Expected returns the probability that a player rated self beats one rated other.
func Expected(self, other float64) float64 {
	return 1 / (1 + math.Pow(10, (other-self)/logisticScale))
}

// Update returns the post-match ratings of the winner and the loser.
func Update(winner, loser, k float64) (float64, float64) {
	expectedWinner := Expected(winner, loser)
	expectedLoser := Expected(loser, winner)
	return winner + k*(1-expectedWinner), loser - k*expectedLoser
}

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithK sets the K-factor. Non-positive values are ignored.
func WithK(k float64) Option {
	return func(m *Model) {
		if k > 0 {
			m.k = k
		}
	}
}

// WithInitialRating sets the rating assigned to unseen items.
func WithInitialRating(r float64) Option {
	return func(m *Model) {
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			m.initial = r
		}
	}
}

// Model carries the K-factor and initial rating used for every update.
type Model struct {
	k       float64
	initial float64
}

// NewModel creates a Model with DefaultK and DefaultRating unless overridden.
func NewModel(opts ...Option) Model {
	m := Model{k: DefaultK, initial: DefaultRating}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// K returns the K-factor.
func (m Model) K() float64 { return m.k }

// Initial returns the rating of an unseen item.
func (m Model) Initial() float64 { return m.initial }

// Update applies the model's K-factor.
func (m Model) Update(winner, loser float64) (float64, float64) {
	return Update(winner, loser, m.k)
}

// NewTable returns an empty table using the model's initial rating.
func (m Model) NewTable() *Table {
	return NewTable(m.initial)
}
