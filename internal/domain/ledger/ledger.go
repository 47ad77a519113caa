// Package ledger keeps the append-only history of comparison outcomes.
package ledger

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/okian/aptrank/internal/domain/model"
)

// Ledger is an ordered, append-only sequence of outcomes. It is not safe for
// concurrent use; the owning service serializes access.
type Ledger struct {
	outcomes []model.Outcome
	now      func() time.Time
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source for outcomes recorded without one.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a ledger, optionally seeded with persisted outcomes in
// chronological order.
func New(history []model.Outcome, opts ...Option) *Ledger {
	l := &Ledger{
		outcomes: slices.Clone(history),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends an outcome, filling in the ID and timestamp when missing,
// and returns the stored value.
func (l *Ledger) Record(o model.Outcome) model.Outcome {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.At.IsZero() {
		o.At = l.now()
	}
	l.outcomes = append(l.outcomes, o)
	return o
}

// Len returns the number of recorded outcomes.
func (l *Ledger) Len() int { return len(l.outcomes) }

// Recent returns up to the last n outcomes in chronological order.
func (l *Ledger) Recent(n int) []model.Outcome {
	if n <= 0 {
		return []model.Outcome{}
	}
	start := max(len(l.outcomes)-n, 0)
	return slices.Clone(l.outcomes[start:])
}

// All returns a copy of the full history.
func (l *Ledger) All() []model.Outcome {
	return slices.Clone(l.outcomes)
}

// WasMatched reports whether a and b met, in either order, within the last
// withinLastN outcomes.
func (l *Ledger) WasMatched(a, b string, withinLastN int) bool {
	if withinLastN <= 0 {
		return false
	}
	start := max(len(l.outcomes)-withinLastN, 0)
	for _, o := range l.outcomes[start:] {
		if o.Connects(a, b) {
			return true
		}
	}
	return false
}

// Appearances counts, per key, how many outcomes involve it as winner or loser.
func (l *Ledger) Appearances() map[string]int {
	counts := make(map[string]int)
	for _, o := range l.outcomes {
		counts[o.WinnerKey]++
		counts[o.LoserKey]++
	}
	return counts
}
