package repository

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/okian/aptrank/internal/domain/model"
)

// MemoryStore keeps state in process. It backs tests, the simulator and
// sessions started without a database path.
type MemoryStore struct {
	mu       sync.Mutex
	ratings  map[string]float64
	outcomes []model.Outcome
	saves    int
	// FailSave, when set, is returned by Save.
	FailSave error
}

// NewMemoryStore creates a store, optionally pre-populated.
func NewMemoryStore(seed Snapshot) *MemoryStore {
	return &MemoryStore{
		ratings:  maps.Clone(seed.Ratings),
		outcomes: slices.Clone(seed.Outcomes),
	}
}

// Load returns a copy of the stored state.
func (m *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := maps.Clone(m.ratings)
	if r == nil {
		r = make(map[string]float64)
	}
	return Snapshot{Ratings: r, Outcomes: slices.Clone(m.outcomes)}, nil
}

// Save replaces the ratings and appends outcomes beyond those already held.
func (m *MemoryStore) Save(_ context.Context, ratings map[string]float64, outcomes []model.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	m.ratings = maps.Clone(ratings)
	if len(outcomes) > len(m.outcomes) {
		m.outcomes = append(m.outcomes, outcomes[len(m.outcomes):]...)
	}
	m.saves++
	return nil
}

// Saves returns how many successful saves happened.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
