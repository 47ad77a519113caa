// Package repository persists the rating table and the match ledger.
package repository

import (
	"context"

	"github.com/okian/aptrank/internal/domain/model"
)

// Snapshot is the persisted state of a ranking session.
type Snapshot struct {
	Ratings  map[string]float64
	Outcomes []model.Outcome // chronological
}

// Store loads and saves ranking state. Save is called after every recorded
// outcome with the full table and ledger; implementations must keep the
// ledger append-only.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, ratings map[string]float64, outcomes []model.Outcome) error
	Close() error
}
