package service

import (
	"context"
	"slices"

	"github.com/okian/aptrank/internal/domain/model"
	"github.com/okian/aptrank/internal/domain/types"
)

// ItemSource supplies the listings to rank.
type ItemSource interface {
	Load(ctx context.Context) ([]model.Item, error)
}

// StaticItems is an ItemSource over a fixed slice.
type StaticItems []model.Item

// Load returns a copy of the items.
func (s StaticItems) Load(_ context.Context) ([]model.Item, error) {
	return slices.Clone(s), nil
}

// Exporter writes the current rankings somewhere after each recorded match.
type Exporter interface {
	Export(ctx context.Context, entries []types.Entry) error
}
