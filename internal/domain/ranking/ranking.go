// Package ranking turns the rating table into ordered standings.
package ranking

import (
	"cmp"
	"slices"

	"github.com/okian/aptrank/internal/domain/model"
	"github.com/okian/aptrank/internal/domain/types"
)

// Ratings is the read side of the rating table.
type Ratings interface {
	Get(key string) float64
}

// Compute sorts items by rating, highest first. Equal ratings keep the order
// of items; ranks are 1-based positions.
func Compute(items []model.Item, ratings Ratings) []types.Entry {
	entries := make([]types.Entry, len(items))
	for i, it := range items {
		entries[i] = types.Entry{
			Key:     it.Key,
			Rating:  ratings.Get(it.Key),
			Listing: types.ListingOf(it),
		}
	}
	slices.SortStableFunc(entries, func(a, b types.Entry) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
