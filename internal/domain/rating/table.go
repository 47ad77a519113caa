package rating

import "maps"

// Table maps item keys to current ratings. Unknown keys read as the default
// rating; they are only stored once Ensure or Set is called.
type Table struct {
	initial float64
	ratings map[string]float64
}

// NewTable creates an empty table.
func NewTable(initial float64) *Table {
	return &Table{initial: initial, ratings: make(map[string]float64)}
}

// Get returns the rating for key, or the default for unknown keys.
func (t *Table) Get(key string) float64 {
	if r, ok := t.ratings[key]; ok {
		return r
	}
	return t.initial
}

// Ensure stores the default rating for key if it has none and returns the
// current rating.
func (t *Table) Ensure(key string) float64 {
	if r, ok := t.ratings[key]; ok {
		return r
	}
	t.ratings[key] = t.initial
	return t.initial
}

// Set stores a rating.
func (t *Table) Set(key string, r float64) {
	t.ratings[key] = r
}

// Len returns the number of stored ratings.
func (t *Table) Len() int { return len(t.ratings) }

// Initial returns the default rating.
func (t *Table) Initial() float64 { return t.initial }

// Snapshot returns a copy of the stored ratings.
func (t *Table) Snapshot() map[string]float64 {
	return maps.Clone(t.ratings)
}

// Replace swaps in a persisted set of ratings.
func (t *Table) Replace(ratings map[string]float64) {
	t.ratings = make(map[string]float64, len(ratings))
	maps.Copy(t.ratings, ratings)
}
