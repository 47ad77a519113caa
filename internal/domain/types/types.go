// Package types contains the read shapes shared by the service and its displays.
package types

import (
	"time"

	"github.com/okian/aptrank/internal/domain/model"
)

// Listing is the display form of an item.
type Listing struct {
	Key     string            `json:"key"`
	Link    string            `json:"link"`
	Address string            `json:"address,omitempty"`
	Columns []string          `json:"columns"`
	Fields  map[string]string `json:"fields"`
}

// Entry represents a rankings row.
type Entry struct {
	Rank    int     `json:"rank"`
	Key     string  `json:"key"`
	Rating  float64 `json:"rating"`
	Listing Listing `json:"listing"`
}

// Contender is one side of a proposed comparison.
type Contender struct {
	Rating      float64 `json:"rating"`
	Appearances int     `json:"appearances"`
	Listing     Listing `json:"listing"`
}

// Pair is a proposed comparison.
type Pair struct {
	Requested string    `json:"requested_strategy"`
	Strategy  string    `json:"strategy"`
	A         Contender `json:"a"`
	B         Contender `json:"b"`
}

// Match is the display form of an outcome.
type Match struct {
	ID           string    `json:"id"`
	Winner       string    `json:"winner"`
	Loser        string    `json:"loser"`
	WinnerBefore float64   `json:"winner_rating_before"`
	LoserBefore  float64   `json:"loser_rating_before"`
	WinnerAfter  float64   `json:"winner_rating_after"`
	LoserAfter   float64   `json:"loser_rating_after"`
	At           time.Time `json:"at"`
}

// ListingOf converts an item for display.
func ListingOf(it model.Item) Listing {
	l := Listing{
		Key:     it.Key,
		Link:    it.Link,
		Address: it.Address,
		Columns: make([]string, 0, len(it.Fields)),
		Fields:  make(map[string]string, len(it.Fields)),
	}
	for _, f := range it.Fields {
		l.Columns = append(l.Columns, f.Name)
		l.Fields[f.Name] = f.Value
	}
	return l
}

// MatchOf converts an outcome for display.
func MatchOf(o model.Outcome) Match {
	return Match{
		ID:           o.ID,
		Winner:       o.WinnerKey,
		Loser:        o.LoserKey,
		WinnerBefore: o.WinnerBefore,
		LoserBefore:  o.LoserBefore,
		WinnerAfter:  o.WinnerAfter,
		LoserAfter:   o.LoserAfter,
		At:           o.At,
	}
}
