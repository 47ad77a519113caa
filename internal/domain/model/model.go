// Package model contains domain models passed between layers.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Field is one spreadsheet cell, kept in column order for display and export.
type Field struct {
	Name  string
	Value string
}

// Item is a comparable listing identified by a stable key.
type Item struct {
	Key     string  // KeyFor(Link)
	Link    string  // listing URL, the canonical identifier
	Address string  // free-form address used for geocoding
	Fields  []Field // every source column, in source order
}

// KeyFor derives the item key from a listing link. The key is the hex SHA-256
// of the trimmed link, so it stays valid across runs and persisted sessions.
func KeyFor(link string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(link)))
	return hex.EncodeToString(sum[:])
}

// Outcome is one recorded comparison.
type Outcome struct {
	ID           string
	WinnerKey    string
	LoserKey     string
	WinnerBefore float64
	LoserBefore  float64
	WinnerAfter  float64
	LoserAfter   float64
	At           time.Time
}

// Involves reports whether key took part in the comparison.
func (o Outcome) Involves(key string) bool {
	return o.WinnerKey == key || o.LoserKey == key
}

// Connects reports whether the outcome is between a and b, in either order.
func (o Outcome) Connects(a, b string) bool {
	return (o.WinnerKey == a && o.LoserKey == b) || (o.WinnerKey == b && o.LoserKey == a)
}
