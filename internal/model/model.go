// Package model defines the domain types used across the application.
package model

import "time"

// Item is a single feed entry.
type Item struct {
	ID        string
	AuthorID  string
	CreatedAt time.Time
	Body      string
}

// Valid reports whether the item carries a usable id and timestamp.
func (it Item) Valid() bool {
	return it.ID != "" && !it.CreatedAt.IsZero()
}

// Before reports whether it sorts ahead of other in display order
// (newest first, ties broken by descending ID).
func (it Item) Before(other Item) bool {
	if !it.CreatedAt.Equal(other.CreatedAt) {
		return it.CreatedAt.After(other.CreatedAt)
	}
	return it.ID > other.ID
}

// SameKey reports whether both items occupy the same sort position.
func (it Item) SameKey(other Item) bool {
	return it.ID == other.ID && it.CreatedAt.Equal(other.CreatedAt)
}

// Equal compares all fields; CreatedAt is compared as an instant.
func (it Item) Equal(other Item) bool {
	return it.SameKey(other) && it.AuthorID == other.AuthorID && it.Body == other.Body
}
