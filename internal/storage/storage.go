// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"chatfeed/internal/model"
)

// Storage is the interface for message persistence.
type Storage interface {
	// UpsertMessage inserts a message or refreshes an existing one with the
	// same ID. It reports whether a new row was created.
	UpsertMessage(ctx context.Context, msg *model.Item) (bool, error)
	// LatestMessages returns the newest limit messages, newest first.
	LatestMessages(ctx context.Context, limit int) ([]model.Item, error)
	// MessagesBefore returns up to limit messages that sort strictly after
	// cursor in display order, newest first.
	MessagesBefore(ctx context.Context, cursor model.Item, limit int) ([]model.Item, error)
	CountMessages(ctx context.Context) (int, error)

	Close() error
}
