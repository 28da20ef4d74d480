// Package feed merges a live newest-K window and a backward-paginated history
// into one ordered, deduplicated timeline.
package feed

import (
	"context"
	"errors"

	"chatfeed/internal/model"
)

// Errors reported by the merger.
var (
	// ErrFetchFailed wraps any error returned by the HistoryPager.
	ErrFetchFailed = errors.New("fetch history page failed")
	// ErrStaleCompletion classifies work that finished after Close; it is logged, never returned.
	ErrStaleCompletion = errors.New("completion after teardown")
	// ErrMalformedItem marks items without a usable id or timestamp.
	ErrMalformedItem = errors.New("malformed item")
)

// LoadState tracks history paging progress.
type LoadState int

// Load states. Exhausted is terminal.
const (
	Idle LoadState = iota
	Loading
	Exhausted
)

func (s LoadState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// Subscription delivers full snapshots of the newest window, newest first.
type Subscription interface {
	Snapshots() <-chan []model.Item
	Cancel()
}

// LiveTail opens push subscriptions to the newest size items of the feed.
type LiveTail interface {
	Subscribe(ctx context.Context, size int) (Subscription, error)
}

// HistoryPager fetches up to size items strictly older than cursor, newest first.
// A nil cursor means the newest page. An empty result signals exhaustion.
type HistoryPager interface {
	FetchPage(ctx context.Context, cursor *model.Item, size int) ([]model.Item, error)
}

// Result summarizes one merge.
type Result struct {
	Added     int
	Refreshed int
	Dropped   int
}

// Changed reports whether the timeline was modified.
func (r Result) Changed() bool {
	return r.Added > 0 || r.Refreshed > 0
}
