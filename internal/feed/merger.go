package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"chatfeed/internal/model"
)

// Merger owns the timeline, the history cursor and the load state.
// All mutations go through one mutex; the history fetch runs outside it.
type Merger struct {
	pager    HistoryPager
	pageSize int
	log      *slog.Logger

	mu       sync.Mutex
	timeline *timeline
	cursor   *model.Item
	state    LoadState
	live     []model.Item
	closed   bool
	done     chan struct{}
}

// NewMerger creates an empty Merger that pages history through pager.
func NewMerger(pager HistoryPager, pageSize int, log *slog.Logger) *Merger {
	return &Merger{
		pager:    pager,
		pageSize: pageSize,
		log:      log,
		timeline: newTimeline(),
		state:    Idle,
		done:     make(chan struct{}),
	}
}

// IngestLive merges a live snapshot into the timeline. Items that aged out of
// the window are kept. Safe to call while a history page is in flight.
func (m *Merger) IngestLive(snapshot []model.Item) Result {
	valid, dropped := m.sanitize("live", snapshot)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.log.Debug("discarding live snapshot", "items", len(snapshot), "error", ErrStaleCompletion)
		return Result{}
	}

	m.live = valid
	res := m.timeline.merge(valid)
	res.Dropped = dropped

	if m.cursor == nil {
		if oldest, ok := m.timeline.oldest(); ok {
			m.cursor = &oldest
		}
	}
	return res
}

// RequestOlderPage loads the next page of history older than the cursor.
// It is a no-op while a request is in flight, after exhaustion or after Close.
// Fetch failures return the merger to Idle and are returned wrapped in ErrFetchFailed.
func (m *Merger) RequestOlderPage(ctx context.Context) error {
	m.mu.Lock()
	if m.closed || m.state != Idle {
		m.mu.Unlock()
		return nil
	}
	m.state = Loading
	var cursor *model.Item
	if m.cursor != nil {
		c := *m.cursor
		cursor = &c
	}
	m.mu.Unlock()

	page, err := m.pager.FetchPage(ctx, cursor, m.pageSize)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.log.Debug("discarding history page", "items", len(page), "error", ErrStaleCompletion)
		return nil
	}
	if err != nil {
		m.state = Idle
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if len(page) == 0 {
		m.state = Exhausted
		m.log.Debug("history exhausted", "timeline", m.timeline.len())
		return nil
	}

	valid, _ := m.sanitize("history", page)
	if len(valid) == 0 {
		m.state = Idle
		return fmt.Errorf("history page of %d items: %w", len(page), ErrMalformedItem)
	}

	m.timeline.merge(valid)

	oldest := valid[0]
	for _, it := range valid[1:] {
		if oldest.Before(it) {
			oldest = it
		}
	}
	if m.cursor == nil || m.cursor.Before(oldest) {
		m.cursor = &oldest
	}
	m.state = Idle
	return nil
}

// Follow pumps sub into IngestLive until ctx ends, the subscription closes or
// the merger is closed. The subscription is cancelled on return. onChange, if
// set, runs after the first delivery and after every delivery that changed the
// timeline.
func (m *Merger) Follow(ctx context.Context, sub Subscription, onChange func(Result)) {
	defer sub.Cancel()

	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			res := m.IngestLive(snap)
			if onChange != nil && (first || res.Changed()) {
				onChange(res)
			}
			first = false
		}
	}
}

// Close tears the merger down. Later deliveries and page completions are discarded.
func (m *Merger) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
}

// Items returns a copy of the timeline, newest first.
func (m *Merger) Items() []model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeline.snapshot()
}

// LiveWindow returns a copy of the most recent live snapshot.
func (m *Merger) LiveWindow() []model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Item, len(m.live))
	copy(out, m.live)
	return out
}

// Len returns the number of items in the timeline.
func (m *Merger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeline.len()
}

// Cursor returns a copy of the history cursor, or nil before anything was loaded.
func (m *Merger) Cursor() *model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor == nil {
		return nil
	}
	c := *m.cursor
	return &c
}

// State returns the current load state.
func (m *Merger) State() LoadState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Merger) sanitize(source string, batch []model.Item) ([]model.Item, int) {
	valid := make([]model.Item, 0, len(batch))
	for _, it := range batch {
		if !it.Valid() {
			m.log.Warn("dropping item", "source", source, "id", it.ID, "error", ErrMalformedItem)
			continue
		}
		valid = append(valid, it)
	}
	return valid, len(batch) - len(valid)
}
