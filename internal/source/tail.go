// Package source adapts the message store to the feed merger: a live tail
// over the newest window and a history pager.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chatfeed/internal/feed"
	"chatfeed/internal/model"
)

// Reader is the read side of the message store.
type Reader interface {
	LatestMessages(ctx context.Context, limit int) ([]model.Item, error)
	MessagesBefore(ctx context.Context, cursor model.Item, limit int) ([]model.Item, error)
}

// Signaler delivers a value whenever the store may have changed.
type Signaler interface {
	Subscribe(ctx context.Context) (<-chan struct{}, error)
}

var _ feed.LiveTail = (*Tail)(nil)

// Tail watches the newest window of the store and pushes it to subscribers.
type Tail struct {
	store   Reader
	signals Signaler
	log     *slog.Logger
	tick    time.Duration
}

// NewTail creates a Tail that polls store every 2 seconds.
func NewTail(store Reader, log *slog.Logger) *Tail {
	return &Tail{
		store: store,
		log:   log,
		tick:  2 * time.Second,
	}
}

// SetPollInterval overrides the default poll interval.
func (t *Tail) SetPollInterval(d time.Duration) {
	t.tick = d
}

// SetSignaler makes subscriptions re-read the window as soon as s fires,
// in addition to polling.
func (t *Tail) SetSignaler(s Signaler) {
	t.signals = s
}

// Subscribe starts watching the newest size items. The first window is always
// delivered; later windows only when they differ from the previous one.
func (t *Tail) Subscribe(ctx context.Context, size int) (feed.Subscription, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid window size %d", size)
	}

	ctx, cancel := context.WithCancel(ctx)

	var wake <-chan struct{}
	if t.signals != nil {
		ch, err := t.signals.Subscribe(ctx)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("subscribe to changes: %w", err)
		}
		wake = ch
	}

	sub := &subscription{
		out:    make(chan []model.Item, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.watch(ctx, sub, size, wake)
	return sub, nil
}

func (t *Tail) watch(ctx context.Context, sub *subscription, size int, wake <-chan struct{}) {
	defer close(sub.done)
	defer close(sub.out)

	var (
		last      []model.Item
		delivered bool
	)
	poll := func() {
		items, err := t.store.LatestMessages(ctx, size)
		if err != nil {
			if ctx.Err() == nil {
				t.log.Error("read live window", "size", size, "error", err)
			}
			return
		}
		if delivered && sameWindow(last, items) {
			return
		}
		last, delivered = items, true
		sub.deliver(items)
	}

	poll()

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		case _, ok := <-wake:
			if !ok {
				// Fall back to polling only.
				wake = nil
				continue
			}
			poll()
		}
	}
}

func sameWindow(a, b []model.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

type subscription struct {
	out    chan []model.Item
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Snapshots() <-chan []model.Item { return s.out }

// Cancel stops the watcher and waits for it to close the snapshot channel.
func (s *subscription) Cancel() {
	s.cancel()
	<-s.done
}

// deliver hands items to the reader, replacing an undelivered older window.
// Only the watcher goroutine sends on out.
func (s *subscription) deliver(items []model.Item) {
	select {
	case s.out <- items:
		return
	default:
	}
	select {
	case <-s.out:
	default:
	}
	s.out <- items
}
