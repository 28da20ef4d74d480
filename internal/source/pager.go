package source

import (
	"context"
	"fmt"

	"chatfeed/internal/feed"
	"chatfeed/internal/model"
)

var _ feed.HistoryPager = (*Pager)(nil)

// Pager serves history pages from the store.
type Pager struct {
	store Reader
}

// NewPager creates a Pager over store.
func NewPager(store Reader) *Pager {
	return &Pager{store: store}
}

// FetchPage returns up to size items older than cursor, or the newest page
// when cursor is nil.
func (p *Pager) FetchPage(ctx context.Context, cursor *model.Item, size int) ([]model.Item, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid page size %d", size)
	}
	if cursor == nil {
		return p.store.LatestMessages(ctx, size)
	}
	return p.store.MessagesBefore(ctx, *cursor, size)
}
