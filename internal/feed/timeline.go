package feed

import (
	"slices"

	"chatfeed/internal/model"
)

// timeline is an ordered item sequence with an id→position index.
// It is not safe for concurrent use; Merger guards it.
type timeline struct {
	items []model.Item
	index map[string]int
}

func newTimeline() *timeline {
	return &timeline{index: make(map[string]int)}
}

func compareItems(a, b model.Item) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	}
	return 0
}

// merge applies a batch of valid items. Known ids are refreshed where they
// stand; an item whose timestamp changed is moved to keep the order. New ids
// are inserted at their sort position. Nothing is ever removed.
func (t *timeline) merge(batch []model.Item) Result {
	var (
		res     Result
		fresh   []model.Item
		pending = make(map[string]int)
		moved   bool
	)

	for _, it := range batch {
		if pos, ok := t.index[it.ID]; ok {
			cur := t.items[pos]
			if cur.Equal(it) {
				continue
			}
			if !cur.CreatedAt.Equal(it.CreatedAt) {
				moved = true
			}
			t.items[pos] = it
			res.Refreshed++
			continue
		}
		// Later copies within one batch win.
		if j, ok := pending[it.ID]; ok {
			fresh[j] = it
			continue
		}
		pending[it.ID] = len(fresh)
		fresh = append(fresh, it)
	}

	if moved {
		slices.SortStableFunc(t.items, compareItems)
	}
	if len(fresh) > 0 {
		slices.SortFunc(fresh, compareItems)
		t.items = mergeSorted(t.items, fresh)
		res.Added = len(fresh)
	}
	if moved || len(fresh) > 0 {
		t.reindex()
	}
	return res
}

// mergeSorted interleaves two sorted, id-disjoint sequences.
func mergeSorted(a, b []model.Item) []model.Item {
	out := make([]model.Item, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j].Before(a[i]) {
			out = append(out, b[j])
			j++
			continue
		}
		out = append(out, a[i])
		i++
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func (t *timeline) reindex() {
	clear(t.index)
	for i, it := range t.items {
		t.index[it.ID] = i
	}
}

func (t *timeline) len() int { return len(t.items) }

func (t *timeline) oldest() (model.Item, bool) {
	if len(t.items) == 0 {
		return model.Item{}, false
	}
	return t.items[len(t.items)-1], true
}

func (t *timeline) snapshot() []model.Item {
	out := make([]model.Item, len(t.items))
	copy(out, t.items)
	return out
}
