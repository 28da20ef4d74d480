package bot

import (
	"context"
	"sync"

	"chatfeed/internal/feed"
)

// session is one open feed view: a merger following the live tail, rendered
// into a single chat message that is edited in place.
type session struct {
	chatID int64
	msgID  int
	merger *feed.Merger
	cancel context.CancelFunc
	ctx    context.Context

	// mu serializes renders and guards the fields below.
	mu        sync.Mutex
	closed    bool
	pending   int
	anchorTop bool
	lastErr   error
	lastText  string
}

func (s *session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.merger.Close()
}

func (s *session) view() View {
	return View{
		Items:     s.merger.Items(),
		State:     s.merger.State(),
		Loading:   s.pending > 0,
		Err:       s.lastErr,
		AnchorTop: s.anchorTop,
	}
}

func (s *session) beginLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending++
	s.lastErr = nil
}

func (s *session) endLoad(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if err != nil {
		s.lastErr = err
		return
	}
	s.anchorTop = true
}

func (s *session) anchorBottom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchorTop = false
}
