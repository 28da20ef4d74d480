// Package scheduler periodically imports an RSS/Atom feed into the message store.
package scheduler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"chatfeed/internal/fetcher"
	"chatfeed/internal/filter"
	"chatfeed/internal/model"
)

// Store is the subset of storage used by the importer.
type Store interface {
	UpsertMessage(ctx context.Context, msg *model.Item) (bool, error)
}

// Publisher announces that new messages were stored.
type Publisher interface {
	Publish(ctx context.Context) error
}

// Scheduler periodically fetches a feed URL and upserts matching entries.
type Scheduler struct {
	store     Store
	fetcher   *fetcher.Fetcher
	publisher Publisher
	url       string
	rules     []filter.Rule
	log       *slog.Logger
	tick      time.Duration
	now       func() time.Time
}

// New creates a Scheduler with the default HTTP client.
func New(store Store, url string, rules []filter.Rule, log *slog.Logger) *Scheduler {
	return NewWithFetcher(store, fetcher.New(http.DefaultClient), url, rules, log)
}

// NewWithFetcher creates a Scheduler with a custom fetcher (useful for testing).
func NewWithFetcher(store Store, f *fetcher.Fetcher, url string, rules []filter.Rule, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		fetcher: f,
		url:     url,
		rules:   rules,
		log:     log,
		tick:    15 * time.Minute,
		now:     time.Now,
	}
}

// SetTickInterval overrides the default 15-minute import interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// SetPublisher makes the scheduler announce imports that stored new messages.
func (s *Scheduler) SetPublisher(p Publisher) {
	s.publisher = p
}

// Run starts the import loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.importOnce(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.importOnce(ctx)
		}
	}
}

// importOnce fetches the feed once and returns the number of new messages.
func (s *Scheduler) importOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	s.log.Debug("importing feed", "url", s.url)

	rssFeed, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		s.log.Error("fetch feed", "url", s.url, "error", err)
		return 0
	}

	added := 0
	for _, item := range fetcher.ToItems(rssFeed, s.rules, s.now()) {
		if ctx.Err() != nil {
			break
		}
		created, err := s.store.UpsertMessage(ctx, &item)
		if err != nil {
			s.log.Error("store message", "id", item.ID, "error", err)
			continue
		}
		if created {
			added++
		}
	}

	if added == 0 {
		return 0
	}
	s.log.Info("imported messages", "url", s.url, "count", added)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx); err != nil {
			s.log.Warn("publish change", "error", err)
		}
	}
	return added
}
