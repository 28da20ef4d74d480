// Package fetcher downloads RSS/Atom feeds and maps their entries to feed items.
package fetcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"chatfeed/internal/filter"
	"chatfeed/internal/model"
)

const maxBodyLen = 500

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads and parses RSS feeds.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: 30 * time.Second,
	}
}

// Fetch downloads and parses an RSS feed from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "chatfeed/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// ItemID returns a stable message ID for an RSS entry, derived from its GUID
// or, when absent, from title and link.
func ItemID(item *gofeed.Item) string {
	key := item.GUID
	if key == "" {
		key = item.Title + "|" + item.Link
	}
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("rss:%x", h[:16])
}

// ToItems converts the entries of feed that pass rules into feed items.
// Entries without a publish date are stamped with now.
func ToItems(feed *gofeed.Feed, rules []filter.Rule, now time.Time) []model.Item {
	var items []model.Item
	for _, entry := range feed.Items {
		if !filter.Match(filter.Entry{Title: entry.Title, Description: entry.Description}, rules) {
			continue
		}
		items = append(items, model.Item{
			ID:        ItemID(entry),
			AuthorID:  author(feed, entry),
			CreatedAt: published(entry, now),
			Body:      body(entry),
		})
	}
	return items
}

func author(feed *gofeed.Feed, entry *gofeed.Item) string {
	if entry.Author != nil && entry.Author.Name != "" {
		return entry.Author.Name
	}
	if feed.Title != "" {
		return feed.Title
	}
	return "rss"
}

func published(entry *gofeed.Item, now time.Time) time.Time {
	switch {
	case entry.PublishedParsed != nil:
		return entry.PublishedParsed.UTC()
	case entry.UpdatedParsed != nil:
		return entry.UpdatedParsed.UTC()
	}
	return now.UTC()
}

func body(entry *gofeed.Item) string {
	text := strings.TrimSpace(entry.Title)
	if len(text) > maxBodyLen {
		text = text[:maxBodyLen] + "..."
	}
	if entry.Link != "" {
		text += "\n" + entry.Link
	}
	return text
}
