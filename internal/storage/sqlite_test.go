package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"chatfeed/internal/model"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func msg(id string, ms int64) model.Item {
	return model.Item{ID: id, AuthorID: "u1", CreatedAt: time.UnixMilli(ms).UTC(), Body: "body " + id}
}

func seed(t *testing.T, s *SQLite, items ...model.Item) {
	t.Helper()
	for _, it := range items {
		if _, err := s.UpsertMessage(context.Background(), &it); err != nil {
			t.Fatalf("seed %s: %v", it.ID, err)
		}
	}
}

func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestUpsertMessage(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	m := msg("m1", 10)
	created, err := s.UpsertMessage(ctx, &m)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !created {
		t.Error("expected first upsert to create a row")
	}

	m.Body = "edited"
	created, err = s.UpsertMessage(ctx, &m)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if created {
		t.Error("expected second upsert to refresh the existing row")
	}

	got, err := s.LatestMessages(ctx, 10)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if diff := cmp.Diff([]model.Item{m}, got); diff != "" {
		t.Errorf("stored messages mismatch (-want +got):\n%s", diff)
	}

	n, err := s.CountMessages(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if diff := cmp.Diff(1, n); diff != "" {
		t.Errorf("count mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertMessageRejectsMalformed(t *testing.T) {
	s := newTestDB(t)

	tests := []struct {
		name string
		msg  model.Item
	}{
		{name: "missing id", msg: model.Item{CreatedAt: time.UnixMilli(10)}},
		{name: "missing created_at", msg: model.Item{ID: "m1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.UpsertMessage(context.Background(), &tt.msg); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLatestMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	seed(t, s, msg("m1", 10), msg("m3", 30), msg("m2", 20), msg("m4", 40))

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "window smaller than feed", limit: 2, want: []string{"m4", "m3"}},
		{name: "window larger than feed", limit: 10, want: []string{"m4", "m3", "m2", "m1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.LatestMessages(ctx, tt.limit)
			if err != nil {
				t.Fatalf("latest: %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("LatestMessages() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMessagesBefore(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	seed(t, s,
		msg("m5", 50), msg("m4", 40),
		msg("c", 30), msg("b", 30), msg("a", 30),
		msg("m1", 10), msg("m0", 5),
	)

	tests := []struct {
		name   string
		cursor model.Item
		limit  int
		want   []string
	}{
		{name: "page strictly older", cursor: msg("m4", 40), limit: 2, want: []string{"c", "b"}},
		{name: "tie on timestamp continues by id", cursor: msg("b", 30), limit: 10, want: []string{"a", "m1", "m0"}},
		{name: "oldest cursor is exhausted", cursor: msg("m0", 5), limit: 10, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.MessagesBefore(ctx, tt.cursor, tt.limit)
			if err != nil {
				t.Fatalf("messages before: %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("MessagesBefore() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMessagesBeforeWalksWholeHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	for i := 0; i < 25; i++ {
		seed(t, s, msg(string(rune('a'+i)), int64(100+i/3)))
	}

	latest, err := s.LatestMessages(ctx, 5)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	seen := ids(latest)
	cursor := latest[len(latest)-1]
	for {
		page, err := s.MessagesBefore(ctx, cursor, 4)
		if err != nil {
			t.Fatalf("messages before: %v", err)
		}
		if len(page) == 0 {
			break
		}
		seen = append(seen, ids(page)...)
		cursor = page[len(page)-1]
	}

	if diff := cmp.Diff(25, len(seen)); diff != "" {
		t.Fatalf("walked item count mismatch (-want +got):\n%s", diff)
	}
	uniq := make(map[string]bool)
	for _, id := range seen {
		if uniq[id] {
			t.Errorf("id %q returned twice", id)
		}
		uniq[id] = true
	}
}
