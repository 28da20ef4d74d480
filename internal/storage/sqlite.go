package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"chatfeed/internal/model"
	"chatfeed/migrations"
)

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// UpsertMessage inserts msg, or refreshes author and body when the ID exists.
func (s *SQLite) UpsertMessage(ctx context.Context, msg *model.Item) (bool, error) {
	if !msg.Valid() {
		return false, fmt.Errorf("upsert message %q: missing id or created_at", msg.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE id = ?`, msg.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check message: %w", err)
	}

	now := time.Now().UTC().UnixMilli()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, author_id, created_at, body, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     author_id = excluded.author_id,
		     body = excluded.body,
		     updated_at = excluded.updated_at
		 WHERE messages.author_id <> excluded.author_id OR messages.body <> excluded.body`,
		msg.ID, msg.AuthorID, msg.CreatedAt.UnixMilli(), msg.Body, now,
	)
	if err != nil {
		return false, fmt.Errorf("upsert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return exists == 0, nil
}

// LatestMessages returns the newest limit messages, newest first.
func (s *SQLite) LatestMessages(ctx context.Context, limit int) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, author_id, created_at, body FROM messages
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest messages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// MessagesBefore returns up to limit messages older than cursor, newest first.
// Messages sharing the cursor's timestamp are ordered by ID.
func (s *SQLite) MessagesBefore(ctx context.Context, cursor model.Item, limit int) ([]model.Item, error) {
	ts := cursor.CreatedAt.UnixMilli()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, author_id, created_at, body FROM messages
		 WHERE created_at < ? OR (created_at = ? AND id < ?)
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, ts, ts, cursor.ID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages before %q: %w", cursor.ID, err)
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// CountMessages returns the total number of stored messages.
func (s *SQLite) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMessage(row scannable) (model.Item, error) {
	var m model.Item
	var created int64
	if err := row.Scan(&m.ID, &m.AuthorID, &created, &m.Body); err != nil {
		return m, fmt.Errorf("scan message: %w", err)
	}
	m.CreatedAt = time.UnixMilli(created).UTC()
	return m, nil
}

func scanMessages(rows *sql.Rows) ([]model.Item, error) {
	var msgs []model.Item
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
