package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrConflict wraps a write that kept colliding with concurrent writers even
// after retries.
var ErrConflict = errors.New("store: write conflict")

// Store is the persisted channel directory: two tables, channels keyed by the
// external channel id and keywords keyed by the search term. It is the sole
// source of truth; discovery, enrichment and the HTTP API all go through it.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path and ensures the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite: single writer

	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database is reachable; used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			subscriber_count INTEGER NOT NULL DEFAULT -1,
			longform_video_count INTEGER NOT NULL DEFAULT -1,
			last_upload_at TIMESTAMP,
			language TEXT NOT NULL DEFAULT '',
			emails TEXT NOT NULL DEFAULT '',
			telegram_handle TEXT NOT NULL DEFAULT '',
			enrichment_partial INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'new',
			blacklist_reason TEXT NOT NULL DEFAULT '',
			source_keyword TEXT NOT NULL DEFAULT '',
			discovered_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_channels_status ON channels(status);`,
		`CREATE INDEX IF NOT EXISTS idx_channels_language ON channels(language);`,
		`CREATE TABLE IF NOT EXISTS keywords (
			text TEXT PRIMARY KEY,
			continuation_cursor TEXT NOT NULL DEFAULT '',
			empty_page_streak INTEGER NOT NULL DEFAULT 0,
			exhaustion_threshold INTEGER NOT NULL DEFAULT 5,
			state TEXT NOT NULL DEFAULT 'idle',
			run_until_stopped INTEGER NOT NULL DEFAULT 0,
			auto_enrich INTEGER NOT NULL DEFAULT 0,
			last_run_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const writeRetries = 3

// execRetry runs fn, retrying a few times when sqlite reports a busy/locked
// collision with a concurrent writer. Anything still failing after the cap
// surfaces as ErrConflict.
func execRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < writeRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		select {
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// nullTime maps a nullable column to *time.Time.
func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
