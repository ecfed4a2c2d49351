package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tubeharvest/harvester/internal/domain"
)

// ErrKeywordNotFound is returned when no keyword row matches the given text.
var ErrKeywordNotFound = errors.New("store: keyword not found")

// UpsertKeyword writes the full keyword row, inserting it on first sight.
// Runners persist their cursor and streak through this after every page, so
// a restart resumes exactly where the last page left off.
func (s *Store) UpsertKeyword(ctx context.Context, kw *domain.Keyword) error {
	return execRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO keywords (
				text, continuation_cursor, empty_page_streak, exhaustion_threshold,
				state, run_until_stopped, auto_enrich, last_run_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(text) DO UPDATE SET
				continuation_cursor = excluded.continuation_cursor,
				empty_page_streak = excluded.empty_page_streak,
				exhaustion_threshold = excluded.exhaustion_threshold,
				state = excluded.state,
				run_until_stopped = excluded.run_until_stopped,
				auto_enrich = excluded.auto_enrich,
				last_run_at = COALESCE(excluded.last_run_at, keywords.last_run_at)`,
			kw.Text, kw.ContinuationCursor, kw.EmptyPageStreak, kw.ExhaustionThreshold,
			string(kw.State), boolToInt(kw.RunUntilStopped), boolToInt(kw.AutoEnrich),
			toNullTime(kw.LastRunAt),
		)
		if err != nil {
			return fmt.Errorf("upsert keyword %q: %w", kw.Text, err)
		}
		return nil
	})
}

// GetKeyword retrieves one keyword row by its text.
func (s *Store) GetKeyword(ctx context.Context, text string) (*domain.Keyword, error) {
	row := s.db.QueryRowContext(ctx, selectKeywords+" WHERE text = ?", text)
	kw, err := scanKeyword(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeywordNotFound
	}
	return kw, err
}

// ListKeywords returns every keyword row, alphabetically.
func (s *Store) ListKeywords(ctx context.Context) ([]*domain.Keyword, error) {
	rows, err := s.db.QueryContext(ctx, selectKeywords+" ORDER BY text")
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	defer rows.Close()

	var out []*domain.Keyword
	for rows.Next() {
		kw, err := scanKeyword(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}

// MarkKeywordState flips just the state column, stamping last_run_at when the
// keyword transitions to running.
func (s *Store) MarkKeywordState(ctx context.Context, text string, state domain.KeywordState) error {
	return execRetry(ctx, func() error {
		var res sql.Result
		var err error
		if state == domain.KeywordRunning {
			res, err = s.db.ExecContext(ctx,
				"UPDATE keywords SET state = ?, last_run_at = ? WHERE text = ?",
				string(state), time.Now().UTC(), text)
		} else {
			res, err = s.db.ExecContext(ctx,
				"UPDATE keywords SET state = ? WHERE text = ?", string(state), text)
		}
		if err != nil {
			return fmt.Errorf("mark keyword %q %s: %w", text, state, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrKeywordNotFound
		}
		return nil
	})
}

const selectKeywords = `
	SELECT text, continuation_cursor, empty_page_streak, exhaustion_threshold,
		state, run_until_stopped, auto_enrich, last_run_at
	FROM keywords`

func scanKeyword(r rowScanner) (*domain.Keyword, error) {
	var (
		kw        domain.Keyword
		state     string
		runAlways int
		auto      int
		lastRun   sql.NullTime
	)
	err := r.Scan(
		&kw.Text, &kw.ContinuationCursor, &kw.EmptyPageStreak, &kw.ExhaustionThreshold,
		&state, &runAlways, &auto, &lastRun,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan keyword: %w", err)
	}
	kw.State = domain.KeywordState(state)
	kw.RunUntilStopped = runAlways != 0
	kw.AutoEnrich = auto != 0
	kw.LastRunAt = nullTime(lastRun)
	return &kw, nil
}
