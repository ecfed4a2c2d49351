package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tubeharvest/harvester/internal/domain"
)

// ErrChannelNotFound is returned when no channel row matches the given id.
var ErrChannelNotFound = errors.New("store: channel not found")

// ChannelScope narrows channel reads. The zero value selects every channel.
// Scope is supplied by the caller (the dashboard's current filter), never
// computed here.
type ChannelScope struct {
	Status         domain.ChannelStatus // "" = any status
	Language       string               // "" = any language
	HasEmail       bool
	HasTelegram    bool
	MinSubscribers int64  // 0 = ignore
	NameContains   string // substring match on channel name
	Limit          int    // 0 = no limit
	Offset         int
}

// UpsertChannel inserts or merges a discovery-sourced channel row.
//
// The merge is deliberately conservative: discovery never clobbers
// enrichment-owned fields (counts, last upload, language, emails, telegram)
// when the incoming row does not know them, and it never regresses a
// non-"new" status. Re-discovering an existing channel therefore only
// refreshes display metadata and bumps updated_at.
func (s *Store) UpsertChannel(ctx context.Context, ch *domain.Channel) error {
	now := time.Now().UTC()
	discovered := ch.DiscoveredAt
	if discovered.IsZero() {
		discovered = now
	}
	return execRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO channels (
				id, name, url,
				subscriber_count, longform_video_count, last_upload_at,
				language, emails, telegram_handle, enrichment_partial,
				status, blacklist_reason, source_keyword,
				discovered_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = CASE WHEN excluded.name != '' THEN excluded.name ELSE channels.name END,
				url  = CASE WHEN excluded.url != '' THEN excluded.url ELSE channels.url END,
				subscriber_count = CASE WHEN excluded.subscriber_count >= 0
					THEN excluded.subscriber_count ELSE channels.subscriber_count END,
				longform_video_count = CASE WHEN excluded.longform_video_count >= 0
					THEN excluded.longform_video_count ELSE channels.longform_video_count END,
				last_upload_at = COALESCE(excluded.last_upload_at, channels.last_upload_at),
				language = CASE WHEN excluded.language != '' THEN excluded.language ELSE channels.language END,
				emails = CASE WHEN excluded.emails != '' THEN excluded.emails ELSE channels.emails END,
				telegram_handle = CASE WHEN excluded.telegram_handle != ''
					THEN excluded.telegram_handle ELSE channels.telegram_handle END,
				status = CASE WHEN channels.status = 'new' THEN excluded.status ELSE channels.status END,
				blacklist_reason = CASE WHEN channels.status = 'new'
					THEN excluded.blacklist_reason ELSE channels.blacklist_reason END,
				updated_at = excluded.updated_at`,
			ch.ID, ch.Name, ch.URL,
			ch.SubscriberCount, ch.LongformVideoCount, toNullTime(ch.LastUploadAt),
			ch.Language, joinEmails(ch.Emails), ch.TelegramHandle, boolToInt(ch.EnrichmentPartial),
			string(ch.Status), string(ch.BlacklistReason), ch.SourceKeyword,
			discovered, now,
		)
		if err != nil {
			return fmt.Errorf("upsert channel %s: %w", ch.ID, err)
		}
		return nil
	})
}

// ChannelEnrichment is the set of fields an enrichment pass owns. Nil
// pointers mean "leave the stored value alone".
type ChannelEnrichment struct {
	Name               string // "" = keep
	SubscriberCount    *int64
	LongformVideoCount *int64
	LastUploadAt       *time.Time
	Language           string // "" = keep
	Emails             []string
	TelegramHandle     string // "" = keep
	Partial            bool
	Status             domain.ChannelStatus   // "" = keep (set on re-classification)
	BlacklistReason    domain.BlacklistReason // meaningful only with Status
}

// ApplyEnrichment writes one enrichment result onto an existing row and
// stamps updated_at. The caller holds the per-channel enrichment lock, so
// this is the only writer for these fields at any moment.
func (s *Store) ApplyEnrichment(ctx context.Context, id string, e ChannelEnrichment) error {
	sets := []string{"enrichment_partial = ?", "updated_at = ?"}
	args := []any{boolToInt(e.Partial), time.Now().UTC()}

	if e.Name != "" {
		sets = append(sets, "name = ?")
		args = append(args, e.Name)
	}
	if e.SubscriberCount != nil {
		sets = append(sets, "subscriber_count = ?")
		args = append(args, *e.SubscriberCount)
	}
	if e.LongformVideoCount != nil {
		sets = append(sets, "longform_video_count = ?")
		args = append(args, *e.LongformVideoCount)
	}
	if e.LastUploadAt != nil {
		sets = append(sets, "last_upload_at = ?")
		args = append(args, *e.LastUploadAt)
	}
	if e.Language != "" {
		sets = append(sets, "language = ?")
		args = append(args, e.Language)
	}
	if e.Emails != nil {
		sets = append(sets, "emails = ?")
		args = append(args, joinEmails(e.Emails))
	}
	if e.TelegramHandle != "" {
		sets = append(sets, "telegram_handle = ?")
		args = append(args, e.TelegramHandle)
	}
	if e.Status != "" {
		sets = append(sets, "status = ?", "blacklist_reason = ?")
		args = append(args, string(e.Status), string(e.BlacklistReason))
	}
	args = append(args, id)

	return execRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE channels SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return fmt.Errorf("apply enrichment %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrChannelNotFound
		}
		return nil
	})
}

// GetChannel retrieves one channel by external id.
func (s *Store) GetChannel(ctx context.Context, id string) (*domain.Channel, error) {
	row := s.db.QueryRowContext(ctx, selectChannels+" WHERE id = ?", id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChannelNotFound
	}
	return ch, err
}

// HasChannel reports whether a channel row exists for the given id without
// loading it. Discovery uses this to drop already-known candidates.
func (s *Store) HasChannel(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM channels WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has channel %s: %w", id, err)
	}
	return true, nil
}

// ListChannels returns channels matching the scope, newest first.
func (s *Store) ListChannels(ctx context.Context, scope ChannelScope) ([]*domain.Channel, error) {
	where, args := scopeClauses(scope)
	q := selectChannels
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY discovered_at DESC, id"
	if scope.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", scope.Limit, scope.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var out []*domain.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// CountByStatus returns row counts grouped by channel status.
func (s *Store) CountByStatus(ctx context.Context) (map[domain.ChannelStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM channels GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ChannelStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count by status: %w", err)
		}
		counts[domain.ChannelStatus(status)] = n
	}
	return counts, rows.Err()
}

const selectChannels = `
	SELECT id, name, url,
		subscriber_count, longform_video_count, last_upload_at,
		language, emails, telegram_handle, enrichment_partial,
		status, blacklist_reason, source_keyword,
		discovered_at, updated_at
	FROM channels`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(r rowScanner) (*domain.Channel, error) {
	var (
		ch         domain.Channel
		lastUpload sql.NullTime
		emails     string
		status     string
		reason     string
		partial    int
	)
	err := r.Scan(
		&ch.ID, &ch.Name, &ch.URL,
		&ch.SubscriberCount, &ch.LongformVideoCount, &lastUpload,
		&ch.Language, &emails, &ch.TelegramHandle, &partial,
		&status, &reason, &ch.SourceKeyword,
		&ch.DiscoveredAt, &ch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan channel: %w", err)
	}
	ch.LastUploadAt = nullTime(lastUpload)
	ch.Emails = splitEmails(emails)
	ch.EnrichmentPartial = partial != 0
	ch.Status = domain.ChannelStatus(status)
	ch.BlacklistReason = domain.BlacklistReason(reason)
	return &ch, nil
}

func scopeClauses(scope ChannelScope) (where []string, args []any) {
	if scope.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(scope.Status))
	}
	if scope.Language != "" {
		where = append(where, "language = ?")
		args = append(args, scope.Language)
	}
	if scope.HasEmail {
		where = append(where, "emails != ''")
	}
	if scope.HasTelegram {
		where = append(where, "telegram_handle != ''")
	}
	if scope.MinSubscribers > 0 {
		where = append(where, "subscriber_count >= ?")
		args = append(args, scope.MinSubscribers)
	}
	if scope.NameContains != "" {
		where = append(where, "name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+scope.NameContains+"%")
	}
	return where, args
}

func joinEmails(emails []string) string { return strings.Join(emails, ",") }

func splitEmails(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
