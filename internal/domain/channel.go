package domain

import "time"

// ChannelStatus is the lifecycle state of a harvested channel.
type ChannelStatus string

const (
	// StatusNew marks a channel admitted provisionally because part of its
	// metadata (typically language) was unknown at discovery time.
	StatusNew ChannelStatus = "new"
	// StatusActive marks a channel that passed every filter rule.
	StatusActive ChannelStatus = "active"
	// StatusBlacklisted marks a channel rejected by a filter rule.
	StatusBlacklisted ChannelStatus = "blacklisted"
	// StatusArchived is the terminal soft-delete state. Rows are never
	// physically deleted.
	StatusArchived ChannelStatus = "archived"
)

// ValidStatus reports whether s is one of the known channel statuses.
func ValidStatus(s ChannelStatus) bool {
	switch s {
	case StatusNew, StatusActive, StatusBlacklisted, StatusArchived:
		return true
	}
	return false
}

// Channel is one row in the harvested channel directory, keyed by the
// platform's external channel identifier.
type Channel struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the stable external channel identifier (ex: "UCxxxx...").
	ID string `json:"id"`

	// ─────────────────────────────
	// Display metadata (mutable on refresh)
	// ─────────────────────────────

	Name string `json:"name"`
	URL  string `json:"url"`

	// ─────────────────────────────
	// Enrichment-owned fields
	// ─────────────────────────────

	// SubscriberCount and LongformVideoCount are -1 until known.
	SubscriberCount    int64 `json:"subscriber_count"`
	LongformVideoCount int64 `json:"longform_video_count"`

	// LastUploadAt is nil until the most recent long-form upload is known.
	LastUploadAt *time.Time `json:"last_upload_at"`

	// Language is the detected code ("EN", "HI", ...), empty until known.
	Language string `json:"language"`

	// Emails is always deduplicated, lower-cased and sorted before persistence.
	Emails []string `json:"emails"`

	// TelegramHandle, if present, always begins with "@" and is lower-cased.
	TelegramHandle string `json:"telegram_handle,omitempty"`

	// EnrichmentPartial is set when at least one enrichment sub-fetch failed
	// and the stored contact/language fields may be incomplete.
	EnrichmentPartial bool `json:"enrichment_partial"`

	// ─────────────────────────────
	// Classification
	// ─────────────────────────────

	Status ChannelStatus `json:"status"`

	// BlacklistReason is present only when Status is blacklisted.
	BlacklistReason BlacklistReason `json:"blacklist_reason,omitempty"`

	// ─────────────────────────────
	// Provenance
	// ─────────────────────────────

	SourceKeyword string    `json:"source_keyword"`
	DiscoveredAt  time.Time `json:"discovered_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
