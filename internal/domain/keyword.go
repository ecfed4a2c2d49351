package domain

import "time"

// KeywordState is the discovery state machine position for one search term.
type KeywordState string

const (
	KeywordIdle      KeywordState = "idle"
	KeywordRunning   KeywordState = "running"
	KeywordExhausted KeywordState = "exhausted"
	KeywordStopped   KeywordState = "stopped"
)

// Keyword is the persisted per-search-term discovery cursor and progress.
// It survives restarts so exhaustion state and pagination resume rather
// than starting from scratch.
type Keyword struct {
	// Text is the search term and the unique key.
	Text string `json:"text"`

	// ContinuationCursor is the opaque token returned by the last fetched
	// results page, empty at start or after a reset.
	ContinuationCursor string `json:"continuation_cursor,omitempty"`

	// EmptyPageStreak counts consecutive pages that yielded zero channels
	// not already present in the store. It resets to zero whenever a page
	// yields at least one genuinely new channel.
	EmptyPageStreak int `json:"empty_page_streak"`

	// ExhaustionThreshold is the streak length at which the keyword is
	// declared exhausted.
	ExhaustionThreshold int `json:"exhaustion_threshold"`

	State KeywordState `json:"state"`

	RunUntilStopped bool `json:"run_until_stopped"`
	AutoEnrich      bool `json:"auto_enrich"`

	LastRunAt *time.Time `json:"last_run_at"`
}

// Exhausted reports whether the empty-page streak has reached the threshold.
func (k *Keyword) Exhausted() bool {
	return k.EmptyPageStreak >= k.ExhaustionThreshold
}
