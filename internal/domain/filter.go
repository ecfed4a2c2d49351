package domain

import (
	"fmt"
	"strings"
	"time"
)

// BlacklistReason identifies the single filter rule that rejected a channel.
type BlacklistReason string

const (
	ReasonLowSubs     BlacklistReason = "low_subs"
	ReasonNoLongform  BlacklistReason = "no_longform"
	ReasonStaleUpload BlacklistReason = "stale_upload"
	ReasonDeniedLang  BlacklistReason = "denied_lang"
)

// FilterConfig holds the admission thresholds applied to every discovered
// candidate. Configs are immutable once handed to the pipeline; changes are
// forward-only and never retroactively re-filter stored channels.
type FilterConfig struct {
	MinSubscribers    int64         `json:"min_subscribers"`
	MinLongformVideos int64         `json:"min_longform_videos"`
	MaxUploadAge      time.Duration `json:"max_upload_age"`
	DenyLanguages     []string      `json:"deny_languages"`
}

// Validate rejects nonsensical thresholds. Called at the API boundary before
// any discovery work starts.
func (c FilterConfig) Validate() error {
	if c.MinSubscribers < 0 {
		return fmt.Errorf("filter config: min_subscribers must be >= 0, got %d", c.MinSubscribers)
	}
	if c.MinLongformVideos < 0 {
		return fmt.Errorf("filter config: min_longform_videos must be >= 0, got %d", c.MinLongformVideos)
	}
	if c.MaxUploadAge < 0 {
		return fmt.Errorf("filter config: max_upload_age must be >= 0, got %s", c.MaxUploadAge)
	}
	return nil
}

func (c FilterConfig) deniesLanguage(lang string) bool {
	for _, deny := range c.DenyLanguages {
		if strings.EqualFold(deny, lang) {
			return true
		}
	}
	return false
}

// CandidateMetadata is what discovery or enrichment observed about a channel
// at classification time. Unknown numeric fields are -1, unknown timestamps
// are the zero time, unknown language is the empty string.
type CandidateMetadata struct {
	SubscriberCount    int64
	LongformVideoCount int64
	LastUploadAt       time.Time
	Language           string
}

// UnknownMetadata returns a CandidateMetadata with every field unknown.
func UnknownMetadata() CandidateMetadata {
	return CandidateMetadata{SubscriberCount: -1, LongformVideoCount: -1}
}

// Verdict is the Filter Engine's admission decision.
type Verdict struct {
	Status ChannelStatus
	// Reason is set only when Status is blacklisted.
	Reason BlacklistReason
	// Deferred is set when at least one rule could not be evaluated because
	// its input was unknown; the channel is admitted as "new" and must be
	// re-classified once enrichment fills the gap.
	Deferred bool
}

// Classify maps observed candidate metadata to an admission verdict.
//
// Rules are evaluated in a fixed order so results are reproducible and a
// rejected candidate always carries a single deterministic reason:
//
//	1. subscriber count below minimum    -> low_subs
//	2. long-form video count below min   -> no_longform
//	3. last upload older than max age    -> stale_upload
//	4. language in the deny list         -> denied_lang
//
// A rule whose input is unknown is skipped and marked deferred; a candidate
// that fails no known rule but has deferred rules is admitted as "new"
// rather than "active". The ordering is policy, not configuration.
func Classify(meta CandidateMetadata, cfg FilterConfig, now time.Time) Verdict {
	deferred := false

	if meta.SubscriberCount >= 0 {
		if meta.SubscriberCount < cfg.MinSubscribers {
			return Verdict{Status: StatusBlacklisted, Reason: ReasonLowSubs}
		}
	} else {
		deferred = true
	}

	if meta.LongformVideoCount >= 0 {
		if meta.LongformVideoCount < cfg.MinLongformVideos {
			return Verdict{Status: StatusBlacklisted, Reason: ReasonNoLongform}
		}
	} else {
		deferred = true
	}

	if cfg.MaxUploadAge > 0 {
		if !meta.LastUploadAt.IsZero() {
			if now.Sub(meta.LastUploadAt) > cfg.MaxUploadAge {
				return Verdict{Status: StatusBlacklisted, Reason: ReasonStaleUpload}
			}
		} else {
			deferred = true
		}
	}

	if meta.Language != "" {
		if cfg.deniesLanguage(meta.Language) {
			return Verdict{Status: StatusBlacklisted, Reason: ReasonDeniedLang}
		}
	} else if len(cfg.DenyLanguages) > 0 {
		deferred = true
	}

	if deferred {
		return Verdict{Status: StatusNew, Deferred: true}
	}
	return Verdict{Status: StatusActive}
}
