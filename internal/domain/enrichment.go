package domain

import "fmt"

// EmailMode selects which text sources feed email/handle extraction.
type EmailMode string

const (
	// EmailChannelOnly extracts from the channel's about/description text.
	EmailChannelOnly EmailMode = "CHANNEL_ONLY"
	// EmailVideosOnly extracts from recent long-form video descriptions.
	EmailVideosOnly EmailMode = "VIDEOS_ONLY"
	// EmailFull unions both sources.
	EmailFull EmailMode = "FULL"
)

// LanguageMode selects the precision level of language detection.
type LanguageMode string

const (
	// LanguageBasic classifies from title/description with a lightweight
	// script/keyword heuristic.
	LanguageBasic LanguageMode = "BASIC"
	// LanguagePrecise additionally samples recent video titles and combines
	// per-text classifications by majority vote.
	LanguagePrecise LanguageMode = "PRECISE"
)

// EnrichmentSettings controls a single enrichment pass over a channel.
// Every recognized option is enumerated here; unknown combinations are
// rejected at the API boundary, never passed through the pipeline.
type EnrichmentSettings struct {
	EmailEnabled bool      `json:"email_enabled"`
	EmailMode    EmailMode `json:"email_mode"`

	LanguageEnabled bool         `json:"language_enabled"`
	LanguageMode    LanguageMode `json:"language_mode"`

	RefreshChannelMetadata bool `json:"refresh_channel_metadata"`
	UpdateLastUpload       bool `json:"update_last_upload"`
}

// DefaultEnrichmentSettings mirrors the dashboard's defaults: everything on,
// widest corpus, precise detection.
func DefaultEnrichmentSettings() EnrichmentSettings {
	return EnrichmentSettings{
		EmailEnabled:           true,
		EmailMode:              EmailFull,
		LanguageEnabled:        true,
		LanguageMode:           LanguagePrecise,
		RefreshChannelMetadata: true,
		UpdateLastUpload:       true,
	}
}

// Validate rejects malformed settings before any work starts.
func (s EnrichmentSettings) Validate() error {
	if s.EmailEnabled {
		switch s.EmailMode {
		case EmailChannelOnly, EmailVideosOnly, EmailFull:
		default:
			return fmt.Errorf("enrichment settings: unknown email_mode %q", s.EmailMode)
		}
	}
	if s.LanguageEnabled {
		switch s.LanguageMode {
		case LanguageBasic, LanguagePrecise:
		default:
			return fmt.Errorf("enrichment settings: unknown language_mode %q", s.LanguageMode)
		}
	}
	if !s.EmailEnabled && !s.LanguageEnabled && !s.RefreshChannelMetadata && !s.UpdateLastUpload {
		return fmt.Errorf("enrichment settings: every option disabled, nothing to do")
	}
	return nil
}
