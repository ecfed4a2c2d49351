package seedfile

import (
	"strings"
	"time"

	"github.com/tubeharvest/harvester/internal/domain"
)

// Mapper converts a parsed seed file into domain values
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapKeywords returns the seed keywords trimmed, lowercased and deduplicated,
// preserving file order. An empty result is valid: a seed file may carry only
// filter overrides.
func (m *Mapper) MapKeywords(config SeedConfig) []string {
	var keywords []string
	seen := make(map[string]struct{}, len(config.Keywords))
	for _, kw := range config.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	return keywords
}

// MapFilters overlays the seed file's filter section on top of base. Absent
// fields keep the base value, so the file only has to name what it changes.
func (m *Mapper) MapFilters(config SeedConfig, base domain.FilterConfig) domain.FilterConfig {
	props := config.Filters
	if props == nil {
		return base
	}

	out := base
	if props.MinSubscribers != nil {
		out.MinSubscribers = *props.MinSubscribers
	}
	if props.MinLongformVideos != nil {
		out.MinLongformVideos = *props.MinLongformVideos
	}
	if props.MaxUploadAgeDays != nil {
		out.MaxUploadAge = time.Duration(*props.MaxUploadAgeDays) * 24 * time.Hour
	}
	if len(props.DenyLanguages) > 0 {
		langs := make([]string, 0, len(props.DenyLanguages))
		for _, lang := range props.DenyLanguages {
			lang = strings.ToUpper(strings.TrimSpace(lang))
			if lang != "" {
				langs = append(langs, lang)
			}
		}
		out.DenyLanguages = langs
	}
	return out
}
