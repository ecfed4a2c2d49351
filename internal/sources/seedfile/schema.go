package seedfile

// SeedConfig is the top-level structure of the seed yaml file. Keywords are
// the initial discovery queries; filters override the built-in admission
// thresholds when present.
type SeedConfig struct {
	Keywords []string     `yaml:"keywords"`
	Filters  *FilterProps `yaml:"filters,omitempty"`
}

// FilterProps mirrors the filter section of the seed file. Pointer fields
// distinguish "absent" from an explicit zero.
type FilterProps struct {
	MinSubscribers    *int64   `yaml:"min_subscribers,omitempty"`
	MinLongformVideos *int64   `yaml:"min_longform_videos,omitempty"`
	MaxUploadAgeDays  *int     `yaml:"max_upload_age_days,omitempty"`
	DenyLanguages     []string `yaml:"deny_languages,omitempty"`
}
