package app

import (
	"testing"
	"time"

	"github.com/tubeharvest/harvester/internal/config"
	"github.com/tubeharvest/harvester/internal/sources/seedfile"
)

func baseConfig() *config.Config {
	return &config.Config{
		MinSubscribers:    1000,
		MinLongformVideos: 5,
		MaxUploadAge:      30 * 24 * time.Hour,
	}
}

func TestResolveFilterRejectsNegativeEnv(t *testing.T) {
	cfg := baseConfig()
	cfg.MinSubscribers = -5

	if _, err := resolveFilter(cfg, nil); err == nil {
		t.Fatal("expected error for negative min_subscribers")
	}
}

func TestResolveFilterRejectsNegativeSeedOverlay(t *testing.T) {
	bad := int64(-1)
	seed := &seedfile.SeedConfig{
		Filters: &seedfile.FilterProps{MinLongformVideos: &bad},
	}

	if _, err := resolveFilter(baseConfig(), seed); err == nil {
		t.Fatal("expected error for negative seed overlay")
	}
}

func TestResolveFilterAppliesSeedOverlay(t *testing.T) {
	subs := int64(2500)
	seed := &seedfile.SeedConfig{
		Filters: &seedfile.FilterProps{
			MinSubscribers: &subs,
			DenyLanguages:  []string{"hi"},
		},
	}

	filter, err := resolveFilter(baseConfig(), seed)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if filter.MinSubscribers != 2500 {
		t.Errorf("min_subscribers = %d, want seed overlay 2500", filter.MinSubscribers)
	}
	if filter.MinLongformVideos != 5 {
		t.Errorf("min_longform_videos = %d, want env default 5", filter.MinLongformVideos)
	}
	if len(filter.DenyLanguages) != 1 || filter.DenyLanguages[0] != "HI" {
		t.Errorf("deny_languages = %v, want [HI]", filter.DenyLanguages)
	}
}
