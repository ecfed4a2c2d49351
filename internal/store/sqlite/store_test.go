package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tubeharvest/harvester/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func discoveredChannel(id, keyword string) *domain.Channel {
	return &domain.Channel{
		ID:                 id,
		Name:               "Channel " + id,
		URL:                "https://www.youtube.com/channel/" + id,
		SubscriberCount:    -1,
		LongformVideoCount: -1,
		Status:             domain.StatusNew,
		SourceKeyword:      keyword,
	}
}

func TestUpsertChannelInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	in := discoveredChannel("UC001", "bitcoin")
	if err := s.UpsertChannel(ctx, in); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetChannel(ctx, "UC001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Channel UC001" || got.SourceKeyword != "bitcoin" {
		t.Fatalf("unexpected channel: %+v", got)
	}
	if got.SubscriberCount != -1 || got.LongformVideoCount != -1 {
		t.Fatalf("unknown counts should stay -1, got %d/%d", got.SubscriberCount, got.LongformVideoCount)
	}
	if got.Status != domain.StatusNew {
		t.Fatalf("status = %s, want new", got.Status)
	}
	if got.DiscoveredAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps not stamped")
	}
}

func TestGetChannelNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetChannel(context.Background(), "UC404"); !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("err = %v, want ErrChannelNotFound", err)
	}
}

func TestUpsertChannelDoesNotClobberEnrichment(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertChannel(ctx, discoveredChannel("UC002", "crypto")); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	subs, vids := int64(5000), int64(12)
	upload := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	err := s.ApplyEnrichment(ctx, "UC002", ChannelEnrichment{
		SubscriberCount:    &subs,
		LongformVideoCount: &vids,
		LastUploadAt:       &upload,
		Language:           "HI",
		Emails:             []string{"biz@example.com"},
		TelegramHandle:     "@somehandle",
	})
	if err != nil {
		t.Fatalf("apply enrichment: %v", err)
	}

	// Re-discovery of the same channel knows nothing but id and name.
	again := discoveredChannel("UC002", "crypto")
	again.Name = "Renamed Channel"
	if err := s.UpsertChannel(ctx, again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetChannel(ctx, "UC002")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Renamed Channel" {
		t.Errorf("name = %q, want refreshed name", got.Name)
	}
	if got.SubscriberCount != 5000 || got.LongformVideoCount != 12 {
		t.Errorf("counts clobbered: %d/%d", got.SubscriberCount, got.LongformVideoCount)
	}
	if got.Language != "HI" {
		t.Errorf("language clobbered: %q", got.Language)
	}
	if len(got.Emails) != 1 || got.Emails[0] != "biz@example.com" {
		t.Errorf("emails clobbered: %v", got.Emails)
	}
	if got.TelegramHandle != "@somehandle" {
		t.Errorf("telegram clobbered: %q", got.TelegramHandle)
	}
	if got.LastUploadAt == nil || !got.LastUploadAt.Equal(upload) {
		t.Errorf("last upload clobbered: %v", got.LastUploadAt)
	}
}

func TestUpsertChannelStatusNeverRegresses(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ch := discoveredChannel("UC003", "finance")
	ch.Status = domain.StatusBlacklisted
	ch.BlacklistReason = domain.ReasonLowSubs
	if err := s.UpsertChannel(ctx, ch); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// A later discovery pass classifies the same channel as new.
	if err := s.UpsertChannel(ctx, discoveredChannel("UC003", "finance")); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetChannel(ctx, "UC003")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusBlacklisted || got.BlacklistReason != domain.ReasonLowSubs {
		t.Fatalf("status regressed: %s/%s", got.Status, got.BlacklistReason)
	}
}

func TestApplyEnrichmentReclassifies(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertChannel(ctx, discoveredChannel("UC004", "bitcoin")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	err := s.ApplyEnrichment(ctx, "UC004", ChannelEnrichment{
		Language:        "HI",
		Status:          domain.StatusBlacklisted,
		BlacklistReason: domain.ReasonDeniedLang,
	})
	if err != nil {
		t.Fatalf("apply enrichment: %v", err)
	}

	got, err := s.GetChannel(ctx, "UC004")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusBlacklisted || got.BlacklistReason != domain.ReasonDeniedLang {
		t.Fatalf("status = %s/%s, want blacklisted/denied_lang", got.Status, got.BlacklistReason)
	}
}

func TestApplyEnrichmentUnknownChannel(t *testing.T) {
	s := openTestStore(t)
	err := s.ApplyEnrichment(context.Background(), "UC404", ChannelEnrichment{Language: "EN"})
	if !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("err = %v, want ErrChannelNotFound", err)
	}
}

func TestListChannelsScope(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	seed := []*domain.Channel{
		discoveredChannel("UC010", "bitcoin"),
		discoveredChannel("UC011", "bitcoin"),
		discoveredChannel("UC012", "cooking"),
	}
	for _, ch := range seed {
		if err := s.UpsertChannel(ctx, ch); err != nil {
			t.Fatalf("seed %s: %v", ch.ID, err)
		}
	}
	subs := int64(9000)
	if err := s.ApplyEnrichment(ctx, "UC011", ChannelEnrichment{
		SubscriberCount: &subs,
		Language:        "EN",
		Emails:          []string{"a@b.com"},
		Status:          domain.StatusActive,
	}); err != nil {
		t.Fatalf("enrich: %v", err)
	}

	tests := []struct {
		name  string
		scope ChannelScope
		want  []string
	}{
		{"all", ChannelScope{}, []string{"UC010", "UC011", "UC012"}},
		{"by status", ChannelScope{Status: domain.StatusActive}, []string{"UC011"}},
		{"by language", ChannelScope{Language: "EN"}, []string{"UC011"}},
		{"has email", ChannelScope{HasEmail: true}, []string{"UC011"}},
		{"has telegram", ChannelScope{HasTelegram: true}, nil},
		{"min subscribers", ChannelScope{MinSubscribers: 1000}, []string{"UC011"}},
		{"name substring", ChannelScope{NameContains: "uc012"}, []string{"UC012"}},
		{"limit", ChannelScope{Limit: 2}, []string{"UC010", "UC011"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListChannels(ctx, tt.scope)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			ids := make([]string, 0, len(got))
			for _, ch := range got {
				ids = append(ids, ch.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			seen := make(map[string]bool, len(ids))
			for _, id := range ids {
				seen[id] = true
			}
			for _, id := range tt.want {
				if !seen[id] {
					t.Fatalf("ids = %v, want %v", ids, tt.want)
				}
			}
		})
	}
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, id := range []string{"UC020", "UC021"} {
		if err := s.UpsertChannel(ctx, discoveredChannel(id, "x")); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	ch := discoveredChannel("UC022", "x")
	ch.Status = domain.StatusBlacklisted
	ch.BlacklistReason = domain.ReasonNoLongform
	if err := s.UpsertChannel(ctx, ch); err != nil {
		t.Fatalf("seed: %v", err)
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.StatusNew] != 2 || counts[domain.StatusBlacklisted] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestKeywordRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	kw := &domain.Keyword{
		Text:                "bitcoin",
		ContinuationCursor:  "tok-1",
		EmptyPageStreak:     2,
		ExhaustionThreshold: 5,
		State:               domain.KeywordRunning,
		AutoEnrich:          true,
	}
	if err := s.UpsertKeyword(ctx, kw); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetKeyword(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ContinuationCursor != "tok-1" || got.EmptyPageStreak != 2 || !got.AutoEnrich {
		t.Fatalf("unexpected keyword: %+v", got)
	}

	if err := s.MarkKeywordState(ctx, "bitcoin", domain.KeywordExhausted); err != nil {
		t.Fatalf("mark: %v", err)
	}
	got, err = s.GetKeyword(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != domain.KeywordExhausted {
		t.Fatalf("state = %s, want exhausted", got.State)
	}
}

func TestMarkKeywordStateUnknown(t *testing.T) {
	s := openTestStore(t)
	err := s.MarkKeywordState(context.Background(), "missing", domain.KeywordIdle)
	if !errors.Is(err, ErrKeywordNotFound) {
		t.Fatalf("err = %v, want ErrKeywordNotFound", err)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)

	if err := src.UpsertChannel(ctx, discoveredChannel("UC030", "bitcoin")); err != nil {
		t.Fatalf("seed channel: %v", err)
	}
	if err := src.UpsertKeyword(ctx, &domain.Keyword{Text: "bitcoin", ExhaustionThreshold: 5, State: domain.KeywordIdle}); err != nil {
		t.Fatalf("seed keyword: %v", err)
	}

	bundle, err := src.ExportBundle(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := openTestStore(t)
	nc, nk, err := dst.ImportBundle(ctx, bundle)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if nc != 1 || nk != 1 {
		t.Fatalf("imported %d channels / %d keywords, want 1/1", nc, nk)
	}

	got, err := dst.GetChannel(ctx, "UC030")
	if err != nil {
		t.Fatalf("get imported: %v", err)
	}
	if !got.DiscoveredAt.Equal(bundle.Channels[0].DiscoveredAt) {
		t.Errorf("discovered_at not preserved: %v vs %v", got.DiscoveredAt, bundle.Channels[0].DiscoveredAt)
	}
	if _, err := dst.GetKeyword(ctx, "bitcoin"); err != nil {
		t.Fatalf("get imported keyword: %v", err)
	}
}
