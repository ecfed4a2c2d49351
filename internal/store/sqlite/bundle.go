package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/tubeharvest/harvester/internal/domain"
)

// Bundle is the portable snapshot of the whole store, used by the export
// and import endpoints to move a harvest between machines.
type Bundle struct {
	ExportedAt time.Time         `json:"exported_at"`
	Channels   []*domain.Channel `json:"channels"`
	Keywords   []*domain.Keyword `json:"keywords"`
}

// ExportBundle snapshots every channel and keyword row.
func (s *Store) ExportBundle(ctx context.Context) (*Bundle, error) {
	channels, err := s.ListChannels(ctx, ChannelScope{})
	if err != nil {
		return nil, fmt.Errorf("export bundle: %w", err)
	}
	keywords, err := s.ListKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("export bundle: %w", err)
	}
	return &Bundle{
		ExportedAt: time.Now().UTC(),
		Channels:   channels,
		Keywords:   keywords,
	}, nil
}

// ImportBundle merges a previously exported bundle into the store. Channels
// go through the same conservative upsert as discovery, so importing never
// clobbers local enrichment work; keywords are replaced wholesale.
func (s *Store) ImportBundle(ctx context.Context, b *Bundle) (channels, keywords int, err error) {
	for _, ch := range b.Channels {
		if ch.ID == "" {
			continue
		}
		if !domain.ValidStatus(ch.Status) {
			ch.Status = domain.StatusNew
		}
		if err := s.UpsertChannel(ctx, ch); err != nil {
			return channels, keywords, fmt.Errorf("import channel %s: %w", ch.ID, err)
		}
		channels++
	}
	for _, kw := range b.Keywords {
		if kw.Text == "" {
			continue
		}
		if err := s.UpsertKeyword(ctx, kw); err != nil {
			return channels, keywords, fmt.Errorf("import keyword %q: %w", kw.Text, err)
		}
		keywords++
	}
	return channels, keywords, nil
}
