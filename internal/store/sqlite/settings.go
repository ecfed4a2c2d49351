package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tubeharvest/harvester/internal/domain"
)

// Settings live in a small key/value table; each value is one JSON document.
const enrichSettingsKey = "enrich"

// GetEnrichSettings returns the dashboard's saved enrichment settings, or
// nil when nothing was saved yet.
func (s *Store) GetEnrichSettings(ctx context.Context) (*domain.EnrichmentSettings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", enrichSettingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get enrich settings: %w", err)
	}

	var st domain.EnrichmentSettings
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("get enrich settings: %w", err)
	}
	return &st, nil
}

// SaveEnrichSettings persists the dashboard's enrichment settings, replacing
// any previous save.
func (s *Store) SaveEnrichSettings(ctx context.Context, st domain.EnrichmentSettings) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("save enrich settings: %w", err)
	}
	return execRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			enrichSettingsKey, string(raw))
		if err != nil {
			return fmt.Errorf("save enrich settings: %w", err)
		}
		return nil
	})
}
