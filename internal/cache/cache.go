package cache

import (
	"context"
	"time"

	"apotek/backend/internal/domain"
)

// SettingsCache fronts the settings table for values read on every supply
// ingestion. Misses fall through to the store.
type SettingsCache interface {
	GetMarkup(ctx context.Context) (*domain.MarkupSetting, bool, error)
	SetMarkup(ctx context.Context, value *domain.MarkupSetting, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopSettingsCache struct{}

func (NoopSettingsCache) GetMarkup(_ context.Context) (*domain.MarkupSetting, bool, error) {
	return nil, false, nil
}

func (NoopSettingsCache) SetMarkup(_ context.Context, _ *domain.MarkupSetting, _ time.Duration) error {
	return nil
}

func (NoopSettingsCache) Invalidate(_ context.Context) error {
	return nil
}
