package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/store"
)

// GetMarkup returns the global markup percentage. A missing or unparsable
// stored value falls back to the configured default.
func (s *Service) GetMarkup(ctx context.Context) (domain.MarkupSetting, error) {
	if cached, ok, err := s.settings.GetMarkup(ctx); err != nil {
		log.Printf("[service] WARN: settings cache read failed: %v", err)
	} else if ok {
		return *cached, nil
	}

	setting := domain.MarkupSetting{MarkupPercent: s.defaultMarkup}
	raw, err := s.repo.GetSetting(ctx, domain.SettingGlobalMarkup)
	switch {
	case err == nil:
		parsed, parseErr := decimal.NewFromString(raw)
		if parseErr != nil || parsed.IsNegative() {
			log.Printf("[service] WARN: ignoring unreadable %s=%q", domain.SettingGlobalMarkup, raw)
		} else {
			setting.MarkupPercent = parsed
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		return domain.MarkupSetting{}, err
	}

	if err := s.settings.SetMarkup(ctx, &setting, s.settingsTTL); err != nil {
		log.Printf("[service] WARN: settings cache write failed: %v", err)
	}
	return setting, nil
}

func (s *Service) SetMarkup(ctx context.Context, req domain.MarkupSetting) (domain.MarkupSetting, error) {
	if req.MarkupPercent.IsNegative() {
		return domain.MarkupSetting{}, fmt.Errorf("%w: markup_percent must not be negative", store.ErrValidation)
	}
	if err := s.repo.SetSetting(ctx, domain.SettingGlobalMarkup, req.MarkupPercent.String()); err != nil {
		return domain.MarkupSetting{}, err
	}
	if err := s.settings.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: settings cache invalidate failed: %v", err)
	}

	s.logAudit(ctx, "settings_markup_update", "setting", domain.SettingGlobalMarkup, "markup_percent="+req.MarkupPercent.String())
	return domain.MarkupSetting{MarkupPercent: req.MarkupPercent}, nil
}

// effectiveMarkup is the row override when given, else the global setting.
func (s *Service) effectiveMarkup(ctx context.Context, override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil {
		return *override, nil
	}
	setting, err := s.GetMarkup(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return setting.MarkupPercent, nil
}
