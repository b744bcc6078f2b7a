package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"apotek/backend/internal/cache"
	"apotek/backend/internal/domain"
	"apotek/backend/internal/pricing"
	"apotek/backend/internal/store"
	"apotek/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	SettingsCache    cache.SettingsCache
	SettingsCacheTTL time.Duration
	// DefaultMarkup applies when the stored markup setting is missing or
	// unreadable. Nil means pricing.DefaultMarkupPercent.
	DefaultMarkup *decimal.Decimal
}

type Service struct {
	repo          store.Repository
	settings      cache.SettingsCache
	settingsTTL   time.Duration
	defaultMarkup decimal.Decimal
	now           func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.SettingsCache == nil {
		opts.SettingsCache = cache.NoopSettingsCache{}
	}
	if opts.SettingsCacheTTL <= 0 {
		opts.SettingsCacheTTL = 5 * time.Minute
	}
	defaultMarkup := pricing.DefaultMarkupPercent
	if opts.DefaultMarkup != nil && !opts.DefaultMarkup.IsNegative() {
		defaultMarkup = *opts.DefaultMarkup
	}

	return &Service{
		repo:          repo,
		settings:      opts.SettingsCache,
		settingsTTL:   opts.SettingsCacheTTL,
		defaultMarkup: defaultMarkup,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	from, to, err := dayRange(date, s.now())
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

// operatorID is the identity a shift or sale is bound to.
func operatorID(ctx context.Context) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || strings.TrimSpace(actor.Username) == "" {
		return "", fmt.Errorf("%w: operator identity required", store.ErrValidation)
	}
	return actor.Username, nil
}

func dayRange(date string, now time.Time) (time.Time, time.Time, error) {
	day := now.Truncate(24 * time.Hour)
	if strings.TrimSpace(date) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(date))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
		}
		day = parsed
	}
	return day, day.Add(24 * time.Hour), nil
}

// parseOptionalDate reads a YYYY-MM-DD request field; empty means no date.
func parseOptionalDate(field string, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", store.ErrValidation, field)
	}
	return &parsed, nil
}
