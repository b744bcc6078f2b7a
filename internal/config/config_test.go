package config

import (
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SETTINGS_CACHE_TTL_SECONDS", "15")
	t.Setenv("DEFAULT_MARKUP_PERCENT", "12.5")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "30")

	cfg := Load()
	if cfg.Address() != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.Address())
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("expected redis db 3, got %d", cfg.RedisDB)
	}
	if cfg.SettingsCacheTTL != 15*time.Second {
		t.Fatalf("expected 15s cache ttl, got %s", cfg.SettingsCacheTTL)
	}
	if cfg.DefaultMarkupPercent.String() != "12.5" {
		t.Fatalf("expected markup 12.5, got %s", cfg.DefaultMarkupPercent)
	}
	if cfg.AccessTokenTTLMinutes != 30 {
		t.Fatalf("expected token ttl 30, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("SETTINGS_CACHE_TTL_SECONDS", "0")
	t.Setenv("DEFAULT_MARKUP_PERCENT", "-4")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-1")

	cfg := Load()
	if cfg.SettingsCacheTTL != time.Minute {
		t.Fatalf("expected 1m fallback, got %s", cfg.SettingsCacheTTL)
	}
	if cfg.DefaultMarkupPercent.String() != "10" {
		t.Fatalf("expected markup fallback 10, got %s", cfg.DefaultMarkupPercent)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected token ttl fallback 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}
