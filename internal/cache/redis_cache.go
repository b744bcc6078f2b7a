package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"apotek/backend/internal/domain"
)

const markupKey = "apotek:settings:" + domain.SettingGlobalMarkup

type RedisSettingsCache struct {
	client *redis.Client
}

func NewRedisSettingsCache(addr string, password string, db int) *RedisSettingsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisSettingsCache{client: client}
}

func (c *RedisSettingsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSettingsCache) Close() error {
	return c.client.Close()
}

func (c *RedisSettingsCache) GetMarkup(ctx context.Context) (*domain.MarkupSetting, bool, error) {
	val, err := c.client.Get(ctx, markupKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var setting domain.MarkupSetting
	if err := json.Unmarshal([]byte(val), &setting); err != nil {
		return nil, false, err
	}
	return &setting, true, nil
}

func (c *RedisSettingsCache) SetMarkup(ctx context.Context, value *domain.MarkupSetting, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, markupKey, payload, ttl).Err()
}

func (c *RedisSettingsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, markupKey).Err()
}
