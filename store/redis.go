package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const settingsKeyPrefix = "newsrelay:settings:"

// RedisConfig configures the Redis-backed settings store.
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
}

// RedisSettings keeps settings as plain string keys under a fixed prefix.
type RedisSettings struct {
	client *redis.Client
}

var _ SettingsStore = (*RedisSettings)(nil)

// NewRedisSettings creates the client and verifies connectivity.
func NewRedisSettings(cfg RedisConfig) (*RedisSettings, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisSettings{client: client}, nil
}

// NewRedisSettingsWithClient wraps a preconfigured client.
func NewRedisSettingsWithClient(client *redis.Client) *RedisSettings {
	return &RedisSettings{client: client}
}

// Close closes the underlying Redis client.
func (r *RedisSettings) Close() error {
	return r.client.Close()
}

// GetSetting reads a key; a missing key is not an error.
func (r *RedisSettings) GetSetting(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, settingsKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetSetting writes a key without expiry.
func (r *RedisSettings) SetSetting(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, settingsKeyPrefix+key, value, 0).Err()
}
