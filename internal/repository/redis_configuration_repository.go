package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/expert-desk/internal/domain"
)

const (
	configurationHashKey   = "expertdesk:configuration"
	configurationCachePref = "expertdesk:configuration:cache:"
)

type redisConfigurationRepository struct {
	client *redis.Client
}

// NewRedisConfigurationRepository stores settings in a single Redis hash. Used as the
// primary store when Postgres is not configured.
func NewRedisConfigurationRepository(client *redis.Client) ConfigurationRepository {
	return &redisConfigurationRepository{client: client}
}

func (r *redisConfigurationRepository) Get(ctx context.Context, entityType domain.ConfigurationEntityType) (string, error) {
	val, err := r.client.HGet(ctx, configurationHashKey, string(entityType)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get configuration %s: %w", entityType, err)
	}
	return val, nil
}

func (r *redisConfigurationRepository) Set(ctx context.Context, entityType domain.ConfigurationEntityType, value string) error {
	if err := r.client.HSet(ctx, configurationHashKey, string(entityType), value).Err(); err != nil {
		return fmt.Errorf("set configuration %s: %w", entityType, err)
	}
	return nil
}

type cachedConfigurationRepository struct {
	next   ConfigurationRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedConfigurationRepository reads through a Redis cache in front of next. Cache
// failures are logged and fall through to next.
func NewCachedConfigurationRepository(next ConfigurationRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) ConfigurationRepository {
	if client == nil || ttl <= 0 {
		return next
	}
	return &cachedConfigurationRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func (r *cachedConfigurationRepository) Get(ctx context.Context, entityType domain.ConfigurationEntityType) (string, error) {
	key := configurationCachePref + string(entityType)
	val, err := r.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return val, nil
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("configuration cache read failed", zap.String("entity_type", string(entityType)), zap.Error(err))
	}

	val, err = r.next.Get(ctx, entityType)
	if err != nil {
		return "", err
	}
	if err := r.client.Set(ctx, key, val, r.ttl).Err(); err != nil {
		r.logger.Warn("configuration cache write failed", zap.String("entity_type", string(entityType)), zap.Error(err))
	}
	return val, nil
}

func (r *cachedConfigurationRepository) Set(ctx context.Context, entityType domain.ConfigurationEntityType, value string) error {
	if err := r.next.Set(ctx, entityType, value); err != nil {
		return err
	}
	if err := r.client.Del(ctx, configurationCachePref+string(entityType)).Err(); err != nil {
		r.logger.Warn("configuration cache invalidate failed", zap.String("entity_type", string(entityType)), zap.Error(err))
	}
	return nil
}
