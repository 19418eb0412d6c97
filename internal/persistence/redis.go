package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/expert-desk/internal/config"
)

const redisProbeTimeout = 2 * time.Second

// Redis wraps the go-redis client together with the result of the startup probe.
type Redis struct {
	Client    *redis.Client
	available bool
}

// NewRedis builds a client from REDIS_ADDR, which may be a host:port pair or a
// redis:// URL, and probes it once. An unreachable server is logged, not returned;
// callers check Available before relying on it.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Redis, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	r := &Redis{Client: redis.NewClient(opts)}

	probeCtx, cancel := context.WithTimeout(ctx, redisProbeTimeout)
	defer cancel()
	if err := r.Client.Ping(probeCtx).Err(); err != nil {
		logger.Warn("redis unreachable; leases and config cache disabled",
			zap.String("addr", opts.Addr), zap.Error(err))
		return r, nil
	}
	r.available = true
	logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return r, nil
}

func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if strings.HasPrefix(cfg.Addr, "redis://") || strings.HasPrefix(cfg.Addr, "rediss://") {
		opts, err := redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_ADDR: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}, nil
}

// Available reports whether the startup probe succeeded.
func (r *Redis) Available() bool {
	return r != nil && r.available
}

// ClientHandle returns the client, or nil when Redis was unreachable at startup.
func (r *Redis) ClientHandle() *redis.Client {
	if !r.Available() {
		return nil
	}
	return r.Client
}

// Ping is used by the readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}
