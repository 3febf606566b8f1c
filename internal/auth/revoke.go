package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Shivanand-hulikatti/festival-booking/internal/config"
)

// Revoker records revoked token IDs.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "festival:revoked:"

// RedisRevoker keeps revoked token IDs in Redis with an expiry matching the
// token's remaining lifetime.
type RedisRevoker struct {
	client *redis.Client
}

// NewRedisRevoker wraps an open Redis client.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

// NewRedisClient connects to cfg.URL, which may be a redis:// URL or a bare
// host:port address.
func NewRedisClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(cfg.URL, "://") {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.URL, DB: cfg.DB}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Revoke marks jti revoked for ttl.
func (r *RedisRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return r.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

// IsRevoked reports whether jti has been revoked.
func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
