package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"identity-server/shared/interfaces"
)

// Compile-time check
var _ interfaces.RateLimitStore = (*redisRateLimitStore)(nil)

// redisRateLimitStore backs the gateway's fixed-window request limiter.
type redisRateLimitStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRateLimitStore creates a new Redis-backed RateLimitStore.
func NewRedisRateLimitStore(client *redis.Client, logger *zap.Logger) interfaces.RateLimitStore {
	return &redisRateLimitStore{
		client: client,
		logger: logger.Named("RedisRateLimitStore"),
	}
}

// IncrementWindow bumps the counter for the key and returns the new count.
// The window TTL is set only by the writer that created the counter.
func (s *redisRateLimitStore) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Error("Failed to increment rate limit counter", zap.Error(err), zap.String("key", key))
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			s.logger.Error("Failed to set rate limit window", zap.Error(err), zap.String("key", key))
			return 0, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count, nil
}
