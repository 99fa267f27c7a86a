package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"identity-server/shared/constants"
	"identity-server/shared/interfaces"
)

// Compile-time check
var _ interfaces.BlacklistRepository = (*redisBlacklistRepository)(nil)

// redisBlacklistRepository marks revoked access token IDs. Entries carry the
// token's remaining lifetime as TTL, so the set cleans itself up and never
// holds more entries than there are unexpired revoked tokens.
type redisBlacklistRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBlacklistRepository creates a new Redis-backed BlacklistRepository.
func NewRedisBlacklistRepository(client *redis.Client, logger *zap.Logger) interfaces.BlacklistRepository {
	return &redisBlacklistRepository{
		client: client,
		logger: logger.Named("RedisBlacklistRepo"),
	}
}

// Add marks the token ID as revoked for the given TTL. A non-positive TTL
// means the token is already expired and there is nothing to record.
func (r *redisBlacklistRepository) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		r.logger.Debug("Skipping blacklist of already-expired token", zap.String("jti", jti))
		return nil
	}
	key := constants.RedisBlacklistPrefix + jti
	if err := r.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		r.logger.Error("Failed to blacklist token in redis", zap.Error(err), zap.String("jti", jti))
		return fmt.Errorf("failed to blacklist token in redis: %w", err)
	}
	r.logger.Debug("Token blacklisted", zap.String("jti", jti), zap.Duration("ttl", ttl))
	return nil
}

// Exists reports whether the token ID is currently blacklisted.
func (r *redisBlacklistRepository) Exists(ctx context.Context, jti string) (bool, error) {
	key := constants.RedisBlacklistPrefix + jti
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("Failed to check token blacklist in redis", zap.Error(err), zap.String("jti", jti))
		return false, fmt.Errorf("failed to check token blacklist in redis: %w", err)
	}
	return n > 0, nil
}
