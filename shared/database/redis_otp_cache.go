package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"identity-server/shared/constants"
	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// Compile-time check
var _ interfaces.OtpCache = (*redisOtpCache)(nil)

// redisOtpCache is the fast path in front of the authoritative OTP store.
// A cache miss is never an error condition; callers fall through to the
// database. Any write to the authoritative store must invalidate here.
type redisOtpCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisOtpCache creates a new Redis-backed OtpCache.
func NewRedisOtpCache(client *redis.Client, logger *zap.Logger) interfaces.OtpCache {
	return &redisOtpCache{
		client: client,
		logger: logger.Named("RedisOtpCache"),
	}
}

// SetCode caches the latest code for an email with the code's own TTL.
func (c *redisOtpCache) SetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	key := constants.RedisOtpPrefix + email
	if err := c.client.Set(ctx, key, code, ttl).Err(); err != nil {
		c.logger.Error("Failed to cache otp code", zap.Error(err), zap.String("email", email))
		return fmt.Errorf("failed to cache otp code: %w", err)
	}
	return nil
}

// GetCode returns the cached code, or ErrOTPInvalid on a miss.
func (c *redisOtpCache) GetCode(ctx context.Context, email string) (string, error) {
	key := constants.RedisOtpPrefix + email
	code, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", models.ErrOTPInvalid
		}
		c.logger.Error("Failed to read otp cache", zap.Error(err), zap.String("email", email))
		return "", fmt.Errorf("failed to read otp cache: %w", err)
	}
	return code, nil
}

// DeleteCode drops the cached code for an email.
func (c *redisOtpCache) DeleteCode(ctx context.Context, email string) error {
	key := constants.RedisOtpPrefix + email
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Failed to invalidate otp cache", zap.Error(err), zap.String("email", email))
		return fmt.Errorf("failed to invalidate otp cache: %w", err)
	}
	return nil
}

// IncrementRequestCount bumps the fixed-window counter for the email.
// Only the writer that created the counter sets the window TTL, so the
// window does not slide on every request.
func (c *redisOtpCache) IncrementRequestCount(ctx context.Context, email string, window time.Duration) (int64, error) {
	key := constants.RedisOtpRateLimitPrefix + email
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Error("Failed to increment otp request counter", zap.Error(err), zap.String("email", email))
		return 0, fmt.Errorf("failed to increment otp request counter: %w", err)
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			c.logger.Error("Failed to set otp counter window", zap.Error(err), zap.String("email", email))
			return 0, fmt.Errorf("failed to set otp counter window: %w", err)
		}
	}
	return count, nil
}
