package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"identity-server/shared/constants"
	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// Compile-time check to ensure redisRefreshTokenRepository implements RefreshTokenRepository
var _ interfaces.RefreshTokenRepository = (*redisRefreshTokenRepository)(nil)

// redisRefreshTokenRepository stores refresh token records keyed by the
// SHA-256 hash of the raw token. Alongside each record a per-user set of
// hashes is maintained so that revoke-all can find every live token.
type redisRefreshTokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRefreshTokenRepository creates a new Redis-backed RefreshTokenRepository.
func NewRedisRefreshTokenRepository(client *redis.Client, logger *zap.Logger) interfaces.RefreshTokenRepository {
	return &redisRefreshTokenRepository{
		client: client,
		logger: logger.Named("RedisRefreshTokenRepo"),
	}
}

func refreshTokenKey(tokenHash string) string {
	return constants.RedisRefreshTokenPrefix + tokenHash
}

func userTokenSetKey(userID uuid.UUID) string {
	return constants.RedisUserTokenSetPrefix + userID.String()
}

// Save stores the record under its hash and tracks the hash in the owner's
// set. The set carries the same TTL as the longest-lived token so it cannot
// outlive every member by more than one rotation.
func (r *redisRefreshTokenRepository) Save(ctx context.Context, record *models.RefreshTokenRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh token record: %w", err)
	}

	tokenKey := refreshTokenKey(record.TokenHash)
	setKey := userTokenSetKey(record.UserID)

	pipe := r.client.Pipeline()
	pipe.Set(ctx, tokenKey, payload, ttl)
	pipe.SAdd(ctx, setKey, record.TokenHash)
	pipe.Expire(ctx, setKey, ttl)

	r.logger.Debug("Saving refresh token record",
		zap.String("userID", record.UserID.String()),
		zap.Duration("ttl", ttl),
	)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save refresh token in redis", zap.Error(err), zap.String("userID", record.UserID.String()))
		return fmt.Errorf("failed to save refresh token in redis: %w", err)
	}
	return nil
}

// Get returns the record stored under the hash, or ErrTokenNotFound.
func (r *redisRefreshTokenRepository) Get(ctx context.Context, tokenHash string) (*models.RefreshTokenRecord, error) {
	payload, err := r.client.Get(ctx, refreshTokenKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrTokenNotFound
		}
		r.logger.Error("Failed to get refresh token from redis", zap.Error(err))
		return nil, fmt.Errorf("failed to get refresh token from redis: %w", err)
	}

	record := &models.RefreshTokenRecord{}
	if err := json.Unmarshal(payload, record); err != nil {
		r.logger.Error("Failed to unmarshal refresh token record", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal refresh token record: %w", err)
	}
	record.TokenHash = tokenHash
	return record, nil
}

// Delete removes a single token and its membership in the owner's set.
func (r *redisRefreshTokenRepository) Delete(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, refreshTokenKey(tokenHash))
	pipe.SRem(ctx, userTokenSetKey(userID), tokenHash)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to delete refresh token from redis", zap.Error(err), zap.String("userID", userID.String()))
		return fmt.Errorf("failed to delete refresh token from redis: %w", err)
	}
	r.logger.Debug("Refresh token deleted", zap.String("userID", userID.String()))
	return nil
}

// DeleteAllForUser removes every refresh token tracked in the user's set,
// then the set itself. Returns how many token keys were deleted.
func (r *redisRefreshTokenRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	setKey := userTokenSetKey(userID)

	hashes, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		r.logger.Error("Failed to read user token set", zap.Error(err), zap.String("userID", userID.String()))
		return 0, fmt.Errorf("failed to read user token set: %w", err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, refreshTokenKey(h))
	}
	keys = append(keys, setKey)

	deleted, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		r.logger.Error("Failed to delete user refresh tokens", zap.Error(err), zap.String("userID", userID.String()))
		return 0, fmt.Errorf("failed to delete user refresh tokens: %w", err)
	}

	// Subtract the set key itself from the reported count.
	tokenCount := deleted - 1
	if tokenCount < 0 {
		tokenCount = 0
	}
	r.logger.Info("All refresh tokens revoked for user",
		zap.String("userID", userID.String()),
		zap.Int64("count", tokenCount),
	)
	return tokenCount, nil
}
