package database_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"identity-server/shared/database"
	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// RedisRepositoriesSuite exercises the Redis-backed stores against a real
// Redis instance, including TTL behavior the in-memory fakes cannot cover.
type RedisRepositoriesSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	client    *redis.Client

	refreshTokens interfaces.RefreshTokenRepository
	blacklist     interfaces.BlacklistRepository
	otpCache      interfaces.OtpCache
	rateLimits    interfaces.RateLimitStore
}

func (s *RedisRepositoriesSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	host, err := s.container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := s.container.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	_, err = s.client.Ping(s.ctx).Result()
	require.NoError(s.T(), err, "Failed to connect to test redis")

	logger := zap.NewNop()
	s.refreshTokens = database.NewRedisRefreshTokenRepository(s.client, logger)
	s.blacklist = database.NewRedisBlacklistRepository(s.client, logger)
	s.otpCache = database.NewRedisOtpCache(s.client, logger)
	s.rateLimits = database.NewRedisRateLimitStore(s.client, logger)
}

func (s *RedisRepositoriesSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.T().Logf("Failed to terminate redis container: %v", err)
		}
	}
}

func (s *RedisRepositoriesSuite) SetupTest() {
	require.NoError(s.T(), s.client.FlushDB(s.ctx).Err())
}

func TestRedisRepositoriesSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(RedisRepositoriesSuite))
}

func (s *RedisRepositoriesSuite) newRecord(userID uuid.UUID, hash string) *models.RefreshTokenRecord {
	return &models.RefreshTokenRecord{
		TokenHash: hash,
		UserID:    userID,
		DeviceID:  "test-device",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func (s *RedisRepositoriesSuite) TestRefreshTokens_SaveGetDelete() {
	t := s.T()
	userID := uuid.New()
	record := s.newRecord(userID, "hash-one")

	require.NoError(t, s.refreshTokens.Save(s.ctx, record, time.Hour))

	got, err := s.refreshTokens.Get(s.ctx, "hash-one")
	require.NoError(t, err)
	require.Equal(t, userID, got.UserID)
	require.Equal(t, "test-device", got.DeviceID)
	require.Equal(t, "hash-one", got.TokenHash)

	require.NoError(t, s.refreshTokens.Delete(s.ctx, userID, "hash-one"))
	_, err = s.refreshTokens.Get(s.ctx, "hash-one")
	require.ErrorIs(t, err, models.ErrTokenNotFound)
}

func (s *RedisRepositoriesSuite) TestRefreshTokens_TTLExpiry() {
	t := s.T()
	record := s.newRecord(uuid.New(), "short-lived")

	require.NoError(t, s.refreshTokens.Save(s.ctx, record, 500*time.Millisecond))

	_, err := s.refreshTokens.Get(s.ctx, "short-lived")
	require.NoError(t, err)

	time.Sleep(700 * time.Millisecond)

	_, err = s.refreshTokens.Get(s.ctx, "short-lived")
	require.ErrorIs(t, err, models.ErrTokenNotFound)
}

func (s *RedisRepositoriesSuite) TestRefreshTokens_DeleteAllForUser() {
	t := s.T()
	userID := uuid.New()
	otherID := uuid.New()

	require.NoError(t, s.refreshTokens.Save(s.ctx, s.newRecord(userID, "a"), time.Hour))
	require.NoError(t, s.refreshTokens.Save(s.ctx, s.newRecord(userID, "b"), time.Hour))
	require.NoError(t, s.refreshTokens.Save(s.ctx, s.newRecord(otherID, "c"), time.Hour))

	deleted, err := s.refreshTokens.DeleteAllForUser(s.ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	_, err = s.refreshTokens.Get(s.ctx, "a")
	require.ErrorIs(t, err, models.ErrTokenNotFound)
	_, err = s.refreshTokens.Get(s.ctx, "b")
	require.ErrorIs(t, err, models.ErrTokenNotFound)

	got, err := s.refreshTokens.Get(s.ctx, "c")
	require.NoError(t, err)
	require.Equal(t, otherID, got.UserID)

	// Revoking an empty account is a no-op.
	deleted, err = s.refreshTokens.DeleteAllForUser(s.ctx, userID)
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func (s *RedisRepositoriesSuite) TestBlacklist_AddAndExpire() {
	t := s.T()
	jti := uuid.NewString()

	require.NoError(t, s.blacklist.Add(s.ctx, jti, time.Second))

	revoked, err := s.blacklist.Exists(s.ctx, jti)
	require.NoError(t, err)
	require.True(t, revoked)

	time.Sleep(1200 * time.Millisecond)

	revoked, err = s.blacklist.Exists(s.ctx, jti)
	require.NoError(t, err)
	require.False(t, revoked)
}

func (s *RedisRepositoriesSuite) TestBlacklist_NonPositiveTTLIsNoOp() {
	t := s.T()
	jti := uuid.NewString()

	require.NoError(t, s.blacklist.Add(s.ctx, jti, 0))

	revoked, err := s.blacklist.Exists(s.ctx, jti)
	require.NoError(t, err)
	require.False(t, revoked)
}

func (s *RedisRepositoriesSuite) TestOtpCache_SetGetDelete() {
	t := s.T()

	require.NoError(t, s.otpCache.SetCode(s.ctx, "user@example.com", "123456", time.Minute))

	code, err := s.otpCache.GetCode(s.ctx, "user@example.com")
	require.NoError(t, err)
	require.Equal(t, "123456", code)

	require.NoError(t, s.otpCache.DeleteCode(s.ctx, "user@example.com"))
	_, err = s.otpCache.GetCode(s.ctx, "user@example.com")
	require.ErrorIs(t, err, models.ErrOTPInvalid)
}

func (s *RedisRepositoriesSuite) TestOtpCache_RequestCounterWindow() {
	t := s.T()

	for want := int64(1); want <= 3; want++ {
		count, err := s.otpCache.IncrementRequestCount(s.ctx, "user@example.com", time.Second)
		require.NoError(t, err)
		require.Equal(t, want, count)
	}

	// A fresh window starts over once the key expires.
	time.Sleep(1200 * time.Millisecond)
	count, err := s.otpCache.IncrementRequestCount(s.ctx, "user@example.com", time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func (s *RedisRepositoriesSuite) TestRateLimitStore_FixedWindow() {
	t := s.T()

	for want := int64(1); want <= 5; want++ {
		count, err := s.rateLimits.IncrementWindow(s.ctx, "rate_limit:10.0.0.1:/api/test", time.Second)
		require.NoError(t, err)
		require.Equal(t, want, count)
	}

	time.Sleep(1200 * time.Millisecond)
	count, err := s.rateLimits.IncrementWindow(s.ctx, "rate_limit:10.0.0.1:/api/test", time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
