package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// RefreshTokenService issues and verifies opaque refresh tokens. The raw
// token leaves the service exactly once, in the issuance response; only its
// SHA-256 hash is ever stored, so a store dump cannot be replayed.
type RefreshTokenService struct {
	repo   interfaces.RefreshTokenRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewRefreshTokenService creates a RefreshTokenService.
func NewRefreshTokenService(repo interfaces.RefreshTokenRepository, ttl time.Duration, logger *zap.Logger) *RefreshTokenService {
	return &RefreshTokenService{
		repo:   repo,
		ttl:    ttl,
		logger: logger.Named("RefreshTokenService"),
	}
}

// TTL exposes the configured refresh token lifetime.
func (s *RefreshTokenService) TTL() time.Duration {
	return s.ttl
}

// Create mints a new opaque token for the user and stores its hash.
func (s *RefreshTokenService) Create(ctx context.Context, userID uuid.UUID, deviceID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now()
	record := &models.RefreshTokenRecord{
		TokenHash: hashToken(token),
		UserID:    userID,
		DeviceID:  deviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repo.Save(ctx, record, s.ttl); err != nil {
		return "", err
	}
	s.logger.Debug("Refresh token issued", zap.String("userID", userID.String()), zap.String("deviceID", deviceID))
	return token, nil
}

// Verify resolves a raw token to its owner. Unknown hashes return
// ErrTokenNotFound; a stored-but-expired record is deleted and reported
// as ErrTokenExpired in case the store TTL lagged.
func (s *RefreshTokenService) Verify(ctx context.Context, rawToken string) (uuid.UUID, error) {
	tokenHash := hashToken(rawToken)
	record, err := s.repo.Get(ctx, tokenHash)
	if err != nil {
		return uuid.Nil, err
	}

	if time.Now().After(record.ExpiresAt) {
		s.logger.Warn("Stored refresh token past its expiry, deleting", zap.String("userID", record.UserID.String()))
		if delErr := s.repo.Delete(ctx, record.UserID, tokenHash); delErr != nil {
			s.logger.Error("Failed to delete expired refresh token", zap.Error(delErr))
		}
		return uuid.Nil, models.ErrTokenExpired
	}
	return record.UserID, nil
}

// Rotate atomically-enough swaps a verified token for a fresh one: the old
// token is deleted before the new one is minted, so a crash in between
// forces re-login rather than leaving two live tokens.
func (s *RefreshTokenService) Rotate(ctx context.Context, rawToken string) (uuid.UUID, string, error) {
	tokenHash := hashToken(rawToken)
	record, err := s.repo.Get(ctx, tokenHash)
	if err != nil {
		return uuid.Nil, "", err
	}
	if time.Now().After(record.ExpiresAt) {
		if delErr := s.repo.Delete(ctx, record.UserID, tokenHash); delErr != nil {
			s.logger.Error("Failed to delete expired refresh token", zap.Error(delErr))
		}
		return uuid.Nil, "", models.ErrTokenExpired
	}

	if err := s.repo.Delete(ctx, record.UserID, tokenHash); err != nil {
		return uuid.Nil, "", err
	}

	newToken, err := s.Create(ctx, record.UserID, record.DeviceID)
	if err != nil {
		return uuid.Nil, "", err
	}
	s.logger.Debug("Refresh token rotated", zap.String("userID", record.UserID.String()))
	return record.UserID, newToken, nil
}

// Revoke deletes a single refresh token.
func (s *RefreshTokenService) Revoke(ctx context.Context, userID uuid.UUID, rawToken string) error {
	return s.repo.Delete(ctx, userID, hashToken(rawToken))
}

// RevokeAll deletes every refresh token the user holds and returns how
// many were removed.
func (s *RefreshTokenService) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.DeleteAllForUser(ctx, userID)
}

func hashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
