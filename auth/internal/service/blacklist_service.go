package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"identity-server/shared/authutils"
	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// BlacklistService revokes access tokens before their natural expiry.
// Entries live only as long as the token would have, so the blacklist
// never grows beyond the set of unexpired revoked tokens.
type BlacklistService struct {
	repo      interfaces.BlacklistRepository
	validator *authutils.TokenValidator
	logger    *zap.Logger
}

// NewBlacklistService creates a BlacklistService.
func NewBlacklistService(repo interfaces.BlacklistRepository, validator *authutils.TokenValidator, logger *zap.Logger) *BlacklistService {
	return &BlacklistService{
		repo:      repo,
		validator: validator,
		logger:    logger.Named("BlacklistService"),
	}
}

// BlacklistToken revokes the given access token for its remaining lifetime.
// An already-expired token is a no-op. Write failures are surfaced; a
// logout must not silently lose its revocation.
func (s *BlacklistService) BlacklistToken(ctx context.Context, tokenString string) error {
	claims, err := s.validator.Verify(tokenString)
	if err != nil {
		if errors.Is(err, models.ErrTokenExpired) {
			// Nothing to revoke; the token is already dead.
			return nil
		}
		return err
	}

	remaining := authutils.RemainingLifetime(claims, time.Now())
	if remaining <= 0 {
		return nil
	}

	if err := s.repo.Add(ctx, claims.ID, remaining); err != nil {
		return err
	}
	s.logger.Info("Access token revoked",
		zap.String("jti", claims.ID),
		zap.String("subject", claims.Subject),
		zap.Duration("remaining", remaining),
	)
	return nil
}

// IsBlacklisted reports whether the token ID has been revoked.
func (s *BlacklistService) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.repo.Exists(ctx, jti)
}
