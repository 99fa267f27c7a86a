package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"go.uber.org/zap"

	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// OtpService issues and validates one-time verification codes. The postgres
// store is authoritative; the redis cache only accelerates delivery-side
// reads and is invalidated on every authoritative write.
type OtpService struct {
	repo        interfaces.OtpRepository
	cache       interfaces.OtpCache
	ttl         time.Duration
	codeLength  int
	maxRequests int64
	window      time.Duration
	logger      *zap.Logger
}

// NewOtpService creates an OtpService.
func NewOtpService(repo interfaces.OtpRepository, cache interfaces.OtpCache, ttl time.Duration, codeLength int, maxRequests int64, window time.Duration, logger *zap.Logger) *OtpService {
	if codeLength < 4 || codeLength > 10 {
		codeLength = 6
	}
	return &OtpService{
		repo:        repo,
		cache:       cache,
		ttl:         ttl,
		codeLength:  codeLength,
		maxRequests: maxRequests,
		window:      window,
		logger:      logger.Named("OtpService"),
	}
}

// Generate mints a fresh code for the email, persists it and refreshes the
// cache. A newer code supersedes older unverified ones in the cache; the
// durable store keeps them all and validation always takes the newest match.
func (s *OtpService) Generate(ctx context.Context, email string) (string, error) {
	code, err := s.randomCode()
	if err != nil {
		return "", err
	}

	otp := &models.OtpCode{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.repo.Create(ctx, otp); err != nil {
		return "", err
	}

	// Cache failures do not fail generation; the durable row is enough.
	if err := s.cache.SetCode(ctx, email, code, s.ttl); err != nil {
		s.logger.Warn("Failed to cache otp code", zap.Error(err), zap.String("email", email))
	}

	s.logger.Info("OTP generated", zap.String("email", email), zap.Time("expiresAt", otp.ExpiresAt))
	return code, nil
}

// Validate checks a code against the durable store and consumes it on
// success. The cache is consulted first as a fast-path hint, but only the
// durable store decides: a cache miss or mismatch proves nothing, since
// older unverified codes stay valid until they expire.
func (s *OtpService) Validate(ctx context.Context, email, code string) error {
	if cached, cacheErr := s.cache.GetCode(ctx, email); cacheErr == nil && cached == code {
		s.logger.Debug("OTP fast-path cache hit", zap.String("email", email))
	}

	otp, err := s.repo.FindActive(ctx, email, code)
	if err != nil {
		if errors.Is(err, models.ErrOTPInvalid) {
			s.logger.Warn("OTP validation failed", zap.String("email", email))
		}
		return err
	}

	if otp.IsExpired(time.Now()) {
		s.logger.Warn("OTP expired", zap.String("email", email), zap.Time("expiresAt", otp.ExpiresAt))
		return models.ErrOTPExpired
	}

	if err := s.repo.MarkVerified(ctx, otp.ID); err != nil {
		return err
	}

	if err := s.cache.DeleteCode(ctx, email); err != nil {
		s.logger.Warn("Failed to invalidate otp cache after verification", zap.Error(err), zap.String("email", email))
	}

	s.logger.Info("OTP verified", zap.String("email", email))
	return nil
}

// CanRequest bumps the per-email request counter and reports whether the
// caller is still inside the allowance for the current window.
func (s *OtpService) CanRequest(ctx context.Context, email string) (bool, error) {
	count, err := s.cache.IncrementRequestCount(ctx, email, s.window)
	if err != nil {
		return false, err
	}
	if count > s.maxRequests {
		s.logger.Warn("OTP request throttled",
			zap.String("email", email),
			zap.Int64("count", count),
			zap.Int64("max", s.maxRequests),
		)
		return false, nil
	}
	return true, nil
}

// StartCleanup runs a periodic purge of expired durable rows until the
// context is cancelled. Purging is garbage collection only; validation
// re-checks expiry regardless.
func (s *OtpService) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("OTP cleanup stopped")
				return
			case <-ticker.C:
				if _, err := s.repo.DeleteExpired(ctx, time.Now()); err != nil {
					s.logger.Error("OTP cleanup run failed", zap.Error(err))
				}
			}
		}
	}()
}

// randomCode returns a uniformly distributed n-digit code. crypto/rand.Int
// is already rejection-sampled, so every code in [10^(n-1), 10^n) is
// equally likely.
func (s *OtpService) randomCode() (string, error) {
	min := int64(math.Pow10(s.codeLength - 1))
	max := int64(math.Pow10(s.codeLength))
	n, err := rand.Int(rand.Reader, big.NewInt(max-min))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+min), nil
}
