package authutils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"identity-server/shared/models"
)

// TokenValidator parses and verifies HS256 access tokens. It is the single
// verification path shared by the auth service and the gateway, so both
// sides always agree on what a valid token is.
type TokenValidator struct {
	secret []byte
	logger *zap.Logger
}

// NewTokenValidator creates a validator. The secret must not be empty.
func NewTokenValidator(secret string, logger *zap.Logger) (*TokenValidator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &TokenValidator{
		secret: []byte(secret),
		logger: logger.Named("TokenValidator"),
	}, nil
}

// Verify checks signature and time claims and returns the parsed claims.
// Failures map onto the shared token error sentinels.
func (v *TokenValidator) Verify(tokenString string) (*models.Claims, error) {
	return v.verify(tokenString, "")
}

// VerifyWithAudience additionally requires the token's audience list to
// contain the expected audience.
func (v *TokenValidator) VerifyWithAudience(tokenString, audience string) (*models.Claims, error) {
	return v.verify(tokenString, audience)
}

func (v *TokenValidator) verify(tokenString, audience string) (*models.Claims, error) {
	claims := &models.Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, models.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, models.ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, models.ErrAudienceMismatch
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			v.logger.Warn("Token signature verification failed")
			return nil, models.ErrTokenInvalid
		default:
			v.logger.Warn("Token validation failed", zap.Error(err))
			return nil, models.ErrTokenInvalid
		}
	}
	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// RemainingLifetime returns how long until the claims expire, clamped at
// zero. Tokens without an expiry claim report zero.
func RemainingLifetime(claims *models.Claims, now time.Time) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
