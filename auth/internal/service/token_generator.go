package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-server/shared/constants"
	"identity-server/shared/models"
)

// TokenGenerator issues signed HS256 access tokens for users and services.
// It never persists anything; issued tokens are self-contained.
type TokenGenerator struct {
	secret          []byte
	issuer          string
	accessTokenTTL  time.Duration
	serviceTokenTTL time.Duration
	logger          *zap.Logger
}

// NewTokenGenerator creates a generator. The signing secret must not be
// empty; that is a startup error, not something to discover per-request.
func NewTokenGenerator(secret, issuer string, accessTokenTTL, serviceTokenTTL time.Duration, logger *zap.Logger) (*TokenGenerator, error) {
	if secret == "" {
		return nil, errors.New("jwt signing secret is empty")
	}
	return &TokenGenerator{
		secret:          []byte(secret),
		issuer:          issuer,
		accessTokenTTL:  accessTokenTTL,
		serviceTokenTTL: serviceTokenTTL,
		logger:          logger.Named("TokenGenerator"),
	}, nil
}

// AccessTokenTTL exposes the configured user token lifetime.
func (g *TokenGenerator) AccessTokenTTL() time.Duration {
	return g.accessTokenTTL
}

// ServiceTokenTTL exposes the configured service token lifetime.
func (g *TokenGenerator) ServiceTokenTTL() time.Duration {
	return g.serviceTokenTTL
}

// GenerateAccessToken issues a user access token carrying the identity
// claims downstream services rely on.
func (g *TokenGenerator) GenerateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.Claims{
		TokenType:    constants.TokenTypeUser,
		Roles:        user.Roles,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.accessTokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		g.logger.Error("Failed to sign access token", zap.Error(err), zap.String("userID", user.ID.String()))
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// GenerateServiceToken issues a machine token bound to a single audience
// and carrying the granted scope.
func (g *TokenGenerator) GenerateServiceToken(clientID, audience, scope string) (string, error) {
	now := time.Now()
	claims := &models.Claims{
		TokenType: constants.TokenTypeService,
		Roles:     []string{models.RoleService},
		ClientID:  clientID,
		Scope:     scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			Issuer:    g.issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.serviceTokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		g.logger.Error("Failed to sign service token", zap.Error(err), zap.String("clientID", clientID))
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}
