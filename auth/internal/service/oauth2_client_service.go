package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"identity-server/shared/constants"
	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// TokenGrant is the successful outcome of a client_credentials exchange.
type TokenGrant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// OAuth2ClientService implements the client_credentials grant for
// service-to-service calls.
type OAuth2ClientService struct {
	clients   interfaces.ServiceClientRepository
	generator *TokenGenerator
	logger    *zap.Logger
}

// NewOAuth2ClientService creates an OAuth2ClientService.
func NewOAuth2ClientService(clients interfaces.ServiceClientRepository, generator *TokenGenerator, logger *zap.Logger) *OAuth2ClientService {
	return &OAuth2ClientService{
		clients:   clients,
		generator: generator,
		logger:    logger.Named("OAuth2ClientService"),
	}
}

// IssueToken validates the grant request and mints a service token.
// Unknown clients, disabled clients and wrong secrets all collapse into
// ErrInvalidClient so callers cannot probe for registered client IDs.
func (s *OAuth2ClientService) IssueToken(ctx context.Context, grantType, clientID, clientSecret, scope, audience string) (*TokenGrant, error) {
	if grantType != constants.GrantTypeClientCredentials {
		s.logger.Warn("Unsupported grant type requested", zap.String("grantType", grantType), zap.String("clientID", clientID))
		return nil, models.ErrInvalidGrantType
	}

	client, err := s.clients.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, models.ErrClientNotFound) {
			s.logger.Warn("Token requested for unknown client", zap.String("clientID", clientID))
			return nil, models.ErrInvalidClient
		}
		return nil, err
	}

	if !client.Enabled {
		s.logger.Warn("Token requested for disabled client", zap.String("clientID", clientID))
		return nil, models.ErrInvalidClient
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(clientSecret)); err != nil {
		s.logger.Warn("Client secret mismatch", zap.String("clientID", clientID))
		return nil, models.ErrInvalidClient
	}

	grantedScope, err := s.resolveScope(client, scope)
	if err != nil {
		s.logger.Warn("Requested scope not allowed",
			zap.String("clientID", clientID),
			zap.String("requested", scope),
			zap.String("allowed", client.AllowedScopes),
		)
		return nil, err
	}

	if audience == "" {
		audience = constants.DefaultAudience
	}

	token, err := s.generator.GenerateServiceToken(client.ClientID, audience, grantedScope)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Service token issued",
		zap.String("clientID", clientID),
		zap.String("audience", audience),
		zap.String("scope", grantedScope),
	)
	return &TokenGrant{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.generator.ServiceTokenTTL().Seconds()),
		Scope:       grantedScope,
	}, nil
}

// resolveScope returns the client's full allowance when no scope was
// requested, otherwise requires every requested scope to be allowed.
func (s *OAuth2ClientService) resolveScope(client *models.ServiceClient, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return client.AllowedScopes, nil
	}
	for _, scope := range strings.Split(requested, ",") {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if !client.HasScope(scope) {
			return "", models.ErrScopeNotAllowed
		}
	}
	return requested, nil
}
