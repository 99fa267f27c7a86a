package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// SeedClient describes one service client to guarantee at startup.
type SeedClient struct {
	ClientID string
	Secret   string
	Scopes   string
}

// EnsureServiceClients creates any missing service client registrations.
// Existing registrations are left untouched, so secret rotation is an
// explicit admin operation rather than a restart side effect.
func EnsureServiceClients(ctx context.Context, repo interfaces.ServiceClientRepository, seeds []SeedClient, logger *zap.Logger) error {
	log := logger.Named("ServiceClientBootstrap")

	for _, seed := range seeds {
		if seed.ClientID == "" || seed.Secret == "" {
			log.Warn("Skipping seed client with empty id or secret", zap.String("clientID", seed.ClientID))
			continue
		}

		exists, err := repo.ExistsByClientID(ctx, seed.ClientID)
		if err != nil {
			return fmt.Errorf("failed to check service client %s: %w", seed.ClientID, err)
		}
		if exists {
			log.Debug("Service client already registered", zap.String("clientID", seed.ClientID))
			continue
		}

		secretHash, err := bcrypt.GenerateFromPassword([]byte(seed.Secret), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash secret for client %s: %w", seed.ClientID, err)
		}

		client := &models.ServiceClient{
			ClientID:      seed.ClientID,
			SecretHash:    string(secretHash),
			AllowedScopes: seed.Scopes,
			Enabled:       true,
		}
		if err := repo.Create(ctx, client); err != nil {
			// A concurrent replica may have created it between the check
			// and the insert.
			if errors.Is(err, models.ErrClientAlreadyExists) {
				log.Debug("Service client created concurrently", zap.String("clientID", seed.ClientID))
				continue
			}
			return fmt.Errorf("failed to create service client %s: %w", seed.ClientID, err)
		}
		log.Info("Service client registered", zap.String("clientID", seed.ClientID), zap.String("scopes", seed.Scopes))
	}
	return nil
}
