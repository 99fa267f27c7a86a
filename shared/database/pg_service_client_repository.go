package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// Compile-time check
var _ interfaces.ServiceClientRepository = (*pgServiceClientRepository)(nil)

type pgServiceClientRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgServiceClientRepository creates a new PostgreSQL-backed ServiceClientRepository.
func NewPgServiceClientRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.ServiceClientRepository {
	return &pgServiceClientRepository{
		db:     db,
		logger: logger.Named("PgServiceClientRepo"),
	}
}

// GetByClientID retrieves a service client by its public identifier.
func (r *pgServiceClientRepository) GetByClientID(ctx context.Context, clientID string) (*models.ServiceClient, error) {
	query := `SELECT client_id, secret_hash, allowed_scopes, enabled, created_at FROM service_clients WHERE client_id = $1`
	client := &models.ServiceClient{}
	err := r.db.QueryRow(ctx, query, clientID).Scan(
		&client.ClientID, &client.SecretHash, &client.AllowedScopes, &client.Enabled, &client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Service client not found", zap.String("clientID", clientID))
			return nil, models.ErrClientNotFound
		}
		r.logger.Error("Failed to get service client from postgres", zap.Error(err), zap.String("clientID", clientID))
		return nil, fmt.Errorf("failed to get service client from postgres: %w", err)
	}
	return client, nil
}

// Create inserts a new service client registration.
func (r *pgServiceClientRepository) Create(ctx context.Context, client *models.ServiceClient) error {
	query := `INSERT INTO service_clients (client_id, secret_hash, allowed_scopes, enabled) VALUES ($1, $2, $3, $4) RETURNING created_at`
	err := r.db.QueryRow(ctx, query, client.ClientID, client.SecretHash, client.AllowedScopes, client.Enabled).Scan(&client.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create duplicate service client", zap.String("clientID", client.ClientID))
			return models.ErrClientAlreadyExists
		}
		r.logger.Error("Failed to create service client in postgres", zap.Error(err), zap.String("clientID", client.ClientID))
		return fmt.Errorf("failed to create service client in postgres: %w", err)
	}
	r.logger.Info("Service client created", zap.String("clientID", client.ClientID), zap.String("scopes", client.AllowedScopes))
	return nil
}

// ExistsByClientID reports whether a client registration exists.
func (r *pgServiceClientRepository) ExistsByClientID(ctx context.Context, clientID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM service_clients WHERE client_id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, clientID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check service client existence", zap.Error(err), zap.String("clientID", clientID))
		return false, fmt.Errorf("failed to check service client existence: %w", err)
	}
	return exists, nil
}

// SetEnabled toggles a client registration on or off.
func (r *pgServiceClientRepository) SetEnabled(ctx context.Context, clientID string, enabled bool) error {
	query := `UPDATE service_clients SET enabled = $1 WHERE client_id = $2`
	tag, err := r.db.Exec(ctx, query, enabled, clientID)
	if err != nil {
		r.logger.Error("Failed to update service client state", zap.Error(err), zap.String("clientID", clientID))
		return fmt.Errorf("failed to update service client state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrClientNotFound
	}
	r.logger.Info("Service client state updated", zap.String("clientID", clientID), zap.Bool("enabled", enabled))
	return nil
}
