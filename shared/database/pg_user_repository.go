package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// Compile-time check to ensure pgUserRepository implements UserRepository
var _ interfaces.UserRepository = (*pgUserRepository)(nil)

const userColumns = `id, username, email, password_hash, first_name, last_name, roles, status, email_verified, token_version, created_at, updated_at`

type pgUserRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

// CreateUser inserts a new user and fills in the generated id and timestamps.
func (r *pgUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (username, email, password_hash, first_name, last_name, roles, status, email_verified, token_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("username", user.Username), zap.String("email", user.Email))
	err := r.db.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Roles,
		user.Status, user.EmailVerified, user.TokenVersion,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			logFields := []zap.Field{zap.String("username", user.Username), zap.String("email", user.Email)}
			switch pgErr.ConstraintName {
			case "users_email_key":
				r.logger.Warn("Attempted to create duplicate user by email", logFields...)
				return models.ErrEmailAlreadyExists
			default:
				r.logger.Warn("Attempted to create duplicate user", append(logFields, zap.String("constraint", pgErr.ConstraintName))...)
				return models.ErrUserAlreadyExists
			}
		}
		r.logger.Error("Failed to create user in postgres", zap.Error(err), zap.String("username", user.Username))
		return fmt.Errorf("failed to create user in postgres: %w", err)
	}
	r.logger.Info("User created", zap.String("userID", user.ID.String()), zap.String("username", user.Username))
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *pgUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := r.scanUser(ctx, query, id)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			r.logger.Debug("User not found by ID", zap.String("id", id.String()))
		}
		return nil, err
	}
	return user, nil
}

// GetUserByUsername retrieves a user by their username.
func (r *pgUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := r.scanUser(ctx, query, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			r.logger.Debug("User not found by username", zap.String("username", username))
		}
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email.
func (r *pgUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := r.scanUser(ctx, query, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			r.logger.Debug("User not found by email", zap.String("email", email))
		}
		return nil, err
	}
	return user, nil
}

// ActivateUser flips a pending account to ACTIVE and marks the email verified.
func (r *pgUserRepository) ActivateUser(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET status = $1, email_verified = TRUE, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, models.StatusActive, id)
	if err != nil {
		r.logger.Error("Failed to activate user in postgres", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to activate user in postgres: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("ActivateUser affected no rows", zap.String("id", id.String()))
		return models.ErrUserNotFound
	}
	r.logger.Info("User activated", zap.String("userID", id.String()))
	return nil
}

func (r *pgUserRepository) scanUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.Roles, &user.Status,
		&user.EmailVerified, &user.TokenVersion, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user from postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to get user from postgres: %w", err)
	}
	return user, nil
}
