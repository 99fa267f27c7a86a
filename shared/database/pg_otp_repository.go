package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// Compile-time check
var _ interfaces.OtpRepository = (*pgOtpRepository)(nil)

// pgOtpRepository is the authoritative store for one-time codes. The Redis
// cache in front of it is an optimization only; correctness never depends
// on the cache being populated.
type pgOtpRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgOtpRepository creates a new PostgreSQL-backed OtpRepository.
func NewPgOtpRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.OtpRepository {
	return &pgOtpRepository{
		db:     db,
		logger: logger.Named("PgOtpRepo"),
	}
}

// Create inserts a new code row and fills in the generated id.
func (r *pgOtpRepository) Create(ctx context.Context, otp *models.OtpCode) error {
	query := `INSERT INTO otp_codes (email, code, verified, expires_at) VALUES ($1, $2, FALSE, $3) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, otp.Email, otp.Code, otp.ExpiresAt).Scan(&otp.ID, &otp.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create otp code in postgres", zap.Error(err), zap.String("email", otp.Email))
		return fmt.Errorf("failed to create otp code in postgres: %w", err)
	}
	r.logger.Debug("OTP code stored", zap.String("email", otp.Email), zap.Int64("id", otp.ID))
	return nil
}

// FindActive returns the newest unverified code matching the email and
// code, or ErrOTPInvalid when nothing matches. Expiry is deliberately not
// part of the predicate: an expired match must be distinguishable from a
// wrong code by the caller.
func (r *pgOtpRepository) FindActive(ctx context.Context, email, code string) (*models.OtpCode, error) {
	query := `SELECT id, email, code, verified, expires_at, created_at
		FROM otp_codes
		WHERE email = $1 AND code = $2 AND verified = FALSE
		ORDER BY created_at DESC
		LIMIT 1`
	otp := &models.OtpCode{}
	err := r.db.QueryRow(ctx, query, email, code).Scan(
		&otp.ID, &otp.Email, &otp.Code, &otp.Verified, &otp.ExpiresAt, &otp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("No active otp code matched", zap.String("email", email))
			return nil, models.ErrOTPInvalid
		}
		r.logger.Error("Failed to query otp code from postgres", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to query otp code from postgres: %w", err)
	}
	return otp, nil
}

// MarkVerified consumes a code so it cannot be replayed.
func (r *pgOtpRepository) MarkVerified(ctx context.Context, id int64) error {
	query := `UPDATE otp_codes SET verified = TRUE WHERE id = $1 AND verified = FALSE`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to mark otp code verified", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to mark otp code verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already consumed by a concurrent verification.
		return models.ErrOTPInvalid
	}
	return nil
}

// DeleteExpired purges codes whose expiry is before the cutoff.
func (r *pgOtpRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM otp_codes WHERE expires_at < $1`
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		r.logger.Error("Failed to delete expired otp codes", zap.Error(err))
		return 0, fmt.Errorf("failed to delete expired otp codes: %w", err)
	}
	deleted := tag.RowsAffected()
	if deleted > 0 {
		r.logger.Info("Expired otp codes purged", zap.Int64("count", deleted))
	}
	return deleted, nil
}
