package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"identity-server/shared/models"
)

// UserRepository persists user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ActivateUser flips a pending account to ACTIVE and marks the email verified.
	ActivateUser(ctx context.Context, id uuid.UUID) error
}

// RefreshTokenRepository stores refresh token records keyed by token hash.
type RefreshTokenRepository interface {
	// Save stores the record under its hash with the given TTL and tracks
	// the hash in the owner's token set for bulk revocation.
	Save(ctx context.Context, record *models.RefreshTokenRecord, ttl time.Duration) error
	// Get returns the record for the hash, or models.ErrTokenNotFound.
	Get(ctx context.Context, tokenHash string) (*models.RefreshTokenRecord, error)
	// Delete removes a single token and its set membership.
	Delete(ctx context.Context, userID uuid.UUID, tokenHash string) error
	// DeleteAllForUser removes every refresh token of the user and returns
	// how many were deleted.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// BlacklistRepository tracks revoked access token IDs until they expire.
type BlacklistRepository interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Exists(ctx context.Context, jti string) (bool, error)
}

// OtpRepository is the authoritative store for one-time codes.
type OtpRepository interface {
	Create(ctx context.Context, otp *models.OtpCode) error
	// FindActive returns the newest unverified code matching email and
	// code, or models.ErrOTPInvalid. Expiry is not filtered here; the
	// caller distinguishes an expired match from no match at all.
	FindActive(ctx context.Context, email, code string) (*models.OtpCode, error)
	MarkVerified(ctx context.Context, id int64) error
	// DeleteExpired purges codes whose expiry is before the cutoff and
	// returns how many rows were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// OtpCache is the Redis fast path in front of the OTP store. It also owns
// the per-email request-rate counters.
type OtpCache interface {
	SetCode(ctx context.Context, email, code string, ttl time.Duration) error
	GetCode(ctx context.Context, email string) (string, error)
	DeleteCode(ctx context.Context, email string) error
	// IncrementRequestCount bumps the fixed-window counter for the email
	// and returns the new count. The window TTL is set by the first writer.
	IncrementRequestCount(ctx context.Context, email string, window time.Duration) (int64, error)
}

// ServiceClientRepository persists machine clients for the token broker.
type ServiceClientRepository interface {
	GetByClientID(ctx context.Context, clientID string) (*models.ServiceClient, error)
	Create(ctx context.Context, client *models.ServiceClient) error
	ExistsByClientID(ctx context.Context, clientID string) (bool, error)
	SetEnabled(ctx context.Context, clientID string, enabled bool) error
}

// RateLimitStore backs the gateway's fixed-window request limiter.
type RateLimitStore interface {
	// IncrementWindow bumps the counter for the key and returns the new
	// count. The window TTL is set only when the counter is created.
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}
