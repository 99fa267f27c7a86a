package service

import (
	"context"

	"github.com/google/uuid"

	"identity-server/shared/models"
)

// RegisterInput carries the data for a new account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService defines the account lifecycle and session logic.
type AuthService interface {
	// Register creates a PENDING account and sends a verification code.
	// No tokens are issued until the email is verified.
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	// VerifyOtp activates the account on a correct code and returns an
	// auto-login token pair.
	VerifyOtp(ctx context.Context, email, code string) (*models.TokenDetails, error)
	// ResendOtp issues a fresh code for a pending account, subject to the
	// per-email request throttle.
	ResendOtp(ctx context.Context, email string) error
	Login(ctx context.Context, username, password, deviceID string) (*models.TokenDetails, error)
	// Refresh rotates the refresh token and returns a new pair. The old
	// refresh token is single-use.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error)
	// Logout revokes the presented access token and every refresh token
	// the user holds.
	Logout(ctx context.Context, accessToken string, userID uuid.UUID) error
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}
