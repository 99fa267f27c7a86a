package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenDetails is the access/refresh pair handed out at login, OTP
// verification and refresh.
type TokenDetails struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // access token lifetime in seconds
}

// RefreshTokenRecord is what the credential store holds for a refresh token.
// The raw opaque token is never persisted; TokenHash is the SHA-256 of the
// raw value and doubles as the store key.
type RefreshTokenRecord struct {
	TokenHash string    `json:"-"`
	UserID    uuid.UUID `json:"user_id"`
	DeviceID  string    `json:"device_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
