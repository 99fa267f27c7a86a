package models

import "time"

// OtpCode is the durable record of a one-time code sent during account
// activation. A verified or expired record is never accepted again.
type OtpCode struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"-"`
	Verified  bool      `json:"verified"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the code is past its expiry at the given instant.
func (o *OtpCode) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
