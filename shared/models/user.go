package models

import (
	"time"

	"github.com/google/uuid"
)

// User account statuses.
const (
	StatusPending  = "PENDING" // registered, email not yet verified
	StatusActive   = "ACTIVE"  // email verified, can log in
	StatusInactive = "INACTIVE"
	StatusLocked   = "LOCKED"
)

// User represents a stored user account.
type User struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	Roles         []string  `json:"roles"`
	Status        string    `json:"status"`
	EmailVerified bool      `json:"email_verified"`
	TokenVersion  int       `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
