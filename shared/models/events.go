package models

import "github.com/google/uuid"

// UserVerifiedEvent is announced on the event bus after a user completes OTP
// verification. Consumers (e.g. the email collaborator sending a welcome
// message) subscribe to the fanout exchange.
type UserVerifiedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
}
