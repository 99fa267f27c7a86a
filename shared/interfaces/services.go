package interfaces

import (
	"context"

	"identity-server/shared/models"
)

// EmailSender delivers one-time codes to users.
type EmailSender interface {
	SendOtpEmail(ctx context.Context, email, code string) error
}

// UserEventPublisher broadcasts account lifecycle events to other services.
type UserEventPublisher interface {
	PublishUserVerified(ctx context.Context, event *models.UserVerifiedEvent) error
}

// ServiceTokenProvider hands out cached service-to-service access tokens.
type ServiceTokenProvider interface {
	// GetServiceToken returns a valid token for the audience, fetching a
	// fresh one when the cached token is missing or near expiry.
	GetServiceToken(ctx context.Context, audience string) (string, error)
	// ClearCache drops the cached token for the audience, forcing the next
	// call to fetch. Used after an upstream rejects a token early.
	ClearCache(audience string)
}
