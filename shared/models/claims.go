package models

import (
	"identity-server/shared/constants"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the standard JWT fields plus the custom payload this system
// puts into its signed tokens. Subject holds the user id for user tokens and
// the client id for service tokens; ID (jti) is the revocation handle.
type Claims struct {
	TokenType            string   `json:"token_type"`
	Roles                []string `json:"roles,omitempty"`
	Email                string   `json:"email,omitempty"`
	TokenVersion         int      `json:"token_version,omitempty"`
	ClientID             string   `json:"client_id,omitempty"`
	Scope                string   `json:"scope,omitempty"`
	jwt.RegisteredClaims          // Issuer, Subject, Audience, ExpiresAt, IssuedAt, ID (JTI)
}

// IsServiceToken reports whether the claims describe a service token.
func (c *Claims) IsServiceToken() bool {
	return c.TokenType == constants.TokenTypeService
}
