package models

import (
	"strings"
	"time"
)

// ServiceClient is a registered client for the client-credentials grant.
// Created by the startup initializer if absent; read-only afterwards except
// for administrative disable.
type ServiceClient struct {
	ClientID      string    `json:"client_id"`
	SecretHash    string    `json:"-"`
	AllowedScopes string    `json:"allowed_scopes"` // comma-separated, e.g. "email:send,auth:validate"
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasScope reports whether the client is allowed to claim the given scope.
func (c *ServiceClient) HasScope(scope string) bool {
	for _, allowed := range strings.Split(c.AllowedScopes, ",") {
		if strings.TrimSpace(allowed) == scope {
			return true
		}
	}
	return false
}
