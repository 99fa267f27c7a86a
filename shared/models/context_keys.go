package models

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys for the request-scoped identity context. The identity is
// derived per-request from a validated access token (or from the gateway's
// identity headers on downstream services) and is never stored.
const (
	CtxUserID    = "user_id"
	CtxUserRoles = "user_roles"
	CtxUserEmail = "user_email"
	CtxTokenJTI  = "token_jti"
)

// UserIDFromContext extracts the authenticated user id from the gin context.
func UserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RolesFromContext extracts the authenticated user's roles.
func RolesFromContext(c *gin.Context) ([]string, bool) {
	v, ok := c.Get(CtxUserRoles)
	if !ok {
		return nil, false
	}
	roles, ok := v.([]string)
	return roles, ok
}
