package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-server/shared/constants"
	"identity-server/shared/models"
)

// IdentityHeaders returns a Gin middleware for services deployed behind the
// gateway. It trusts the X-User-* headers the gateway injects and places the
// identity into the request context. The network must guarantee that only
// the gateway can reach these services; the headers are not re-verified.
func IdentityHeaders(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("IdentityHeaders")
	return func(c *gin.Context) {
		rawID := c.GetHeader(constants.HeaderUserID)
		if rawID == "" {
			log.Warn("Identity headers missing", zap.String("path", c.Request.URL.Path))
			models.RespondError(c, http.StatusUnauthorized, models.ErrCodeMissingToken, "Authentication required")
			return
		}

		userID, err := uuid.Parse(rawID)
		if err != nil {
			log.Warn("Malformed user id header", zap.String("value", rawID))
			models.RespondError(c, http.StatusUnauthorized, models.ErrCodeTokenInvalid, "Invalid identity context")
			return
		}

		var roles []string
		if rawRoles := c.GetHeader(constants.HeaderUserRoles); rawRoles != "" {
			for _, role := range strings.Split(rawRoles, ",") {
				if role = strings.TrimSpace(role); role != "" {
					roles = append(roles, role)
				}
			}
		}

		c.Set(models.CtxUserID, userID)
		c.Set(models.CtxUserRoles, roles)
		c.Set(models.CtxUserEmail, c.GetHeader(constants.HeaderUserEmail))
		c.Next()
	}
}

// RequireRoles returns a middleware that rejects callers whose context
// roles include none of the required ones. Meant to run after BearerAuth
// or IdentityHeaders.
func RequireRoles(logger *zap.Logger, requiredRoles ...string) gin.HandlerFunc {
	log := logger.Named("RequireRoles")
	return func(c *gin.Context) {
		roles, ok := models.RolesFromContext(c)
		if !ok || !hasAnyRole(roles, requiredRoles) {
			log.Warn("Caller lacks required role",
				zap.Strings("roles", roles),
				zap.Strings("requiredRoles", requiredRoles),
			)
			models.RespondError(c, http.StatusForbidden, models.ErrCodeForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}
