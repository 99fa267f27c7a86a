package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-server/shared/authutils"
	"identity-server/shared/constants"
	"identity-server/shared/models"
)

// BearerAuth returns a Gin middleware that verifies a bearer access token
// and places the caller's identity into the request context. When roles are
// given, the token must carry at least one of them.
func BearerAuth(validator *authutils.TokenValidator, logger *zap.Logger, requiredRoles ...string) gin.HandlerFunc {
	log := logger.Named("BearerAuth")
	return func(c *gin.Context) {
		tokenString, ok := ExtractBearerToken(c)
		if !ok {
			log.Warn("Missing or malformed Authorization header", zap.String("path", c.Request.URL.Path))
			models.RespondError(c, http.StatusUnauthorized, models.ErrCodeMissingToken, "Missing or malformed bearer token")
			return
		}

		claims, err := validator.Verify(tokenString)
		if err != nil {
			code := models.ErrCodeTokenInvalid
			if errors.Is(err, models.ErrTokenExpired) {
				code = models.ErrCodeTokenExpired
			}
			log.Warn("Token verification failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			models.RespondError(c, http.StatusUnauthorized, code, "Invalid or expired token")
			return
		}

		if len(requiredRoles) > 0 && !hasAnyRole(claims.Roles, requiredRoles) {
			log.Warn("Caller lacks required role",
				zap.String("subject", claims.Subject),
				zap.Strings("roles", claims.Roles),
				zap.Strings("requiredRoles", requiredRoles),
			)
			models.RespondError(c, http.StatusForbidden, models.ErrCodeForbidden, "Insufficient permissions")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err == nil {
			c.Set(models.CtxUserID, userID)
		}
		c.Set(models.CtxUserRoles, claims.Roles)
		c.Set(models.CtxUserEmail, claims.Email)
		if claims.ID != "" {
			c.Set(models.CtxTokenJTI, claims.ID)
		}
		c.Next()
	}
}

// ExtractBearerToken pulls the raw token out of the Authorization header.
func ExtractBearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(constants.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, constants.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, constants.BearerPrefix))
	if token == "" {
		return "", false
	}
	return token, true
}

func hasAnyRole(roles, required []string) bool {
	for _, want := range required {
		if models.HasRole(roles, want) {
			return true
		}
	}
	return false
}
