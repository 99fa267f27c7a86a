package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// issueServiceToken handles the form-encoded client_credentials exchange.
// The response body follows the usual token-endpoint shape rather than the
// envelope, since machine clients parse it directly.
func (h *AuthHandler) issueServiceToken(c *gin.Context) {
	grantType := c.PostForm("grant_type")
	clientID := c.PostForm("client_id")
	clientSecret := c.PostForm("client_secret")
	scope := c.PostForm("scope")
	audience := c.PostForm("audience")

	grant, err := h.oauth2Service.IssueToken(c.Request.Context(), grantType, clientID, clientSecret, scope, audience)
	if err != nil {
		serviceTokensIssuedTotal.WithLabelValues("failure").Inc()
		h.logger.Warn("Service token grant refused", zap.String("clientID", clientID), zap.Error(err))
		handleServiceError(c, err)
		return
	}

	serviceTokensIssuedTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, grant)
}
