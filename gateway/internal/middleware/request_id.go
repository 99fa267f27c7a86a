package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"identity-server/shared/constants"
)

// RequestID propagates an inbound X-Request-Id or mints one, and echoes it
// on the response so clients and upstreams can correlate logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set(constants.HeaderRequestID, requestID)
		}
		c.Header(constants.HeaderRequestID, requestID)
		c.Next()
	}
}
