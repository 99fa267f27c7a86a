package models

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Error codes used in the uniform error envelope.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeWrongCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotActive    = "ACCOUNT_NOT_ACTIVE"
	ErrCodeMissingToken     = "MISSING_TOKEN"
	ErrCodeTokenInvalid     = "INVALID_TOKEN"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeTokenRevoked     = "TOKEN_REVOKED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeDuplicateUser    = "DUPLICATE_USERNAME"
	ErrCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	ErrCodeOTPInvalid       = "INVALID_OTP"
	ErrCodeOTPExpired       = "OTP_EXPIRED"
	ErrCodeInvalidClient    = "INVALID_CLIENT"
	ErrCodeInvalidGrant     = "UNSUPPORTED_GRANT_TYPE"
	ErrCodeInvalidScope     = "INVALID_SCOPE"
	ErrCodeUpstream         = "UPSTREAM_UNAVAILABLE"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// APIError is the error part of the uniform envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// RespondSuccess writes a success envelope with the given status and payload.
func RespondSuccess(c *gin.Context, status int, data any, message string) {
	c.JSON(status, APIResponse{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// RespondError writes an error envelope and aborts the handler chain. The
// message is user-facing; internal diagnostic detail stays in the logs.
func RespondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, APIResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

// RespondInternalError is a shorthand for the opaque 500 answer.
func RespondInternalError(c *gin.Context) {
	RespondError(c, http.StatusInternalServerError, ErrCodeInternal, "An unexpected internal error occurred")
}
