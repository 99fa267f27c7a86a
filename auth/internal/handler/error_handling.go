package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"identity-server/shared/models"
)

// handleServiceError maps service-layer sentinel errors onto the uniform
// error envelope. Anything unrecognized is logged and answered as an
// opaque 500.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		models.RespondError(c, http.StatusUnauthorized, models.ErrCodeWrongCredentials, "Invalid username or password")
	case errors.Is(err, models.ErrUserNotActive):
		models.RespondError(c, http.StatusUnauthorized, models.ErrCodeUserNotActive, "Account is not active")
	case errors.Is(err, models.ErrUserAlreadyExists):
		models.RespondError(c, http.StatusConflict, models.ErrCodeDuplicateUser, "Username already exists")
	case errors.Is(err, models.ErrEmailAlreadyExists):
		models.RespondError(c, http.StatusConflict, models.ErrCodeDuplicateEmail, "Email already exists")
	case errors.Is(err, models.ErrUserNotFound):
		models.RespondError(c, http.StatusNotFound, models.ErrCodeUserNotFound, "User not found")
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenMalformed):
		models.RespondError(c, http.StatusUnauthorized, models.ErrCodeTokenInvalid, "Token is invalid or malformed")
	case errors.Is(err, models.ErrTokenExpired):
		models.RespondError(c, http.StatusUnauthorized, models.ErrCodeTokenExpired, "Token has expired")
	case errors.Is(err, models.ErrTokenNotFound):
		models.RespondError(c, http.StatusUnauthorized, models.ErrCodeTokenInvalid, "Provided token is invalid (possibly revoked or expired)")
	case errors.Is(err, models.ErrTokenRevoked):
		models.RespondError(c, http.StatusUnauthorized, models.ErrCodeTokenRevoked, "Token has been revoked")
	case errors.Is(err, models.ErrOTPInvalid):
		models.RespondError(c, http.StatusUnauthorized, models.ErrCodeOTPInvalid, "Verification code is invalid")
	case errors.Is(err, models.ErrOTPExpired):
		models.RespondError(c, http.StatusUnauthorized, models.ErrCodeOTPExpired, "Verification code has expired")
	case errors.Is(err, models.ErrRateLimited):
		models.RespondError(c, http.StatusTooManyRequests, models.ErrCodeRateLimited, "Too many requests, try again later")
	case errors.Is(err, models.ErrInvalidGrantType):
		models.RespondError(c, http.StatusBadRequest, models.ErrCodeInvalidGrant, "Unsupported grant type")
	case errors.Is(err, models.ErrInvalidClient), errors.Is(err, models.ErrClientNotFound), errors.Is(err, models.ErrClientDisabled):
		models.RespondError(c, http.StatusUnauthorized, models.ErrCodeInvalidClient, "Invalid client credentials")
	case errors.Is(err, models.ErrScopeNotAllowed):
		models.RespondError(c, http.StatusForbidden, models.ErrCodeInvalidScope, "Requested scope is not allowed")
	case errors.Is(err, models.ErrForbidden):
		models.RespondError(c, http.StatusForbidden, models.ErrCodeForbidden, "Insufficient permissions")
	case errors.Is(err, models.ErrUpstreamUnavailable):
		models.RespondError(c, http.StatusServiceUnavailable, models.ErrCodeUpstream, "A required collaborator is unavailable")
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrBadRequest):
		models.RespondError(c, http.StatusBadRequest, models.ErrCodeBadRequest, "Invalid input data")
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		models.RespondInternalError(c)
	}
}
