package models

import "errors"

// Application-wide standard errors
var (
	// User & Authentication Errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this username already exists")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotActive      = errors.New("user account is not active")
	ErrForbidden          = errors.New("forbidden") // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid     = errors.New("token is invalid")
	ErrTokenMalformed   = errors.New("token is malformed")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenRevoked     = errors.New("token has been revoked")
	ErrTokenNotFound    = errors.New("token not found in storage")
	ErrAudienceMismatch = errors.New("token audience mismatch")

	// Service Client (client-credentials) Errors
	ErrClientNotFound      = errors.New("service client not found")
	ErrClientAlreadyExists = errors.New("service client already exists")
	ErrClientDisabled      = errors.New("service client is disabled")
	ErrInvalidClient       = errors.New("invalid client credentials")
	ErrInvalidGrantType    = errors.New("unsupported grant type")
	ErrScopeNotAllowed     = errors.New("requested scope is not allowed for this client")

	// OTP Errors
	ErrOTPInvalid = errors.New("otp code is invalid")
	ErrOTPExpired = errors.New("otp code has expired")

	// Rate Limiting
	ErrRateLimited = errors.New("too many requests")

	// General Request/Server Errors
	ErrUpstreamUnavailable = errors.New("upstream collaborator unavailable")
	ErrBadRequest          = errors.New("bad request")
	ErrInvalidInput        = errors.New("invalid input data")
)
