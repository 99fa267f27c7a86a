package constants

// Security-related constants shared by the auth service, the gateway and
// downstream consumers. Header names and key prefixes are defined here and
// nowhere else; every component imports this package by reference.
const (
	// HTTP headers
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "

	// Identity headers injected by the gateway for downstream services.
	HeaderUserID    = "X-User-Id"
	HeaderUserRoles = "X-User-Roles"
	HeaderUserEmail = "X-User-Email"

	// Request tracing
	HeaderRequestID = "X-Request-Id"

	// Rate limit response headers
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"

	// Token kinds carried in the token_type claim.
	TokenTypeUser    = "USER_TOKEN"
	TokenTypeService = "SERVICE_TOKEN"

	// OAuth2 client-credentials grant.
	GrantTypeClientCredentials = "client_credentials"
	DefaultAudience            = "default"

	// Redis key prefixes.
	RedisRefreshTokenPrefix    = "refresh_token:"
	RedisUserTokenSetPrefix    = "user_refresh_tokens:"
	RedisBlacklistPrefix       = "blacklist:"
	RedisOtpPrefix             = "otp:"
	RedisOtpRateLimitPrefix    = "otp:ratelimit:"
	RedisRequestRateLimPrefix  = "rate_limit:"
)
