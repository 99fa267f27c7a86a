package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"identity-server/auth/internal/config"
	"identity-server/auth/internal/service"
	"identity-server/shared/authutils"
	"identity-server/shared/middleware"
)

// AuthHandler exposes the account lifecycle and token broker endpoints.
type AuthHandler struct {
	authService   service.AuthService
	oauth2Service *service.OAuth2ClientService
	validator     *authutils.TokenValidator
	cfg           *config.Config
	logger        *zap.Logger
}

func NewAuthHandler(authService service.AuthService, oauth2Service *service.OAuth2ClientService, validator *authutils.TokenValidator, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		oauth2Service: oauth2Service,
		validator:     validator,
		cfg:           cfg,
		logger:        logger.Named("AuthHandler"),
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/verify-otp", h.verifyOtp)
		authGroup.POST("/resend-otp", h.resendOtp)
		authGroup.POST("/login", h.login)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/logout", middleware.BearerAuth(h.validator, h.logger), h.logout)
		authGroup.GET("/me", middleware.BearerAuth(h.validator, h.logger), h.getMe)
	}

	router.POST("/oauth2/token", h.issueServiceToken)
}
