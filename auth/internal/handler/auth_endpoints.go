package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"identity-server/auth/internal/service"
	"identity-server/shared/middleware"
	"identity-server/shared/models"
)

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	registrationsTotal.Inc()
	models.RespondSuccess(c, http.StatusCreated, gin.H{
		"user_id": user.ID.String(),
		"status":  user.Status,
	}, "Registration successful, check your email for the verification code")
}

func (h *AuthHandler) verifyOtp(c *gin.Context) {
	var req verifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	}

	tokens, err := h.authService.VerifyOtp(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		verificationsTotal.WithLabelValues("failure").Inc()
		handleServiceError(c, err)
		return
	}

	verificationsTotal.WithLabelValues("success").Inc()
	models.RespondSuccess(c, http.StatusOK, tokenPairResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
	}, "Account verified")
}

func (h *AuthHandler) resendOtp(c *gin.Context) {
	var req resendOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	}

	if err := h.authService.ResendOtp(c.Request.Context(), req.Email); err != nil {
		handleServiceError(c, err)
		return
	}
	models.RespondSuccess(c, http.StatusOK, nil, "Verification code sent")
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	}

	tokens, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, req.DeviceID)
	if err != nil {
		loginsTotal.WithLabelValues("failure").Inc()
		handleServiceError(c, err)
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	models.RespondSuccess(c, http.StatusOK, tokenPairResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
	}, "")
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	refreshesTotal.Inc()
	models.RespondSuccess(c, http.StatusOK, tokenPairResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
	}, "")
}

// logout runs behind BearerAuth, so the token has already been validated
// and the user id is in the context.
func (h *AuthHandler) logout(c *gin.Context) {
	userID, ok := models.UserIDFromContext(c)
	if !ok {
		h.logger.Error("Logout reached without user id in context")
		models.RespondInternalError(c)
		return
	}

	accessToken, _ := middleware.ExtractBearerToken(c)
	if err := h.authService.Logout(c.Request.Context(), accessToken, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	logoutsTotal.Inc()
	models.RespondSuccess(c, http.StatusOK, nil, "Logged out")
}

func (h *AuthHandler) getMe(c *gin.Context) {
	userID, ok := models.UserIDFromContext(c)
	if !ok {
		h.logger.Error("Me endpoint reached without user id in context")
		models.RespondInternalError(c)
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	models.RespondSuccess(c, http.StatusOK, meResponse{
		ID:            user.ID.String(),
		Username:      user.Username,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Roles:         user.Roles,
		Status:        user.Status,
		EmailVerified: user.EmailVerified,
	}, "")
}
