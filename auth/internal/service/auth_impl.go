package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"identity-server/auth/internal/config"
	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// Compile-time check to ensure authServiceImpl implements AuthService
var _ AuthService = (*authServiceImpl)(nil)

// authServiceImpl wires the account lifecycle together: registration with
// email verification, login, refresh rotation and logout revocation.
type authServiceImpl struct {
	userRepo      interfaces.UserRepository
	tokenGen      *TokenGenerator
	refreshTokens *RefreshTokenService
	blacklist     *BlacklistService
	otp           *OtpService
	emailSender   interfaces.EmailSender
	events        interfaces.UserEventPublisher
	cfg           *config.Config
	logger        *zap.Logger
}

// NewAuthService creates a new instance of authServiceImpl.
func NewAuthService(
	userRepo interfaces.UserRepository,
	tokenGen *TokenGenerator,
	refreshTokens *RefreshTokenService,
	blacklist *BlacklistService,
	otp *OtpService,
	emailSender interfaces.EmailSender,
	events interfaces.UserEventPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) AuthService {
	return &authServiceImpl{
		userRepo:      userRepo,
		tokenGen:      tokenGen,
		refreshTokens: refreshTokens,
		blacklist:     blacklist,
		otp:           otp,
		emailSender:   emailSender,
		events:        events,
		cfg:           cfg,
		logger:        logger.Named("AuthService"),
	}
}

// Register creates a PENDING account and kicks off email verification.
// No tokens are issued here; the account cannot log in until verified.
func (s *authServiceImpl) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	logFields := []zap.Field{zap.String("username", username), zap.String("email", email)}
	s.logger.Info("Registering new user", logFields...)

	if _, err := mail.ParseAddress(email); err != nil {
		s.logger.Warn("Registration attempt with invalid email format", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("invalid email format: %w", models.ErrInvalidInput)
	}
	if username == "" || input.Password == "" {
		s.logger.Warn("Registration attempt with empty username or password", logFields...)
		return nil, models.ErrInvalidInput
	}

	existingUser, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing username during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("error checking existing username: %w", err)
	}
	if existingUser != nil {
		s.logger.Warn("Registration attempt for existing username", logFields...)
		return nil, models.ErrUserAlreadyExists
	}

	existingUser, err = s.userRepo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing email during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("error checking existing email: %w", err)
	}
	if existingUser != nil {
		s.logger.Warn("Registration attempt for existing email", logFields...)
		return nil, models.ErrEmailAlreadyExists
	}

	hashedPassword, err := hashPassword(input.Password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Roles:        []string{models.RoleUser},
		Status:       models.StatusPending,
		TokenVersion: 1,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, models.ErrUserAlreadyExists) && !errors.Is(err, models.ErrEmailAlreadyExists) {
			s.logger.Error("Failed to create user via repository", append(logFields, zap.Error(err))...)
		}
		return nil, err
	}

	s.sendVerificationCode(ctx, user, logFields)

	s.logger.Info("User registered, verification pending", append(logFields, zap.String("userID", user.ID.String()))...)
	return user, nil
}

// sendVerificationCode is best-effort during registration: a failed email
// leaves the account PENDING, and resend-otp covers recovery.
func (s *authServiceImpl) sendVerificationCode(ctx context.Context, user *models.User, logFields []zap.Field) {
	ok, err := s.otp.CanRequest(ctx, user.Email)
	if err != nil {
		s.logger.Error("OTP throttle check failed during registration", append(logFields, zap.Error(err))...)
		return
	}
	if !ok {
		s.logger.Warn("OTP throttle active during registration, skipping send", logFields...)
		return
	}

	code, err := s.otp.Generate(ctx, user.Email)
	if err != nil {
		s.logger.Error("Failed to generate otp during registration", append(logFields, zap.Error(err))...)
		return
	}
	if err := s.emailSender.SendOtpEmail(ctx, user.Email, code); err != nil {
		s.logger.Error("Failed to send verification email during registration", append(logFields, zap.Error(err))...)
	}
}

// VerifyOtp activates the account and auto-logs the user in.
func (s *authServiceImpl) VerifyOtp(ctx context.Context, email, code string) (*models.TokenDetails, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.logger.Info("OTP verification attempt", zap.String("email", email))

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// Same shape as a wrong code; do not leak account existence.
			return nil, models.ErrOTPInvalid
		}
		return nil, err
	}

	if err := s.otp.Validate(ctx, email, code); err != nil {
		return nil, err
	}

	if user.Status == models.StatusPending {
		if err := s.userRepo.ActivateUser(ctx, user.ID); err != nil {
			return nil, err
		}
		user.Status = models.StatusActive
		user.EmailVerified = true
		s.publishUserVerified(ctx, user)
	}

	return s.issueTokenPair(ctx, user, "")
}

// publishUserVerified is best-effort; a broker outage must not block
// account activation.
func (s *authServiceImpl) publishUserVerified(ctx context.Context, user *models.User) {
	event := &models.UserVerifiedEvent{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
	if err := s.events.PublishUserVerified(ctx, event); err != nil {
		s.logger.Error("Failed to publish user verified event", zap.Error(err), zap.String("userID", user.ID.String()))
	}
}

// ResendOtp issues a fresh code for a pending account. Unlike the
// registration path, delivery failure here is a hard error so the caller
// knows no email is coming.
func (s *authServiceImpl) ResendOtp(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	s.logger.Info("OTP resend requested", zap.String("email", email))

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Status != models.StatusPending {
		s.logger.Warn("OTP resend for non-pending account", zap.String("email", email), zap.String("status", user.Status))
		return models.ErrBadRequest
	}

	ok, err := s.otp.CanRequest(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrRateLimited
	}

	code, err := s.otp.Generate(ctx, email)
	if err != nil {
		return err
	}
	if err := s.emailSender.SendOtpEmail(ctx, email, code); err != nil {
		s.logger.Error("Failed to send otp email", zap.Error(err), zap.String("email", email))
		return models.ErrUpstreamUnavailable
	}
	return nil
}

// Login authenticates a user and returns a token pair.
func (s *authServiceImpl) Login(ctx context.Context, username, password, deviceID string) (*models.TokenDetails, error) {
	username = strings.TrimSpace(username)
	s.logger.Info("Login attempt", zap.String("username", username))

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// Equalize the response for unknown user and wrong password.
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if !checkPasswordHash(password, user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Login with wrong password", zap.String("username", username))
		return nil, models.ErrInvalidCredentials
	}

	if !user.IsActive() {
		s.logger.Warn("Login for non-active account", zap.String("username", username), zap.String("status", user.Status))
		return nil, models.ErrUserNotActive
	}

	return s.issueTokenPair(ctx, user, deviceID)
}

// Refresh rotates the refresh token and issues a new pair. The presented
// token is single-use whether or not rotation succeeds past deletion.
func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error) {
	userID, newRefreshToken, err := s.refreshTokens.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		s.logger.Warn("Refresh for non-active account, revoking sessions", zap.String("userID", userID.String()))
		if _, revokeErr := s.refreshTokens.RevokeAll(ctx, userID); revokeErr != nil {
			s.logger.Error("Failed to revoke sessions of non-active account", zap.Error(revokeErr))
		}
		return nil, models.ErrUserNotActive
	}

	accessToken, err := s.tokenGen.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Token pair refreshed", zap.String("userID", userID.String()))
	return &models.TokenDetails{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenGen.AccessTokenTTL().Seconds()),
	}, nil
}

// Logout revokes the presented access token and every refresh token the
// user holds. Blacklist write failures surface to the caller.
func (s *authServiceImpl) Logout(ctx context.Context, accessToken string, userID uuid.UUID) error {
	if err := s.blacklist.BlacklistToken(ctx, accessToken); err != nil {
		return err
	}

	revoked, err := s.refreshTokens.RevokeAll(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info("User logged out", zap.String("userID", userID.String()), zap.Int64("sessionsRevoked", revoked))
	return nil
}

// GetUser returns the account behind an authenticated request.
func (s *authServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

func (s *authServiceImpl) issueTokenPair(ctx context.Context, user *models.User, deviceID string) (*models.TokenDetails, error) {
	accessToken, err := s.tokenGen.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.refreshTokens.Create(ctx, user.ID, deviceID)
	if err != nil {
		return nil, err
	}
	return &models.TokenDetails{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenGen.AccessTokenTTL().Seconds()),
	}, nil
}

// applyPepper mixes the server-side pepper into the password via
// HMAC-SHA256 before bcrypt sees it.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

// hashPassword generates a bcrypt hash of the peppered password.
func hashPassword(password, pepper string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(applyPepper(password, pepper), bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPasswordHash compares a plain password (after pepper) with a stored hash.
func checkPasswordHash(password, hash, pepper string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), applyPepper(password, pepper))
	return err == nil
}
