package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"identity-server/auth/internal/config"
	"identity-server/auth/internal/service"
	"identity-server/shared/models"
)

type authFixture struct {
	svc       service.AuthService
	users     *fakeUserRepo
	refresh   *fakeRefreshTokenRepo
	blacklist *fakeBlacklistRepo
	otpRepo   *fakeOtpRepo
	otpCache  *fakeOtpCache
	email     *fakeEmailSender
	events    *fakeEventPublisher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	logger := zap.NewNop()
	cfg := &config.Config{
		JWTSecret:      testJWTSecret,
		PasswordPepper: "unit-test-pepper",
		TokenIssuer:    "auth-service",
	}

	f := &authFixture{
		users:     newFakeUserRepo(),
		refresh:   newFakeRefreshTokenRepo(),
		blacklist: newFakeBlacklistRepo(),
		otpRepo:   newFakeOtpRepo(),
		otpCache:  newFakeOtpCache(),
		email:     &fakeEmailSender{},
		events:    &fakeEventPublisher{},
	}

	gen := newGenerator(t)
	refreshSvc := service.NewRefreshTokenService(f.refresh, 168*time.Hour, logger)
	blacklistSvc := service.NewBlacklistService(f.blacklist, newTestValidator(t), logger)
	otpSvc := service.NewOtpService(f.otpRepo, f.otpCache, 5*time.Minute, 6, 3, 15*time.Minute, logger)

	f.svc = service.NewAuthService(f.users, gen, refreshSvc, blacklistSvc, otpSvc, f.email, f.events, cfg, logger)
	return f
}

func (f *authFixture) register(t *testing.T) *models.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), service.RegisterInput{
		Username:  "alice",
		Email:     "Alice@Example.com",
		Password:  "correct horse battery",
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.NoError(t, err)
	return user
}

func (f *authFixture) registerAndVerify(t *testing.T) *models.TokenDetails {
	t.Helper()
	f.register(t)
	tokens, err := f.svc.VerifyOtp(context.Background(), "alice@example.com", f.email.lastCode())
	require.NoError(t, err)
	return tokens
}

func TestRegister_CreatesPendingAccountAndSendsCode(t *testing.T) {
	f := newAuthFixture(t)

	user := f.register(t)
	assert.Equal(t, models.StatusPending, user.Status)
	assert.Equal(t, "alice@example.com", user.Email) // normalized
	assert.Equal(t, []string{models.RoleUser}, user.Roles)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	assert.Len(t, f.email.sent, 1)
	assert.Equal(t, "alice@example.com", f.email.email)
}

func TestRegister_DuplicateUsernameAndEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)

	_, err := f.svc.Register(context.Background(), service.RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, models.ErrUserAlreadyExists)

	_, err = f.svc.Register(context.Background(), service.RegisterInput{
		Username: "bob", Email: "alice@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, models.ErrEmailAlreadyExists)
}

func TestRegister_InvalidEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), service.RegisterInput{
		Username: "alice", Email: "not-an-address", Password: "password123",
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRegister_EmailFailureStillCreatesAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.email.fail = true

	user := f.register(t)
	assert.Equal(t, models.StatusPending, user.Status)
	assert.Empty(t, f.email.sent)
}

func TestVerifyOtp_ActivatesAndIssuesTokens(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t)

	tokens, err := f.svc.VerifyOtp(context.Background(), "alice@example.com", f.email.lastCode())
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "Bearer", tokens.TokenType)

	activated, err := f.users.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, activated.Status)
	assert.True(t, activated.EmailVerified)

	assert.Equal(t, 1, f.events.count())
}

func TestVerifyOtp_WrongCode(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)

	_, err := f.svc.VerifyOtp(context.Background(), "alice@example.com", "000000")
	assert.ErrorIs(t, err, models.ErrOTPInvalid)
}

func TestVerifyOtp_UnknownEmailLooksLikeWrongCode(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.VerifyOtp(context.Background(), "nobody@example.com", "123456")
	assert.ErrorIs(t, err, models.ErrOTPInvalid)
}

func TestResendOtp_OnlyForPendingAccounts(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndVerify(t)

	err := f.svc.ResendOtp(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, models.ErrBadRequest)

	err = f.svc.ResendOtp(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestResendOtp_Throttled(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t) // consumes one request from the window

	require.NoError(t, f.svc.ResendOtp(context.Background(), "alice@example.com"))
	require.NoError(t, f.svc.ResendOtp(context.Background(), "alice@example.com"))

	err := f.svc.ResendOtp(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, models.ErrRateLimited)

	f.otpCache.resetCounter("alice@example.com")
	assert.NoError(t, f.svc.ResendOtp(context.Background(), "alice@example.com"))
}

func TestResendOtp_DeliveryFailureIsHardError(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	f.email.fail = true

	err := f.svc.ResendOtp(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndVerify(t)

	tokens, err := f.svc.Login(context.Background(), "alice", "correct horse battery", "device-1")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestLogin_UnknownUserAndWrongPasswordAreEqualized(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndVerify(t)

	_, errUnknown := f.svc.Login(context.Background(), "mallory", "whatever", "")
	_, errWrongPw := f.svc.Login(context.Background(), "alice", "wrong password", "")

	assert.ErrorIs(t, errUnknown, models.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, models.ErrInvalidCredentials)
}

func TestLogin_PendingAccountRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)

	_, err := f.svc.Login(context.Background(), "alice", "correct horse battery", "")
	assert.ErrorIs(t, err, models.ErrUserNotActive)
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.registerAndVerify(t)

	refreshed, err := f.svc.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, refreshed.RefreshToken)

	_, err = f.svc.Refresh(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, models.ErrTokenNotFound)
}

func TestRefresh_NonActiveAccountRevokesAllSessions(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.registerAndVerify(t)
	user, err := f.users.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)

	// Deactivate the account behind the session's back.
	f.users.mu.Lock()
	f.users.users[user.ID].Status = models.StatusLocked
	f.users.mu.Unlock()

	_, err = f.svc.Refresh(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, models.ErrUserNotActive)
	assert.Empty(t, f.refresh.records)
}

func TestLogout_RevokesAccessAndRefreshTokens(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.registerAndVerify(t)
	user, err := f.users.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), tokens.AccessToken, user.ID))

	// The access token's jti is blacklisted.
	claims, err := newTestValidator(t).Verify(tokens.AccessToken)
	require.NoError(t, err)
	revoked, err := f.blacklist.Exists(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	// Every refresh token is gone.
	_, err = f.svc.Refresh(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, models.ErrTokenNotFound)
}

func TestLogout_BlacklistFailureSurfaces(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.registerAndVerify(t)
	user, err := f.users.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)

	f.blacklist.failing = true
	err = f.svc.Logout(context.Background(), tokens.AccessToken, user.ID)
	assert.ErrorIs(t, err, assertErr)
}

func TestGetUser(t *testing.T) {
	f := newAuthFixture(t)
	registered := f.register(t)

	user, err := f.svc.GetUser(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, registered.Username, user.Username)
}
