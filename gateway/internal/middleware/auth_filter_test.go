package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	gatewaymw "identity-server/gateway/internal/middleware"
	"identity-server/shared/authutils"
	"identity-server/shared/constants"
	"identity-server/shared/models"
)

const testSecret = "gateway-filter-test-secret"

var errStoreDown = errors.New("store down")

type fakeBlacklist struct {
	mu      sync.Mutex
	revoked map[string]bool
	failing bool
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: make(map[string]bool)}
}

func (b *fakeBlacklist) Add(_ context.Context, jti string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[jti] = true
	return nil
}

func (b *fakeBlacklist) Exists(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return false, errStoreDown
	}
	return b.revoked[jti], nil
}

func signTestToken(t *testing.T, mutate func(*models.Claims)) string {
	t.Helper()
	now := time.Now()
	claims := &models.Claims{
		TokenType: constants.TokenTypeUser,
		Roles:     []string{models.RoleUser, models.RoleAdmin},
		Email:     "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
			ID:        uuid.NewString(),
		},
	}
	if mutate != nil {
		mutate(claims)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// filterRouter wires the filter in front of an echo handler that reports
// the identity headers the upstream would see.
func filterRouter(t *testing.T, blacklist *fakeBlacklist) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	validator, err := authutils.NewTokenValidator(testSecret, zap.NewNop())
	require.NoError(t, err)

	filter := gatewaymw.NewAuthFilter(validator, blacklist, []string{"/auth/login", "/health"}, zap.NewNop())

	router := gin.New()
	router.Use(filter.Handler())
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.Request.Header.Get(constants.HeaderUserID),
			"roles":   c.Request.Header.Get(constants.HeaderUserRoles),
			"email":   c.Request.Header.Get(constants.HeaderUserEmail),
		})
	})
	return router
}

func doRequest(router *gin.Engine, path, token string, extraHeaders map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthFilter_PublicPathSkipsAuth(t *testing.T) {
	router := filterRouter(t, newFakeBlacklist())

	w := doRequest(router, "/auth/login", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFilter_MissingToken(t *testing.T) {
	router := filterRouter(t, newFakeBlacklist())

	w := doRequest(router, "/api/stories", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeMissingToken)
}

func TestAuthFilter_InvalidAndExpiredTokens(t *testing.T) {
	router := filterRouter(t, newFakeBlacklist())

	w := doRequest(router, "/api/stories", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeTokenInvalid)

	expired := signTestToken(t, func(c *models.Claims) {
		c.IssuedAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-30 * time.Minute))
	})
	w = doRequest(router, "/api/stories", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeTokenExpired)
}

func TestAuthFilter_RevokedToken(t *testing.T) {
	blacklist := newFakeBlacklist()
	router := filterRouter(t, blacklist)

	var jti string
	token := signTestToken(t, func(c *models.Claims) { jti = c.ID })
	require.NoError(t, blacklist.Add(context.Background(), jti, time.Minute))

	w := doRequest(router, "/api/stories", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeTokenRevoked)
}

func TestAuthFilter_FailsOpenOnStoreError(t *testing.T) {
	blacklist := newFakeBlacklist()
	blacklist.failing = true
	router := filterRouter(t, blacklist)

	w := doRequest(router, "/api/stories", signTestToken(t, nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFilter_InjectsVerifiedIdentity(t *testing.T) {
	router := filterRouter(t, newFakeBlacklist())

	var subject string
	token := signTestToken(t, func(c *models.Claims) { subject = c.Subject })

	w := doRequest(router, "/api/stories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), subject)
	assert.Contains(t, w.Body.String(), models.RoleUser+","+models.RoleAdmin)
	assert.Contains(t, w.Body.String(), "user@example.com")
}

func TestAuthFilter_StripsSpoofedIdentityHeaders(t *testing.T) {
	router := filterRouter(t, newFakeBlacklist())
	spoofed := map[string]string{
		constants.HeaderUserID:    "11111111-1111-1111-1111-111111111111",
		constants.HeaderUserRoles: models.RoleAdmin,
	}

	// On a public path the spoofed headers must still be stripped.
	w := doRequest(router, "/auth/login", "", spoofed)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "11111111-1111-1111-1111-111111111111")

	// On an authenticated path the verified claims win over the spoof.
	var subject string
	token := signTestToken(t, func(c *models.Claims) { subject = c.Subject })
	w = doRequest(router, "/api/stories", token, spoofed)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), subject)
	assert.NotContains(t, w.Body.String(), "11111111-1111-1111-1111-111111111111")
}
