package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"identity-server/shared/constants"
	"identity-server/shared/interfaces"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.ServiceTokenProvider = (*OAuth2TokenProvider)(nil)

// expirationBuffer is subtracted from the reported token lifetime so a
// token is refreshed before it can expire mid-flight.
const expirationBuffer = 30 * time.Second

type cachedToken struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// OAuth2TokenProvider fetches service tokens from the token broker via the
// client_credentials grant and caches one token per audience. Concurrent
// callers for the same audience share a single fetch.
type OAuth2TokenProvider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	httpClient   *http.Client
	logger       *zap.Logger

	mu    sync.Mutex
	cache map[string]*cachedToken
}

// NewOAuth2TokenProvider creates a provider pointed at the broker's token
// endpoint (e.g. "http://auth-service:8080/oauth2/token").
func NewOAuth2TokenProvider(tokenURL, clientID, clientSecret, scope string, logger *zap.Logger) *OAuth2TokenProvider {
	return &OAuth2TokenProvider{
		tokenURL:     strings.TrimSuffix(tokenURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("OAuth2TokenProvider"),
		cache:  make(map[string]*cachedToken),
	}
}

// GetServiceToken returns a valid token for the audience, fetching a fresh
// one when the cached token is missing or inside the expiration buffer.
func (p *OAuth2TokenProvider) GetServiceToken(ctx context.Context, audience string) (string, error) {
	if audience == "" {
		audience = constants.DefaultAudience
	}
	entry := p.entry(audience)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.token != "" && time.Now().Before(entry.expiresAt) {
		return entry.token, nil
	}

	token, expiresIn, err := p.fetchToken(ctx, audience)
	if err != nil {
		return "", err
	}

	entry.token = token
	entry.expiresAt = time.Now().Add(time.Duration(expiresIn)*time.Second - expirationBuffer)
	p.logger.Debug("Service token refreshed",
		zap.String("audience", audience),
		zap.Int64("expiresIn", expiresIn),
	)
	return token, nil
}

// ClearCache drops the cached token for the audience so the next call
// fetches a fresh one. Callers use this after an upstream rejects a token
// that the cache still considers valid.
func (p *OAuth2TokenProvider) ClearCache(audience string) {
	if audience == "" {
		audience = constants.DefaultAudience
	}
	entry := p.entry(audience)
	entry.mu.Lock()
	entry.token = ""
	entry.expiresAt = time.Time{}
	entry.mu.Unlock()
	p.logger.Debug("Service token cache cleared", zap.String("audience", audience))
}

func (p *OAuth2TokenProvider) entry(audience string) *cachedToken {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[audience]
	if !ok {
		entry = &cachedToken{}
		p.cache[audience] = entry
	}
	return entry
}

func (p *OAuth2TokenProvider) fetchToken(ctx context.Context, audience string) (string, int64, error) {
	form := url.Values{}
	form.Set("grant_type", constants.GrantTypeClientCredentials)
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("audience", audience)
	if p.scope != "" {
		form.Set("scope", p.scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("Token broker request failed", zap.Error(err), zap.String("audience", audience))
		return "", 0, fmt.Errorf("token broker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Error("Token broker returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.String("audience", audience),
		)
		return "", 0, fmt.Errorf("token broker returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, fmt.Errorf("failed to decode token broker response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", 0, fmt.Errorf("token broker response missing access_token")
	}
	return payload.AccessToken, payload.ExpiresIn, nil
}
