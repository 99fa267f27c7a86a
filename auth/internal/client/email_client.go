package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"identity-server/shared/constants"
	"identity-server/shared/interfaces"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.EmailSender = (*HTTPEmailClient)(nil)

// HTTPEmailClient calls the notification service to deliver OTP emails,
// authenticating with a brokered service token. A 401 from the collaborator
// clears the cached token and retries once with a fresh one.
type HTTPEmailClient struct {
	baseURL       string
	audience      string
	tokenProvider interfaces.ServiceTokenProvider
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewHTTPEmailClient creates a client for the notification service.
func NewHTTPEmailClient(baseURL, audience string, tokenProvider interfaces.ServiceTokenProvider, logger *zap.Logger) *HTTPEmailClient {
	return &HTTPEmailClient{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		audience:      audience,
		tokenProvider: tokenProvider,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("HTTPEmailClient"),
	}
}

// SendOtpEmail posts the code to the notification service.
func (c *HTTPEmailClient) SendOtpEmail(ctx context.Context, email, code string) error {
	log := c.logger.With(zap.String("email", email))

	status, err := c.post(ctx, email, code)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		// The cached token may have been revoked ahead of its expiry.
		log.Warn("Notification service rejected token, retrying with a fresh one")
		c.tokenProvider.ClearCache(c.audience)
		status, err = c.post(ctx, email, code)
		if err != nil {
			return err
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		log.Error("Notification service returned non-OK status", zap.Int("status", status))
		return fmt.Errorf("notification service returned status %d", status)
	}

	log.Debug("OTP email dispatched")
	return nil
}

func (c *HTTPEmailClient) post(ctx context.Context, email, code string) (int, error) {
	token, err := c.tokenProvider.GetServiceToken(ctx, c.audience)
	if err != nil {
		c.logger.Error("Failed to obtain service token for notification call", zap.Error(err))
		return 0, fmt.Errorf("failed to obtain service token: %w", err)
	}

	payload := struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}{Email: email, Code: code}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/notifications/otp", bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to call notification service", zap.Error(err))
		return 0, fmt.Errorf("failed to call notification service: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
