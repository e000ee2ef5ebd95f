// Package backend is the HTTP client for the coordinator's push-token
// protocol. All calls are best-effort: the coordinator logs failures and
// moves on, it never retries or blocks on the backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/crypto"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
)

const (
	// defaultHTTPTimeout bounds every backend request.
	defaultHTTPTimeout = 15 * time.Second
	// tokenExpiryWarnWindow is how close to expiry the access token may be
	// before calls start logging a staleness warning.
	tokenExpiryWarnWindow = 5 * time.Minute
)

// Client talks to the backend push-token endpoints.
type Client struct {
	serverURL   string
	token       string
	environment string
	httpClient  *http.Client
}

// NewClient creates a backend client. environment is the push environment
// reported during registration ("production" or "development").
func NewClient(serverURL string, token string, environment string) *Client {
	return &Client{
		serverURL:   strings.TrimRight(serverURL, "/"),
		token:       token,
		environment: environment,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type registerTokenRequest struct {
	Token       string `json:"token"`
	ActivityID  string `json:"activityId"`
	SessionID   string `json:"sessionId"`
	Environment string `json:"environment"`
}

type registerTokenResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type invalidateTokenRequest struct {
	Kind  string `json:"kind"`
	Token string `json:"token"`
}

// RegisterActivityPushToken registers a (token, activity, session) triple so
// the backend can target remote updates at the activity.
func (c *Client) RegisterActivityPushToken(ctx context.Context, token string, activityID string, sessionID string) error {
	c.warnIfTokenStale()

	var resp registerTokenResponse
	err := c.post(ctx, "/v1/push-tokens/activity", registerTokenRequest{
		Token:       token,
		ActivityID:  activityID,
		SessionID:   sessionID,
		Environment: c.environment,
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("registration rejected: %s", resp.Error)
	}
	return nil
}

// InvalidatePushToken tells the backend to stop using a token. kind is
// "activity" or "remote-message".
func (c *Client) InvalidatePushToken(ctx context.Context, kind string, token string) error {
	return c.post(ctx, "/v1/push-tokens/invalidate", invalidateTokenRequest{Kind: kind, Token: token}, nil)
}

// warnIfTokenStale logs when the access token is expired or about to be.
// The call still proceeds; the backend is the authority on validity.
func (c *Client) warnIfTokenStale() {
	if c.token == "" {
		return
	}
	claims, err := crypto.ParseTokenClaims(c.token)
	if err != nil {
		logger.Debugf("access token claims unreadable: %v", err)
		return
	}
	if claims.ExpiresWithin(time.Now(), tokenExpiryWarnWindow) {
		logger.Warnf("access token for user %s is expired or expiring, backend calls may fail", claims.UserID)
	}
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("request encode failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("response read failed: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("response %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("response decode failed: %w", err)
		}
	}
	return nil
}
