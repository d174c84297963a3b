package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	paylink "github.com/paylink-foundation/paylink/go"
)

// TokenSource supplies a fresh CAPTCHA token for each relay request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token
type StaticToken string

// Token implements TokenSource
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// RelayClientConfig configures a RelayClient
type RelayClientConfig struct {
	URL         string
	HTTPClient  *http.Client
	TokenSource TokenSource
	Timeout     time.Duration
}

// RelayClient queues transaction intents with a remote relay service.
type RelayClient struct {
	url         string
	httpClient  *http.Client
	tokenSource TokenSource
}

// NewRelayClient creates a relay client
func NewRelayClient(config RelayClientConfig) *RelayClient {
	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &RelayClient{
		url:         config.URL,
		httpClient:  httpClient,
		tokenSource: config.TokenSource,
	}
}

// Queue submits intent and returns once the relay has handed the transaction
// to the network. A rejected intent is returned as an error.
func (c *RelayClient) Queue(ctx context.Context, intent paylink.TransactionIntent) (string, error) {
	body, err := json.Marshal(intent)
	if err != nil {
		return "", fmt.Errorf("failed to marshal intent: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokenSource != nil {
		token, err := c.tokenSource.Token(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to get recaptcha token: %w", err)
		}
		req.Header.Set(RecaptchaHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var result Response
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return "", fmt.Errorf("relay failed (%d): %s", resp.StatusCode, string(responseBody))
	}
	if !result.Status {
		return "", fmt.Errorf("%s: %s", result.Error, result.Message)
	}
	return result.Message, nil
}
