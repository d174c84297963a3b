package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
)

const (
	// DefaultPinningURL is the default pinning service endpoint
	DefaultPinningURL = "https://api.nft.storage"

	// DefaultPublishTimeout is the default HTTP client timeout for uploads
	DefaultPublishTimeout = 30 * time.Second
)

// PublisherConfig contains configuration for the pinning service client
type PublisherConfig struct {
	// BaseURL of the pinning service. Defaults to DefaultPinningURL.
	BaseURL string
	// Token is sent as a bearer token.
	Token string
	// Timeout is the HTTP client timeout. Defaults to 30 seconds.
	Timeout time.Duration
}

// Publisher uploads documents to a pinning service and returns their locator.
type Publisher struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type uploadResponse struct {
	OK    bool `json:"ok"`
	Value struct {
		CID string `json:"cid"`
	} `json:"value"`
	Error *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewPublisher creates a new pinning service client
func NewPublisher(config PublisherConfig) *Publisher {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultPinningURL
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultPublishTimeout
	}

	return &Publisher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   config.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Put uploads data and returns "ipfs://<cid>".
func (p *Publisher) Put(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result uploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !result.OK {
		if result.Error != nil {
			return "", fmt.Errorf("pinning service error (%d): %s: %s", resp.StatusCode, result.Error.Name, result.Error.Message)
		}
		return "", fmt.Errorf("pinning service returned status %d", resp.StatusCode)
	}

	id, err := cid.Decode(result.Value.CID)
	if err != nil {
		return "", fmt.Errorf("pinning service returned an invalid cid: %w", err)
	}
	if err := Verify(id, data); err != nil {
		return "", err
	}
	return FormatLocator(id), nil
}
