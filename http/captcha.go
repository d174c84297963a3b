package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultRecaptchaURL is Google's token verification endpoint
const DefaultRecaptchaURL = "https://www.google.com/recaptcha/api/siteverify"

// CaptchaVerifier decides whether a client token proves a human sender.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// RecaptchaConfig configures a RecaptchaVerifier
type RecaptchaConfig struct {
	Secret     string
	URL        string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// RecaptchaVerifier checks tokens against the reCAPTCHA siteverify API.
type RecaptchaVerifier struct {
	secret     string
	url        string
	httpClient *http.Client
}

// NewRecaptchaVerifier creates a verifier for the given secret
func NewRecaptchaVerifier(config RecaptchaConfig) *RecaptchaVerifier {
	if config.URL == "" {
		config.URL = DefaultRecaptchaURL
	}
	if config.HTTPClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		config.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &RecaptchaVerifier{
		secret:     config.Secret,
		url:        config.URL,
		httpClient: config.HTTPClient,
	}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify implements CaptchaVerifier
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read siteverify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("siteverify failed (%d): %s", resp.StatusCode, string(body))
	}

	var result siteVerifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return false, fmt.Errorf("failed to decode siteverify response: %w", err)
	}
	return result.Success, nil
}

// PermissiveVerifier accepts every token. It stands in where no CAPTCHA
// secret is configured and logs each request it lets through.
type PermissiveVerifier struct {
	logger *zap.Logger
}

// NewPermissiveVerifier creates a verifier that never rejects
func NewPermissiveVerifier(logger *zap.Logger) *PermissiveVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissiveVerifier{logger: logger}
}

// Verify implements CaptchaVerifier
func (v *PermissiveVerifier) Verify(_ context.Context, _ string, remoteIP string) (bool, error) {
	v.logger.Warn("captcha verification is disabled, accepting token", zap.String("remoteIP", remoteIP))
	return true, nil
}

var (
	_ CaptchaVerifier = (*RecaptchaVerifier)(nil)
	_ CaptchaVerifier = (*PermissiveVerifier)(nil)
)
