package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ipfs/go-cid"
)

const (
	// DefaultRetryInterval is the pause between attempts against one gateway.
	DefaultRetryInterval = time.Second

	// MaxDocumentSize bounds the bytes read from a gateway response.
	MaxDocumentSize = 4 << 20
)

// DefaultGateways are the public IPFS HTTP gateways raced by default.
var DefaultGateways = []string{
	"https://dweb.link",
	"https://cf-ipfs.com",
	"https://cloudflare-ipfs.com",
	"https://hardbin.com",
	"https://gateway.ipfs.io",
}

// Fetcher retrieves the bytes of a CID from one source.
type Fetcher interface {
	Fetch(ctx context.Context, id cid.Cid) ([]byte, error)
}

// Gateway fetches content from a single IPFS HTTP gateway.
type Gateway struct {
	baseURL       string
	httpClient    *http.Client
	retryInterval time.Duration
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.httpClient = client
	}
}

// WithRetryInterval sets the pause between attempts
func WithRetryInterval(interval time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.retryInterval = interval
	}
}

// NewGateway creates a gateway client for baseURL (e.g. "https://dweb.link").
func NewGateway(baseURL string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		httpClient:    http.DefaultClient,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// URL returns the gateway base URL
func (g *Gateway) URL() string {
	return g.baseURL
}

// Fetch requests {base}/ipfs/{cid}, retrying at a constant interval until the
// content arrives or ctx ends. A content mismatch is not retried.
func (g *Gateway) Fetch(ctx context.Context, id cid.Cid) ([]byte, error) {
	var data []byte
	operation := func() error {
		b, err := g.fetchOnce(ctx, id)
		if err != nil {
			return err
		}
		if err := Verify(id, b); err != nil {
			return backoff.Permanent(fmt.Errorf("%s: %w", g.baseURL, err))
		}
		data = b
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(g.retryInterval), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return data, nil
}

func (g *Gateway) fetchOnce(ctx context.Context, id cid.Cid) ([]byte, error) {
	url := fmt.Sprintf("%s/ipfs/%s", g.baseURL, id.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", g.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", g.baseURL, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: gateway returned status %d", g.baseURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", g.baseURL, err)
	}
	if len(body) > MaxDocumentSize {
		return nil, backoff.Permanent(fmt.Errorf("%s: document exceeds %d bytes", g.baseURL, MaxDocumentSize))
	}
	return body, nil
}
