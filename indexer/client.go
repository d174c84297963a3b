package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	paylink "github.com/paylink-foundation/paylink/go"
)

// DefaultTimeout is the default HTTP client timeout
const DefaultTimeout = 10 * time.Second

const (
	resolveNameQuery = `query resolveName($name: String!) {
  nameEntities(where: { name: $name }) {
    name
    metadataUri
    owner
  }
}`

	linkedNamesQuery = `query getLinkedNames($address: ID!) {
  nameEntities(where: { owner: $address }) {
    name
    metadataUri
    owner
  }
}`
)

// Config contains configuration for the indexer client
type Config struct {
	// URL is the GraphQL endpoint of the names subgraph
	URL string
	// Timeout is the HTTP client timeout. Defaults to 10 seconds.
	Timeout time.Duration
}

// Client queries the names subgraph. It implements paylink.NameIndex.
type Client struct {
	url        string
	httpClient *http.Client
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// NewClient creates a new indexer client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		url: config.URL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ResolveName returns the indexed record for a canonical handle. Zero or
// several matches yield a nil record.
func (c *Client) ResolveName(ctx context.Context, canonical string) (*paylink.NameRecord, error) {
	data, err := c.query(ctx, resolveNameQuery, map[string]interface{}{"name": canonical})
	if err != nil {
		return nil, err
	}

	entities := data.Get("nameEntities").Array()
	if len(entities) != 1 {
		return nil, nil
	}

	return &paylink.NameRecord{
		Name:        entities[0].Get("name").String(),
		MetadataURI: entities[0].Get("metadataUri").String(),
		Owner:       entities[0].Get("owner").String(),
	}, nil
}

// LinkedNames returns the handles owned by owner.
func (c *Client) LinkedNames(ctx context.Context, owner string) ([]string, error) {
	// The subgraph indexes lowercase addresses
	data, err := c.query(ctx, linkedNamesQuery, map[string]interface{}{"address": strings.ToLower(owner)})
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, entity := range data.Get("nameEntities").Array() {
		names = append(names, entity.Get("name").String())
	}
	return names, nil
}

// query posts a GraphQL request and returns its "data" member.
func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}) (gjson.Result, error) {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to query indexer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("indexer returned status %d: %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("indexer returned invalid JSON")
	}

	if errs := gjson.GetBytes(body, "errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return gjson.Result{}, fmt.Errorf("indexer query failed: %s", errs.Array()[0].Get("message").String())
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return gjson.Result{}, fmt.Errorf("indexer response has no data")
	}
	return data, nil
}

var _ paylink.NameIndex = (*Client)(nil)
