package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	paylink "github.com/paylink-foundation/paylink/go"
)

// Client calls the resolver tools through a connected MCP session.
type Client struct {
	session *mcpsdk.ClientSession
}

// NewClient wraps a session of the official Go MCP SDK
func NewClient(session *mcpsdk.ClientSession) *Client {
	return &Client{session: session}
}

// Resolve calls resolve_handle
func (c *Client) Resolve(ctx context.Context, handle string, opts paylink.ResolveOptions) (string, error) {
	var result ResolveResult
	args := ResolveArgs{Handle: handle, Chain: opts.Chain, Token: opts.Token, Tag: opts.Tag}
	if err := c.call(ctx, ToolResolveHandle, args, &result); err != nil {
		return "", err
	}
	return result.Address, nil
}

// GetMetadata calls get_routing_document
func (c *Client) GetMetadata(ctx context.Context, handle string) (*paylink.RoutingDocument, error) {
	var doc paylink.RoutingDocument
	if err := c.call(ctx, ToolGetRoutingDocument, HandleArgs{Handle: handle}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate calls validate_routing_document on raw JSON
func (c *Client) Validate(ctx context.Context, document json.RawMessage) (*ValidationReport, error) {
	var report ValidationReport
	if err := c.call(ctx, ToolValidateRoutingDocument, ValidateArgs{Document: document}, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Relay calls relay_intent
func (c *Client) Relay(ctx context.Context, intent paylink.TransactionIntent) (paylink.RelayOutcome, error) {
	var outcome paylink.RelayOutcome
	if err := c.call(ctx, ToolRelayIntent, intent, &outcome); err != nil {
		return paylink.RelayOutcome{}, err
	}
	return outcome, nil
}

func (c *Client) call(ctx context.Context, name string, args interface{}, out interface{}) error {
	result, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return fmt.Errorf("%s call failed: %w", name, err)
	}

	text := ""
	for _, item := range result.Content {
		if textContent, ok := item.(*mcpsdk.TextContent); ok {
			text = textContent.Text
			break
		}
	}

	if result.IsError {
		var toolErr ToolError
		if err := json.Unmarshal([]byte(text), &toolErr); err != nil || toolErr.Message == "" {
			return errors.New(text)
		}
		if toolErr.Code == "" {
			return errors.New(toolErr.Message)
		}
		return paylink.NewError(toolErr.Code, toolErr.Message)
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", name, err)
	}
	return nil
}

var _ paylink.Resolver = (*Client)(nil)
