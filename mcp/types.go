package mcp

import (
	"encoding/json"

	paylink "github.com/paylink-foundation/paylink/go"
)

// Tool names
const (
	ToolResolveHandle           = "resolve_handle"
	ToolGetRoutingDocument      = "get_routing_document"
	ToolValidateRoutingDocument = "validate_routing_document"
	ToolRelayIntent             = "relay_intent"
)

// ResolveArgs are the arguments of resolve_handle
type ResolveArgs struct {
	Handle string `json:"handle"`
	Chain  string `json:"chain,omitempty"`
	Token  string `json:"token,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

// ResolveResult is the result of resolve_handle
type ResolveResult struct {
	Handle  string `json:"handle"`
	Address string `json:"address"`
}

// HandleArgs are the arguments of get_routing_document
type HandleArgs struct {
	Handle string `json:"handle"`
}

// ValidateArgs are the arguments of validate_routing_document
type ValidateArgs struct {
	Document json.RawMessage `json:"document"`
}

// ValidationReport is the result of validate_routing_document
type ValidationReport struct {
	Valid    bool                      `json:"valid"`
	Errors   []string                  `json:"errors"`
	Warnings []string                  `json:"warnings"`
	Result   *paylink.ValidationResult `json:"result"`
}

// ToolError is the body of a failed tool call
type ToolError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

var (
	resolveSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"handle": {"type": "string", "description": "Handle to resolve, with or without the leading @"},
			"chain": {"type": "string", "description": "Chain code such as evm:1 or otc:solana"},
			"token": {"type": "string", "description": "Token address, or coin for the native asset"},
			"tag": {"type": "string", "description": "Destination tag, * by default"}
		},
		"required": ["handle"]
	}`)

	handleSchema = json.RawMessage(`{
		"type": "object",
		"properties": {"handle": {"type": "string"}},
		"required": ["handle"]
	}`)

	validateSchema = json.RawMessage(`{
		"type": "object",
		"properties": {"document": {"type": "object", "description": "Routing document to check before publishing"}},
		"required": ["document"]
	}`)

	relaySchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"transactionType": {"type": "string"},
			"arguments": {"type": "array"}
		},
		"required": ["transactionType", "arguments"]
	}`)
)
