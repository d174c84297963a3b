package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	paylink "github.com/paylink-foundation/paylink/go"
	"github.com/paylink-foundation/paylink/go/validation"
)

// Relayer validates and submits transaction intents.
type Relayer interface {
	Relay(ctx context.Context, intent paylink.TransactionIntent) (paylink.RelayOutcome, error)
}

const messageInternal = "An internal error occurred. We are investigating the cause of the problem."

// Server serves the resolver tools over MCP.
type Server struct {
	sdk       *mcpsdk.Server
	resolver  paylink.Resolver
	validator paylink.MetadataValidator
	relayer   Relayer
	logger    *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithValidator sets the pipeline used by validate_routing_document
func WithValidator(validator paylink.MetadataValidator) Option {
	return func(s *Server) {
		s.validator = validator
	}
}

// WithRelayer enables the relay_intent tool
func WithRelayer(relayer Relayer) Option {
	return func(s *Server) {
		s.relayer = relayer
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer registers the tools backed by resolver.
func NewServer(resolver paylink.Resolver, version string, opts ...Option) *Server {
	s := &Server{
		resolver: resolver,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = validation.NewDefaultPipeline(validation.WithTokenLogger(s.logger))
	}

	s.sdk = mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "paylink-resolver",
		Version: version,
	}, nil)

	s.sdk.AddTool(&mcpsdk.Tool{
		Name:        ToolResolveHandle,
		Description: "Resolve a handle to the destination address for a chain, token and tag.",
		InputSchema: resolveSchema,
	}, s.resolveHandle)

	s.sdk.AddTool(&mcpsdk.Tool{
		Name:        ToolGetRoutingDocument,
		Description: "Fetch and validate the routing document published for a handle.",
		InputSchema: handleSchema,
	}, s.getRoutingDocument)

	s.sdk.AddTool(&mcpsdk.Tool{
		Name:        ToolValidateRoutingDocument,
		Description: "Check a routing document for schema, address, token and tag problems before it is published.",
		InputSchema: validateSchema,
	}, s.validateRoutingDocument)

	if s.relayer != nil {
		s.sdk.AddTool(&mcpsdk.Tool{
			Name:        ToolRelayIntent,
			Description: "Submit a pre-signed register or subscribe intent without paying fees.",
			InputSchema: relaySchema,
		}, s.relayIntent)
	}
	return s
}

// SDK returns the underlying MCP server
func (s *Server) SDK() *mcpsdk.Server {
	return s.sdk
}

// Run serves a single session over transport until the client disconnects.
func (s *Server) Run(ctx context.Context, transport mcpsdk.Transport) error {
	return s.sdk.Run(ctx, transport)
}

// ============================================================================
// Tool Handlers
// ============================================================================

func (s *Server) resolveHandle(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args ResolveArgs
	if err := decodeArguments(req, &args); err != nil {
		return errorResult(err), nil
	}

	address, err := s.resolver.Resolve(ctx, args.Handle, paylink.ResolveOptions{
		Chain: args.Chain,
		Token: args.Token,
		Tag:   args.Tag,
	})
	if err != nil {
		s.logger.Info("resolution failed", zap.String("handle", args.Handle), zap.Error(err))
		return errorResult(err), nil
	}
	return jsonResult(ResolveResult{Handle: args.Handle, Address: address})
}

func (s *Server) getRoutingDocument(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args HandleArgs
	if err := decodeArguments(req, &args); err != nil {
		return errorResult(err), nil
	}

	doc, err := s.resolver.GetMetadata(ctx, args.Handle)
	if err != nil {
		s.logger.Info("metadata lookup failed", zap.String("handle", args.Handle), zap.Error(err))
		return errorResult(err), nil
	}
	return jsonResult(doc)
}

func (s *Server) validateRoutingDocument(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args ValidateArgs
	if err := decodeArguments(req, &args); err != nil {
		return errorResult(err), nil
	}

	doc, err := validation.ParseDocument(args.Document)
	if err != nil {
		return errorResult(err), nil
	}

	result := s.validator.Validate(ctx, doc)
	return jsonResult(ValidationReport{
		Valid:    !result.HasErrors(),
		Errors:   result.Messages(paylink.SeverityError),
		Warnings: result.Messages(paylink.SeverityWarning),
		Result:   result,
	})
}

func (s *Server) relayIntent(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var intent paylink.TransactionIntent
	if err := decodeArguments(req, &intent); err != nil {
		return errorResult(err), nil
	}

	outcome, err := s.relayer.Relay(ctx, intent)
	if err != nil {
		s.logger.Error("relay failed unexpectedly", zap.String("transactionType", intent.Type), zap.Error(err))
		return errorResult(errors.New(messageInternal)), nil
	}
	return jsonResult(outcome)
}

// ============================================================================
// Helpers
// ============================================================================

func decodeArguments(req *mcpsdk.CallToolRequest, out interface{}) error {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return errors.New("missing tool arguments")
	}
	if err := json.Unmarshal(req.Params.Arguments, out); err != nil {
		return fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return nil
}

func jsonResult(v interface{}) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) *mcpsdk.CallToolResult {
	body := ToolError{Message: err.Error()}
	var pe *paylink.Error
	if errors.As(err, &pe) {
		body = ToolError{Code: pe.Code, Message: pe.Message}
	}
	data, _ := json.Marshal(body)
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}
}
