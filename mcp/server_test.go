package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paylink "github.com/paylink-foundation/paylink/go"
	"github.com/paylink-foundation/paylink/go/validation"
)

const destination = "0x1111111111111111111111111111111111111111"

type fakeResolver struct {
	lastOpts paylink.ResolveOptions
}

func (f *fakeResolver) Resolve(_ context.Context, handle string, opts paylink.ResolveOptions) (string, error) {
	f.lastOpts = opts
	if handle == "@ghost" {
		return "", paylink.NewError(paylink.ErrCodeHandleNotLinked, "handle is not linked")
	}
	return destination, nil
}

func (f *fakeResolver) GetMetadata(_ context.Context, handle string) (*paylink.RoutingDocument, error) {
	if handle == "@ghost" {
		return nil, paylink.NewError(paylink.ErrCodeHandleNotLinked, "handle is not linked")
	}
	return &paylink.RoutingDocument{PaymentLink: paylink.PaymentLink{
		EVMFallbackAddress: destination,
		Chains:             map[string]paylink.ChainRoute{},
	}}, nil
}

type fakeRelayer struct {
	intent paylink.TransactionIntent
	err    error
}

func (f *fakeRelayer) Relay(_ context.Context, intent paylink.TransactionIntent) (paylink.RelayOutcome, error) {
	f.intent = intent
	if f.err != nil {
		return paylink.RelayOutcome{}, f.err
	}
	return paylink.RelayOutcome{Succeeded: true, Message: "Transaction queued successfully"}, nil
}

func connect(t *testing.T, server *Server) *Client {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := server.SDK().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := mcpClient.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return NewClient(session)
}

func offlinePipeline() paylink.MetadataValidator {
	return validation.NewPipeline(validation.NewAddressChecker(), validation.NewDuplicateChecker())
}

func TestResolveHandleTool(t *testing.T) {
	resolver := &fakeResolver{}
	client := connect(t, NewServer(resolver, "test", WithValidator(offlinePipeline())))

	address, err := client.Resolve(context.Background(), "@alice", paylink.ResolveOptions{Chain: "evm:1", Token: "coin", Tag: "savings"})
	require.NoError(t, err)
	assert.Equal(t, destination, address)
	assert.Equal(t, paylink.ResolveOptions{Chain: "evm:1", Token: "coin", Tag: "savings"}, resolver.lastOpts)
}

func TestToolErrorsKeepTheirCode(t *testing.T) {
	client := connect(t, NewServer(&fakeResolver{}, "test", WithValidator(offlinePipeline())))

	_, err := client.Resolve(context.Background(), "@ghost", paylink.ResolveOptions{})
	require.Error(t, err)
	assert.True(t, paylink.IsCode(err, paylink.ErrCodeHandleNotLinked))
	assert.Equal(t, paylink.NotFoundError, paylink.KindOf(err))

	_, err = client.GetMetadata(context.Background(), "@ghost")
	assert.True(t, paylink.IsCode(err, paylink.ErrCodeHandleNotLinked))
}

func TestGetRoutingDocumentTool(t *testing.T) {
	client := connect(t, NewServer(&fakeResolver{}, "test", WithValidator(offlinePipeline())))

	doc, err := client.GetMetadata(context.Background(), "@alice")
	require.NoError(t, err)
	assert.Equal(t, destination, doc.PaymentLink.EVMFallbackAddress)
}

func TestValidateRoutingDocumentTool(t *testing.T) {
	client := connect(t, NewServer(&fakeResolver{}, "test", WithValidator(offlinePipeline())))
	ctx := context.Background()

	tests := []struct {
		name       string
		document   string
		wantValid  bool
		wantErrors int
		wantCode   string
	}{
		{
			name:      "valid",
			document:  `{"paymentLink":{"evmFallbackAddress":"0x1111111111111111111111111111111111111111","chains":{}}}`,
			wantValid: true,
		},
		{
			name: "duplicate tags",
			document: `{"paymentLink":{"evmFallbackAddress":"0x1111111111111111111111111111111111111111","chains":{
				"evm:1":{"isEVM":true,"fallbackAddress":"0x1111111111111111111111111111111111111111","tokens":{
					"coin":[{"address":"0x1111111111111111111111111111111111111111","tag":"*"},
					        {"address":"0x2222222222222222222222222222222222222222","tag":"*"}]}}}}}`,
			wantErrors: 1,
		},
		{
			name:     "schema violation",
			document: `{"paymentLink":{"chains":{}}}`,
			wantCode: paylink.ErrCodeInvalidMetadataSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := client.Validate(ctx, json.RawMessage(tt.document))
			if tt.wantCode != "" {
				assert.True(t, paylink.IsCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, report.Valid)
			assert.Len(t, report.Errors, tt.wantErrors)
			require.NotNil(t, report.Result)
			assert.Equal(t, !tt.wantValid, report.Result.HasErrors())
		})
	}
}

func TestRelayIntentTool(t *testing.T) {
	ctx := context.Background()
	intent, err := paylink.NewIntent("subscribe", "0x01", "0x2222222222222222222222222222222222222222")
	require.NoError(t, err)

	t.Run("disabled without a relayer", func(t *testing.T) {
		client := connect(t, NewServer(&fakeResolver{}, "test", WithValidator(offlinePipeline())))
		_, err := client.Relay(ctx, intent)
		assert.Error(t, err)
	})

	t.Run("queued", func(t *testing.T) {
		relayer := &fakeRelayer{}
		client := connect(t, NewServer(&fakeResolver{}, "test", WithValidator(offlinePipeline()), WithRelayer(relayer)))

		outcome, err := client.Relay(ctx, intent)
		require.NoError(t, err)
		assert.True(t, outcome.Succeeded)
		assert.Equal(t, "subscribe", relayer.intent.Type)
		assert.Len(t, relayer.intent.Arguments, 2)
	})

	t.Run("faults are generic", func(t *testing.T) {
		relayer := &fakeRelayer{err: errors.New("dial tcp 10.0.0.3:8545: connection refused")}
		client := connect(t, NewServer(&fakeResolver{}, "test", WithValidator(offlinePipeline()), WithRelayer(relayer)))

		_, err := client.Relay(ctx, intent)
		require.Error(t, err)
		assert.Equal(t, messageInternal, err.Error())
	})
}
