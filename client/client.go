// Package client bundles resolution, payment, registration and the gasless
// relay behind a single signer-bound entry point.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	paylink "github.com/paylink-foundation/paylink/go"
	"github.com/paylink-foundation/paylink/go/evm"
	"github.com/paylink-foundation/paylink/go/payment"
	"github.com/paylink-foundation/paylink/go/registry"
	"github.com/paylink-foundation/paylink/go/relay"
	"github.com/paylink-foundation/paylink/go/resolver"
	"github.com/paylink-foundation/paylink/go/validation"
)

// Publisher stores a routing document and returns its content locator.
type Publisher interface {
	Put(ctx context.Context, data []byte) (string, error)
}

// IntentQueuer hands a signed intent to a gasless relay.
type IntentQueuer interface {
	Queue(ctx context.Context, intent paylink.TransactionIntent) (string, error)
}

// Config wires the collaborators of a Client
type Config struct {
	// NamesAddress is the names registry contract on the home chain. Required.
	NamesAddress string
	// Content fetches routing documents by locator. Required.
	Content paylink.ContentFetcher
	// Fees prices every transaction the client sends. Required.
	Fees paylink.FeeSource

	// Publisher stores new routing documents. Required for Register and UpdateMetadata.
	Publisher Publisher
	// Index is the indexed fallback used off the home chain and for LinkedHandles.
	Index paylink.NameIndex
	// Relay enables gasless registration when linking is free.
	Relay IntentQueuer
	// Validator replaces the default validation pipeline.
	Validator paylink.MetadataValidator
	// Chains replaces the default chain table.
	Chains evm.ChainTable
	// HomeChain overrides the home chain code.
	HomeChain string
	Logger    *zap.Logger
}

// Client acts on behalf of the wallet's account.
type Client struct {
	wallet     evm.Wallet
	names      *registry.Names
	router     *resolver.Router
	dispatcher *payment.Dispatcher
	publisher  Publisher
	relay      IntentQueuer
	validator  paylink.MetadataValidator
	homeChain  string
	logger     *zap.Logger
}

var (
	ErrMissingWallet       = errors.New("client requires a wallet")
	ErrMissingNamesAddress = errors.New("client requires a valid names contract address")
	ErrMissingContent      = errors.New("client requires a content fetcher")
	ErrMissingFees         = errors.New("client requires a fee source")
	ErrMissingPublisher    = errors.New("client has no publisher configured")
)

// New creates a client for wallet.
func New(wallet evm.Wallet, config Config) (*Client, error) {
	if wallet == nil {
		return nil, ErrMissingWallet
	}
	if !evm.IsValidAddress(config.NamesAddress) {
		return nil, ErrMissingNamesAddress
	}
	if config.Content == nil {
		return nil, ErrMissingContent
	}
	if config.Fees == nil {
		return nil, ErrMissingFees
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	chains := config.Chains
	if chains == nil {
		chains = evm.DefaultChains()
	}
	homeChain := config.HomeChain
	if homeChain == "" {
		homeChain = evm.ChainCode(evm.HomeChainID)
	}
	validator := config.Validator
	if validator == nil {
		validator = validation.NewDefaultPipeline(validation.WithChains(chains), validation.WithTokenLogger(logger))
	}

	names := registry.NewNames(config.NamesAddress, wallet, evm.NewTransactor(wallet, config.Fees))

	routerOpts := []resolver.Option{
		resolver.WithLedger(names),
		resolver.WithValidator(validator),
		resolver.WithHomeChain(homeChain),
		resolver.WithLogger(logger),
	}
	if config.Index != nil {
		routerOpts = append(routerOpts, resolver.WithIndex(config.Index))
	}
	router := resolver.NewRouter(wallet, config.Content, routerOpts...)

	return &Client{
		wallet:     wallet,
		names:      names,
		router:     router,
		dispatcher: payment.NewDispatcher(wallet, router, config.Fees, payment.WithChains(chains), payment.WithLogger(logger)),
		publisher:  config.Publisher,
		relay:      config.Relay,
		validator:  validator,
		homeChain:  homeChain,
		logger:     logger,
	}, nil
}

// ============================================================================
// Registration
// ============================================================================

// Register links handle to doc for the wallet's account. When a relay is
// configured and linking is free (or its price cannot be read off the home
// chain) the registration is signed and queued with the relay, and the
// returned receipt is nil. Otherwise it is sent directly, paying the price.
func (c *Client) Register(ctx context.Context, handle string, doc *paylink.RoutingDocument) (*evm.TransactionReceipt, error) {
	key, err := paylink.LedgerKey(handle)
	if err != nil {
		return nil, err
	}
	uri, err := c.publish(ctx, doc)
	if err != nil {
		return nil, err
	}
	owner := c.wallet.Address()

	home, err := c.onHomeChain(ctx)
	if err != nil {
		return nil, err
	}
	var price *big.Int
	if home {
		if price, err = c.names.LinkingPrice(ctx, owner); err != nil {
			return nil, err
		}
	}

	if c.relay != nil && (price == nil || price.Sign() == 0) {
		return nil, c.registerGasless(ctx, key, owner, uri)
	}

	if err := c.verifyChain(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("registering handle", zap.String("handle", handle), zap.String("metadataURI", uri), zap.Stringer("price", price))
	return c.names.Register(ctx, key, uri, price)
}

func (c *Client) registerGasless(ctx context.Context, key [32]byte, owner, uri string) error {
	hash, err := c.names.HashForRegisterBySignature(ctx, key, owner, uri)
	if err != nil {
		return err
	}
	signature, err := c.wallet.SignMessage(ctx, hash[:])
	if err != nil {
		return fmt.Errorf("failed to sign registration: %w", err)
	}

	intent, err := paylink.NewIntent(relay.TypeRegister,
		hexutil.Encode(key[:]), owner, hexutil.Encode([]byte(uri)), hexutil.Encode(signature))
	if err != nil {
		return err
	}
	message, err := c.relay.Queue(ctx, intent)
	if err != nil {
		return err
	}
	c.logger.Info("registration queued", zap.String("owner", owner), zap.String("message", message))
	return nil
}

// UpdateMetadata replaces the routing document of handle.
func (c *Client) UpdateMetadata(ctx context.Context, handle string, doc *paylink.RoutingDocument) (*evm.TransactionReceipt, error) {
	if err := c.verifyChain(ctx); err != nil {
		return nil, err
	}
	key, err := paylink.LedgerKey(handle)
	if err != nil {
		return nil, err
	}
	uri, err := c.publish(ctx, doc)
	if err != nil {
		return nil, err
	}
	return c.names.SetMetadataURI(ctx, key, uri)
}

// Release gives up ownership of handle.
func (c *Client) Release(ctx context.Context, handle string) (*evm.TransactionReceipt, error) {
	if err := c.verifyChain(ctx); err != nil {
		return nil, err
	}
	key, err := paylink.LedgerKey(handle)
	if err != nil {
		return nil, err
	}
	return c.names.Release(ctx, key)
}

// Transfer starts a transfer of handle to recipient, which is either an
// address or an "@handle" resolved to its default destination.
func (c *Client) Transfer(ctx context.Context, handle, recipient string) (*evm.TransactionReceipt, error) {
	if err := c.verifyChain(ctx); err != nil {
		return nil, err
	}
	key, err := paylink.LedgerKey(handle)
	if err != nil {
		return nil, err
	}
	to, err := c.recipientAddress(ctx, recipient)
	if err != nil {
		return nil, err
	}
	price, err := c.names.BasePrice(ctx)
	if err != nil {
		return nil, err
	}
	return c.names.Transfer(ctx, key, to, price)
}

// Claim accepts a transfer of handle to the wallet's account.
func (c *Client) Claim(ctx context.Context, handle string) (*evm.TransactionReceipt, error) {
	if err := c.verifyChain(ctx); err != nil {
		return nil, err
	}
	key, err := paylink.LedgerKey(handle)
	if err != nil {
		return nil, err
	}
	price, err := c.names.LinkingPrice(ctx, c.wallet.Address())
	if err != nil {
		return nil, err
	}
	return c.names.Claim(ctx, key, price)
}

// ============================================================================
// Queries
// ============================================================================

// Resolve returns the destination address of handle.
func (c *Client) Resolve(ctx context.Context, handle string, opts paylink.ResolveOptions) (string, error) {
	return c.router.Resolve(ctx, handle, opts)
}

// GetMetadata returns the validated routing document of handle.
func (c *Client) GetMetadata(ctx context.Context, handle string) (*paylink.RoutingDocument, error) {
	return c.router.GetMetadata(ctx, handle)
}

// Pay sends funds to a handle and waits for the transaction to be mined.
func (c *Client) Pay(ctx context.Context, req payment.PayRequest) (*evm.TransactionReceipt, error) {
	return c.dispatcher.Pay(ctx, req)
}

// LinkingPrice returns what the wallet's account pays to link a handle.
func (c *Client) LinkingPrice(ctx context.Context) (*big.Int, error) {
	if err := c.verifyChain(ctx); err != nil {
		return nil, err
	}
	return c.names.LinkingPrice(ctx, c.wallet.Address())
}

// TransferPrice returns the price of transferring a handle.
func (c *Client) TransferPrice(ctx context.Context) (*big.Int, error) {
	if err := c.verifyChain(ctx); err != nil {
		return nil, err
	}
	return c.names.BasePrice(ctx)
}

// TransferOwner returns the pending recipient of a transfer of handle.
func (c *Client) TransferOwner(ctx context.Context, handle string) (string, error) {
	if err := c.verifyChain(ctx); err != nil {
		return "", err
	}
	key, err := paylink.LedgerKey(handle)
	if err != nil {
		return "", err
	}
	return c.names.TransferOwner(ctx, key)
}

// LinkedHandles returns the handles owned by address.
func (c *Client) LinkedHandles(ctx context.Context, address string) ([]string, error) {
	return c.router.LinkedHandles(ctx, address)
}

// ValidateMetadata runs the validation pipeline over doc. Warnings are logged;
// errors are joined into one metadata_validation_failed error.
func (c *Client) ValidateMetadata(ctx context.Context, doc *paylink.RoutingDocument) error {
	result := c.validator.Validate(ctx, doc)
	for _, warning := range result.Messages(paylink.SeverityWarning) {
		c.logger.Warn("routing document warning", zap.String("warning", warning))
	}
	if !result.HasErrors() {
		return nil
	}
	errs := result.Messages(paylink.SeverityError)
	return paylink.NewError(paylink.ErrCodeMetadataValidationFailed, strings.Join(errs, "\n")).
		WithDetail("validation", result)
}

// ============================================================================
// Helpers
// ============================================================================

func (c *Client) publish(ctx context.Context, doc *paylink.RoutingDocument) (string, error) {
	if c.publisher == nil {
		return "", ErrMissingPublisher
	}
	if doc == nil {
		return "", paylink.NewError(paylink.ErrCodeInvalidMetadataSchema, "routing document is required")
	}
	if err := c.ValidateMetadata(ctx, doc); err != nil {
		return "", err
	}

	data, err := validation.EncodeDocument(doc)
	if err != nil {
		return "", err
	}
	uri, err := c.publisher.Put(ctx, data)
	if err != nil {
		return "", fmt.Errorf("failed to publish routing document: %w", err)
	}
	return uri, nil
}

func (c *Client) recipientAddress(ctx context.Context, recipient string) (string, error) {
	if strings.HasPrefix(recipient, paylink.PresentationMarker) {
		return c.router.Resolve(ctx, recipient, paylink.ResolveOptions{})
	}
	if !evm.IsValidAddress(recipient) {
		return "", fmt.Errorf("invalid recipient %q", recipient)
	}
	return recipient, nil
}

func (c *Client) onHomeChain(ctx context.Context) (bool, error) {
	chainID, err := c.wallet.ChainID(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read connected chain: %w", err)
	}
	return evm.ChainCode(chainID) == c.homeChain, nil
}

func (c *Client) verifyChain(ctx context.Context) error {
	home, err := c.onHomeChain(ctx)
	if err != nil {
		return err
	}
	if !home {
		return paylink.NewError(paylink.ErrCodeWrongChainConnected,
			fmt.Sprintf("the names registry lives on %s, switch the wallet to it", c.homeChain))
	}
	return nil
}
