package validation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	paylink "github.com/paylink-foundation/paylink/go"
	"github.com/paylink-foundation/paylink/go/evm"
	evmsigners "github.com/paylink-foundation/paylink/go/signers/evm"
)

const (
	// DefaultCheckTimeout bounds a single token check
	DefaultCheckTimeout = 10 * time.Second
	// DefaultCheckConcurrency bounds the number of token checks in flight
	DefaultCheckConcurrency = 8
)

// ReaderFactory opens a read-only connection to an RPC endpoint.
type ReaderFactory func(rpcURL string) evm.ContractReader

// TokenChecker checks every concrete EVM token code against the chain's public
// RPC endpoint. A token passes when symbol(), name() and decimals() all answer.
type TokenChecker struct {
	chains       evm.ChainTable
	newReader    ReaderFactory
	checkTimeout time.Duration
	concurrency  int
	logger       *zap.Logger

	mu      sync.Mutex
	readers map[string]evm.ContractReader
}

// TokenCheckerOption configures a TokenChecker
type TokenCheckerOption func(*TokenChecker)

// WithChains replaces the chain table used to find RPC endpoints
func WithChains(chains evm.ChainTable) TokenCheckerOption {
	return func(c *TokenChecker) {
		c.chains = chains
	}
}

// WithReaderFactory replaces how RPC connections are opened
func WithReaderFactory(factory ReaderFactory) TokenCheckerOption {
	return func(c *TokenChecker) {
		c.newReader = factory
	}
}

// WithCheckTimeout bounds each token check
func WithCheckTimeout(timeout time.Duration) TokenCheckerOption {
	return func(c *TokenChecker) {
		c.checkTimeout = timeout
	}
}

// WithCheckConcurrency bounds concurrent token checks
func WithCheckConcurrency(n int) TokenCheckerOption {
	return func(c *TokenChecker) {
		c.concurrency = n
	}
}

// WithTokenLogger sets the logger for failed token checks
func WithTokenLogger(logger *zap.Logger) TokenCheckerOption {
	return func(c *TokenChecker) {
		c.logger = logger
	}
}

// NewTokenChecker creates a token checker over the default chain table.
func NewTokenChecker(opts ...TokenCheckerOption) *TokenChecker {
	c := &TokenChecker{
		chains:       evm.DefaultChains(),
		newReader:    func(rpcURL string) evm.ContractReader { return evmsigners.NewReader(rpcURL) },
		checkTimeout: DefaultCheckTimeout,
		concurrency:  DefaultCheckConcurrency,
		logger:       zap.NewNop(),
		readers:      make(map[string]evm.ContractReader),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Validator
func (c *TokenChecker) Name() string {
	return "token-checker"
}

type tokenCheck struct {
	chain   string
	token   string
	rpcURL  string
	failure error
}

// Validate implements Validator
func (c *TokenChecker) Validate(ctx context.Context, doc *paylink.RoutingDocument, result *paylink.ValidationResult) {
	var checks []*tokenCheck
	for _, chainCode := range doc.ChainCodes() {
		route := doc.PaymentLink.Chains[chainCode]
		chain, known := c.chains.Lookup(chainCode)
		if !known {
			result.Add(ChainPath(chainCode), paylink.SeverityError, c.Name(), "The chain was not found")
		}
		if !route.IsEVM || !known || len(chain.RPC) == 0 {
			continue
		}

		for _, token := range route.TokenCodes() {
			if paylink.IsSentinelToken(token) {
				continue
			}
			checks = append(checks, &tokenCheck{chain: chainCode, token: token, rpcURL: chain.RPC[0]})
		}
	}
	if len(checks) == 0 {
		return
	}

	// Failed checks are findings, so the group never returns an error
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, p := range checks {
		g.Go(func() error {
			p.failure = c.checkToken(gctx, p.rpcURL, p.token)
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range checks {
		if p.failure == nil {
			continue
		}
		c.logger.Debug("token check failed",
			zap.String("chain", p.chain),
			zap.String("token", p.token),
			zap.Error(p.failure))
		result.Add(TokenPath(p.chain, p.token), paylink.SeverityError, c.Name(),
			"The token might not be valid. Please re-check the token address")
	}
}

func (c *TokenChecker) checkToken(ctx context.Context, rpcURL, token string) error {
	if !evm.IsValidAddress(token) {
		return fmt.Errorf("token code %s is not an address", token)
	}

	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	reader := c.reader(rpcURL)
	for _, fn := range []string{evm.FunctionSymbol, evm.FunctionName, evm.FunctionDecimals} {
		value, err := reader.ReadContract(ctx, token, evm.ERC20MetadataABI, fn)
		if err != nil {
			return fmt.Errorf("%s: %w", fn, err)
		}
		if s, ok := value.(string); ok && s == "" {
			return fmt.Errorf("%s returned an empty string", fn)
		}
	}
	return nil
}

func (c *TokenChecker) reader(rpcURL string) evm.ContractReader {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.readers[rpcURL]; ok {
		return r
	}
	r := c.newReader(rpcURL)
	c.readers[rpcURL] = r
	return r
}
