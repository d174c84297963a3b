// Package payment sends funds to a resolved handle from the caller's own wallet.
package payment

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	paylink "github.com/paylink-foundation/paylink/go"
	"github.com/paylink-foundation/paylink/go/evm"
)

// PayRequest describes a payment to a handle. Token defaults to the native coin.
type PayRequest struct {
	Amount string `json:"amount"`
	Handle string `json:"handle"`
	Chain  string `json:"chain"`
	Token  string `json:"token,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

// Wallet is the caller's signer connected to the paying chain.
type Wallet interface {
	evm.ContractReader
	evm.ChainIdentifier
	evm.TxSender
}

// Dispatcher executes payments and waits for their inclusion.
type Dispatcher struct {
	wallet   Wallet
	resolver paylink.Resolver
	tx       *evm.Transactor
	chains   evm.ChainTable
	logger   *zap.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithChains replaces the chain table
func WithChains(chains evm.ChainTable) Option {
	return func(d *Dispatcher) {
		d.chains = chains
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher paying from wallet with fees from fees.
func NewDispatcher(wallet Wallet, resolver paylink.Resolver, fees paylink.FeeSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		wallet:   wallet,
		resolver: resolver,
		tx:       evm.NewTransactor(wallet, fees),
		chains:   evm.DefaultChains(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Pay resolves the destination and transfers the amount, returning once the
// transaction is mined.
func (d *Dispatcher) Pay(ctx context.Context, req PayRequest) (*evm.TransactionReceipt, error) {
	token := req.Token
	if token == "" {
		token = paylink.TokenCoin
	}
	if token == paylink.TokenAny {
		return nil, paylink.NewError(paylink.ErrCodeUnknownToken, "a concrete token is required to pay")
	}

	if err := d.ensureChain(ctx, req.Chain); err != nil {
		return nil, err
	}

	destination, err := d.resolver.Resolve(ctx, req.Handle, paylink.ResolveOptions{Chain: req.Chain, Token: token, Tag: req.Tag})
	if err != nil {
		return nil, err
	}

	decimals, err := d.decimals(ctx, token)
	if err != nil {
		return nil, err
	}

	amount, err := evm.ParseAmount(req.Amount, decimals)
	if err != nil {
		return nil, paylink.NewError(paylink.ErrCodeInvalidAmount, fmt.Sprintf("invalid amount %q", req.Amount)).Wrap(err)
	}
	if amount.Sign() <= 0 {
		return nil, paylink.NewError(paylink.ErrCodeInvalidAmount, "amount must be positive")
	}

	d.logger.Info("dispatching payment",
		zap.String("handle", req.Handle),
		zap.String("chain", req.Chain),
		zap.String("token", token),
		zap.String("destination", destination),
		zap.String("amount", amount.String()))

	if token == paylink.TokenCoin {
		return d.tx.SendAndWait(ctx, destination, nil, amount)
	}

	return d.tx.WriteContract(ctx, token, evm.ERC20TransferABI, evm.FunctionTransfer, big.NewInt(0),
		common.HexToAddress(destination), amount)
}

// ensureChain checks the chain is payable and that the wallet is connected to it.
func (d *Dispatcher) ensureChain(ctx context.Context, chainCode string) error {
	chain, ok := d.chains.Lookup(chainCode)
	if !ok || !chain.IsEVM || len(chain.RPC) == 0 {
		return paylink.NewError(paylink.ErrCodeUnsupportedChain, fmt.Sprintf("payments are not supported on %q", chainCode)).
			WithDetail("chain", chainCode)
	}

	connected, err := d.wallet.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read connected chain: %w", err)
	}
	if connected.Cmp(chain.ChainID) != 0 {
		return paylink.NewError(paylink.ErrCodeWrongChainConnected,
			fmt.Sprintf("wallet is connected to %s, expected %s", evm.ChainCode(connected), chainCode))
	}
	return nil
}

func (d *Dispatcher) decimals(ctx context.Context, token string) (int, error) {
	if token == paylink.TokenCoin {
		return evm.NativeDecimals, nil
	}

	result, err := d.wallet.ReadContract(ctx, token, evm.ERC20MetadataABI, evm.FunctionDecimals)
	if err != nil {
		return 0, paylink.NewError(paylink.ErrCodeUnknownTokenDecimals, "failed to read token decimals").
			WithDetail("token", token).Wrap(err)
	}
	decimals, err := evm.ToBigInt(result)
	if err != nil || !decimals.IsInt64() || decimals.Int64() > 77 {
		return 0, paylink.NewError(paylink.ErrCodeUnknownTokenDecimals, "token returned invalid decimals").
			WithDetail("token", token)
	}
	return int(decimals.Int64()), nil
}
