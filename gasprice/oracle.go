package gasprice

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	paylink "github.com/paylink-foundation/paylink/go"
	"github.com/paylink-foundation/paylink/go/evm"
)

// Oracle supplies fee parameters, preferring a live fee source and falling
// back to a multiple of the latest block's base fee.
type Oracle struct {
	primary paylink.FeeSource
	blocks  evm.BaseFeeReader
	logger  *zap.Logger
}

// Option configures an Oracle
type Option func(*Oracle)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Oracle) {
		o.logger = logger
	}
}

// NewOracle creates an oracle. Either source may be nil.
func NewOracle(primary paylink.FeeSource, blocks evm.BaseFeeReader, opts ...Option) *Oracle {
	o := &Oracle{
		primary: primary,
		blocks:  blocks,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CurrentFees implements paylink.FeeSource
func (o *Oracle) CurrentFees(ctx context.Context) (paylink.Fees, error) {
	if o.primary != nil {
		fees, err := o.primary.CurrentFees(ctx)
		if err == nil {
			return fees, nil
		}
		o.logger.Warn("primary fee source failed, using base fee", zap.Error(err))
	}

	if o.blocks == nil {
		return paylink.Fees{}, paylink.NewError(paylink.ErrCodeGasPriceUnavailable, "no fee source available")
	}

	baseFee, err := o.blocks.LatestBaseFee(ctx)
	if err != nil {
		return paylink.Fees{}, paylink.NewError(paylink.ErrCodeGasPriceUnavailable, "failed to read latest base fee").Wrap(err)
	}
	return FeesFromBaseFee(baseFee), nil
}

// FeesFromBaseFee derives fees from a base fee: max fee is 125% of it and the
// priority fee 120%.
func FeesFromBaseFee(baseFee *big.Int) paylink.Fees {
	maxFee := new(big.Int).Mul(baseFee, big.NewInt(125))
	maxFee.Div(maxFee, big.NewInt(100))

	priorityFee := new(big.Int).Mul(baseFee, big.NewInt(12))
	priorityFee.Div(priorityFee, big.NewInt(10))

	return paylink.Fees{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: priorityFee}
}

var _ paylink.FeeSource = (*Oracle)(nil)
