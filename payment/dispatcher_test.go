package payment

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paylink "github.com/paylink-foundation/paylink/go"
	"github.com/paylink-foundation/paylink/go/evm"
)

const (
	destination = "0x3333333333333333333333333333333333333333"
	usdc        = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
)

type fakeWallet struct {
	chainID     int64
	decimals    interface{}
	decimalsErr error
	status      uint64
	sent        []evm.TxRequest
}

func (w *fakeWallet) ReadContract(_ context.Context, address string, _ []byte, fn string, _ ...interface{}) (interface{}, error) {
	if fn != evm.FunctionDecimals {
		return nil, errors.New("unexpected call")
	}
	return w.decimals, w.decimalsErr
}

func (w *fakeWallet) ChainID(context.Context) (*big.Int, error) { return big.NewInt(w.chainID), nil }

func (w *fakeWallet) Address() string { return "0x00000000000000000000000000000000000000ee" }

func (w *fakeWallet) PendingNonce(context.Context) (uint64, error) { return 3, nil }

func (w *fakeWallet) EstimateGas(context.Context, evm.CallRequest) (uint64, error) { return 21000, nil }

func (w *fakeWallet) SendTransaction(_ context.Context, tx evm.TxRequest) (string, error) {
	w.sent = append(w.sent, tx)
	return "0xabc", nil
}

func (w *fakeWallet) WaitForTransactionReceipt(_ context.Context, txHash string) (*evm.TransactionReceipt, error) {
	return &evm.TransactionReceipt{Status: w.status, TxHash: txHash}, nil
}

type fakeResolver struct {
	opts paylink.ResolveOptions
	err  error
}

func (r *fakeResolver) Resolve(_ context.Context, handle string, opts paylink.ResolveOptions) (string, error) {
	r.opts = opts
	return destination, r.err
}

func (r *fakeResolver) GetMetadata(context.Context, string) (*paylink.RoutingDocument, error) {
	return nil, errors.New("unused")
}

type fees struct{}

func (fees) CurrentFees(context.Context) (paylink.Fees, error) {
	return paylink.Fees{MaxFeePerGas: big.NewInt(2), MaxPriorityFeePerGas: big.NewInt(1)}, nil
}

func TestPayNative(t *testing.T) {
	wallet := &fakeWallet{chainID: 137, status: evm.TxStatusSuccess}
	resolver := &fakeResolver{}

	receipt, err := NewDispatcher(wallet, resolver, fees{}).Pay(context.Background(),
		PayRequest{Amount: "1.5", Handle: "@alice", Chain: "evm:137"})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", receipt.TxHash)

	assert.Equal(t, paylink.ResolveOptions{Chain: "evm:137", Token: "coin"}, resolver.opts)
	require.Len(t, wallet.sent, 1)
	assert.Equal(t, destination, wallet.sent[0].To)
	assert.Equal(t, "1500000000000000000", wallet.sent[0].Value.String())
	assert.Empty(t, wallet.sent[0].Data)
}

func TestPayToken(t *testing.T) {
	wallet := &fakeWallet{chainID: 137, decimals: uint8(6), status: evm.TxStatusSuccess}

	_, err := NewDispatcher(wallet, &fakeResolver{}, fees{}).Pay(context.Background(),
		PayRequest{Amount: "2.25", Handle: "alice", Chain: "evm:137", Token: usdc, Tag: "savings"})
	require.NoError(t, err)

	require.Len(t, wallet.sent, 1)
	sent := wallet.sent[0]
	assert.Equal(t, usdc, sent.To)
	assert.Zero(t, sent.Value.Sign())

	transfer := evm.MustParseSignature("transfer(address,uint256)")
	assert.Equal(t, transfer.Selector(), sent.Data[:4])
	args, err := transfer.Inputs.Unpack(sent.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(destination), args[0])
	assert.Equal(t, "2250000", args[1].(*big.Int).String())
}

func TestPayErrors(t *testing.T) {
	tests := []struct {
		name   string
		wallet *fakeWallet
		req    PayRequest
		code   string
	}{
		{
			name:   "unknown chain",
			wallet: &fakeWallet{chainID: 5},
			req:    PayRequest{Amount: "1", Handle: "alice", Chain: "evm:5"},
			code:   paylink.ErrCodeUnsupportedChain,
		},
		{
			name:   "chain without endpoint",
			wallet: &fakeWallet{chainID: 250},
			req:    PayRequest{Amount: "1", Handle: "alice", Chain: "evm:250"},
			code:   paylink.ErrCodeUnsupportedChain,
		},
		{
			name:   "non-evm chain",
			wallet: &fakeWallet{chainID: 137},
			req:    PayRequest{Amount: "1", Handle: "alice", Chain: "otc:solana"},
			code:   paylink.ErrCodeUnsupportedChain,
		},
		{
			name:   "wrong chain connected",
			wallet: &fakeWallet{chainID: 1},
			req:    PayRequest{Amount: "1", Handle: "alice", Chain: "evm:137"},
			code:   paylink.ErrCodeWrongChainConnected,
		},
		{
			name:   "decimals unreadable",
			wallet: &fakeWallet{chainID: 137, decimalsErr: errors.New("reverted")},
			req:    PayRequest{Amount: "1", Handle: "alice", Chain: "evm:137", Token: usdc},
			code:   paylink.ErrCodeUnknownTokenDecimals,
		},
		{
			name:   "too many fractional digits",
			wallet: &fakeWallet{chainID: 137, decimals: uint8(6)},
			req:    PayRequest{Amount: "0.0000001", Handle: "alice", Chain: "evm:137", Token: usdc},
			code:   paylink.ErrCodeInvalidAmount,
		},
		{
			name:   "zero amount",
			wallet: &fakeWallet{chainID: 137},
			req:    PayRequest{Amount: "0", Handle: "alice", Chain: "evm:137"},
			code:   paylink.ErrCodeInvalidAmount,
		},
		{
			name:   "wildcard token",
			wallet: &fakeWallet{chainID: 137},
			req:    PayRequest{Amount: "1", Handle: "alice", Chain: "evm:137", Token: "*"},
			code:   paylink.ErrCodeUnknownToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDispatcher(tt.wallet, &fakeResolver{}, fees{}).Pay(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, paylink.IsCode(err, tt.code), "got %v", err)
			assert.Empty(t, tt.wallet.sent)
		})
	}
}

func TestPayResolutionErrorPropagates(t *testing.T) {
	wallet := &fakeWallet{chainID: 137}
	resolver := &fakeResolver{err: paylink.NewError(paylink.ErrCodeUnknownTag, "no tag")}

	_, err := NewDispatcher(wallet, resolver, fees{}).Pay(context.Background(),
		PayRequest{Amount: "1", Handle: "alice", Chain: "evm:137"})
	assert.True(t, paylink.IsCode(err, paylink.ErrCodeUnknownTag))
	assert.Empty(t, wallet.sent)
}

func TestPayRevertedTransaction(t *testing.T) {
	wallet := &fakeWallet{chainID: 137, status: 0}
	_, err := NewDispatcher(wallet, &fakeResolver{}, fees{}).Pay(context.Background(),
		PayRequest{Amount: "1", Handle: "alice", Chain: "evm:137"})
	assert.Error(t, err)
}
