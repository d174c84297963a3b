package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paylink "github.com/paylink-foundation/paylink/go"
)

type fakeSender struct {
	nonce     uint64
	gas       uint64
	status    uint64
	estimate  error
	sent      []TxRequest
	estimated []CallRequest
}

func (f *fakeSender) Address() string { return "0x00000000000000000000000000000000000000ee" }

func (f *fakeSender) PendingNonce(context.Context) (uint64, error) { return f.nonce, nil }

func (f *fakeSender) EstimateGas(_ context.Context, call CallRequest) (uint64, error) {
	f.estimated = append(f.estimated, call)
	return f.gas, f.estimate
}

func (f *fakeSender) SendTransaction(_ context.Context, tx TxRequest) (string, error) {
	f.sent = append(f.sent, tx)
	return "0xhash", nil
}

func (f *fakeSender) WaitForTransactionReceipt(_ context.Context, txHash string) (*TransactionReceipt, error) {
	return &TransactionReceipt{Status: f.status, TxHash: txHash}, nil
}

type fixedFees struct {
	err error
}

func (f fixedFees) CurrentFees(context.Context) (paylink.Fees, error) {
	return paylink.Fees{MaxFeePerGas: big.NewInt(50), MaxPriorityFeePerGas: big.NewInt(2)}, f.err
}

func TestTransactorSend(t *testing.T) {
	sender := &fakeSender{nonce: 7, gas: 21000, status: TxStatusSuccess}
	tx := NewTransactor(sender, fixedFees{})

	receipt, err := tx.SendAndWait(context.Background(), "0x00000000000000000000000000000000000000aa", nil, big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, "0xhash", receipt.TxHash)

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, uint64(7), sent.Nonce)
	assert.Equal(t, uint64(21000), sent.Gas)
	assert.Equal(t, int64(50), sent.MaxFeePerGas.Int64())
	assert.Equal(t, int64(2), sent.MaxPriorityFeePerGas.Int64())
	assert.Equal(t, sender.Address(), sender.estimated[0].From)
}

func TestTransactorFailures(t *testing.T) {
	t.Run("estimation", func(t *testing.T) {
		sender := &fakeSender{estimate: errors.New("execution reverted")}
		_, err := NewTransactor(sender, fixedFees{}).Send(context.Background(), ZeroAddress, nil, nil)
		require.Error(t, err)
		assert.Empty(t, sender.sent)
	})

	t.Run("fees", func(t *testing.T) {
		sender := &fakeSender{}
		_, err := NewTransactor(sender, fixedFees{err: paylink.NewError(paylink.ErrCodeGasPriceUnavailable, "down")}).
			Send(context.Background(), ZeroAddress, nil, nil)
		assert.True(t, paylink.IsCode(err, paylink.ErrCodeGasPriceUnavailable))
	})

	t.Run("reverted receipt", func(t *testing.T) {
		sender := &fakeSender{status: 0}
		_, err := NewTransactor(sender, fixedFees{}).SendAndWait(context.Background(), ZeroAddress, nil, nil)
		assert.Error(t, err)
	})
}

func TestWriteContract(t *testing.T) {
	sender := &fakeSender{status: TxStatusSuccess, gas: 50000}
	_, err := NewTransactor(sender, fixedFees{}).WriteContract(context.Background(), ZeroAddress, ERC20TransferABI,
		FunctionTransfer, nil, common.HexToAddress("0x00000000000000000000000000000000000000bb"), big.NewInt(1))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, MustParseSignature("transfer(address,uint256)").Selector(), sender.sent[0].Data[:4])
}
