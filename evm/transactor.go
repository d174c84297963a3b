package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	paylink "github.com/paylink-foundation/paylink/go"
)

// ContractWriter executes state-changing contract calls and waits for them to be mined.
type ContractWriter interface {
	WriteContract(ctx context.Context, address string, abi []byte, functionName string, value *big.Int, args ...interface{}) (*TransactionReceipt, error)
}

// TxSender is the part of a wallet needed to price, submit and await a transaction.
type TxSender interface {
	Submitter
	ReceiptWaiter
}

// Transactor prices and submits transactions from a wallet. Gas is estimated
// immediately before sending and fees come from the configured fee source.
type Transactor struct {
	wallet TxSender
	fees   paylink.FeeSource
}

// NewTransactor creates a transactor
func NewTransactor(wallet TxSender, fees paylink.FeeSource) *Transactor {
	return &Transactor{wallet: wallet, fees: fees}
}

// Send estimates, prices and submits a transaction, returning its hash.
func (t *Transactor) Send(ctx context.Context, to string, data []byte, value *big.Int) (string, error) {
	gas, err := t.wallet.EstimateGas(ctx, CallRequest{From: t.wallet.Address(), To: to, Data: data, Value: value})
	if err != nil {
		return "", fmt.Errorf("failed to estimate gas: %w", err)
	}

	fees, err := t.fees.CurrentFees(ctx)
	if err != nil {
		return "", err
	}

	nonce, err := t.wallet.PendingNonce(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	return t.wallet.SendTransaction(ctx, TxRequest{
		To:                   to,
		Data:                 data,
		Value:                value,
		Nonce:                nonce,
		Gas:                  gas,
		MaxFeePerGas:         fees.MaxFeePerGas,
		MaxPriorityFeePerGas: fees.MaxPriorityFeePerGas,
	})
}

// SendAndWait submits a transaction and waits until it is mined successfully.
func (t *Transactor) SendAndWait(ctx context.Context, to string, data []byte, value *big.Int) (*TransactionReceipt, error) {
	txHash, err := t.Send(ctx, to, data, value)
	if err != nil {
		return nil, err
	}

	receipt, err := t.wallet.WaitForTransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt.Status != TxStatusSuccess {
		return receipt, fmt.Errorf("transaction %s failed with status %d", txHash, receipt.Status)
	}
	return receipt, nil
}

// WriteContract implements ContractWriter
func (t *Transactor) WriteContract(
	ctx context.Context,
	address string,
	abiBytes []byte,
	functionName string,
	value *big.Int,
	args ...interface{},
) (*TransactionReceipt, error) {
	contractABI, err := abi.JSON(strings.NewReader(string(abiBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	data, err := contractABI.Pack(functionName, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack method call: %w", err)
	}

	return t.SendAndWait(ctx, address, data, value)
}

var _ ContractWriter = (*Transactor)(nil)
