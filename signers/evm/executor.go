package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/paylink-foundation/paylink/go/evm"
)

// DefaultReceiptPollInterval is how often WaitForTransactionReceipt polls.
const DefaultReceiptPollInterval = time.Second

// Executor is a keyed account on an EVM chain. It implements evm.Wallet and is
// used both as the relay's executor identity and as a caller's own signer.
type Executor struct {
	*Reader
	privateKey   *ecdsa.PrivateKey
	address      common.Address
	pollInterval time.Duration
}

// NewExecutor creates an executor from a hex-encoded private key (with or
// without "0x"). The RPC connection is dialed lazily on first use.
//
// Example:
//
//	executor, err := evm.NewExecutor(cfg.RPCURL, cfg.ExecutorPrivateKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewExecutor(rpcURL string, privateKeyHex string) (*Executor, error) {
	return NewExecutorWithReader(NewReader(rpcURL), privateKeyHex)
}

// NewExecutorWithReader creates an executor sharing an existing reader connection.
func NewExecutorWithReader(reader *Reader, privateKeyHex string) (*Executor, error) {
	// Strip 0x prefix if present
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")

	// Parse hex string to ECDSA private key
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Executor{
		Reader:       reader,
		privateKey:   privateKey,
		address:      crypto.PubkeyToAddress(privateKey.PublicKey),
		pollInterval: DefaultReceiptPollInterval,
	}, nil
}

// Address returns the Ethereum address of the executor.
func (e *Executor) Address() string {
	return e.address.Hex()
}

// PendingNonce returns the pending-inclusive nonce of the executor account.
// It is never cached.
func (e *Executor) PendingNonce(ctx context.Context) (uint64, error) {
	client, err := e.conn(ctx)
	if err != nil {
		return 0, err
	}
	nonce, err := client.PendingNonceAt(ctx, e.address)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return nonce, nil
}

// EstimateGas estimates the gas needed to execute call from the executor account.
func (e *Executor) EstimateGas(ctx context.Context, call evm.CallRequest) (uint64, error) {
	client, err := e.conn(ctx)
	if err != nil {
		return 0, err
	}

	to := common.HexToAddress(call.To)
	msg := ethereum.CallMsg{
		From:  e.address,
		To:    &to,
		Data:  call.Data,
		Value: call.Value,
	}
	gas, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gas, nil
}

// SendTransaction signs tx as an EIP-1559 transaction and submits it.
// It returns as soon as the node accepts the transaction.
func (e *Executor) SendTransaction(ctx context.Context, tx evm.TxRequest) (string, error) {
	client, err := e.conn(ctx)
	if err != nil {
		return "", err
	}

	chainID, err := e.ChainID(ctx)
	if err != nil {
		return "", err
	}

	value := tx.Value
	if value == nil {
		value = big.NewInt(0)
	}

	// Create transaction
	to := common.HexToAddress(tx.To)
	unsigned := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     tx.Nonce,
		GasTipCap: tx.MaxPriorityFeePerGas,
		GasFeeCap: tx.MaxFeePerGas,
		Gas:       tx.Gas,
		To:        &to,
		Value:     value,
		Data:      tx.Data,
	})

	// Sign transaction
	signedTx, err := types.SignTx(unsigned, types.LatestSignerForChainID(chainID), e.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	// Send transaction
	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

// WaitForTransactionReceipt polls until the transaction is mined or ctx ends.
func (e *Executor) WaitForTransactionReceipt(ctx context.Context, txHash string) (*evm.TransactionReceipt, error) {
	client, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}

	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return &evm.TransactionReceipt{
				Status:      receipt.Status,
				BlockNumber: receipt.BlockNumber.Uint64(),
				TxHash:      receipt.TxHash.Hex(),
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// SignMessage signs message with the EIP-191 personal message prefix.
// The recovery id is shifted to 27/28.
func (e *Executor) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	signature, err := crypto.Sign(accounts.TextHash(message), e.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// Adjust v value for Ethereum (recovery ID 0/1 → 27/28)
	signature[64] += 27
	return signature, nil
}

var _ evm.Wallet = (*Executor)(nil)
