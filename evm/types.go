package evm

import (
	"context"
	"math/big"
)

// CallRequest is an unsigned call against a contract or account.
type CallRequest struct {
	From  string   `json:"from,omitempty"`
	To    string   `json:"to"`
	Data  []byte   `json:"data,omitempty"`
	Value *big.Int `json:"value,omitempty"`
}

// TxRequest is a fully priced EIP-1559 transaction ready to be signed.
type TxRequest struct {
	To                   string
	Data                 []byte
	Value                *big.Int
	Nonce                uint64
	Gas                  uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// TransactionReceipt represents the receipt of a mined transaction
type TransactionReceipt struct {
	Status      uint64 `json:"status"`
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"transactionHash"`
}

// ContractReader performs read-only contract calls.
type ContractReader interface {
	// ReadContract packs functionName with args against abi, executes an eth_call
	// and returns the single output (or all outputs when there are several).
	ReadContract(ctx context.Context, address string, abi []byte, functionName string, args ...interface{}) (interface{}, error)
}

// ChainIdentifier reports the chain a connection targets.
type ChainIdentifier interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// BaseFeeReader reads the base fee of the most recent block.
type BaseFeeReader interface {
	LatestBaseFee(ctx context.Context) (*big.Int, error)
}

// Submitter drives signed transactions from a single account into the pending pool.
type Submitter interface {
	// Address returns the submitting account
	Address() string

	// PendingNonce returns the account's pending-inclusive sequence number
	PendingNonce(ctx context.Context) (uint64, error)

	// EstimateGas estimates the execution cost of call
	EstimateGas(ctx context.Context, call CallRequest) (uint64, error)

	// SendTransaction signs and hands tx to the network, returning its hash
	SendTransaction(ctx context.Context, tx TxRequest) (string, error)
}

// ReceiptWaiter blocks until a transaction is mined.
type ReceiptWaiter interface {
	WaitForTransactionReceipt(ctx context.Context, txHash string) (*TransactionReceipt, error)
}

// MessageSigner produces personal_sign style signatures.
type MessageSigner interface {
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// Wallet is the full surface of a caller-owned signer connected to a chain.
type Wallet interface {
	ContractReader
	ChainIdentifier
	Submitter
	ReceiptWaiter
	MessageSigner
}

// ChainInfo describes a chain code known to the router and validators.
type ChainInfo struct {
	Code    string
	Name    string
	IsEVM   bool
	ChainID *big.Int
	// RPC lists public endpoints; empty means the chain cannot be checked.
	RPC []string
}
