package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Reader is a keyless connection to an EVM JSON-RPC endpoint. The connection
// is dialed on first use and memoized once it succeeds; a failed dial is
// retried by the next call. The chain id is read once.
type Reader struct {
	rpcURL string

	dialMu sync.Mutex
	client *ethclient.Client

	chainMu sync.Mutex
	chainID *big.Int
}

// NewReader creates a reader for rpcURL. No network traffic happens until the first call.
func NewReader(rpcURL string) *Reader {
	return &Reader{rpcURL: rpcURL}
}

// NewReaderWithClient wraps an already dialed client.
func NewReaderWithClient(client *ethclient.Client) *Reader {
	return &Reader{client: client}
}

// conn returns the memoized client, dialing it when no connection exists yet.
func (r *Reader) conn(ctx context.Context) (*ethclient.Client, error) {
	r.dialMu.Lock()
	defer r.dialMu.Unlock()

	if r.client != nil {
		return r.client, nil
	}
	if r.rpcURL == "" {
		return nil, fmt.Errorf("no RPC endpoint configured")
	}
	client, err := ethclient.DialContext(ctx, r.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", r.rpcURL, err)
	}
	r.client = client
	return client, nil
}

// ChainID returns the chain id of the connected network.
func (r *Reader) ChainID(ctx context.Context) (*big.Int, error) {
	r.chainMu.Lock()
	defer r.chainMu.Unlock()
	if r.chainID != nil {
		return new(big.Int).Set(r.chainID), nil
	}

	client, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	r.chainID = chainID
	return new(big.Int).Set(chainID), nil
}

// LatestBaseFee returns the base fee of the most recent block.
func (r *Reader) LatestBaseFee(ctx context.Context) (*big.Int, error) {
	client, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", err)
	}
	if header.BaseFee == nil {
		return nil, fmt.Errorf("latest block %s has no base fee", header.Number)
	}
	return header.BaseFee, nil
}

// ReadContract reads data from a smart contract.
func (r *Reader) ReadContract(
	ctx context.Context,
	contractAddress string,
	abiBytes []byte,
	functionName string,
	args ...interface{},
) (interface{}, error) {
	client, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	// Parse ABI
	contractABI, err := abi.JSON(strings.NewReader(string(abiBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	// Pack the method call
	data, err := contractABI.Pack(functionName, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack method call: %w", err)
	}

	// Execute call
	addr := common.HexToAddress(contractAddress)
	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty result from %s at %s", functionName, contractAddress)
	}

	// Unpack result
	outputs, err := contractABI.Unpack(functionName, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack result: %w", err)
	}

	if len(outputs) == 0 {
		return nil, nil
	}
	if len(outputs) == 1 {
		return outputs[0], nil
	}
	return outputs, nil
}

// Close releases the underlying connection if one was dialed.
func (r *Reader) Close() {
	r.dialMu.Lock()
	defer r.dialMu.Unlock()

	if r.client != nil {
		r.client.Close()
		r.client = nil
	}
}
