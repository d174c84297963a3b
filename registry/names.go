// Package registry binds the names registry contract on the home chain.
package registry

import (
	"context"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paylink-foundation/paylink/go/evm"
)

// Names is a typed view over the names registry contract. Reads go through a
// ContractReader; writes need a ContractWriter and fail without one.
type Names struct {
	address string
	reader  evm.ContractReader
	writer  evm.ContractWriter
}

// NewNames binds the registry at address. writer may be nil for read-only use.
func NewNames(address string, reader evm.ContractReader, writer evm.ContractWriter) *Names {
	return &Names{address: address, reader: reader, writer: writer}
}

// Address returns the contract address
func (n *Names) Address() string {
	return n.address
}

// MetadataURI returns the content locator stored for key, or "" when the
// handle is not linked.
func (n *Names) MetadataURI(ctx context.Context, key [32]byte) (string, error) {
	result, err := n.reader.ReadContract(ctx, n.address, evm.NamesRegistryABI, evm.FunctionMetadataURIs, key)
	if err != nil {
		return "", err
	}
	raw, ok := result.([]byte)
	if !ok {
		return "", fmt.Errorf("unexpected metadataURIs result type %T", result)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("metadata URI is not valid UTF-8")
	}
	return string(raw), nil
}

// LinkingPrice returns the price owner pays to link a handle.
func (n *Names) LinkingPrice(ctx context.Context, owner string) (*big.Int, error) {
	result, err := n.reader.ReadContract(ctx, n.address, evm.NamesRegistryABI, evm.FunctionLinkingPrices, common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	return evm.ToBigInt(result)
}

// BasePrice returns the price of transferring a handle.
func (n *Names) BasePrice(ctx context.Context) (*big.Int, error) {
	result, err := n.reader.ReadContract(ctx, n.address, evm.NamesRegistryABI, evm.FunctionBasePrice)
	if err != nil {
		return nil, err
	}
	return evm.ToBigInt(result)
}

// TransferOwner returns the pending recipient of a transfer, or the zero
// address when none is pending.
func (n *Names) TransferOwner(ctx context.Context, key [32]byte) (string, error) {
	result, err := n.reader.ReadContract(ctx, n.address, evm.NamesRegistryABI, evm.FunctionTransfers, key)
	if err != nil {
		return "", err
	}
	addr, ok := result.(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected transfers result type %T", result)
	}
	return addr.Hex(), nil
}

// HashForRegisterBySignature returns the digest owner signs to authorize a
// relayed registration.
func (n *Names) HashForRegisterBySignature(ctx context.Context, key [32]byte, owner string, metadataURI string) ([32]byte, error) {
	result, err := n.reader.ReadContract(ctx, n.address, evm.NamesRegistryABI, evm.FunctionGetHashForRegisterBySignature,
		key, common.HexToAddress(owner), []byte(metadataURI))
	if err != nil {
		return [32]byte{}, err
	}
	hash, ok := result.([32]byte)
	if !ok {
		return [32]byte{}, fmt.Errorf("unexpected hash result type %T", result)
	}
	return hash, nil
}

// Register links key to metadataURI, paying value.
func (n *Names) Register(ctx context.Context, key [32]byte, metadataURI string, value *big.Int) (*evm.TransactionReceipt, error) {
	return n.write(ctx, evm.FunctionRegister, value, key, []byte(metadataURI))
}

// SetMetadataURI points key at a new routing document.
func (n *Names) SetMetadataURI(ctx context.Context, key [32]byte, metadataURI string) (*evm.TransactionReceipt, error) {
	return n.write(ctx, evm.FunctionSetMetadataURI, nil, key, []byte(metadataURI))
}

// Release gives up ownership of key.
func (n *Names) Release(ctx context.Context, key [32]byte) (*evm.TransactionReceipt, error) {
	return n.write(ctx, evm.FunctionRelease, nil, key)
}

// Transfer starts a transfer of key to recipient, paying value.
func (n *Names) Transfer(ctx context.Context, key [32]byte, recipient string, value *big.Int) (*evm.TransactionReceipt, error) {
	return n.write(ctx, evm.FunctionTransfer, value, key, common.HexToAddress(recipient))
}

// Claim accepts a pending transfer of key, paying value.
func (n *Names) Claim(ctx context.Context, key [32]byte, value *big.Int) (*evm.TransactionReceipt, error) {
	return n.write(ctx, evm.FunctionClaim, value, key)
}

func (n *Names) write(ctx context.Context, fn string, value *big.Int, args ...interface{}) (*evm.TransactionReceipt, error) {
	if n.writer == nil {
		return nil, fmt.Errorf("names registry is read-only: %s requires a signer", fn)
	}
	receipt, err := n.writer.WriteContract(ctx, n.address, evm.NamesRegistryABI, fn, value, args...)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", fn, err)
	}
	return receipt, nil
}
