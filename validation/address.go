package validation

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	paylink "github.com/paylink-foundation/paylink/go"
	"github.com/paylink-foundation/paylink/go/evm"
)

// AddressFormat reports whether an address is well formed for a chain.
type AddressFormat func(address string) bool

// AddressChecker validates the shape of every address in a document. EVM
// chains use the hex address format; other chains use the format registered
// for their chain code and are left unchecked when none is registered.
type AddressChecker struct {
	formats map[string]AddressFormat
}

// NewAddressChecker creates a checker with the built-in non-EVM formats.
func NewAddressChecker() *AddressChecker {
	return &AddressChecker{
		formats: map[string]AddressFormat{
			"otc:solana": IsSolanaAddress,
		},
	}
}

// WithFormat registers the address format of a non-EVM chain code.
func (c *AddressChecker) WithFormat(chain string, format AddressFormat) *AddressChecker {
	c.formats[chain] = format
	return c
}

// Name implements Validator
func (c *AddressChecker) Name() string {
	return "address-checker"
}

// Validate implements Validator
func (c *AddressChecker) Validate(ctx context.Context, doc *paylink.RoutingDocument, result *paylink.ValidationResult) {
	c.check(evm.IsValidAddress, "Ethereum-style", doc.PaymentLink.EVMFallbackAddress, PathEVMFallback, result)

	for _, chain := range doc.ChainCodes() {
		route := doc.PaymentLink.Chains[chain]

		format, kind := AddressFormat(evm.IsValidAddress), "Ethereum-style"
		if !route.IsEVM {
			var ok bool
			format, ok = c.formats[chain]
			if !ok {
				continue
			}
			kind = chain
		}

		c.check(format, kind, route.FallbackAddress, ChainFallbackPath(chain), result)
		for _, token := range route.TokenCodes() {
			for i, mapping := range route.Tokens[token] {
				c.check(format, kind, mapping.Address, MappingPath(chain, token, i), result)
			}
		}
	}
}

func (c *AddressChecker) check(format AddressFormat, kind, address, path string, result *paylink.ValidationResult) {
	if format(address) {
		return
	}
	result.Add(path, paylink.SeverityError, c.Name(),
		fmt.Sprintf("The address configured for %s is not a valid %s address", path, kind))
}

// IsSolanaAddress reports whether address is a base58 ed25519 public key.
func IsSolanaAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}
