package paylink

import (
	"context"
	"math/big"
)

// ============================================================================
// Collaborator Interfaces
// ============================================================================

// ContentFetcher retrieves the bytes behind a content locator ("ipfs://<cid>").
type ContentFetcher interface {
	Get(ctx context.Context, locator string) ([]byte, error)
}

// ContentStore is a put/get byte store addressed by a hash-derived locator.
// Put MUST be idempotent and stored objects are immutable.
type ContentStore interface {
	ContentFetcher
	Put(ctx context.Context, data []byte) (string, error)
}

// NameRecord is the indexed view of a registered handle.
type NameRecord struct {
	Name        string `json:"name"`
	MetadataURI string `json:"metadataUri"`
	Owner       string `json:"owner"`
}

// NameIndex is the eventually-consistent indexed fallback for the names registry.
type NameIndex interface {
	// ResolveName returns the record for a canonical handle, or nil when the
	// index does not hold exactly one match.
	ResolveName(ctx context.Context, canonical string) (*NameRecord, error)

	// LinkedNames returns the handles owned by an address.
	LinkedNames(ctx context.Context, owner string) ([]string, error)
}

// MetadataValidator runs the validation pipeline over a routing document.
type MetadataValidator interface {
	Validate(ctx context.Context, doc *RoutingDocument) *ValidationResult
}

// ResolveOptions narrows a resolution to a chain, token and tag.
// Empty fields are treated as omitted.
type ResolveOptions struct {
	Chain string
	Token string
	Tag   string
}

// Resolver turns a handle into a destination address.
type Resolver interface {
	Resolve(ctx context.Context, handle string, opts ResolveOptions) (string, error)
	GetMetadata(ctx context.Context, handle string) (*RoutingDocument, error)
}

// Fees are EIP-1559 fee parameters in wei.
type Fees struct {
	MaxFeePerGas         *big.Int `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas"`
}

// FeeSource supplies current fee parameters.
type FeeSource interface {
	CurrentFees(ctx context.Context) (Fees, error)
}
