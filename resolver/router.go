// Package resolver turns handles into payment destinations.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	paylink "github.com/paylink-foundation/paylink/go"
	"github.com/paylink-foundation/paylink/go/evm"
	"github.com/paylink-foundation/paylink/go/storage"
	"github.com/paylink-foundation/paylink/go/validation"
)

// Ledger reads content pointers from the authoritative names registry.
type Ledger interface {
	MetadataURI(ctx context.Context, key [32]byte) (string, error)
}

// Router resolves handles. On the home chain the content pointer is read from
// the registry; elsewhere the indexed fallback is queried.
type Router struct {
	connection evm.ChainIdentifier
	ledger     Ledger
	index      paylink.NameIndex
	content    paylink.ContentFetcher
	validator  paylink.MetadataValidator
	homeChain  string
	logger     *zap.Logger
}

// Option configures a Router
type Option func(*Router)

// WithLedger sets the registry read on the home chain
func WithLedger(ledger Ledger) Option {
	return func(r *Router) {
		r.ledger = ledger
	}
}

// WithIndex sets the indexed fallback
func WithIndex(index paylink.NameIndex) Option {
	return func(r *Router) {
		r.index = index
	}
}

// WithValidator replaces the validation pipeline
func WithValidator(validator paylink.MetadataValidator) Option {
	return func(r *Router) {
		r.validator = validator
	}
}

// WithHomeChain overrides the chain code of the home chain
func WithHomeChain(chainCode string) Option {
	return func(r *Router) {
		r.homeChain = chainCode
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a router. connection is the caller's ledger connection;
// content fetches routing documents by locator.
func NewRouter(connection evm.ChainIdentifier, content paylink.ContentFetcher, opts ...Option) *Router {
	r := &Router{
		connection: connection,
		content:    content,
		homeChain:  evm.ChainCode(evm.HomeChainID),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validator == nil {
		r.validator = validation.NewDefaultPipeline(validation.WithTokenLogger(r.logger))
	}
	return r
}

// GetMetadata returns the validated routing document of a handle.
func (r *Router) GetMetadata(ctx context.Context, handle string) (*paylink.RoutingDocument, error) {
	canonical, err := paylink.Normalize(handle)
	if err != nil {
		return nil, err
	}

	locator, err := r.pointer(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if locator == "" {
		return nil, paylink.NewError(paylink.ErrCodeHandleNotLinked,
			fmt.Sprintf("%s is not linked with an address", canonical)).WithDetail("handle", canonical)
	}
	if !storage.IsLocator(locator) {
		r.logger.Warn("invalid metadata locator", zap.String("handle", canonical), zap.String("locator", locator))
		return nil, paylink.NewError(paylink.ErrCodeInvalidMetadataLocator, "invalid metadata locator").
			WithDetail("locator", locator)
	}

	data, err := r.content.Get(ctx, locator)
	if err != nil {
		r.logger.Warn("metadata fetch failed", zap.String("locator", locator), zap.Error(err))
		return nil, paylink.NewError(paylink.ErrCodeMetadataFetchFailed, "failed to fetch metadata").
			WithDetail("locator", locator).Wrap(err)
	}

	doc, err := validation.ParseDocument(data)
	if err != nil {
		return nil, err
	}

	result := r.validator.Validate(ctx, doc)
	if result.HasErrors() {
		return nil, paylink.NewError(paylink.ErrCodeMetadataValidationFailed,
			strings.Join(result.Messages(paylink.SeverityError), "\n")).WithDetail("validation", result)
	}
	for _, warning := range result.Messages(paylink.SeverityWarning) {
		r.logger.Debug("metadata warning", zap.String("handle", canonical), zap.String("warning", warning))
	}
	return doc, nil
}

// Resolve returns the destination address of a handle for the requested
// chain, token and tag.
func (r *Router) Resolve(ctx context.Context, handle string, opts paylink.ResolveOptions) (string, error) {
	doc, err := r.GetMetadata(ctx, handle)
	if err != nil {
		return "", err
	}
	return Select(doc, opts)
}

// Select picks a destination from a validated document.
func Select(doc *paylink.RoutingDocument, opts paylink.ResolveOptions) (string, error) {
	if opts.Chain == "" {
		if opts.Token != "" {
			return "", paylink.NewError(paylink.ErrCodeChainRequiredForToken, "chain must be specified to select a token")
		}
		return doc.PaymentLink.EVMFallbackAddress, nil
	}

	route, ok := doc.PaymentLink.Chains[opts.Chain]
	if !ok {
		return "", paylink.NewError(paylink.ErrCodeUnknownChain, "no address is configured for the specified chain").
			WithDetail("chain", opts.Chain)
	}
	if opts.Token == "" {
		return route.FallbackAddress, nil
	}

	mappings, ok := route.Tokens[opts.Token]
	if !ok {
		return "", paylink.NewError(paylink.ErrCodeUnknownToken, "no address is configured for the specified token on the chosen chain").
			WithDetail("chain", opts.Chain).WithDetail("token", opts.Token)
	}

	tag := opts.Tag
	if tag == "" {
		tag = paylink.TagWildcard
	}
	for _, mapping := range mappings {
		if mapping.Tag == tag {
			return mapping.Address, nil
		}
	}
	return "", paylink.NewError(paylink.ErrCodeUnknownTag, "the provided tag is not configured for the token").
		WithDetail("tag", tag)
}

// LinkedHandles returns the handles owned by owner, as seen by the index.
func (r *Router) LinkedHandles(ctx context.Context, owner string) ([]string, error) {
	if r.index == nil {
		return nil, paylink.NewError(paylink.ErrCodeNameSourceUnavailable, "no name index configured")
	}
	names, err := r.index.LinkedNames(ctx, strings.ToLower(owner))
	if err != nil {
		return nil, paylink.NewError(paylink.ErrCodeNameSourceUnavailable, "failed to query name index").Wrap(err)
	}
	return names, nil
}

// pointer returns the content locator of a canonical handle, or "" when the
// handle is not linked.
func (r *Router) pointer(ctx context.Context, canonical string) (string, error) {
	home, err := r.onHomeChain(ctx)
	if err != nil {
		if r.index == nil {
			return "", paylink.NewError(paylink.ErrCodeNameSourceUnavailable, "failed to read connected chain").Wrap(err)
		}
		r.logger.Warn("failed to read connected chain, using the name index", zap.Error(err))
		home = false
	}

	if home {
		key, err := paylink.LedgerKey(canonical)
		if err != nil {
			return "", err
		}
		uri, err := r.ledger.MetadataURI(ctx, key)
		if err != nil {
			return "", paylink.NewError(paylink.ErrCodeNameSourceUnavailable, "failed to read names registry").Wrap(err)
		}
		return uri, nil
	}

	if r.index == nil {
		return "", paylink.NewError(paylink.ErrCodeNameSourceUnavailable, "not connected to the home chain and no name index configured")
	}
	record, err := r.index.ResolveName(ctx, canonical)
	if err != nil {
		return "", paylink.NewError(paylink.ErrCodeNameSourceUnavailable, "failed to query name index").Wrap(err)
	}
	if record == nil {
		return "", nil
	}
	return record.MetadataURI, nil
}

func (r *Router) onHomeChain(ctx context.Context) (bool, error) {
	if r.ledger == nil || r.connection == nil {
		return false, nil
	}
	chainID, err := r.connection.ChainID(ctx)
	if err != nil {
		return false, err
	}
	return evm.ChainCode(chainID) == r.homeChain, nil
}

var _ paylink.Resolver = (*Router)(nil)
