package validation

import (
	"context"
	"fmt"

	paylink "github.com/paylink-foundation/paylink/go"
)

// Validator is a single check over a routing document. Validators append
// findings to result and never short-circuit the pipeline.
type Validator interface {
	Name() string
	Validate(ctx context.Context, doc *paylink.RoutingDocument, result *paylink.ValidationResult)
}

// Pipeline runs validators in a fixed order over a shared result.
type Pipeline struct {
	validators []Validator
}

// NewPipeline creates a pipeline running validators in the given order.
func NewPipeline(validators ...Validator) *Pipeline {
	return &Pipeline{validators: validators}
}

// NewDefaultPipeline runs the address, token and duplicate checks in that order.
func NewDefaultPipeline(tokenOpts ...TokenCheckerOption) *Pipeline {
	return NewPipeline(
		NewAddressChecker(),
		NewTokenChecker(tokenOpts...),
		NewDuplicateChecker(),
	)
}

// Validators returns the configured validators in run order
func (p *Pipeline) Validators() []Validator {
	return append([]Validator(nil), p.validators...)
}

// Validate runs every validator and returns the accumulated result.
func (p *Pipeline) Validate(ctx context.Context, doc *paylink.RoutingDocument) *paylink.ValidationResult {
	result := paylink.NewValidationResult()
	for _, validator := range p.validators {
		validator.Validate(ctx, doc, result)
	}
	return result
}

var _ paylink.MetadataValidator = (*Pipeline)(nil)

// ============================================================================
// Paths
// ============================================================================

// PathEVMFallback is the path of the default destination
const PathEVMFallback = "paymentLink.evmFallbackAddress"

// ChainPath is the path of a chain route
func ChainPath(chain string) string {
	return fmt.Sprintf("paymentLink.chains.%s", chain)
}

// ChainFallbackPath is the path of a chain's fallback address
func ChainFallbackPath(chain string) string {
	return fmt.Sprintf("paymentLink.chains.%s.fallbackAddress", chain)
}

// TokenPath is the path of a token's mapping list
func TokenPath(chain, token string) string {
	return fmt.Sprintf("paymentLink.chains.%s.tokens.%s", chain, token)
}

// MappingPath is the path of a single token mapping
func MappingPath(chain, token string, index int) string {
	return fmt.Sprintf("paymentLink.chains.%s.tokens.%s[%d]", chain, token, index)
}
