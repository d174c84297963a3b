package validation

import (
	"context"
	"fmt"

	paylink "github.com/paylink-foundation/paylink/go"
)

// DuplicateChecker requires every mapping to carry a tag and every tag to be
// unique within its (chain, token) group.
type DuplicateChecker struct{}

// NewDuplicateChecker creates a duplicate checker
func NewDuplicateChecker() *DuplicateChecker {
	return &DuplicateChecker{}
}

// Name implements Validator
func (c *DuplicateChecker) Name() string {
	return "duplicate-checker"
}

// Validate implements Validator
func (c *DuplicateChecker) Validate(ctx context.Context, doc *paylink.RoutingDocument, result *paylink.ValidationResult) {
	for _, chain := range doc.ChainCodes() {
		route := doc.PaymentLink.Chains[chain]
		for _, token := range route.TokenCodes() {
			seen := make(map[string]int)
			for i, mapping := range route.Tokens[token] {
				path := MappingPath(chain, token, i)
				if mapping.Tag == "" {
					result.Add(path, paylink.SeverityError, c.Name(),
						fmt.Sprintf("All tags must be specified. Use '%s' for wildcards (default).", paylink.TagWildcard))
					continue
				}
				if first, ok := seen[mapping.Tag]; ok {
					result.Add(path, paylink.SeverityError, c.Name(),
						fmt.Sprintf("The tag %q is already used by %s", mapping.Tag, MappingPath(chain, token, first)))
					continue
				}
				seen[mapping.Tag] = i
			}
		}
	}
}
