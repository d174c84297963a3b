package paylink

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
)

// Special token codes
const (
	// TokenCoin selects the chain's native asset.
	TokenCoin = "coin"
	// TokenAny matches any token on the chain.
	TokenAny = "*"
	// TagWildcard is the default tag when none is requested.
	TagWildcard = "*"
)

// ============================================================================
// Routing Document
// ============================================================================

// RoutingDocument is the off-chain document a handle owner publishes to
// content-addressed storage. It is immutable once published.
type RoutingDocument struct {
	PaymentLink PaymentLink `json:"paymentLink"`
}

// PaymentLink holds the default destination and the per-chain routes.
type PaymentLink struct {
	EVMFallbackAddress string                `json:"evmFallbackAddress"`
	Chains             map[string]ChainRoute `json:"chains"` // chainCode => route
}

// ChainRoute maps token codes on a single chain to tagged destinations.
type ChainRoute struct {
	IsEVM           bool                      `json:"isEVM"`
	FallbackAddress string                    `json:"fallbackAddress"`
	Tokens          map[string][]TokenMapping `json:"tokens"` // tokenCode => mappings
}

// TokenMapping is a single tagged destination for a token.
type TokenMapping struct {
	Address string `json:"address"`
	Tag     string `json:"tag"`
}

// ChainCodes returns the document's chain codes in a stable order.
func (d *RoutingDocument) ChainCodes() []string {
	codes := make([]string, 0, len(d.PaymentLink.Chains))
	for code := range d.PaymentLink.Chains {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// TokenCodes returns the route's token codes in a stable order.
func (r ChainRoute) TokenCodes() []string {
	codes := make([]string, 0, len(r.Tokens))
	for code := range r.Tokens {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsSentinelToken reports whether code is one of the special token codes.
func IsSentinelToken(code string) bool {
	return code == TokenCoin || code == TokenAny
}

// ============================================================================
// Validation Result
// ============================================================================

// Severity of a validation record
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationRecord is a single finding produced by a validator.
type ValidationRecord struct {
	Severity  Severity `json:"type"`
	Validator string   `json:"validator"`
	Message   string   `json:"message"`
}

// ValidationResult accumulates findings keyed by the dotted path of the
// offending field. Records are appended in the order validators run.
type ValidationResult struct {
	Records map[string][]ValidationRecord `json:"records"`
}

// NewValidationResult creates an empty result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Records: make(map[string][]ValidationRecord)}
}

// Add appends a record for path.
func (r *ValidationResult) Add(path string, severity Severity, validator, message string) {
	if r.Records == nil {
		r.Records = make(map[string][]ValidationRecord)
	}
	r.Records[path] = append(r.Records[path], ValidationRecord{
		Severity:  severity,
		Validator: validator,
		Message:   message,
	})
}

// HasErrors reports whether any error-severity record is present.
// A document with errors must not be published.
func (r *ValidationResult) HasErrors() bool {
	for _, records := range r.Records {
		for _, record := range records {
			if record.Severity == SeverityError {
				return true
			}
		}
	}
	return false
}

// Messages returns "path: message" lines for the given severity, sorted by path.
func (r *ValidationResult) Messages(severity Severity) []string {
	paths := make([]string, 0, len(r.Records))
	for path := range r.Records {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var messages []string
	for _, path := range paths {
		for _, record := range r.Records[path] {
			if record.Severity == severity {
				messages = append(messages, fmt.Sprintf("%s: %s", path, record.Message))
			}
		}
	}
	return messages
}

// ============================================================================
// Relay
// ============================================================================

// TransactionIntent is a pre-signed request to execute a registered operation.
// Arguments are kept as raw JSON so that numeric and hex-string forms can be
// told apart by the positional predicates.
type TransactionIntent struct {
	Type      string            `json:"transactionType"`
	Arguments []json.RawMessage `json:"arguments"`
}

// NewIntent builds an intent from Go values, marshalling each argument.
func NewIntent(intentType string, args ...interface{}) (TransactionIntent, error) {
	raw := make([]json.RawMessage, len(args))
	for i, arg := range args {
		if n, ok := arg.(*big.Int); ok {
			arg = fmt.Sprintf("0x%x", n)
		}
		b, err := json.Marshal(arg)
		if err != nil {
			return TransactionIntent{}, fmt.Errorf("failed to marshal argument %d: %w", i, err)
		}
		raw[i] = b
	}
	return TransactionIntent{Type: intentType, Arguments: raw}, nil
}

// RelayOutcome is the uniform result presented to relay clients.
type RelayOutcome struct {
	Succeeded bool   `json:"status"`
	Message   string `json:"message"`
}
