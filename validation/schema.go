package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	paylink "github.com/paylink-foundation/paylink/go"
)

//go:embed schema/routing_document.json
var routingDocumentSchema []byte

// RoutingDocumentSchema returns the JSON Schema every routing document must satisfy.
func RoutingDocumentSchema() []byte {
	return append([]byte(nil), routingDocumentSchema...)
}

// ParseDocument validates raw JSON against the routing document schema and
// decodes it. Schema violations yield an invalid_metadata_schema error.
func ParseDocument(data []byte) (*paylink.RoutingDocument, error) {
	if !json.Valid(data) {
		return nil, paylink.NewError(paylink.ErrCodeInvalidMetadataSchema, "metadata is not valid JSON")
	}

	schemaLoader := gojsonschema.NewBytesLoader(routingDocumentSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, paylink.NewError(paylink.ErrCodeInvalidMetadataSchema, "failed to validate metadata").Wrap(err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
		}
		return nil, paylink.NewError(paylink.ErrCodeInvalidMetadataSchema, strings.Join(errors, "; ")).
			WithDetail("errors", errors)
	}

	var doc paylink.RoutingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, paylink.NewError(paylink.ErrCodeInvalidMetadataSchema, "failed to decode metadata").Wrap(err)
	}
	if doc.PaymentLink.Chains == nil {
		doc.PaymentLink.Chains = make(map[string]paylink.ChainRoute)
	}
	return &doc, nil
}

// EncodeDocument renders a document in the form published to storage.
func EncodeDocument(doc *paylink.RoutingDocument) ([]byte, error) {
	// nil collections would encode as null and fail the schema on the way back
	out := paylink.RoutingDocument{PaymentLink: paylink.PaymentLink{
		EVMFallbackAddress: doc.PaymentLink.EVMFallbackAddress,
		Chains:             make(map[string]paylink.ChainRoute, len(doc.PaymentLink.Chains)),
	}}
	for code, route := range doc.PaymentLink.Chains {
		tokens := make(map[string][]paylink.TokenMapping, len(route.Tokens))
		for token, mappings := range route.Tokens {
			if mappings == nil {
				mappings = []paylink.TokenMapping{}
			}
			tokens[token] = mappings
		}
		route.Tokens = tokens
		out.PaymentLink.Chains[code] = route
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}
