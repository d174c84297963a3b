package relay

import (
	"fmt"

	"github.com/paylink-foundation/paylink/go/evm"
)

// Intent types accepted by the default registry
const (
	TypeRegister  = "register"
	TypeSubscribe = "subscribe"
)

// Operation is a registered intent type: a fixed contract, the call it
// encodes to and one predicate per argument.
type Operation struct {
	Type       string
	Contract   string
	Signature  *evm.FunctionSignature
	Predicates []Predicate
}

// Registry is the closed set of operations the relay will submit.
type Registry struct {
	operations map[string]Operation
	order      []string
}

// NewRegistry creates a registry. Operations keep their registration order.
func NewRegistry(operations ...Operation) (*Registry, error) {
	r := &Registry{operations: make(map[string]Operation)}
	for _, op := range operations {
		if _, exists := r.operations[op.Type]; exists {
			return nil, fmt.Errorf("operation %s registered twice", op.Type)
		}
		if op.Signature == nil {
			return nil, fmt.Errorf("operation %s has no signature", op.Type)
		}
		if len(op.Predicates) != len(op.Signature.Inputs) {
			return nil, fmt.Errorf("operation %s has %d predicates for %d inputs",
				op.Type, len(op.Predicates), len(op.Signature.Inputs))
		}
		if !evm.IsValidAddress(op.Contract) {
			return nil, fmt.Errorf("operation %s has invalid contract address %q", op.Type, op.Contract)
		}
		r.operations[op.Type] = op
		r.order = append(r.order, op.Type)
	}
	return r, nil
}

// DefaultRegistry registers relayed registrations on the names contract and
// permit subscriptions on the subscriptions contract.
func DefaultRegistry(namesContract, subscriptionsContract string) (*Registry, error) {
	return NewRegistry(
		Operation{
			Type:       TypeRegister,
			Contract:   namesContract,
			Signature:  evm.MustParseSignature(evm.SignatureRegisterBySignature),
			Predicates: []Predicate{HexBytes(32), HexBytes(20), Hex(), Hex()},
		},
		Operation{
			Type:       TypeSubscribe,
			Contract:   subscriptionsContract,
			Signature:  evm.MustParseSignature(evm.SignatureSubscribeWithPermit),
			Predicates: []Predicate{Numeric(), HexBytes(20), Numeric(), HexBytes(32), HexBytes(32)},
		},
	)
}

// Lookup returns the operation registered under intentType
func (r *Registry) Lookup(intentType string) (Operation, bool) {
	op, ok := r.operations[intentType]
	return op, ok
}

// Types returns the registered types in registration order
func (r *Registry) Types() []string {
	return append([]string(nil), r.order...)
}
