package evm

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// FunctionSignature is a function parsed from its human-readable form, e.g.
// "registerBySignature(bytes32 _name,address _owner,bytes _metadataURI,bytes _signature)"
// or "decimals() returns (uint8)".
type FunctionSignature struct {
	Name    string
	Inputs  abi.Arguments
	Outputs abi.Arguments
}

// ParseSignature parses a human-readable function signature. Tuple parameters are not supported.
func ParseSignature(signature string) (*FunctionSignature, error) {
	signature = strings.TrimSpace(signature)
	open := strings.Index(signature, "(")
	if open <= 0 {
		return nil, fmt.Errorf("invalid function signature: %q", signature)
	}
	closing := strings.Index(signature[open:], ")")
	if closing < 0 {
		return nil, fmt.Errorf("invalid function signature: %q", signature)
	}
	closing += open

	inputs, err := parseArguments(signature[open+1 : closing])
	if err != nil {
		return nil, fmt.Errorf("invalid inputs in %q: %w", signature, err)
	}

	fn := &FunctionSignature{
		Name:   strings.TrimSpace(signature[:open]),
		Inputs: inputs,
	}

	rest := strings.TrimSpace(signature[closing+1:])
	if rest != "" {
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "returns"))
		if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
			return nil, fmt.Errorf("invalid outputs in %q", signature)
		}
		fn.Outputs, err = parseArguments(rest[1 : len(rest)-1])
		if err != nil {
			return nil, fmt.Errorf("invalid outputs in %q: %w", signature, err)
		}
	}

	return fn, nil
}

// MustParseSignature is ParseSignature for package-level constants.
func MustParseSignature(signature string) *FunctionSignature {
	fn, err := ParseSignature(signature)
	if err != nil {
		panic(err)
	}
	return fn
}

func parseArguments(list string) (abi.Arguments, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return abi.Arguments{}, nil
	}

	parts := strings.Split(list, ",")
	args := make(abi.Arguments, 0, len(parts))
	for i, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			return nil, fmt.Errorf("empty parameter at position %d", i)
		}
		typ, err := abi.NewType(fields[0], "", nil)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		name := ""
		if len(fields) > 1 {
			name = fields[len(fields)-1]
		}
		args = append(args, abi.Argument{Name: name, Type: typ})
	}
	return args, nil
}

// Canonical returns the canonical form used for the selector, e.g. "transfer(address,uint256)".
func (f *FunctionSignature) Canonical() string {
	types := make([]string, len(f.Inputs))
	for i, input := range f.Inputs {
		types[i] = input.Type.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(types, ","))
}

// Selector returns the 4-byte function selector.
func (f *FunctionSignature) Selector() []byte {
	return crypto.Keccak256([]byte(f.Canonical()))[:4]
}

// Encode builds calldata from Go values already in their ABI representation.
func (f *FunctionSignature) Encode(args ...interface{}) ([]byte, error) {
	packed, err := f.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", f.Name, err)
	}
	return append(f.Selector(), packed...), nil
}

// ArgumentError reports an argument that does not fit its ABI type.
type ArgumentError struct {
	Index int
	Err   error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %d: %v", e.Index, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// EncodeJSON builds calldata from raw JSON arguments: addresses and byte
// values as 0x-prefixed hex strings, integers as JSON numbers or hex strings.
// An argument that cannot be converted yields an *ArgumentError.
func (f *FunctionSignature) EncodeJSON(raw []json.RawMessage) ([]byte, error) {
	if len(raw) != len(f.Inputs) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", f.Name, len(f.Inputs), len(raw))
	}

	args := make([]interface{}, len(raw))
	for i, input := range f.Inputs {
		value, err := CoerceArgument(input.Type, raw[i])
		if err != nil {
			return nil, &ArgumentError{Index: i, Err: err}
		}
		args[i] = value
	}
	return f.Encode(args...)
}

// CoerceArgument converts a JSON value into the Go representation abi.Pack expects for typ.
func CoerceArgument(typ abi.Type, raw json.RawMessage) (interface{}, error) {
	switch typ.T {
	case abi.AddressTy:
		s, err := jsonString(raw)
		if err != nil {
			return nil, err
		}
		if !IsValidAddress(s) {
			return nil, fmt.Errorf("invalid address: %q", s)
		}
		return common.HexToAddress(s), nil

	case abi.FixedBytesTy:
		b, err := jsonHex(raw)
		if err != nil {
			return nil, err
		}
		if len(b) != typ.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", typ.Size, len(b))
		}
		arr := reflect.New(typ.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.BytesTy:
		return jsonHex(raw)

	case abi.StringTy:
		return jsonString(raw)

	case abi.BoolTy:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("expected boolean: %w", err)
		}
		return b, nil

	case abi.UintTy, abi.IntTy:
		n, err := jsonInteger(raw)
		if err != nil {
			return nil, err
		}
		return sizedInteger(typ, n)

	default:
		return nil, fmt.Errorf("unsupported ABI type %s", typ.String())
	}
}

func jsonString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected string: %w", err)
	}
	return s, nil
}

func jsonHex(raw json.RawMessage) ([]byte, error) {
	s, err := jsonString(raw)
	if err != nil {
		return nil, err
	}
	return DecodeHex(s)
}

// jsonInteger accepts a JSON integer or a 0x-prefixed hex string.
func jsonInteger(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		b, err := DecodeHex(s)
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetBytes(b), nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return nil, fmt.Errorf("expected number or hex string: %w", err)
	}
	n, ok := new(big.Int).SetString(num.String(), 10)
	if !ok {
		return nil, fmt.Errorf("expected integer, got %s", num.String())
	}
	return n, nil
}

func sizedInteger(typ abi.Type, n *big.Int) (interface{}, error) {
	if typ.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("negative value for %s", typ.String())
	}
	limit := typ.Size
	if typ.T == abi.IntTy {
		limit--
	}
	if n.BitLen() > limit {
		return nil, fmt.Errorf("value overflows %s", typ.String())
	}
	if typ.Size > 64 {
		return n, nil
	}

	goType := typ.GetType()
	if typ.T == abi.UintTy {
		return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
	}
	return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
}
