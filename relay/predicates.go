package relay

import (
	"bytes"
	"encoding/json"

	"github.com/paylink-foundation/paylink/go/evm"
)

// Predicate checks the shape of a single positional argument.
type Predicate func(arg json.RawMessage) bool

// HexBytes accepts a 0x-prefixed even-length hex string decoding to exactly n bytes.
func HexBytes(n int) Predicate {
	return func(arg json.RawMessage) bool {
		s, ok := asString(arg)
		return ok && evm.IsHexData(s, n)
	}
}

// Hex accepts any 0x-prefixed even-length hex string.
func Hex() Predicate {
	return HexBytes(-1)
}

// Numeric accepts a JSON number or any hex string.
func Numeric() Predicate {
	hex := Hex()
	return func(arg json.RawMessage) bool {
		trimmed := bytes.TrimSpace(arg)
		if len(trimmed) == 0 || trimmed[0] == '"' {
			return hex(arg)
		}
		if bytes.Equal(trimmed, []byte("null")) {
			return false
		}
		var n json.Number
		return json.Unmarshal(trimmed, &n) == nil
	}
}

func asString(arg json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(arg, &s); err != nil {
		return "", false
	}
	return s, true
}
