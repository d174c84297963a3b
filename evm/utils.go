package evm

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var decimalAmountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]*)?$|^\.[0-9]+$`)

// IsValidAddress reports whether address is a 20-byte hex address with 0x
// prefix. Mixed-case addresses must carry a valid EIP-55 checksum.
func IsValidAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return false
	}
	body := address[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(address).Hex() == address
}

// NormalizeAddress lowercases an address for comparisons and index lookups.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// IsHexData reports whether s is a 0x-prefixed, even-length hex string. When
// length is non-negative the decoded data must be exactly length bytes.
func IsHexData(s string, length int) bool {
	b, err := DecodeHex(s)
	if err != nil {
		return false
	}
	return length < 0 || len(b) == length
}

// DecodeHex decodes a 0x-prefixed hex string. "0x" decodes to empty data.
func DecodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("hex string without 0x prefix: %q", s)
	}
	body := s[2:]
	if len(body)%2 != 0 {
		return nil, fmt.Errorf("hex string of odd length: %q", s)
	}
	return hex.DecodeString(body)
}

// ParseAmount converts a decimal string into the token's smallest unit.
// Amounts with more fractional digits than decimals are rejected rather than rounded.
func ParseAmount(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if !decimalAmountPattern.MatchString(amount) {
		return nil, fmt.Errorf("invalid amount format: %q", amount)
	}

	whole, fraction, _ := strings.Cut(amount, ".")
	fraction = strings.TrimRight(fraction, "0")
	if len(fraction) > decimals {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}
	if whole == "" {
		whole = "0"
	}

	digits := whole + fraction + strings.Repeat("0", decimals-len(fraction))
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", amount)
	}
	return value, nil
}

// FormatAmount renders a smallest-unit amount as a decimal string.
func FormatAmount(amount *big.Int, decimals int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}

	negative := amount.Sign() < 0
	digits := new(big.Int).Abs(amount).String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}

	whole := digits[:len(digits)-decimals]
	fraction := strings.TrimRight(digits[len(digits)-decimals:], "0")
	result := whole
	if fraction != "" {
		result += "." + fraction
	}
	if negative {
		result = "-" + result
	}
	return result
}

// ToBigInt converts the numeric outputs returned by ReadContract into a *big.Int.
func ToBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil numeric value")
		}
		return v, nil
	case uint8:
		return big.NewInt(int64(v)), nil
	case uint16:
		return big.NewInt(int64(v)), nil
	case uint32:
		return big.NewInt(int64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unexpected numeric type: %T", value)
	}
}
