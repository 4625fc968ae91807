package codec

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	defaultBits = 256
	// Integers are parsed through a 128-bit intermediate; larger magnitudes are refused
	// even when the declared width could hold them.
	parseCeilingBits = 128
	bytes32Len       = 32
)

var (
	//nolint:gochecknoglobals // Derived constants for the signed parse ceiling.
	int128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), parseCeilingBits-1), big.NewInt(1))
	//nolint:gochecknoglobals // Derived constants for the signed parse ceiling.
	int128Min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), parseCeilingBits-1))
)

// Parse converts raw text into a Value of the category named by typ.
//
// The tag is matched by substring in a fixed precedence: string, bytes32, bytes, uint,
// int, bool, address. A tag like "uint256[]" therefore parses as a scalar uint; array
// and tuple values are never produced from text.
func Parse(raw, typ string) (Value, error) {
	input := strings.TrimSpace(raw)

	switch {
	case strings.Contains(typ, "string"):
		return String(input), nil
	case strings.Contains(typ, "bytes32"):
		return parseBytes32(input, typ)
	case strings.Contains(typ, "bytes"):
		return parseBytes(input, typ)
	case strings.Contains(typ, "uint"):
		return parseUint(input, typ)
	case strings.Contains(typ, "int"):
		return parseInt(input, typ)
	case strings.Contains(typ, "bool"):
		return parseBool(input), nil
	case strings.Contains(typ, "address"):
		return parseAddress(input, typ)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, typ)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}

	return s
}

func parseBytes32(input, typ string) (Value, error) {
	b, err := hex.DecodeString(trimHexPrefix(input))
	if err != nil {
		return nil, formatErr(typ, input, "not a hex string", err)
	}

	if len(b) != bytes32Len {
		return nil, formatErr(typ, input, fmt.Sprintf("expected %d bytes, got %d", bytes32Len, len(b)), nil)
	}

	return FixedBytes(b), nil
}

func parseBytes(input, typ string) (Value, error) {
	b, err := hex.DecodeString(trimHexPrefix(input))
	if err != nil {
		return nil, formatErr(typ, input, "not an even-length hex string", err)
	}

	return Bytes(b), nil
}

// bitWidth extracts the numeric suffix following prefix in typ, e.g. 64 for "uint64[]".
func bitWidth(typ, prefix string) (int, error) {
	idx := strings.Index(typ, prefix)
	if idx < 0 {
		return defaultBits, nil
	}

	rest := typ[idx+len(prefix):]
	end := 0

	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}

	if end == 0 {
		return defaultBits, nil
	}

	bits, err := strconv.Atoi(rest[:end])
	if err != nil || bits == 0 || bits > defaultBits || bits%8 != 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, typ)
	}

	return bits, nil
}

func parseUint(input, typ string) (Value, error) {
	bits, err := bitWidth(typ, "uint")
	if err != nil {
		return nil, err
	}

	if input == "" || strings.HasPrefix(input, "-") {
		return nil, formatErr(typ, input, "not an unsigned decimal integer", nil)
	}

	v, err := uint256.FromDecimal(input)
	if err != nil {
		return nil, formatErr(typ, input, "not an unsigned decimal integer", err)
	}

	if v.BitLen() > parseCeilingBits {
		return nil, formatErr(typ, input, "exceeds the 128-bit parse limit", nil)
	}

	if v.BitLen() > bits {
		return nil, formatErr(typ, input, fmt.Sprintf("does not fit in %d bits", bits), nil)
	}

	return Uint{Bits: bits, V: *v}, nil
}

func parseInt(input, typ string) (Value, error) {
	bits, err := bitWidth(typ, "int")
	if err != nil {
		return nil, err
	}

	v, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, formatErr(typ, input, "not a decimal integer", nil)
	}

	if v.Cmp(int128Min) < 0 || v.Cmp(int128Max) > 0 {
		return nil, formatErr(typ, input, "exceeds the 128-bit parse limit", nil)
	}

	if bits < parseCeilingBits {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1)) //nolint:gosec // bits is in [8, 120].
		minimum := new(big.Int).Neg(limit)

		if v.Cmp(minimum) < 0 || v.Cmp(limit) >= 0 {
			return nil, formatErr(typ, input, fmt.Sprintf("does not fit in %d bits", bits), nil)
		}
	}

	return Int{Bits: bits, V: v}, nil
}

func parseBool(input string) Value {
	switch strings.ToLower(input) {
	case "true", "1", "yes":
		return Bool(true)
	default:
		return Bool(false)
	}
}

func parseAddress(input, typ string) (Value, error) {
	if !common.IsHexAddress(input) {
		return nil, formatErr(typ, input, "not a 20-byte hex address", nil)
	}

	return Address(common.HexToAddress(input)), nil
}
