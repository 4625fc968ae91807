package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const functionPointerDisplay = "[Function Pointer]"

// Format renders v for display. Integers are decimal, addresses and byte strings are
// lowercase 0x-prefixed hex, arrays are "[a, b]" and tuples are "(a, b)".
func Format(v Value) string {
	switch v := v.(type) {
	case String:
		return string(v)
	case Bool:
		return strconv.FormatBool(bool(v))
	case Uint:
		return v.V.Dec()
	case Int:
		if v.V == nil {
			return "0"
		}

		return v.V.String()
	case Address:
		return hexutil.Encode(v[:])
	case FixedBytes:
		return hexutil.Encode(v)
	case Bytes:
		return hexutil.Encode(v)
	case Array:
		return "[" + joinFormatted(v) + "]"
	case FixedArray:
		return "[" + joinFormatted(v) + "]"
	case Tuple:
		return "(" + joinFormatted(v) + ")"
	case Function:
		return functionPointerDisplay
	case nil:
		return ""
	}

	return fmt.Sprint(v)
}

func joinFormatted(values []Value) string {
	parts := make([]string, len(values))
	for i, elem := range values {
		parts[i] = Format(elem)
	}

	return strings.Join(parts, ", ")
}
