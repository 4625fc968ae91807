package codec

import (
	"errors"
	"math/big"
	"reflect"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const testAddress = "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826"

func TestParseScalars(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		typ     string
		want    Value
		display string
	}{
		{name: "string", raw: " hello ", typ: "string", want: String("hello"), display: "hello"},
		{name: "uint256", raw: "123", typ: "uint256", want: NewUint(123), display: "123"},
		{name: "uint8", raw: "255", typ: "uint8", want: Uint{Bits: 8, V: *uint256.NewInt(255)}, display: "255"},
		{name: "bareUint", raw: "7", typ: "uint", want: NewUint(7), display: "7"},
		{name: "boolTrue", raw: "true", typ: "bool", want: Bool(true), display: "true"},
		{name: "boolUpper", raw: "TRUE", typ: "bool", want: Bool(true), display: "true"},
		{name: "boolOne", raw: "1", typ: "bool", want: Bool(true), display: "true"},
		{name: "boolYes", raw: "Yes", typ: "bool", want: Bool(true), display: "true"},
		{name: "boolNo", raw: "no", typ: "bool", want: Bool(false), display: "false"},
		{name: "boolGarbage", raw: "maybe", typ: "bool", want: Bool(false), display: "false"},
		{name: "bytesPrefixed", raw: "0xabcd", typ: "bytes", want: Bytes{0xab, 0xcd}, display: "0xabcd"},
		{name: "bytesBare", raw: "abcd", typ: "bytes", want: Bytes{0xab, 0xcd}, display: "0xabcd"},
		{name: "bytesEmpty", raw: "0x", typ: "bytes", want: Bytes{}, display: "0x"},
		{
			name:    "address",
			raw:     testAddress,
			typ:     "address",
			want:    Address(common.HexToAddress(testAddress)),
			display: strings.ToLower(testAddress),
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := Parse(testCase.raw, testCase.typ)
			require.NoError(t, err)
			require.Equal(t, testCase.want, got)
			require.Equal(t, testCase.display, Format(got))
		})
	}
}

func TestParseSignedIntegers(t *testing.T) {
	got, err := Parse("-42", "int256")
	require.NoError(t, err)

	value, ok := got.(Int)
	require.True(t, ok)
	require.Equal(t, 256, value.Bits)
	require.Equal(t, 0, value.V.Cmp(big.NewInt(-42)))
	require.Equal(t, "-42", Format(got))

	got, err = Parse("-128", "int8")
	require.NoError(t, err)
	require.Equal(t, 8, got.(Int).Bits) //nolint:forcetypeassert // Asserted by Parse contract.

	_, err = Parse("128", "int8")
	require.ErrorIs(t, err, ErrFormat)

	_, err = Parse("1.5", "int64")
	require.ErrorIs(t, err, ErrFormat)
}

func TestParseBytes32(t *testing.T) {
	full := "0x" + strings.Repeat("ab", 32)

	got, err := Parse(full, "bytes32")
	require.NoError(t, err)
	require.Equal(t, KindFixedBytes, got.Kind())
	require.Len(t, got, 32)
	require.Equal(t, full, Format(got))

	got, err = Parse(strings.Repeat("01", 32), "bytes32")
	require.NoError(t, err)
	require.Len(t, got, 32)

	for _, raw := range []string{
		"0x" + strings.Repeat("ab", 31),
		"0x" + strings.Repeat("ab", 33),
		"0x" + strings.Repeat("zz", 32),
	} {
		_, err = Parse(raw, "bytes32")

		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
		require.Equal(t, "bytes32", formatErr.Type)
	}
}

func TestParseExplicitPlusSign(t *testing.T) {
	got, err := Parse("+7", "uint256")
	require.NoError(t, err)
	require.Equal(t, "7", Format(got))

	got, err = Parse("+7", "int256")
	require.NoError(t, err)
	require.Equal(t, "7", Format(got))

	_, err = Parse("+-7", "uint256")
	require.ErrorIs(t, err, ErrFormat)
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		typ  string
		want error
	}{
		{name: "bytesOddLength", raw: "0xabc", typ: "bytes", want: ErrFormat},
		{name: "bytesNotHex", raw: "0xgg", typ: "bytes", want: ErrFormat},
		{name: "uintNegative", raw: "-1", typ: "uint256", want: ErrFormat},
		{name: "uintEmpty", raw: "", typ: "uint256", want: ErrFormat},
		{name: "uintHex", raw: "0x10", typ: "uint256", want: ErrFormat},
		{name: "uintTooWide", raw: "256", typ: "uint8", want: ErrFormat},
		{name: "addressShort", raw: testAddress[:len(testAddress)-1], typ: "address", want: ErrFormat},
		{name: "addressGarbage", raw: "not-an-address", typ: "address", want: ErrFormat},
		{name: "unknownTag", raw: "1", typ: "fixed128x18", want: ErrUnsupportedType},
		{name: "badWidth", raw: "1", typ: "uint7", want: ErrUnsupportedType},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := Parse(testCase.raw, testCase.typ)
			require.ErrorIs(t, err, testCase.want)
		})
	}
}

func TestParseIntegerCeiling(t *testing.T) {
	maxUint128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	got, err := Parse(maxUint128.String(), "uint256")
	require.NoError(t, err)
	require.Equal(t, maxUint128.String(), Format(got))

	overCeiling := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err = Parse(overCeiling.String(), "uint256")
	require.ErrorIs(t, err, ErrFormat)

	_, err = Parse(int128Max.String(), "int256")
	require.NoError(t, err)

	_, err = Parse(new(big.Int).Add(int128Max, big.NewInt(1)).String(), "int256")
	require.ErrorIs(t, err, ErrFormat)

	_, err = Parse(int128Min.String(), "int256")
	require.NoError(t, err)
}

func TestParsePrecedence(t *testing.T) {
	// "bytes32[]" still contains "bytes32"; "uint256[]" parses as a scalar uint.
	got, err := Parse(strings.Repeat("00", 32), "bytes32[]")
	require.NoError(t, err)
	require.Equal(t, KindFixedBytes, got.Kind())

	got, err = Parse("5", "uint256[]")
	require.NoError(t, err)
	require.Equal(t, KindUint, got.Kind())

	// "string" wins over everything, even for numeric-looking text.
	got, err = Parse("12", "string")
	require.NoError(t, err)
	require.Equal(t, String("12"), got)
}

func TestFormatComposites(t *testing.T) {
	value := Tuple{
		NewUint(1),
		Array{Bool(true), Bool(false)},
		FixedArray{String("a"), String("b")},
		Function{},
	}

	require.Equal(t, "(1, [true, false], [a, b], [Function Pointer])", Format(value))
	require.Equal(t, "[]", Format(Array{}))
	require.Equal(t, "()", Format(Tuple{}))
	require.Empty(t, Format(nil))
}

func TestFormatDefinedForEveryParsedValue(t *testing.T) {
	inputs := [][2]string{
		{"x", "string"},
		{"1", "uint64"},
		{"-1", "int16"},
		{"no", "bool"},
		{testAddress, "address"},
		{"0x00", "bytes"},
		{"0x" + strings.Repeat("11", 32), "bytes32"},
	}

	for _, input := range inputs {
		value, err := Parse(input[0], input[1])
		require.NoError(t, err)
		require.NotEmpty(t, Format(value), input[1])
	}
}

func TestFormatErrorMessage(t *testing.T) {
	_, err := Parse("zz", "bytes")

	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	require.Contains(t, err.Error(), `invalid bytes value "zz"`)
	require.NotNil(t, errors.Unwrap(err))
}

func mustType(t *testing.T, typ string, components []abi.ArgumentMarshaling) abi.Type {
	t.Helper()

	parsed, err := abi.NewType(typ, "", components)
	require.NoError(t, err)

	return parsed
}

func TestToABIScalars(t *testing.T) {
	out, err := ToABI(NewUint(5), mustType(t, "uint256", nil))
	require.NoError(t, err)
	require.Equal(t, 0, out.(*big.Int).Cmp(big.NewInt(5))) //nolint:forcetypeassert // Test expectation.

	out, err = ToABI(Uint{Bits: 256, V: *uint256.NewInt(5)}, mustType(t, "uint8", nil))
	require.NoError(t, err)
	require.Equal(t, uint8(5), out)

	_, err = ToABI(Uint{Bits: 256, V: *uint256.NewInt(300)}, mustType(t, "uint8", nil))
	require.ErrorIs(t, err, ErrTypeMismatch)

	out, err = ToABI(NewInt(-2), mustType(t, "int32", nil))
	require.NoError(t, err)
	require.Equal(t, int32(-2), out)

	out, err = ToABI(Address(common.HexToAddress(testAddress)), mustType(t, "address", nil))
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testAddress), out)

	_, err = ToABI(String("x"), mustType(t, "address", nil))
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = ToABI(NewInt(1), mustType(t, "uint256", nil))
	require.ErrorIs(t, err, ErrTypeMismatch)

	out, err = ToABI(Bytes{1, 2, 3, 4}, mustType(t, "bytes4", nil))
	require.NoError(t, err)
	require.Equal(t, [4]byte{1, 2, 3, 4}, out)

	_, err = ToABI(Bytes{1, 2}, mustType(t, "bytes4", nil))
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestToABIComposites(t *testing.T) {
	out, err := ToABI(Array{NewUint(1), NewUint(2)}, mustType(t, "uint64[]", nil))
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, out)

	out, err = ToABI(FixedArray{Bool(true), Bool(false)}, mustType(t, "bool[2]", nil))
	require.NoError(t, err)
	require.Equal(t, [2]bool{true, false}, out)

	_, err = ToABI(FixedArray{Bool(true)}, mustType(t, "bool[2]", nil))
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = ToABI(Array{Bool(true), Bool(true)}, mustType(t, "bool[2]", nil))
	require.ErrorIs(t, err, ErrTypeMismatch)

	tupleType := mustType(t, "tuple", []abi.ArgumentMarshaling{
		{Name: "amount", Type: "uint256"},
		{Name: "label", Type: "string"},
	})

	out, err = ToABI(Tuple{NewUint(9), String("nine")}, tupleType)
	require.NoError(t, err)
	require.Equal(t, tupleType.GetType(), reflect.TypeOf(out))

	_, err = ToABI(Tuple{NewUint(9)}, tupleType)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestABIRoundTripThroughPacker(t *testing.T) {
	tupleType := mustType(t, "tuple", []abi.ArgumentMarshaling{
		{Name: "owner", Type: "address"},
		{Name: "amounts", Type: "uint256[]"},
		{Name: "tag", Type: "bytes32"},
	})
	args := abi.Arguments{{Name: "order", Type: tupleType}, {Name: "ok", Type: mustType(t, "bool", nil)}}

	value := Tuple{
		Address(common.HexToAddress(testAddress)),
		Array{NewUint(1), NewUint(1_000_000)},
		FixedBytes(make([]byte, 32)),
	}

	packedTuple, err := ToABI(value, tupleType)
	require.NoError(t, err)

	data, err := args.Pack(packedTuple, true)
	require.NoError(t, err)

	unpacked, err := args.Unpack(data)
	require.NoError(t, err)
	require.Len(t, unpacked, 2)

	decoded, err := FromABI(unpacked[0], tupleType)
	require.NoError(t, err)
	require.Equal(t, "("+strings.ToLower(testAddress)+", [1, 1000000], 0x"+strings.Repeat("00", 32)+")", Format(decoded))

	flag, err := FromABI(unpacked[1], args[1].Type)
	require.NoError(t, err)
	require.Equal(t, Bool(true), flag)
}

func TestFromABIIntegers(t *testing.T) {
	value, err := FromABI(uint8(200), mustType(t, "uint8", nil))
	require.NoError(t, err)
	require.Equal(t, Uint{Bits: 8, V: *uint256.NewInt(200)}, value)

	value, err = FromABI(int64(-7), mustType(t, "int64", nil))
	require.NoError(t, err)
	require.Equal(t, "-7", Format(value))

	value, err = FromABI(big.NewInt(77), mustType(t, "uint256", nil))
	require.NoError(t, err)
	require.Equal(t, "77", Format(value))

	_, err = FromABI("nope", mustType(t, "uint256", nil))
	require.ErrorIs(t, err, ErrTypeMismatch)
}
