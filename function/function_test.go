package function

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/zama-ai/evm-benchmarking/codec"
)

const tokenABI = `[
	{"type":"constructor","inputs":[{"name":"supply","type":"uint256"}]},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"ok","type":"bool"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable",
	 "inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"mint","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"info","stateMutability":"pure","inputs":[],
	 "outputs":[{"name":"name","type":"string"},{"name":"","type":"bytes32"}]}
]`

const recipient = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

func TestResolve(t *testing.T) {
	desc, err := Resolve([]byte(tokenABI), "transfer")
	require.NoError(t, err)
	require.Equal(t, "transfer", desc.Name)
	require.Equal(t, []Param{{Name: "to", Type: "address"}, {Name: "amount", Type: "uint256"}}, desc.Inputs)
	require.Equal(t, []Param{{Name: "ok", Type: "bool"}}, desc.Outputs)
	require.Equal(t, "transfer(address,uint256)", desc.Signature())
	require.Equal(t, [4]byte{0xa9, 0x05, 0x9c, 0xbb}, desc.Selector())
	require.Equal(t, 1, desc.Overloads)
	require.False(t, desc.ReadOnly())
	require.Equal(t, "transfer(address,uint256) returns (bool)", desc.String())

	view, err := Resolve([]byte(tokenABI), "balanceOf")
	require.NoError(t, err)
	require.True(t, view.ReadOnly())
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve([]byte(tokenABI), "burn")
	require.ErrorIs(t, err, ErrFunctionNotFound)

	// Events and constructors are never functions, even when names collide.
	_, err = Resolve([]byte(tokenABI), "Transfer")
	require.ErrorIs(t, err, ErrFunctionNotFound)

	_, err = Resolve([]byte(`{"abi":[]}`), "transfer")
	require.ErrorIs(t, err, ErrInvalidABI)
}

func TestResolveOverloads(t *testing.T) {
	desc, err := Resolve([]byte(tokenABI), "mint")
	require.NoError(t, err)
	require.Equal(t, 2, desc.Overloads)
	require.Equal(t, "mint(uint256)", desc.Signature())

	_, err = Resolve([]byte(tokenABI), "mint", WithStrictOverloads())
	require.ErrorIs(t, err, ErrFunctionAmbiguous)

	desc, err = Resolve([]byte(tokenABI), "transfer", WithStrictOverloads())
	require.NoError(t, err)
	require.Equal(t, 1, desc.Overloads)
}

func TestNames(t *testing.T) {
	names, err := Names([]byte(tokenABI))
	require.NoError(t, err)
	require.Equal(t, []string{"balanceOf", "transfer", "mint", "mint", "info"}, names)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "blank", input: "   ", want: nil},
		{name: "single", input: "42", want: []string{"42"}},
		{name: "trimmed", input: " 0xabc , 7 ,true", want: []string{"0xabc", "7", "true"}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.want, SplitArgs(testCase.input))
		})
	}
}

func TestParseArgs(t *testing.T) {
	desc, err := Resolve([]byte(tokenABI), "transfer")
	require.NoError(t, err)

	values, err := desc.ParseArgs([]string{recipient, "1000"})
	require.NoError(t, err)
	require.Equal(t, codec.Address(common.HexToAddress(recipient)), values[0])
	require.Equal(t, codec.NewUint(1000), values[1])

	_, err = desc.ParseArgs([]string{recipient})
	require.ErrorIs(t, err, ErrArgCount)

	_, err = desc.ParseArgs([]string{"0x1234", "1000"})

	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	require.Equal(t, 0, argErr.Index)
	require.Equal(t, "to", argErr.Name)
	require.ErrorIs(t, err, codec.ErrFormat)
}

func TestEncodeCall(t *testing.T) {
	desc, err := Resolve([]byte(tokenABI), "transfer")
	require.NoError(t, err)

	values, err := desc.ParseArgs([]string{recipient, "1"})
	require.NoError(t, err)

	data, err := desc.EncodeCall(values)
	require.NoError(t, err)

	want := "a9059cbb" +
		"000000000000000000000000" + strings.ToLower(recipient[2:]) +
		"0000000000000000000000000000000000000000000000000000000000000001"
	require.Equal(t, want, hex.EncodeToString(data))

	_, err = desc.EncodeCall(values[:1])
	require.ErrorIs(t, err, ErrArgCount)

	_, err = desc.EncodeCall([]codec.Value{codec.Bool(true), codec.NewUint(1)})
	require.ErrorIs(t, err, codec.ErrTypeMismatch)
}

func TestDecodeOutput(t *testing.T) {
	desc, err := Resolve([]byte(tokenABI), "balanceOf")
	require.NoError(t, err)

	raw, err := hex.DecodeString("00000000000000000000000000000000000000000000000000000000000003e8")
	require.NoError(t, err)

	values, err := desc.DecodeOutput(raw)
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, "1000", codec.Format(values[0]))

	_, err = desc.DecodeOutput([]byte{0x01})
	require.Error(t, err)

	mint, err := Resolve([]byte(tokenABI), "mint")
	require.NoError(t, err)

	values, err = mint.DecodeOutput(nil)
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestFromSignature(t *testing.T) {
	desc, err := FromSignature("transfer(address,uint256)")
	require.NoError(t, err)
	require.Equal(t, "transfer", desc.Name)
	require.Len(t, desc.Inputs, 2)
	require.Equal(t, "address", desc.Inputs[0].Type)
	require.Equal(t, "uint256", desc.Inputs[1].Type)
	require.Empty(t, desc.Outputs)
	require.Equal(t, [4]byte{0xa9, 0x05, 0x9c, 0xbb}, desc.Selector())

	_, err = FromSignature("transfer(address")
	require.ErrorIs(t, err, ErrInvalidABI)
}
