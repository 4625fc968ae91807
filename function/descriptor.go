// Package function resolves a contract function by name from its ABI and encodes and
// decodes calls to it through the codec package.
package function

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/zama-ai/evm-benchmarking/codec"
)

// Param is one positional input or output: its name (possibly empty) and ABI type tag.
type Param struct {
	Name string
	Type string
}

// Descriptor is the resolved signature of one contract function.
type Descriptor struct {
	Name            string
	Inputs          []Param
	Outputs         []Param
	StateMutability string
	// Overloads counts the function entries sharing Name in the source ABI.
	Overloads int

	method abi.Method
}

func newDescriptor(method abi.Method, overloads int) *Descriptor {
	return &Descriptor{
		Name:            method.RawName,
		Inputs:          params(method.Inputs),
		Outputs:         params(method.Outputs),
		StateMutability: method.StateMutability,
		Overloads:       overloads,
		method:          method,
	}
}

func params(args abi.Arguments) []Param {
	out := make([]Param, len(args))
	for i, arg := range args {
		out[i] = Param{Name: arg.Name, Type: arg.Type.String()}
	}

	return out
}

// Selector returns the 4-byte function selector.
func (d *Descriptor) Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], d.method.ID)

	return sel
}

// Signature returns the canonical signature, e.g. "transfer(address,uint256)".
func (d *Descriptor) Signature() string {
	return d.method.Sig
}

// ReadOnly reports whether the function is declared view or pure.
func (d *Descriptor) ReadOnly() bool {
	return d.method.IsConstant()
}

func (d *Descriptor) String() string {
	outs := make([]string, len(d.Outputs))
	for i, out := range d.Outputs {
		outs[i] = out.Type
	}

	if len(outs) == 0 {
		return d.Signature()
	}

	return fmt.Sprintf("%s returns (%s)", d.Signature(), strings.Join(outs, ","))
}

// ParseArgs parses one raw string per input position.
func (d *Descriptor) ParseArgs(raw []string) ([]codec.Value, error) {
	if len(raw) != len(d.Inputs) {
		return nil, fmt.Errorf("%w: %s got %d, want %d", ErrArgCount, d.Name, len(raw), len(d.Inputs))
	}

	values := make([]codec.Value, len(raw))

	for i, input := range d.Inputs {
		value, err := codec.Parse(raw[i], input.Type)
		if err != nil {
			return nil, &ArgumentError{Function: d.Name, Index: i, Name: input.Name, Err: err}
		}

		values[i] = value
	}

	return values, nil
}

// EncodeCall returns the selector followed by the ABI-encoded argument tuple.
func (d *Descriptor) EncodeCall(args []codec.Value) ([]byte, error) {
	if len(args) != len(d.method.Inputs) {
		return nil, fmt.Errorf("%w: %s got %d, want %d", ErrArgCount, d.Name, len(args), len(d.method.Inputs))
	}

	converted := make([]any, len(args))

	for i, input := range d.method.Inputs {
		value, err := codec.ToABI(args[i], input.Type)
		if err != nil {
			return nil, &ArgumentError{Function: d.Name, Index: i, Name: input.Name, Err: err}
		}

		converted[i] = value
	}

	packed, err := d.method.Inputs.Pack(converted...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack call data for %s: %w", d.Name, err)
	}

	data := make([]byte, 0, len(d.method.ID)+len(packed))
	data = append(data, d.method.ID...)

	return append(data, packed...), nil
}

// DecodeOutput decodes the raw return data of a call into one value per output.
func (d *Descriptor) DecodeOutput(data []byte) ([]codec.Value, error) {
	results, err := d.method.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack result of %s: %w", d.Name, err)
	}

	values := make([]codec.Value, 0, len(results))

	for i, output := range d.method.Outputs {
		if i >= len(results) {
			break
		}

		value, err := codec.FromABI(results[i], output.Type)
		if err != nil {
			return nil, fmt.Errorf("output %d of %s: %w", i, d.Name, err)
		}

		values = append(values, value)
	}

	return values, nil
}
