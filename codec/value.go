// Package codec converts human-entered text into typed ABI wire values and back into
// display strings. The ABI type of every argument is only known at runtime, so values
// are modelled as a closed set of variants rather than Go types fixed at compile time.
package codec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Kind identifies the wire category of a Value.
type Kind int

// Wire categories.
const (
	KindString Kind = iota
	KindBool
	KindUint
	KindInt
	KindAddress
	KindFixedBytes
	KindBytes
	KindArray
	KindFixedArray
	KindTuple
	KindFunction
)

var kindNames = [...]string{ //nolint:gochecknoglobals // Read-only lookup table.
	KindString:     "string",
	KindBool:       "bool",
	KindUint:       "uint",
	KindInt:        "int",
	KindAddress:    "address",
	KindFixedBytes: "fixed bytes",
	KindBytes:      "bytes",
	KindArray:      "array",
	KindFixedArray: "fixed array",
	KindTuple:      "tuple",
	KindFunction:   "function",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}

	return kindNames[k]
}

// Value is a typed wire value. The interface is sealed: only the variants declared in
// this file implement it, so a switch over them is exhaustive.
type Value interface {
	isValue()

	// Kind reports the wire category of the value.
	Kind() Kind
}

// String is a UTF-8 string value.
type String string

// Bool is a boolean value.
type Bool bool

// Uint is an unsigned integer of the given bit width.
type Uint struct {
	Bits int
	V    uint256.Int
}

// Int is a two's complement signed integer of the given bit width.
type Int struct {
	Bits int
	V    *big.Int
}

// Address is a 20-byte account address.
type Address common.Address

// FixedBytes is a bytesN value; its length is N.
type FixedBytes []byte

// Bytes is a variable-length byte string.
type Bytes []byte

// Array is a dynamically sized T[] value.
type Array []Value

// FixedArray is a statically sized T[N] value.
type FixedArray []Value

// Tuple is an ordered set of heterogeneous values.
type Tuple []Value

// Function is an external function pointer: 20-byte address followed by a 4-byte selector.
type Function [24]byte

func (String) isValue()     {}
func (Bool) isValue()       {}
func (Uint) isValue()       {}
func (Int) isValue()        {}
func (Address) isValue()    {}
func (FixedBytes) isValue() {}
func (Bytes) isValue()      {}
func (Array) isValue()      {}
func (FixedArray) isValue() {}
func (Tuple) isValue()      {}
func (Function) isValue()   {}

// Kind implements Value.
func (String) Kind() Kind { return KindString }

// Kind implements Value.
func (Bool) Kind() Kind { return KindBool }

// Kind implements Value.
func (Uint) Kind() Kind { return KindUint }

// Kind implements Value.
func (Int) Kind() Kind { return KindInt }

// Kind implements Value.
func (Address) Kind() Kind { return KindAddress }

// Kind implements Value.
func (FixedBytes) Kind() Kind { return KindFixedBytes }

// Kind implements Value.
func (Bytes) Kind() Kind { return KindBytes }

// Kind implements Value.
func (Array) Kind() Kind { return KindArray }

// Kind implements Value.
func (FixedArray) Kind() Kind { return KindFixedArray }

// Kind implements Value.
func (Tuple) Kind() Kind { return KindTuple }

// Kind implements Value.
func (Function) Kind() Kind { return KindFunction }

// NewUint returns a 256-bit unsigned value.
func NewUint(v uint64) Uint {
	return Uint{Bits: 256, V: *uint256.NewInt(v)}
}

// NewInt returns a 256-bit signed value.
func NewInt(v int64) Int {
	return Int{Bits: 256, V: big.NewInt(v)}
}
