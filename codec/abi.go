package codec

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ToABI converts v into the concrete Go type go-ethereum's packer expects for typ.
// The output types mirror abi.Type.GetType().
func ToABI(v Value, typ abi.Type) (any, error) {
	switch typ.T {
	case abi.StringTy:
		s, ok := v.(String)
		if !ok {
			return nil, mismatch(v, typ)
		}

		return string(s), nil

	case abi.BoolTy:
		b, ok := v.(Bool)
		if !ok {
			return nil, mismatch(v, typ)
		}

		return bool(b), nil

	case abi.AddressTy:
		a, ok := v.(Address)
		if !ok {
			return nil, mismatch(v, typ)
		}

		return common.Address(a), nil

	case abi.UintTy:
		u, ok := v.(Uint)
		if !ok {
			return nil, mismatch(v, typ)
		}

		return bigToNative(u.V.ToBig(), typ)

	case abi.IntTy:
		i, ok := v.(Int)
		if !ok || i.V == nil {
			return nil, mismatch(v, typ)
		}

		return bigToNative(i.V, typ)

	case abi.BytesTy:
		b, ok := v.(Bytes)
		if !ok {
			return nil, mismatch(v, typ)
		}

		return []byte(b), nil

	case abi.FixedBytesTy:
		return fixedBytesToABI(v, typ)

	case abi.SliceTy, abi.ArrayTy:
		return sequenceToABI(v, typ)

	case abi.TupleTy:
		return tupleToABI(v, typ)

	case abi.FunctionTy:
		f, ok := v.(Function)
		if !ok {
			return nil, mismatch(v, typ)
		}

		return [24]byte(f), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typ.String())
}

func mismatch(v Value, typ abi.Type) error {
	kind := "nil"
	if v != nil {
		kind = v.Kind().String()
	}

	return fmt.Errorf("%w: %s value for %s", ErrTypeMismatch, kind, typ.String())
}

// fixedBytesToABI accepts FixedBytes or a Bytes value of exactly the declared size,
// since text for bytesN (N != 32) parses as variable-length bytes.
func fixedBytesToABI(v Value, typ abi.Type) (any, error) {
	var raw []byte

	switch b := v.(type) {
	case FixedBytes:
		raw = b
	case Bytes:
		raw = b
	default:
		return nil, mismatch(v, typ)
	}

	if len(raw) != typ.Size {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrTypeMismatch, typ.Size, len(raw))
	}

	arr := reflect.New(typ.GetType()).Elem()
	reflect.Copy(arr, reflect.ValueOf(raw))

	return arr.Interface(), nil
}

func sequenceToABI(v Value, typ abi.Type) (any, error) {
	var items []Value

	isFixedArray := typ.T == abi.ArrayTy

	switch seq := v.(type) {
	case Array:
		if isFixedArray {
			return nil, mismatch(v, typ)
		}

		items = seq
	case FixedArray:
		if !isFixedArray {
			return nil, mismatch(v, typ)
		}

		items = seq
	default:
		return nil, mismatch(v, typ)
	}

	if isFixedArray && len(items) != typ.Size {
		return nil, fmt.Errorf("%w: expected %d elements, got %d", ErrTypeMismatch, typ.Size, len(items))
	}

	elemType := typ.Elem.GetType()

	var result reflect.Value
	if isFixedArray {
		result = reflect.New(reflect.ArrayOf(typ.Size, elemType)).Elem()
	} else {
		result = reflect.MakeSlice(reflect.SliceOf(elemType), len(items), len(items))
	}

	for i, item := range items {
		converted, err := ToABI(item, *typ.Elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		result.Index(i).Set(reflect.ValueOf(converted))
	}

	return result.Interface(), nil
}

func tupleToABI(v Value, typ abi.Type) (any, error) {
	fields, ok := v.(Tuple)
	if !ok {
		return nil, mismatch(v, typ)
	}

	if len(fields) != len(typ.TupleElems) {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrTypeMismatch, len(typ.TupleElems), len(fields))
	}

	result := reflect.New(typ.GetType()).Elem()

	for i, elemType := range typ.TupleElems {
		converted, err := ToABI(fields[i], *elemType)
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, typ.TupleRawNames[i], err)
		}

		result.Field(i).Set(reflect.ValueOf(converted))
	}

	return result.Interface(), nil
}

// bigToNative narrows num to the native integer type the packer expects for widths
// of 64 bits and below; wider types stay *big.Int.
func bigToNative(num *big.Int, typ abi.Type) (any, error) {
	expectedType := typ.GetType()
	if expectedType == reflect.TypeFor[*big.Int]() {
		return num, nil
	}

	val := reflect.New(expectedType).Elem()

	//nolint:exhaustive // Only integer kinds are produced for numeric ABI types.
	switch val.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !num.IsUint64() || val.OverflowUint(num.Uint64()) {
			return nil, fmt.Errorf("%w: %s does not fit %s", ErrTypeMismatch, num, typ.String())
		}

		val.SetUint(num.Uint64())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !num.IsInt64() || val.OverflowInt(num.Int64()) {
			return nil, fmt.Errorf("%w: %s does not fit %s", ErrTypeMismatch, num, typ.String())
		}

		val.SetInt(num.Int64())
	default:
		return num, nil
	}

	return val.Interface(), nil
}

// FromABI converts a value produced by go-ethereum's unpacker for typ into a Value.
func FromABI(x any, typ abi.Type) (Value, error) {
	switch typ.T {
	case abi.StringTy:
		s, ok := x.(string)
		if !ok {
			return nil, unexpected(x, typ)
		}

		return String(s), nil

	case abi.BoolTy:
		b, ok := x.(bool)
		if !ok {
			return nil, unexpected(x, typ)
		}

		return Bool(b), nil

	case abi.AddressTy:
		a, ok := x.(common.Address)
		if !ok {
			return nil, unexpected(x, typ)
		}

		return Address(a), nil

	case abi.UintTy:
		num, err := nativeToBig(x, typ)
		if err != nil {
			return nil, err
		}

		u, overflow := uint256.FromBig(num)
		if overflow || num.Sign() < 0 {
			return nil, unexpected(x, typ)
		}

		return Uint{Bits: typ.Size, V: *u}, nil

	case abi.IntTy:
		num, err := nativeToBig(x, typ)
		if err != nil {
			return nil, err
		}

		return Int{Bits: typ.Size, V: num}, nil

	case abi.BytesTy:
		b, ok := x.([]byte)
		if !ok {
			return nil, unexpected(x, typ)
		}

		return Bytes(b), nil

	case abi.FixedBytesTy:
		rv := reflect.ValueOf(x)
		if rv.Kind() != reflect.Array || rv.Type().Elem().Kind() != reflect.Uint8 {
			return nil, unexpected(x, typ)
		}

		out := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(out), rv)

		return FixedBytes(out), nil

	case abi.SliceTy, abi.ArrayTy:
		return sequenceFromABI(x, typ)

	case abi.TupleTy:
		return tupleFromABI(x, typ)

	case abi.FunctionTy:
		f, ok := x.([24]byte)
		if !ok {
			return nil, unexpected(x, typ)
		}

		return Function(f), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typ.String())
}

func unexpected(x any, typ abi.Type) error {
	return fmt.Errorf("%w: decoded %T for %s", ErrTypeMismatch, x, typ.String())
}

func nativeToBig(x any, typ abi.Type) (*big.Int, error) {
	if num, ok := x.(*big.Int); ok {
		return new(big.Int).Set(num), nil
	}

	rv := reflect.ValueOf(x)

	//nolint:exhaustive // Only integer kinds are produced for numeric ABI types.
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	}

	return nil, unexpected(x, typ)
}

func sequenceFromABI(x any, typ abi.Type) (Value, error) {
	rv := reflect.ValueOf(x)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, unexpected(x, typ)
	}

	items := make([]Value, rv.Len())

	for i := range items {
		item, err := FromABI(rv.Index(i).Interface(), *typ.Elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		items[i] = item
	}

	if typ.T == abi.ArrayTy {
		return FixedArray(items), nil
	}

	return Array(items), nil
}

func tupleFromABI(x any, typ abi.Type) (Value, error) {
	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct || rv.NumField() != len(typ.TupleElems) {
		return nil, unexpected(x, typ)
	}

	fields := make([]Value, len(typ.TupleElems))

	for i, elemType := range typ.TupleElems {
		field, err := FromABI(rv.Field(i).Interface(), *elemType)
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, typ.TupleRawNames[i], err)
		}

		fields[i] = field
	}

	return Tuple(fields), nil
}
