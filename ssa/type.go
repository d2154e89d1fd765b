package ssa

import "fmt"

// Type represents the type of an SSA value.
//
// Scalar and vector types are enumerated in the low byte. Aggregate types
// additionally carry the index of their layout in the Builder's aggregate
// table in the upper bits, so a Type is always a self-contained handle.
type Type uint32

const (
	typeInvalid Type = iota

	// TypeI8 represents an integer type with 8 bits.
	TypeI8
	// TypeI16 represents an integer type with 16 bits.
	TypeI16
	// TypeI32 represents an integer type with 32 bits.
	TypeI32
	// TypeI64 represents an integer type with 64 bits.
	TypeI64
	// TypeI128 represents an integer type with 128 bits. Values of this type
	// occupy two registers.
	TypeI128

	// TypeF32 represents 32-bit floats in the IEEE 754.
	TypeF32
	// TypeF64 represents 64-bit floats in the IEEE 754.
	TypeF64

	// TypePtr represents a pointer: a target-width (64-bit) integer carrying
	// pointer provenance.
	TypePtr

	// 64-bit vectors.

	TypeI8x8
	TypeI16x4
	TypeI32x2
	TypeF32x2

	// 128-bit vectors.

	TypeI8x16
	TypeI16x8
	TypeI32x4
	TypeI64x2
	TypeF32x4
	TypeF64x2

	// typeAggregate marks a Type whose layout lives in the Builder's
	// aggregate table; the table index is stored at typeAggregateIndexShift.
	typeAggregate
)

const typeAggregateIndexShift = 8

// AggregateType returns the Type handle for the aggregate with the given
// table index.
func AggregateType(index int) Type {
	return typeAggregate | Type(index)<<typeAggregateIndexShift
}

func (t Type) kind() Type { return t & 0xff }

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t.kind() {
	case typeInvalid:
		return "invalid"
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeI128:
		return "i128"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypePtr:
		return "ptr"
	case TypeI8x8:
		return "i8x8"
	case TypeI16x4:
		return "i16x4"
	case TypeI32x2:
		return "i32x2"
	case TypeF32x2:
		return "f32x2"
	case TypeI8x16:
		return "i8x16"
	case TypeI16x8:
		return "i16x8"
	case TypeI32x4:
		return "i32x4"
	case TypeI64x2:
		return "i64x2"
	case TypeF32x4:
		return "f32x4"
	case TypeF64x2:
		return "f64x2"
	case typeAggregate:
		return fmt.Sprintf("agg%d", t.AggregateIndex())
	default:
		panic(int(t))
	}
}

// IsInt returns true if the type is a scalar integer type (pointers
// included).
func (t Type) IsInt() bool {
	switch t.kind() {
	case TypeI8, TypeI16, TypeI32, TypeI64, TypeI128, TypePtr:
		return true
	}
	return false
}

// IsFloat returns true if the type is a scalar floating-point type.
func (t Type) IsFloat() bool {
	k := t.kind()
	return k == TypeF32 || k == TypeF64
}

// IsVector returns true if the type is a vector type.
func (t Type) IsVector() bool {
	switch t.kind() {
	case TypeI8x8, TypeI16x4, TypeI32x2, TypeF32x2,
		TypeI8x16, TypeI16x8, TypeI32x4, TypeI64x2, TypeF32x4, TypeF64x2:
		return true
	}
	return false
}

// IsAggregate returns true if the type refers to an aggregate layout.
func (t Type) IsAggregate() bool {
	return t.kind() == typeAggregate
}

// AggregateIndex returns the index into the Builder's aggregate table.
func (t Type) AggregateIndex() int {
	if !t.IsAggregate() {
		panic("BUG: AggregateIndex on non-aggregate " + t.String())
	}
	return int(t >> typeAggregateIndexShift)
}

// Bits returns the number of bits required to represent the type.
// Aggregates have no fixed bit width; query the Builder for their layout.
func (t Type) Bits() byte {
	switch t.kind() {
	case TypeI8:
		return 8
	case TypeI16:
		return 16
	case TypeI32, TypeF32:
		return 32
	case TypeI64, TypeF64, TypePtr:
		return 64
	case TypeI128:
		return 128
	case TypeI8x8, TypeI16x4, TypeI32x2, TypeF32x2:
		return 64
	case TypeI8x16, TypeI16x8, TypeI32x4, TypeI64x2, TypeF32x4, TypeF64x2:
		return 128
	default:
		panic(int(t))
	}
}

// Size returns the number of bytes required to represent the type.
func (t Type) Size() byte {
	return t.Bits() / 8
}

// LaneType returns the element type of a vector type.
func (t Type) LaneType() Type {
	switch t.kind() {
	case TypeI8x8, TypeI8x16:
		return TypeI8
	case TypeI16x4, TypeI16x8:
		return TypeI16
	case TypeI32x2, TypeI32x4:
		return TypeI32
	case TypeI64x2:
		return TypeI64
	case TypeF32x2, TypeF32x4:
		return TypeF32
	case TypeF64x2:
		return TypeF64
	default:
		panic("BUG: LaneType on non-vector " + t.String())
	}
}

// LaneCount returns the number of lanes of a vector type.
func (t Type) LaneCount() byte {
	return t.Bits() / t.LaneType().Bits()
}

func (t Type) invalid() bool {
	return t.kind() == typeInvalid
}
