package ssa

import (
	"fmt"
	"math"
)

// Value represents an SSA value with its type information packed in the
// higher 32 bits. Every Value is defined exactly once: either as an
// instruction result or as a block parameter.
type Value uint64

// ValueID is the lower 32 bits of Value: the pure identifier of the Value
// without type info. IDs are dense, allocated per function, and never
// reused within a function.
type ValueID uint32

const (
	valueIDInvalid ValueID = math.MaxUint32
	ValueInvalid   Value   = Value(valueIDInvalid)
)

// String implements fmt.Stringer.
func (v Value) String() string {
	return fmt.Sprintf("v%d", v.ID())
}

func (v Value) formatWithType() string {
	return fmt.Sprintf("v%d:%s", v.ID(), v.Type())
}

// Valid returns true if this value is valid.
func (v Value) Valid() bool {
	return v.ID() != valueIDInvalid
}

// Type returns the Type of this value.
func (v Value) Type() Type {
	return Type(v >> 32)
}

// ID returns the ValueID of this value.
func (v Value) ID() ValueID {
	return ValueID(v)
}

// ValueFromID reconstructs an untyped Value handle from its ID.
// ValueFromID(v.ID()).ID() == v.ID() over the whole domain.
func ValueFromID(id ValueID) Value {
	return Value(id)
}

// setType sets a type to this Value and returns the updated Value.
func (v Value) setType(typ Type) Value {
	return v | Value(typ)<<32
}
