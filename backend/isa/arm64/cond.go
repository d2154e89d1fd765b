package arm64

import (
	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/ssa"
)

// condFlag represents a condition code in the NZCV flags, in its encoding
// order.
//
// See https://developer.arm.com/documentation/ddi0596/2020-12/Index-by-Encoding/Data-Processing----Register?lang=en
type condFlag uint8

const (
	eq condFlag = iota // Equal
	ne                 // Not equal
	hs                 // Unsigned higher or same (or carry set)
	lo                 // Unsigned lower (or carry clear)
	mi                 // Negative
	pl                 // Positive or zero
	vs                 // Signed overflow
	vc                 // No signed overflow
	hi                 // Unsigned higher
	ls                 // Unsigned lower or same
	ge                 // Signed greater or equal
	lt                 // Signed less than
	gt                 // Signed greater than
	le                 // Signed less or equal
	al                 // Always executed
	nv                 // Always executed (yes, same as al)
)

// invert returns the inverted condition.
func (c condFlag) invert() condFlag {
	switch c {
	case eq:
		return ne
	case ne:
		return eq
	case hs:
		return lo
	case lo:
		return hs
	case mi:
		return pl
	case pl:
		return mi
	case vs:
		return vc
	case vc:
		return vs
	case hi:
		return ls
	case ls:
		return hi
	case ge:
		return lt
	case lt:
		return ge
	case gt:
		return le
	case le:
		return gt
	case al:
		return nv
	case nv:
		return al
	default:
		panic(c)
	}
}

// String implements fmt.Stringer.
func (c condFlag) String() string {
	switch c {
	case eq:
		return "eq"
	case ne:
		return "ne"
	case hs:
		return "hs"
	case lo:
		return "lo"
	case mi:
		return "mi"
	case pl:
		return "pl"
	case vs:
		return "vs"
	case vc:
		return "vc"
	case hi:
		return "hi"
	case ls:
		return "ls"
	case ge:
		return "ge"
	case lt:
		return "lt"
	case gt:
		return "gt"
	case le:
		return "le"
	case al:
		return "al"
	case nv:
		return "nv"
	default:
		panic(c)
	}
}

// condFlagFromSSAIntegerCmpCond returns the condition flag for the given
// ssa.IntegerCmpCond.
func condFlagFromSSAIntegerCmpCond(c ssa.IntegerCmpCond) condFlag {
	switch c {
	case ssa.IntegerCmpCondEqual:
		return eq
	case ssa.IntegerCmpCondNotEqual:
		return ne
	case ssa.IntegerCmpCondSignedLessThan:
		return lt
	case ssa.IntegerCmpCondSignedGreaterThanOrEqual:
		return ge
	case ssa.IntegerCmpCondSignedGreaterThan:
		return gt
	case ssa.IntegerCmpCondSignedLessThanOrEqual:
		return le
	case ssa.IntegerCmpCondUnsignedLessThan:
		return lo
	case ssa.IntegerCmpCondUnsignedGreaterThanOrEqual:
		return hs
	case ssa.IntegerCmpCondUnsignedGreaterThan:
		return hi
	case ssa.IntegerCmpCondUnsignedLessThanOrEqual:
		return ls
	default:
		panic(c)
	}
}

// condFlagFromSSAFloatCmpCond returns the condition flag for the given
// ssa.FloatCmpCond.
func condFlagFromSSAFloatCmpCond(c ssa.FloatCmpCond) condFlag {
	switch c {
	case ssa.FloatCmpCondEqual:
		return eq
	case ssa.FloatCmpCondNotEqual:
		return ne
	case ssa.FloatCmpCondLessThan:
		return mi
	case ssa.FloatCmpCondLessThanOrEqual:
		return ls
	case ssa.FloatCmpCondGreaterThan:
		return gt
	case ssa.FloatCmpCondGreaterThanOrEqual:
		return ge
	default:
		panic(c)
	}
}

// cond is a union of condition kinds a conditional instruction can wait on:
// a flag in NZCV, or a register being zero or non-zero.
type cond uint64

type condKind byte

const (
	// condKindRegisterZero means the condition holds if the register is zero.
	condKindRegisterZero condKind = iota
	// condKindRegisterNotZero means the condition holds if the register is not zero.
	condKindRegisterNotZero
	// condKindCondFlagSet means the condition holds if the flag is set.
	condKindCondFlagSet
)

// kind returns the kind of this condition.
func (c cond) kind() condKind {
	return condKind(c & 0b111)
}

func (c cond) asUint64() uint64 {
	return uint64(c)
}

// register returns the register this condition watches.
func (c cond) register() regalloc.Reg {
	if k := c.kind(); k != condKindRegisterZero && k != condKindRegisterNotZero {
		panic("BUG: this condition does not have a register")
	}
	return regalloc.Reg(c >> 32)
}

// flag returns the condition flag this condition watches.
func (c cond) flag() condFlag {
	if c.kind() != condKindCondFlagSet {
		panic("BUG: this condition does not have a flag")
	}
	return condFlag(c >> 32)
}

func registerAsRegZeroCond(r regalloc.Reg) cond {
	return cond(r)<<32 | cond(condKindRegisterZero)
}

func registerAsRegNotZeroCond(r regalloc.Reg) cond {
	return cond(r)<<32 | cond(condKindRegisterNotZero)
}

func (c condFlag) asCond() cond {
	return cond(c)<<32 | cond(condKindCondFlagSet)
}
