package arm64

// This file contains the logic to "find and determine operands" for
// instructions. In order to finalize the form of an operand, we might end
// up merging a pure, single-use producer instruction into the consumer.

import (
	"fmt"
	"math/bits"

	"github.com/joelreymont/hoist/backend/regalloc"
)

type (
	// operand represents an operand of an instruction whose type is
	// determined by the kind.
	operand struct {
		kind operandKind
		data uint64
	}
	operandKind byte
)

const (
	// operandKindNR represents "NormalRegister" (NR): a register without
	// any special operation.
	operandKindNR operandKind = iota
	// operandKindSR represents "Shifted Register" (SR): a register shifted
	// by a constant amount.
	operandKindSR
	// operandKindER represents "Extended Register" (ER): a register
	// sign/zero-extended to a larger size.
	operandKindER
	// operandKindImm12 represents a 12-bit immediate, optionally shifted
	// left by 12.
	operandKindImm12
	// operandKindShiftImm represents a constant shift amount.
	operandKindShiftImm
)

// operandNR encodes the given register as an operand of operandKindNR.
func operandNR(r regalloc.Reg) operand {
	return operand{kind: operandKindNR, data: uint64(r)}
}

// nr decodes the underlying register assuming the operand is of operandKindNR.
func (o operand) nr() regalloc.Reg {
	return regalloc.Reg(o.data)
}

// reg returns the register of this operand regardless of kind, or
// RegInvalid when the kind carries none.
func (o operand) reg() regalloc.Reg {
	switch o.kind {
	case operandKindNR, operandKindSR, operandKindER:
		return regalloc.Reg(uint32(o.data))
	default:
		return regalloc.RegInvalid
	}
}

func (o operand) assignReg(r regalloc.RealReg) operand {
	o.data = o.data&^uint64(^uint32(0)) | uint64(regalloc.RegFromReal(r))
	return o
}

func (o operand) realReg() regalloc.RealReg {
	return o.reg().RealReg()
}

type shiftOp byte

const (
	shiftOpLSL shiftOp = iota
	shiftOpLSR
	shiftOpASR
)

// String implements fmt.Stringer.
func (s shiftOp) String() string {
	switch s {
	case shiftOpLSL:
		return "lsl"
	case shiftOpLSR:
		return "lsr"
	case shiftOpASR:
		return "asr"
	default:
		panic(int(s))
	}
}

// operandSR encodes a shifted-register operand.
func operandSR(r regalloc.Reg, amt byte, op shiftOp) operand {
	return operand{kind: operandKindSR, data: uint64(r) | uint64(amt)<<32 | uint64(op)<<40}
}

// sr decodes a shifted-register operand.
func (o operand) sr() (r regalloc.Reg, amt byte, op shiftOp) {
	return regalloc.Reg(uint32(o.data)), byte(o.data >> 32), shiftOp(o.data >> 40)
}

type extendOp byte

const (
	extendOpUXTB extendOp = 0b000
	extendOpUXTH extendOp = 0b001
	extendOpUXTW extendOp = 0b010
	extendOpUXTX extendOp = 0b011
	extendOpSXTB extendOp = 0b100
	extendOpSXTH extendOp = 0b101
	extendOpSXTW extendOp = 0b110
	extendOpSXTX extendOp = 0b111
)

// String implements fmt.Stringer.
func (e extendOp) String() string {
	switch e {
	case extendOpUXTB:
		return "uxtb"
	case extendOpUXTH:
		return "uxth"
	case extendOpUXTW:
		return "uxtw"
	case extendOpUXTX:
		return "uxtx"
	case extendOpSXTB:
		return "sxtb"
	case extendOpSXTH:
		return "sxth"
	case extendOpSXTW:
		return "sxtw"
	case extendOpSXTX:
		return "sxtx"
	default:
		panic(int(e))
	}
}

// operandER encodes an extended-register operand.
func operandER(r regalloc.Reg, op extendOp) operand {
	return operand{kind: operandKindER, data: uint64(r) | uint64(op)<<32}
}

// er decodes an extended-register operand.
func (o operand) er() (r regalloc.Reg, op extendOp) {
	return regalloc.Reg(uint32(o.data)), extendOp(o.data >> 32)
}

// operandImm12 encodes an imm12 operand, shifted left by 12 when shift is 1.
func operandImm12(imm12 uint16, shift byte) operand {
	return operand{kind: operandKindImm12, data: uint64(imm12) | uint64(shift)<<32}
}

// imm12 decodes an imm12 operand.
func (o operand) imm12() (v uint16, shift byte) {
	return uint16(o.data), byte(o.data >> 32)
}

// operandShiftImm encodes a constant shift amount.
func operandShiftImm(amount uint64) operand {
	return operand{kind: operandKindShiftImm, data: amount}
}

// shiftImm decodes a constant shift amount.
func (o operand) shiftImm() uint64 {
	return o.data
}

// String implements fmt.Stringer.
func (o operand) String() string {
	switch o.kind {
	case operandKindNR:
		return o.nr().String()
	case operandKindSR:
		r, amt, op := o.sr()
		return fmt.Sprintf("%s, %s #%d", r, op, amt)
	case operandKindER:
		r, op := o.er()
		return fmt.Sprintf("%s %s", r, op)
	case operandKindImm12:
		v, shift := o.imm12()
		if shift == 1 {
			return fmt.Sprintf("#%#x", uint64(v)<<12)
		}
		return fmt.Sprintf("#%#x", v)
	case operandKindShiftImm:
		return fmt.Sprintf("#%d", o.shiftImm())
	default:
		panic(int(o.kind))
	}
}

// asImm12 returns the imm12 representation of v if it fits.
func asImm12(v uint64) (imm12 uint16, shift byte, ok bool) {
	const mask1, mask2 uint64 = 0xfff, 0xfff_000
	if v&^mask1 == 0 {
		return uint16(v), 0, true
	} else if v&^mask2 == 0 {
		return uint16(v >> 12), 1, true
	}
	return 0, 0, false
}

// asBitmaskImmediate encodes v as the (N, immr, imms) triple of a logical
// immediate if representable: a power-of-two-sized repetition of a rotated
// contiguous run of ones, excluding all-zeros and all-ones.
func asBitmaskImmediate(v uint64, is64bit bool) (n, immr, imms uint32, ok bool) {
	if !is64bit {
		v = v&0xffffffff | v<<32
	}
	if v == 0 || v == ^uint64(0) {
		return 0, 0, 0, false
	}

	// Find the repetition size: the smallest power of two such that the
	// value repeats at that period.
	size := uint32(64)
	for size > 2 {
		half := size / 2
		mask := uint64(1)<<half - 1
		if v&mask != (v>>half)&mask {
			break
		}
		size = half
	}
	mask := uint64(1)
	if size == 64 {
		mask = ^uint64(0)
	} else {
		mask = uint64(1)<<size - 1
	}
	elem := v & mask
	ones := uint32(bits.OnesCount64(elem))
	if ones == 0 || ones == size {
		return 0, 0, 0, false
	}
	run := uint64(1)<<ones - 1

	ror := func(x uint64, r uint32) uint64 {
		if r == 0 {
			return x
		}
		return (x>>r | x<<(size-r)) & mask
	}
	// The element must be some rotation of the contiguous run.
	for r := uint32(0); r < size; r++ {
		if elem == ror(run, r) {
			if size == 64 {
				n = 1
			}
			immr = r
			imms = ^(size*2 - 1) & 0x3f | (ones - 1)
			return n, immr, imms, true
		}
	}
	return 0, 0, 0, false
}
