package regalloc

import (
	"fmt"

	"github.com/joelreymont/hoist/ssa"
)

// RegClass represents the class of a register: the register file it lives
// in.
type RegClass byte

const (
	RegClassInt RegClass = iota
	RegClassFloat
	RegClassVector
	NumRegClass
)

// String implements fmt.Stringer.
func (c RegClass) String() string {
	switch c {
	case RegClassInt:
		return "int"
	case RegClassFloat:
		return "float"
	case RegClassVector:
		return "vector"
	default:
		return "invalid"
	}
}

// RegClassOf returns the RegClass holding values of the given ssa.Type.
func RegClassOf(t ssa.Type) RegClass {
	switch {
	case t.IsInt():
		return RegClassInt
	case t.IsFloat():
		return RegClassFloat
	case t.IsVector():
		return RegClassVector
	default:
		panic("invalid type " + t.String())
	}
}

// RealReg represents a physical register: {class, hardware encoding}
// packed into a byte. Each class can address up to 64 hardware encodings.
type RealReg byte

const (
	realRegEncMask       = 0x3f
	realRegClassShift    = 6
	RealRegInvalid       = RealReg(0xff)
	realRegsPerClass     = 64
	realRegPinnedRegions = int(NumRegClass) * realRegsPerClass
)

// NewRealReg packs a class and hardware encoding into a RealReg.
func NewRealReg(c RegClass, enc byte) RealReg {
	if enc >= realRegsPerClass {
		panic(fmt.Sprintf("BUG: hardware encoding %d out of range", enc))
	}
	return RealReg(byte(c)<<realRegClassShift | enc)
}

// Class returns the register class of this physical register.
func (r RealReg) Class() RegClass {
	return RegClass(r >> realRegClassShift)
}

// HwEnc returns the hardware encoding of this physical register.
func (r RealReg) HwEnc() byte {
	return byte(r) & realRegEncMask
}

// Valid returns true unless this is RealRegInvalid.
func (r RealReg) Valid() bool {
	return r != RealRegInvalid
}

// String implements fmt.Stringer.
func (r RealReg) String() string {
	if !r.Valid() {
		return "r?"
	}
	return fmt.Sprintf("%s%d", r.Class(), r.HwEnc())
}

// VReg represents a virtual register: {class, dense index} packed into a
// word. Indices are limited to 30 bits.
type VReg uint32

const (
	vRegClassShift = 30
	vRegIndexMask  = 1<<vRegClassShift - 1
	VRegInvalid    = VReg(^uint32(0))
)

// NewVReg packs a class and dense index into a VReg.
func NewVReg(c RegClass, index uint32) VReg {
	if index > vRegIndexMask-1 {
		panic("BUG: VReg index overflow")
	}
	return VReg(uint32(c)<<vRegClassShift | index)
}

// Class returns the register class of this virtual register.
func (v VReg) Class() RegClass {
	return RegClass(v >> vRegClassShift)
}

// Index returns the dense index of this virtual register.
func (v VReg) Index() uint32 {
	return uint32(v) & vRegIndexMask
}

// Valid returns true unless this is VRegInvalid.
func (v VReg) Valid() bool {
	return v != VRegInvalid
}

// String implements fmt.Stringer.
func (v VReg) String() string {
	return fmt.Sprintf("v%d?%s", v.Index(), v.Class())
}

// Reg is the uniform register operand: a tagged 32-bit value that is either
// a virtual register, a physical register pinned to a hardware encoding, or
// a spill-slot reference. The high bit discriminates spill slots; below it,
// ids under the pinned threshold name a physical register by class and
// hardware encoding, and ids at or above it name a true virtual register.
//
// This single encoding lets lowering and allocation traffic one operand
// type, and the allocator rewrite virtual operands to physical ones in
// place.
type Reg uint32

const (
	regSpillBit      = Reg(1) << 31
	regClassShift    = 29
	regClassMask     = Reg(0b11) << regClassShift
	regPayloadMask   = Reg(1)<<regClassShift - 1
	regPinnedPerCls  = realRegsPerClass
	RegInvalid       = Reg(^uint32(0)) &^ regSpillBit
	regVirtualOffset = regPinnedPerCls
)

// RegFromReal returns the pinned Reg for a physical register.
func RegFromReal(r RealReg) Reg {
	return Reg(r.Class())<<regClassShift | Reg(r.HwEnc())
}

// RegFromVirtual returns the Reg naming a virtual register.
func RegFromVirtual(v VReg) Reg {
	return Reg(v.Class())<<regClassShift | Reg(v.Index()+regVirtualOffset)
}

// RegFromSpillSlot returns the Reg naming a spill slot of the given class.
func RegFromSpillSlot(slot uint32, c RegClass) Reg {
	return regSpillBit | Reg(c)<<regClassShift | Reg(slot)
}

// IsSpillSlot returns true if this Reg names a spill slot.
func (r Reg) IsSpillSlot() bool {
	return r&regSpillBit != 0
}

// SpillSlot returns the spill-slot index.
func (r Reg) SpillSlot() uint32 {
	if !r.IsSpillSlot() {
		panic("BUG: SpillSlot on " + r.String())
	}
	return uint32(r & regPayloadMask)
}

// Class returns the register class of this Reg.
func (r Reg) Class() RegClass {
	return RegClass((r &^ regSpillBit) >> regClassShift)
}

// IsReal returns true if this Reg is pinned to a physical register.
func (r Reg) IsReal() bool {
	return !r.IsSpillSlot() && r != RegInvalid && uint32(r&regPayloadMask) < regPinnedPerCls
}

// IsVirtual returns true if this Reg names a virtual register.
func (r Reg) IsVirtual() bool {
	return !r.IsSpillSlot() && r != RegInvalid && uint32(r&regPayloadMask) >= regVirtualOffset
}

// RealReg returns the physical register this Reg is pinned to.
func (r Reg) RealReg() RealReg {
	if !r.IsReal() {
		panic("BUG: RealReg on " + r.String())
	}
	return NewRealReg(r.Class(), byte(r&regPayloadMask))
}

// VReg returns the virtual register this Reg names.
func (r Reg) VReg() VReg {
	if !r.IsVirtual() {
		panic("BUG: VReg on " + r.String())
	}
	return NewVReg(r.Class(), uint32(r&regPayloadMask)-regVirtualOffset)
}

// Valid returns true unless this is RegInvalid.
func (r Reg) Valid() bool {
	return r != RegInvalid
}

// String implements fmt.Stringer.
func (r Reg) String() string {
	switch {
	case !r.Valid():
		return "?"
	case r.IsSpillSlot():
		return fmt.Sprintf("slot%d", r.SpillSlot())
	case r.IsReal():
		return r.RealReg().String()
	default:
		return r.VReg().String()
	}
}

// ValueRegs carries the 1-4 registers representing one IR value
// (multi-register values: i128, wide returns, aggregates).
type ValueRegs struct {
	regs [4]Reg
	n    byte
}

// ValueRegsOne returns a single-register ValueRegs.
func ValueRegsOne(r Reg) ValueRegs {
	return ValueRegs{regs: [4]Reg{r, RegInvalid, RegInvalid, RegInvalid}, n: 1}
}

// ValueRegsTwo returns a two-register ValueRegs.
func ValueRegsTwo(lo, hi Reg) ValueRegs {
	return ValueRegs{regs: [4]Reg{lo, hi, RegInvalid, RegInvalid}, n: 2}
}

// NewValueRegs returns a ValueRegs over the given registers (1 to 4).
func NewValueRegs(regs ...Reg) ValueRegs {
	if len(regs) == 0 || len(regs) > 4 {
		panic("BUG: ValueRegs must carry 1-4 registers")
	}
	v := ValueRegs{regs: [4]Reg{RegInvalid, RegInvalid, RegInvalid, RegInvalid}, n: byte(len(regs))}
	copy(v.regs[:], regs)
	return v
}

// Len returns the number of registers carried.
func (v ValueRegs) Len() int {
	return int(v.n)
}

// At returns the i-th register.
func (v ValueRegs) At(i int) Reg {
	if i >= int(v.n) {
		panic("BUG: ValueRegs index out of range")
	}
	return v.regs[i]
}

// Reg returns the only register carried; panics unless Len() == 1.
func (v ValueRegs) Reg() Reg {
	if v.n != 1 {
		panic("BUG: ValueRegs.Reg on multi-register value")
	}
	return v.regs[0]
}

// String implements fmt.Stringer.
func (v ValueRegs) String() string {
	s := v.regs[0].String()
	for i := 1; i < int(v.n); i++ {
		s += "," + v.regs[i].String()
	}
	return s
}
