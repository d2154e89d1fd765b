package arm64

import (
	"fmt"

	"github.com/joelreymont/hoist/backend/regalloc"
)

// AArch64 registers.
//
// See https://developer.arm.com/documentation/dui0801/a/Overview-of-AArch64-state/Predeclared-core-register-names-in-AArch64-state

const (
	// General purpose registers, class int.

	x0 = regalloc.RealReg(iota)
	x1
	x2
	x3
	x4
	x5
	x6
	x7
	x8
	x9
	x10
	x11
	x12
	x13
	x14
	x15
	x16
	x17
	x18
	x19
	x20
	x21
	x22
	x23
	x24
	x25
	x26
	x27
	x28
	fp // x29
	lr // x30
	sp
	xzr
)

const (
	// Scalar floating-point registers, class float.

	d0 = regalloc.RealReg(byte(regalloc.RegClassFloat)<<6 | iota)
	d1
	d2
	d3
	d4
	d5
	d6
	d7
	d8
	d9
	d10
	d11
	d12
	d13
	d14
	d15
	d16
	d17
	d18
	d19
	d20
	d21
	d22
	d23
	d24
	d25
	d26
	d27
	d28
	d29
	d30
	d31
)

const (
	// NEON vector registers, class vector: the same hardware file as the
	// scalar floats under a distinct class.

	q0 = regalloc.RealReg(byte(regalloc.RegClassVector)<<6 | iota)
	q1
	q2
	q3
	q4
	q5
	q6
	q7
	q8
	q9
	q10
	q11
	q12
	q13
	q14
	q15
	q16
	q17
	q18
	q19
	q20
	q21
	q22
	q23
	q24
	q25
	q26
	q27
	q28
	q29
	q30
	q31
)

var (
	xzrReg = regalloc.RegFromReal(xzr)
	spReg  = regalloc.RegFromReal(sp)
	fpReg  = regalloc.RegFromReal(fp)
	lrReg  = regalloc.RegFromReal(lr)
	x0Reg  = regalloc.RegFromReal(x0)
	x8Reg  = regalloc.RegFromReal(x8)

	// tmpReg and tmpReg2 are the veneer/spill scratch registers (the
	// AAPCS64 intra-procedure-call registers), kept out of allocation.
	tmpReg  = regalloc.RegFromReal(x16)
	tmpReg2 = regalloc.RegFromReal(x17)

	// tmpFpReg and tmpFpReg2 are the float/vector scratch registers.
	tmpFpReg  = regalloc.RegFromReal(d30)
	tmpFpReg2 = regalloc.RegFromReal(d31)
	tmpVecReg = regalloc.RegFromReal(q30)
)

var regNames = [...]string{
	"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
	"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
	"x16", "x17", "x18", "x19", "x20", "x21", "x22", "x23",
	"x24", "x25", "x26", "x27", "x28", "fp", "lr", "sp", "xzr",
}

func formatRealReg(r regalloc.RealReg) string {
	switch r.Class() {
	case regalloc.RegClassInt:
		return regNames[r.HwEnc()]
	case regalloc.RegClassFloat:
		return fmt.Sprintf("d%d", r.HwEnc())
	case regalloc.RegClassVector:
		return fmt.Sprintf("q%d", r.HwEnc())
	default:
		return "?"
	}
}

// regNumberInEncoding maps a RealReg to the 5-bit register number used in
// instruction encodings. SP and XZR share number 31; the instruction form
// disambiguates.
func regNumberInEncoding(r regalloc.RealReg) uint32 {
	enc := uint32(r.HwEnc())
	if r.Class() == regalloc.RegClassInt && (r == sp || r == xzr) {
		return 31
	}
	return enc
}

// regInfo returns the allocator's view of the register file for the given
// target OS. X18 is the platform register on Apple targets and is removed
// from allocation there.
func regInfo(appleABI bool) *regalloc.RegisterInfo {
	info := &regalloc.RegisterInfo{
		CalleeSavedRegisters: map[regalloc.RealReg]struct{}{},
		CallerSavedRegisters: map[regalloc.RealReg]struct{}{},
	}

	// Caller-saved first so short-lived values avoid save/restore cost.
	ints := []regalloc.RealReg{
		x9, x10, x11, x12, x13, x14, x15,
		x0, x1, x2, x3, x4, x5, x6, x7, x8,
	}
	if !appleABI {
		ints = append(ints, x18)
	}
	calleeInts := []regalloc.RealReg{x19, x20, x21, x22, x23, x24, x25, x26, x27, x28}
	ints = append(ints, calleeInts...)
	info.AllocatableRegisters[regalloc.RegClassInt] = ints

	var floats, vectors []regalloc.RealReg
	for enc := byte(0); enc < 30; enc++ { // d30/d31 and q30/q31 are scratch
		floats = append(floats, regalloc.NewRealReg(regalloc.RegClassFloat, enc))
		vectors = append(vectors, regalloc.NewRealReg(regalloc.RegClassVector, enc))
	}
	// v8-v15 are callee-saved; prefer the caller-saved ones first.
	order := func(regs []regalloc.RealReg) []regalloc.RealReg {
		var callerSaved, calleeSaved []regalloc.RealReg
		for _, r := range regs {
			if enc := r.HwEnc(); enc >= 8 && enc <= 15 {
				calleeSaved = append(calleeSaved, r)
			} else {
				callerSaved = append(callerSaved, r)
			}
		}
		return append(callerSaved, calleeSaved...)
	}
	info.AllocatableRegisters[regalloc.RegClassFloat] = order(floats)
	info.AllocatableRegisters[regalloc.RegClassVector] = order(vectors)

	for _, r := range calleeInts {
		info.CalleeSavedRegisters[r] = struct{}{}
	}
	for enc := byte(8); enc <= 15; enc++ {
		info.CalleeSavedRegisters[regalloc.NewRealReg(regalloc.RegClassFloat, enc)] = struct{}{}
		info.CalleeSavedRegisters[regalloc.NewRealReg(regalloc.RegClassVector, enc)] = struct{}{}
	}

	for _, r := range info.AllocatableRegisters[regalloc.RegClassInt] {
		if _, callee := info.CalleeSavedRegisters[r]; !callee {
			info.CallerSavedRegisters[r] = struct{}{}
		}
	}
	for _, class := range []regalloc.RegClass{regalloc.RegClassFloat, regalloc.RegClassVector} {
		for _, r := range info.AllocatableRegisters[class] {
			if _, callee := info.CalleeSavedRegisters[r]; !callee {
				info.CallerSavedRegisters[r] = struct{}{}
			}
		}
	}

	info.ScratchRegisters[regalloc.RegClassInt] = [2]regalloc.RealReg{x16, x17}
	info.ScratchRegisters[regalloc.RegClassFloat] = [2]regalloc.RealReg{d30, d31}
	info.ScratchRegisters[regalloc.RegClassVector] = [2]regalloc.RealReg{q30, q31}
	return info
}
