// Package unwind emits the DWARF call-frame information a runtime needs to
// unwind compiled AArch64 functions: one CIE and FDE per function, plus a
// language-specific data area for exception-enabled call sites.
package unwind

// DWARF register numbers for AArch64 (DWARF for the ARM 64-bit
// architecture): X0-X30 are 0-30, SP is 31, V0-V31 are 64-95.
const (
	DwarfRegFP = 29
	DwarfRegLR = 30
	DwarfRegSP = 31
	DwarfRegV0 = 64
)

// SavedReg records one register stored by the prologue at CFA+Offset.
type SavedReg struct {
	// Reg is the DWARF register number.
	Reg uint8
	// CFAOffset is the (negative) byte offset from the CFA at which the
	// register is saved.
	CFAOffset int64
}

// TryCallSite is one exception-enabled call site: the BL instruction's code
// offset and the bound offset of the exception successor (the landing pad).
type TryCallSite struct {
	// Offset is the code offset of the call instruction.
	Offset uint32
	// Length is the byte length covered; always one instruction.
	Length uint32
	// LandingPad is the code offset of the exception successor.
	LandingPad uint32
}

// FrameInfo describes a function's prologue for CFI generation.
type FrameInfo struct {
	// CodeSize is the total byte size of the function's code.
	CodeSize uint32

	// FrameSize is the final stack-frame size.
	FrameSize int64

	// Frameless is set when the prologue was elided entirely; the CFA
	// stays at SP+0 and no registers are saved.
	Frameless bool

	// SaveOffset is the code offset just past the FP/LR store, where the
	// CFA moves to SP+16 and FP/LR become recorded.
	SaveOffset uint32

	// SetFPOffset is the code offset just past the `mov x29, sp` that
	// switches the CFA register to FP.
	SetFPOffset uint32

	// SavedRegs are the callee-saved registers stored by the prologue, in
	// store order, excluding FP/LR which SaveOffset covers.
	SavedRegs []SavedReg

	// SavedRegsOffset is the code offset just past the callee-save stores.
	SavedRegsOffset uint32

	// TryCalls are the exception-enabled call sites, in code order.
	TryCalls []TryCallSite
}
