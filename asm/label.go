package asm

import (
	"encoding/binary"
	"fmt"
)

// Label identifies a position in the buffer. Labels are allocated by index,
// bound at most once, and referenced by fix-ups.
type Label uint32

// LabelInvalid is the zero value of Label usable as a sentinel.
const LabelInvalid Label = 0xffffffff

// String implements fmt.Stringer.
func (l Label) String() string {
	return fmt.Sprintf("L%d", l)
}

// LabelUseKind describes the PC-relative encoding of a label use: where the
// delta is measured from, how wide it is, and how the bytes are patched.
type LabelUseKind byte

const (
	// LabelUseBranch26 is an AArch64 26-bit unconditional branch (B/BL):
	// word-scaled delta measured from the instruction address.
	LabelUseBranch26 LabelUseKind = iota
	// LabelUseCondBranch19 is an AArch64 19-bit conditional branch
	// (B.cond/CBZ/CBNZ): word-scaled delta from the instruction address.
	LabelUseCondBranch19
	// LabelUseLdr19 is an AArch64 LDR (literal): 19-bit word-scaled delta
	// from the instruction address.
	LabelUseLdr19
	// LabelUseAdr21 is an AArch64 ADR: byte delta in a 21-bit immediate.
	LabelUseAdr21
	// LabelUsePCRel8 is a generic 8-bit byte-granular displacement measured
	// past the end of the patch byte, for the narrow-branch architectures
	// the buffer abstraction also serves.
	LabelUsePCRel8
	// LabelUsePCRel32 is a generic 32-bit byte-granular displacement
	// measured past the end of the patch word.
	LabelUsePCRel32
)

// String implements fmt.Stringer.
func (k LabelUseKind) String() string {
	switch k {
	case LabelUseBranch26:
		return "branch26"
	case LabelUseCondBranch19:
		return "condbranch19"
	case LabelUseLdr19:
		return "ldr19"
	case LabelUseAdr21:
		return "adr21"
	case LabelUsePCRel8:
		return "pcrel8"
	case LabelUsePCRel32:
		return "pcrel32"
	default:
		panic(int(k))
	}
}

// patchSize returns the number of bytes rewritten by the patch.
func (k LabelUseKind) patchSize() int64 {
	switch k {
	case LabelUsePCRel8:
		return 1
	default:
		return 4
	}
}

// deltaBase returns the offset the delta is measured from, given the fix-up
// offset. AArch64 encodings measure from the instruction address; the
// generic byte-granular kinds measure past the end of the patch.
func (k LabelUseKind) deltaBase(fixupOffset int64) int64 {
	switch k {
	case LabelUsePCRel8, LabelUsePCRel32:
		return fixupOffset + k.patchSize()
	default:
		return fixupOffset
	}
}

// rangeOf returns the inclusive [min, max] byte delta the encoding accepts.
func (k LabelUseKind) rangeOf() (min, max int64) {
	switch k {
	case LabelUseBranch26:
		return -(1 << 27), 1<<27 - 4
	case LabelUseCondBranch19, LabelUseLdr19:
		return -(1 << 20), 1<<20 - 4
	case LabelUseAdr21:
		return -(1 << 20), 1<<20 - 1
	case LabelUsePCRel8:
		return -128, 127
	case LabelUsePCRel32:
		return -(1 << 31), 1<<31 - 1
	default:
		panic(int(k))
	}
}

// supportsVeneer reports whether an out-of-range use of this kind can be
// promoted to an island veneer.
func (k LabelUseKind) supportsVeneer() bool {
	switch k {
	case LabelUseBranch26, LabelUseCondBranch19, LabelUsePCRel8:
		return true
	default:
		return false
	}
}

// patch rewrites the encoded delta in buf at the fix-up offset. The caller
// has checked the range.
func (k LabelUseKind) patch(buf []byte, fixupOffset, delta int64) {
	switch k {
	case LabelUseBranch26:
		word := binary.LittleEndian.Uint32(buf[fixupOffset:])
		imm26 := uint32(delta/4) & 0x03ff_ffff
		binary.LittleEndian.PutUint32(buf[fixupOffset:], word&0xfc00_0000|imm26)
	case LabelUseCondBranch19, LabelUseLdr19:
		word := binary.LittleEndian.Uint32(buf[fixupOffset:])
		imm19 := uint32(delta/4) & 0x7ffff
		binary.LittleEndian.PutUint32(buf[fixupOffset:], word&^(uint32(0x7ffff)<<5)|imm19<<5)
	case LabelUseAdr21:
		word := binary.LittleEndian.Uint32(buf[fixupOffset:])
		imm := uint32(delta) & 0x1fffff
		immlo := imm & 0b11
		immhi := imm >> 2
		word = word &^ (uint32(0b11) << 29) &^ (uint32(0x7ffff) << 5)
		binary.LittleEndian.PutUint32(buf[fixupOffset:], word|immlo<<29|immhi<<5)
	case LabelUsePCRel8:
		buf[fixupOffset] = byte(int8(delta))
	case LabelUsePCRel32:
		binary.LittleEndian.PutUint32(buf[fixupOffset:], uint32(int32(delta)))
	default:
		panic(int(k))
	}
}
