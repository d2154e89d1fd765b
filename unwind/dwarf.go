package unwind

import (
	"encoding/binary"
)

// CIE parameters for AArch64: code alignment 4, data alignment -8, return
// address register LR.
const (
	codeAlignFactor = 4
	dataAlignFactor = -8
)

// DWARF pointer encodings.
const (
	dwEhPeOmit    = 0xff
	dwEhPeUleb128 = 0x01
	dwEhPePcrel   = 0x10
	dwEhPeSdata4  = 0x0b
)

// Call-frame instruction opcodes.
const (
	dwCfaNop            = 0x00
	dwCfaAdvanceLoc     = 0x40 // high 2 bits, delta in low 6
	dwCfaOffset         = 0x80 // high 2 bits, register in low 6
	dwCfaAdvanceLoc1    = 0x02
	dwCfaAdvanceLoc2    = 0x03
	dwCfaDefCfa         = 0x0c
	dwCfaDefCfaRegister = 0x0d
	dwCfaDefCfaOffset   = 0x0e
)

// Emit produces the unwind byte sequence for one function: CIE, FDE and,
// when the function contains try-calls, the LSDA. The FDE's pc_begin field
// is left function-relative (zero); the runtime registering the frame
// rebases it to the executable mapping.
func Emit(fi *FrameInfo) []byte {
	var out []byte
	hasLSDA := len(fi.TryCalls) > 0

	cieStart := len(out)
	out = emitCIE(out, hasLSDA)
	fdeStart := len(out)
	out = emitFDE(out, fi, fdeStart-cieStart, hasLSDA)
	if hasLSDA {
		// The FDE's LSDA pointer is the offset of the LSDA within this
		// byte sequence; patched now that it is known.
		patchLSDAPointer(out, fdeStart, uint32(len(out)))
		out = emitLSDA(out, fi)
	}
	return out
}

func emitCIE(out []byte, hasLSDA bool) []byte {
	body := []byte{1} // version
	if hasLSDA {
		body = append(body, 'z', 'L', 'R', 0)
	} else {
		body = append(body, 'z', 'R', 0)
	}
	body = appendUleb128(body, codeAlignFactor)
	body = appendSleb128(body, dataAlignFactor)
	body = appendUleb128(body, DwarfRegLR)
	// Augmentation data: [LSDA pointer encoding,] FDE pointer encoding.
	if hasLSDA {
		body = appendUleb128(body, 2)
		body = append(body, dwEhPeUleb128)
	} else {
		body = appendUleb128(body, 1)
	}
	body = append(body, dwEhPePcrel|dwEhPeSdata4)
	// Initial instructions: CFA = SP+0.
	body = append(body, dwCfaDefCfa)
	body = appendUleb128(body, DwarfRegSP)
	body = appendUleb128(body, 0)

	return appendEntry(out, 0, body)
}

// lsdaPointerFieldOffset locates the LSDA pointer inside an emitted FDE:
// length(4) + ciePointer(4) + pcBegin(4) + pcRange(4) + augLen(1).
const lsdaPointerFieldOffset = 4 + 4 + 4 + 4 + 1

func emitFDE(out []byte, fi *FrameInfo, cieDistance int, hasLSDA bool) []byte {
	var body []byte
	// pc_begin (function-relative) and pc_range.
	body = binary.LittleEndian.AppendUint32(body, 0)
	body = binary.LittleEndian.AppendUint32(body, fi.CodeSize)
	if hasLSDA {
		// Augmentation data: LSDA pointer as a fixed-width word so it can
		// be patched once the LSDA offset is known.
		body = appendUleb128(body, 4)
		body = binary.LittleEndian.AppendUint32(body, 0)
	} else {
		body = appendUleb128(body, 0)
	}

	body = append(body, cfiProgram(fi)...)

	// CIE pointer: distance from the cie-pointer field back to the CIE.
	return appendEntry(out, uint32(cieDistance+4), body)
}

// cfiProgram renders the prologue as call-frame instructions.
func cfiProgram(fi *FrameInfo) []byte {
	var p []byte
	if fi.Frameless {
		return p
	}
	loc := uint32(0)

	// After `stp fp, lr, [sp, #-16]!`: CFA is SP+16 and both registers are
	// stored below it.
	p = advance(p, &loc, fi.SaveOffset)
	p = append(p, dwCfaDefCfaOffset)
	p = appendUleb128(p, 16)
	p = append(p, dwCfaOffset|DwarfRegFP)
	p = appendUleb128(p, uint64(16/-dataAlignFactor))
	p = append(p, dwCfaOffset|DwarfRegLR)
	p = appendUleb128(p, uint64(8/-dataAlignFactor))

	// After `mov x29, sp`: the CFA tracks FP.
	p = advance(p, &loc, fi.SetFPOffset)
	p = append(p, dwCfaDefCfaRegister)
	p = appendUleb128(p, DwarfRegFP)

	if len(fi.SavedRegs) > 0 {
		p = advance(p, &loc, fi.SavedRegsOffset)
		for _, sr := range fi.SavedRegs {
			p = append(p, dwCfaOffset|sr.Reg&0x3f)
			p = appendUleb128(p, uint64(sr.CFAOffset/int64(dataAlignFactor)))
		}
	}
	return p
}

func advance(p []byte, loc *uint32, to uint32) []byte {
	delta := (to - *loc) / codeAlignFactor
	switch {
	case delta == 0:
	case delta < 0x40:
		p = append(p, dwCfaAdvanceLoc|byte(delta))
	case delta <= 0xff:
		p = append(p, dwCfaAdvanceLoc1, byte(delta))
	default:
		p = append(p, dwCfaAdvanceLoc2, byte(delta), byte(delta>>8))
	}
	*loc = to
	return p
}

// appendEntry writes a length-prefixed CIE/FDE record, padding the body
// with nops to 4-byte alignment.
func appendEntry(out []byte, id uint32, body []byte) []byte {
	// length(excluded) + id + body, padded so the total is 4-aligned.
	size := 4 + len(body)
	for size%4 != 0 {
		body = append(body, dwCfaNop)
		size++
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(size))
	out = binary.LittleEndian.AppendUint32(out, id)
	return append(out, body...)
}

func patchLSDAPointer(out []byte, fdeStart int, lsdaOffset uint32) {
	binary.LittleEndian.PutUint32(out[fdeStart+lsdaPointerFieldOffset:], lsdaOffset)
}
