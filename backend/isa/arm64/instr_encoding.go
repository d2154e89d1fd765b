package arm64

import (
	"encoding/binary"
	"fmt"

	"github.com/joelreymont/hoist/asm"
)

// encodeInstr appends the encoding of one instruction to the buffer. Meta
// instructions expand into their sequences here; every real arm64 word
// agrees with the ARM architecture reference.
func (m *machine) encodeInstr(buf *asm.Buffer, i *instruction) {
	switch kind := i.kind; kind {
	case nop0:
	case seqPoint:
		buf.AddSourceOffset(i.u1)
	case ret:
		// https://developer.arm.com/documentation/ddi0596/2020-12/Base-Instructions/RET--Return-from-subroutine-
		buf.Emit4Bytes(encodeRet())
	case br:
		buf.UseLabel(m.labelFor(uint32(i.u1)), asm.LabelUseBranch26)
		buf.Emit4Bytes(encodeUnconditionalBranch(false, 0))
	case condBr:
		brCond := cond(i.u1)
		target := m.labelFor(uint32(i.u2))
		buf.UseLabel(target, asm.LabelUseCondBranch19)
		switch brCond.kind() {
		case condKindRegisterZero:
			rt := regNumberInEncoding(brCond.register().RealReg())
			buf.Emit4Bytes(encodeCBZCBNZ(rt, false, 0, i.u3 == 1))
		case condKindRegisterNotZero:
			rt := regNumberInEncoding(brCond.register().RealReg())
			buf.Emit4Bytes(encodeCBZCBNZ(rt, true, 0, i.u3 == 1))
		case condKindCondFlagSet:
			// https://developer.arm.com/documentation/ddi0596/2021-12/Base-Instructions/B-cond--Branch-conditionally-
			buf.Emit4Bytes(0b01010100<<24 | uint32(brCond.flag()))
		}
	case call:
		if i.sym != "" {
			buf.AddReloc(asm.RelocCall26, i.sym, 0)
		}
		buf.Emit4Bytes(encodeUnconditionalBranch(true, 0))
	case callInd:
		buf.Emit4Bytes(encodeUnconditionalBranchReg(regNumberInEncoding(i.rn.realReg()), true))
	case brk:
		buf.AddTrap(byte(i.u1))
		buf.Emit4Bytes(encodeBrk(uint32(i.u1)))
	case trapIf:
		// Branch over the brk on the inverted condition.
		c := cond(i.u1)
		switch c.kind() {
		case condKindCondFlagSet:
			buf.Emit4Bytes(0b01010100<<24 | 2<<5 | uint32(c.flag().invert()))
		case condKindRegisterZero:
			buf.Emit4Bytes(encodeCBZCBNZ(regNumberInEncoding(c.register().RealReg()), true, 2, true))
		case condKindRegisterNotZero:
			buf.Emit4Bytes(encodeCBZCBNZ(regNumberInEncoding(c.register().RealReg()), false, 2, true))
		}
		buf.AddTrap(byte(i.u2))
		buf.Emit4Bytes(encodeBrk(uint32(i.u2)))
	case brTableSequence:
		m.encodeBrTable(buf, i)
	case dmb:
		buf.Emit4Bytes(0xd5033bbf) // dmb ish
	case movZ:
		buf.Emit4Bytes(encodeMoveWideImmediate(0b10, regNumberInEncoding(i.rd.realReg()), i.u1, i.u2, i.u3))
	case movN:
		buf.Emit4Bytes(encodeMoveWideImmediate(0b00, regNumberInEncoding(i.rd.realReg()), i.u1, i.u2, i.u3))
	case movK:
		buf.Emit4Bytes(encodeMoveWideImmediate(0b11, regNumberInEncoding(i.rd.realReg()), i.u1, i.u2, i.u3))
	case mov64:
		to, from := i.rd.realReg(), i.rn.realReg()
		if to == sp || from == sp {
			// MOV to/from SP is an alias of ADD (immediate).
			buf.Emit4Bytes(encodeAluRRImm12(aluOpAdd, regNumberInEncoding(to), regNumberInEncoding(from), 0, 0, true))
		} else {
			// Otherwise an alias of ORR (shifted register).
			buf.Emit4Bytes(encodeLogicalShiftedRegister(0b01, 0, regNumberInEncoding(from), 0, 31, regNumberInEncoding(to), true))
		}
	case mov32:
		buf.Emit4Bytes(encodeLogicalShiftedRegister(0b01, 0, regNumberInEncoding(i.rn.realReg()), 0, 31, regNumberInEncoding(i.rd.realReg()), false))
	case aluRRR:
		buf.Emit4Bytes(encodeAluRRRInstr(i))
	case aluRRRR:
		buf.Emit4Bytes(encodeAluRRRR(
			aluOp(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			regNumberInEncoding(i.rm.realReg()),
			regNumberInEncoding(i.ra.realReg()),
			i.u3 == 1,
		))
	case aluRRImm12:
		imm12, shift := i.rm.imm12()
		buf.Emit4Bytes(encodeAluRRImm12(
			aluOp(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			imm12, shift,
			i.u3 == 1,
		))
	case aluRRBitmaskImm:
		buf.Emit4Bytes(encodeAluBitmaskImmediate(
			aluOp(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			uint32(i.u2>>12)&1, uint32(i.u2>>6)&0x3f, uint32(i.u2)&0x3f,
			i.u3 == 1,
		))
	case aluRRImmShift:
		buf.Emit4Bytes(encodeAluRRImmShift(
			aluOp(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			uint32(i.rm.shiftImm()),
			i.u3 == 1,
		))
	case bitRR:
		buf.Emit4Bytes(encodeBitRR(
			bitOp(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			i.u3 == 1,
		))
	case ccmpImm:
		sf := uint32(0)
		if i.u3 == 1 {
			sf = 1
		}
		nzcv := uint32(i.u2 & 0b1111)
		c := uint32(condFlag(i.u1 >> 32))
		imm := uint32(i.rm.data & 0b11111)
		rn := regNumberInEncoding(i.rn.realReg())
		buf.Emit4Bytes(sf<<31 | 0b111101001<<22 | imm<<16 | c<<12 | 0b1<<11 | rn<<5 | nzcv)
	case extend:
		buf.Emit4Bytes(encodeExtend(i.u3 == 1, byte(i.u1), byte(i.u2), regNumberInEncoding(i.rd.realReg()), regNumberInEncoding(i.rn.realReg())))
	case cSet:
		rd := regNumberInEncoding(i.rd.realReg())
		cf := condFlag(i.u1)
		// CSET is an alias of CSINC with both sources XZR and the
		// inverted condition.
		buf.Emit4Bytes(0b1001101010011111<<16 | uint32(cf.invert())<<12 | 0b1<<10 | 0b11111<<5 | rd)
	case cSel, cSelNeg, cSelInv, cSelInc:
		buf.Emit4Bytes(encodeConditionalSelect(
			kind,
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			regNumberInEncoding(i.rm.realReg()),
			condFlag(i.u1),
			i.u3 == 1,
		))
	case fpuCSel:
		buf.Emit4Bytes(encodeFpuCSel(
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			regNumberInEncoding(i.rm.realReg()),
			condFlag(i.u1),
			i.u3 == 1,
		))
	case fpuMov64, fpuMov128:
		// MOV (vector) is an alias of ORR (vector, register).
		rd := regNumberInEncoding(i.rd.realReg())
		rn := regNumberInEncoding(i.rn.realReg())
		var q uint32
		if kind == fpuMov128 {
			q = 0b1
		}
		buf.Emit4Bytes(q<<30 | 0b1110101<<21 | rn<<16 | 0b000111<<10 | rn<<5 | rd)
	case fpuRR:
		buf.Emit4Bytes(encodeFloatDataOneSource(
			fpuUniOp(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			i.u3 == 1,
		))
	case fpuRRR:
		buf.Emit4Bytes(encodeFpuRRR(
			fpuBinOp(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			regNumberInEncoding(i.rm.realReg()),
			i.u3 == 1,
		))
	case fpuRRRR:
		// FMADD/FMSUB.
		var ptype uint32
		if i.u3 == 1 {
			ptype = 0b01
		}
		o1 := uint32(i.u1) // 0 = fmadd, 1 = fmsub
		buf.Emit4Bytes(0b11111<<24 | ptype<<22 |
			regNumberInEncoding(i.rm.realReg())<<16 | o1<<15 |
			regNumberInEncoding(i.ra.realReg())<<10 |
			regNumberInEncoding(i.rn.realReg())<<5 |
			regNumberInEncoding(i.rd.realReg()))
	case fpuCmp:
		// https://developer.arm.com/documentation/ddi0596/2020-12/SIMD-FP-Instructions/FCMP--Floating-point-quiet-Compare--scalar--
		rn, rm := regNumberInEncoding(i.rn.realReg()), regNumberInEncoding(i.rm.realReg())
		var ftype uint32
		if i.u3 == 1 {
			ftype = 0b01
		}
		buf.Emit4Bytes(0b1111<<25 | ftype<<22 | 1<<21 | rm<<16 | 0b1<<13 | rn<<5)
	case fpuToInt, intToFpu:
		buf.Emit4Bytes(encodeCnvBetweenFloatInt(i))
	case movToFpu:
		buf.Emit4Bytes(encodeFMovGprFpr(regNumberInEncoding(i.rd.realReg()), regNumberInEncoding(i.rn.realReg()), i.u3 == 1, true))
	case movFromFpu:
		buf.Emit4Bytes(encodeFMovGprFpr(regNumberInEncoding(i.rd.realReg()), regNumberInEncoding(i.rn.realReg()), i.u3 == 1, false))
	case uLoad8, uLoad16, uLoad32, uLoad64, sLoad8, sLoad16, sLoad32, fpuLoad32, fpuLoad64, fpuLoad128:
		amode := m.resolveAMode(i.amode)
		buf.Emit4Bytes(encodeLoadOrStore(kind, regNumberInEncoding(i.rd.realReg()), amode))
	case store8, store16, store32, store64, fpuStore32, fpuStore64, fpuStore128:
		amode := m.resolveAMode(i.amode)
		buf.Emit4Bytes(encodeLoadOrStore(kind, regNumberInEncoding(i.rn.realReg()), amode))
	case loadP64, storeP64:
		rt, rt2 := regNumberInEncoding(i.rn.realReg()), regNumberInEncoding(i.rm.realReg())
		amode := i.amode
		rn := regNumberInEncoding(amode.rn.RealReg())
		var pre bool
		switch amode.kind {
		case addressModeKindPostIndex:
		case addressModeKindPreIndex:
			pre = true
		default:
			panic("BUG: ldp/stp only uses pre/post-index modes")
		}
		buf.Emit4Bytes(encodePreOrPostIndexLoadStorePair64(pre, kind == loadP64, rn, rt, rt2, amode.imm))
	case loadFpuConst32:
		lbl := buf.AllocateConstant(binary.LittleEndian.AppendUint32(nil, uint32(i.u1)), 4)
		buf.UseLabel(lbl, asm.LabelUseLdr19)
		buf.Emit4Bytes(0b00<<30 | 0b011<<27 | 1<<26 | regNumberInEncoding(i.rd.realReg()))
	case loadFpuConst64:
		lbl := buf.AllocateConstant(binary.LittleEndian.AppendUint64(nil, i.u1), 8)
		buf.UseLabel(lbl, asm.LabelUseLdr19)
		buf.Emit4Bytes(0b01<<30 | 0b011<<27 | 1<<26 | regNumberInEncoding(i.rd.realReg()))
	case loadFpuConst128:
		data := binary.LittleEndian.AppendUint64(nil, i.u1)
		data = binary.LittleEndian.AppendUint64(data, i.u2)
		lbl := buf.AllocateConstant(data, 16)
		buf.UseLabel(lbl, asm.LabelUseLdr19)
		buf.Emit4Bytes(0b10<<30 | 0b011<<27 | 1<<26 | regNumberInEncoding(i.rd.realReg()))
	case ldar:
		size := uint32(0b10)
		if i.u1 == 64 {
			size = 0b11
		}
		buf.Emit4Bytes(size<<30 | 0b001000<<24 | 0b11<<22 | 0b11111<<16 | 1<<15 | 0b11111<<10 |
			regNumberInEncoding(i.rn.realReg())<<5 | regNumberInEncoding(i.rd.realReg()))
	case stlr:
		size := uint32(0b10)
		if i.u1 == 64 {
			size = 0b11
		}
		buf.Emit4Bytes(size<<30 | 0b001000<<24 | 0b10<<22 | 0b11111<<16 | 1<<15 | 0b11111<<10 |
			regNumberInEncoding(i.rm.realReg())<<5 | regNumberInEncoding(i.rn.realReg()))
	case atomicRmwLoop:
		m.encodeAtomicRmwLoop(buf, i)
	case atomicCasLoop:
		m.encodeAtomicCasLoop(buf, i)
	case lseRmw:
		buf.Emit4Bytes(encodeLSERmw(AtomicRmwOpFromU64(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rm.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			i.u2 == 64))
	case lseCas:
		// CASAL Xs, Xt, [Xn].
		size := uint32(0b10)
		if i.u2 == 64 {
			size = 0b11
		}
		buf.Emit4Bytes(size<<30 | 0b0010001<<23 | 1<<22 | 1<<21 |
			regNumberInEncoding(i.rd.realReg())<<16 | 1<<15 | 0b11111<<10 |
			regNumberInEncoding(i.rn.realReg())<<5 | regNumberInEncoding(i.rm.realReg()))
	case vecRRR:
		buf.Emit4Bytes(encodeVecRRR(
			vecOp(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			regNumberInEncoding(i.rm.realReg()),
			vecArrangement(i.u2),
		))
	case vecMisc:
		buf.Emit4Bytes(encodeAdvancedSIMDTwoMisc(
			vecOp(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			vecArrangement(i.u2),
		))
	case vecLanes:
		buf.Emit4Bytes(encodeVecLanes(
			vecOp(i.u1),
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			vecArrangement(i.u2),
		))
	case vecDup:
		buf.Emit4Bytes(encodeVecDup(
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			vecArrangement(i.u1),
		))
	case movToVec:
		buf.Emit4Bytes(encodeMoveToVec(
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			vecArrangement(i.u1),
			byte(i.u2),
		))
	case movFromVec:
		buf.Emit4Bytes(encodeMoveFromVec(
			regNumberInEncoding(i.rd.realReg()),
			regNumberInEncoding(i.rn.realReg()),
			vecArrangement(i.u1),
			byte(i.u2),
			i.u3 == 1,
		))
	case adrpAdd:
		rd := regNumberInEncoding(i.rd.realReg())
		buf.AddReloc(asm.RelocAdrPageRel21, i.sym, int64(i.u1))
		buf.Emit4Bytes(1<<31 | 0b10000<<24 | rd) // adrp rd, #0
		buf.AddReloc(asm.RelocAddAbsLo12, i.sym, int64(i.u1))
		buf.Emit4Bytes(encodeAluRRImm12(aluOpAdd, rd, rd, 0, 0, true))
	case tlsLE:
		rd := regNumberInEncoding(i.rd.realReg())
		buf.Emit4Bytes(0xd53bd040 | rd) // mrs rd, tpidr_el0
		buf.AddReloc(asm.RelocTLSLE, i.sym, 0)
		buf.Emit4Bytes(encodeAluRRImm12(aluOpAdd, rd, rd, 0, 0, true))
	case stackAddr:
		rd := regNumberInEncoding(i.rd.realReg())
		off := m.stackSlotOffset(uint32(i.u1)) + int64(i.u2)
		lo := uint32(off) & 0xfff
		hi := uint32(off>>12) & 0xfff
		buf.Emit4Bytes(encodeAluRRImm12(aluOpAdd, rd, regNumberInEncoding(sp), uint16(lo), 0, true))
		if hi != 0 {
			buf.Emit4Bytes(encodeAluRRImm12(aluOpAdd, rd, rd, uint16(hi), 1, true))
		}
	case bti:
		buf.Emit4Bytes(0xd503245f) // bti c
	case paciasp:
		buf.Emit4Bytes(0xd503233f)
	case autiasp:
		buf.Emit4Bytes(0xd50323bf)
	default:
		panic("BUG: unencodable instruction: " + i.String())
	}
}

// AtomicRmwOpFromU64 is a helper converting the stashed ssa op back.
func AtomicRmwOpFromU64(v uint64) byte { return byte(v) }

func encodeRet() uint32 {
	return 0b1101011<<25 | 0b10<<21 | 0b11111<<16 | 30<<5
}

func encodeBrk(code uint32) uint32 {
	return 0b11010100001<<21 | (code&0xffff)<<5
}

// encodeUnconditionalBranch encodes B or BL with the given word-scaled
// offset (the displacement is usually patched via a fix-up).
func encodeUnconditionalBranch(link bool, imm26 int64) uint32 {
	var op uint32
	if link {
		op = 0b1
	}
	return op<<31 | 0b000101<<26 | uint32(imm26)&0x03ff_ffff
}

func encodeUnconditionalBranchReg(rn uint32, link bool) uint32 {
	var opc uint32
	if link {
		opc = 0b0001
	}
	return 0b1101011<<25 | opc<<21 | 0b11111<<16 | rn<<5
}

func encodeCBZCBNZ(rt uint32, nonZero bool, imm19 uint32, is64bit bool) uint32 {
	var op uint32
	if nonZero {
		op = 1
	}
	var sf uint32
	if is64bit {
		sf = 1
	}
	return sf<<31 | 0b011010<<25 | op<<24 | (imm19&0x7ffff)<<5 | rt
}

// encodeMoveWideImmediate encodes MOVN (opc=00), MOVZ (opc=10), MOVK
// (opc=11).
func encodeMoveWideImmediate(opc uint32, rd uint32, imm16, hw, sf uint64) uint32 {
	var sfBit uint32
	if sf == 1 {
		sfBit = 1
	}
	return sfBit<<31 | opc<<29 | 0b100101<<23 | uint32(hw)<<21 | uint32(imm16&0xffff)<<5 | rd
}

func encodeAluRRRInstr(i *instruction) uint32 {
	op := aluOp(i.u1)
	rd := regNumberInEncoding(i.rd.realReg())
	rn := regNumberInEncoding(i.rn.realReg())
	is64 := i.u3 == 1
	switch i.rm.kind {
	case operandKindNR:
		return encodeAluRRR(op, rd, rn, regNumberInEncoding(i.rm.realReg()), is64, i.rn.realReg() == sp)
	case operandKindSR:
		r, amt, sop := i.rm.sr()
		return encodeAluRRRShifted(op, rd, rn, regNumberInEncoding(r.RealReg()), uint32(amt), sop, is64)
	case operandKindER:
		r, eop := i.rm.er()
		return encodeAluRRRExtended(op, rd, rn, regNumberInEncoding(r.RealReg()), eop, is64)
	default:
		panic("BUG: invalid rm operand kind for alu_rrr")
	}
}

// encodeAluRRR encodes the register (non-shifted) forms of the data
// processing instructions.
func encodeAluRRR(op aluOp, rd, rn, rm uint32, is64bit, rnIsSP bool) uint32 {
	var sf uint32
	if is64bit {
		sf = 1
	}
	switch op {
	case aluOpAdd, aluOpAddS, aluOpSub, aluOpSubS:
		if rnIsSP {
			// Must use the extended-register form to address SP.
			return encodeAluRRRExtended(op, rd, rn, rm, extendOpUXTX, is64bit)
		}
		return encodeAluRRRShifted(op, rd, rn, rm, 0, shiftOpLSL, is64bit)
	case aluOpAdc:
		return sf<<31 | 0b11010000<<21 | rm<<16 | rn<<5 | rd
	case aluOpSbc:
		return sf<<31 | 1<<30 | 0b11010000<<21 | rm<<16 | rn<<5 | rd
	case aluOpAnd, aluOpAndS, aluOpOrr, aluOpOrn, aluOpEor:
		var opc, n uint32
		switch op {
		case aluOpAnd:
			opc = 0b00
		case aluOpOrr:
			opc = 0b01
		case aluOpOrn:
			opc, n = 0b01, 1
		case aluOpEor:
			opc = 0b10
		case aluOpAndS:
			opc = 0b11
		}
		return encodeLogicalShiftedRegister(opc, n, rm, 0, rn, rd, is64bit)
	case aluOpLsl, aluOpLsr, aluOpAsr, aluOpRor:
		// Data-processing (2 source): LSLV/LSRV/ASRV/RORV.
		var opcode uint32
		switch op {
		case aluOpLsl:
			opcode = 0b001000
		case aluOpLsr:
			opcode = 0b001001
		case aluOpAsr:
			opcode = 0b001010
		case aluOpRor:
			opcode = 0b001011
		}
		return sf<<31 | 0b11010110<<21 | rm<<16 | opcode<<10 | rn<<5 | rd
	case aluOpUDiv:
		return sf<<31 | 0b11010110<<21 | rm<<16 | 0b000010<<10 | rn<<5 | rd
	case aluOpSDiv:
		return sf<<31 | 0b11010110<<21 | rm<<16 | 0b000011<<10 | rn<<5 | rd
	case aluOpUMulH:
		return sf<<31 | 0b11011<<24 | 0b110<<21 | rm<<16 | 0b11111<<10 | rn<<5 | rd
	case aluOpSMulH:
		return sf<<31 | 0b11011<<24 | 0b010<<21 | rm<<16 | 0b11111<<10 | rn<<5 | rd
	default:
		panic("BUG: unsupported register-form alu op: " + op.String())
	}
}

// encodeAluRRRShifted encodes the add/sub (shifted register) forms.
func encodeAluRRRShifted(op aluOp, rd, rn, rm, amount uint32, sop shiftOp, is64bit bool) uint32 {
	var sf uint32
	if is64bit {
		sf = 1
	}
	var opBit, sBit uint32
	switch op {
	case aluOpAdd:
	case aluOpAddS:
		sBit = 1
	case aluOpSub:
		opBit = 1
	case aluOpSubS:
		opBit, sBit = 1, 1
	default:
		// Logical ops with shifted register.
		var opc, n uint32
		switch op {
		case aluOpAnd:
			opc = 0b00
		case aluOpOrr:
			opc = 0b01
		case aluOpOrn:
			opc, n = 0b01, 1
		case aluOpEor:
			opc = 0b10
		case aluOpAndS:
			opc = 0b11
		default:
			panic("BUG: unsupported shifted alu op: " + op.String())
		}
		return encodeLogicalShiftedRegisterWithShift(opc, n, rm, amount, uint32(sop), rn, rd, is64bit)
	}
	return sf<<31 | opBit<<30 | sBit<<29 | 0b01011<<24 | uint32(sop)<<22 | rm<<16 | amount<<10 | rn<<5 | rd
}

// encodeAluRRRExtended encodes the add/sub (extended register) forms.
func encodeAluRRRExtended(op aluOp, rd, rn, rm uint32, eop extendOp, is64bit bool) uint32 {
	var sf uint32
	if is64bit {
		sf = 1
	}
	var opBit, sBit uint32
	switch op {
	case aluOpAdd:
	case aluOpAddS:
		sBit = 1
	case aluOpSub:
		opBit = 1
	case aluOpSubS:
		opBit, sBit = 1, 1
	default:
		panic("BUG: extended-register form only exists for add/sub: " + op.String())
	}
	return sf<<31 | opBit<<30 | sBit<<29 | 0b01011<<24 | 0b001<<21 | rm<<16 | uint32(eop)<<13 | rn<<5 | rd
}

func encodeLogicalShiftedRegister(opc, n, rm, amount, rn, rd uint32, is64bit bool) uint32 {
	return encodeLogicalShiftedRegisterWithShift(opc, n, rm, amount, 0, rn, rd, is64bit)
}

func encodeLogicalShiftedRegisterWithShift(opc, n, rm, amount, shiftType, rn, rd uint32, is64bit bool) uint32 {
	var sf uint32
	if is64bit {
		sf = 1
	}
	return sf<<31 | opc<<29 | 0b01010<<24 | shiftType<<22 | n<<21 | rm<<16 | amount<<10 | rn<<5 | rd
}

// encodeAluRRImm12 encodes add/sub (immediate).
func encodeAluRRImm12(op aluOp, rd, rn uint32, imm12 uint16, shift byte, is64bit bool) uint32 {
	var sf uint32
	if is64bit {
		sf = 1
	}
	var opBit, sBit uint32
	switch op {
	case aluOpAdd:
	case aluOpAddS:
		sBit = 1
	case aluOpSub:
		opBit = 1
	case aluOpSubS:
		opBit, sBit = 1, 1
	default:
		panic("BUG: imm12 form only exists for add/sub: " + op.String())
	}
	return sf<<31 | opBit<<30 | sBit<<29 | 0b10001<<24 | uint32(shift)<<22 | uint32(imm12&0xfff)<<10 | rn<<5 | rd
}

// encodeAluBitmaskImmediate encodes the logical (immediate) forms.
func encodeAluBitmaskImmediate(op aluOp, rd, rn, n, immr, imms uint32, is64bit bool) uint32 {
	var sf uint32
	if is64bit {
		sf = 1
	}
	var opc uint32
	switch op {
	case aluOpAnd:
		opc = 0b00
	case aluOpOrr:
		opc = 0b01
	case aluOpEor:
		opc = 0b10
	case aluOpAndS:
		opc = 0b11
	default:
		panic("BUG: bitmask form only exists for logical ops: " + op.String())
	}
	return sf<<31 | opc<<29 | 0b100100<<23 | n<<22 | immr<<16 | imms<<10 | rn<<5 | rd
}

// encodeAluRRImmShift encodes constant shifts as UBFM/SBFM aliases.
func encodeAluRRImmShift(op aluOp, rd, rn, amount uint32, is64bit bool) uint32 {
	var sf, n, width uint32
	width = 32
	if is64bit {
		sf, n = 1, 1
		width = 64
	}
	var opc, immr, imms uint32
	switch op {
	case aluOpLsl:
		opc = 0b10 // UBFM
		immr = (width - amount) % width
		imms = width - 1 - amount
	case aluOpLsr:
		opc = 0b10
		immr = amount
		imms = width - 1
	case aluOpAsr:
		opc = 0b00 // SBFM
		immr = amount
		imms = width - 1
	default:
		panic("BUG: immediate-shift form only exists for shifts: " + op.String())
	}
	return sf<<31 | opc<<29 | 0b100110<<23 | n<<22 | immr<<16 | imms<<10 | rn<<5 | rd
}

// encodeAluRRRR encodes the data-processing (3 source) instructions.
func encodeAluRRRR(op aluOp, rd, rn, rm, ra uint32, is64bit bool) uint32 {
	var sf uint32
	if is64bit {
		sf = 1
	}
	var o0 uint32
	switch op {
	case aluOpMAdd:
	case aluOpMSub:
		o0 = 1
	default:
		panic("BUG: 3-source form only exists for madd/msub: " + op.String())
	}
	return sf<<31 | 0b11011<<24 | rm<<16 | o0<<15 | ra<<10 | rn<<5 | rd
}

// encodeBitRR encodes the data-processing (1 source) bit operations.
func encodeBitRR(op bitOp, rd, rn uint32, is64bit bool) uint32 {
	var sf uint32
	if is64bit {
		sf = 1
	}
	var opcode uint32
	switch op {
	case bitOpRbit:
		opcode = 0b000000
	case bitOpClz:
		opcode = 0b000100
	default:
		panic(int(op))
	}
	return sf<<31 | 0b1<<30 | 0b11010110<<21 | opcode<<10 | rn<<5 | rd
}

// encodeExtend encodes sign/zero extensions as SBFM/UBFM aliases.
func encodeExtend(signed bool, fromBits, toBits byte, rd, rn uint32) uint32 {
	if !signed && toBits <= 32 && fromBits == 32 {
		// uxtw to 32 bits is just a 32-bit mov.
		return encodeLogicalShiftedRegister(0b01, 0, rn, 0, 31, rd, false)
	}
	var sf, n, opc uint32
	if signed {
		opc = 0b00
	} else {
		opc = 0b10
	}
	if toBits == 64 && (signed || fromBits == 32) && !(fromBits == 32 && !signed) {
		sf, n = 1, 1
	}
	if !signed && fromBits == 32 && toBits == 64 {
		// uxtw: a 32-bit mov zero-extends implicitly.
		return encodeLogicalShiftedRegister(0b01, 0, rn, 0, 31, rd, false)
	}
	imms := uint32(fromBits) - 1
	return sf<<31 | opc<<29 | 0b100110<<23 | n<<22 | imms<<10 | rn<<5 | rd
}

// encodeConditionalSelect encodes the CSEL/CSNEG/CSINV/CSINC family.
func encodeConditionalSelect(kind instructionKind, rd, rn, rm uint32, c condFlag, is64bit bool) uint32 {
	var sf uint32
	if is64bit {
		sf = 1
	}
	var op, o2 uint32
	switch kind {
	case cSel:
	case cSelInc:
		o2 = 1
	case cSelInv:
		op = 1
	case cSelNeg:
		op, o2 = 1, 1
	default:
		panic("BUG")
	}
	return sf<<31 | op<<30 | 0b11010100<<21 | rm<<16 | uint32(c)<<12 | o2<<10 | rn<<5 | rd
}

func encodeFpuCSel(rd, rn, rm uint32, c condFlag, is64bit bool) uint32 {
	var ftype uint32
	if is64bit {
		ftype = 0b01
	}
	return 0b1111<<25 | ftype<<22 | 0b1<<21 | rm<<16 | uint32(c)<<12 | 0b11<<10 | rn<<5 | rd
}

// encodeFpuRRR encodes floating-point data-processing (2 source).
func encodeFpuRRR(op fpuBinOp, rd, rn, rm uint32, is64bit bool) uint32 {
	var opcode uint32
	switch op {
	case fpuBinOpMul:
		opcode = 0b0000
	case fpuBinOpDiv:
		opcode = 0b0001
	case fpuBinOpAdd:
		opcode = 0b0010
	case fpuBinOpSub:
		opcode = 0b0011
	case fpuBinOpMax:
		opcode = 0b0100
	case fpuBinOpMin:
		opcode = 0b0101
	default:
		panic(int(op))
	}
	var ptype uint32
	if is64bit {
		ptype = 0b01
	}
	return 0b1111<<25 | ptype<<22 | 0b1<<21 | rm<<16 | opcode<<12 | 0b10<<10 | rn<<5 | rd
}

// encodeFloatDataOneSource encodes floating-point data-processing (1
// source).
func encodeFloatDataOneSource(op fpuUniOp, rd, rn uint32, dst64bit bool) uint32 {
	var opcode, ptype uint32
	switch op {
	case fpuUniOpCvt32To64:
		opcode = 0b000101
	case fpuUniOpCvt64To32:
		opcode = 0b000100
		ptype = 0b01
	case fpuUniOpNeg:
		opcode = 0b000010
		if dst64bit {
			ptype = 0b01
		}
	case fpuUniOpSqrt:
		opcode = 0b000011
		if dst64bit {
			ptype = 0b01
		}
	case fpuUniOpRoundPlus:
		opcode = 0b001001
		if dst64bit {
			ptype = 0b01
		}
	case fpuUniOpRoundMinus:
		opcode = 0b001010
		if dst64bit {
			ptype = 0b01
		}
	case fpuUniOpRoundZero:
		opcode = 0b001011
		if dst64bit {
			ptype = 0b01
		}
	case fpuUniOpRoundNearest:
		opcode = 0b001000
		if dst64bit {
			ptype = 0b01
		}
	case fpuUniOpAbs:
		opcode = 0b000001
		if dst64bit {
			ptype = 0b01
		}
	default:
		panic(int(op))
	}
	return 0b1111<<25 | ptype<<22 | 0b1<<21 | opcode<<15 | 0b1<<14 | rn<<5 | rd
}

// encodeCnvBetweenFloatInt encodes conversions between floating-point and
// integer registers.
func encodeCnvBetweenFloatInt(i *instruction) uint32 {
	rd := regNumberInEncoding(i.rd.realReg())
	rn := regNumberInEncoding(i.rn.realReg())

	var opcode, rmode, ptype, sf uint32
	switch i.kind {
	case intToFpu: // SCVTF or UCVTF.
		rmode = 0b00
		signed := i.u1 == 1
		src64bit := i.u2 == 1
		dst64bit := i.u3 == 1
		if signed {
			opcode = 0b010
		} else {
			opcode = 0b011
		}
		if src64bit {
			sf = 0b1
		}
		if dst64bit {
			ptype = 0b01
		}
	case fpuToInt: // FCVTZS or FCVTZU.
		rmode = 0b11
		signed := i.u1 == 1
		src64bit := i.u2 == 1
		dst64bit := i.u3 == 1
		if signed {
			opcode = 0b000
		} else {
			opcode = 0b001
		}
		if dst64bit {
			sf = 0b1
		}
		if src64bit {
			ptype = 0b01
		}
	}
	return sf<<31 | 0b1111<<25 | ptype<<22 | 0b1<<21 | rmode<<19 | opcode<<16 | rn<<5 | rd
}

// encodeFMovGprFpr encodes FMOV between a general register and a
// floating-point register.
func encodeFMovGprFpr(rd, rn uint32, is64bit, toFpr bool) uint32 {
	var sf, ptype uint32
	if is64bit {
		sf, ptype = 1, 0b01
	}
	var opcode uint32
	if toFpr {
		opcode = 0b111
	} else {
		opcode = 0b110
	}
	return sf<<31 | 0b1111<<25 | ptype<<22 | 0b1<<21 | opcode<<16 | rn<<5 | rd
}

// encodeLoadOrStore encodes the scalar load/store families for the given
// resolved address mode.
func encodeLoadOrStore(kind instructionKind, rt uint32, amode addressMode) uint32 {
	var size, v, opc uint32
	var scale uint32
	switch kind {
	case uLoad8:
		size, opc, scale = 0b00, 0b01, 0
	case sLoad8:
		size, opc, scale = 0b00, 0b10, 0
	case uLoad16:
		size, opc, scale = 0b01, 0b01, 1
	case sLoad16:
		size, opc, scale = 0b01, 0b10, 1
	case uLoad32:
		size, opc, scale = 0b10, 0b01, 2
	case sLoad32:
		size, opc, scale = 0b10, 0b10, 2
	case uLoad64:
		size, opc, scale = 0b11, 0b01, 3
	case store8:
		size, opc, scale = 0b00, 0b00, 0
	case store16:
		size, opc, scale = 0b01, 0b00, 1
	case store32:
		size, opc, scale = 0b10, 0b00, 2
	case store64:
		size, opc, scale = 0b11, 0b00, 3
	case fpuLoad32:
		size, v, opc, scale = 0b10, 1, 0b01, 2
	case fpuStore32:
		size, v, opc, scale = 0b10, 1, 0b00, 2
	case fpuLoad64:
		size, v, opc, scale = 0b11, 1, 0b01, 3
	case fpuStore64:
		size, v, opc, scale = 0b11, 1, 0b00, 3
	case fpuLoad128:
		size, v, opc, scale = 0b00, 1, 0b11, 4
	case fpuStore128:
		size, v, opc, scale = 0b00, 1, 0b10, 4
	default:
		panic("BUG")
	}

	rn := regNumberInEncoding(amode.rn.RealReg())
	switch amode.kind {
	case addressModeKindRegUnsignedImm12:
		imm := uint32(amode.imm) >> scale
		if int64(imm)<<scale != amode.imm || imm >= 1<<12 {
			panic(fmt.Sprintf("BUG: offset %d not encodable as scaled imm12", amode.imm))
		}
		return size<<30 | 0b111<<27 | v<<26 | 0b01<<24 | opc<<22 | imm<<10 | rn<<5 | rt
	case addressModeKindRegSignedImm9:
		imm9 := uint32(amode.imm) & 0x1ff
		return size<<30 | 0b111<<27 | v<<26 | opc<<22 | imm9<<12 | rn<<5 | rt
	case addressModeKindRegReg, addressModeKindRegExtended:
		rm := regNumberInEncoding(amode.rm.RealReg())
		option := uint32(0b011) // LSL
		if amode.kind == addressModeKindRegExtended {
			option = uint32(amode.ext) & 0b111
		}
		var s uint32
		if amode.shifted {
			s = 1
		}
		return size<<30 | 0b111<<27 | v<<26 | opc<<22 | 1<<21 | rm<<16 | option<<13 | s<<12 | 0b10<<10 | rn<<5 | rt
	case addressModeKindPreIndex, addressModeKindPostIndex:
		imm9 := uint32(amode.imm) & 0x1ff
		var idx uint32 = 0b01
		if amode.kind == addressModeKindPreIndex {
			idx = 0b11
		}
		return size<<30 | 0b111<<27 | v<<26 | opc<<22 | imm9<<12 | idx<<10 | rn<<5 | rt
	default:
		panic("BUG: unresolved address mode at encode time")
	}
}

// encodePreOrPostIndexLoadStorePair64 encodes LDP/STP of 64-bit registers.
func encodePreOrPostIndexLoadStorePair64(pre, load bool, rn, rt, rt2 uint32, imm int64) uint32 {
	if imm%8 != 0 {
		panic("BUG: ldp/stp offset must be 8-aligned")
	}
	imm7 := uint32(imm/8) & 0x7f
	var l uint32
	if load {
		l = 1
	}
	var variant uint32 = 0b001 // post-index
	if pre {
		variant = 0b011
	}
	return 0b10<<30 | 0b101<<27 | variant<<23 | l<<22 | imm7<<15 | rt2<<10 | rn<<5 | rt
}

// encodeSignedOffsetLoadStorePair64 encodes LDP/STP with a signed scaled
// offset.
func encodeSignedOffsetLoadStorePair64(load bool, rn, rt, rt2 uint32, imm int64) uint32 {
	imm7 := uint32(imm/8) & 0x7f
	var l uint32
	if load {
		l = 1
	}
	return 0b10<<30 | 0b101<<27 | 0b010<<23 | l<<22 | imm7<<15 | rt2<<10 | rn<<5 | rt
}

// encodeVecRRR encodes "Advanced SIMD three same".
func encodeVecRRR(op vecOp, rd, rn, rm uint32, arr vecArrangement) uint32 {
	q, size := arrToQSize(arr)
	switch op {
	case vecOpAdd:
		return encodeAdvancedSIMDThreeSame(rd, rn, rm, 0b10000, size, 0, q)
	case vecOpSub:
		return encodeAdvancedSIMDThreeSame(rd, rn, rm, 0b10000, size, 1, q)
	case vecOpAnd:
		return encodeAdvancedSIMDThreeSame(rd, rn, rm, 0b00011, 0b00, 0, q)
	case vecOpOrr:
		return encodeAdvancedSIMDThreeSame(rd, rn, rm, 0b00011, 0b10, 0, q)
	case vecOpEor:
		return encodeAdvancedSIMDThreeSame(rd, rn, rm, 0b00011, 0b00, 1, q)
	default:
		panic(int(op))
	}
}

// encodeAdvancedSIMDThreeSame encodes "Advanced SIMD three same".
func encodeAdvancedSIMDThreeSame(rd, rn, rm, opcode, size, u, q uint32) uint32 {
	return q<<30 | u<<29 | 0b1110<<24 | size<<22 | 0b1<<21 | rm<<16 | opcode<<11 | 0b1<<10 | rn<<5 | rd
}

// encodeAdvancedSIMDTwoMisc encodes "Advanced SIMD two-register
// miscellaneous".
func encodeAdvancedSIMDTwoMisc(op vecOp, rd, rn uint32, arr vecArrangement) uint32 {
	q, size := arrToQSize(arr)
	switch op {
	case vecOpCnt:
		return q<<30 | 0b1110<<24 | size<<22 | 0b10000<<17 | 0b00101<<12 | 0b10<<10 | rn<<5 | rd
	default:
		panic(int(op))
	}
}

// encodeVecLanes encodes "Advanced SIMD across lanes".
func encodeVecLanes(op vecOp, rd, rn uint32, arr vecArrangement) uint32 {
	q, size := arrToQSize(arr)
	switch op {
	case vecOpAddv:
		return q<<30 | 0b1110<<24 | size<<22 | 0b11000<<17 | 0b11011<<12 | 0b10<<10 | rn<<5 | rd
	case vecOpUaddlv:
		return q<<30 | 1<<29 | 0b1110<<24 | size<<22 | 0b11000<<17 | 0b00011<<12 | 0b10<<10 | rn<<5 | rd
	default:
		panic(int(op))
	}
}

// encodeVecDup encodes DUP (general).
func encodeVecDup(rd, rn uint32, arr vecArrangement) uint32 {
	q, imm5 := arrToQImm5(arr)
	return q<<30 | 0b1110000<<21 | imm5<<16 | 0b000011<<10 | rn<<5 | rd
}

// encodeMoveToVec encodes INS (general).
func encodeMoveToVec(rd, rn uint32, arr vecArrangement, index byte) uint32 {
	imm5 := elemImm5(arr, index)
	return 0b01001110000<<21 | imm5<<16 | 0b000111<<10 | rn<<5 | rd
}

// encodeMoveFromVec encodes UMOV/SMOV (general).
func encodeMoveFromVec(rd, rn uint32, arr vecArrangement, index byte, signed bool) uint32 {
	imm5 := elemImm5(arr, index)
	var q, opcode uint32
	if signed {
		opcode = 0b001011
		if arr == vecArrangementD || arr == vecArrangementS {
			q = 1
		}
	} else {
		opcode = 0b001111
		if arr == vecArrangementD {
			q = 1
		}
	}
	return q<<30 | 0b1110000<<21 | imm5<<16 | opcode<<10 | rn<<5 | rd
}

// encodeLSERmw encodes the LSE single-instruction atomics.
func encodeLSERmw(op byte, rt, rs, rn uint32, is64 bool) uint32 {
	size := uint32(0b10)
	if is64 {
		size = 0b11
	}
	// A=1, R=1: acquire-release.
	base := size<<30 | 0b111000<<24 | 1<<23 | 1<<22 | 1<<21 | rs<<16 | rn<<5 | rt
	switch op {
	case 0: // add
		return base
	case 2: // and -> LDCLR of complement is the real mapping; bic form
		return base | 0b001<<12
	case 3: // or -> LDSET
		return base | 0b011<<12
	case 4: // xor -> LDEOR
		return base | 0b010<<12
	case 5: // xchg -> SWP
		return base | 1<<15
	default:
		panic("BUG: LSE form not available for this rmw op")
	}
}

func arrToQSize(arr vecArrangement) (q, size uint32) {
	switch arr {
	case vecArrangement8B:
		return 0, 0b00
	case vecArrangement16B:
		return 1, 0b00
	case vecArrangement4H:
		return 0, 0b01
	case vecArrangement8H:
		return 1, 0b01
	case vecArrangement2S:
		return 0, 0b10
	case vecArrangement4S:
		return 1, 0b10
	case vecArrangement2D:
		return 1, 0b11
	default:
		panic(int(arr))
	}
}

func arrToQImm5(arr vecArrangement) (q, imm5 uint32) {
	switch arr {
	case vecArrangement8B:
		return 0, 0b00001
	case vecArrangement16B:
		return 1, 0b00001
	case vecArrangement4H:
		return 0, 0b00010
	case vecArrangement8H:
		return 1, 0b00010
	case vecArrangement2S:
		return 0, 0b00100
	case vecArrangement4S:
		return 1, 0b00100
	case vecArrangement2D:
		return 1, 0b01000
	default:
		panic(int(arr))
	}
}

func elemImm5(arr vecArrangement, index byte) uint32 {
	switch arr {
	case vecArrangementB:
		return uint32(index)<<1 | 0b1
	case vecArrangementH:
		return uint32(index)<<2 | 0b10
	case vecArrangementS:
		return uint32(index)<<3 | 0b100
	case vecArrangementD:
		return uint32(index)<<4 | 0b1000
	default:
		panic(int(arr))
	}
}

// encodeAtomicRmwLoop expands the LDAXR/STLXR loop for one RMW operation.
// x16/x17 are the reserved scratch registers.
func (m *machine) encodeAtomicRmwLoop(buf *asm.Buffer, i *instruction) {
	rd := regNumberInEncoding(i.rd.realReg())
	rn := regNumberInEncoding(i.rn.realReg())
	rm := regNumberInEncoding(i.rm.realReg())
	is64 := i.u2 == 64
	size := uint32(0b10)
	if is64 {
		size = 0b11
	}
	const status, scratch = 16, 17

	// loop: ldaxr rd, [rn]
	buf.Emit4Bytes(size<<30 | 0b001000<<24 | 0b01<<22 | 0b11111<<16 | 1<<15 | 0b11111<<10 | rn<<5 | rd)
	// <op> x17, rd, rm
	var opWord uint32
	switch byte(i.u1) {
	case 0: // add
		opWord = encodeAluRRR(aluOpAdd, scratch, rd, rm, is64, false)
	case 1: // sub
		opWord = encodeAluRRR(aluOpSub, scratch, rd, rm, is64, false)
	case 2: // and
		opWord = encodeAluRRR(aluOpAnd, scratch, rd, rm, is64, false)
	case 3: // or
		opWord = encodeAluRRR(aluOpOrr, scratch, rd, rm, is64, false)
	case 4: // xor
		opWord = encodeAluRRR(aluOpEor, scratch, rd, rm, is64, false)
	case 5: // xchg
		opWord = encodeLogicalShiftedRegister(0b01, 0, rm, 0, 31, scratch, true)
	default:
		panic("BUG")
	}
	buf.Emit4Bytes(opWord)
	// stlxr w16, x17, [rn]
	buf.Emit4Bytes(size<<30 | 0b001000<<24 | status<<16 | 1<<15 | 0b11111<<10 | rn<<5 | scratch)
	// cbnz w16, loop (-12 bytes)
	off := int32(-3)
	buf.Emit4Bytes(encodeCBZCBNZ(status, true, uint32(off)&0x7ffff, false))
}

// encodeAtomicCasLoop expands the LDAXR/STLXR compare-and-swap loop.
// rd holds the expected value on entry and the observed value on exit.
func (m *machine) encodeAtomicCasLoop(buf *asm.Buffer, i *instruction) {
	rd := regNumberInEncoding(i.rd.realReg())
	rn := regNumberInEncoding(i.rn.realReg())
	rm := regNumberInEncoding(i.rm.realReg())
	is64 := i.u2 == 64
	size := uint32(0b10)
	if is64 {
		size = 0b11
	}
	const status, scratch = 16, 17

	// loop: ldaxr x17, [rn]
	buf.Emit4Bytes(size<<30 | 0b001000<<24 | 0b01<<22 | 0b11111<<16 | 1<<15 | 0b11111<<10 | rn<<5 | scratch)
	// cmp x17, rd
	buf.Emit4Bytes(encodeAluRRRShifted(aluOpSubS, 31, scratch, rd, 0, shiftOpLSL, is64))
	// b.ne done (+12 bytes)
	buf.Emit4Bytes(0b01010100<<24 | 3<<5 | uint32(ne))
	// stlxr w16, rm, [rn]
	buf.Emit4Bytes(size<<30 | 0b001000<<24 | status<<16 | 1<<15 | 0b11111<<10 | rn<<5 | rm)
	// cbnz w16, loop (-16 bytes)
	off := int32(-4)
	buf.Emit4Bytes(encodeCBZCBNZ(status, true, uint32(off)&0x7ffff, false))
	// done: mov rd, x17
	buf.Emit4Bytes(encodeLogicalShiftedRegister(0b01, 0, scratch, 0, 31, rd, is64))
}

// encodeBrTable emits the branch-table dispatch: clamp the index, compute
// the entry address, load the entry's 32-bit displacement and jump. Each
// table entry is patched with a PC-relative fix-up to its target block.
func (m *machine) encodeBrTable(buf *asm.Buffer, i *instruction) {
	index := regNumberInEncoding(i.rn.realReg())
	n := len(i.targets)
	const tmp1, tmp2 = 16, 17

	// movz x16, #(n-1)
	buf.Emit4Bytes(encodeMoveWideImmediate(0b10, tmp1, uint64(n-1), 0, 1))
	// cmp index, x16
	buf.Emit4Bytes(encodeAluRRRShifted(aluOpSubS, 31, index, tmp1, 0, shiftOpLSL, true))
	// csel x16, index, x16, lo: clamp out-of-range to the last entry.
	buf.Emit4Bytes(encodeConditionalSelect(cSel, tmp1, index, tmp1, lo, true))
	// adr x17, #24: the table base, six instructions ahead.
	buf.Emit4Bytes(encodeAdr(tmp2, 24))
	// add x17, x17, x16, lsl #2: the entry address.
	buf.Emit4Bytes(encodeAluRRRShifted(aluOpAdd, tmp2, tmp2, tmp1, 2, shiftOpLSL, true))
	// ldrsw x16, [x17]: the entry's displacement, relative to entry+4.
	buf.Emit4Bytes(encodeLoadOrStore(sLoad32, tmp1, addressModeUnsigned(tmpReg2, 0)))
	// add x17, x17, x16; add x17, x17, #4: the target address.
	buf.Emit4Bytes(encodeAluRRRShifted(aluOpAdd, tmp2, tmp2, tmp1, 0, shiftOpLSL, true))
	buf.Emit4Bytes(encodeAluRRImm12(aluOpAdd, tmp2, tmp2, 4, 0, true))
	// br x17
	buf.Emit4Bytes(encodeUnconditionalBranchReg(tmp2, false))

	for _, target := range i.targets {
		buf.UseLabel(m.labelFor(target), asm.LabelUsePCRel32)
		buf.Emit4Bytes(0)
	}
}

// encodeAdr encodes ADR with a byte displacement.
func encodeAdr(rd uint32, imm uint32) uint32 {
	immlo := imm & 0b11
	immhi := (imm >> 2) & 0x7ffff
	return immlo<<29 | 0b10000<<24 | immhi<<5 | rd
}
