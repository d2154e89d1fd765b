package arm64

import (
	"fmt"
	"strings"

	"github.com/joelreymont/hoist/backend/regalloc"
)

type (
	// instruction represents either a real instruction in arm64, or a meta
	// instruction convenient for code generation (spill accesses, trap
	// sequences, inline constants). Each instruction knows how to encode
	// itself, so the final output of compilation is equivalent to the
	// sequence of these.
	//
	// Each field is interpreted depending on the kind.
	instruction struct {
		kind       instructionKind
		u1, u2, u3 uint64
		rd, rn, rm, ra operand
		amode      addressMode
		sym        string
		targets    []uint32
		argRegs    []regalloc.Reg
		retRegs    []regalloc.Reg
	}

	// instructionKind represents the kind of instruction.
	// This controls how the instruction struct is interpreted.
	instructionKind byte
)

const (
	nop0 instructionKind = iota
	// aluRRR is a data-processing instruction rd = rn <op> rm, where rm may
	// be a plain, shifted or extended register.
	aluRRR
	// aluRRRR is a data-processing-3-source instruction rd = ra ± rn*rm.
	aluRRRR
	// aluRRImm12 is rd = rn <op> imm12.
	aluRRImm12
	// aluRRBitmaskImm is a logical operation with an encoded bitmask
	// immediate in u2.
	aluRRBitmaskImm
	// aluRRImmShift is a constant-amount shift.
	aluRRImmShift
	// bitRR is a one-source bit operation (rbit, clz).
	bitRR
	// ccmpImm is a conditional compare with a 5-bit immediate.
	ccmpImm
	// movZ/movN/movK are the move-wide-immediate family.
	movZ
	movN
	movK
	// mov64 and mov32 are integer register moves.
	mov64
	mov32
	// extend is a sign/zero extension (SBFM/UBFM alias).
	extend
	// cSet materializes a condition flag as 0/1.
	cSet
	// cSel is a conditional select; cSelNeg/cSelInv/cSelInc are the
	// CSNEG/CSINV/CSINC forms.
	cSel
	cSelNeg
	cSelInv
	cSelInc
	// fpuCSel is a floating-point conditional select.
	fpuCSel
	// fpuMov64/fpuMov128 move between FP/vector registers.
	fpuMov64
	fpuMov128
	// fpuRR is a one-source FP operation.
	fpuRR
	// fpuRRR is a two-source FP operation.
	fpuRRR
	// fpuRRRR is FMADD/FMSUB.
	fpuRRRR
	// fpuCmp is FCMP.
	fpuCmp
	// fpuToInt is FCVTZS/FCVTZU; intToFpu is SCVTF/UCVTF.
	fpuToInt
	intToFpu
	// movToFpu/movFromFpu are FMOV between integer and FP registers.
	movToFpu
	movFromFpu
	// Loads; u-prefixed zero-extend, s-prefixed sign-extend.
	uLoad8
	uLoad16
	uLoad32
	uLoad64
	sLoad8
	sLoad16
	sLoad32
	fpuLoad32
	fpuLoad64
	fpuLoad128
	// Stores.
	store8
	store16
	store32
	store64
	fpuStore32
	fpuStore64
	fpuStore128
	// loadP64/storeP64 are LDP/STP of two 64-bit registers.
	loadP64
	storeP64
	// loadFpuConst* load a literal from a constant island.
	loadFpuConst32
	loadFpuConst64
	loadFpuConst128
	// condBr is a conditional branch on a cond; br is unconditional.
	condBr
	br
	// brTableSequence is the branch-table dispatch sequence plus its
	// inline offset table.
	brTableSequence
	// call is BL to a symbol (relocated); callInd is BLR.
	call
	callInd
	ret
	// brk is a trap site; trapIf is a conditional trap sequence.
	brk
	trapIf
	// seqPoint records a source position; emits no bytes.
	seqPoint
	// dmb is a full barrier.
	dmb
	// ldar/stlr are acquire loads and release stores.
	ldar
	stlr
	// atomicRmwLoop and atomicCasLoop are LDAXR/STLXR sequences; lseRmw
	// and lseCas are the single-instruction LSE forms.
	atomicRmwLoop
	atomicCasLoop
	lseRmw
	lseCas
	// Vector operations.
	vecRRR
	vecMisc
	vecLanes
	vecDup
	movToVec
	movFromVec
	// adrpAdd materializes a symbol address with an ADRP/ADD pair and two
	// relocations; tlsLE materializes a TLS-LE address.
	adrpAdd
	tlsLE
	// stackAddr is rd = sp + frame offset of a stack slot.
	stackAddr
	// Control-flow integrity and pointer-authentication markers.
	bti
	paciasp
	autiasp
	numInstructionKinds
)

type aluOp byte

const (
	aluOpAdd aluOp = iota
	aluOpAddS
	aluOpSub
	aluOpSubS
	aluOpAdc
	aluOpSbc
	aluOpAnd
	aluOpAndS
	aluOpOrr
	aluOpOrn
	aluOpEor
	aluOpLsl
	aluOpLsr
	aluOpAsr
	aluOpRor
	aluOpUDiv
	aluOpSDiv
	aluOpMAdd
	aluOpMSub
	aluOpUMulH
	aluOpSMulH
)

// String implements fmt.Stringer.
func (a aluOp) String() string {
	switch a {
	case aluOpAdd:
		return "add"
	case aluOpAddS:
		return "adds"
	case aluOpSub:
		return "sub"
	case aluOpSubS:
		return "subs"
	case aluOpAdc:
		return "adc"
	case aluOpSbc:
		return "sbc"
	case aluOpAnd:
		return "and"
	case aluOpAndS:
		return "ands"
	case aluOpOrr:
		return "orr"
	case aluOpOrn:
		return "orn"
	case aluOpEor:
		return "eor"
	case aluOpLsl:
		return "lsl"
	case aluOpLsr:
		return "lsr"
	case aluOpAsr:
		return "asr"
	case aluOpRor:
		return "ror"
	case aluOpUDiv:
		return "udiv"
	case aluOpSDiv:
		return "sdiv"
	case aluOpMAdd:
		return "madd"
	case aluOpMSub:
		return "msub"
	case aluOpUMulH:
		return "umulh"
	case aluOpSMulH:
		return "smulh"
	default:
		panic(int(a))
	}
}

type bitOp byte

const (
	bitOpRbit bitOp = iota
	bitOpClz
)

type fpuUniOp byte

const (
	fpuUniOpNeg fpuUniOp = iota
	fpuUniOpAbs
	fpuUniOpSqrt
	fpuUniOpRoundPlus
	fpuUniOpRoundMinus
	fpuUniOpRoundZero
	fpuUniOpRoundNearest
	fpuUniOpCvt32To64
	fpuUniOpCvt64To32
)

type fpuBinOp byte

const (
	fpuBinOpAdd fpuBinOp = iota
	fpuBinOpSub
	fpuBinOpMul
	fpuBinOpDiv
	fpuBinOpMax
	fpuBinOpMin
)

type vecOp byte

const (
	vecOpAdd vecOp = iota
	vecOpSub
	vecOpAnd
	vecOpOrr
	vecOpEor
	vecOpCnt
	vecOpAddv
	vecOpUaddlv
)

// vecArrangement is the arrangement specifier of a NEON operation.
type vecArrangement byte

const (
	vecArrangement8B vecArrangement = iota
	vecArrangement16B
	vecArrangement4H
	vecArrangement8H
	vecArrangement2S
	vecArrangement4S
	vecArrangement1D
	vecArrangement2D
	// Scalar element accessors.
	vecArrangementB
	vecArrangementH
	vecArrangementS
	vecArrangementD
)

type addressModeKind byte

const (
	// addressModeKindRegUnsignedImm12 is [rn, #imm] with a scaled unsigned
	// 12-bit immediate.
	addressModeKindRegUnsignedImm12 addressModeKind = iota
	// addressModeKindRegSignedImm9 is [rn, #imm] with an unscaled signed
	// 9-bit immediate.
	addressModeKindRegSignedImm9
	// addressModeKindRegReg is [rn, rm{, LSL #scale}].
	addressModeKindRegReg
	// addressModeKindRegExtended is [rn, rm, UXTW|SXTW {#scale}].
	addressModeKindRegExtended
	// addressModeKindPreIndex is [rn, #imm]!.
	addressModeKindPreIndex
	// addressModeKindPostIndex is [rn], #imm.
	addressModeKindPostIndex
	// addressModeKindSpillSlot addresses a register-allocator spill slot;
	// the SP offset is resolved when the frame is final.
	addressModeKindSpillSlot
	// addressModeKindStackSlot addresses an IR-declared stack slot.
	addressModeKindStackSlot
)

type addressMode struct {
	kind    addressModeKind
	rn, rm  regalloc.Reg
	imm     int64
	ext     extendOp
	shifted bool
}

func addressModePreOrPostIndex(rn regalloc.Reg, imm int64, pre bool) addressMode {
	k := addressModeKindPostIndex
	if pre {
		k = addressModeKindPreIndex
	}
	return addressMode{kind: k, rn: rn, rm: regalloc.RegInvalid, imm: imm}
}

func addressModeUnsigned(rn regalloc.Reg, imm int64) addressMode {
	return addressMode{kind: addressModeKindRegUnsignedImm12, rn: rn, rm: regalloc.RegInvalid, imm: imm}
}

func addressModeSpill(slot uint32) addressMode {
	return addressMode{kind: addressModeKindSpillSlot, rn: spReg, rm: regalloc.RegInvalid, imm: int64(slot)}
}

func addressModeStackSlot(slot uint32, offset int64) addressMode {
	return addressMode{kind: addressModeKindStackSlot, rn: spReg, rm: regalloc.RegInvalid, imm: int64(slot)<<32 | offset}
}

func (a *addressMode) stackSlot() (slot uint32, offset int64) {
	return uint32(a.imm >> 32), a.imm & 0xffffffff
}

type defKind byte

const (
	defKindNone defKind = iota + 1
	defKindRD
	defKindCall
)

var defKinds = [numInstructionKinds]defKind{
	nop0:            defKindNone,
	aluRRR:          defKindRD,
	aluRRRR:         defKindRD,
	aluRRImm12:      defKindRD,
	aluRRBitmaskImm: defKindRD,
	aluRRImmShift:   defKindRD,
	bitRR:           defKindRD,
	ccmpImm:         defKindNone,
	movZ:            defKindRD,
	movN:            defKindRD,
	movK:            defKindRD,
	mov64:           defKindRD,
	mov32:           defKindRD,
	extend:          defKindRD,
	cSet:            defKindRD,
	cSel:            defKindRD,
	cSelNeg:         defKindRD,
	cSelInv:         defKindRD,
	cSelInc:         defKindRD,
	fpuCSel:         defKindRD,
	fpuMov64:        defKindRD,
	fpuMov128:       defKindRD,
	fpuRR:           defKindRD,
	fpuRRR:          defKindRD,
	fpuRRRR:         defKindRD,
	fpuCmp:          defKindNone,
	fpuToInt:        defKindRD,
	intToFpu:        defKindRD,
	movToFpu:        defKindRD,
	movFromFpu:      defKindRD,
	uLoad8:          defKindRD,
	uLoad16:         defKindRD,
	uLoad32:         defKindRD,
	uLoad64:         defKindRD,
	sLoad8:          defKindRD,
	sLoad16:         defKindRD,
	sLoad32:         defKindRD,
	fpuLoad32:       defKindRD,
	fpuLoad64:       defKindRD,
	fpuLoad128:      defKindRD,
	store8:          defKindNone,
	store16:         defKindNone,
	store32:         defKindNone,
	store64:         defKindNone,
	fpuStore32:      defKindNone,
	fpuStore64:      defKindNone,
	fpuStore128:     defKindNone,
	loadP64:         defKindRD,
	storeP64:        defKindNone,
	loadFpuConst32:  defKindRD,
	loadFpuConst64:  defKindRD,
	loadFpuConst128: defKindRD,
	condBr:          defKindNone,
	br:              defKindNone,
	brTableSequence: defKindNone,
	call:            defKindCall,
	callInd:         defKindCall,
	ret:             defKindNone,
	brk:             defKindNone,
	trapIf:          defKindNone,
	seqPoint:        defKindNone,
	dmb:             defKindNone,
	ldar:            defKindRD,
	stlr:            defKindNone,
	atomicRmwLoop:   defKindRD,
	atomicCasLoop:   defKindRD,
	lseRmw:          defKindRD,
	lseCas:          defKindRD,
	vecRRR:          defKindRD,
	vecMisc:         defKindRD,
	vecLanes:        defKindRD,
	vecDup:          defKindRD,
	movToVec:        defKindRD,
	movFromVec:      defKindRD,
	adrpAdd:         defKindRD,
	tlsLE:           defKindRD,
	stackAddr:       defKindRD,
	bti:             defKindNone,
	paciasp:         defKindNone,
	autiasp:         defKindNone,
}

// defs appends the registers defined by this instruction.
func (i *instruction) defs(regs []regalloc.Reg) []regalloc.Reg {
	switch defKinds[i.kind] {
	case defKindNone:
	case defKindRD:
		regs = append(regs, i.rd.nr())
	case defKindCall:
		regs = append(regs, i.retRegs...)
	default:
		panic(fmt.Sprintf("BUG: defKind for %s not defined", i))
	}
	return regs
}

func (i *instruction) assignDef(index int, r regalloc.RealReg) {
	switch defKinds[i.kind] {
	case defKindNone:
	case defKindRD:
		i.rd = i.rd.assignReg(r)
	case defKindCall:
		panic("BUG: call return registers are pinned")
	default:
		panic(fmt.Sprintf("BUG: defKind for %s not defined", i))
	}
	_ = index
}

type useKind byte

const (
	useKindNone useKind = iota + 1
	useKindRN
	useKindRNRM
	useKindRNRMRA
	useKindAMode
	useKindRNAMode
	useKindRNRMAMode
	useKindCond
	useKindCall
	useKindCallInd
	useKindRet
	useKindAtomicRmw
	useKindAtomicCas
)

var useKinds = [numInstructionKinds]useKind{
	nop0:            useKindNone,
	aluRRR:          useKindRNRM,
	aluRRRR:         useKindRNRMRA,
	aluRRImm12:      useKindRN,
	aluRRBitmaskImm: useKindRN,
	aluRRImmShift:   useKindRN,
	bitRR:           useKindRN,
	ccmpImm:         useKindRN,
	movZ:            useKindNone,
	movN:            useKindNone,
	movK:            useKindRN, // movk keeps the untouched bits of rd
	mov64:           useKindRN,
	mov32:           useKindRN,
	extend:          useKindRN,
	cSet:            useKindNone,
	cSel:            useKindRNRM,
	cSelNeg:         useKindRNRM,
	cSelInv:         useKindRNRM,
	cSelInc:         useKindRNRM,
	fpuCSel:         useKindRNRM,
	fpuMov64:        useKindRN,
	fpuMov128:       useKindRN,
	fpuRR:           useKindRN,
	fpuRRR:          useKindRNRM,
	fpuRRRR:         useKindRNRMRA,
	fpuCmp:          useKindRNRM,
	fpuToInt:        useKindRN,
	intToFpu:        useKindRN,
	movToFpu:        useKindRN,
	movFromFpu:      useKindRN,
	uLoad8:          useKindAMode,
	uLoad16:         useKindAMode,
	uLoad32:         useKindAMode,
	uLoad64:         useKindAMode,
	sLoad8:          useKindAMode,
	sLoad16:         useKindAMode,
	sLoad32:         useKindAMode,
	fpuLoad32:       useKindAMode,
	fpuLoad64:      useKindAMode,
	fpuLoad128:      useKindAMode,
	store8:          useKindRNAMode,
	store16:         useKindRNAMode,
	store32:         useKindRNAMode,
	store64:         useKindRNAMode,
	fpuStore32:      useKindRNAMode,
	fpuStore64:      useKindRNAMode,
	fpuStore128:     useKindRNAMode,
	loadP64:         useKindAMode,
	storeP64:        useKindRNRMAMode,
	loadFpuConst32:  useKindNone,
	loadFpuConst64:  useKindNone,
	loadFpuConst128: useKindNone,
	condBr:          useKindCond,
	br:              useKindNone,
	brTableSequence: useKindRN,
	call:            useKindCall,
	callInd:         useKindCallInd,
	ret:             useKindRet,
	brk:             useKindNone,
	trapIf:          useKindCond,
	seqPoint:        useKindNone,
	dmb:             useKindNone,
	ldar:            useKindRN,
	stlr:            useKindRNRM,
	atomicRmwLoop:   useKindAtomicRmw,
	atomicCasLoop:   useKindAtomicCas,
	lseRmw:          useKindRNRM,
	lseCas:          useKindAtomicCas,
	vecRRR:          useKindRNRM,
	vecMisc:         useKindRN,
	vecLanes:        useKindRN,
	vecDup:          useKindRN,
	movToVec:        useKindRNRM, // rn is the inserted element, rm the vector it merges into
	movFromVec:      useKindRN,
	adrpAdd:         useKindNone,
	tlsLE:           useKindNone,
	stackAddr:       useKindNone,
	bti:             useKindNone,
	paciasp:         useKindNone,
	autiasp:         useKindNone,
}

// uses appends the registers used by this instruction.
func (i *instruction) uses(regs []regalloc.Reg) []regalloc.Reg {
	switch useKinds[i.kind] {
	case useKindNone:
	case useKindRN:
		if rn := i.rn.reg(); rn.Valid() {
			regs = append(regs, rn)
		}
	case useKindRNRM:
		if rn := i.rn.reg(); rn.Valid() {
			regs = append(regs, rn)
		}
		if rm := i.rm.reg(); rm.Valid() {
			regs = append(regs, rm)
		}
	case useKindRNRMRA:
		if rn := i.rn.reg(); rn.Valid() {
			regs = append(regs, rn)
		}
		if rm := i.rm.reg(); rm.Valid() {
			regs = append(regs, rm)
		}
		if ra := i.ra.reg(); ra.Valid() {
			regs = append(regs, ra)
		}
	case useKindAMode:
		regs = i.amode.appendRegs(regs)
	case useKindRNAMode:
		regs = append(regs, i.rn.reg())
		regs = i.amode.appendRegs(regs)
	case useKindRNRMAMode:
		regs = append(regs, i.rn.reg(), i.rm.reg())
		regs = i.amode.appendRegs(regs)
	case useKindCond:
		c := cond(i.u1)
		if c.kind() != condKindCondFlagSet {
			regs = append(regs, c.register())
		}
	case useKindCall:
		regs = append(regs, i.argRegs...)
	case useKindCallInd:
		regs = append(regs, i.rn.nr())
		regs = append(regs, i.argRegs...)
	case useKindRet:
		regs = append(regs, i.retRegs...)
	case useKindAtomicRmw:
		regs = append(regs, i.rn.reg(), i.rm.reg())
	case useKindAtomicCas:
		regs = append(regs, i.rd.reg(), i.rm.reg(), i.rn.reg())
	default:
		panic(fmt.Sprintf("BUG: useKind for %s not defined", i))
	}
	return regs
}

func (a *addressMode) appendRegs(regs []regalloc.Reg) []regalloc.Reg {
	if a.rn.Valid() && !a.rn.IsReal() {
		regs = append(regs, a.rn)
	} else if a.rn.Valid() && a.rn != spReg {
		regs = append(regs, a.rn)
	}
	if a.rm.Valid() {
		regs = append(regs, a.rm)
	}
	return regs
}

func (i *instruction) assignUse(index int, r regalloc.RealReg) {
	reg := regalloc.RegFromReal(r)
	switch useKinds[i.kind] {
	case useKindNone:
	case useKindRN:
		i.rn = i.rn.assignReg(r)
	case useKindRNRM:
		if index == 0 {
			i.rn = i.rn.assignReg(r)
		} else {
			i.rm = i.rm.assignReg(r)
		}
	case useKindRNRMRA:
		switch index {
		case 0:
			i.rn = i.rn.assignReg(r)
		case 1:
			i.rm = i.rm.assignReg(r)
		default:
			i.ra = i.ra.assignReg(r)
		}
	case useKindAMode:
		i.amode.assign(index, reg)
	case useKindRNAMode:
		if index == 0 {
			i.rn = i.rn.assignReg(r)
		} else {
			i.amode.assign(index-1, reg)
		}
	case useKindRNRMAMode:
		switch index {
		case 0:
			i.rn = i.rn.assignReg(r)
		case 1:
			i.rm = i.rm.assignReg(r)
		default:
			i.amode.assign(index-2, reg)
		}
	case useKindCond:
		c := cond(i.u1)
		switch c.kind() {
		case condKindRegisterZero:
			i.u1 = registerAsRegZeroCond(reg).asUint64()
		case condKindRegisterNotZero:
			i.u1 = registerAsRegNotZeroCond(reg).asUint64()
		}
	case useKindCall:
		panic("BUG: call argument registers are pinned")
	case useKindCallInd:
		if index == 0 {
			i.rn = i.rn.assignReg(r)
		}
	case useKindRet:
		panic("BUG: return registers are pinned")
	case useKindAtomicRmw:
		if index == 0 {
			i.rn = i.rn.assignReg(r)
		} else {
			i.rm = i.rm.assignReg(r)
		}
	case useKindAtomicCas:
		switch index {
		case 0:
			i.rd = i.rd.assignReg(r)
		case 1:
			i.rm = i.rm.assignReg(r)
		default:
			i.rn = i.rn.assignReg(r)
		}
	default:
		panic(fmt.Sprintf("BUG: useKind for %s not defined", i))
	}
}

func (a *addressMode) assign(index int, r regalloc.Reg) {
	// The use list only contains non-SP registers, in rn-then-rm order.
	hasRn := a.rn.Valid() && a.rn != spReg
	if index == 0 && hasRn {
		a.rn = r
		return
	}
	a.rm = r
}

// isCopy returns the endpoints when this is a plain register move.
func (i *instruction) isCopy() (dst, src regalloc.Reg, ok bool) {
	switch i.kind {
	case mov64, mov32, fpuMov64, fpuMov128:
		return i.rd.nr(), i.rn.nr(), true
	}
	return regalloc.RegInvalid, regalloc.RegInvalid, false
}

func (i *instruction) isCall() bool {
	return i.kind == call || i.kind == callInd
}

func (i *instruction) isRet() bool {
	return i.kind == ret
}

// size returns the byte size of the encoded instruction; meta instructions
// report their expanded size.
func (i *instruction) size() int64 {
	switch i.kind {
	case nop0, seqPoint:
		return 0
	case adrpAdd, tlsLE:
		return 8
	case trapIf:
		return 8
	case atomicRmwLoop:
		return 16
	case atomicCasLoop:
		return 24
	case loadFpuConst32, loadFpuConst64, loadFpuConst128:
		return 4
	case brTableSequence:
		return 9*4 + int64(len(i.targets))*4
	case stackAddr:
		return 8 // worst case: two adds
	default:
		return 4
	}
}

// String implements fmt.Stringer, for debugging listings only.
func (i *instruction) String() string {
	s := strings.Builder{}
	s.WriteString(kindNames[i.kind])
	for _, op := range []operand{i.rd, i.rn, i.rm, i.ra} {
		if r := op.reg(); r.Valid() || op.kind != operandKindNR {
			s.WriteByte(' ')
			s.WriteString(op.String())
		}
	}
	if i.sym != "" {
		s.WriteByte(' ')
		s.WriteString(i.sym)
	}
	return s.String()
}

var kindNames = [numInstructionKinds]string{
	nop0:            "nop0",
	aluRRR:          "alu_rrr",
	aluRRRR:         "alu_rrrr",
	aluRRImm12:      "alu_rr_imm12",
	aluRRBitmaskImm: "alu_rr_bitmask",
	aluRRImmShift:   "alu_rr_imm_shift",
	bitRR:           "bit_rr",
	ccmpImm:         "ccmp_imm",
	movZ:            "movz",
	movN:            "movn",
	movK:            "movk",
	mov64:           "mov64",
	mov32:           "mov32",
	extend:          "extend",
	cSet:            "cset",
	cSel:            "csel",
	cSelNeg:         "csneg",
	cSelInv:         "csinv",
	cSelInc:         "csinc",
	fpuCSel:         "fcsel",
	fpuMov64:        "fpu_mov64",
	fpuMov128:       "fpu_mov128",
	fpuRR:           "fpu_rr",
	fpuRRR:          "fpu_rrr",
	fpuRRRR:         "fpu_rrrr",
	fpuCmp:          "fcmp",
	fpuToInt:        "fcvtz",
	intToFpu:        "cvtf",
	movToFpu:        "fmov_to",
	movFromFpu:      "fmov_from",
	uLoad8:          "uload8",
	uLoad16:         "uload16",
	uLoad32:         "uload32",
	uLoad64:         "uload64",
	sLoad8:          "sload8",
	sLoad16:         "sload16",
	sLoad32:         "sload32",
	fpuLoad32:       "fpu_load32",
	fpuLoad64:       "fpu_load64",
	fpuLoad128:      "fpu_load128",
	store8:          "store8",
	store16:         "store16",
	store32:         "store32",
	store64:         "store64",
	fpuStore32:      "fpu_store32",
	fpuStore64:      "fpu_store64",
	fpuStore128:     "fpu_store128",
	loadP64:         "ldp",
	storeP64:        "stp",
	loadFpuConst32:  "load_fpu_const32",
	loadFpuConst64:  "load_fpu_const64",
	loadFpuConst128: "load_fpu_const128",
	condBr:          "cond_br",
	br:              "b",
	brTableSequence: "br_table",
	call:            "bl",
	callInd:         "blr",
	ret:             "ret",
	brk:             "brk",
	trapIf:          "trap_if",
	seqPoint:        "seq_point",
	dmb:             "dmb",
	ldar:            "ldar",
	stlr:            "stlr",
	atomicRmwLoop:   "atomic_rmw",
	atomicCasLoop:   "atomic_cas",
	lseRmw:          "lse_rmw",
	lseCas:          "cas",
	vecRRR:          "vec_rrr",
	vecMisc:         "vec_misc",
	vecLanes:        "vec_lanes",
	vecDup:          "dup",
	movToVec:        "ins",
	movFromVec:      "umov",
	adrpAdd:         "adrp_add",
	tlsLE:           "tls_le",
	stackAddr:       "stack_addr",
	bti:             "bti",
	paciasp:         "paciasp",
	autiasp:         "autiasp",
}
