package arm64

// This file holds the lowering rules: the pattern-driven translation from
// IR instructions to machine instructions. Within a block, instructions
// are emitted in reverse program order, which is what lets a consumer
// reach back and fold a pure, single-use producer into a fused operand
// form (immediate, shifted or extended register, memory operand).

import (
	"fmt"
	"sort"

	"github.com/joelreymont/hoist/backend"
	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/ssa"
)

// lowerRule is one declarative rule: a priority plus a matcher-emitter.
// Rules for an opcode are tried from the highest priority down; a rule
// that cannot realize its binding reports !handled and the next rule runs.
type lowerRule struct {
	prio int
	fn   func(m *machine, instr *ssa.Instruction) (handled bool, err error)
}

var lowerRules = map[ssa.Opcode][]lowerRule{}

func registerRule(op ssa.Opcode, prio int, fn func(m *machine, instr *ssa.Instruction) (bool, error)) {
	lowerRules[op] = append(lowerRules[op], lowerRule{prio: prio, fn: fn})
	sort.SliceStable(lowerRules[op], func(i, j int) bool {
		return lowerRules[op][i].prio > lowerRules[op][j].prio
	})
}

// LowerInstr implements backend.Machine.
func (m *machine) LowerInstr(instr *ssa.Instruction) error {
	rules, ok := lowerRules[instr.Opcode()]
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrUnhandledInstruction, instr.Opcode())
	}
	for _, r := range rules {
		handled, err := r.fn(m, instr)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", backend.ErrUnhandledInstruction, instr.Opcode())
}

func (m *machine) vregOf(v ssa.Value) regalloc.Reg {
	return m.compiler.VRegOf(v).Reg()
}

func (m *machine) vregsOf(v ssa.Value) regalloc.ValueRegs {
	return m.compiler.VRegOf(v)
}

func is64(t ssa.Type) uint64 {
	if t.Bits() == 64 {
		return 1
	}
	return 0
}

// getOperand returns the operand realizing v for the given consumer,
// folding the producer when the consumer admits the form and the producer
// is pure and single-use.
func (m *machine) getOperand(v ssa.Value, consumer *ssa.Instruction, allowImm12, allowSR, allowER bool) operand {
	def := m.compiler.ValueDefinition(v)
	if def.SinkableBy(consumer) {
		p := def.Instr
		switch p.Opcode() {
		case ssa.OpcodeIconst:
			if allowImm12 {
				if imm12, shift, ok := asImm12(p.ConstantData()); ok {
					m.compiler.MarkLowered(p)
					return operandImm12(imm12, shift)
				}
			}
		case ssa.OpcodeIshlImm:
			if allowSR {
				x, amt := p.BinaryImmData()
				if amt < uint64(v.Type().Bits()) {
					m.compiler.MarkLowered(p)
					return operandSR(m.vregOf(x), byte(amt), shiftOpLSL)
				}
			}
		case ssa.OpcodeUExtend, ssa.OpcodeSExtend:
			if allowER {
				x, fromBits, toBits, signed := p.ExtendData()
				if fromBits == 32 && toBits == 64 {
					op := extendOpUXTW
					if signed {
						op = extendOpSXTW
					}
					m.compiler.MarkLowered(p)
					return operandER(m.vregOf(x), op)
				}
			}
		}
	}
	return operandNR(m.vregOf(v))
}

// lowerCompareToFlags emits the flag-setting compare for v's defining
// instruction when it can be fused, returning the flag the consumer
// should wait on. The compare is emitted after the consumer (reverse
// order), so it precedes it in the final code; no instruction between the
// two clobbers NZCV.
func (m *machine) lowerCompareToFlags(v ssa.Value, consumer *ssa.Instruction) (condFlag, bool) {
	def := m.compiler.ValueDefinition(v)
	if !def.SinkableBy(consumer) {
		return 0, false
	}
	switch def.Instr.Opcode() {
	case ssa.OpcodeIcmp:
		x, y, c := def.Instr.IcmpData()
		m.compiler.MarkLowered(def.Instr)
		m.lowerIcmpToFlags(x, y, def.Instr)
		return condFlagFromSSAIntegerCmpCond(c), true
	case ssa.OpcodeIcmpImm:
		x, imm, c := def.Instr.IcmpImmData()
		if imm12, shift, ok := asImm12(imm); ok {
			m.compiler.MarkLowered(def.Instr)
			m.insert(instruction{
				kind: aluRRImm12, u1: uint64(aluOpSubS),
				rd: operandNR(xzrReg), rn: operandNR(m.vregOf(x)), rm: operandImm12(imm12, shift),
				u3: is64(x.Type()),
			})
			return condFlagFromSSAIntegerCmpCond(c), true
		}
		return 0, false
	case ssa.OpcodeFcmp:
		x, y, c := def.Instr.FcmpData()
		m.compiler.MarkLowered(def.Instr)
		m.insert(instruction{
			kind: fpuCmp,
			rn:   operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(y)),
			u3: is64(x.Type()),
		})
		return condFlagFromSSAFloatCmpCond(c), true
	}
	return 0, false
}

// lowerIcmpToFlags emits `subs xzr, x, y` (cmp), folding y when possible.
func (m *machine) lowerIcmpToFlags(x, y ssa.Value, consumer *ssa.Instruction) {
	rm := m.getOperand(y, consumer, true, true, true)
	kind := aluRRR
	if rm.kind == operandKindImm12 {
		kind = aluRRImm12
	}
	m.insert(instruction{
		kind: kind, u1: uint64(aluOpSubS),
		rd: operandNR(xzrReg), rn: operandNR(m.vregOf(x)), rm: rm,
		u3: is64(x.Type()),
	})
}

// LowerBranches implements backend.Machine: br0 is the block terminator,
// br1 the optional conditional branch just before it.
func (m *machine) LowerBranches(br0, br1 *ssa.Instruction) error {
	switch br0.Opcode() {
	case ssa.OpcodeJump:
		_, args, target := br0.BranchData()
		key := uint32(target.ID())
		m.addSucc(key)
		m.insert(instruction{kind: br, u1: uint64(key)})
		m.lowerBranchArgMoves(args, target)
	case ssa.OpcodeBrTable:
		index, targets := br0.BrTableData()
		keys := make([]uint32, len(targets))
		for i, t := range targets {
			keys[i] = uint32(t.ID())
			m.addSucc(keys[i])
		}
		m.insert(instruction{kind: brTableSequence, rn: operandNR(m.vregOf(index)), targets: keys})
	case ssa.OpcodeTryCall:
		if err := m.lowerTryCall(br0); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: terminator %s", backend.ErrUnhandledInstruction, br0.Opcode())
	}

	if br1 != nil {
		if err := m.lowerConditionalBranch(br1); err != nil {
			return err
		}
	}
	return nil
}

func (m *machine) lowerConditionalBranch(b *ssa.Instruction) error {
	c, args, target := b.BranchData()
	key := uint32(target.ID())

	if len(args) > 0 {
		// A conditional branch carrying arguments is a critical edge:
		// split it through a trampoline holding the moves.
		synth := m.allocSynthKey()
		moves := m.branchArgMoves(args, target)
		m.pendingEdges = append(m.pendingEdges, pendingEdge{key: synth, targetKey: key, moves: moves})
		key = synth
	}
	m.addSucc(key)

	if flag, ok := m.lowerCompareToFlags(c, b); ok {
		if b.Opcode() == ssa.OpcodeBrz {
			flag = flag.invert()
		}
		m.insert(instruction{kind: condBr, u1: flag.asCond().asUint64(), u2: uint64(key), u3: 1})
		return nil
	}

	reg := m.vregOf(c)
	var cc cond
	if b.Opcode() == ssa.OpcodeBrz {
		cc = registerAsRegZeroCond(reg)
	} else {
		cc = registerAsRegNotZeroCond(reg)
	}
	m.insert(instruction{kind: condBr, u1: cc.asUint64(), u2: uint64(key), u3: is64(c.Type())})
	return nil
}

// branchArgMoves schedules the φ-argument moves of one edge.
func (m *machine) branchArgMoves(args []ssa.Value, target ssa.BasicBlock) []backend.ParallelMove {
	moves := make([]backend.ParallelMove, 0, len(args))
	for i, arg := range args {
		dst := m.vregsOf(target.Param(i))
		src := m.vregsOf(arg)
		for p := 0; p < dst.Len(); p++ {
			moves = append(moves, backend.ParallelMove{Dst: dst.At(p), Src: src.At(p), Type: arg.Type()})
		}
	}
	return backend.ScheduleParallelMoves(moves, func(c regalloc.RegClass, t ssa.Type) regalloc.Reg {
		return regalloc.RegFromVirtual(m.compiler.AllocateVReg(c))
	})
}

// lowerBranchArgMoves emits the already-scheduled moves in reverse, since
// the block is built backward.
func (m *machine) lowerBranchArgMoves(args []ssa.Value, target ssa.BasicBlock) {
	if len(args) == 0 {
		return
	}
	moves := m.branchArgMoves(args, target)
	for i := len(moves) - 1; i >= 0; i-- {
		m.insert(m.moveInstr(moves[i].Dst, moves[i].Src, moves[i].Type))
	}
}

// LowerParams implements backend.Machine: entry parameters move from their
// ABI locations into the pre-allocated register groups.
func (m *machine) LowerParams(params []ssa.Value) error {
	abi := m.currentABI
	argIdx := 0
	var seq []instruction

	for pi, p := range params {
		// Skip the hidden return pointer when present.
		for argIdx < len(abi.Args) && abi.Args[argIdx].Purpose == backend.ABIArgPurposeRetPointer {
			argIdx++
		}
		if argIdx >= len(abi.Args) {
			return fmt.Errorf("%w: parameter %d has no ABI location", backend.ErrUnsupportedType, pi)
		}
		arg := abi.Args[argIdx]
		argIdx++
		regs := m.vregsOf(p)
		if len(arg.Slots) != regs.Len() {
			return fmt.Errorf("%w: parameter %d shape", backend.ErrUnsupportedType, pi)
		}
		for si, slot := range arg.Slots {
			dst := regs.At(si)
			switch slot.Kind {
			case backend.ABIArgSlotReg:
				seq = append(seq, m.moveInstr(dst, regalloc.RegFromReal(slot.Reg), slot.Type))
			case backend.ABIArgSlotStack:
				// Incoming stack arguments live above the saved FP/LR pair.
				amode := addressModeUnsigned(fpReg, 16+slot.Offset)
				seq = append(seq, loadInstrFor(slot.Type, dst, amode))
			}
		}
	}
	// The block is built backward: emit the moves in reverse so they come
	// first in program order.
	for i := len(seq) - 1; i >= 0; i-- {
		m.insert(seq[i])
	}
	return nil
}

func loadInstrFor(t ssa.Type, dst regalloc.Reg, amode addressMode) instruction {
	var kind instructionKind
	switch {
	case t.IsFloat() && t.Bits() == 32:
		kind = fpuLoad32
	case t.IsFloat():
		kind = fpuLoad64
	case t.IsVector():
		kind = fpuLoad128
	case t.Bits() == 8:
		kind = uLoad8
	case t.Bits() == 16:
		kind = uLoad16
	case t.Bits() == 32:
		kind = uLoad32
	default:
		kind = uLoad64
	}
	return instruction{kind: kind, rd: operandNR(dst), amode: amode}
}

func storeInstrFor(t ssa.Type, src regalloc.Reg, amode addressMode) instruction {
	var kind instructionKind
	switch {
	case t.IsFloat() && t.Bits() == 32:
		kind = fpuStore32
	case t.IsFloat():
		kind = fpuStore64
	case t.IsVector():
		kind = fpuStore128
	case t.Bits() == 8:
		kind = store8
	case t.Bits() == 16:
		kind = store16
	case t.Bits() == 32:
		kind = store32
	default:
		kind = store64
	}
	return instruction{kind: kind, rn: operandNR(src), amode: amode}
}

// lowerReturn emits the result moves and the return.
func (m *machine) lowerReturn(instr *ssa.Instruction) error {
	abi := m.currentABI
	var retRegs []regalloc.Reg
	var seq []instruction

	for i, v := range instr.ReturnVals() {
		ret := abi.Rets[i]
		if ret.Purpose == backend.ABIArgPurposeRetPointer {
			return fmt.Errorf("%w: indirect result marshaling", backend.ErrUnhandledInstruction)
		}
		src := m.vregsOf(v)
		if len(ret.Slots) != src.Len() {
			return fmt.Errorf("%w: result %d shape", backend.ErrUnsupportedType, i)
		}
		for si, slot := range ret.Slots {
			if slot.Kind != backend.ABIArgSlotReg {
				return fmt.Errorf("%w: stack result", backend.ErrTooManyReturns)
			}
			dst := regalloc.RegFromReal(slot.Reg)
			retRegs = append(retRegs, dst)
			seq = append(seq, m.moveInstr(dst, src.At(si), slot.Type))
		}
	}

	// Backward: ret first, then the moves in reverse.
	m.insert(instruction{kind: ret, retRegs: retRegs})
	for i := len(seq) - 1; i >= 0; i-- {
		m.insert(seq[i])
	}
	return nil
}

// lowerCallCommon marshals the arguments, emits the call, and accepts the
// results.
func (m *machine) lowerCallCommon(si *ssa.Instruction, sym string, sigRef ssa.SigRef, args []ssa.Value, indirect bool, calleePtr ssa.Value) error {
	sig := m.compiler.SSABuilder().ResolveSignature(sigRef)
	abi, err := m.ResolveABI(sig)
	if err != nil {
		return err
	}
	if space := abi.AlignedArgResultStackSlotSize(); space > m.maxCallArgSpace {
		m.maxCallArgSpace = space
	}

	var argRegs, retRegs []regalloc.Reg
	var argSeq, retSeq []instruction

	argIdx := 0
	for _, a := range abi.Args {
		if a.Purpose == backend.ABIArgPurposeRetPointer {
			return fmt.Errorf("%w: call with indirect result", backend.ErrUnhandledInstruction)
		}
		src := m.vregsOf(args[argIdx])
		argIdx++
		if len(a.Slots) != src.Len() {
			return fmt.Errorf("%w: argument shape", backend.ErrUnsupportedType)
		}
		for si2, slot := range a.Slots {
			switch slot.Kind {
			case backend.ABIArgSlotReg:
				dst := regalloc.RegFromReal(slot.Reg)
				argRegs = append(argRegs, dst)
				argSeq = append(argSeq, m.moveInstr(dst, src.At(si2), slot.Type))
			case backend.ABIArgSlotStack:
				amode := addressModeUnsigned(spReg, slot.Offset)
				argSeq = append(argSeq, storeInstrFor(slot.Type, src.At(si2), amode))
			}
		}
	}

	r, rs := si.Returns()
	resVals := make([]ssa.Value, 0, 1+len(rs))
	if r.Valid() {
		resVals = append(resVals, r)
	}
	resVals = append(resVals, rs...)
	for i, v := range resVals {
		ret := abi.Rets[i]
		dst := m.vregsOf(v)
		for si2, slot := range ret.Slots {
			if slot.Kind != backend.ABIArgSlotReg {
				return fmt.Errorf("%w: stack result", backend.ErrTooManyReturns)
			}
			src := regalloc.RegFromReal(slot.Reg)
			retRegs = append(retRegs, src)
			retSeq = append(retSeq, m.moveInstr(dst.At(si2), src, slot.Type))
		}
	}

	// Backward emission: result moves, the call, then argument moves.
	for i := len(retSeq) - 1; i >= 0; i-- {
		m.insert(retSeq[i])
	}
	if indirect {
		m.insert(instruction{
			kind: callInd, rn: operandNR(m.vregOf(calleePtr)),
			argRegs: argRegs, retRegs: retRegs,
		})
	} else {
		m.insert(instruction{kind: call, sym: sym, argRegs: argRegs, retRegs: retRegs})
	}
	for i := len(argSeq) - 1; i >= 0; i-- {
		m.insert(argSeq[i])
	}
	return nil
}

// lowerTryCall lowers the exception-aware call terminator: the call, then
// a jump to the normal successor. No branch targets the exception
// successor; the runtime unwinder enters it through the LSDA.
func (m *machine) lowerTryCall(si *ssa.Instruction) error {
	ref, sigRef, args, normal, exception := si.TryCallData()
	name, _ := m.compiler.SSABuilder().FunctionData(ref)

	normalKey := uint32(normal.ID())
	excKey := uint32(exception.ID())
	m.addSucc(normalKey)
	m.addSucc(excKey)

	// Backward: the jump to the normal successor comes last in program
	// order, right after the BL.
	m.insert(instruction{kind: br, u1: uint64(normalKey)})

	sig := m.compiler.SSABuilder().ResolveSignature(sigRef)
	abi, err := m.ResolveABI(sig)
	if err != nil {
		return err
	}
	if space := abi.AlignedArgResultStackSlotSize(); space > m.maxCallArgSpace {
		m.maxCallArgSpace = space
	}

	var argRegs, retRegs []regalloc.Reg
	var argSeq, retSeq []instruction
	for ai, a := range abi.Args {
		src := m.vregsOf(args[ai])
		for si2, slot := range a.Slots {
			switch slot.Kind {
			case backend.ABIArgSlotReg:
				dst := regalloc.RegFromReal(slot.Reg)
				argRegs = append(argRegs, dst)
				argSeq = append(argSeq, m.moveInstr(dst, src.At(si2), slot.Type))
			case backend.ABIArgSlotStack:
				argSeq = append(argSeq, storeInstrFor(slot.Type, src.At(si2), addressModeUnsigned(spReg, slot.Offset)))
			}
		}
	}
	r, rs := si.Returns()
	resVals := make([]ssa.Value, 0, 1+len(rs))
	if r.Valid() {
		resVals = append(resVals, r)
	}
	resVals = append(resVals, rs...)
	for i, v := range resVals {
		for si2, slot := range abi.Rets[i].Slots {
			src := regalloc.RegFromReal(slot.Reg)
			retRegs = append(retRegs, src)
			retSeq = append(retSeq, m.moveInstr(m.vregsOf(v).At(si2), src, slot.Type))
		}
	}

	for i := len(retSeq) - 1; i >= 0; i-- {
		m.insert(retSeq[i])
	}
	m.insert(instruction{
		kind: call, sym: name, argRegs: argRegs, retRegs: retRegs,
		u2: uint64(excKey), u3: 1, // exception-enabled call site
	})
	for i := len(argSeq) - 1; i >= 0; i-- {
		m.insert(argSeq[i])
	}
	return nil
}

func init() {
	// Constants.
	registerRule(ssa.OpcodeIconst, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.lowerConstantI64(m.vregOf(si.Return()), si.ConstantData(), si.Return().Type().Bits() == 64)
		return true, nil
	})
	registerRule(ssa.OpcodeF32const, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.insert(instruction{kind: loadFpuConst32, rd: operandNR(m.vregOf(si.Return())), u1: si.ConstantData()})
		return true, nil
	})
	registerRule(ssa.OpcodeF64const, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.insert(instruction{kind: loadFpuConst64, rd: operandNR(m.vregOf(si.Return())), u1: si.ConstantData()})
		return true, nil
	})
	registerRule(ssa.OpcodeVconst, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		data := m.compiler.SSABuilder().ConstantValue(si.VconstData())
		var lo, hi uint64
		for i := 0; i < len(data) && i < 8; i++ {
			lo |= uint64(data[i]) << (8 * i)
		}
		for i := 8; i < len(data) && i < 16; i++ {
			hi |= uint64(data[i]) << (8 * (i - 8))
		}
		m.insert(instruction{kind: loadFpuConst128, rd: operandNR(m.vregOf(si.Return())), u1: lo, u2: hi})
		return true, nil
	})

	// Integer arithmetic: the rules are ordered imm12 > shifted >
	// extended > register, most specific first.
	registerAddSubRules(ssa.OpcodeIadd, aluOpAdd)
	registerAddSubRules(ssa.OpcodeIsub, aluOpSub)

	registerRule(ssa.OpcodeIaddImm, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, imm := si.BinaryImmData()
		rd := operandNR(m.vregOf(si.Return()))
		rn := operandNR(m.vregOf(x))
		if imm12, shift, ok := asImm12(imm); ok {
			m.insert(instruction{kind: aluRRImm12, u1: uint64(aluOpAdd), rd: rd, rn: rn, rm: operandImm12(imm12, shift), u3: is64(x.Type())})
			return true, nil
		}
		tmp := regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt))
		m.insert(instruction{kind: aluRRR, u1: uint64(aluOpAdd), rd: rd, rn: rn, rm: operandNR(tmp), u3: is64(x.Type())})
		m.lowerConstantI64(tmp, imm, true)
		return true, nil
	})

	registerRule(ssa.OpcodeImul, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		// MUL is MADD with XZR addend.
		m.insert(instruction{
			kind: aluRRRR, u1: uint64(aluOpMAdd),
			rd: operandNR(m.vregOf(si.Return())),
			rn: operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(y)), ra: operandNR(xzrReg),
			u3: is64(x.Type()),
		})
		return true, nil
	})
	registerRule(ssa.OpcodeUmulh, 10, simpleALURule(aluOpUMulH))
	registerRule(ssa.OpcodeSmulh, 10, simpleALURule(aluOpSMulH))

	registerRule(ssa.OpcodeUdiv, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.lowerIDiv(si, false, false)
		return true, nil
	})
	registerRule(ssa.OpcodeSdiv, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.lowerIDiv(si, true, false)
		return true, nil
	})
	registerRule(ssa.OpcodeUrem, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.lowerIDiv(si, false, true)
		return true, nil
	})
	registerRule(ssa.OpcodeSrem, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.lowerIDiv(si, true, true)
		return true, nil
	})

	// Logical operations, with a bitmask-immediate fast path.
	registerLogicalRules(ssa.OpcodeBand, aluOpAnd)
	registerLogicalRules(ssa.OpcodeBor, aluOpOrr)
	registerLogicalRules(ssa.OpcodeBxor, aluOpEor)
	registerRule(ssa.OpcodeBandImm, 10, logicalImmRule(aluOpAnd))
	registerRule(ssa.OpcodeBorImm, 10, logicalImmRule(aluOpOrr))
	registerRule(ssa.OpcodeBxorImm, 10, logicalImmRule(aluOpEor))

	registerRule(ssa.OpcodeBnot, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		m.insert(instruction{
			kind: aluRRR, u1: uint64(aluOpOrn),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(xzrReg), rm: operandNR(m.vregOf(x)),
			u3: is64(x.Type()),
		})
		return true, nil
	})
	registerRule(ssa.OpcodeIneg, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		m.insert(instruction{
			kind: aluRRR, u1: uint64(aluOpSub),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(xzrReg), rm: operandNR(m.vregOf(x)),
			u3: is64(x.Type()),
		})
		return true, nil
	})

	// Shifts and rotates.
	registerRule(ssa.OpcodeIshl, 10, simpleALURule(aluOpLsl))
	registerRule(ssa.OpcodeUshr, 10, simpleALURule(aluOpLsr))
	registerRule(ssa.OpcodeSshr, 10, simpleALURule(aluOpAsr))
	registerRule(ssa.OpcodeRotr, 10, simpleALURule(aluOpRor))
	registerRule(ssa.OpcodeIshlImm, 10, shiftImmRule(aluOpLsl))
	registerRule(ssa.OpcodeUshrImm, 10, shiftImmRule(aluOpLsr))
	registerRule(ssa.OpcodeSshrImm, 10, shiftImmRule(aluOpAsr))
	registerRule(ssa.OpcodeRotl, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		rd := operandNR(m.vregOf(si.Return()))
		neg := regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt))
		sf := is64(x.Type())
		// rotl x, y == rotr x, -y
		m.insert(instruction{kind: aluRRR, u1: uint64(aluOpRor), rd: rd, rn: operandNR(m.vregOf(x)), rm: operandNR(neg), u3: sf})
		m.insert(instruction{kind: aluRRR, u1: uint64(aluOpSub), rd: operandNR(neg), rn: operandNR(xzrReg), rm: operandNR(m.vregOf(y)), u3: sf})
		return true, nil
	})

	// Bit counting.
	registerRule(ssa.OpcodeClz, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		m.insert(instruction{kind: bitRR, u1: uint64(bitOpClz), rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)), u3: is64(x.Type())})
		return true, nil
	})
	registerRule(ssa.OpcodeCtz, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		sf := is64(x.Type())
		rd := operandNR(m.vregOf(si.Return()))
		tmp := operandNR(regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt)))
		m.insert(instruction{kind: bitRR, u1: uint64(bitOpClz), rd: rd, rn: tmp, u3: sf})
		m.insert(instruction{kind: bitRR, u1: uint64(bitOpRbit), rd: tmp, rn: operandNR(m.vregOf(x)), u3: sf})
		return true, nil
	})
	registerRule(ssa.OpcodePopcnt, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		rd := operandNR(m.vregOf(si.Return()))
		vt := operandNR(regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassVector)))
		// fmov; cnt .8b; addv b; umov — the standard scalar popcount
		// sequence through the vector unit.
		m.insert(instruction{kind: movFromVec, rd: rd, rn: vt, u1: uint64(vecArrangementB), u2: 0})
		m.insert(instruction{kind: vecLanes, u1: uint64(vecOpAddv), u2: uint64(vecArrangement8B), rd: vt, rn: vt})
		m.insert(instruction{kind: vecMisc, u1: uint64(vecOpCnt), u2: uint64(vecArrangement8B), rd: vt, rn: vt})
		m.insert(instruction{kind: movToFpu, rd: vt, rn: operandNR(m.vregOf(x)), u3: is64(x.Type())})
		return true, nil
	})

	// Comparisons and selects.
	registerRule(ssa.OpcodeIcmp, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y, c := si.IcmpData()
		flag := condFlagFromSSAIntegerCmpCond(c)
		m.insert(instruction{kind: cSet, rd: operandNR(m.vregOf(si.Return())), u1: uint64(flag)})
		m.lowerIcmpToFlags(x, y, si)
		return true, nil
	})
	registerRule(ssa.OpcodeIcmpImm, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, imm, c := si.IcmpImmData()
		imm12, shift, ok := asImm12(imm)
		if !ok {
			return false, nil
		}
		flag := condFlagFromSSAIntegerCmpCond(c)
		m.insert(instruction{kind: cSet, rd: operandNR(m.vregOf(si.Return())), u1: uint64(flag)})
		m.insert(instruction{
			kind: aluRRImm12, u1: uint64(aluOpSubS),
			rd: operandNR(xzrReg), rn: operandNR(m.vregOf(x)), rm: operandImm12(imm12, shift),
			u3: is64(x.Type()),
		})
		return true, nil
	})
	registerRule(ssa.OpcodeIcmpImm, 5, func(m *machine, si *ssa.Instruction) (bool, error) {
		// Fallback: materialize the immediate.
		x, imm, c := si.IcmpImmData()
		flag := condFlagFromSSAIntegerCmpCond(c)
		tmp := regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt))
		m.insert(instruction{kind: cSet, rd: operandNR(m.vregOf(si.Return())), u1: uint64(flag)})
		m.insert(instruction{
			kind: aluRRR, u1: uint64(aluOpSubS),
			rd: operandNR(xzrReg), rn: operandNR(m.vregOf(x)), rm: operandNR(tmp),
			u3: is64(x.Type()),
		})
		m.lowerConstantI64(tmp, imm, true)
		return true, nil
	})
	registerRule(ssa.OpcodeFcmp, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y, c := si.FcmpData()
		flag := condFlagFromSSAFloatCmpCond(c)
		m.insert(instruction{kind: cSet, rd: operandNR(m.vregOf(si.Return())), u1: uint64(flag)})
		m.insert(instruction{kind: fpuCmp, rn: operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(y)), u3: is64(x.Type())})
		return true, nil
	})
	registerRule(ssa.OpcodeSelect, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		c, x, y := si.Arg3()
		rd := operandNR(m.vregOf(si.Return()))
		kind := cSel
		if x.Type().IsFloat() {
			kind = fpuCSel
		}
		if flag, ok := m.lowerCompareToFlags(c, si); ok {
			m.insert(instruction{kind: kind, rd: rd, rn: operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(y)), u1: uint64(flag), u3: is64(x.Type())})
			return true, nil
		}
		m.insert(instruction{kind: kind, rd: rd, rn: operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(y)), u1: uint64(ne), u3: is64(x.Type())})
		m.insert(instruction{
			kind: aluRRImm12, u1: uint64(aluOpSubS),
			rd: operandNR(xzrReg), rn: operandNR(m.vregOf(c)), rm: operandImm12(0, 0),
			u3: is64(c.Type()),
		})
		return true, nil
	})

	// Floating point.
	registerRule(ssa.OpcodeFadd, 10, fpuBinRule(fpuBinOpAdd))
	registerRule(ssa.OpcodeFsub, 10, fpuBinRule(fpuBinOpSub))
	registerRule(ssa.OpcodeFmul, 10, fpuBinRule(fpuBinOpMul))
	registerRule(ssa.OpcodeFdiv, 10, fpuBinRule(fpuBinOpDiv))
	registerRule(ssa.OpcodeFmax, 10, fpuBinRule(fpuBinOpMax))
	registerRule(ssa.OpcodeFmin, 10, fpuBinRule(fpuBinOpMin))
	registerRule(ssa.OpcodeFneg, 10, fpuUniRule(fpuUniOpNeg))
	registerRule(ssa.OpcodeFabs, 10, fpuUniRule(fpuUniOpAbs))
	registerRule(ssa.OpcodeSqrt, 10, fpuUniRule(fpuUniOpSqrt))
	registerRule(ssa.OpcodeCeil, 10, fpuUniRule(fpuUniOpRoundPlus))
	registerRule(ssa.OpcodeFloor, 10, fpuUniRule(fpuUniOpRoundMinus))
	registerRule(ssa.OpcodeTrunc, 10, fpuUniRule(fpuUniOpRoundZero))
	registerRule(ssa.OpcodeNearest, 10, fpuUniRule(fpuUniOpRoundNearest))
	registerRule(ssa.OpcodeFma, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y, z := si.Arg3()
		m.insert(instruction{
			kind: fpuRRRR, u1: 0, // fmadd
			rd: operandNR(m.vregOf(si.Return())),
			rn: operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(y)), ra: operandNR(m.vregOf(z)),
			u3: is64(x.Type()),
		})
		return true, nil
	})
	registerRule(ssa.OpcodeFcopysign, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.lowerFcopysign(si)
		return true, nil
	})
	registerRule(ssa.OpcodeFpromote, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.insert(instruction{kind: fpuRR, u1: uint64(fpuUniOpCvt32To64), rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(si.Arg()))})
		return true, nil
	})
	registerRule(ssa.OpcodeFdemote, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.insert(instruction{kind: fpuRR, u1: uint64(fpuUniOpCvt64To32), rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(si.Arg()))})
		return true, nil
	})

	// Conversions.
	registerRule(ssa.OpcodeFcvtToSint, 10, fcvtToIntRule(true))
	registerRule(ssa.OpcodeFcvtToUint, 10, fcvtToIntRule(false))
	registerRule(ssa.OpcodeFcvtFromSint, 10, cvtFromIntRule(true))
	registerRule(ssa.OpcodeFcvtFromUint, 10, cvtFromIntRule(false))
	registerRule(ssa.OpcodeUExtend, 10, extendRule)
	registerRule(ssa.OpcodeSExtend, 10, extendRule)
	registerRule(ssa.OpcodeIreduce, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.insert(instruction{kind: mov32, rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(si.Arg()))})
		return true, nil
	})
	registerRule(ssa.OpcodeBitcast, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		to := si.Return().Type()
		rd := operandNR(m.vregOf(si.Return()))
		rn := operandNR(m.vregOf(x))
		switch {
		case x.Type().IsInt() && to.IsFloat():
			m.insert(instruction{kind: movToFpu, rd: rd, rn: rn, u3: is64(to)})
		case x.Type().IsFloat() && to.IsInt():
			m.insert(instruction{kind: movFromFpu, rd: rd, rn: rn, u3: is64(to)})
		case x.Type().IsInt() && to.IsInt():
			m.insert(instruction{kind: mov64, rd: rd, rn: rn})
		default:
			m.insert(instruction{kind: fpuMov128, rd: rd, rn: rn})
		}
		return true, nil
	})

	// i128 glue.
	registerRule(ssa.OpcodeIconcat, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		lo, hi := si.Arg2()
		dst := m.vregsOf(si.Return())
		m.insert(m.moveInstr(dst.At(1), m.vregOf(hi), ssa.TypeI64))
		m.insert(m.moveInstr(dst.At(0), m.vregOf(lo), ssa.TypeI64))
		return true, nil
	})
	registerRule(ssa.OpcodeIsplit, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		src := m.vregsOf(si.Arg())
		r1, rs := si.Returns()
		m.insert(m.moveInstr(m.vregOf(rs[0]), src.At(1), ssa.TypeI64))
		m.insert(m.moveInstr(m.vregOf(r1), src.At(0), ssa.TypeI64))
		return true, nil
	})

	// Memory: the address-mode rules live in lower_mem.go.
	registerMemoryRules()

	// Vector.
	registerRule(ssa.OpcodeSplat, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		arr := arrangementOf(si.Return().Type())
		rd := operandNR(m.vregOf(si.Return()))
		if x.Type().IsInt() {
			m.insert(instruction{kind: vecDup, rd: rd, rn: operandNR(m.vregOf(x)), u1: uint64(arr)})
			return true, nil
		}
		tmp := operandNR(regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt)))
		m.insert(instruction{kind: vecDup, rd: rd, rn: tmp, u1: uint64(arr)})
		m.insert(instruction{kind: movFromFpu, rd: tmp, rn: operandNR(m.vregOf(x)), u3: is64(x.Type())})
		return true, nil
	})
	registerRule(ssa.OpcodeExtractLane, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		lane, signed := si.LaneData()
		arr := elemArrangementOf(x.Type().LaneType())
		sf := uint64(0)
		if signed {
			sf = 1
		}
		m.insert(instruction{
			kind: movFromVec, rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)),
			u1: uint64(arr), u2: uint64(lane), u3: sf,
		})
		return true, nil
	})
	registerRule(ssa.OpcodeInsertLane, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		lane, _ := si.LaneData()
		rd := m.vregOf(si.Return())
		arr := elemArrangementOf(x.Type().LaneType())
		m.insert(instruction{
			kind: movToVec, rd: operandNR(rd), rn: operandNR(m.vregOf(y)), rm: operandNR(rd),
			u1: uint64(arr), u2: uint64(lane),
		})
		m.insert(instruction{kind: fpuMov128, rd: operandNR(rd), rn: operandNR(m.vregOf(x))})
		return true, nil
	})
	registerRule(ssa.OpcodeVIadd, 10, vecRRRRule(vecOpAdd))
	registerRule(ssa.OpcodeVIsub, 10, vecRRRRule(vecOpSub))
	registerRule(ssa.OpcodeVband, 10, vecRRRRule(vecOpAnd))
	registerRule(ssa.OpcodeVbor, 10, vecRRRRule(vecOpOrr))
	registerRule(ssa.OpcodeVbxor, 10, vecRRRRule(vecOpEor))

	// Atomics.
	registerRule(ssa.OpcodeAtomicLoad, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		t := si.Return().Type()
		m.insert(instruction{kind: ldar, rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(si.Arg())), u1: uint64(t.Bits())})
		return true, nil
	})
	registerRule(ssa.OpcodeAtomicStore, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		v, p := si.Arg2()
		m.insert(instruction{kind: stlr, rn: operandNR(m.vregOf(v)), rm: operandNR(m.vregOf(p)), u1: uint64(v.Type().Bits())})
		return true, nil
	})
	registerRule(ssa.OpcodeAtomicRmw, 20, func(m *machine, si *ssa.Instruction) (bool, error) {
		if !m.cfg.Features.LSE {
			return false, nil
		}
		op := si.AtomicRmwData()
		switch op {
		case ssa.AtomicRmwOpAdd, ssa.AtomicRmwOpOr, ssa.AtomicRmwOpXor, ssa.AtomicRmwOpXchg:
		default:
			return false, nil
		}
		p, x := si.Arg2()
		m.insert(instruction{
			kind: lseRmw, u1: uint64(op), u2: uint64(x.Type().Bits()),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(p)), rm: operandNR(m.vregOf(x)),
		})
		return true, nil
	})
	registerRule(ssa.OpcodeAtomicRmw, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		p, x := si.Arg2()
		m.insert(instruction{
			kind: atomicRmwLoop, u1: uint64(si.AtomicRmwData()), u2: uint64(x.Type().Bits()),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(p)), rm: operandNR(m.vregOf(x)),
		})
		return true, nil
	})
	registerRule(ssa.OpcodeAtomicCas, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		p, expected, repl := si.Arg3()
		kind := atomicCasLoop
		if m.cfg.Features.LSE {
			kind = lseCas
		}
		rd := m.vregOf(si.Return())
		// rd doubles as the expected-value input.
		m.insert(instruction{
			kind: kind, u2: uint64(expected.Type().Bits()),
			rd: operandNR(rd), rn: operandNR(m.vregOf(p)), rm: operandNR(m.vregOf(repl)),
		})
		m.insert(m.moveInstr(rd, m.vregOf(expected), expected.Type()))
		return true, nil
	})
	registerRule(ssa.OpcodeFence, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.insert(instruction{kind: dmb})
		return true, nil
	})

	// Control and miscellanea.
	registerRule(ssa.OpcodeReturn, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		return true, m.lowerReturn(si)
	})
	// A conditional branch normally lowers alongside the terminator; when
	// it sits before a non-branching terminator (return, trap) it arrives
	// here instead.
	registerRule(ssa.OpcodeBrz, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		return true, m.lowerConditionalBranch(si)
	})
	registerRule(ssa.OpcodeBrnz, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		return true, m.lowerConditionalBranch(si)
	})
	registerRule(ssa.OpcodeCall, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		ref, sigRef, args := si.CallData()
		name, _ := m.compiler.SSABuilder().FunctionData(ref)
		return true, m.lowerCallCommon(si, name, sigRef, args, false, ssa.ValueInvalid)
	})
	registerRule(ssa.OpcodeCallIndirect, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		callee, sigRef, args := si.CallIndirectData()
		return true, m.lowerCallCommon(si, "", sigRef, args, true, callee)
	})
	registerRule(ssa.OpcodeTrap, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.insert(instruction{kind: brk, u1: uint64(si.TrapData())})
		return true, nil
	})
	registerRule(ssa.OpcodeTrapz, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		c := si.Arg()
		m.insert(instruction{
			kind: trapIf,
			u1:   registerAsRegZeroCond(m.vregOf(c)).asUint64(),
			u2:   uint64(si.TrapData()),
		})
		return true, nil
	})
	registerRule(ssa.OpcodeSequencePoint, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		m.insert(instruction{kind: seqPoint, u1: si.SequencePointData()})
		return true, nil
	})
}

func registerAddSubRules(op ssa.Opcode, alu aluOp) {
	// imm12 form.
	registerRule(op, 30, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		if x.Type() == ssa.TypeI128 {
			m.lowerI128AddSub(si, alu)
			return true, nil
		}
		rm := m.getOperand(y, si, true, false, false)
		if rm.kind != operandKindImm12 {
			return false, nil
		}
		m.insert(instruction{kind: aluRRImm12, u1: uint64(alu), rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)), rm: rm, u3: is64(x.Type())})
		return true, nil
	})
	// Shifted-register form.
	registerRule(op, 20, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		rm := m.getOperand(y, si, false, true, false)
		if rm.kind != operandKindSR {
			return false, nil
		}
		m.insert(instruction{kind: aluRRR, u1: uint64(alu), rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)), rm: rm, u3: is64(x.Type())})
		return true, nil
	})
	// Extended-register form.
	registerRule(op, 15, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		rm := m.getOperand(y, si, false, false, true)
		if rm.kind != operandKindER {
			return false, nil
		}
		m.insert(instruction{kind: aluRRR, u1: uint64(alu), rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)), rm: rm, u3: is64(x.Type())})
		return true, nil
	})
	// Plain register form.
	registerRule(op, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		m.insert(instruction{kind: aluRRR, u1: uint64(alu), rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(y)), u3: is64(x.Type())})
		return true, nil
	})
}

func (m *machine) lowerI128AddSub(si *ssa.Instruction, alu aluOp) {
	x, y := si.Arg2()
	xs, ys, ds := m.vregsOf(x), m.vregsOf(y), m.vregsOf(si.Return())
	var loOp, hiOp aluOp
	if alu == aluOpAdd {
		loOp, hiOp = aluOpAddS, aluOpAdc
	} else {
		loOp, hiOp = aluOpSubS, aluOpSbc
	}
	// Backward: the carry-consuming high half first.
	m.insert(instruction{kind: aluRRR, u1: uint64(hiOp), rd: operandNR(ds.At(1)), rn: operandNR(xs.At(1)), rm: operandNR(ys.At(1)), u3: 1})
	m.insert(instruction{kind: aluRRR, u1: uint64(loOp), rd: operandNR(ds.At(0)), rn: operandNR(xs.At(0)), rm: operandNR(ys.At(0)), u3: 1})
}

func registerLogicalRules(op ssa.Opcode, alu aluOp) {
	registerRule(op, 20, func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		def := m.compiler.ValueDefinition(y)
		if !def.SinkableBy(si) || def.Instr.Opcode() != ssa.OpcodeIconst {
			return false, nil
		}
		sf := x.Type().Bits() == 64
		n, immr, imms, ok := asBitmaskImmediate(def.Instr.ConstantData(), sf)
		if !ok {
			return false, nil
		}
		m.compiler.MarkLowered(def.Instr)
		m.insert(instruction{
			kind: aluRRBitmaskImm, u1: uint64(alu),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)),
			u2: uint64(n)<<12 | uint64(immr)<<6 | uint64(imms),
			u3: is64(x.Type()),
		})
		return true, nil
	})
	registerRule(op, 10, simpleALURule(alu))
}

func logicalImmRule(alu aluOp) func(m *machine, si *ssa.Instruction) (bool, error) {
	return func(m *machine, si *ssa.Instruction) (bool, error) {
		x, imm := si.BinaryImmData()
		sf := x.Type().Bits() == 64
		rd := operandNR(m.vregOf(si.Return()))
		if n, immr, imms, ok := asBitmaskImmediate(imm, sf); ok {
			m.insert(instruction{
				kind: aluRRBitmaskImm, u1: uint64(alu),
				rd: rd, rn: operandNR(m.vregOf(x)),
				u2: uint64(n)<<12 | uint64(immr)<<6 | uint64(imms),
				u3: is64(x.Type()),
			})
			return true, nil
		}
		tmp := regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt))
		m.insert(instruction{kind: aluRRR, u1: uint64(alu), rd: rd, rn: operandNR(m.vregOf(x)), rm: operandNR(tmp), u3: is64(x.Type())})
		m.lowerConstantI64(tmp, imm, true)
		return true, nil
	}
}

func simpleALURule(alu aluOp) func(m *machine, si *ssa.Instruction) (bool, error) {
	return func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		m.insert(instruction{
			kind: aluRRR, u1: uint64(alu),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(y)),
			u3: is64(x.Type()),
		})
		return true, nil
	}
}

func shiftImmRule(alu aluOp) func(m *machine, si *ssa.Instruction) (bool, error) {
	return func(m *machine, si *ssa.Instruction) (bool, error) {
		x, imm := si.BinaryImmData()
		width := uint64(x.Type().Bits())
		m.insert(instruction{
			kind: aluRRImmShift, u1: uint64(alu),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)),
			rm: operandShiftImm(imm % width),
			u3: is64(x.Type()),
		})
		return true, nil
	}
}

func fpuBinRule(op fpuBinOp) func(m *machine, si *ssa.Instruction) (bool, error) {
	return func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		m.insert(instruction{
			kind: fpuRRR, u1: uint64(op),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(y)),
			u3: is64(x.Type()),
		})
		return true, nil
	}
}

func fpuUniRule(op fpuUniOp) func(m *machine, si *ssa.Instruction) (bool, error) {
	return func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		m.insert(instruction{
			kind: fpuRR, u1: uint64(op),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)),
			u3: is64(x.Type()),
		})
		return true, nil
	}
}

func fcvtToIntRule(signed bool) func(m *machine, si *ssa.Instruction) (bool, error) {
	return func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		var s uint64
		if signed {
			s = 1
		}
		m.insert(instruction{
			kind: fpuToInt, u1: s, u2: is64(x.Type()), u3: is64(si.Return().Type()),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)),
		})
		// A NaN input cannot convert: FCMP with itself raises the
		// unordered flag.
		m.insert(instruction{kind: trapIf, u1: vs.asCond().asUint64(), u2: uint64(ssa.TrapIntegerOverflow)})
		m.insert(instruction{kind: fpuCmp, rn: operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(x)), u3: is64(x.Type())})
		return true, nil
	}
}

func cvtFromIntRule(signed bool) func(m *machine, si *ssa.Instruction) (bool, error) {
	return func(m *machine, si *ssa.Instruction) (bool, error) {
		x := si.Arg()
		var s uint64
		if signed {
			s = 1
		}
		m.insert(instruction{
			kind: intToFpu, u1: s, u2: is64(x.Type()), u3: is64(si.Return().Type()),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)),
		})
		return true, nil
	}
}

func extendRule(m *machine, si *ssa.Instruction) (bool, error) {
	x, fromBits, toBits, signed := si.ExtendData()
	var s uint64
	if signed {
		s = 1
	}
	m.insert(instruction{
		kind: extend, u1: uint64(fromBits), u2: uint64(toBits), u3: s,
		rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)),
	})
	return true, nil
}

func vecRRRRule(op vecOp) func(m *machine, si *ssa.Instruction) (bool, error) {
	return func(m *machine, si *ssa.Instruction) (bool, error) {
		x, y := si.Arg2()
		m.insert(instruction{
			kind: vecRRR, u1: uint64(op), u2: uint64(arrangementOf(x.Type())),
			rd: operandNR(m.vregOf(si.Return())), rn: operandNR(m.vregOf(x)), rm: operandNR(m.vregOf(y)),
		})
		return true, nil
	}
}

func arrangementOf(t ssa.Type) vecArrangement {
	switch t {
	case ssa.TypeI8x8:
		return vecArrangement8B
	case ssa.TypeI8x16:
		return vecArrangement16B
	case ssa.TypeI16x4:
		return vecArrangement4H
	case ssa.TypeI16x8:
		return vecArrangement8H
	case ssa.TypeI32x2, ssa.TypeF32x2:
		return vecArrangement2S
	case ssa.TypeI32x4, ssa.TypeF32x4:
		return vecArrangement4S
	case ssa.TypeI64x2, ssa.TypeF64x2:
		return vecArrangement2D
	default:
		panic("BUG: not a vector type: " + t.String())
	}
}

func elemArrangementOf(lane ssa.Type) vecArrangement {
	switch lane.Bits() {
	case 8:
		return vecArrangementB
	case 16:
		return vecArrangementH
	case 32:
		return vecArrangementS
	default:
		return vecArrangementD
	}
}

// lowerIDiv emits the trapping division (and remainder) sequence.
func (m *machine) lowerIDiv(si *ssa.Instruction, signed, rem bool) {
	x, y := si.Arg2()
	sf := is64(x.Type())
	rd := m.vregOf(si.Return())
	rn, rm := m.vregOf(x), m.vregOf(y)

	divOp := aluOpUDiv
	if signed {
		divOp = aluOpSDiv
	}

	quot := rd
	if rem {
		quot = regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt))
		// rem = x - quot*y
		m.insert(instruction{
			kind: aluRRRR, u1: uint64(aluOpMSub),
			rd: operandNR(rd), rn: operandNR(quot), rm: operandNR(rm), ra: operandNR(rn),
			u3: sf,
		})
	}
	m.insert(instruction{kind: aluRRR, u1: uint64(divOp), rd: operandNR(quot), rn: operandNR(rn), rm: operandNR(rm), u3: sf})

	if signed && !rem {
		// Overflow iff x == INT_MIN && y == -1: CMN y, #1 sets Z when
		// y == -1; then CCMP x, #1 leaves V set only for INT_MIN.
		m.insert(instruction{kind: trapIf, u1: vs.asCond().asUint64(), u2: uint64(ssa.TrapIntegerOverflow)})
		m.insert(instruction{kind: ccmpImm, u1: eq.asCond().asUint64(), u2: 0, rn: operandNR(rn), rm: operand{kind: operandKindImm12, data: 1}, u3: sf})
		m.insert(instruction{kind: aluRRImm12, u1: uint64(aluOpAddS), rd: operandNR(xzrReg), rn: operandNR(rm), rm: operandImm12(1, 0), u3: sf})
	}

	// Divide by zero traps.
	m.insert(instruction{kind: trapIf, u1: registerAsRegZeroCond(rm).asUint64(), u2: uint64(ssa.TrapIntegerDivByZero)})
}

// lowerFcopysign combines the magnitude of x with the sign of y through
// the integer unit.
func (m *machine) lowerFcopysign(si *ssa.Instruction) {
	x, y := si.Arg2()
	sf := x.Type().Bits() == 64
	rd := m.vregOf(si.Return())
	t1 := regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt))
	t2 := regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt))

	var signMask uint64 = 0x8000000000000000
	if !sf {
		signMask = 0x80000000
	}
	nSign, immrSign, immsSign, _ := asBitmaskImmediate(signMask, sf)
	nMag, immrMag, immsMag, _ := asBitmaskImmediate(^signMask&mask64(sf), sf)

	u3 := uint64(0)
	if sf {
		u3 = 1
	}
	// Backward emission; the program order is the reverse of these.
	m.insert(instruction{kind: movToFpu, rd: operandNR(rd), rn: operandNR(t1), u3: u3})
	m.insert(instruction{kind: aluRRR, u1: uint64(aluOpOrr), rd: operandNR(t1), rn: operandNR(t1), rm: operandNR(t2), u3: u3})
	m.insert(instruction{kind: aluRRBitmaskImm, u1: uint64(aluOpAnd), rd: operandNR(t2), rn: operandNR(t2), u2: uint64(nSign)<<12 | uint64(immrSign)<<6 | uint64(immsSign), u3: u3})
	m.insert(instruction{kind: aluRRBitmaskImm, u1: uint64(aluOpAnd), rd: operandNR(t1), rn: operandNR(t1), u2: uint64(nMag)<<12 | uint64(immrMag)<<6 | uint64(immsMag), u3: u3})
	m.insert(instruction{kind: movFromFpu, rd: operandNR(t2), rn: operandNR(m.vregOf(y)), u3: u3})
	m.insert(instruction{kind: movFromFpu, rd: operandNR(t1), rn: operandNR(m.vregOf(x)), u3: u3})
}

func mask64(sf bool) uint64 {
	if sf {
		return ^uint64(0)
	}
	return 0xffffffff
}
