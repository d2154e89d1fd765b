package arm64

// The adapter exposing the lowered VCode to the register allocator, and
// the spill/reload materialization it requests.

import (
	"github.com/joelreymont/hoist/backend"
	"github.com/joelreymont/hoist/backend/regalloc"
)

// Defs implements regalloc.Instr.
func (i *instruction) Defs(regs []regalloc.Reg) []regalloc.Reg { return i.defs(regs) }

// Uses implements regalloc.Instr.
func (i *instruction) Uses(regs []regalloc.Reg) []regalloc.Reg { return i.uses(regs) }

// AssignUse implements regalloc.Instr.
func (i *instruction) AssignUse(index int, r regalloc.RealReg) { i.assignUse(index, r) }

// AssignDef implements regalloc.Instr.
func (i *instruction) AssignDef(index int, r regalloc.RealReg) { i.assignDef(index, r) }

// IsCopy implements regalloc.Instr.
func (i *instruction) IsCopy() (dst, src regalloc.Reg, ok bool) { return i.isCopy() }

// IsCall implements regalloc.Instr.
func (i *instruction) IsCall() bool { return i.isCall() }

// IsReturn implements regalloc.Instr.
func (i *instruction) IsReturn() bool { return i.isRet() }

// ReusedInput implements regalloc.Instr. AArch64 is a three-operand ISA;
// no instruction form ties its destination to an input.
func (i *instruction) ReusedInput(defIndex int) (int, bool) { return 0, false }

// regAllocFunction adapts the VCode to regalloc.Function.
type regAllocFunction struct {
	m     *machine
	code  *backend.VCode[instruction]
	edits []backend.Insertion[instruction]
}

// RegAlloc implements backend.Machine.
func (m *machine) RegAlloc() error {
	a := regalloc.NewAllocator(m.regAllocInfo)
	f := &regAllocFunction{m: m, code: m.vcode}
	return a.Allocate(f)
}

func (f *regAllocFunction) Blocks() int           { return len(f.code.Blocks) }
func (f *regAllocFunction) BlockInstrs(b int) int { return int(f.code.Blocks[b].End - f.code.Blocks[b].Begin) }

func (f *regAllocFunction) Instr(b, i int) regalloc.Instr {
	return &f.code.Instrs[f.code.Blocks[b].Begin+int32(i)]
}

func (f *regAllocFunction) BlockPreds(b int) []int32 { return f.code.Blocks[b].Preds }
func (f *regAllocFunction) BlockSuccs(b int) []int32 { return f.code.Blocks[b].Succs }

// InsertReloadBefore implements regalloc.Function: a load from the spill
// slot as a first-class instruction.
func (f *regAllocFunction) InsertReloadBefore(r regalloc.RealReg, c regalloc.RegClass, slot uint32, b, i int32) {
	f.edits = append(f.edits, backend.Insertion[instruction]{
		Block: b,
		Index: f.code.Blocks[b].Begin + i,
		Instr: spillAccessInstr(r, c, slot, true),
	})
}

// InsertStoreAfter implements regalloc.Function.
func (f *regAllocFunction) InsertStoreAfter(r regalloc.RealReg, c regalloc.RegClass, slot uint32, b, i int32) {
	f.edits = append(f.edits, backend.Insertion[instruction]{
		Block: b,
		Index: f.code.Blocks[b].Begin + i + 1,
		Instr: spillAccessInstr(r, c, slot, false),
	})
}

func spillAccessInstr(r regalloc.RealReg, c regalloc.RegClass, slot uint32, load bool) instruction {
	amode := addressModeSpill(slot)
	reg := operandNR(regalloc.RegFromReal(r))
	switch c {
	case regalloc.RegClassInt:
		if load {
			return instruction{kind: uLoad64, rd: reg, amode: amode}
		}
		return instruction{kind: store64, rn: reg, amode: amode}
	case regalloc.RegClassFloat:
		if load {
			return instruction{kind: fpuLoad64, rd: reg, amode: amode}
		}
		return instruction{kind: fpuStore64, rn: reg, amode: amode}
	default:
		if load {
			return instruction{kind: fpuLoad128, rd: reg, amode: amode}
		}
		return instruction{kind: fpuStore128, rn: reg, amode: amode}
	}
}

// ClobberedRegisters implements regalloc.Function.
func (f *regAllocFunction) ClobberedRegisters(regs []regalloc.RealReg) {
	f.m.clobbered = append([]regalloc.RealReg(nil), regs...)
}

// SpillSlotsUsed implements regalloc.Function.
func (f *regAllocFunction) SpillSlotsUsed(bytes int64) {
	f.m.spillAreaSize = (bytes + 15) &^ 15
}

// Done implements regalloc.Function: splice the collected spill accesses.
func (f *regAllocFunction) Done() {
	f.code.ApplyInsertions(f.edits)
}
