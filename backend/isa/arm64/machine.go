// Package arm64 implements the AArch64 backend: the concrete instruction
// set and encoders, the lowering rules, the calling conventions, the
// prologue/epilogue shape and the unwind description.
package arm64

import (
	"github.com/joelreymont/hoist/asm"
	"github.com/joelreymont/hoist/backend"
	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/ssa"
	"github.com/joelreymont/hoist/unwind"
)

// Features are the optional ISA extensions lowering may use.
type Features struct {
	// LSE enables the large-system-extension single-instruction atomics.
	LSE bool
	// PAC signs the return address with PACIASP/AUTIASP.
	PAC bool
	// BTI emits branch-target-identification landing pads.
	BTI bool
}

// OptLevel is the optimization hint; it only gates frame elision. The
// lowering rules do not consult it: rules of one opcode run in priority
// order, and rules of equal priority run in registration order.
type OptLevel byte

const (
	OptLevelNone OptLevel = iota
	OptLevelSpeed
	OptLevelSize
	OptLevelSpeedAndSize
)

// Config selects the target variant.
type Config struct {
	// Apple selects the apple-aarch64 platform rules (X18 reserved).
	Apple    bool
	Features Features
	OptLevel OptLevel
}

// NewMachine returns an AArch64 backend machine.
func NewMachine(cfg Config) backend.Machine {
	m := &machine{cfg: cfg}
	m.regAllocInfo = regInfo(cfg.Apple)
	return m
}

// syntheticKeyBase is where edge-block label keys start; SSA block IDs
// stay below it.
const syntheticKeyBase = 1 << 20

type machine struct {
	cfg      Config
	compiler backend.Compiler

	builder *backend.VCodeBuilder[instruction]
	vcode   *backend.VCode[instruction]

	regAllocInfo *regalloc.RegisterInfo

	currentABI *backend.ABISignature

	// vcodeIndexOf maps block keys (ssa block ids, or synthetic keys of
	// edge trampolines) to started vcode blocks.
	vcodeIndexOf map[uint32]int32
	// succKeys accumulates, per started vcode block, the successor keys to
	// resolve once every block index is known.
	succKeys [][]uint32

	curSuccKeys  []uint32
	nextSynthKey uint32
	// pendingEdges are edge trampolines to materialize after the current
	// block ends.
	pendingEdges []pendingEdge

	// maxCallArgSpace is the outgoing argument area the frame reserves.
	maxCallArgSpace int64

	// Filled by register allocation and frame layout.
	spillAreaSize   int64
	clobbered       []regalloc.RealReg
	frameSize       int64
	stackSlotOffs   []int64
	localsSize      int64
	frameless       bool
	regAllocEdits   []backend.Insertion[instruction]

	// Encode state.
	labels    map[uint32]asm.Label
	buf       *asm.Buffer
	frameInfo unwind.FrameInfo
	tryCalls  []pendingTryCall
}

type pendingEdge struct {
	key       uint32
	targetKey uint32
	moves     []backend.ParallelMove
}

type pendingTryCall struct {
	offset       uint32
	exceptionKey uint32
}

// SetCompiler implements backend.Machine.
func (m *machine) SetCompiler(c backend.Compiler) {
	m.compiler = c
}

// Reset implements backend.Machine.
func (m *machine) Reset() {
	m.builder = nil
	m.vcode = nil
	m.currentABI = nil
	m.vcodeIndexOf = nil
	m.succKeys = nil
	m.curSuccKeys = nil
	m.nextSynthKey = syntheticKeyBase
	m.pendingEdges = m.pendingEdges[:0]
	m.maxCallArgSpace = 0
	m.spillAreaSize = 0
	m.clobbered = nil
	m.frameSize = 0
	m.stackSlotOffs = nil
	m.localsSize = 0
	m.frameless = false
	m.regAllocEdits = m.regAllocEdits[:0]
	m.labels = nil
	m.buf = nil
	m.frameInfo = unwind.FrameInfo{}
	m.tryCalls = m.tryCalls[:0]
}

// StartFunction implements backend.Machine.
func (m *machine) StartFunction(sig *ssa.Signature) error {
	abi, err := m.ResolveABI(sig)
	if err != nil {
		return err
	}
	m.currentABI = abi
	m.builder = backend.NewVCodeBuilder[instruction](backend.EmitBackward)
	m.vcodeIndexOf = make(map[uint32]int32)
	m.nextSynthKey = syntheticKeyBase
	m.layoutStackSlots()
	return nil
}

// layoutStackSlots lays the IR-declared stack slots out in declaration
// order with their required alignment padding. The offsets are relative to
// the start of the locals area; the frame layout adds the area's SP
// offset after allocation.
func (m *machine) layoutStackSlots() {
	b := m.compiler.SSABuilder()
	n := b.StackSlots()
	m.stackSlotOffs = make([]int64, n)
	var off int64
	for i := 0; i < n; i++ {
		data := b.StackSlotData(ssa.StackSlot(i))
		align := int64(data.Align)
		if align == 0 {
			align = 1
		}
		off = (off + align - 1) &^ (align - 1)
		m.stackSlotOffs[i] = off
		off += int64(data.Size)
	}
	m.localsSize = (off + 15) &^ 15
}

// StartBlock implements backend.Machine.
func (m *machine) StartBlock(blk ssa.BasicBlock) {
	idx := m.builder.StartBlock(nil)
	m.vcodeIndexOf[uint32(blk.ID())] = idx
	m.curSuccKeys = nil
}

// EndBlock implements backend.Machine.
func (m *machine) EndBlock() {
	m.builder.EndBlock(nil)
	m.succKeys = append(m.succKeys, m.curSuccKeys)

	// Materialize any edge trampolines created for critical edges: the
	// scheduled moves followed by a jump to the real target.
	for _, e := range m.pendingEdges {
		idx := m.builder.StartBlock(nil)
		m.vcodeIndexOf[e.key] = idx
		// Backward emission: the jump first so it ends up last.
		m.insert(instruction{kind: br, u1: uint64(e.targetKey)})
		for i := len(e.moves) - 1; i >= 0; i-- {
			mv := e.moves[i]
			m.insert(m.moveInstr(mv.Dst, mv.Src, mv.Type))
		}
		m.builder.EndBlock(nil)
		m.succKeys = append(m.succKeys, []uint32{e.targetKey})
	}
	m.pendingEdges = m.pendingEdges[:0]
}

// EndFunction implements backend.Machine.
func (m *machine) EndFunction() {
	code := m.builder.Code()
	for i, keys := range m.succKeys {
		for _, k := range keys {
			code.Blocks[i].Succs = append(code.Blocks[i].Succs, m.vcodeIndexOf[k])
		}
	}
	m.vcode = m.builder.Finish()
}

// SetEmitColor implements backend.Machine.
func (m *machine) SetEmitColor(c backend.InstrColor) {
	if m.builder != nil {
		m.builder.SetColor(c)
	}
}

// insert emits one machine instruction into the open block.
func (m *machine) insert(i instruction) {
	m.builder.Emit(i)
}

// addSucc records a successor key of the current block.
func (m *machine) addSucc(key uint32) {
	m.curSuccKeys = append(m.curSuccKeys, key)
}

// allocSynthKey allocates a key for an edge trampoline block.
func (m *machine) allocSynthKey() uint32 {
	k := m.nextSynthKey
	m.nextSynthKey++
	return k
}

// moveInstr builds the register move for one value of the given type.
func (m *machine) moveInstr(dst, src regalloc.Reg, t ssa.Type) instruction {
	switch regalloc.RegClassOf(t) {
	case regalloc.RegClassInt:
		return instruction{kind: mov64, rd: operandNR(dst), rn: operandNR(src)}
	case regalloc.RegClassFloat:
		return instruction{kind: fpuMov64, rd: operandNR(dst), rn: operandNR(src)}
	default:
		return instruction{kind: fpuMov128, rd: operandNR(dst), rn: operandNR(src)}
	}
}

// labelFor returns (allocating lazily) the asm label of a block key.
func (m *machine) labelFor(key uint32) asm.Label {
	if l, ok := m.labels[key]; ok {
		return l
	}
	l := m.buf.AllocateLabel()
	m.labels[key] = l
	return l
}

// FrameSize implements backend.Machine.
func (m *machine) FrameSize() int64 {
	return m.frameSize
}

// FrameInfo implements backend.Machine.
func (m *machine) FrameInfo() *unwind.FrameInfo {
	return &m.frameInfo
}

// spillAreaOffset is the SP offset where the register-allocator spill area
// begins: above the outgoing argument space.
func (m *machine) spillAreaOffset() int64 {
	return m.maxCallArgSpace
}

// stackSlotOffset resolves an IR stack slot to its final SP offset: the
// locals area sits above the spill area.
func (m *machine) stackSlotOffset(slot uint32) int64 {
	return m.spillAreaOffset() + m.spillAreaSize + m.stackSlotOffs[slot]
}

// resolveAMode rewrites the frame-relative pseudo address modes now that
// the layout is final.
func (m *machine) resolveAMode(a addressMode) addressMode {
	switch a.kind {
	case addressModeKindSpillSlot:
		return addressModeUnsigned(spReg, m.spillAreaOffset()+a.imm*16)
	case addressModeKindStackSlot:
		slot, off := a.stackSlot()
		return addressModeUnsigned(spReg, m.stackSlotOffset(slot)+off)
	default:
		return a
	}
}
