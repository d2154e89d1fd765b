package backend

import (
	"fmt"

	"github.com/joelreymont/hoist/asm"
	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/ssa"
	"github.com/joelreymont/hoist/unwind"
)

// Compiler is the machine-independent driver: it pre-allocates virtual
// registers for SSA values, walks blocks in reverse postorder lowering
// instructions in reverse program order through the Machine, then runs
// register allocation and emission.
type Compiler interface {
	// Compile runs the full pipeline, emitting into buf. The returned
	// frame size and unwind info come from the machine.
	Compile(buf *asm.Buffer) (*CompiledFunction, error)

	// Lower runs only the lowering stage, for tests and staged pipelines.
	Lower() error

	// AllocateVReg allocates a fresh virtual register of the class.
	AllocateVReg(c regalloc.RegClass) regalloc.VReg

	// VRegOf returns the registers pre-allocated for the given value.
	VRegOf(value ssa.Value) regalloc.ValueRegs

	// ValueDefinition returns the definition of the given value.
	ValueDefinition(value ssa.Value) *SSAValueDefinition

	// MarkLowered marks the instruction as lowered so the driver skips it.
	MarkLowered(inst *ssa.Instruction)

	// SSABuilder returns the function under compilation.
	SSABuilder() ssa.Builder

	// Reset readies the compiler for the next function.
	Reset()
}

// CompiledFunction is the backend's output for one function before the
// final artifact assembly.
type CompiledFunction struct {
	FrameSize int64
	Frame     *unwind.FrameInfo
}

// NewCompiler returns a Compiler driving the given machine over the given
// function.
func NewCompiler(mach Machine, builder ssa.Builder) Compiler {
	c := &compiler{
		mach:       mach,
		ssaBuilder: builder,
		lowered:    make(map[*ssa.Instruction]struct{}),
	}
	mach.SetCompiler(c)
	return c
}

type compiler struct {
	mach       Machine
	ssaBuilder ssa.Builder

	nextVRegID [regalloc.NumRegClass]uint32

	// ssaValuesToVRegs maps ssa.ValueID to the pre-allocated registers.
	ssaValuesToVRegs []regalloc.ValueRegs
	// ssaValueDefinitions maps ssa.ValueID to its definition.
	ssaValueDefinitions []SSAValueDefinition

	lowered map[*ssa.Instruction]struct{}
}

// Compile implements Compiler.Compile.
func (c *compiler) Compile(buf *asm.Buffer) (*CompiledFunction, error) {
	if err := c.Lower(); err != nil {
		return nil, err
	}
	if err := c.mach.RegAlloc(); err != nil {
		return nil, err
	}
	if err := c.mach.PostRegAlloc(); err != nil {
		return nil, err
	}
	if err := c.mach.Encode(buf); err != nil {
		return nil, err
	}
	if err := buf.Finalize(); err != nil {
		return nil, err
	}
	fi := c.mach.FrameInfo()
	fi.CodeSize = uint32(len(buf.Data()))
	return &CompiledFunction{
		FrameSize: c.mach.FrameSize(),
		Frame:     fi,
	}, nil
}

// Lower implements Compiler.Lower.
func (c *compiler) Lower() error {
	builder := c.ssaBuilder
	builder.LayoutCFG()
	builder.AssignGroupIDs()
	c.assignVirtualRegisters()

	if err := c.mach.StartFunction(builder.Signature()); err != nil {
		return err
	}
	for blk := builder.BlockIteratorReversePostOrderBegin(); blk != nil; blk = builder.BlockIteratorReversePostOrderNext() {
		if err := c.lowerBlock(blk); err != nil {
			return fmt.Errorf("%s: %w", blk.Name(), err)
		}
	}
	c.mach.EndFunction()
	return nil
}

func (c *compiler) lowerBlock(blk ssa.BasicBlock) error {
	mach := c.mach
	mach.StartBlock(blk)

	// We traverse the instructions in reverse order so that a consumer can
	// fold its single-use producers.
	cur := blk.Tail()

	// Gather the branching instructions at the end of the block: the
	// terminator and, just before it, an optional conditional branch.
	var br0, br1 *ssa.Instruction
	if cur.IsBranching() {
		br0 = cur
		cur = cur.Prev()
		if cur != nil && cur.IsBranching() {
			br1 = cur
			cur = cur.Prev()
		}
	}

	if br0 != nil {
		mach.SetEmitColor(ColorSetOutput)
		if err := mach.LowerBranches(br0, br1); err != nil {
			return err
		}
	}

	for ; cur != nil; cur = cur.Prev() {
		if _, ok := c.lowered[cur]; ok {
			continue
		}
		if c.skippable(cur) {
			continue
		}
		mach.SetEmitColor(colorOf(cur))
		if err := mach.LowerInstr(cur); err != nil {
			return err
		}
	}

	if blk.EntryBlock() {
		params := make([]ssa.Value, blk.Params())
		for i := range params {
			params[i] = blk.Param(i)
		}
		mach.SetEmitColor(ColorMultiResult)
		if err := mach.LowerParams(params); err != nil {
			return err
		}
	}

	mach.EndBlock()
	return nil
}

// skippable returns true for a pure instruction none of whose results are
// referenced; no code is needed for it.
func (c *compiler) skippable(instr *ssa.Instruction) bool {
	if instr.HasSideEffect() {
		return false
	}
	r, rs := instr.Returns()
	if r.Valid() && c.ssaValueDefinitions[r.ID()].RefCount > 0 {
		return false
	}
	for _, v := range rs {
		if c.ssaValueDefinitions[v.ID()].RefCount > 0 {
			return false
		}
	}
	return true
}

func colorOf(instr *ssa.Instruction) InstrColor {
	r, rs := instr.Returns()
	multi := len(rs) > 0 ||
		instr.Opcode() == ssa.OpcodeCall || instr.Opcode() == ssa.OpcodeCallIndirect ||
		instr.Opcode() == ssa.OpcodeTryCall
	switch {
	case multi && r.Valid():
		return ColorMultiResult
	case instr.HasSideEffect():
		return ColorSetOutput
	default:
		return ColorGetValue
	}
}

// assignVirtualRegisters assigns virtual registers to every SSA value
// before lowering starts, so a rule realizing a value elsewhere only
// records a rename.
func (c *compiler) assignVirtualRegisters() {
	builder := c.ssaBuilder
	refCounts := builder.ValueRefCounts()

	need := len(refCounts)
	c.ssaValuesToVRegs = make([]regalloc.ValueRegs, need)
	c.ssaValueDefinitions = make([]SSAValueDefinition, need)

	for blk := builder.BlockIteratorBegin(); blk != nil; blk = builder.BlockIteratorNext() {
		for i := 0; i < blk.Params(); i++ {
			p := blk.Param(i)
			pid := p.ID()
			c.ssaValuesToVRegs[pid] = c.allocateRegsFor(p.Type())
			c.ssaValueDefinitions[pid] = SSAValueDefinition{V: p, RefCount: refCounts[pid]}
		}
		for cur := blk.Root(); cur != nil; cur = cur.Next() {
			r, rs := cur.Returns()
			if r.Valid() {
				id := r.ID()
				c.ssaValuesToVRegs[id] = c.allocateRegsFor(r.Type())
				c.ssaValueDefinitions[id] = SSAValueDefinition{V: r, Instr: cur, N: 0, RefCount: refCounts[id]}
			}
			for i, rv := range rs {
				id := rv.ID()
				c.ssaValuesToVRegs[id] = c.allocateRegsFor(rv.Type())
				c.ssaValueDefinitions[id] = SSAValueDefinition{V: rv, Instr: cur, N: i + 1, RefCount: refCounts[id]}
			}
		}
	}
}

// allocateRegsFor pre-allocates the register group for one value: one
// register for scalars and vectors, a pair for i128, and for aggregates
// the shape their ABI classification implies (per-member registers for
// homogeneous float/vector aggregates, 8-byte chunks for small ones, a
// pointer for large ones).
func (c *compiler) allocateRegsFor(typ ssa.Type) regalloc.ValueRegs {
	newReg := func(cls regalloc.RegClass) regalloc.Reg {
		return regalloc.RegFromVirtual(c.AllocateVReg(cls))
	}
	if typ == ssa.TypeI128 {
		return regalloc.ValueRegsTwo(newReg(regalloc.RegClassInt), newReg(regalloc.RegClassInt))
	}
	if typ.IsAggregate() {
		layout := c.ssaBuilder.AggregateLayoutOf(typ)
		if n := len(layout.Fields); n >= 1 && n <= 4 {
			first := layout.Fields[0].Type
			homogeneous := first.IsFloat() || first.IsVector()
			for _, f := range layout.Fields[1:] {
				if f.Type != first {
					homogeneous = false
					break
				}
			}
			if homogeneous {
				regs := make([]regalloc.Reg, n)
				for i := range regs {
					regs[i] = newReg(regalloc.RegClassOf(first))
				}
				return regalloc.NewValueRegs(regs...)
			}
		}
		if layout.Size <= 16 {
			chunks := int(layout.Size+7) / 8
			regs := make([]regalloc.Reg, chunks)
			for i := range regs {
				regs[i] = newReg(regalloc.RegClassInt)
			}
			return regalloc.NewValueRegs(regs...)
		}
		return regalloc.ValueRegsOne(newReg(regalloc.RegClassInt))
	}
	return regalloc.ValueRegsOne(newReg(regalloc.RegClassOf(typ)))
}

// AllocateVReg implements Compiler.AllocateVReg.
func (c *compiler) AllocateVReg(class regalloc.RegClass) regalloc.VReg {
	id := c.nextVRegID[class]
	c.nextVRegID[class]++
	return regalloc.NewVReg(class, id)
}

// VRegOf implements Compiler.VRegOf.
func (c *compiler) VRegOf(value ssa.Value) regalloc.ValueRegs {
	return c.ssaValuesToVRegs[value.ID()]
}

// ValueDefinition implements Compiler.ValueDefinition.
func (c *compiler) ValueDefinition(value ssa.Value) *SSAValueDefinition {
	return &c.ssaValueDefinitions[value.ID()]
}

// MarkLowered implements Compiler.MarkLowered.
func (c *compiler) MarkLowered(inst *ssa.Instruction) {
	c.lowered[inst] = struct{}{}
}

// SSABuilder implements Compiler.SSABuilder.
func (c *compiler) SSABuilder() ssa.Builder {
	return c.ssaBuilder
}

// Reset implements Compiler.Reset.
func (c *compiler) Reset() {
	for k := range c.lowered {
		delete(c.lowered, k)
	}
	c.ssaValuesToVRegs = c.ssaValuesToVRegs[:0]
	c.ssaValueDefinitions = c.ssaValueDefinitions[:0]
	for i := range c.nextVRegID {
		c.nextVRegID[i] = 0
	}
	c.mach.Reset()
}
