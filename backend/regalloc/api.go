package regalloc

import "fmt"

// These interfaces are implemented by ISA-specific backends to abstract
// away the details and let the allocator work on any ISA.

type (
	// Function is the top-level interface the allocator works on: the
	// lowered CFG in final layout order (reverse postorder, entry first).
	Function interface {
		// Blocks returns the number of blocks.
		Blocks() int
		// BlockInstrs returns the number of instructions in block b.
		BlockInstrs(b int) int
		// Instr returns instruction i of block b.
		Instr(b, i int) Instr
		// BlockPreds returns the predecessor block indices of block b.
		BlockPreds(b int) []int32
		// BlockSuccs returns the successor block indices of block b.
		BlockSuccs(b int) []int32

		// InsertReloadBefore asks the ISA to materialize a load of the
		// given spill slot into r immediately before instruction (b, i).
		InsertReloadBefore(r RealReg, c RegClass, slot uint32, b, i int32)
		// InsertStoreAfter asks the ISA to materialize a store of r to the
		// given spill slot immediately after instruction (b, i).
		InsertStoreAfter(r RealReg, c RegClass, slot uint32, b, i int32)

		// ClobberedRegisters tells the ISA which callee-saved registers the
		// allocation used, for the prologue to save.
		ClobberedRegisters([]RealReg)

		// SpillSlotsUsed tells the ISA the total byte size of the spill
		// area.
		SpillSlotsUsed(bytes int64)

		// Done tells the implementation that register allocation finished
		// and the collected insertions can be spliced.
		Done()
	}

	// Instr is an instruction in a block, abstracting away the underlying ISA.
	Instr interface {
		fmt.Stringer

		// Defs appends the registers defined by this instruction. Both
		// virtual and pinned physical registers appear; a physical
		// register is a fixed constraint.
		Defs(regs []Reg) []Reg
		// Uses appends the registers used by this instruction.
		Uses(regs []Reg) []Reg
		// AssignUse rewrites the index-th use to the physical register.
		AssignUse(index int, r RealReg)
		// AssignDef rewrites the index-th def to the physical register.
		AssignDef(index int, r RealReg)
		// IsCopy returns the endpoints when this instruction is a
		// register-to-register move; used for coalescing hints and for
		// redundant-copy elimination after allocation.
		IsCopy() (dst, src Reg, ok bool)
		// IsCall returns true for calls, which clobber the caller-saved
		// set.
		IsCall() bool
		// IsReturn returns true for returns.
		IsReturn() bool
		// ReusedInput reports a two-address-style constraint: the def at
		// defIndex must share its register with the use at useIndex.
		ReusedInput(defIndex int) (useIndex int, ok bool)
	}
)

// RegisterInfo holds the statically-known ISA-specific register
// information.
type RegisterInfo struct {
	// AllocatableRegisters is indexed by class; the order is the
	// allocation preference order.
	AllocatableRegisters [NumRegClass][]RealReg
	// CalleeSavedRegisters must be preserved by the prologue when used.
	CalleeSavedRegisters map[RealReg]struct{}
	// CallerSavedRegisters are clobbered by calls.
	CallerSavedRegisters map[RealReg]struct{}
	// ScratchRegisters are reserved per class for spill reloads and are
	// never allocated.
	ScratchRegisters [NumRegClass][2]RealReg
}

func (r *RegisterInfo) isCalleeSaved(reg RealReg) bool {
	_, ok := r.CalleeSavedRegisters[reg]
	return ok
}

func (r *RegisterInfo) isCallerSaved(reg RealReg) bool {
	_, ok := r.CallerSavedRegisters[reg]
	return ok
}
