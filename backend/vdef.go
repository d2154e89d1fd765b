package backend

import (
	"github.com/joelreymont/hoist/ssa"
)

// UseState classifies how often an SSA value is consumed. Lowering may sink
// a `once`-used pure producer into its single consumer; anything else stays
// where it is.
type UseState byte

const (
	UseStateUnused UseState = iota
	UseStateOnce
	UseStateMultiple
)

// SSAValueDefinition represents a definition of an SSA value.
type SSAValueDefinition struct {
	V ssa.Value
	// Instr is not nil if this is a definition from an instruction.
	Instr *ssa.Instruction
	// N is the result index when Instr produces multiple values.
	N int
	// RefCount is the number of references to the result.
	RefCount uint32
}

// IsFromInstr returns true if the value is an instruction result (as
// opposed to a block parameter).
func (d *SSAValueDefinition) IsFromInstr() bool {
	return d.Instr != nil
}

// UseState returns the use classification derived from the ref count.
func (d *SSAValueDefinition) UseState() UseState {
	switch d.RefCount {
	case 0:
		return UseStateUnused
	case 1:
		return UseStateOnce
	default:
		return UseStateMultiple
	}
}

// SinkableBy reports whether this definition may be folded into the lowering
// of the given consumer: the producer must be a pure instruction, used
// exactly once, and no side-effecting instruction may separate the two
// (same instruction group).
func (d *SSAValueDefinition) SinkableBy(consumer *ssa.Instruction) bool {
	if !d.IsFromInstr() || d.UseState() != UseStateOnce {
		return false
	}
	if d.Instr.HasSideEffect() {
		return false
	}
	return d.Instr.GroupID() == consumer.GroupID()
}
