package backend

import (
	"github.com/joelreymont/hoist/asm"
	"github.com/joelreymont/hoist/ssa"
	"github.com/joelreymont/hoist/unwind"
)

// Machine is a backend for a specific ISA. It owns the target's lowering
// rules, ABI tables, register information, encoders, and
// prologue/epilogue shape; the machine-independent Compiler drives it.
type Machine interface {
	// SetCompiler sets the compilation context used for the lifetime of Machine.
	SetCompiler(Compiler)

	// Reset resets the machine state for the next compilation.
	Reset()

	// StartFunction resolves the ABI of the function's own signature and
	// prepares per-function state. Fails with ErrUnsupportedConvention or
	// ErrTooManyReturns when the signature cannot be resolved.
	StartFunction(sig *ssa.Signature) error

	// ResolveABI resolves a callee signature under its convention.
	ResolveABI(sig *ssa.Signature) (*ABISignature, error)

	// StartBlock is called before lowering the given block's instructions.
	StartBlock(blk ssa.BasicBlock)

	// EndBlock finalizes the block opened by StartBlock.
	EndBlock()

	// EndFunction publishes the lowered VCode.
	EndFunction()

	// SetEmitColor sets the color stamped on instructions emitted next.
	SetEmitColor(InstrColor)

	// LowerParams binds the entry block parameters to their ABI locations.
	// Called after the entry block's instructions since lowering emits
	// backward.
	LowerParams(params []ssa.Value) error

	// LowerBranches lowers the block terminator br0 and, when the block
	// ends in a conditional branch followed by a jump, that conditional
	// branch br1. Called first for each block (reverse order).
	LowerBranches(br0, br1 *ssa.Instruction) error

	// LowerInstr lowers one non-branching instruction. The order is
	// reverse: from the last instruction to the first one. The machine may
	// fold already-pre-allocated producers and mark them lowered.
	LowerInstr(*ssa.Instruction) error

	// RegAlloc runs register allocation over the lowered VCode.
	RegAlloc() error

	// PostRegAlloc finalizes the frame layout and removes redundant
	// copies; the prologue/epilogue shape is decided here.
	PostRegAlloc() error

	// Encode emits the final bytes into the buffer.
	Encode(buf *asm.Buffer) error

	// FrameSize returns the final stack-frame size in bytes. Valid after
	// PostRegAlloc.
	FrameSize() int64

	// FrameInfo describes the prologue for unwind-table generation. Valid
	// after Encode.
	FrameInfo() *unwind.FrameInfo
}
