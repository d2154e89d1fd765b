package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerify_ok(t *testing.T) {
	b := NewBuilder()
	b.SetSignature(&Signature{Params: []Type{TypeI32, TypeI32}, Results: []Type{TypeI32}, CallConv: CallConvSystemV})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	p0 := blk.AddParam(b, TypeI32)
	p1 := blk.AddParam(b, TypeI32)
	add := b.AllocateInstruction().AsBinary(OpcodeIadd, p0, p1).Insert(b)
	b.AllocateInstruction().AsReturn([]Value{add.Return()}).Insert(b)
	require.NoError(t, b.Verify())
}

func TestVerify_missingTerminator(t *testing.T) {
	b := NewBuilder()
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	b.AllocateInstruction().AsIconst32(1).Insert(b)
	err := b.Verify()
	require.ErrorIs(t, err, ErrInvalidSSA)
	require.Contains(t, err.Error(), "terminator")
}

func TestVerify_terminatorMidBlock(t *testing.T) {
	b := NewBuilder()
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	b.AllocateInstruction().AsReturn(nil).Insert(b)
	b.AllocateInstruction().AsReturn(nil).Insert(b)
	require.ErrorIs(t, b.Verify(), ErrInvalidSSA)
}

func TestVerify_useNotDominated(t *testing.T) {
	b := NewBuilder()
	blk0 := b.AllocateBasicBlock()
	blk1 := b.AllocateBasicBlock()
	blk2 := b.AllocateBasicBlock()
	join := b.AllocateBasicBlock()

	b.SetCurrentBlock(blk0)
	c := b.AllocateInstruction().AsIconst32(0).Insert(b).Return()
	b.AllocateInstruction().AsBrz(c, nil, blk1).Insert(b)
	b.AllocateInstruction().AsJump(nil, blk2).Insert(b)

	// The definition lives in one arm of the diamond...
	b.SetCurrentBlock(blk1)
	def := b.AllocateInstruction().AsIconst32(42).Insert(b).Return()
	b.AllocateInstruction().AsJump(nil, join).Insert(b)

	b.SetCurrentBlock(blk2)
	b.AllocateInstruction().AsJump(nil, join).Insert(b)

	// ...and the use at the join point, which the arm does not dominate.
	b.SetCurrentBlock(join)
	b.AllocateInstruction().AsBinary(OpcodeIadd, def, def).Insert(b)
	b.AllocateInstruction().AsReturn(nil).Insert(b)

	err := b.Verify()
	require.ErrorIs(t, err, ErrInvalidSSA)
	require.Contains(t, err.Error(), "dominate")
}

func TestVerify_branchArgsArity(t *testing.T) {
	b := NewBuilder()
	blk0 := b.AllocateBasicBlock()
	blk1 := b.AllocateBasicBlock()

	b.SetCurrentBlock(blk1)
	blk1.AddParam(b, TypeI32)
	b.AllocateInstruction().AsReturn(nil).Insert(b)

	b.SetCurrentBlock(blk0)
	b.AllocateInstruction().AsJump(nil, blk1).Insert(b) // missing the argument

	err := b.Verify()
	require.ErrorIs(t, err, ErrInvalidSSA)
	require.Contains(t, err.Error(), "args")
}

func TestVerify_branchArgsType(t *testing.T) {
	b := NewBuilder()
	blk0 := b.AllocateBasicBlock()
	blk1 := b.AllocateBasicBlock()

	b.SetCurrentBlock(blk1)
	blk1.AddParam(b, TypeF64)
	b.AllocateInstruction().AsReturn(nil).Insert(b)

	b.SetCurrentBlock(blk0)
	v := b.AllocateInstruction().AsIconst32(7).Insert(b).Return()
	b.AllocateInstruction().AsJump([]Value{v}, blk1).Insert(b)

	require.ErrorIs(t, b.Verify(), ErrInvalidSSA)
}

func TestVerify_tryCallSuccessors(t *testing.T) {
	b := NewBuilder()
	sig := b.DeclareSignature(&Signature{CallConv: CallConvSystemV})
	fn := b.DeclareFunction("may_throw", sig)

	blk0 := b.AllocateBasicBlock()
	normal := b.AllocateBasicBlock()

	b.SetCurrentBlock(normal)
	b.AllocateInstruction().AsReturn(nil).Insert(b)

	b.SetCurrentBlock(blk0)
	b.AllocateInstruction().AsTryCall(fn, sig, nil, normal, normal).Insert(b)

	err := b.Verify()
	require.ErrorIs(t, err, ErrInvalidSSA)
	require.Contains(t, err.Error(), "identical")
}

func TestVerify_stackSlotBounds(t *testing.T) {
	b := NewBuilder()
	slot := b.DeclareStackSlot(8, 8)
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	b.AllocateInstruction().AsStackLoad(slot, 4, TypeI64).Insert(b) // 4+8 > 8
	b.AllocateInstruction().AsReturn(nil).Insert(b)
	require.ErrorIs(t, b.Verify(), ErrInvalidSSA)
}

func TestVerify_operandTypeMismatch(t *testing.T) {
	b := NewBuilder()
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	x := b.AllocateInstruction().AsIconst32(1).Insert(b).Return()
	y := b.AllocateInstruction().AsIconst64(2).Insert(b).Return()
	b.AllocateInstruction().AsBinary(OpcodeIadd, x, y).Insert(b)
	b.AllocateInstruction().AsReturn(nil).Insert(b)
	require.ErrorIs(t, b.Verify(), ErrInvalidSSA)
}
