package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValue_roundTrip(t *testing.T) {
	for _, id := range []ValueID{0, 1, 1234, 1 << 30} {
		require.Equal(t, id, ValueFromID(id).ID())
	}
	v := ValueFromID(42).setType(TypeF64)
	require.Equal(t, ValueID(42), v.ID())
	require.Equal(t, TypeF64, v.Type())
}

func TestBuilder_InsertInstruction(t *testing.T) {
	b := NewBuilder()
	b.SetSignature(&Signature{Params: []Type{TypeI32, TypeI32}, Results: []Type{TypeI32}, CallConv: CallConvSystemV})

	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	p0 := blk.AddParam(b, TypeI32)
	p1 := blk.AddParam(b, TypeI32)

	add := b.AllocateInstruction().AsBinary(OpcodeIadd, p0, p1)
	b.InsertInstruction(add)
	r := add.Return()
	require.True(t, r.Valid())
	require.Equal(t, TypeI32, r.Type())

	ret := b.AllocateInstruction().AsReturn([]Value{r})
	b.InsertInstruction(ret)

	require.Equal(t, add, blk.Root())
	require.Equal(t, ret, blk.Tail())
	require.Equal(t, ret, add.Next())
	require.Equal(t, add, ret.Prev())
}

func TestBuilder_predsFromBranches(t *testing.T) {
	b := NewBuilder()

	blk0 := b.AllocateBasicBlock()
	blk1 := b.AllocateBasicBlock()
	blk2 := b.AllocateBasicBlock()

	b.SetCurrentBlock(blk0)
	c := b.AllocateInstruction().AsIconst32(1).Insert(b).Return()
	b.AllocateInstruction().AsBrnz(c, nil, blk2).Insert(b)
	b.AllocateInstruction().AsJump(nil, blk1).Insert(b)

	b.SetCurrentBlock(blk1)
	b.AllocateInstruction().AsJump(nil, blk2).Insert(b)

	b.SetCurrentBlock(blk2)
	b.AllocateInstruction().AsReturn(nil).Insert(b)

	require.Equal(t, 2, blk2.Preds())
	require.Equal(t, blk0, blk2.Pred(0))
	require.Equal(t, blk1, blk2.Pred(1))
	require.Equal(t, 2, blk0.Succs())
}

func TestBuilder_removeAddPredRestoresOrder(t *testing.T) {
	b := NewBuilder()
	blk0 := b.AllocateBasicBlock()
	blk1 := b.AllocateBasicBlock()
	target := b.AllocateBasicBlock()

	b.SetCurrentBlock(blk0)
	br0 := b.AllocateInstruction().AsJump(nil, target).Insert(b)
	b.SetCurrentBlock(blk1)
	br1 := b.AllocateInstruction().AsJump(nil, target).Insert(b)
	_ = br1

	tb := target.(*basicBlock)
	require.Equal(t, 2, target.Preds())

	tb.removePred(br0)
	require.Equal(t, 1, target.Preds())
	require.Equal(t, blk1, target.Pred(0))

	// Re-adding restores the exact predecessor order.
	tb.addPred(blk0.(*basicBlock), br0)
	require.Equal(t, 2, target.Preds())
	require.Equal(t, blk0, target.Pred(0))
	require.Equal(t, blk1, target.Pred(1))
}

func TestBuilder_ValueRefCounts(t *testing.T) {
	b := NewBuilder()
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)

	one := b.AllocateInstruction().AsIconst32(1).Insert(b).Return()
	two := b.AllocateInstruction().AsIconst32(2).Insert(b).Return()
	add := b.AllocateInstruction().AsBinary(OpcodeIadd, one, two).Insert(b).Return()
	// `one` used twice, `two` once, `add` once.
	b.AllocateInstruction().AsBinary(OpcodeIadd, one, add).Insert(b)
	b.AllocateInstruction().AsReturn(nil).Insert(b)

	counts := b.ValueRefCounts()
	require.Equal(t, uint32(2), counts[one.ID()])
	require.Equal(t, uint32(1), counts[two.ID()])
	require.Equal(t, uint32(1), counts[add.ID()])
}

func TestBuilder_AssignGroupIDs(t *testing.T) {
	b := NewBuilder()
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)

	c1 := b.AllocateInstruction().AsIconst64(1).Insert(b)
	c2 := b.AllocateInstruction().AsIconst64(2).Insert(b)
	st := b.AllocateInstruction().AsStore(OpcodeStore, c1.Return(), c2.Return(), 0).Insert(b)
	c3 := b.AllocateInstruction().AsIconst64(3).Insert(b)
	ret := b.AllocateInstruction().AsReturn(nil).Insert(b)

	b.AssignGroupIDs()
	require.Equal(t, c1.GroupID(), c2.GroupID())
	require.Equal(t, c2.GroupID(), st.GroupID())
	// The store has strict side effects, so the group changes after it.
	require.NotEqual(t, st.GroupID(), c3.GroupID())
	require.Equal(t, c3.GroupID(), ret.GroupID())
}

func TestBuilder_declarations(t *testing.T) {
	b := NewBuilder()

	sig := b.DeclareSignature(&Signature{Params: []Type{TypeI64}, Results: []Type{TypeI64}, CallConv: CallConvSystemV})
	require.Equal(t, SigRef(0), sig)
	require.Equal(t, 1, len(b.ResolveSignature(sig).Params))

	fn := b.DeclareFunction("callee", sig)
	name, gotSig := b.FunctionData(fn)
	require.Equal(t, "callee", name)
	require.Equal(t, sig, gotSig)

	slot := b.DeclareStackSlot(24, 8)
	require.Equal(t, StackSlotData{Size: 24, Align: 8}, b.StackSlotData(slot))

	gv := b.DeclareGlobalValue("counter", false)
	require.Equal(t, "counter", b.GlobalValueData(gv).Name)

	c := b.DeclareConstant([]byte{1, 2, 3, 4})
	require.Equal(t, []byte{1, 2, 3, 4}, b.ConstantValue(c))
}
