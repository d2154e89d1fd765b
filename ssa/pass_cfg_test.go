package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// diamond returns blk0 -> {blk1, blk2} -> blk3.
func diamond(b Builder) (blk0, blk1, blk2, blk3 BasicBlock) {
	blk0 = b.AllocateBasicBlock()
	blk1 = b.AllocateBasicBlock()
	blk2 = b.AllocateBasicBlock()
	blk3 = b.AllocateBasicBlock()

	b.SetCurrentBlock(blk0)
	c := b.AllocateInstruction().AsIconst32(0).Insert(b).Return()
	b.AllocateInstruction().AsBrz(c, nil, blk1).Insert(b)
	b.AllocateInstruction().AsJump(nil, blk2).Insert(b)

	b.SetCurrentBlock(blk1)
	b.AllocateInstruction().AsJump(nil, blk3).Insert(b)
	b.SetCurrentBlock(blk2)
	b.AllocateInstruction().AsJump(nil, blk3).Insert(b)
	b.SetCurrentBlock(blk3)
	b.AllocateInstruction().AsReturn(nil).Insert(b)
	return
}

func TestLayoutCFG_reversePostOrder(t *testing.T) {
	b := NewBuilder()
	blk0, blk1, blk2, blk3 := diamond(b)
	b.LayoutCFG()

	var order []BasicBlockID
	for blk := b.BlockIteratorReversePostOrderBegin(); blk != nil; blk = b.BlockIteratorReversePostOrderNext() {
		order = append(order, blk.ID())
	}
	require.Equal(t, 4, len(order))
	require.Equal(t, blk0.ID(), order[0])
	require.Equal(t, blk3.ID(), order[3])
	// blk1 and blk2 both precede blk3 in any valid RPO.
	require.Contains(t, order[1:3], blk1.ID())
	require.Contains(t, order[1:3], blk2.ID())
}

func TestLayoutCFG_dominators(t *testing.T) {
	b := NewBuilder()
	blk0, blk1, blk2, blk3 := diamond(b)
	b.LayoutCFG()

	require.Nil(t, b.Idom(blk0))
	require.Equal(t, blk0, b.Idom(blk1))
	require.Equal(t, blk0, b.Idom(blk2))
	// Neither arm dominates the join point.
	require.Equal(t, blk0, b.Idom(blk3))

	require.True(t, b.Dominates(blk0, blk3))
	require.True(t, b.Dominates(blk0, blk0))
	require.False(t, b.Dominates(blk1, blk3))
	require.False(t, b.Dominates(blk3, blk1))
}

func TestLayoutCFG_loop(t *testing.T) {
	b := NewBuilder()
	blk0 := b.AllocateBasicBlock()
	header := b.AllocateBasicBlock()
	body := b.AllocateBasicBlock()
	exit := b.AllocateBasicBlock()

	b.SetCurrentBlock(blk0)
	b.AllocateInstruction().AsJump(nil, header).Insert(b)

	b.SetCurrentBlock(header)
	c := b.AllocateInstruction().AsIconst32(0).Insert(b).Return()
	b.AllocateInstruction().AsBrnz(c, nil, body).Insert(b)
	b.AllocateInstruction().AsJump(nil, exit).Insert(b)

	b.SetCurrentBlock(body)
	b.AllocateInstruction().AsJump(nil, header).Insert(b) // back edge

	b.SetCurrentBlock(exit)
	b.AllocateInstruction().AsReturn(nil).Insert(b)

	b.LayoutCFG()
	require.Equal(t, blk0, b.Idom(header))
	require.Equal(t, header, b.Idom(body))
	require.Equal(t, header, b.Idom(exit))
	require.True(t, b.Dominates(header, body))
	require.False(t, b.Dominates(body, exit))
}
