package backend

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/ssa"
)

func TestVCodeBuilder_backwardReversesBlocks(t *testing.T) {
	b := NewVCodeBuilder[int](EmitBackward)
	b.StartBlock(nil)
	// Emitted in reverse program order.
	b.Emit(3)
	b.Emit(2)
	b.Emit(1)
	b.EndBlock(nil)
	code := b.Finish()
	require.Equal(t, []int{1, 2, 3}, code.BlockInstrs(0))
}

func TestVCodeBuilder_forwardMatchesBackward(t *testing.T) {
	fwd := NewVCodeBuilder[int](EmitForward)
	fwd.StartBlock(nil)
	for i := 1; i <= 5; i++ {
		fwd.Emit(i)
	}
	fwd.EndBlock(nil)

	bwd := NewVCodeBuilder[int](EmitBackward)
	bwd.StartBlock(nil)
	for i := 5; i >= 1; i-- {
		bwd.Emit(i)
	}
	bwd.EndBlock(nil)

	require.Equal(t, fwd.Finish().Instrs, bwd.Finish().Instrs)
}

func TestVCode_predsFromSuccs(t *testing.T) {
	b := NewVCodeBuilder[int](EmitForward)
	b.StartBlock(nil)
	b.EndBlock([]int32{1, 2})
	b.StartBlock(nil)
	b.EndBlock([]int32{2})
	b.StartBlock(nil)
	b.EndBlock(nil)
	code := b.Finish()

	require.Equal(t, []int32{0}, code.Blocks[1].Preds)
	require.Equal(t, []int32{0, 1}, code.Blocks[2].Preds)
}

func TestVCode_applyInsertions(t *testing.T) {
	b := NewVCodeBuilder[string](EmitForward)
	b.StartBlock(nil)
	b.Emit("a")
	b.Emit("b")
	b.EndBlock(nil)
	b.StartBlock(nil)
	b.Emit("c")
	b.EndBlock(nil)
	code := b.Finish()

	code.ApplyInsertions([]Insertion[string]{
		{Block: 0, Index: 1, Instr: "reload"}, // before "b"
		{Block: 1, Index: 2, Instr: "spill"},  // before "c"
	})
	require.Equal(t, []string{"a", "reload", "b"}, code.BlockInstrs(0))
	require.Equal(t, []string{"spill", "c"}, code.BlockInstrs(1))
}

func TestScheduleParallelMoves(t *testing.T) {
	r := func(i uint32) regalloc.Reg {
		return regalloc.RegFromVirtual(regalloc.NewVReg(regalloc.RegClassInt, i))
	}

	t.Run("independent stay ordered safely", func(t *testing.T) {
		out := ScheduleParallelMoves([]ParallelMove{
			{Dst: r(1), Src: r(2), Type: ssa.TypeI64},
			{Dst: r(3), Src: r(4), Type: ssa.TypeI64},
		}, nil)
		require.Equal(t, 2, len(out))
	})

	t.Run("overwrite ordering", func(t *testing.T) {
		// r1 <- r2 must run after r0 <- r1.
		out := ScheduleParallelMoves([]ParallelMove{
			{Dst: r(1), Src: r(2), Type: ssa.TypeI64},
			{Dst: r(0), Src: r(1), Type: ssa.TypeI64},
		}, nil)
		require.Equal(t, r(0), out[0].Dst)
		require.Equal(t, r(1), out[1].Dst)
	})

	t.Run("cycle uses a temporary", func(t *testing.T) {
		next := uint32(100)
		alloc := func(c regalloc.RegClass, _ ssa.Type) regalloc.Reg {
			next++
			return regalloc.RegFromVirtual(regalloc.NewVReg(c, next))
		}
		out := ScheduleParallelMoves([]ParallelMove{
			{Dst: r(0), Src: r(1), Type: ssa.TypeI64},
			{Dst: r(1), Src: r(0), Type: ssa.TypeI64},
		}, alloc)
		require.Equal(t, 3, len(out))

		// Simulate to confirm the swap.
		state := map[regalloc.Reg]string{r(0): "a", r(1): "b"}
		for _, mv := range out {
			state[mv.Dst] = state[mv.Src]
		}
		require.Equal(t, "b", state[r(0)])
		require.Equal(t, "a", state[r(1)])
	})
}

func TestInstrColor_String(t *testing.T) {
	for i, want := range []string{"get_value", "set_output", "multi_result"} {
		require.Equal(t, want, InstrColor(i).String(), strconv.Itoa(i))
	}
}
