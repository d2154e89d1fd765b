package hoist

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joelreymont/hoist/ssa"
)

func TestCompile_brTable(t *testing.T) {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI64},
		Results:  []ssa.Type{ssa.TypeI64},
		CallConv: ssa.CallConvSystemV,
	})
	entry := b.AllocateBasicBlock()
	c0 := b.AllocateBasicBlock()
	c1 := b.AllocateBasicBlock()
	c2 := b.AllocateBasicBlock()

	ret := func(blk ssa.BasicBlock, v uint64) {
		b.SetCurrentBlock(blk)
		k := b.AllocateInstruction().AsIconst64(v).Insert(b).Return()
		b.AllocateInstruction().AsReturn([]ssa.Value{k}).Insert(b)
	}
	ret(c0, 10)
	ret(c1, 20)
	ret(c2, 30)

	b.SetCurrentBlock(entry)
	idx := entry.AddParam(b, ssa.TypeI64)
	jt := b.DeclareJumpTable([]ssa.BasicBlock{c0, c1, c2})
	b.AllocateInstruction().AsBrTable(idx, b.ResolveJumpTable(jt)).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{})
	require.NoError(t, err)
	// Dispatch sequence plus one 32-bit entry per target.
	require.Greater(t, len(compiled.Code), 9*4+3*4)
	require.Equal(t, int64(0), compiled.FrameSize%16)
}

func TestCompile_atomics(t *testing.T) {
	build := func() ssa.Builder {
		b := ssa.NewBuilder()
		b.SetSignature(&ssa.Signature{
			Params:   []ssa.Type{ssa.TypePtr, ssa.TypeI64},
			Results:  []ssa.Type{ssa.TypeI64},
			CallConv: ssa.CallConvSystemV,
		})
		blk := b.AllocateBasicBlock()
		b.SetCurrentBlock(blk)
		p := blk.AddParam(b, ssa.TypePtr)
		x := blk.AddParam(b, ssa.TypeI64)
		old := b.AllocateInstruction().AsAtomicRmw(ssa.AtomicRmwOpAdd, p, x).Insert(b).Return()
		b.AllocateInstruction().AsFence().Insert(b)
		b.AllocateInstruction().AsReturn([]ssa.Value{old}).Insert(b)
		return b
	}

	t.Run("ll/sc loop", func(t *testing.T) {
		compiled, err := Compile(build(), linuxTarget, Options{})
		require.NoError(t, err)
		require.Contains(t, words(compiled.Code), uint32(0xd5033bbf)) // dmb ish
	})

	t.Run("lse", func(t *testing.T) {
		withLSE, err := Compile(build(), linuxTarget, Options{Features: Features{LSE: true}})
		require.NoError(t, err)
		withoutLSE, err := Compile(build(), linuxTarget, Options{})
		require.NoError(t, err)
		// The LSE form is a single LDADDAL instead of the LDAXR/STLXR loop.
		require.Less(t, len(withLSE.Code), len(withoutLSE.Code))
		var hasLdadd bool
		for _, w := range words(withLSE.Code) {
			if w&0xffe0fc00 == 0xf8e00000 {
				hasLdadd = true
			}
		}
		require.True(t, hasLdadd)
	})
}

func TestCompile_floatPipeline(t *testing.T) {
	// fma(sqrt(a), b, 1.5) exercising FP constants, unary/ternary ops and
	// the literal island.
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeF64, ssa.TypeF64},
		Results:  []ssa.Type{ssa.TypeF64},
		CallConv: ssa.CallConvSystemV,
	})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	a := blk.AddParam(b, ssa.TypeF64)
	c := blk.AddParam(b, ssa.TypeF64)
	root := b.AllocateInstruction().AsUnary(ssa.OpcodeSqrt, a).Insert(b).Return()
	k := b.AllocateInstruction().AsF64const(1.5).Insert(b).Return()
	fma := b.AllocateInstruction().AsFma(root, c, k).Insert(b).Return()
	b.AllocateInstruction().AsReturn([]ssa.Value{fma}).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, compiled.Code)
	// The 1.5 literal lands in a constant island inside the code.
	var found bool
	for i := 0; i+8 <= len(compiled.Code); i += 4 {
		if words(compiled.Code[i:i+8])[0] == 0x00000000 && words(compiled.Code[i:i+8])[1] == 0x3ff80000 {
			found = true
		}
	}
	require.True(t, found, "f64 literal 1.5 present in an island")
}

func TestCompile_vectorOps(t *testing.T) {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI32x4, ssa.TypeI32x4},
		Results:  []ssa.Type{ssa.TypeI32x4},
		CallConv: ssa.CallConvSystemV,
	})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	x := blk.AddParam(b, ssa.TypeI32x4)
	y := blk.AddParam(b, ssa.TypeI32x4)
	sum := b.AllocateInstruction().AsVBinary(ssa.OpcodeVIadd, x, y).Insert(b).Return()
	b.AllocateInstruction().AsReturn([]ssa.Value{sum}).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{})
	require.NoError(t, err)
	require.Contains(t, words(compiled.Code), uint32(0x4ea18400)) // add v0.4s, v0.4s, v1.4s
}

func TestCompile_immediateFolding(t *testing.T) {
	// add of a single-use constant folds to the imm12 form; no movz is
	// emitted for the constant.
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI64},
		Results:  []ssa.Type{ssa.TypeI64},
		CallConv: ssa.CallConvSystemV,
	})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	p := blk.AddParam(b, ssa.TypeI64)
	k := b.AllocateInstruction().AsIconst64(42).Insert(b).Return()
	sum := b.AllocateInstruction().AsBinary(ssa.OpcodeIadd, p, k).Insert(b).Return()
	b.AllocateInstruction().AsReturn([]ssa.Value{sum}).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{})
	require.NoError(t, err)
	ws := words(compiled.Code)
	require.Contains(t, ws, uint32(0x9100a800)) // add x0, x0, #42
	for _, w := range ws {
		require.NotEqual(t, uint32(0xd2800540), w, "constant must be folded, not materialized")
	}
}
