package hoist

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joelreymont/hoist/asm"
	"github.com/joelreymont/hoist/backend"
	"github.com/joelreymont/hoist/ssa"
	"github.com/joelreymont/hoist/unwind"
)

var linuxTarget = Target{Arch: ArchAArch64, OS: OSLinux}

func words(code []byte) []uint32 {
	var out []uint32
	for i := 0; i+4 <= len(code); i += 4 {
		out = append(out, binary.LittleEndian.Uint32(code[i:]))
	}
	return out
}

// fn add(a: i32, b: i32) -> i32 { return a + b }
func buildAdd() ssa.Builder {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI32, ssa.TypeI32},
		Results:  []ssa.Type{ssa.TypeI32},
		CallConv: ssa.CallConvSystemV,
	})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	p0 := blk.AddParam(b, ssa.TypeI32)
	p1 := blk.AddParam(b, ssa.TypeI32)
	sum := b.AllocateInstruction().AsBinary(ssa.OpcodeIadd, p0, p1).Insert(b).Return()
	b.AllocateInstruction().AsReturn([]ssa.Value{sum}).Insert(b)
	return b
}

func TestCompile_add(t *testing.T) {
	compiled, err := Compile(buildAdd(), linuxTarget, Options{})
	require.NoError(t, err)

	// Prologue saves FP/LR and establishes the frame pointer, the body is
	// a single add, and the epilogue restores FP/LR in the mirror order.
	require.Equal(t, []uint32{
		0xa9bf7bfd, // stp x29, x30, [sp, #-16]!
		0x910003fd, // mov x29, sp
		0x0b010000, // add w0, w0, w1
		0xa8c17bfd, // ldp x29, x30, [sp], #16
		0xd65f03c0, // ret
	}, words(compiled.Code))
	require.Equal(t, int64(16), compiled.FrameSize)
	require.Empty(t, compiled.Relocs)
	require.Empty(t, compiled.Traps)
	require.NotEmpty(t, compiled.Unwind)
}

// fn ret42() -> i32 { return 42 }
func TestCompile_ret42Frameless(t *testing.T) {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{Results: []ssa.Type{ssa.TypeI32}, CallConv: ssa.CallConvSystemV})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	c := b.AllocateInstruction().AsIconst32(42).Insert(b).Return()
	b.AllocateInstruction().AsReturn([]ssa.Value{c}).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{OptLevel: OptSpeed})
	require.NoError(t, err)

	// A leaf with no frame compiles to just `movz w0, #42; ret`.
	require.Equal(t, []uint32{
		0x52800540, // movz w0, #42
		0xd65f03c0, // ret
	}, words(compiled.Code))
	require.Equal(t, 8, len(compiled.Code))
	require.Equal(t, int64(0), compiled.FrameSize)
}

func TestCompile_frameSizeAlwaysAligned(t *testing.T) {
	for _, opt := range []OptLevel{OptNone, OptSpeed} {
		compiled, err := Compile(buildAdd(), linuxTarget, Options{OptLevel: opt})
		require.NoError(t, err)
		require.Equal(t, int64(0), compiled.FrameSize%16)
	}
}

func TestCompile_divTrapSites(t *testing.T) {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI64, ssa.TypeI64},
		Results:  []ssa.Type{ssa.TypeI64},
		CallConv: ssa.CallConvSystemV,
	})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	p0 := blk.AddParam(b, ssa.TypeI64)
	p1 := blk.AddParam(b, ssa.TypeI64)
	q := b.AllocateInstruction().AsBinary(ssa.OpcodeSdiv, p0, p1).Insert(b).Return()
	b.AllocateInstruction().AsReturn([]ssa.Value{q}).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{})
	require.NoError(t, err)

	var codes []ssa.TrapCode
	for _, tr := range compiled.Traps {
		codes = append(codes, tr.Code)
		// Every trap site points at a BRK word.
		word := binary.LittleEndian.Uint32(compiled.Code[tr.Offset:])
		require.Equal(t, uint32(0xd4200000), word&0xffe0001f)
	}
	require.Contains(t, codes, ssa.TrapIntegerDivByZero)
	require.Contains(t, codes, ssa.TrapIntegerOverflow)
}

func TestCompile_callRelocations(t *testing.T) {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{Results: []ssa.Type{ssa.TypeI64}, CallConv: ssa.CallConvSystemV})
	calleeSig := b.DeclareSignature(&ssa.Signature{Results: []ssa.Type{ssa.TypeI64}, CallConv: ssa.CallConvSystemV})
	callee := b.DeclareFunction("external_fn", calleeSig)

	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	call := b.AllocateInstruction().AsCall(callee, calleeSig, nil).Insert(b)
	b.AllocateInstruction().AsReturn([]ssa.Value{call.Return()}).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{})
	require.NoError(t, err)

	require.Equal(t, 1, len(compiled.Relocs))
	r := compiled.Relocs[0]
	require.Equal(t, asm.RelocCall26, r.Kind)
	require.Equal(t, "external_fn", r.Symbol)
	// The relocated word is a BL.
	word := binary.LittleEndian.Uint32(compiled.Code[r.Offset:])
	require.Equal(t, uint32(0x94000000), word&0xfc000000)
}

func TestCompile_tryCallLSDA(t *testing.T) {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{CallConv: ssa.CallConvSystemV})
	calleeSig := b.DeclareSignature(&ssa.Signature{CallConv: ssa.CallConvSystemV})
	callee := b.DeclareFunction("may_throw", calleeSig)

	blk0 := b.AllocateBasicBlock()
	normal := b.AllocateBasicBlock()
	pad := b.AllocateBasicBlock()

	b.SetCurrentBlock(normal)
	b.AllocateInstruction().AsReturn(nil).Insert(b)
	b.SetCurrentBlock(pad)
	b.AllocateInstruction().AsReturn(nil).Insert(b)

	b.SetCurrentBlock(blk0)
	b.AllocateInstruction().AsTryCall(callee, calleeSig, nil, normal, pad).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{})
	require.NoError(t, err)

	// The BL is immediately followed by the jump to the normal successor:
	// no conditional branch consults the outcome.
	require.Equal(t, 1, len(compiled.Relocs))
	blOff := compiled.Relocs[0].Offset
	next := binary.LittleEndian.Uint32(compiled.Code[blOff+4:])
	require.Equal(t, uint32(0x14000000), next&0xfc000000)

	// The unwind info carries an LSDA whose single call site maps the BL
	// with length 4 to the landing pad.
	require.Equal(t, "zLR", string(compiled.Unwind[9:12]))
	cieLen := binary.LittleEndian.Uint32(compiled.Unwind)
	fdeStart := 4 + int(cieLen)
	lsdaOff := binary.LittleEndian.Uint32(compiled.Unwind[fdeStart+17:])
	sites := unwind.ParseLSDACallSites(compiled.Unwind[lsdaOff:])
	require.Equal(t, 1, len(sites))
	require.Equal(t, blOff, sites[0].Offset)
	require.Equal(t, uint32(4), sites[0].Length)
	require.Less(t, sites[0].LandingPad, uint32(len(compiled.Code)))
	require.NotEqual(t, sites[0].LandingPad, blOff)
}

func TestCompile_branchingDiamond(t *testing.T) {
	// max(a, b) via a diamond with block parameters.
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI64, ssa.TypeI64},
		Results:  []ssa.Type{ssa.TypeI64},
		CallConv: ssa.CallConvSystemV,
	})
	blk0 := b.AllocateBasicBlock()
	blkA := b.AllocateBasicBlock()
	join := b.AllocateBasicBlock()

	b.SetCurrentBlock(join)
	res := join.AddParam(b, ssa.TypeI64)
	b.AllocateInstruction().AsReturn([]ssa.Value{res}).Insert(b)

	b.SetCurrentBlock(blkA)
	// Reached when a <= b.
	var p0, p1 ssa.Value

	b.SetCurrentBlock(blk0)
	p0 = blk0.AddParam(b, ssa.TypeI64)
	p1 = blk0.AddParam(b, ssa.TypeI64)
	cmp := b.AllocateInstruction().AsIcmp(p0, p1, ssa.IntegerCmpCondSignedGreaterThan).Insert(b).Return()
	b.AllocateInstruction().AsBrnz(cmp, []ssa.Value{p0}, join).Insert(b)
	b.AllocateInstruction().AsJump(nil, blkA).Insert(b)

	b.SetCurrentBlock(blkA)
	b.AllocateInstruction().AsJump([]ssa.Value{p1}, join).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, compiled.Code)
	require.Equal(t, int64(0), compiled.FrameSize%16)
}

func TestCompile_sequencePoints(t *testing.T) {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{Results: []ssa.Type{ssa.TypeI32}, CallConv: ssa.CallConvSystemV})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	b.AllocateInstruction().AsSequencePoint(1234).Insert(b)
	c := b.AllocateInstruction().AsIconst32(7).Insert(b).Return()
	b.AllocateInstruction().AsReturn([]ssa.Value{c}).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, len(compiled.SourceOffsets))
	require.Equal(t, uint64(1234), compiled.SourceOffsets[0].Source)
	require.Less(t, compiled.SourceOffsets[0].Offset, uint32(len(compiled.Code)))
}

func TestCompile_invalidSSARejected(t *testing.T) {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{CallConv: ssa.CallConvSystemV})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	b.AllocateInstruction().AsIconst32(1).Insert(b) // no terminator

	_, err := Compile(b, linuxTarget, Options{})
	require.ErrorIs(t, err, ssa.ErrInvalidSSA)
}

func TestCompile_unsupportedConvention(t *testing.T) {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{CallConv: ssa.CallConvWindowsFastcall})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	b.AllocateInstruction().AsReturn(nil).Insert(b)

	_, err := Compile(b, linuxTarget, Options{})
	require.ErrorIs(t, err, backend.ErrUnsupportedConvention)
}

func TestCompile_stackSlots(t *testing.T) {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{Results: []ssa.Type{ssa.TypeI64}, CallConv: ssa.CallConvSystemV})
	slot := b.DeclareStackSlot(16, 8)
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	c := b.AllocateInstruction().AsIconst64(99).Insert(b).Return()
	b.AllocateInstruction().AsStackStore(c, slot, 0).Insert(b)
	v := b.AllocateInstruction().AsStackLoad(slot, 0, ssa.TypeI64).Insert(b).Return()
	b.AllocateInstruction().AsReturn([]ssa.Value{v}).Insert(b)

	compiled, err := Compile(b, linuxTarget, Options{})
	require.NoError(t, err)
	// 16 bytes of locals plus the FP/LR pair.
	require.Equal(t, int64(32), compiled.FrameSize)
}

func TestCompile_pacAndBTI(t *testing.T) {
	compiled, err := Compile(buildAdd(), linuxTarget, Options{Features: Features{PAC: true, BTI: true}})
	require.NoError(t, err)
	ws := words(compiled.Code)
	require.Equal(t, uint32(0xd503245f), ws[0]) // bti c
	require.Equal(t, uint32(0xd503233f), ws[1]) // paciasp
	// autiasp precedes ret in the epilogue.
	require.Equal(t, uint32(0xd50323bf), ws[len(ws)-2])
	require.Equal(t, uint32(0xd65f03c0), ws[len(ws)-1])
}
