package asm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuffer_emitAndBind(t *testing.T) {
	b := NewBuffer()
	l := b.AllocateLabel()
	b.Emit4Bytes(0x11223344)
	b.Bind(l)
	b.EmitByte(0xaa)
	require.Equal(t, int64(4), b.LabelOffset(l))
	require.Equal(t, int64(5), b.Size())
	require.NoError(t, b.Finalize())
	require.Equal(t, []byte{0x44, 0x33, 0x22, 0x11, 0xaa}, b.Data())
}

func TestBuffer_branch26Resolution(t *testing.T) {
	b := NewBuffer()
	target := b.AllocateLabel()

	b.UseLabel(target, LabelUseBranch26)
	b.Emit4Bytes(0b000101 << 26) // b #0 placeholder
	b.Emit4Bytes(0xd503201f)     // nop
	b.Bind(target)
	b.Emit4Bytes(0xd65f03c0) // ret

	require.NoError(t, b.Finalize())
	// delta = 8 bytes = 2 words.
	require.Equal(t, uint32(0b000101<<26|2), b.Word(0))
}

func TestBuffer_condBranch19Backward(t *testing.T) {
	b := NewBuffer()
	target := b.AllocateLabel()
	b.Bind(target)
	b.Emit4Bytes(0xd503201f)
	b.UseLabel(target, LabelUseCondBranch19)
	b.Emit4Bytes(0x54000000) // b.eq #0 placeholder
	require.NoError(t, b.Finalize())
	// delta = -4 bytes = -1 word, in imm19 at bits 5..23.
	imm19 := (b.Word(4) >> 5) & 0x7ffff
	require.Equal(t, uint32(0x7ffff), imm19) // -1 in 19-bit two's complement
}

func TestBuffer_pcRel8Boundaries(t *testing.T) {
	t.Run("+127 fits", func(t *testing.T) {
		b := NewBuffer()
		target := b.AllocateLabel()
		b.UseLabel(target, LabelUsePCRel8)
		b.EmitByte(0)
		for i := 0; i < 127; i++ {
			b.EmitByte(0x90)
		}
		b.Bind(target) // delta = 128 - 1 = 127
		require.NoError(t, b.Finalize())
		require.Equal(t, byte(127), b.Data()[0])
	})

	t.Run("-128 fits", func(t *testing.T) {
		b := NewBuffer()
		target := b.AllocateLabel()
		b.Bind(target)
		for i := 0; i < 127; i++ {
			b.EmitByte(0x90)
		}
		b.UseLabel(target, LabelUsePCRel8)
		b.EmitByte(0) // base = 128, delta = -128
		require.NoError(t, b.Finalize())
		require.Equal(t, byte(0x80), b.Data()[127])
	})

	t.Run("+128 promotes to a veneer", func(t *testing.T) {
		b := NewBuffer()
		target := b.AllocateLabel()
		b.UseLabel(target, LabelUsePCRel8)
		b.EmitByte(0)
		// Pad with island checks the way an emitter would; the island fires
		// before the 8-bit deadline and re-targets the use at its veneer.
		for i := 0; i < 128; i++ {
			if b.IslandNeeded(1) {
				b.EmitIsland(false)
			}
			b.EmitByte(0x90)
		}
		b.Bind(target)
		require.NoError(t, b.Finalize())
		delta := int8(b.Data()[0])
		require.True(t, delta > 0 && int64(delta) < b.Size())
	})

	t.Run("-129 promotes to an end veneer", func(t *testing.T) {
		b := NewBuffer()
		target := b.AllocateLabel()
		b.Bind(target)
		for i := 0; i < 128; i++ {
			b.EmitByte(0x90)
		}
		b.UseLabel(target, LabelUsePCRel8)
		b.EmitByte(0) // delta would be -129
		require.NoError(t, b.Finalize())
		// The byte now jumps forward to a veneer that branches back.
		delta := int8(b.Data()[128])
		require.True(t, delta > 0)
	})
}

func TestBuffer_constantIsland(t *testing.T) {
	b := NewBuffer()
	c := b.AllocateConstant([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 8)
	b.UseLabel(c, LabelUseLdr19)
	b.Emit4Bytes(0x58000000) // ldr x0, #0 placeholder
	b.Emit4Bytes(0xd65f03c0) // ret
	require.NoError(t, b.Finalize())

	off := b.LabelOffset(c)
	require.Equal(t, int64(0), off%8)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b.Data()[off:off+8])
	// The ldr literal displacement points at the constant.
	imm19 := int64(int32(b.Word(0)>>5&0x7ffff)<<13) >> 13
	require.Equal(t, off, imm19*4)
}

func TestBuffer_relocsAndTraps(t *testing.T) {
	b := NewBuffer()
	b.Emit4Bytes(0xd503201f)
	b.AddReloc(RelocCall26, "memcpy", 0)
	b.Emit4Bytes(0x94000000)
	b.AddTrap(3)
	b.Emit4Bytes(0xd4200000)
	require.NoError(t, b.Finalize())

	require.Equal(t, []Reloc{{Offset: 4, Kind: RelocCall26, Symbol: "memcpy"}}, b.Relocs())
	require.Equal(t, []Trap{{Offset: 8, Code: 3}}, b.Traps())
}

func TestBuffer_unresolvableKindFails(t *testing.T) {
	b := NewBuffer()
	target := b.AllocateLabel()
	b.Bind(target)
	// Force an out-of-range ADR backwards; ADR cannot take a veneer.
	for i := 0; i < (1<<20)+8; i++ {
		b.EmitByte(0)
	}
	b.UseLabel(target, LabelUseAdr21)
	b.Emit4Bytes(0x10000000)
	require.ErrorIs(t, b.Finalize(), ErrLabelOutOfRange)
}
