package unwind

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmit_cieHeader(t *testing.T) {
	fi := &FrameInfo{CodeSize: 20, FrameSize: 16, SaveOffset: 4, SetFPOffset: 8}
	out := Emit(fi)

	cieLen := binary.LittleEndian.Uint32(out)
	require.Equal(t, int64(0), int64(4+cieLen)%4)
	// CIE id is zero.
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(out[4:]))
	// Version 1, augmentation "zR".
	require.Equal(t, byte(1), out[8])
	require.Equal(t, "zR", string(out[9:11]))
	require.Equal(t, byte(0), out[11])
	// Code alignment 4, data alignment -8, RA = x30.
	require.Equal(t, byte(4), out[12])
	require.Equal(t, byte(0x78), out[13]) // sleb128(-8)
	require.Equal(t, byte(30), out[14])

	// The FDE follows, with its CIE pointer referring back.
	fdeStart := 4 + int(cieLen)
	fdeLen := binary.LittleEndian.Uint32(out[fdeStart:])
	ciePtr := binary.LittleEndian.Uint32(out[fdeStart+4:])
	require.Equal(t, uint32(fdeStart+4), ciePtr)
	// pc_range carries the code size.
	require.Equal(t, fi.CodeSize, binary.LittleEndian.Uint32(out[fdeStart+12:]))
	require.Equal(t, len(out), fdeStart+4+int(fdeLen))
}

func TestEmit_framelessHasEmptyProgram(t *testing.T) {
	fi := &FrameInfo{CodeSize: 8, Frameless: true}
	out := Emit(fi)
	require.NotEmpty(t, out)
}

func TestEmit_lsdaCallSites(t *testing.T) {
	fi := &FrameInfo{
		CodeSize:    64,
		FrameSize:   32,
		SaveOffset:  4,
		SetFPOffset: 8,
		TryCalls: []TryCallSite{
			{Offset: 24, Length: 4, LandingPad: 48},
		},
	}
	out := Emit(fi)

	// With try-calls, the CIE augmentation is "zLR".
	require.Equal(t, "zLR", string(out[9:12]))

	cieLen := binary.LittleEndian.Uint32(out)
	fdeStart := 4 + int(cieLen)
	lsdaOff := binary.LittleEndian.Uint32(out[fdeStart+lsdaPointerFieldOffset:])
	require.NotZero(t, lsdaOff)

	sites := ParseLSDACallSites(out[lsdaOff:])
	require.Equal(t, 1, len(sites))
	require.Equal(t, uint32(24), sites[0].Offset)
	require.Equal(t, uint32(4), sites[0].Length)
	require.Equal(t, uint32(48), sites[0].LandingPad)
}

func TestLeb128(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20} {
		buf := appendUleb128(nil, v)
		got, n := readUleb128(buf)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
	require.Equal(t, []byte{0x78}, appendSleb128(nil, -8))
	require.Equal(t, []byte{0x2a}, appendSleb128(nil, 42))
}
