package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joelreymont/hoist/ssa"
)

func TestRealReg_roundTrip(t *testing.T) {
	for _, c := range []RegClass{RegClassInt, RegClassFloat, RegClassVector} {
		for _, enc := range []byte{0, 1, 17, 31, 63} {
			r := NewRealReg(c, enc)
			require.Equal(t, c, r.Class())
			require.Equal(t, enc, r.HwEnc())
		}
	}
}

func TestVReg_roundTrip(t *testing.T) {
	for _, c := range []RegClass{RegClassInt, RegClassFloat, RegClassVector} {
		for _, index := range []uint32{0, 1, 1 << 20, 1<<30 - 2} {
			v := NewVReg(c, index)
			require.Equal(t, c, v.Class())
			require.Equal(t, index, v.Index())
		}
	}
}

func TestReg_discriminants(t *testing.T) {
	real := RegFromReal(NewRealReg(RegClassInt, 5))
	require.True(t, real.IsReal())
	require.False(t, real.IsVirtual())
	require.False(t, real.IsSpillSlot())
	require.Equal(t, NewRealReg(RegClassInt, 5), real.RealReg())

	virt := RegFromVirtual(NewVReg(RegClassFloat, 1234))
	require.True(t, virt.IsVirtual())
	require.False(t, virt.IsReal())
	require.Equal(t, NewVReg(RegClassFloat, 1234), virt.VReg())
	require.Equal(t, RegClassFloat, virt.Class())

	slot := RegFromSpillSlot(7, RegClassInt)
	require.True(t, slot.IsSpillSlot())
	require.False(t, slot.IsReal())
	require.False(t, slot.IsVirtual())
	require.Equal(t, uint32(7), slot.SpillSlot())
}

func TestRegClassOf(t *testing.T) {
	require.Equal(t, RegClassInt, RegClassOf(ssa.TypeI32))
	require.Equal(t, RegClassInt, RegClassOf(ssa.TypePtr))
	require.Equal(t, RegClassFloat, RegClassOf(ssa.TypeF64))
	require.Equal(t, RegClassVector, RegClassOf(ssa.TypeI8x16))
}

func TestValueRegs(t *testing.T) {
	r0 := RegFromVirtual(NewVReg(RegClassInt, 0))
	r1 := RegFromVirtual(NewVReg(RegClassInt, 1))

	one := ValueRegsOne(r0)
	require.Equal(t, 1, one.Len())
	require.Equal(t, r0, one.Reg())

	two := ValueRegsTwo(r0, r1)
	require.Equal(t, 2, two.Len())
	require.Equal(t, r0, two.At(0))
	require.Equal(t, r1, two.At(1))

	four := NewValueRegs(r0, r1, r0, r1)
	require.Equal(t, 4, four.Len())
	require.Equal(t, r1, four.At(3))
}
