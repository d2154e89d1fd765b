package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestType_sizes(t *testing.T) {
	for _, tc := range []struct {
		typ  Type
		bits byte
	}{
		{TypeI8, 8}, {TypeI16, 16}, {TypeI32, 32}, {TypeI64, 64}, {TypeI128, 128},
		{TypeF32, 32}, {TypeF64, 64}, {TypePtr, 64},
		{TypeI8x8, 64}, {TypeI16x4, 64}, {TypeI32x2, 64}, {TypeF32x2, 64},
		{TypeI8x16, 128}, {TypeI16x8, 128}, {TypeI32x4, 128},
		{TypeI64x2, 128}, {TypeF32x4, 128}, {TypeF64x2, 128},
	} {
		t.Run(tc.typ.String(), func(t *testing.T) {
			require.Equal(t, tc.bits, tc.typ.Bits())
			require.Equal(t, tc.bits/8, tc.typ.Size())
		})
	}
}

func TestType_vectorLanes(t *testing.T) {
	for _, tc := range []struct {
		typ   Type
		lane  Type
		count byte
	}{
		{TypeI8x16, TypeI8, 16},
		{TypeI16x8, TypeI16, 8},
		{TypeI32x4, TypeI32, 4},
		{TypeI64x2, TypeI64, 2},
		{TypeF32x4, TypeF32, 4},
		{TypeF64x2, TypeF64, 2},
		{TypeI8x8, TypeI8, 8},
		{TypeF32x2, TypeF32, 2},
	} {
		t.Run(tc.typ.String(), func(t *testing.T) {
			require.True(t, tc.typ.IsVector())
			require.Equal(t, tc.lane, tc.typ.LaneType())
			require.Equal(t, tc.count, tc.typ.LaneCount())
			// For a 128-bit vector, lanes x element bytes must be 16.
			if tc.typ.Bits() == 128 {
				require.Equal(t, byte(16), tc.count*tc.lane.Size())
			}
		})
	}
}

func TestType_classes(t *testing.T) {
	require.True(t, TypeI64.IsInt())
	require.True(t, TypePtr.IsInt())
	require.False(t, TypeF32.IsInt())
	require.True(t, TypeF64.IsFloat())
	require.False(t, TypeI32.IsFloat())
	require.False(t, TypeI32.IsVector())
}

func TestAggregateType_roundTrip(t *testing.T) {
	for _, index := range []int{0, 1, 7, 1 << 20} {
		typ := AggregateType(index)
		require.True(t, typ.IsAggregate())
		require.Equal(t, index, typ.AggregateIndex())
	}
}

func TestBuilder_DeclareAggregate(t *testing.T) {
	b := NewBuilder()

	t.Run("implicit offsets with padding", func(t *testing.T) {
		typ := b.DeclareAggregate([]AggregateField{
			{Type: TypeI8},
			{Type: TypeI32},
			{Type: TypeI8},
		})
		layout := b.AggregateLayoutOf(typ)
		require.Equal(t, uint32(0), layout.Fields[0].Offset)
		require.Equal(t, uint32(4), layout.Fields[1].Offset)
		require.Equal(t, uint32(8), layout.Fields[2].Offset)
		require.Equal(t, uint32(4), layout.Align)
		// Total size is padded to alignment.
		require.Equal(t, uint32(12), layout.Size)
	})

	t.Run("hfa", func(t *testing.T) {
		typ := b.DeclareAggregate([]AggregateField{
			{Type: TypeF32}, {Type: TypeF32, Offset: 4}, {Type: TypeF32, Offset: 8},
		})
		layout := b.AggregateLayoutOf(typ)
		require.Equal(t, uint32(12), layout.Size)
		require.Equal(t, uint32(4), layout.Align)
	})
}
