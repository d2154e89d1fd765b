package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joelreymont/hoist/backend"
	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/ssa"
)

func newTestMachine(t *testing.T, apple bool) (*machine, ssa.Builder) {
	b := ssa.NewBuilder()
	mach := NewMachine(Config{Apple: apple}).(*machine)
	backend.NewCompiler(mach, b)
	return mach, b
}

func TestResolveABI_nineI64Params(t *testing.T) {
	// The first eight occupy x0-x7 in order; the ninth lands at stack
	// offset 0.
	m, _ := newTestMachine(t, false)
	params := make([]ssa.Type, 9)
	for i := range params {
		params[i] = ssa.TypeI64
	}
	abi, err := m.ResolveABI(&ssa.Signature{Params: params, Results: []ssa.Type{ssa.TypeI64}, CallConv: ssa.CallConvSystemV})
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		slot := abi.Args[i].Slots[0]
		require.Equal(t, backend.ABIArgSlotReg, slot.Kind)
		require.Equal(t, standardArgInts[i], slot.Reg)
	}
	ninth := abi.Args[8].Slots[0]
	require.Equal(t, backend.ABIArgSlotStack, ninth.Kind)
	require.Equal(t, int64(0), ninth.Offset)
	require.Equal(t, int64(8), abi.ArgStackSize)
}

func TestResolveABI_hfa(t *testing.T) {
	// {f32,f32,f32}: one float register per member.
	m, b := newTestMachine(t, false)
	hfa := b.DeclareAggregate([]ssa.AggregateField{
		{Type: ssa.TypeF32}, {Type: ssa.TypeF32}, {Type: ssa.TypeF32},
	})
	abi, err := m.ResolveABI(&ssa.Signature{Params: []ssa.Type{hfa}, CallConv: ssa.CallConvSystemV})
	require.NoError(t, err)

	require.Equal(t, 3, len(abi.Args[0].Slots))
	for i, slot := range abi.Args[0].Slots {
		require.Equal(t, backend.ABIArgSlotReg, slot.Kind)
		require.Equal(t, regalloc.NewRealReg(regalloc.RegClassFloat, byte(i)), slot.Reg)
		require.Equal(t, ssa.TypeF32, slot.Type)
	}
}

func TestResolveABI_hfaSpillsWhole(t *testing.T) {
	// Seven f64 params eat d0-d6; a 2-member HFA no longer fits and the
	// whole aggregate goes to the stack.
	m, b := newTestMachine(t, false)
	hfa := b.DeclareAggregate([]ssa.AggregateField{{Type: ssa.TypeF64}, {Type: ssa.TypeF64}})
	params := []ssa.Type{
		ssa.TypeF64, ssa.TypeF64, ssa.TypeF64, ssa.TypeF64, ssa.TypeF64, ssa.TypeF64, ssa.TypeF64,
		hfa,
	}
	abi, err := m.ResolveABI(&ssa.Signature{Params: params, CallConv: ssa.CallConvSystemV})
	require.NoError(t, err)
	for _, slot := range abi.Args[7].Slots {
		require.Equal(t, backend.ABIArgSlotStack, slot.Kind)
	}
}

func TestResolveABI_smallAggregate(t *testing.T) {
	m, b := newTestMachine(t, false)
	agg := b.DeclareAggregate([]ssa.AggregateField{{Type: ssa.TypeI32}, {Type: ssa.TypeI64, Offset: 8}})
	abi, err := m.ResolveABI(&ssa.Signature{Params: []ssa.Type{agg}, CallConv: ssa.CallConvSystemV})
	require.NoError(t, err)
	// 16 bytes: two integer register chunks.
	require.Equal(t, 2, len(abi.Args[0].Slots))
	require.Equal(t, x0, abi.Args[0].Slots[0].Reg)
	require.Equal(t, x1, abi.Args[0].Slots[1].Reg)
}

func TestResolveABI_largeAggregateIndirect(t *testing.T) {
	m, b := newTestMachine(t, false)
	fields := make([]ssa.AggregateField, 5)
	for i := range fields {
		fields[i] = ssa.AggregateField{Type: ssa.TypeI64, Offset: uint32(i * 8)}
	}
	agg := b.DeclareAggregate(fields)
	abi, err := m.ResolveABI(&ssa.Signature{Params: []ssa.Type{agg}, CallConv: ssa.CallConvSystemV})
	require.NoError(t, err)
	require.Equal(t, backend.ABIArgPurposeIndirect, abi.Args[0].Purpose)
	require.Equal(t, 1, len(abi.Args[0].Slots))
	require.Equal(t, ssa.TypePtr, abi.Args[0].Slots[0].Type)
}

func TestResolveABI_largeAggregateReturn(t *testing.T) {
	// A large aggregate return claims x8 as the return-slot pointer.
	m, b := newTestMachine(t, false)
	fields := make([]ssa.AggregateField, 5)
	for i := range fields {
		fields[i] = ssa.AggregateField{Type: ssa.TypeI64, Offset: uint32(i * 8)}
	}
	agg := b.DeclareAggregate(fields)
	abi, err := m.ResolveABI(&ssa.Signature{Results: []ssa.Type{agg}, CallConv: ssa.CallConvSystemV})
	require.NoError(t, err)
	require.Equal(t, backend.ABIArgPurposeRetPointer, abi.Rets[0].Purpose)
	require.Equal(t, x8, abi.Rets[0].Slots[0].Reg)
	require.Equal(t, 1, len(abi.Args))
	require.Equal(t, backend.ABIArgPurposeRetPointer, abi.Args[0].Purpose)
}

func TestResolveABI_i128(t *testing.T) {
	m, _ := newTestMachine(t, false)
	abi, err := m.ResolveABI(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI32, ssa.TypeI128},
		Results:  []ssa.Type{ssa.TypeI128},
		CallConv: ssa.CallConvSystemV,
	})
	require.NoError(t, err)
	// The pair is aligned to an even register: x2/x3, not x1/x2.
	require.Equal(t, x2, abi.Args[1].Slots[0].Reg)
	require.Equal(t, x3, abi.Args[1].Slots[1].Reg)
	require.Equal(t, x0, abi.Rets[0].Slots[0].Reg)
	require.Equal(t, x1, abi.Rets[0].Slots[1].Reg)
}

func TestResolveABI_fastConvention(t *testing.T) {
	m, _ := newTestMachine(t, false)
	params := make([]ssa.Type, 18)
	for i := range params {
		params[i] = ssa.TypeI64
	}
	abi, err := m.ResolveABI(&ssa.Signature{Params: params, CallConv: ssa.CallConvFast})
	require.NoError(t, err)
	// All eighteen travel in registers under the fast convention.
	for i := range params {
		require.Equal(t, backend.ABIArgSlotReg, abi.Args[i].Slots[0].Kind)
	}
	require.Equal(t, int64(0), abi.ArgStackSize)
}

func TestResolveABI_appleStackPacking(t *testing.T) {
	// Apple packs sub-8-byte stack arguments at natural alignment and
	// marks small integers for caller extension.
	m, _ := newTestMachine(t, true)
	params := make([]ssa.Type, 0, 11)
	for i := 0; i < 8; i++ {
		params = append(params, ssa.TypeI64)
	}
	params = append(params, ssa.TypeI8, ssa.TypeI8, ssa.TypeI16)
	abi, err := m.ResolveABI(&ssa.Signature{Params: params, CallConv: ssa.CallConvAppleAArch64})
	require.NoError(t, err)

	require.Equal(t, int64(0), abi.Args[8].Slots[0].Offset)
	require.Equal(t, int64(1), abi.Args[9].Slots[0].Offset)
	require.Equal(t, int64(2), abi.Args[10].Slots[0].Offset)
	require.Equal(t, backend.ExtModeZero, abi.Args[8].Slots[0].Ext)
}

func TestResolveABI_windowsRejected(t *testing.T) {
	m, _ := newTestMachine(t, false)
	_, err := m.ResolveABI(&ssa.Signature{CallConv: ssa.CallConvWindowsFastcall})
	require.ErrorIs(t, err, backend.ErrUnsupportedConvention)
}

func TestResolveABI_tooManyReturns(t *testing.T) {
	m, _ := newTestMachine(t, false)
	_, err := m.ResolveABI(&ssa.Signature{
		Results:  []ssa.Type{ssa.TypeI64, ssa.TypeI64, ssa.TypeI64},
		CallConv: ssa.CallConvSystemV,
	})
	require.ErrorIs(t, err, backend.ErrTooManyReturns)
}

func TestResolveABI_stackOffsetsMonotonic(t *testing.T) {
	m, _ := newTestMachine(t, false)
	params := make([]ssa.Type, 12)
	for i := range params {
		params[i] = ssa.TypeI64
	}
	abi, err := m.ResolveABI(&ssa.Signature{Params: params, CallConv: ssa.CallConvSystemV})
	require.NoError(t, err)
	last := int64(-1)
	var total int64
	for _, a := range abi.Args {
		for _, s := range a.Slots {
			if s.Kind != backend.ABIArgSlotStack {
				continue
			}
			require.Greater(t, s.Offset, last)
			last = s.Offset
			total = s.Offset + 8
		}
	}
	require.Equal(t, total, abi.ArgStackSize)
}

func TestRegInfo_appleReservesX18(t *testing.T) {
	linux := regInfo(false)
	apple := regInfo(true)
	require.Contains(t, linux.AllocatableRegisters[regalloc.RegClassInt], x18)
	require.NotContains(t, apple.AllocatableRegisters[regalloc.RegClassInt], x18)
}
