package regalloc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// mockInstr implements Instr over explicit def/use lists.
type mockInstr struct {
	defs, uses []Reg
	call, ret  bool
	copyInstr  bool
	reuse      int // use index reused by def 0, or -1
}

func (m *mockInstr) String() string { return fmt.Sprintf("mock%v=%v", m.defs, m.uses) }

func (m *mockInstr) Defs(regs []Reg) []Reg { return append(regs, m.defs...) }
func (m *mockInstr) Uses(regs []Reg) []Reg { return append(regs, m.uses...) }

func (m *mockInstr) AssignUse(i int, r RealReg) { m.uses[i] = RegFromReal(r) }
func (m *mockInstr) AssignDef(i int, r RealReg) { m.defs[i] = RegFromReal(r) }

func (m *mockInstr) IsCopy() (dst, src Reg, ok bool) {
	if !m.copyInstr {
		return RegInvalid, RegInvalid, false
	}
	return m.defs[0], m.uses[0], true
}
func (m *mockInstr) IsCall() bool   { return m.call }
func (m *mockInstr) IsReturn() bool { return m.ret }
func (m *mockInstr) ReusedInput(defIndex int) (int, bool) {
	if defIndex == 0 && m.reuse >= 0 {
		return m.reuse, true
	}
	return 0, false
}

func newMockInstr(defs, uses []Reg) *mockInstr {
	return &mockInstr{defs: defs, uses: uses, reuse: -1}
}

type spillEdit struct {
	reg   RealReg
	slot  uint32
	b, i  int32
	store bool
}

// mockFunction is a single- or multi-block function over mockInstrs.
type mockFunction struct {
	blocks [][]*mockInstr
	succs  [][]int32
	preds  [][]int32

	edits      []spillEdit
	clobbered  []RealReg
	spillBytes int64
	done       bool
}

func (f *mockFunction) Blocks() int                { return len(f.blocks) }
func (f *mockFunction) BlockInstrs(b int) int      { return len(f.blocks[b]) }
func (f *mockFunction) Instr(b, i int) Instr       { return f.blocks[b][i] }
func (f *mockFunction) BlockPreds(b int) []int32   { return f.preds[b] }
func (f *mockFunction) BlockSuccs(b int) []int32   { return f.succs[b] }
func (f *mockFunction) ClobberedRegisters(r []RealReg) { f.clobbered = r }
func (f *mockFunction) SpillSlotsUsed(bytes int64) { f.spillBytes = bytes }
func (f *mockFunction) Done()                      { f.done = true }

func (f *mockFunction) InsertReloadBefore(r RealReg, _ RegClass, slot uint32, b, i int32) {
	f.edits = append(f.edits, spillEdit{reg: r, slot: slot, b: b, i: i})
}

func (f *mockFunction) InsertStoreAfter(r RealReg, _ RegClass, slot uint32, b, i int32) {
	f.edits = append(f.edits, spillEdit{reg: r, slot: slot, b: b, i: i, store: true})
}

func singleBlock(instrs ...*mockInstr) *mockFunction {
	return &mockFunction{blocks: [][]*mockInstr{instrs}, succs: [][]int32{{}}, preds: [][]int32{{}}}
}

func testRegInfo(budget int) *RegisterInfo {
	info := &RegisterInfo{
		CalleeSavedRegisters: map[RealReg]struct{}{},
		CallerSavedRegisters: map[RealReg]struct{}{},
	}
	for i := 0; i < budget; i++ {
		r := NewRealReg(RegClassInt, byte(i))
		info.AllocatableRegisters[RegClassInt] = append(info.AllocatableRegisters[RegClassInt], r)
		if i < budget/2 {
			info.CallerSavedRegisters[r] = struct{}{}
		} else {
			info.CalleeSavedRegisters[r] = struct{}{}
		}
	}
	info.ScratchRegisters[RegClassInt] = [2]RealReg{
		NewRealReg(RegClassInt, 62), NewRealReg(RegClassInt, 63),
	}
	return info
}

func vreg(i uint32) Reg { return RegFromVirtual(NewVReg(RegClassInt, i)) }

func TestAllocator_simpleAssignment(t *testing.T) {
	// v0 = ...; v1 = ...; v2 = v0 + v1; use v2
	i0 := newMockInstr([]Reg{vreg(0)}, nil)
	i1 := newMockInstr([]Reg{vreg(1)}, nil)
	i2 := newMockInstr([]Reg{vreg(2)}, []Reg{vreg(0), vreg(1)})
	i3 := newMockInstr(nil, []Reg{vreg(2)})
	f := singleBlock(i0, i1, i2, i3)

	a := NewAllocator(testRegInfo(4))
	require.NoError(t, a.Allocate(f))
	require.True(t, f.done)
	require.Empty(t, f.edits)

	// All operands rewritten to distinct-when-live physical registers.
	require.True(t, i2.uses[0].IsReal())
	require.True(t, i2.uses[1].IsReal())
	require.NotEqual(t, i2.uses[0].RealReg(), i2.uses[1].RealReg())
	require.True(t, i3.uses[0].IsReal())
	require.Equal(t, i2.defs[0].RealReg(), i3.uses[0].RealReg())
}

func TestAllocator_copyHintCoalesces(t *testing.T) {
	w0 := RegFromReal(NewRealReg(RegClassInt, 0))
	// v0 <- w0 (copy); ...; w0 <- v0 (copy)
	in := &mockInstr{defs: []Reg{vreg(0)}, uses: []Reg{w0}, copyInstr: true, reuse: -1}
	out := &mockInstr{defs: []Reg{w0}, uses: []Reg{vreg(0)}, copyInstr: true, reuse: -1}
	f := singleBlock(in, out)

	a := NewAllocator(testRegInfo(4))
	require.NoError(t, a.Allocate(f))
	require.Equal(t, NewRealReg(RegClassInt, 0), in.defs[0].RealReg())
	require.Equal(t, NewRealReg(RegClassInt, 0), out.uses[0].RealReg())
}

func TestAllocator_spillOneValueOverBudget(t *testing.T) {
	// One more simultaneously-live value than registers at a single program
	// point: exactly one spill slot is allocated.
	const budget = 4
	var defs []*mockInstr
	for i := 0; i < budget+1; i++ {
		defs = append(defs, newMockInstr([]Reg{vreg(uint32(i))}, nil))
	}
	var uses []Reg
	for i := 0; i < budget+1; i++ {
		uses = append(uses, vreg(uint32(i)))
	}
	use := newMockInstr(nil, uses)

	instrs := append(append([]*mockInstr{}, defs...), use)
	f := singleBlock(instrs...)

	a := NewAllocator(testRegInfo(budget))
	require.NoError(t, a.Allocate(f))

	spilled := map[uint32]struct{}{}
	for _, e := range f.edits {
		spilled[e.slot] = struct{}{}
	}
	require.Equal(t, 1, len(spilled), "exactly one spill slot")
	require.Equal(t, int64(spillSlotBytes), f.spillBytes)
}

func TestAllocator_manyLiveValues(t *testing.T) {
	// 35 simultaneously live values under a 31-register budget: 31 stay in
	// registers and 4 spill; reloads appear immediately before uses and
	// stores immediately after defs.
	const budget, n = 31, 35
	var instrs []*mockInstr
	for i := 0; i < n; i++ {
		instrs = append(instrs, newMockInstr([]Reg{vreg(uint32(i))}, nil))
	}
	var uses []Reg
	for i := 0; i < n; i++ {
		uses = append(uses, vreg(uint32(i)))
	}
	// Consume one value per instruction so next-use distances differ.
	for i := 0; i < n; i++ {
		instrs = append(instrs, newMockInstr(nil, []Reg{uses[i]}))
	}
	f := singleBlock(instrs...)

	a := NewAllocator(testRegInfo(budget))
	require.NoError(t, a.Allocate(f))

	slots := map[uint32]struct{}{}
	var stores, reloads int
	for _, e := range f.edits {
		slots[e.slot] = struct{}{}
		if e.store {
			stores++
			// The store follows the def in the def region of the block.
			require.Less(t, int(e.i), n)
		} else {
			reloads++
			require.GreaterOrEqual(t, int(e.i), n)
		}
	}
	require.Equal(t, n-budget, len(slots))
	require.Equal(t, n-budget, stores)
	require.Equal(t, n-budget, reloads)
	// Frame contribution is a multiple of 16.
	require.Equal(t, int64(0), f.spillBytes%16)
}

func TestAllocator_callClobbering(t *testing.T) {
	info := testRegInfo(8) // regs 0-3 caller-saved, 4-7 callee-saved
	// v0 defined, then a call, then v0 used: v0 must land in a
	// callee-saved register.
	def := newMockInstr([]Reg{vreg(0)}, nil)
	call := &mockInstr{call: true, reuse: -1}
	use := newMockInstr(nil, []Reg{vreg(0)})
	f := singleBlock(def, call, use)

	a := NewAllocator(info)
	require.NoError(t, a.Allocate(f))
	r := use.uses[0].RealReg()
	_, calleeSaved := info.CalleeSavedRegisters[r]
	require.True(t, calleeSaved, "value live across a call must be in a callee-saved register, got %s", r)
	require.Equal(t, []RealReg{r}, f.clobbered)
}

func TestAllocator_reusedInput(t *testing.T) {
	// def0 reuses use0: both end up in the same register.
	src := newMockInstr([]Reg{vreg(0)}, nil)
	op := &mockInstr{defs: []Reg{vreg(1)}, uses: []Reg{vreg(0)}, reuse: 0}
	use := newMockInstr(nil, []Reg{vreg(1)})
	f := singleBlock(src, op, use)

	a := NewAllocator(testRegInfo(4))
	require.NoError(t, a.Allocate(f))
	require.Equal(t, op.uses[0].RealReg(), op.defs[0].RealReg())
}

func TestAllocator_impossibleConstraint(t *testing.T) {
	w0 := RegFromReal(NewRealReg(RegClassInt, 0))
	bad := newMockInstr([]Reg{w0, w0}, nil)
	f := singleBlock(bad)
	a := NewAllocator(testRegInfo(4))
	require.ErrorIs(t, a.Allocate(f), ErrImpossibleConstraint)
}

func TestAllocator_liveAcrossBlocks(t *testing.T) {
	// v0 defined in block0, used in block2; blocks 0->1->2.
	def := newMockInstr([]Reg{vreg(0)}, nil)
	mid := newMockInstr([]Reg{vreg(1)}, nil)
	use := newMockInstr(nil, []Reg{vreg(0), vreg(1)})
	f := &mockFunction{
		blocks: [][]*mockInstr{{def}, {mid}, {use}},
		succs:  [][]int32{{1}, {2}, {}},
		preds:  [][]int32{{}, {0}, {1}},
	}
	a := NewAllocator(testRegInfo(4))
	require.NoError(t, a.Allocate(f))
	require.Equal(t, def.defs[0].RealReg(), use.uses[0].RealReg())
	require.NotEqual(t, use.uses[0].RealReg(), use.uses[1].RealReg())
}
