// Package regalloc implements the virtual-register model and register
// allocation: live-range analysis over the lowered code, linear-scan
// assignment of physical registers with a furthest-next-use spill
// heuristic, and spill/reload insertion through first-class instructions.
package regalloc

import (
	"errors"
	"fmt"
	"sort"
)

// ErrImpossibleConstraint is reported when two fixed register constraints
// demand the same physical register at the same program point; the backend
// must insert a resolving move earlier.
var ErrImpossibleConstraint = errors.New("impossible register constraint")

// spillSlotBytes is the byte size of one spill slot; wide enough for any
// scalar or 128-bit vector so freed slots can be reused across classes.
const spillSlotBytes = 16

// NewAllocator returns a new Allocator for the given register set.
func NewAllocator(info *RegisterInfo) *Allocator {
	return &Allocator{regInfo: info}
}

// Allocator is a linear-scan register allocator.
type Allocator struct {
	regInfo *RegisterInfo

	blockStartPC []int64
	blockEndPC   []int64

	states map[VReg]*vregState
	// aliases resolves two-address reuse constraints: the def's VReg is
	// merged into the used VReg so both receive one register.
	aliases map[VReg]VReg

	// fixedRefs records, per physical register, the sorted program points
	// where a fixed constraint or call clobber pins it.
	fixedRefs map[RealReg][]int64

	liveIns  []map[VReg]struct{}
	liveOuts []map[VReg]struct{}

	freeSlots []uint32
	nextSlot  uint32
}

type vregState struct {
	v          VReg
	start, end int64
	uses       []int64
	defs       []int64
	hint       RealReg

	assigned RealReg
	spilled  bool
	slot     uint32
}

const (
	pcUseOffset = 0
	pcDefOffset = 1
	pcStride    = 2
)

// Allocate performs register allocation on the given Function.
//
// Guarantees on return: every operand is a physical register or a
// spill-slot-backed reload; no two overlapping live intervals share a
// register; fixed constraints are honored exactly.
func (a *Allocator) Allocate(f Function) error {
	a.reset()
	if err := a.collect(f); err != nil {
		return err
	}
	a.livenessAnalysis(f)
	a.buildIntervals(f)
	a.scan()
	a.rewrite(f)

	a.reportClobbers(f)
	f.SpillSlotsUsed(int64(a.nextSlot) * spillSlotBytes)
	f.Done()
	return nil
}

func (a *Allocator) reset() {
	a.states = make(map[VReg]*vregState)
	a.aliases = make(map[VReg]VReg)
	a.fixedRefs = make(map[RealReg][]int64)
	a.blockStartPC = a.blockStartPC[:0]
	a.blockEndPC = a.blockEndPC[:0]
	a.liveIns = a.liveIns[:0]
	a.liveOuts = a.liveOuts[:0]
	a.freeSlots = a.freeSlots[:0]
	a.nextSlot = 0
}

func (a *Allocator) resolve(v VReg) VReg {
	for {
		alias, ok := a.aliases[v]
		if !ok {
			return v
		}
		v = alias
	}
}

func (a *Allocator) stateOf(v VReg) *vregState {
	v = a.resolve(v)
	s, ok := a.states[v]
	if !ok {
		s = &vregState{v: v, start: -1, end: -1, assigned: RealRegInvalid, hint: RealRegInvalid}
		a.states[v] = s
	}
	return s
}

// collect gathers use/def positions, fixed-register references, copy hints
// and reuse aliases in one forward walk.
func (a *Allocator) collect(f Function) error {
	var pc int64
	var scratch []Reg
	for b := 0; b < f.Blocks(); b++ {
		a.blockStartPC = append(a.blockStartPC, pc)
		n := f.BlockInstrs(b)
		for i := 0; i < n; i++ {
			instr := f.Instr(b, i)

			// Resolve two-address reuse constraints first so the def and
			// its reused input share one live range.
			scratch = instr.Defs(scratch[:0])
			for di, d := range scratch {
				if ui, ok := instr.ReusedInput(di); ok && d.IsVirtual() {
					var uses []Reg
					uses = instr.Uses(uses)
					if u := uses[ui]; u.IsVirtual() {
						a.aliases[d.VReg()] = a.resolve(u.VReg())
					}
				}
			}

			scratch = instr.Uses(scratch[:0])
			for _, u := range scratch {
				switch {
				case u.IsVirtual():
					s := a.stateOf(u.VReg())
					s.uses = append(s.uses, pc+pcUseOffset)
				case u.IsReal():
					a.addFixedRef(u.RealReg(), pc+pcUseOffset)
				}
			}

			scratch = instr.Defs(scratch[:0])
			seenRealDefs := map[RealReg]struct{}{}
			for _, d := range scratch {
				switch {
				case d.IsVirtual():
					s := a.stateOf(d.VReg())
					s.defs = append(s.defs, pc+pcDefOffset)
				case d.IsReal():
					if _, dup := seenRealDefs[d.RealReg()]; dup {
						return fmt.Errorf("%w: %s defined twice at %s",
							ErrImpossibleConstraint, d.RealReg(), instr)
					}
					seenRealDefs[d.RealReg()] = struct{}{}
					a.addFixedRef(d.RealReg(), pc+pcDefOffset)
				}
			}

			if instr.IsCall() {
				for r := range a.regInfo.CallerSavedRegisters {
					a.addFixedRef(r, pc+pcDefOffset)
				}
			}

			if dst, src, ok := instr.IsCopy(); ok {
				switch {
				case dst.IsVirtual() && src.IsReal():
					if s := a.stateOf(dst.VReg()); s.hint == RealRegInvalid {
						s.hint = src.RealReg()
					}
				case dst.IsReal() && src.IsVirtual():
					if s := a.stateOf(src.VReg()); s.hint == RealRegInvalid {
						s.hint = dst.RealReg()
					}
				}
			}

			pc += pcStride
		}
		a.blockEndPC = append(a.blockEndPC, pc-pcStride+pcDefOffset)
	}
	return nil
}

func (a *Allocator) addFixedRef(r RealReg, pc int64) {
	a.fixedRefs[r] = append(a.fixedRefs[r], pc)
}

// livenessAnalysis computes per-block live-in/live-out sets of virtual
// registers by backward dataflow to fixpoint on the successor graph.
func (a *Allocator) livenessAnalysis(f Function) {
	n := f.Blocks()
	gens := make([]map[VReg]struct{}, n)
	kills := make([]map[VReg]struct{}, n)
	a.liveIns = make([]map[VReg]struct{}, n)
	a.liveOuts = make([]map[VReg]struct{}, n)

	var scratch []Reg
	for b := 0; b < n; b++ {
		gen, kill := map[VReg]struct{}{}, map[VReg]struct{}{}
		for i := 0; i < f.BlockInstrs(b); i++ {
			instr := f.Instr(b, i)
			scratch = instr.Uses(scratch[:0])
			for _, u := range scratch {
				if u.IsVirtual() {
					v := a.resolve(u.VReg())
					if _, killed := kill[v]; !killed {
						gen[v] = struct{}{}
					}
				}
			}
			scratch = instr.Defs(scratch[:0])
			for _, d := range scratch {
				if d.IsVirtual() {
					kill[a.resolve(d.VReg())] = struct{}{}
				}
			}
		}
		gens[b], kills[b] = gen, kill
		a.liveIns[b] = map[VReg]struct{}{}
		a.liveOuts[b] = map[VReg]struct{}{}
	}

	changed := true
	for changed {
		changed = false
		for b := n - 1; b >= 0; b-- {
			out := a.liveOuts[b]
			for _, s := range f.BlockSuccs(b) {
				for v := range a.liveIns[s] {
					if _, ok := out[v]; !ok {
						out[v] = struct{}{}
						changed = true
					}
				}
			}
			in := a.liveIns[b]
			for v := range gens[b] {
				if _, ok := in[v]; !ok {
					in[v] = struct{}{}
					changed = true
				}
			}
			for v := range out {
				if _, killed := kills[b][v]; !killed {
					if _, ok := in[v]; !ok {
						in[v] = struct{}{}
						changed = true
					}
				}
			}
		}
	}
}

// buildIntervals derives one conservative live interval per virtual
// register from def/use positions and block liveness.
func (a *Allocator) buildIntervals(f Function) {
	for _, s := range a.states {
		for _, d := range s.defs {
			s.extend(d)
		}
		for _, u := range s.uses {
			s.extend(u)
		}
		sort.Slice(s.uses, func(i, j int) bool { return s.uses[i] < s.uses[j] })
	}
	for b := 0; b < f.Blocks(); b++ {
		for v := range a.liveIns[b] {
			a.stateOf(v).extend(a.blockStartPC[b])
		}
		for v := range a.liveOuts[b] {
			a.stateOf(v).extend(a.blockEndPC[b])
		}
	}
}

func (s *vregState) extend(pc int64) {
	if s.start < 0 || pc < s.start {
		s.start = pc
	}
	if pc > s.end {
		s.end = pc
	}
}

// nextUseAfter returns the first use at or after pc, or a sentinel past
// the end.
func (s *vregState) nextUseAfter(pc int64) int64 {
	i := sort.Search(len(s.uses), func(i int) bool { return s.uses[i] >= pc })
	if i == len(s.uses) {
		return s.end + 1
	}
	return s.uses[i]
}

// scan runs the linear scan: process intervals in start order, expiring
// finished ones, preferring copy hints, and spilling the interval whose
// next use is furthest when no register of the class is available.
func (a *Allocator) scan() {
	intervals := make([]*vregState, 0, len(a.states))
	for _, s := range a.states {
		if s.start >= 0 {
			intervals = append(intervals, s)
		}
	}
	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].start != intervals[j].start {
			return intervals[i].start < intervals[j].start
		}
		return intervals[i].v < intervals[j].v
	})

	var active []*vregState
	for _, cur := range intervals {
		// Expire intervals that ended before cur starts; their registers
		// and spill slots become reusable.
		n := 0
		for _, s := range active {
			if s.end < cur.start {
				if s.spilled {
					a.freeSlots = append(a.freeSlots, s.slot)
				}
				continue
			}
			active[n] = s
			n++
		}
		active = active[:n]

		r := a.pickRegister(cur, active)
		if r != RealRegInvalid {
			cur.assigned = r
			active = append(active, cur)
			continue
		}

		// No register: spill the interval with the furthest next use.
		victim := cur
		victimNext := cur.nextUseAfter(cur.start)
		for _, s := range active {
			if s.assigned == RealRegInvalid || s.v.Class() != cur.v.Class() {
				continue
			}
			if !a.allowed(cur, s.assigned) {
				continue
			}
			if next := s.nextUseAfter(cur.start); next > victimNext {
				victim, victimNext = s, next
			}
		}
		if victim == cur {
			cur.spill(a)
			active = append(active, cur)
			continue
		}
		cur.assigned = victim.assigned
		victim.spill(a)
		active = append(active, cur)
	}
}

func (s *vregState) spill(a *Allocator) {
	s.assigned = RealRegInvalid
	s.spilled = true
	if n := len(a.freeSlots); n > 0 {
		s.slot = a.freeSlots[n-1]
		a.freeSlots = a.freeSlots[:n-1]
	} else {
		s.slot = a.nextSlot
		a.nextSlot++
	}
}

func (a *Allocator) pickRegister(cur *vregState, active []*vregState) RealReg {
	inUse := map[RealReg]struct{}{}
	for _, s := range active {
		if s.assigned != RealRegInvalid {
			inUse[s.assigned] = struct{}{}
		}
	}
	try := func(r RealReg) bool {
		if _, busy := inUse[r]; busy {
			return false
		}
		return a.allowed(cur, r)
	}
	if cur.hint != RealRegInvalid && cur.hint.Class() == cur.v.Class() && try(cur.hint) {
		return cur.hint
	}
	for _, r := range a.regInfo.AllocatableRegisters[cur.v.Class()] {
		if try(r) {
			return r
		}
	}
	return RealRegInvalid
}

// allowed reports whether r is free of fixed constraints inside cur's
// interval.
func (a *Allocator) allowed(cur *vregState, r RealReg) bool {
	refs := a.fixedRefs[r]
	i := sort.Search(len(refs), func(i int) bool { return refs[i] >= cur.start })
	return i == len(refs) || refs[i] > cur.end
}

// rewrite walks the code in order, rewriting virtual operands to their
// physical registers and inserting reloads before uses and stores after
// defs of spilled values.
func (a *Allocator) rewrite(f Function) {
	var uses, defs []Reg
	for b := 0; b < f.Blocks(); b++ {
		for i := 0; i < f.BlockInstrs(b); i++ {
			instr := f.Instr(b, i)

			uses = instr.Uses(uses[:0])
			scratchIdx := 0
			for idx, u := range uses {
				if !u.IsVirtual() {
					continue
				}
				s := a.stateOf(u.VReg())
				if !s.spilled {
					instr.AssignUse(idx, s.assigned)
					continue
				}
				sc := a.regInfo.ScratchRegisters[u.Class()][scratchIdx&1]
				scratchIdx++
				f.InsertReloadBefore(sc, u.Class(), s.slot, int32(b), int32(i))
				instr.AssignUse(idx, sc)
			}

			defs = instr.Defs(defs[:0])
			for idx, d := range defs {
				if !d.IsVirtual() {
					continue
				}
				s := a.stateOf(d.VReg())
				if !s.spilled {
					instr.AssignDef(idx, s.assigned)
					continue
				}
				sc := a.regInfo.ScratchRegisters[d.Class()][0]
				instr.AssignDef(idx, sc)
				f.InsertStoreAfter(sc, d.Class(), s.slot, int32(b), int32(i))
			}
		}
	}
}

func (a *Allocator) reportClobbers(f Function) {
	seen := map[RealReg]struct{}{}
	var clobbered []RealReg
	for _, s := range a.states {
		if s.assigned == RealRegInvalid {
			continue
		}
		if _, dup := seen[s.assigned]; dup {
			continue
		}
		seen[s.assigned] = struct{}{}
		if a.regInfo.isCalleeSaved(s.assigned) {
			clobbered = append(clobbered, s.assigned)
		}
	}
	sort.Slice(clobbered, func(i, j int) bool { return clobbered[i] < clobbered[j] })
	f.ClobberedRegisters(clobbered)
}
