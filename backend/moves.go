package backend

import (
	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/ssa"
)

// ParallelMove is one register-to-register transfer of an edge's
// φ-argument passing.
type ParallelMove struct {
	Dst, Src regalloc.Reg
	Type     ssa.Type
}

// ScheduleParallelMoves orders the moves of one edge so that no move reads
// a register already overwritten by an earlier move on the same edge.
// When the transfer graph contains a cycle, it is broken through a
// temporary obtained from allocTmp.
//
// The returned sequence executes correctly top to bottom.
func ScheduleParallelMoves(moves []ParallelMove, allocTmp func(c regalloc.RegClass, t ssa.Type) regalloc.Reg) []ParallelMove {
	pending := append([]ParallelMove(nil), moves...)
	var out []ParallelMove

	// Drop no-op transfers up front.
	n := 0
	for _, m := range pending {
		if m.Dst != m.Src {
			pending[n] = m
			n++
		}
	}
	pending = pending[:n]

	readers := func(r regalloc.Reg) int {
		c := 0
		for _, m := range pending {
			if m.Src == r {
				c++
			}
		}
		return c
	}

	for len(pending) > 0 {
		progressed := false
		for i := 0; i < len(pending); i++ {
			m := pending[i]
			// Safe when nothing still pending reads the destination.
			if readers(m.Dst) == 0 {
				out = append(out, m)
				pending = append(pending[:i], pending[i+1:]...)
				progressed = true
				i--
			}
		}
		if progressed {
			continue
		}
		// Every remaining destination is also read: a cycle. Rotate it
		// through a temporary.
		head := pending[0]
		tmp := allocTmp(head.Dst.Class(), head.Type)
		out = append(out, ParallelMove{Dst: tmp, Src: head.Src, Type: head.Type})
		for i := range pending {
			if pending[i].Src == head.Src {
				pending[i].Src = tmp
			}
		}
	}
	return out
}
