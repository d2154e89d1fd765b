package ssa

// This file implements the CFG analyses shared by the verifier and the
// backend: reverse post-order numbering and the dominator tree.

// LayoutCFG implements Builder.LayoutCFG.
//
// Reverse post-order is computed by a depth-first traversal over the
// successor graph; the dominator tree by the iterative algorithm of
// Cooper, Harvey and Kennedy ("A Simple, Fast Dominance Algorithm") which
// converges quickly on reducible control flow and handles back edges
// without special cases.
func (b *builder) LayoutCFG() {
	b.reversePostOrderedBasicBlocks = b.reversePostOrderedBasicBlocks[:0]
	for _, blk := range b.basicBlocksView {
		blk.visited = false
		blk.dom = nil
	}
	if len(b.basicBlocksView) == 0 {
		b.cfgDone = true
		return
	}

	b.postOrderDFS(b.basicBlocksView[0])
	// b.reversePostOrderedBasicBlocks now holds post-order; reverse it.
	view := b.reversePostOrderedBasicBlocks
	for i, j := 0, len(view)-1; i < j; i, j = i+1, j-1 {
		view[i], view[j] = view[j], view[i]
	}
	for i, blk := range view {
		blk.reversePostOrder = i
	}

	b.calculateDominators()
	b.cfgDone = true
}

func (b *builder) postOrderDFS(blk *basicBlock) {
	blk.visited = true
	for _, succ := range blk.success {
		if !succ.visited {
			b.postOrderDFS(succ)
		}
	}
	b.reversePostOrderedBasicBlocks = append(b.reversePostOrderedBasicBlocks, blk)
}

func (b *builder) calculateDominators() {
	view := b.reversePostOrderedBasicBlocks
	if len(view) == 0 {
		return
	}
	entry := view[0]
	entry.dom = entry

	changed := true
	for changed {
		changed = false
		for _, blk := range view[1:] {
			var newIdom *basicBlock
			for _, pred := range blk.preds {
				p := pred.blk
				if !p.visited || p.dom == nil {
					// Unreachable predecessor: ignore.
					continue
				}
				if newIdom == nil {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom)
				}
			}
			if newIdom != nil && blk.dom != newIdom {
				blk.dom = newIdom
				changed = true
			}
		}
	}
	// The entry's immediate dominator is reported as nil.
	entry.dom = nil
}

func intersect(b1, b2 *basicBlock) *basicBlock {
	for b1 != b2 {
		for b1.reversePostOrder > b2.reversePostOrder {
			if b1.dom == b1 {
				return b2
			}
			b1 = b1.dom
		}
		for b2.reversePostOrder > b1.reversePostOrder {
			if b2.dom == b2 {
				return b1
			}
			b2 = b2.dom
		}
	}
	return b1
}

// Idom implements Builder.Idom.
func (b *builder) Idom(blk BasicBlock) BasicBlock {
	if !b.cfgDone {
		panic("BUG: LayoutCFG has not run")
	}
	dom := blk.(*basicBlock).dom
	if dom == nil {
		return nil
	}
	return dom
}

// Dominates implements Builder.Dominates: a dominates b (reflexively).
func (b *builder) Dominates(x, y BasicBlock) bool {
	if !b.cfgDone {
		panic("BUG: LayoutCFG has not run")
	}
	xb, yb := x.(*basicBlock), y.(*basicBlock)
	for {
		if xb == yb {
			return true
		}
		if yb.dom == nil {
			return false
		}
		yb = yb.dom
	}
}
