package ssa

import (
	"fmt"
	"strconv"
	"strings"
)

// BasicBlock represents the Basic Block of an SSA function.
// Each BasicBlock always ends with a terminator (jump, branch table,
// return, trap, or try-call); the only other branching instruction a block
// may contain is a conditional branch immediately before the terminator.
//
// Note: we use the "block argument" variant of SSA, instead of PHI
// functions: "parameter/param" is the φ placeholder attached to the block,
// and "argument/arg" is the Value a predecessor's branch passes to it.
type BasicBlock interface {
	// ID returns the unique ID of this block.
	ID() BasicBlockID

	// Name returns the unique string ID of this block. e.g. blk0, blk1, ...
	Name() string

	// AddParam adds the parameter to the block whose type specified by `t`.
	AddParam(b Builder, t Type) Value

	// Params returns the number of parameters to this block.
	Params() int

	// Param returns the Value which corresponds to the i-th parameter of this block.
	Param(i int) Value

	// Root returns the root instruction of this block.
	Root() *Instruction

	// Tail returns the tail instruction of this block.
	Tail() *Instruction

	// EntryBlock returns true if this block represents the function entry.
	EntryBlock() bool

	// Preds returns the number of predecessors of this block.
	Preds() int

	// Pred returns the i-th predecessor of this block.
	Pred(i int) BasicBlock

	// Succs returns the number of successors of this block.
	Succs() int

	// Succ returns the i-th successor of this block.
	Succ(i int) BasicBlock

	// FormatHeader returns the debug string of this block, not including instruction.
	FormatHeader() string
}

type (
	// basicBlock is a basic block in a SSA-transformed function.
	basicBlock struct {
		id                      BasicBlockID
		rootInstr, currentInstr *Instruction
		params                  []blockParam
		preds                   []basicBlockPredecessorInfo
		success                 []*basicBlock
		// reversePostOrder is the position of this block in the reverse
		// post-order traversal computed by passCalculateCFG.
		reversePostOrder int
		// dom is the immediate dominator resolved by passCalculateCFG.
		dom *basicBlock
		// visited is scratch state for the CFG passes.
		visited bool
	}

	// BasicBlockID is the unique ID of a basicBlock.
	BasicBlockID uint32

	// blockParam implements Value and represents a parameter to a basicBlock.
	blockParam struct {
		// value is the Value that corresponds to the parameter in this block,
		// and can be considered as an output of PHI instruction in traditional SSA.
		value Value
		// typ is the type of the parameter.
		typ Type
	}

	// basicBlockPredecessorInfo is the information of a predecessor of a basicBlock.
	// predecessor is determined by a pair of block and the branch instruction used to jump to the successor.
	basicBlockPredecessorInfo struct {
		blk    *basicBlock
		branch *Instruction
	}
)

// Name implements BasicBlock.Name.
func (bb *basicBlock) Name() string {
	return fmt.Sprintf("blk%d", bb.id)
}

// String implements fmt.Stringer for debugging.
func (bid BasicBlockID) String() string {
	return fmt.Sprintf("blk%d", bid)
}

// ID implements BasicBlock.ID.
func (bb *basicBlock) ID() BasicBlockID {
	return bb.id
}

// EntryBlock implements BasicBlock.EntryBlock.
func (bb *basicBlock) EntryBlock() bool {
	return bb.id == 0
}

// AddParam implements BasicBlock.AddParam.
func (bb *basicBlock) AddParam(b Builder, typ Type) Value {
	paramValue := b.allocateValue(typ)
	bb.params = append(bb.params, blockParam{typ: typ, value: paramValue})
	return paramValue
}

// Params implements BasicBlock.Params.
func (bb *basicBlock) Params() int {
	return len(bb.params)
}

// Param implements BasicBlock.Param.
func (bb *basicBlock) Param(i int) Value {
	p := &bb.params[i]
	return p.value
}

// insertInstruction appends the instruction to the tail of this block's
// layout and records predecessor edges for branching instructions.
func (bb *basicBlock) insertInstruction(next *Instruction) {
	current := bb.currentInstr
	if current != nil {
		current.next = next
		next.prev = current
	} else {
		bb.rootInstr = next
	}
	bb.currentInstr = next

	switch next.opcode {
	case OpcodeJump, OpcodeBrz, OpcodeBrnz:
		target := next.blk.(*basicBlock)
		target.addPred(bb, next)
	case OpcodeBrTable:
		for _, target := range next.targets {
			target.(*basicBlock).addPred(bb, next)
		}
	case OpcodeTryCall:
		next.blk.(*basicBlock).addPred(bb, next)
		next.blk2.(*basicBlock).addPred(bb, next)
	}
}

// Preds implements BasicBlock.Preds.
func (bb *basicBlock) Preds() int {
	return len(bb.preds)
}

// Pred implements BasicBlock.Pred.
func (bb *basicBlock) Pred(i int) BasicBlock {
	return bb.preds[i].blk
}

// Succs implements BasicBlock.Succs.
func (bb *basicBlock) Succs() int {
	return len(bb.success)
}

// Succ implements BasicBlock.Succ.
func (bb *basicBlock) Succ(i int) BasicBlock {
	return bb.success[i]
}

// Root implements BasicBlock.Root.
func (bb *basicBlock) Root() *Instruction {
	return bb.rootInstr
}

// Tail implements BasicBlock.Tail.
func (bb *basicBlock) Tail() *Instruction {
	return bb.currentInstr
}

// reset resets the basicBlock to its initial state so that it can be reused for another function.
func (bb *basicBlock) reset() {
	bb.params = bb.params[:0]
	bb.rootInstr, bb.currentInstr = nil, nil
	bb.preds = bb.preds[:0]
	bb.success = bb.success[:0]
	bb.dom = nil
	bb.reversePostOrder = 0
	bb.visited = false
}

// addPred adds a predecessor to this block specified by the branch instruction.
// Edges are kept ordered by branch instruction ID, the order in which the
// branches were allocated.
func (bb *basicBlock) addPred(blk BasicBlock, branch *Instruction) {
	pred := blk.(*basicBlock)
	at := len(bb.preds)
	for at > 0 && bb.preds[at-1].branch.id > branch.id {
		at--
	}
	bb.preds = append(bb.preds, basicBlockPredecessorInfo{})
	copy(bb.preds[at+1:], bb.preds[at:])
	bb.preds[at] = basicBlockPredecessorInfo{
		blk:    pred,
		branch: branch,
	}
	pred.success = append(pred.success, bb)
}

// removePred removes the predecessor edge recorded for the given branch
// instruction. Rebuilding it via addPred restores the exact predecessor
// order since edges are kept ordered by branch instruction ID.
func (bb *basicBlock) removePred(branch *Instruction) {
	for idx := range bb.preds {
		if bb.preds[idx].branch == branch {
			pred := bb.preds[idx].blk
			bb.preds = append(bb.preds[:idx], bb.preds[idx+1:]...)
			for sidx, s := range pred.success {
				if s == bb {
					pred.success = append(pred.success[:sidx], pred.success[sidx+1:]...)
					break
				}
			}
			return
		}
	}
	panic("BUG: removePred: branch not found")
}

// FormatHeader implements BasicBlock.FormatHeader.
func (bb *basicBlock) FormatHeader() string {
	ps := make([]string, len(bb.params))
	for i, p := range bb.params {
		ps[i] = p.value.formatWithType()
	}

	if len(bb.preds) > 0 {
		preds := make([]string, 0, len(bb.preds))
		for _, pred := range bb.preds {
			preds = append(preds, fmt.Sprintf("blk%d", pred.blk.id))
		}
		return fmt.Sprintf("blk%d: (%s) <-- (%s)",
			bb.id, strings.Join(ps, ","), strings.Join(preds, ","))
	}
	return fmt.Sprintf("blk%d: (%s)", bb.id, strings.Join(ps, ", "))
}

// String implements fmt.Stringer for debugging purpose only.
func (bb *basicBlock) String() string {
	return strconv.Itoa(int(bb.id))
}
