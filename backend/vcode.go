package backend

import (
	"fmt"

	"github.com/joelreymont/hoist/backend/regalloc"
)

// InstrColor is the side-effect contract stamped on every emitted machine
// instruction. Colors are not an optimization: they are what makes code
// motion decisions during and after lowering safe.
type InstrColor byte

const (
	// ColorGetValue marks a pure instruction that may be sunk into its
	// single consumer.
	ColorGetValue InstrColor = iota
	// ColorSetOutput marks a side-effecting instruction fixed in block
	// order.
	ColorSetOutput
	// ColorMultiResult marks an instruction producing multiple results
	// under ABI or multi-def constraints.
	ColorMultiResult
)

// String implements fmt.Stringer.
func (c InstrColor) String() string {
	switch c {
	case ColorGetValue:
		return "get_value"
	case ColorSetOutput:
		return "set_output"
	case ColorMultiResult:
		return "multi_result"
	default:
		panic(int(c))
	}
}

// VCodeBlock is one basic block of lowered code: a range into the shared
// instruction vector plus the block's CFG edges and parameter registers.
type VCodeBlock struct {
	// Begin and End delimit [Begin, End) in VCode.Instrs.
	Begin, End int32
	// Params are the block parameter registers preserved across lowering.
	Params []regalloc.Reg
	// Succs are successor block indices; Preds is resolved by Finish.
	Succs []int32
	Preds []int32
}

// VCode is the lowered control-flow graph: basic blocks of machine
// instructions over virtual registers, stored in one shared vector in
// final layout order.
type VCode[I any] struct {
	Instrs []I
	Colors []InstrColor
	Blocks []VCodeBlock

	frozen bool
}

// EmissionDir selects the direction a VCodeBuilder accumulates
// instructions in.
type EmissionDir byte

const (
	// EmitForward appends instructions in program order.
	EmitForward EmissionDir = iota
	// EmitBackward appends instructions in reverse program order; the
	// per-block buffer is reversed when the block is finished. This is what
	// lets a consumer's lowering reach back and fold its producer.
	EmitBackward
)

// VCodeBuilder builds a VCode block by block.
type VCodeBuilder[I any] struct {
	code *VCode[I]
	dir  EmissionDir

	scratch       []I
	scratchColors []InstrColor
	curParams     []regalloc.Reg
	curColor      InstrColor
	inBlock       bool
}

// NewVCodeBuilder returns a builder emitting in the given direction.
func NewVCodeBuilder[I any](dir EmissionDir) *VCodeBuilder[I] {
	return &VCodeBuilder[I]{code: &VCode[I]{}, dir: dir}
}

// Reset drops all state for the next function.
func (b *VCodeBuilder[I]) Reset() {
	b.code = &VCode[I]{}
	b.scratch = b.scratch[:0]
	b.scratchColors = b.scratchColors[:0]
	b.curParams = nil
	b.inBlock = false
}

// Code returns the VCode under construction.
func (b *VCodeBuilder[I]) Code() *VCode[I] {
	return b.code
}

// SetColor sets the color stamped on subsequently emitted instructions.
func (b *VCodeBuilder[I]) SetColor(c InstrColor) {
	b.curColor = c
}

// StartBlock begins a new block whose index is returned. Blocks are laid
// out in the order they are started.
func (b *VCodeBuilder[I]) StartBlock(params []regalloc.Reg) int32 {
	if b.inBlock {
		panic("BUG: StartBlock while a block is open")
	}
	b.inBlock = true
	b.curParams = params
	b.scratch = b.scratch[:0]
	b.scratchColors = b.scratchColors[:0]
	return int32(len(b.code.Blocks))
}

// Emit appends one instruction to the open block.
func (b *VCodeBuilder[I]) Emit(instr I) {
	if !b.inBlock {
		panic("BUG: Emit outside a block")
	}
	b.scratch = append(b.scratch, instr)
	b.scratchColors = append(b.scratchColors, b.curColor)
}

// EndBlock closes the open block with the given successor indices.
func (b *VCodeBuilder[I]) EndBlock(succs []int32) {
	if !b.inBlock {
		panic("BUG: EndBlock without a block")
	}
	b.inBlock = false

	if b.dir == EmitBackward {
		for i, j := 0, len(b.scratch)-1; i < j; i, j = i+1, j-1 {
			b.scratch[i], b.scratch[j] = b.scratch[j], b.scratch[i]
			b.scratchColors[i], b.scratchColors[j] = b.scratchColors[j], b.scratchColors[i]
		}
	}

	begin := int32(len(b.code.Instrs))
	b.code.Instrs = append(b.code.Instrs, b.scratch...)
	b.code.Colors = append(b.code.Colors, b.scratchColors...)
	b.code.Blocks = append(b.code.Blocks, VCodeBlock{
		Begin:  begin,
		End:    int32(len(b.code.Instrs)),
		Params: b.curParams,
		Succs:  append([]int32(nil), succs...),
	})
}

// Finish resolves predecessor lists from successor lists and publishes the
// immutable VCode.
func (b *VCodeBuilder[I]) Finish() *VCode[I] {
	if b.inBlock {
		panic("BUG: Finish with an open block")
	}
	code := b.code
	for i := range code.Blocks {
		code.Blocks[i].Preds = code.Blocks[i].Preds[:0]
	}
	for i := range code.Blocks {
		for _, s := range code.Blocks[i].Succs {
			code.Blocks[s].Preds = append(code.Blocks[s].Preds, int32(i))
		}
	}
	code.frozen = true
	return code
}

// BlockInstrs returns the instruction slice of block i.
func (c *VCode[I]) BlockInstrs(i int) []I {
	blk := &c.Blocks[i]
	return c.Instrs[blk.Begin:blk.End]
}

// Insertion is one spill/reload instruction to splice into the VCode.
// Instructions are first-class: emission stays a pure function of the
// final VCode.
type Insertion[I any] struct {
	// Block is the block index; Index the position within the shared
	// vector before which the instruction is placed (== block End to
	// append at the tail).
	Block int32
	Index int32
	Instr I
}

// ApplyInsertions splices the collected insertions in one pass, keeping
// block ranges consistent. Insertions at equal Index keep their relative
// order.
func (c *VCode[I]) ApplyInsertions(ins []Insertion[I]) {
	if len(ins) == 0 {
		return
	}
	// Counting sort by index keeps the splice single-pass. An insertion at
	// its block's End goes in before that boundary, so it stays in its block.
	perIndex := make(map[int32][]I, len(ins))
	tails := make(map[int32][]I)
	for _, in := range ins {
		if in.Index == c.Blocks[in.Block].End {
			tails[in.Index] = append(tails[in.Index], in.Instr)
			continue
		}
		perIndex[in.Index] = append(perIndex[in.Index], in.Instr)
	}

	newInstrs := make([]I, 0, len(c.Instrs)+len(ins))
	newColors := make([]InstrColor, 0, len(c.Instrs)+len(ins))
	oldToNew := make([]int32, len(c.Instrs)+1)
	for i := range c.Instrs {
		for _, a := range tails[int32(i)] {
			newInstrs = append(newInstrs, a)
			newColors = append(newColors, ColorSetOutput)
		}
		oldToNew[i] = int32(len(newInstrs))
		if add, ok := perIndex[int32(i)]; ok {
			for _, a := range add {
				newInstrs = append(newInstrs, a)
				newColors = append(newColors, ColorSetOutput)
			}
		}
		newInstrs = append(newInstrs, c.Instrs[i])
		if i < len(c.Colors) {
			newColors = append(newColors, c.Colors[i])
		} else {
			newColors = append(newColors, ColorSetOutput)
		}
	}
	for _, a := range tails[int32(len(c.Instrs))] {
		newInstrs = append(newInstrs, a)
		newColors = append(newColors, ColorSetOutput)
	}
	oldToNew[len(c.Instrs)] = int32(len(newInstrs))
	if add, ok := perIndex[int32(len(c.Instrs))]; ok {
		for _, a := range add {
			newInstrs = append(newInstrs, a)
			newColors = append(newColors, ColorSetOutput)
		}
	}

	for i := range c.Blocks {
		blk := &c.Blocks[i]
		blk.Begin = oldToNew[blk.Begin]
		blk.End = oldToNew[blk.End]
	}
	c.Instrs = newInstrs
	c.Colors = newColors
}

// Format returns a debug listing of the VCode.
func (c *VCode[I]) Format(format func(I) string) string {
	s := ""
	for i := range c.Blocks {
		s += fmt.Sprintf("block%d:\n", i)
		for _, instr := range c.BlockInstrs(i) {
			s += "\t" + format(instr) + "\n"
		}
	}
	return s
}
