package ssa

import (
	"fmt"
	"math"
	"strings"
)

// Builder is used to construct an SSA function. A front end appends blocks,
// block parameters and instructions; once built, the function is verified
// and handed to the backend which never mutates it.
type Builder interface {
	// Reset must be called to reuse this builder for the next function.
	Reset()

	// SetSignature sets the signature of the function being built.
	SetSignature(sig *Signature)

	// Signature returns the signature of the function being built.
	Signature() *Signature

	// AllocateBasicBlock creates a basic block in the SSA function.
	AllocateBasicBlock() BasicBlock

	// CurrentBlock returns the currently-inserted-into block.
	CurrentBlock() BasicBlock

	// SetCurrentBlock sets the block into which instructions are inserted.
	SetCurrentBlock(b BasicBlock)

	// AllocateInstruction returns a new Instruction; initialize it with one
	// of the As* methods before inserting.
	AllocateInstruction() *Instruction

	// InsertInstruction inserts the instruction into the tail of the
	// current block's layout and allocates its result values.
	InsertInstruction(raw *Instruction)

	// DeclareSignature interns a signature used by call instructions.
	DeclareSignature(sig *Signature) SigRef

	// ResolveSignature returns the signature interned under ref.
	ResolveSignature(ref SigRef) *Signature

	// DeclareFunction declares a callee by symbol name and signature.
	DeclareFunction(name string, sig SigRef) FuncRef

	// FunctionData returns the name and signature of the declared callee.
	FunctionData(ref FuncRef) (name string, sig SigRef)

	// DeclareStackSlot declares an explicit stack slot of the given size
	// and alignment.
	DeclareStackSlot(size, align uint32) StackSlot

	// StackSlotData returns the declaration of the stack slot.
	StackSlotData(slot StackSlot) StackSlotData

	// StackSlots returns the number of declared stack slots.
	StackSlots() int

	// DeclareGlobalValue declares a symbolic global address.
	DeclareGlobalValue(name string, tls bool) GlobalValue

	// GlobalValueData returns the declaration of the global value.
	GlobalValueData(gv GlobalValue) GlobalValueData

	// DeclareConstant interns constant bytes into the function pool.
	DeclareConstant(data []byte) Constant

	// ConstantValue returns the bytes interned under c.
	ConstantValue(c Constant) []byte

	// DeclareJumpTable declares an ordered branch-table target list.
	DeclareJumpTable(targets []BasicBlock) JumpTable

	// ResolveJumpTable returns the targets declared under jt.
	ResolveJumpTable(jt JumpTable) []BasicBlock

	// DeclareAggregate interns an aggregate layout and returns its Type.
	DeclareAggregate(fields []AggregateField) Type

	// AggregateLayoutOf returns the layout of an aggregate Type.
	AggregateLayoutOf(t Type) *AggregateLayout

	// EntryBlock returns the entry block (the first allocated block).
	EntryBlock() BasicBlock

	// Blocks returns the number of allocated blocks.
	Blocks() int

	// Block returns the block with the given id.
	Block(id BasicBlockID) BasicBlock

	// BlockIteratorBegin starts iterating blocks in allocation (layout) order.
	BlockIteratorBegin() BasicBlock

	// BlockIteratorNext returns the next block in layout order.
	BlockIteratorNext() BasicBlock

	// BlockIteratorReversePostOrderBegin starts iterating blocks in reverse
	// post-order. LayoutCFG must have run.
	BlockIteratorReversePostOrderBegin() BasicBlock

	// BlockIteratorReversePostOrderNext returns the next block in reverse
	// post-order.
	BlockIteratorReversePostOrderNext() BasicBlock

	// Idom returns the immediate dominator of blk (nil for the entry).
	// LayoutCFG must have run.
	Idom(blk BasicBlock) BasicBlock

	// Dominates returns true if a dominates b. LayoutCFG must have run.
	Dominates(a, b BasicBlock) bool

	// LayoutCFG computes reverse post-order and the dominator tree.
	LayoutCFG()

	// AssignGroupIDs assigns the side-effect group id to each instruction.
	AssignGroupIDs()

	// ValueRefCounts returns the number of uses of each Value indexed by
	// ValueID.
	ValueRefCounts() []uint32

	// Verify checks the SSA invariants and returns ErrInvalidSSA on the
	// first violation.
	Verify() error

	// Format returns a debug string of the function.
	Format() string

	// used by BasicBlock.AddParam.
	allocateValue(typ Type) Value
}

// NewBuilder returns a new Builder implementation.
func NewBuilder() Builder {
	return &builder{
		signatures: make(map[SigRef]*Signature),
	}
}

// builder implements Builder interface.
type builder struct {
	basicBlocksPool  pool[basicBlock]
	instructionsPool pool[Instruction]

	signature *Signature

	basicBlocksView []*basicBlock
	currentBB       *basicBlock

	signatures    map[SigRef]*Signature
	nextSignature SigRef

	funcRefNames []string
	funcRefSigs  []SigRef

	stackSlots   []StackSlotData
	globalValues []GlobalValueData
	constants    []ConstantData
	jumpTables   [][]BasicBlock
	aggregates   []AggregateLayout

	nextValueID       ValueID
	nextInstructionID InstructionID

	valueTypes []Type
	refCounts  []uint32

	reversePostOrderedBasicBlocks []*basicBlock
	blockIterCur                  int
	cfgDone                       bool
}

// Reset implements Builder.Reset.
func (b *builder) Reset() {
	b.basicBlocksPool.reset()
	b.instructionsPool.reset()
	b.basicBlocksView = b.basicBlocksView[:0]
	b.currentBB = nil
	b.signature = nil

	for k := range b.signatures {
		delete(b.signatures, k)
	}
	b.nextSignature = 0
	b.funcRefNames = b.funcRefNames[:0]
	b.funcRefSigs = b.funcRefSigs[:0]
	b.stackSlots = b.stackSlots[:0]
	b.globalValues = b.globalValues[:0]
	b.constants = b.constants[:0]
	b.jumpTables = b.jumpTables[:0]
	b.aggregates = b.aggregates[:0]

	b.nextValueID = 0
	b.nextInstructionID = 0
	b.valueTypes = b.valueTypes[:0]
	b.refCounts = b.refCounts[:0]
	b.reversePostOrderedBasicBlocks = b.reversePostOrderedBasicBlocks[:0]
	b.cfgDone = false
}

// SetSignature implements Builder.SetSignature.
func (b *builder) SetSignature(sig *Signature) {
	b.signature = sig
}

// Signature implements Builder.Signature.
func (b *builder) Signature() *Signature {
	return b.signature
}

// AllocateBasicBlock implements Builder.AllocateBasicBlock.
func (b *builder) AllocateBasicBlock() BasicBlock {
	id := BasicBlockID(len(b.basicBlocksView))
	blk := b.basicBlocksPool.allocate()
	blk.reset()
	blk.id = id
	b.basicBlocksView = append(b.basicBlocksView, blk)
	return blk
}

// CurrentBlock implements Builder.CurrentBlock.
func (b *builder) CurrentBlock() BasicBlock {
	return b.currentBB
}

// SetCurrentBlock implements Builder.SetCurrentBlock.
func (b *builder) SetCurrentBlock(bb BasicBlock) {
	b.currentBB = bb.(*basicBlock)
}

// AllocateInstruction implements Builder.AllocateInstruction.
func (b *builder) AllocateInstruction() *Instruction {
	instr := b.instructionsPool.allocate()
	instr.reset()
	instr.id = b.nextInstructionID
	b.nextInstructionID++
	return instr
}

// InsertInstruction implements Builder.InsertInstruction.
func (b *builder) InsertInstruction(instr *Instruction) {
	b.currentBB.insertInstruction(instr)

	resultTypesFn := instructionReturnTypes[instr.opcode]
	if resultTypesFn == nil {
		panic("TODO: " + instr.Format())
	}

	t1, ts := resultTypesFn(b, instr)
	if t1.invalid() {
		return
	}

	r1 := b.allocateValue(t1)
	instr.rValue = r1

	tsl := len(ts)
	if tsl == 0 {
		return
	}
	rValues := make([]Value, tsl)
	for i := 0; i < tsl; i++ {
		rValues[i] = b.allocateValue(ts[i])
	}
	instr.rValues = rValues
}

// DeclareSignature implements Builder.DeclareSignature.
func (b *builder) DeclareSignature(s *Signature) SigRef {
	ref := b.nextSignature
	cloned := s.clone()
	cloned.ID = ref
	b.signatures[ref] = cloned
	b.nextSignature++
	return ref
}

// ResolveSignature implements Builder.ResolveSignature.
func (b *builder) ResolveSignature(ref SigRef) *Signature {
	sig, ok := b.signatures[ref]
	if !ok {
		panic("BUG: unknown signature " + ref.String())
	}
	return sig
}

// DeclareFunction implements Builder.DeclareFunction.
func (b *builder) DeclareFunction(name string, sig SigRef) FuncRef {
	ref := FuncRef(len(b.funcRefNames))
	b.funcRefNames = append(b.funcRefNames, name)
	b.funcRefSigs = append(b.funcRefSigs, sig)
	return ref
}

// FunctionData implements Builder.FunctionData.
func (b *builder) FunctionData(ref FuncRef) (string, SigRef) {
	return b.funcRefNames[ref], b.funcRefSigs[ref]
}

// DeclareStackSlot implements Builder.DeclareStackSlot.
func (b *builder) DeclareStackSlot(size, align uint32) StackSlot {
	slot := StackSlot(len(b.stackSlots))
	b.stackSlots = append(b.stackSlots, StackSlotData{Size: size, Align: align})
	return slot
}

// StackSlotData implements Builder.StackSlotData.
func (b *builder) StackSlotData(slot StackSlot) StackSlotData {
	return b.stackSlots[slot]
}

// StackSlots implements Builder.StackSlots.
func (b *builder) StackSlots() int {
	return len(b.stackSlots)
}

// DeclareGlobalValue implements Builder.DeclareGlobalValue.
func (b *builder) DeclareGlobalValue(name string, tls bool) GlobalValue {
	gv := GlobalValue(len(b.globalValues))
	b.globalValues = append(b.globalValues, GlobalValueData{Name: name, TLS: tls})
	return gv
}

// GlobalValueData implements Builder.GlobalValueData.
func (b *builder) GlobalValueData(gv GlobalValue) GlobalValueData {
	return b.globalValues[gv]
}

// DeclareConstant implements Builder.DeclareConstant.
func (b *builder) DeclareConstant(data []byte) Constant {
	c := Constant(len(b.constants))
	b.constants = append(b.constants, ConstantData{Data: append([]byte(nil), data...)})
	return c
}

// ConstantValue implements Builder.ConstantValue.
func (b *builder) ConstantValue(c Constant) []byte {
	return b.constants[c].Data
}

// DeclareJumpTable implements Builder.DeclareJumpTable.
func (b *builder) DeclareJumpTable(targets []BasicBlock) JumpTable {
	jt := JumpTable(len(b.jumpTables))
	b.jumpTables = append(b.jumpTables, append([]BasicBlock(nil), targets...))
	return jt
}

// ResolveJumpTable implements Builder.ResolveJumpTable.
func (b *builder) ResolveJumpTable(jt JumpTable) []BasicBlock {
	return b.jumpTables[jt]
}

// allocateValue implements Builder.allocateValue.
func (b *builder) allocateValue(typ Type) (v Value) {
	v = Value(b.nextValueID)
	v = v.setType(typ)
	b.valueTypes = append(b.valueTypes, typ)
	b.nextValueID++
	return
}

// ValueType returns the type of the given value.
func (b *builder) ValueType(v Value) Type {
	return b.valueTypes[v.ID()]
}

// EntryBlock implements Builder.EntryBlock.
func (b *builder) EntryBlock() BasicBlock {
	if len(b.basicBlocksView) == 0 {
		panic("BUG: no blocks allocated")
	}
	return b.basicBlocksView[0]
}

// Blocks implements Builder.Blocks.
func (b *builder) Blocks() int {
	return len(b.basicBlocksView)
}

// Block implements Builder.Block.
func (b *builder) Block(id BasicBlockID) BasicBlock {
	return b.basicBlocksView[id]
}

// BlockIteratorBegin implements Builder.BlockIteratorBegin.
func (b *builder) BlockIteratorBegin() BasicBlock {
	b.blockIterCur = 0
	return b.blockIteratorNext(b.basicBlocksView)
}

// BlockIteratorNext implements Builder.BlockIteratorNext.
func (b *builder) BlockIteratorNext() BasicBlock {
	return b.blockIteratorNext(b.basicBlocksView)
}

// BlockIteratorReversePostOrderBegin implements Builder.BlockIteratorReversePostOrderBegin.
func (b *builder) BlockIteratorReversePostOrderBegin() BasicBlock {
	if !b.cfgDone {
		panic("BUG: LayoutCFG has not run")
	}
	b.blockIterCur = 0
	return b.blockIteratorNext(b.reversePostOrderedBasicBlocks)
}

// BlockIteratorReversePostOrderNext implements Builder.BlockIteratorReversePostOrderNext.
func (b *builder) BlockIteratorReversePostOrderNext() BasicBlock {
	return b.blockIteratorNext(b.reversePostOrderedBasicBlocks)
}

func (b *builder) blockIteratorNext(view []*basicBlock) BasicBlock {
	if b.blockIterCur >= len(view) {
		return nil
	}
	blk := view[b.blockIterCur]
	b.blockIterCur++
	return blk
}

// AssignGroupIDs implements Builder.AssignGroupIDs. A new group begins after
// every side-effecting instruction, so two instructions share a group only
// when nothing with observable effects lies between them.
func (b *builder) AssignGroupIDs() {
	var gid InstructionGroupID
	for _, blk := range b.basicBlocksView {
		for cur := blk.rootInstr; cur != nil; cur = cur.next {
			cur.gid = gid
			if cur.sideEffect() == sideEffectStrict {
				gid++
			}
		}
		// Block boundaries always begin a new group.
		gid++
	}
}

// ValueRefCounts implements Builder.ValueRefCounts.
func (b *builder) ValueRefCounts() []uint32 {
	if cap(b.refCounts) < int(b.nextValueID) {
		b.refCounts = make([]uint32, b.nextValueID)
	}
	b.refCounts = b.refCounts[:b.nextValueID]
	for i := range b.refCounts {
		b.refCounts[i] = 0
	}
	for _, blk := range b.basicBlocksView {
		for cur := blk.rootInstr; cur != nil; cur = cur.next {
			v1, v2, v3, vs := cur.Args()
			for _, v := range []Value{v1, v2, v3} {
				if v.Valid() {
					b.refCounts[v.ID()]++
				}
			}
			for _, v := range vs {
				b.refCounts[v.ID()]++
			}
		}
	}
	return b.refCounts
}

// Format implements Builder.Format.
func (b *builder) Format() string {
	str := strings.Builder{}
	if b.signature != nil {
		str.WriteString("signature: " + b.signature.String() + "\n")
	}
	for _, blk := range b.basicBlocksView {
		str.WriteString(blk.FormatHeader())
		str.WriteByte('\n')
		for cur := blk.rootInstr; cur != nil; cur = cur.next {
			str.WriteByte('\t')
			str.WriteString(cur.Format())
			str.WriteByte('\n')
		}
	}
	return str.String()
}

var _ = fmt.Stringer(BasicBlockID(0))

func f32ToBits(f float32) uint32 {
	return math.Float32bits(f)
}

func f64ToBits(f float64) uint64 {
	return math.Float64bits(f)
}
