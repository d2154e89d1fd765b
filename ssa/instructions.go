package ssa

import (
	"fmt"
)

// Opcode represents a SSA instruction.
type Opcode uint32

// Instruction represents an instruction whose opcode is specified by
// Opcode. Since Go doesn't have union type, we use this flattened type
// for all instructions, and therefore each field has different meaning
// depending on Opcode.
type Instruction struct {
	id         InstructionID
	opcode     Opcode
	u1, u2     uint64
	v          Value
	v2         Value
	v3         Value
	vs         []Value
	typ        Type
	blk        BasicBlock
	blk2       BasicBlock
	targets    []BasicBlock
	prev, next *Instruction

	rValue  Value
	rValues []Value
	gid     InstructionGroupID
}

// ID returns the unique identifier of this instruction within its function.
func (i *Instruction) ID() InstructionID {
	return i.id
}

// Opcode returns the opcode of this instruction.
func (i *Instruction) Opcode() Opcode {
	return i.opcode
}

// GroupID returns the InstructionGroupID of this instruction.
func (i *Instruction) GroupID() InstructionGroupID {
	return i.gid
}

// reset resets this instruction to the initial state.
func (i *Instruction) reset() {
	id := i.id
	*i = Instruction{}
	i.id = id
	i.v = ValueInvalid
	i.v2 = ValueInvalid
	i.v3 = ValueInvalid
	i.rValue = ValueInvalid
	i.typ = typeInvalid
}

// InstructionGroupID is assigned to each instruction and represents a
// group of instructions in which only the boundaries carry side effects.
// Two instructions can only be merged during lowering when they belong to
// the same group; a side-effecting instruction between them would have
// forced different group IDs.
type InstructionGroupID uint32

// Returns Value(s) produced by this instruction if any.
// The `first` is the first return value, and `rest` is the rest of the values.
func (i *Instruction) Returns() (first Value, rest []Value) {
	return i.rValue, i.rValues
}

// Return returns a Value produced by this instruction if any.
// If there are multiple return values, only the first one is returned.
func (i *Instruction) Return() (first Value) {
	return i.rValue
}

// Args returns the arguments to this instruction.
func (i *Instruction) Args() (v1, v2, v3 Value, vs []Value) {
	return i.v, i.v2, i.v3, i.vs
}

// Arg returns the first argument to this instruction.
func (i *Instruction) Arg() Value {
	return i.v
}

// Arg2 returns the first two arguments to this instruction.
func (i *Instruction) Arg2() (Value, Value) {
	return i.v, i.v2
}

// Arg3 returns the first three arguments to this instruction.
func (i *Instruction) Arg3() (Value, Value, Value) {
	return i.v, i.v2, i.v3
}

// Next returns the next instruction laid out next to itself.
func (i *Instruction) Next() *Instruction {
	return i.next
}

// Prev returns the previous instruction laid out prior to itself.
func (i *Instruction) Prev() *Instruction {
	return i.prev
}

// IsBranching returns true if this instruction transfers control to another
// block.
func (i *Instruction) IsBranching() bool {
	switch i.opcode {
	case OpcodeJump, OpcodeBrz, OpcodeBrnz, OpcodeBrTable, OpcodeTryCall:
		return true
	default:
		return false
	}
}

// IsTerminator returns true if this instruction is a block terminator:
// the last instruction of a block. Conditional branches are not
// terminators; they may only appear immediately before one.
func (i *Instruction) IsTerminator() bool {
	switch i.opcode {
	case OpcodeJump, OpcodeBrTable, OpcodeReturn, OpcodeTryCall, OpcodeTrap:
		return true
	default:
		return false
	}
}

const (
	OpcodeInvalid Opcode = iota

	// OpcodeUndefined is a placeholder for undefined opcode.
	OpcodeUndefined

	// OpcodeJump takes the list of args to the `block` and unconditionally jumps to it.
	OpcodeJump

	// OpcodeBrz branches into `blk` with `args` if the value `c` equals zero: `Brz c, blk, args`.
	OpcodeBrz

	// OpcodeBrnz branches into `blk` with `args` if the value `c` is not zero: `Brnz c, blk, args`.
	OpcodeBrnz

	// OpcodeBrTable takes the index value `index` and branches into `targets[index]`,
	// or the last entry when the index is out of range: `BrTable index, [...targets]`.
	OpcodeBrTable

	// OpcodeReturn returns from the function: `return rvalues`.
	OpcodeReturn

	// OpcodeCall calls a function specified by FuncRef with arguments `args`:
	// `returnvals = Call FN, args...`.
	OpcodeCall

	// OpcodeCallIndirect calls a function through the address `callee`:
	// `returnvals = call_indirect SIG, callee, args`.
	OpcodeCallIndirect

	// OpcodeTryCall calls FN like OpcodeCall, then transfers control to the
	// normal successor; if the callee raises, the runtime unwinder enters
	// the exception successor instead. Always a block terminator.
	OpcodeTryCall

	// OpcodeTrap aborts execution with the given trap code. A terminator.
	OpcodeTrap

	// OpcodeTrapz aborts execution with the given trap code if `c` is zero.
	OpcodeTrapz

	// OpcodeSequencePoint records a source position for the next emitted
	// machine instruction.
	OpcodeSequencePoint

	// OpcodeLoad loads a Type value from the [base + offset] address: `v = Load base, offset`.
	OpcodeLoad

	// OpcodeStore stores a Type value to the [base + offset] address: `Store v, base, offset`.
	OpcodeStore

	// OpcodeUload8 loads an 8-bit value, zero-extended: `v = Uload8 base, offset`.
	OpcodeUload8

	// OpcodeSload8 loads an 8-bit value, sign-extended: `v = Sload8 base, offset`.
	OpcodeSload8

	// OpcodeIstore8 stores the low 8 bits of the value: `Istore8 v, base, offset`.
	OpcodeIstore8

	// OpcodeUload16 loads a 16-bit value, zero-extended: `v = Uload16 base, offset`.
	OpcodeUload16

	// OpcodeSload16 loads a 16-bit value, sign-extended: `v = Sload16 base, offset`.
	OpcodeSload16

	// OpcodeIstore16 stores the low 16 bits of the value: `Istore16 v, base, offset`.
	OpcodeIstore16

	// OpcodeUload32 loads a 32-bit value, zero-extended: `v = Uload32 base, offset`.
	OpcodeUload32

	// OpcodeSload32 loads a 32-bit value, sign-extended: `v = Sload32 base, offset`.
	OpcodeSload32

	// OpcodeIstore32 stores the low 32 bits of the value: `Istore32 v, base, offset`.
	OpcodeIstore32

	// OpcodeStackLoad loads from a declared stack slot: `v = StackLoad ss, offset`.
	OpcodeStackLoad

	// OpcodeStackStore stores to a declared stack slot: `StackStore v, ss, offset`.
	OpcodeStackStore

	// OpcodeStackAddr materializes the address of a stack slot: `v = StackAddr ss, offset`.
	OpcodeStackAddr

	// OpcodeGlobalAddr materializes the address of a global value via
	// relocations: `v = GlobalAddr gv`.
	OpcodeGlobalAddr

	// OpcodeFuncAddr materializes the address of a declared function:
	// `v = FuncAddr fn`.
	OpcodeFuncAddr

	// OpcodeIconst represents the integer const.
	OpcodeIconst

	// OpcodeF32const represents the single-precision const.
	OpcodeF32const

	// OpcodeF64const represents the double-precision const.
	OpcodeF64const

	// OpcodeVconst represents a vector const from the constant pool.
	OpcodeVconst

	// OpcodeIcmp compares two integer values with the given condition: `v = icmp Cond, x, y`.
	OpcodeIcmp

	// OpcodeIcmpImm compares an integer value with an immediate: `v = icmp_imm Cond, x, Y`.
	OpcodeIcmpImm

	// OpcodeFcmp compares two floating point values: `v = fcmp Cond, x, y`.
	OpcodeFcmp

	// OpcodeIadd performs an integer addition: `v = Iadd x, y`.
	OpcodeIadd

	// OpcodeIsub performs an integer subtraction: `v = Isub x, y`.
	OpcodeIsub

	// OpcodeImul performs an integer multiplication: `v = Imul x, y`.
	OpcodeImul

	// OpcodeUmulh computes the high half of the unsigned 64x64 product: `v = umulh x, y`.
	OpcodeUmulh

	// OpcodeSmulh computes the high half of the signed 64x64 product: `v = smulh x, y`.
	OpcodeSmulh

	// OpcodeUdiv performs the unsigned integer division `v = Udiv x, y`; traps on zero divisor.
	OpcodeUdiv

	// OpcodeSdiv performs the signed integer division `v = Sdiv x, y`; traps on
	// zero divisor and on INT_MIN / -1 overflow.
	OpcodeSdiv

	// OpcodeUrem computes the remainder of the unsigned division `v = Urem x, y`.
	OpcodeUrem

	// OpcodeSrem computes the remainder of the signed division `v = Srem x, y`.
	OpcodeSrem

	// OpcodeIaddImm adds an immediate: `v = iadd_imm x, Y`.
	OpcodeIaddImm

	// OpcodeBand computes a bitwise and: `v = band x, y`.
	OpcodeBand

	// OpcodeBor computes a bitwise or: `v = bor x, y`.
	OpcodeBor

	// OpcodeBxor computes a bitwise xor: `v = bxor x, y`.
	OpcodeBxor

	// OpcodeBnot computes a bitwise not: `v = bnot x`.
	OpcodeBnot

	// OpcodeBandImm ands with an immediate: `v = band_imm x, Y`.
	OpcodeBandImm

	// OpcodeBorImm ors with an immediate: `v = bor_imm x, Y`.
	OpcodeBorImm

	// OpcodeBxorImm xors with an immediate: `v = bxor_imm x, Y`.
	OpcodeBxorImm

	// OpcodeRotl rotates left: `v = Rotl x, y`.
	OpcodeRotl

	// OpcodeRotr rotates right: `v = Rotr x, y`.
	OpcodeRotr

	// OpcodeIshl shifts left: `v = ishl x, y`.
	OpcodeIshl

	// OpcodeUshr shifts right logically: `v = ushr x, y`.
	OpcodeUshr

	// OpcodeSshr shifts right arithmetically: `v = sshr x, y`.
	OpcodeSshr

	// OpcodeIshlImm shifts left by an immediate: `v = ishl_imm x, Y`.
	OpcodeIshlImm

	// OpcodeUshrImm shifts right logically by an immediate: `v = ushr_imm x, Y`.
	OpcodeUshrImm

	// OpcodeSshrImm shifts right arithmetically by an immediate: `v = sshr_imm x, Y`.
	OpcodeSshrImm

	// OpcodeClz counts the number of leading zeros: `v = clz x`.
	OpcodeClz

	// OpcodeCtz counts the number of trailing zeros: `v = ctz x`.
	OpcodeCtz

	// OpcodePopcnt counts the number of 1-bits: `v = popcnt x`.
	OpcodePopcnt

	// OpcodeIneg negates an integer: `v = ineg x`.
	OpcodeIneg

	// OpcodeSelect chooses between two values based on a condition `c`: `v = Select c, x, y`.
	OpcodeSelect

	// OpcodeFadd performs a floating point addition: `v = Fadd x, y`.
	OpcodeFadd

	// OpcodeFsub performs a floating point subtraction: `v = Fsub x, y`.
	OpcodeFsub

	// OpcodeFmul performs a floating point multiplication: `v = Fmul x, y`.
	OpcodeFmul

	// OpcodeFdiv performs a floating point division: `v = Fdiv x, y`.
	OpcodeFdiv

	// OpcodeFma performs a fused multiply-add: `v = fma x, y, z` computing x*y+z.
	OpcodeFma

	// OpcodeFmin takes the minimum of two floating point values: `v = fmin x, y`.
	OpcodeFmin

	// OpcodeFmax takes the maximum of two floating point values: `v = fmax x, y`.
	OpcodeFmax

	// OpcodeFneg negates the given floating point value: `v = Fneg x`.
	OpcodeFneg

	// OpcodeFabs takes the absolute value of the given floating point value: `v = fabs x`.
	OpcodeFabs

	// OpcodeSqrt takes the square root of the given floating point value: `v = sqrt x`.
	OpcodeSqrt

	// OpcodeCeil takes the ceiling of the given floating point value: `v = ceil x`.
	OpcodeCeil

	// OpcodeFloor takes the floor of the given floating point value: `v = floor x`.
	OpcodeFloor

	// OpcodeTrunc takes the truncation of the given floating point value: `v = trunc x`.
	OpcodeTrunc

	// OpcodeNearest rounds to the nearest integer: `v = nearest x`.
	OpcodeNearest

	// OpcodeFcopysign copies the sign of y onto x: `v = fcopysign x, y`.
	OpcodeFcopysign

	// OpcodeUExtend zero-extends the given integer: `v = UExtend x, from->to`.
	OpcodeUExtend

	// OpcodeSExtend sign-extends the given integer: `v = SExtend x, from->to`.
	OpcodeSExtend

	// OpcodeIreduce narrows an integer to a smaller width: `v = ireduce x`.
	OpcodeIreduce

	// OpcodeFpromote promotes an f32 to f64: `v = Fpromote x`.
	OpcodeFpromote

	// OpcodeFdemote demotes an f64 to f32: `v = Fdemote x`.
	OpcodeFdemote

	// OpcodeFcvtToSint converts a floating point value to a signed integer: `v = FcvtToSint x`.
	OpcodeFcvtToSint

	// OpcodeFcvtToUint converts a floating point value to an unsigned integer: `v = FcvtToUint x`.
	OpcodeFcvtToUint

	// OpcodeFcvtFromSint converts a signed integer to a floating point value: `v = FcvtFromSint x`.
	OpcodeFcvtFromSint

	// OpcodeFcvtFromUint converts an unsigned integer to a floating point value: `v = FcvtFromUint x`.
	OpcodeFcvtFromUint

	// OpcodeBitcast reinterprets bits across classes of the same width: `v = bitcast x`.
	OpcodeBitcast

	// OpcodeIsplit splits an i128 into its low and high halves: `lo, hi = isplit x`.
	OpcodeIsplit

	// OpcodeIconcat builds an i128 from two i64 halves: `v = iconcat lo, hi`.
	OpcodeIconcat

	// OpcodeSplat broadcasts a scalar to all lanes: `v = splat x`.
	OpcodeSplat

	// OpcodeExtractLane extracts the lane Idx: `v = extractlane x, Idx`.
	OpcodeExtractLane

	// OpcodeInsertLane replaces the lane Idx: `v = insertlane x, y, Idx`.
	OpcodeInsertLane

	// OpcodeVIadd performs a lane-wise integer addition: `v = VIadd x, y`.
	OpcodeVIadd

	// OpcodeVIsub performs a lane-wise integer subtraction: `v = VIsub x, y`.
	OpcodeVIsub

	// OpcodeVband computes bitwise and of two vectors: `v = vband x, y`.
	OpcodeVband

	// OpcodeVbor computes bitwise or of two vectors: `v = vbor x, y`.
	OpcodeVbor

	// OpcodeVbxor computes bitwise xor of two vectors: `v = vbxor x, y`.
	OpcodeVbxor

	// OpcodeAtomicLoad loads with acquire ordering: `v = atomic_load p`.
	OpcodeAtomicLoad

	// OpcodeAtomicStore stores with release ordering: `atomic_store x, p`.
	OpcodeAtomicStore

	// OpcodeAtomicRmw performs an atomic read-modify-write:
	// `v = atomic_rmw Op, p, x`.
	OpcodeAtomicRmw

	// OpcodeAtomicCas performs an atomic compare-and-swap:
	// `v = atomic_cas p, expected, replacement`.
	OpcodeAtomicCas

	// OpcodeFence is a full memory barrier: `fence`.
	OpcodeFence

	// opcodeEnd marks the end of the opcode list.
	opcodeEnd
)

// returnTypesFn provides the info to determine the type of instruction.
// t1 is the type of the first result, ts are the types of the remaining results.
type returnTypesFn func(b *builder, instr *Instruction) (t1 Type, ts []Type)

var (
	returnTypesFnNoReturns returnTypesFn = func(b *builder, instr *Instruction) (t1 Type, ts []Type) { return typeInvalid, nil }
	returnTypesFnSingle                  = func(b *builder, instr *Instruction) (t1 Type, ts []Type) { return instr.typ, nil }
	returnTypesFnI32                     = func(b *builder, instr *Instruction) (t1 Type, ts []Type) { return TypeI32, nil }
	returnTypesFnF32                     = func(b *builder, instr *Instruction) (t1 Type, ts []Type) { return TypeF32, nil }
	returnTypesFnF64                     = func(b *builder, instr *Instruction) (t1 Type, ts []Type) { return TypeF64, nil }
	returnTypesFnPtr                     = func(b *builder, instr *Instruction) (t1 Type, ts []Type) { return TypePtr, nil }
	returnTypesFnCall                    = func(b *builder, instr *Instruction) (t1 Type, ts []Type) {
		sig := b.ResolveSignature(SigRef(instr.u2))
		switch len(sig.Results) {
		case 0:
			t1 = typeInvalid
		case 1:
			t1 = sig.Results[0]
		default:
			t1, ts = sig.Results[0], sig.Results[1:]
		}
		return
	}
)

// sideEffect provides the info to determine if an instruction has side effects which
// is used to determine if it can be optimized out, interchanged with others, etc.
type sideEffect byte

const (
	sideEffectUnknown sideEffect = iota
	// sideEffectStrict represents an instruction with side effects, and should be always alive plus cannot be reordered.
	sideEffectStrict
	// sideEffectTraps represents an instruction that can trap, and should be always alive but can be reordered within the group.
	sideEffectTraps
	// sideEffectNone represents an instruction without side effects, and can be eliminated if the result is not used, plus can be reordered within the group.
	sideEffectNone
)

// instructionSideEffects provides the info to determine if an instruction has side effects.
// Instructions with side effects must not be eliminated regardless whether the result is used or not.
var instructionSideEffects = [opcodeEnd]sideEffect{
	OpcodeUndefined:     sideEffectStrict,
	OpcodeJump:          sideEffectStrict,
	OpcodeBrz:           sideEffectStrict,
	OpcodeBrnz:          sideEffectStrict,
	OpcodeBrTable:       sideEffectStrict,
	OpcodeReturn:        sideEffectStrict,
	OpcodeCall:          sideEffectStrict,
	OpcodeCallIndirect:  sideEffectStrict,
	OpcodeTryCall:       sideEffectStrict,
	OpcodeTrap:          sideEffectStrict,
	OpcodeTrapz:         sideEffectStrict,
	OpcodeSequencePoint: sideEffectStrict,
	OpcodeStore:         sideEffectStrict,
	OpcodeIstore8:       sideEffectStrict,
	OpcodeIstore16:      sideEffectStrict,
	OpcodeIstore32:      sideEffectStrict,
	OpcodeStackStore:    sideEffectStrict,
	OpcodeAtomicLoad:    sideEffectStrict,
	OpcodeAtomicStore:   sideEffectStrict,
	OpcodeAtomicRmw:     sideEffectStrict,
	OpcodeAtomicCas:     sideEffectStrict,
	OpcodeFence:         sideEffectStrict,
	OpcodeUdiv:          sideEffectTraps,
	OpcodeSdiv:          sideEffectTraps,
	OpcodeUrem:          sideEffectTraps,
	OpcodeSrem:          sideEffectTraps,
	OpcodeFcvtToSint:    sideEffectTraps,
	OpcodeFcvtToUint:    sideEffectTraps,

	OpcodeIconst:       sideEffectNone,
	OpcodeF32const:     sideEffectNone,
	OpcodeF64const:     sideEffectNone,
	OpcodeVconst:       sideEffectNone,
	OpcodeLoad:         sideEffectNone,
	OpcodeUload8:       sideEffectNone,
	OpcodeSload8:       sideEffectNone,
	OpcodeUload16:      sideEffectNone,
	OpcodeSload16:      sideEffectNone,
	OpcodeUload32:      sideEffectNone,
	OpcodeSload32:      sideEffectNone,
	OpcodeStackLoad:    sideEffectNone,
	OpcodeStackAddr:    sideEffectNone,
	OpcodeGlobalAddr:   sideEffectNone,
	OpcodeFuncAddr:     sideEffectNone,
	OpcodeIcmp:         sideEffectNone,
	OpcodeIcmpImm:      sideEffectNone,
	OpcodeFcmp:         sideEffectNone,
	OpcodeIadd:         sideEffectNone,
	OpcodeIsub:         sideEffectNone,
	OpcodeImul:         sideEffectNone,
	OpcodeUmulh:        sideEffectNone,
	OpcodeSmulh:        sideEffectNone,
	OpcodeIaddImm:      sideEffectNone,
	OpcodeBand:         sideEffectNone,
	OpcodeBor:          sideEffectNone,
	OpcodeBxor:         sideEffectNone,
	OpcodeBnot:         sideEffectNone,
	OpcodeBandImm:      sideEffectNone,
	OpcodeBorImm:       sideEffectNone,
	OpcodeBxorImm:      sideEffectNone,
	OpcodeRotl:         sideEffectNone,
	OpcodeRotr:         sideEffectNone,
	OpcodeIshl:         sideEffectNone,
	OpcodeUshr:         sideEffectNone,
	OpcodeSshr:         sideEffectNone,
	OpcodeIshlImm:      sideEffectNone,
	OpcodeUshrImm:      sideEffectNone,
	OpcodeSshrImm:      sideEffectNone,
	OpcodeClz:          sideEffectNone,
	OpcodeCtz:          sideEffectNone,
	OpcodePopcnt:       sideEffectNone,
	OpcodeIneg:         sideEffectNone,
	OpcodeSelect:       sideEffectNone,
	OpcodeFadd:         sideEffectNone,
	OpcodeFsub:         sideEffectNone,
	OpcodeFmul:         sideEffectNone,
	OpcodeFdiv:         sideEffectNone,
	OpcodeFma:          sideEffectNone,
	OpcodeFmin:         sideEffectNone,
	OpcodeFmax:         sideEffectNone,
	OpcodeFneg:         sideEffectNone,
	OpcodeFabs:         sideEffectNone,
	OpcodeSqrt:         sideEffectNone,
	OpcodeCeil:         sideEffectNone,
	OpcodeFloor:        sideEffectNone,
	OpcodeTrunc:        sideEffectNone,
	OpcodeNearest:      sideEffectNone,
	OpcodeFcopysign:    sideEffectNone,
	OpcodeUExtend:      sideEffectNone,
	OpcodeSExtend:      sideEffectNone,
	OpcodeIreduce:      sideEffectNone,
	OpcodeFpromote:     sideEffectNone,
	OpcodeFdemote:      sideEffectNone,
	OpcodeFcvtFromSint: sideEffectNone,
	OpcodeFcvtFromUint: sideEffectNone,
	OpcodeBitcast:      sideEffectNone,
	OpcodeIsplit:       sideEffectNone,
	OpcodeIconcat:      sideEffectNone,
	OpcodeSplat:        sideEffectNone,
	OpcodeExtractLane:  sideEffectNone,
	OpcodeInsertLane:   sideEffectNone,
	OpcodeVIadd:        sideEffectNone,
	OpcodeVIsub:        sideEffectNone,
	OpcodeVband:        sideEffectNone,
	OpcodeVbor:         sideEffectNone,
	OpcodeVbxor:        sideEffectNone,
}

// sideEffect returns the side-effect class of this instruction.
func (i *Instruction) sideEffect() sideEffect {
	if e := instructionSideEffects[i.opcode]; e == sideEffectUnknown {
		panic("BUG: side effect info not registered for " + i.opcode.String())
	} else {
		return e
	}
}

// HasSideEffect returns true if this instruction observes or mutates state
// beyond its results. Side-effecting instructions are fixed in block order
// and must never be sunk into a consumer during lowering.
func (i *Instruction) HasSideEffect() bool {
	return i.sideEffect() != sideEffectNone
}

// instructionReturnTypes provides the function to determine the return types of an instruction.
var instructionReturnTypes = [opcodeEnd]returnTypesFn{
	OpcodeUndefined:     returnTypesFnNoReturns,
	OpcodeJump:          returnTypesFnNoReturns,
	OpcodeBrz:           returnTypesFnNoReturns,
	OpcodeBrnz:          returnTypesFnNoReturns,
	OpcodeBrTable:       returnTypesFnNoReturns,
	OpcodeReturn:        returnTypesFnNoReturns,
	OpcodeTrap:          returnTypesFnNoReturns,
	OpcodeTrapz:         returnTypesFnNoReturns,
	OpcodeSequencePoint: returnTypesFnNoReturns,
	OpcodeStore:         returnTypesFnNoReturns,
	OpcodeIstore8:       returnTypesFnNoReturns,
	OpcodeIstore16:      returnTypesFnNoReturns,
	OpcodeIstore32:      returnTypesFnNoReturns,
	OpcodeStackStore:    returnTypesFnNoReturns,
	OpcodeAtomicStore:   returnTypesFnNoReturns,
	OpcodeFence:         returnTypesFnNoReturns,

	OpcodeCall:         returnTypesFnCall,
	OpcodeCallIndirect: returnTypesFnCall,
	OpcodeTryCall:      returnTypesFnCall,

	OpcodeIconst:       returnTypesFnSingle,
	OpcodeF32const:     returnTypesFnF32,
	OpcodeF64const:     returnTypesFnF64,
	OpcodeVconst:       returnTypesFnSingle,
	OpcodeLoad:         returnTypesFnSingle,
	OpcodeUload8:       returnTypesFnSingle,
	OpcodeSload8:       returnTypesFnSingle,
	OpcodeUload16:      returnTypesFnSingle,
	OpcodeSload16:      returnTypesFnSingle,
	OpcodeUload32:      returnTypesFnSingle,
	OpcodeSload32:      returnTypesFnSingle,
	OpcodeStackLoad:    returnTypesFnSingle,
	OpcodeStackAddr:    returnTypesFnPtr,
	OpcodeGlobalAddr:   returnTypesFnPtr,
	OpcodeFuncAddr:     returnTypesFnPtr,
	OpcodeIcmp:         returnTypesFnI32,
	OpcodeIcmpImm:      returnTypesFnI32,
	OpcodeFcmp:         returnTypesFnI32,
	OpcodeIadd:         returnTypesFnSingle,
	OpcodeIsub:         returnTypesFnSingle,
	OpcodeImul:         returnTypesFnSingle,
	OpcodeUmulh:        returnTypesFnSingle,
	OpcodeSmulh:        returnTypesFnSingle,
	OpcodeUdiv:         returnTypesFnSingle,
	OpcodeSdiv:         returnTypesFnSingle,
	OpcodeUrem:         returnTypesFnSingle,
	OpcodeSrem:         returnTypesFnSingle,
	OpcodeIaddImm:      returnTypesFnSingle,
	OpcodeBand:         returnTypesFnSingle,
	OpcodeBor:          returnTypesFnSingle,
	OpcodeBxor:         returnTypesFnSingle,
	OpcodeBnot:         returnTypesFnSingle,
	OpcodeBandImm:      returnTypesFnSingle,
	OpcodeBorImm:       returnTypesFnSingle,
	OpcodeBxorImm:      returnTypesFnSingle,
	OpcodeRotl:         returnTypesFnSingle,
	OpcodeRotr:         returnTypesFnSingle,
	OpcodeIshl:         returnTypesFnSingle,
	OpcodeUshr:         returnTypesFnSingle,
	OpcodeSshr:         returnTypesFnSingle,
	OpcodeIshlImm:      returnTypesFnSingle,
	OpcodeUshrImm:      returnTypesFnSingle,
	OpcodeSshrImm:      returnTypesFnSingle,
	OpcodeClz:          returnTypesFnSingle,
	OpcodeCtz:          returnTypesFnSingle,
	OpcodePopcnt:       returnTypesFnSingle,
	OpcodeIneg:         returnTypesFnSingle,
	OpcodeSelect:       returnTypesFnSingle,
	OpcodeFadd:         returnTypesFnSingle,
	OpcodeFsub:         returnTypesFnSingle,
	OpcodeFmul:         returnTypesFnSingle,
	OpcodeFdiv:         returnTypesFnSingle,
	OpcodeFma:          returnTypesFnSingle,
	OpcodeFmin:         returnTypesFnSingle,
	OpcodeFmax:         returnTypesFnSingle,
	OpcodeFneg:         returnTypesFnSingle,
	OpcodeFabs:         returnTypesFnSingle,
	OpcodeSqrt:         returnTypesFnSingle,
	OpcodeCeil:         returnTypesFnSingle,
	OpcodeFloor:        returnTypesFnSingle,
	OpcodeTrunc:        returnTypesFnSingle,
	OpcodeNearest:      returnTypesFnSingle,
	OpcodeFcopysign:    returnTypesFnSingle,
	OpcodeUExtend:      returnTypesFnSingle,
	OpcodeSExtend:      returnTypesFnSingle,
	OpcodeIreduce:      returnTypesFnSingle,
	OpcodeFpromote:     returnTypesFnF64,
	OpcodeFdemote:      returnTypesFnF32,
	OpcodeFcvtToSint:   returnTypesFnSingle,
	OpcodeFcvtToUint:   returnTypesFnSingle,
	OpcodeFcvtFromSint: returnTypesFnSingle,
	OpcodeFcvtFromUint: returnTypesFnSingle,
	OpcodeBitcast:      returnTypesFnSingle,
	OpcodeIsplit: func(b *builder, instr *Instruction) (t1 Type, ts []Type) {
		return TypeI64, []Type{TypeI64}
	},
	OpcodeIconcat:     returnTypesFnSingle,
	OpcodeSplat:       returnTypesFnSingle,
	OpcodeExtractLane: returnTypesFnSingle,
	OpcodeInsertLane:  returnTypesFnSingle,
	OpcodeVIadd:       returnTypesFnSingle,
	OpcodeVIsub:       returnTypesFnSingle,
	OpcodeVband:       returnTypesFnSingle,
	OpcodeVbor:        returnTypesFnSingle,
	OpcodeVbxor:       returnTypesFnSingle,
	OpcodeAtomicLoad:  returnTypesFnSingle,
	OpcodeAtomicRmw:   returnTypesFnSingle,
	OpcodeAtomicCas:   returnTypesFnSingle,
}

// AsLoad initializes this instruction as a load instruction with OpcodeLoad.
func (i *Instruction) AsLoad(ptr Value, offset uint32, typ Type) *Instruction {
	i.opcode = OpcodeLoad
	i.v = ptr
	i.u1 = uint64(offset)
	i.typ = typ
	return i
}

// AsExtLoad initializes this instruction as an extending load.
func (i *Instruction) AsExtLoad(op Opcode, ptr Value, offset uint32, dst64bit bool) *Instruction {
	i.opcode = op
	i.v = ptr
	i.u1 = uint64(offset)
	if dst64bit {
		i.typ = TypeI64
	} else {
		i.typ = TypeI32
	}
	return i
}

// LoadData returns the operands for a load instruction.
func (i *Instruction) LoadData() (ptr Value, offset uint32, typ Type) {
	return i.v, uint32(i.u1), i.typ
}

// AsStore initializes this instruction as a store instruction.
func (i *Instruction) AsStore(storeOp Opcode, value, ptr Value, offset uint32) *Instruction {
	i.opcode = storeOp
	i.v = value
	i.v2 = ptr

	var dstSize uint64
	switch storeOp {
	case OpcodeStore:
		dstSize = uint64(value.Type().Bits())
	case OpcodeIstore8:
		dstSize = 8
	case OpcodeIstore16:
		dstSize = 16
	case OpcodeIstore32:
		dstSize = 32
	default:
		panic("invalid store opcode " + storeOp.String())
	}
	i.u1 = uint64(offset) | dstSize<<32
	return i
}

// StoreData returns the operands for a store instruction.
func (i *Instruction) StoreData() (value, ptr Value, offset uint32, storeSizeInBits byte) {
	return i.v, i.v2, uint32(i.u1), byte(i.u1 >> 32)
}

// AsStackLoad initializes this instruction as a load from a stack slot.
func (i *Instruction) AsStackLoad(slot StackSlot, offset uint32, typ Type) *Instruction {
	i.opcode = OpcodeStackLoad
	i.u1 = uint64(slot)
	i.u2 = uint64(offset)
	i.typ = typ
	return i
}

// AsStackStore initializes this instruction as a store to a stack slot.
func (i *Instruction) AsStackStore(value Value, slot StackSlot, offset uint32) *Instruction {
	i.opcode = OpcodeStackStore
	i.v = value
	i.u1 = uint64(slot)
	i.u2 = uint64(offset)
	return i
}

// AsStackAddr initializes this instruction as a stack-slot address
// materialization.
func (i *Instruction) AsStackAddr(slot StackSlot, offset uint32) *Instruction {
	i.opcode = OpcodeStackAddr
	i.u1 = uint64(slot)
	i.u2 = uint64(offset)
	i.typ = TypePtr
	return i
}

// StackSlotData returns the slot and offset of a stack access instruction.
func (i *Instruction) StackSlotData() (slot StackSlot, offset uint32) {
	return StackSlot(i.u1), uint32(i.u2)
}

// AsGlobalAddr initializes this instruction as a global address
// materialization.
func (i *Instruction) AsGlobalAddr(gv GlobalValue) *Instruction {
	i.opcode = OpcodeGlobalAddr
	i.u1 = uint64(gv)
	i.typ = TypePtr
	return i
}

// GlobalAddrData returns the referenced global value.
func (i *Instruction) GlobalAddrData() GlobalValue {
	return GlobalValue(i.u1)
}

// AsFuncAddr initializes this instruction as a function address
// materialization.
func (i *Instruction) AsFuncAddr(fn FuncRef) *Instruction {
	i.opcode = OpcodeFuncAddr
	i.u1 = uint64(fn)
	i.typ = TypePtr
	return i
}

// FuncAddrData returns the referenced function.
func (i *Instruction) FuncAddrData() FuncRef {
	return FuncRef(i.u1)
}

// AsIconst64 initializes this instruction as a 64-bit integer constant.
func (i *Instruction) AsIconst64(v uint64) *Instruction {
	i.opcode = OpcodeIconst
	i.typ = TypeI64
	i.u1 = v
	return i
}

// AsIconst32 initializes this instruction as a 32-bit integer constant.
func (i *Instruction) AsIconst32(v uint32) *Instruction {
	i.opcode = OpcodeIconst
	i.typ = TypeI32
	i.u1 = uint64(v)
	return i
}

// AsIconst initializes this instruction as an integer constant of the given
// type.
func (i *Instruction) AsIconst(v uint64, typ Type) *Instruction {
	i.opcode = OpcodeIconst
	i.typ = typ
	i.u1 = v
	return i
}

// AsF32const initializes this instruction as a 32-bit float constant.
func (i *Instruction) AsF32const(f float32) *Instruction {
	i.opcode = OpcodeF32const
	i.typ = TypeF32
	i.u1 = uint64(f32ToBits(f))
	return i
}

// AsF64const initializes this instruction as a 64-bit float constant.
func (i *Instruction) AsF64const(f float64) *Instruction {
	i.opcode = OpcodeF64const
	i.typ = TypeF64
	i.u1 = f64ToBits(f)
	return i
}

// AsVconst initializes this instruction as a vector constant referring to
// the function's constant pool.
func (i *Instruction) AsVconst(c Constant, typ Type) *Instruction {
	i.opcode = OpcodeVconst
	i.u1 = uint64(c)
	i.typ = typ
	return i
}

// ConstantData returns the payload of a constant instruction. For float
// constants the bits are the IEEE 754 representation.
func (i *Instruction) ConstantData() uint64 {
	return i.u1
}

// VconstData returns the pool entry of a vector constant.
func (i *Instruction) VconstData() Constant {
	return Constant(i.u1)
}

// AsBinary initializes this instruction as a two-operand arithmetic or
// bitwise instruction of the given opcode.
func (i *Instruction) AsBinary(op Opcode, x, y Value) *Instruction {
	i.opcode = op
	i.v = x
	i.v2 = y
	i.typ = x.Type()
	return i
}

// AsBinaryImm64 initializes this instruction as a binary instruction whose
// second operand is an immediate.
func (i *Instruction) AsBinaryImm64(op Opcode, x Value, imm uint64) *Instruction {
	i.opcode = op
	i.v = x
	i.u1 = imm
	i.typ = x.Type()
	return i
}

// BinaryImmData returns the operand and immediate of a binary-immediate
// instruction.
func (i *Instruction) BinaryImmData() (x Value, imm uint64) {
	return i.v, i.u1
}

// AsUnary initializes this instruction as a single-operand instruction of
// the given opcode.
func (i *Instruction) AsUnary(op Opcode, x Value) *Instruction {
	i.opcode = op
	i.v = x
	i.typ = x.Type()
	return i
}

// AsIcmp initializes this instruction as an integer comparison instruction with OpcodeIcmp.
func (i *Instruction) AsIcmp(x, y Value, c IntegerCmpCond) *Instruction {
	i.opcode = OpcodeIcmp
	i.v = x
	i.v2 = y
	i.u1 = uint64(c)
	i.typ = TypeI32
	return i
}

// AsIcmpImm initializes this instruction as an integer comparison against an
// immediate with OpcodeIcmpImm.
func (i *Instruction) AsIcmpImm(x Value, imm uint64, c IntegerCmpCond) *Instruction {
	i.opcode = OpcodeIcmpImm
	i.v = x
	i.u1 = uint64(c)
	i.u2 = imm
	i.typ = TypeI32
	return i
}

// AsFcmp initializes this instruction as a floating-point comparison instruction with OpcodeFcmp.
func (i *Instruction) AsFcmp(x, y Value, c FloatCmpCond) *Instruction {
	i.opcode = OpcodeFcmp
	i.v = x
	i.v2 = y
	i.u1 = uint64(c)
	i.typ = TypeI32
	return i
}

// IcmpData returns the operands and comparison condition of this integer comparison instruction.
func (i *Instruction) IcmpData() (x, y Value, c IntegerCmpCond) {
	return i.v, i.v2, IntegerCmpCond(i.u1)
}

// IcmpImmData returns the operand, immediate and condition of this
// immediate comparison.
func (i *Instruction) IcmpImmData() (x Value, imm uint64, c IntegerCmpCond) {
	return i.v, i.u2, IntegerCmpCond(i.u1)
}

// FcmpData returns the operands and comparison condition of this floating-point comparison instruction.
func (i *Instruction) FcmpData() (x, y Value, c FloatCmpCond) {
	return i.v, i.v2, FloatCmpCond(i.u1)
}

// AsSelect initializes this instruction as a select: `v = Select c, x, y`.
func (i *Instruction) AsSelect(c, x, y Value) *Instruction {
	i.opcode = OpcodeSelect
	i.v = c
	i.v2 = x
	i.v3 = y
	i.typ = x.Type()
	return i
}

// AsFma initializes this instruction as a fused multiply-add computing
// x*y + z.
func (i *Instruction) AsFma(x, y, z Value) *Instruction {
	i.opcode = OpcodeFma
	i.v = x
	i.v2 = y
	i.v3 = z
	i.typ = x.Type()
	return i
}

// AsExtend initializes this instruction as a zero- or sign-extension.
func (i *Instruction) AsExtend(x Value, fromBits, toBits byte, signed bool) *Instruction {
	if signed {
		i.opcode = OpcodeSExtend
	} else {
		i.opcode = OpcodeUExtend
	}
	i.v = x
	i.u1 = uint64(fromBits)
	i.u2 = uint64(toBits)
	if toBits == 64 {
		i.typ = TypeI64
	} else {
		i.typ = TypeI32
	}
	return i
}

// ExtendData returns the operand and widths of an extension.
func (i *Instruction) ExtendData() (x Value, fromBits, toBits byte, signed bool) {
	return i.v, byte(i.u1), byte(i.u2), i.opcode == OpcodeSExtend
}

// AsIreduce initializes this instruction as an integer narrowing.
func (i *Instruction) AsIreduce(x Value, to Type) *Instruction {
	i.opcode = OpcodeIreduce
	i.v = x
	i.typ = to
	return i
}

// AsBitcast initializes this instruction as a bit reinterpretation to the
// given type of the same width.
func (i *Instruction) AsBitcast(x Value, to Type) *Instruction {
	i.opcode = OpcodeBitcast
	i.v = x
	i.typ = to
	return i
}

// AsFcvt initializes this instruction as a float<->int conversion.
func (i *Instruction) AsFcvt(op Opcode, x Value, to Type) *Instruction {
	i.opcode = op
	i.v = x
	i.typ = to
	return i
}

// AsIsplit initializes this instruction as an i128 split.
func (i *Instruction) AsIsplit(x Value) *Instruction {
	i.opcode = OpcodeIsplit
	i.v = x
	i.typ = TypeI64
	return i
}

// AsIconcat initializes this instruction as an i128 concatenation.
func (i *Instruction) AsIconcat(lo, hi Value) *Instruction {
	i.opcode = OpcodeIconcat
	i.v = lo
	i.v2 = hi
	i.typ = TypeI128
	return i
}

// AsSplat initializes this instruction as a lane broadcast.
func (i *Instruction) AsSplat(x Value, typ Type) *Instruction {
	i.opcode = OpcodeSplat
	i.v = x
	i.typ = typ
	return i
}

// AsExtractLane initializes this instruction as a lane extraction.
func (i *Instruction) AsExtractLane(x Value, lane byte, signed bool) *Instruction {
	i.opcode = OpcodeExtractLane
	i.v = x
	i.u1 = uint64(lane)
	if signed {
		i.u2 = 1
	}
	i.typ = x.Type().LaneType()
	return i
}

// AsInsertLane initializes this instruction as a lane insertion.
func (i *Instruction) AsInsertLane(x, y Value, lane byte) *Instruction {
	i.opcode = OpcodeInsertLane
	i.v = x
	i.v2 = y
	i.u1 = uint64(lane)
	i.typ = x.Type()
	return i
}

// LaneData returns the lane index of a lane access instruction.
func (i *Instruction) LaneData() (lane byte, signed bool) {
	return byte(i.u1), i.u2 == 1
}

// AsVBinary initializes this instruction as a lane-wise vector binary
// instruction.
func (i *Instruction) AsVBinary(op Opcode, x, y Value) *Instruction {
	i.opcode = op
	i.v = x
	i.v2 = y
	i.typ = x.Type()
	return i
}

// AsAtomicLoad initializes this instruction as an acquire load.
func (i *Instruction) AsAtomicLoad(ptr Value, typ Type) *Instruction {
	i.opcode = OpcodeAtomicLoad
	i.v = ptr
	i.typ = typ
	return i
}

// AsAtomicStore initializes this instruction as a release store.
func (i *Instruction) AsAtomicStore(value, ptr Value) *Instruction {
	i.opcode = OpcodeAtomicStore
	i.v = value
	i.v2 = ptr
	return i
}

// AsAtomicRmw initializes this instruction as an atomic read-modify-write.
func (i *Instruction) AsAtomicRmw(op AtomicRmwOp, ptr, x Value) *Instruction {
	i.opcode = OpcodeAtomicRmw
	i.u1 = uint64(op)
	i.v = ptr
	i.v2 = x
	i.typ = x.Type()
	return i
}

// AtomicRmwData returns the operation of an atomic read-modify-write.
func (i *Instruction) AtomicRmwData() AtomicRmwOp {
	return AtomicRmwOp(i.u1)
}

// AsAtomicCas initializes this instruction as an atomic compare-and-swap.
func (i *Instruction) AsAtomicCas(ptr, expected, replacement Value) *Instruction {
	i.opcode = OpcodeAtomicCas
	i.v = ptr
	i.v2 = expected
	i.v3 = replacement
	i.typ = expected.Type()
	return i
}

// AsFence initializes this instruction as a full barrier.
func (i *Instruction) AsFence() *Instruction {
	i.opcode = OpcodeFence
	return i
}

// AsJump initializes this instruction as a jump with OpcodeJump.
func (i *Instruction) AsJump(args []Value, target BasicBlock) *Instruction {
	i.opcode = OpcodeJump
	i.vs = args
	i.blk = target
	return i
}

// AsBrz initializes this instruction as a branch-if-zero with OpcodeBrz.
func (i *Instruction) AsBrz(c Value, args []Value, target BasicBlock) *Instruction {
	i.opcode = OpcodeBrz
	i.v = c
	i.vs = args
	i.blk = target
	return i
}

// AsBrnz initializes this instruction as a branch-if-not-zero with OpcodeBrnz.
func (i *Instruction) AsBrnz(c Value, args []Value, target BasicBlock) *Instruction {
	i.opcode = OpcodeBrnz
	i.v = c
	i.vs = args
	i.blk = target
	return i
}

// BranchData returns the branch data: condition (ValueInvalid for jumps),
// the argument list and the target block.
func (i *Instruction) BranchData() (condVal Value, blockArgs []Value, target BasicBlock) {
	switch i.opcode {
	case OpcodeJump:
		return ValueInvalid, i.vs, i.blk
	case OpcodeBrz, OpcodeBrnz:
		return i.v, i.vs, i.blk
	default:
		panic("BUG: BranchData on " + i.opcode.String())
	}
}

// AsBrTable initializes this instruction as a branch table.
// The last target is the default taken on out-of-range indices.
func (i *Instruction) AsBrTable(index Value, targets []BasicBlock) *Instruction {
	i.opcode = OpcodeBrTable
	i.v = index
	i.targets = targets
	return i
}

// BrTableData returns the index value and targets of a branch table.
func (i *Instruction) BrTableData() (index Value, targets []BasicBlock) {
	return i.v, i.targets
}

// AsCall initializes this instruction as a direct call.
func (i *Instruction) AsCall(ref FuncRef, sig SigRef, args []Value) *Instruction {
	i.opcode = OpcodeCall
	i.u1 = uint64(ref)
	i.u2 = uint64(sig)
	i.vs = args
	return i
}

// CallData returns the callee, signature and arguments of a direct call.
func (i *Instruction) CallData() (ref FuncRef, sig SigRef, args []Value) {
	return FuncRef(i.u1), SigRef(i.u2), i.vs
}

// AsCallIndirect initializes this instruction as an indirect call.
func (i *Instruction) AsCallIndirect(callee Value, sig SigRef, args []Value) *Instruction {
	i.opcode = OpcodeCallIndirect
	i.v = callee
	i.u2 = uint64(sig)
	i.vs = args
	return i
}

// CallIndirectData returns the callee address, signature and arguments of an
// indirect call.
func (i *Instruction) CallIndirectData() (callee Value, sig SigRef, args []Value) {
	return i.v, SigRef(i.u2), i.vs
}

// AsTryCall initializes this instruction as an exception-aware call with a
// normal and an exception successor.
func (i *Instruction) AsTryCall(ref FuncRef, sig SigRef, args []Value, normal, exception BasicBlock) *Instruction {
	i.opcode = OpcodeTryCall
	i.u1 = uint64(ref)
	i.u2 = uint64(sig)
	i.vs = args
	i.blk = normal
	i.blk2 = exception
	return i
}

// TryCallData returns the callee, signature, arguments and the two
// successors of a try-call.
func (i *Instruction) TryCallData() (ref FuncRef, sig SigRef, args []Value, normal, exception BasicBlock) {
	return FuncRef(i.u1), SigRef(i.u2), i.vs, i.blk, i.blk2
}

// AsReturn initializes this instruction as a return.
func (i *Instruction) AsReturn(vs []Value) *Instruction {
	i.opcode = OpcodeReturn
	i.vs = vs
	return i
}

// ReturnVals returns the return values of this return instruction.
func (i *Instruction) ReturnVals() []Value {
	return i.vs
}

// AsTrap initializes this instruction as an unconditional trap.
func (i *Instruction) AsTrap(code TrapCode) *Instruction {
	i.opcode = OpcodeTrap
	i.u1 = uint64(code)
	return i
}

// AsTrapz initializes this instruction as a trap taken when `c` is zero.
func (i *Instruction) AsTrapz(c Value, code TrapCode) *Instruction {
	i.opcode = OpcodeTrapz
	i.v = c
	i.u1 = uint64(code)
	return i
}

// TrapData returns the trap code of a trap instruction.
func (i *Instruction) TrapData() TrapCode {
	return TrapCode(i.u1)
}

// AsSequencePoint initializes this instruction as a source sequence point.
func (i *Instruction) AsSequencePoint(sourceOffset uint64) *Instruction {
	i.opcode = OpcodeSequencePoint
	i.u1 = sourceOffset
	return i
}

// SequencePointData returns the source offset of a sequence point.
func (i *Instruction) SequencePointData() uint64 {
	return i.u1
}

// Insert inserts this instruction into the builder's current block.
func (i *Instruction) Insert(b Builder) *Instruction {
	b.InsertInstruction(i)
	return i
}

// Format returns a debug string for this instruction.
func (i *Instruction) Format() string {
	r, rs := i.Returns()
	prefix := ""
	if r.Valid() {
		prefix = r.String()
		for _, v := range rs {
			prefix += ", " + v.String()
		}
		prefix += " = "
	}
	return fmt.Sprintf("%s%s", prefix, i.opcode)
}

// String implements fmt.Stringer.
func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("opcode(%d)", int(o))
}

var opcodeNames = map[Opcode]string{
	OpcodeUndefined:     "Undefined",
	OpcodeJump:          "Jump",
	OpcodeBrz:           "Brz",
	OpcodeBrnz:          "Brnz",
	OpcodeBrTable:       "BrTable",
	OpcodeReturn:        "Return",
	OpcodeCall:          "Call",
	OpcodeCallIndirect:  "CallIndirect",
	OpcodeTryCall:       "TryCall",
	OpcodeTrap:          "Trap",
	OpcodeTrapz:         "Trapz",
	OpcodeSequencePoint: "SequencePoint",
	OpcodeLoad:          "Load",
	OpcodeStore:         "Store",
	OpcodeUload8:        "Uload8",
	OpcodeSload8:        "Sload8",
	OpcodeIstore8:       "Istore8",
	OpcodeUload16:       "Uload16",
	OpcodeSload16:       "Sload16",
	OpcodeIstore16:      "Istore16",
	OpcodeUload32:       "Uload32",
	OpcodeSload32:       "Sload32",
	OpcodeIstore32:      "Istore32",
	OpcodeStackLoad:     "StackLoad",
	OpcodeStackStore:    "StackStore",
	OpcodeStackAddr:     "StackAddr",
	OpcodeGlobalAddr:    "GlobalAddr",
	OpcodeFuncAddr:      "FuncAddr",
	OpcodeIconst:        "Iconst",
	OpcodeF32const:      "F32const",
	OpcodeF64const:      "F64const",
	OpcodeVconst:        "Vconst",
	OpcodeIcmp:          "Icmp",
	OpcodeIcmpImm:       "IcmpImm",
	OpcodeFcmp:          "Fcmp",
	OpcodeIadd:          "Iadd",
	OpcodeIsub:          "Isub",
	OpcodeImul:          "Imul",
	OpcodeUmulh:         "Umulh",
	OpcodeSmulh:         "Smulh",
	OpcodeUdiv:          "Udiv",
	OpcodeSdiv:          "Sdiv",
	OpcodeUrem:          "Urem",
	OpcodeSrem:          "Srem",
	OpcodeIaddImm:       "IaddImm",
	OpcodeBand:          "Band",
	OpcodeBor:           "Bor",
	OpcodeBxor:          "Bxor",
	OpcodeBnot:          "Bnot",
	OpcodeBandImm:       "BandImm",
	OpcodeBorImm:        "BorImm",
	OpcodeBxorImm:       "BxorImm",
	OpcodeRotl:          "Rotl",
	OpcodeRotr:          "Rotr",
	OpcodeIshl:          "Ishl",
	OpcodeUshr:          "Ushr",
	OpcodeSshr:          "Sshr",
	OpcodeIshlImm:       "IshlImm",
	OpcodeUshrImm:       "UshrImm",
	OpcodeSshrImm:       "SshrImm",
	OpcodeClz:           "Clz",
	OpcodeCtz:           "Ctz",
	OpcodePopcnt:        "Popcnt",
	OpcodeIneg:          "Ineg",
	OpcodeSelect:        "Select",
	OpcodeFadd:          "Fadd",
	OpcodeFsub:          "Fsub",
	OpcodeFmul:          "Fmul",
	OpcodeFdiv:          "Fdiv",
	OpcodeFma:           "Fma",
	OpcodeFmin:          "Fmin",
	OpcodeFmax:          "Fmax",
	OpcodeFneg:          "Fneg",
	OpcodeFabs:          "Fabs",
	OpcodeSqrt:          "Sqrt",
	OpcodeCeil:          "Ceil",
	OpcodeFloor:         "Floor",
	OpcodeTrunc:         "Trunc",
	OpcodeNearest:       "Nearest",
	OpcodeFcopysign:     "Fcopysign",
	OpcodeUExtend:       "UExtend",
	OpcodeSExtend:       "SExtend",
	OpcodeIreduce:       "Ireduce",
	OpcodeFpromote:      "Fpromote",
	OpcodeFdemote:       "Fdemote",
	OpcodeFcvtToSint:    "FcvtToSint",
	OpcodeFcvtToUint:    "FcvtToUint",
	OpcodeFcvtFromSint:  "FcvtFromSint",
	OpcodeFcvtFromUint:  "FcvtFromUint",
	OpcodeBitcast:       "Bitcast",
	OpcodeIsplit:        "Isplit",
	OpcodeIconcat:       "Iconcat",
	OpcodeSplat:         "Splat",
	OpcodeExtractLane:   "ExtractLane",
	OpcodeInsertLane:    "InsertLane",
	OpcodeVIadd:         "VIadd",
	OpcodeVIsub:         "VIsub",
	OpcodeVband:         "Vband",
	OpcodeVbor:          "Vbor",
	OpcodeVbxor:         "Vbxor",
	OpcodeAtomicLoad:    "AtomicLoad",
	OpcodeAtomicStore:   "AtomicStore",
	OpcodeAtomicRmw:     "AtomicRmw",
	OpcodeAtomicCas:     "AtomicCas",
	OpcodeFence:         "Fence",
}
