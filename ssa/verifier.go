package ssa

import (
	"errors"
	"fmt"
)

// ErrInvalidSSA is reported by Verify when the function violates an SSA
// invariant. The wrapped message names the offending block and instruction.
var ErrInvalidSSA = errors.New("invalid ssa")

type valueDef struct {
	blk *basicBlock
	// pos is the index of the defining instruction within the block;
	// block parameters are defined before every instruction.
	pos int
	ok  bool
}

// Verify implements Builder.Verify. The terminator shape of every block is
// checked first; then, instruction by instruction, dominance of uses,
// operand/result types, stack-slot bounds, jump-target existence and
// branch-argument agreement; aggregate field bounds last.
func (b *builder) Verify() error {
	if len(b.basicBlocksView) == 0 {
		return fmt.Errorf("%w: function has no blocks", ErrInvalidSSA)
	}
	if !b.cfgDone {
		b.LayoutCFG()
	}

	if err := b.verifyTerminators(); err != nil {
		return err
	}

	defs := make([]valueDef, b.nextValueID)
	for _, blk := range b.basicBlocksView {
		for pi := 0; pi < blk.Params(); pi++ {
			p := blk.Param(pi)
			defs[p.ID()] = valueDef{blk: blk, pos: -1, ok: true}
		}
		pos := 0
		for cur := blk.rootInstr; cur != nil; cur = cur.next {
			r, rs := cur.Returns()
			if r.Valid() {
				defs[r.ID()] = valueDef{blk: blk, pos: pos, ok: true}
			}
			for _, rv := range rs {
				defs[rv.ID()] = valueDef{blk: blk, pos: pos, ok: true}
			}
			pos++
		}
	}

	for _, blk := range b.basicBlocksView {
		pos := 0
		for cur := blk.rootInstr; cur != nil; cur = cur.next {
			if err := b.verifyOperands(blk, cur, pos, defs); err != nil {
				return err
			}
			if err := b.verifyInstr(blk, cur); err != nil {
				return err
			}
			pos++
		}
	}

	for i := range b.aggregates {
		layout := &b.aggregates[i]
		for _, f := range layout.Fields {
			if f.Offset+uint32(f.Type.Size()) > layout.Size {
				return fmt.Errorf("%w: aggregate agg%d field at offset %d exceeds size %d",
					ErrInvalidSSA, i, f.Offset, layout.Size)
			}
		}
	}
	return nil
}

func (b *builder) verifyTerminators() error {
	for _, blk := range b.basicBlocksView {
		tail := blk.currentInstr
		if tail == nil || !tail.IsTerminator() {
			return fmt.Errorf("%w: %s does not end in a terminator", ErrInvalidSSA, blk.Name())
		}
		for cur := blk.rootInstr; cur != tail; cur = cur.next {
			if cur.IsTerminator() {
				return fmt.Errorf("%w: %s has terminator %s before the tail",
					ErrInvalidSSA, blk.Name(), cur.opcode)
			}
			if cur.IsBranching() && cur.next != tail {
				return fmt.Errorf("%w: %s has conditional branch not adjacent to the terminator",
					ErrInvalidSSA, blk.Name())
			}
		}
	}
	return nil
}

func (b *builder) verifyOperands(blk *basicBlock, instr *Instruction, pos int, defs []valueDef) error {
	check := func(v Value) error {
		if !v.Valid() {
			return nil
		}
		d := defs[v.ID()]
		if !d.ok {
			return fmt.Errorf("%w: %s in %s uses undefined %s", ErrInvalidSSA, instr.opcode, blk.Name(), v)
		}
		if d.blk == blk {
			if d.pos >= pos {
				return fmt.Errorf("%w: %s in %s uses %s before its definition",
					ErrInvalidSSA, instr.opcode, blk.Name(), v)
			}
			return nil
		}
		if !b.Dominates(d.blk, blk) {
			return fmt.Errorf("%w: %s in %s uses %s whose definition in %s does not dominate it",
				ErrInvalidSSA, instr.opcode, blk.Name(), v, d.blk.Name())
		}
		return nil
	}

	v1, v2, v3, vs := instr.Args()
	for _, v := range []Value{v1, v2, v3} {
		if err := check(v); err != nil {
			return err
		}
	}
	for _, v := range vs {
		if err := check(v); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) verifyInstr(blk *basicBlock, instr *Instruction) error {
	switch instr.opcode {
	case OpcodeIadd, OpcodeIsub, OpcodeImul, OpcodeUmulh, OpcodeSmulh,
		OpcodeUdiv, OpcodeSdiv, OpcodeUrem, OpcodeSrem,
		OpcodeBand, OpcodeBor, OpcodeBxor,
		OpcodeIshl, OpcodeUshr, OpcodeSshr, OpcodeRotl, OpcodeRotr:
		x, y := instr.Arg2()
		if !x.Type().IsInt() || x.Type() != y.Type() {
			return fmt.Errorf("%w: %s operand types mismatch: %s vs %s",
				ErrInvalidSSA, instr.opcode, x.Type(), y.Type())
		}
	case OpcodeFadd, OpcodeFsub, OpcodeFmul, OpcodeFdiv, OpcodeFmin, OpcodeFmax, OpcodeFcopysign:
		x, y := instr.Arg2()
		if !x.Type().IsFloat() || x.Type() != y.Type() {
			return fmt.Errorf("%w: %s operand types mismatch: %s vs %s",
				ErrInvalidSSA, instr.opcode, x.Type(), y.Type())
		}
	case OpcodeIcmp:
		x, y, _ := instr.IcmpData()
		if x.Type() != y.Type() {
			return fmt.Errorf("%w: icmp operand types mismatch: %s vs %s",
				ErrInvalidSSA, x.Type(), y.Type())
		}
	case OpcodeFcmp:
		x, y, _ := instr.FcmpData()
		if x.Type() != y.Type() {
			return fmt.Errorf("%w: fcmp operand types mismatch: %s vs %s",
				ErrInvalidSSA, x.Type(), y.Type())
		}
	case OpcodeSelect:
		_, x, y := instr.Arg3()
		if x.Type() != y.Type() {
			return fmt.Errorf("%w: select arm types mismatch: %s vs %s",
				ErrInvalidSSA, x.Type(), y.Type())
		}
	case OpcodeStackLoad, OpcodeStackStore, OpcodeStackAddr:
		slot, offset := instr.StackSlotData()
		if int(slot) >= len(b.stackSlots) {
			return fmt.Errorf("%w: %s references undeclared %s", ErrInvalidSSA, instr.opcode, slot)
		}
		var accessSize uint32
		switch instr.opcode {
		case OpcodeStackLoad:
			accessSize = uint32(instr.typ.Size())
		case OpcodeStackStore:
			accessSize = uint32(instr.v.Type().Size())
		}
		if offset+accessSize > b.stackSlots[slot].Size {
			return fmt.Errorf("%w: %s access at offset %d exceeds %s size %d",
				ErrInvalidSSA, instr.opcode, offset, slot, b.stackSlots[slot].Size)
		}
	case OpcodeJump, OpcodeBrz, OpcodeBrnz:
		_, args, target := instr.BranchData()
		if err := b.verifyBranchArgs(blk, instr, args, target); err != nil {
			return err
		}
	case OpcodeBrTable:
		_, targets := instr.BrTableData()
		if len(targets) == 0 {
			return fmt.Errorf("%w: br_table in %s has no targets", ErrInvalidSSA, blk.Name())
		}
		for _, target := range targets {
			if err := b.verifyBranchArgs(blk, instr, nil, target); err != nil {
				return err
			}
		}
	case OpcodeTryCall:
		_, _, _, normal, exception := instr.TryCallData()
		if normal == nil || exception == nil {
			return fmt.Errorf("%w: try_call in %s lacks a successor", ErrInvalidSSA, blk.Name())
		}
		if normal == exception {
			return fmt.Errorf("%w: try_call in %s has identical normal and exception successors",
				ErrInvalidSSA, blk.Name())
		}
		if err := b.verifyTargetExists(blk, normal); err != nil {
			return err
		}
		if err := b.verifyTargetExists(blk, exception); err != nil {
			return err
		}
	case OpcodeReturn:
		if b.signature == nil {
			break
		}
		if got, want := len(instr.ReturnVals()), len(b.signature.Results); got != want {
			return fmt.Errorf("%w: return in %s has %d values, signature wants %d",
				ErrInvalidSSA, blk.Name(), got, want)
		}
		for i, v := range instr.ReturnVals() {
			if v.Type() != b.signature.Results[i] {
				return fmt.Errorf("%w: return value %d in %s has type %s, signature wants %s",
					ErrInvalidSSA, i, blk.Name(), v.Type(), b.signature.Results[i])
			}
		}
	}
	return nil
}

func (b *builder) verifyTargetExists(blk *basicBlock, target BasicBlock) error {
	tb, ok := target.(*basicBlock)
	if !ok || int(tb.id) >= len(b.basicBlocksView) || b.basicBlocksView[tb.id] != tb {
		return fmt.Errorf("%w: branch in %s targets a block outside this function", ErrInvalidSSA, blk.Name())
	}
	return nil
}

func (b *builder) verifyBranchArgs(blk *basicBlock, instr *Instruction, args []Value, target BasicBlock) error {
	if err := b.verifyTargetExists(blk, target); err != nil {
		return err
	}
	if len(args) != target.Params() {
		return fmt.Errorf("%w: branch from %s to %s passes %d args, target has %d params",
			ErrInvalidSSA, blk.Name(), target.Name(), len(args), target.Params())
	}
	for i, arg := range args {
		if arg.Type() != target.Param(i).Type() {
			return fmt.Errorf("%w: branch arg %d from %s to %s has type %s, param wants %s",
				ErrInvalidSSA, i, blk.Name(), target.Name(), arg.Type(), target.Param(i).Type())
		}
	}
	_ = instr
	return nil
}
