// Package asm implements the machine code buffer: byte emission, labels,
// PC-relative fix-ups with veneer promotion, constant islands, external
// relocations and trap sites.
//
// The buffer is write-only until Finalize, which resolves every fix-up in
// one pass and freezes the contents.
package asm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrLabelOutOfRange is reported when a fix-up cannot be encoded even after
// the veneer fallback.
var ErrLabelOutOfRange = errors.New("label out of range")

const (
	labelOffsetUnbound = int64(-1)

	// islandSlack is the headroom kept between the island trigger point and
	// the hard deadline of the tightest pending fix-up, covering the island
	// branch-over and alignment.
	islandSlack = 64

	// veneerWordB is the AArch64 unconditional branch used as the veneer
	// stub, with a zero displacement to be patched.
	veneerWordB = uint32(0b000101) << 26
)

type fixup struct {
	label  Label
	offset int64
	kind   LabelUseKind
	// veneered is set once the fix-up has been re-targeted to a veneer;
	// a second promotion is a hard failure.
	veneered bool
}

type pendingConst struct {
	label Label
	data  []byte
	align int64
}

// Buffer accumulates machine code and its metadata for one function.
type Buffer struct {
	data   []byte
	labels []int64
	fixups []fixup
	relocs []Reloc
	traps  []Trap
	srcs   []SourceOffset

	consts []pendingConst
	// islandDeadline is the buffer offset by which an island must have been
	// emitted to keep every pending short-range fix-up encodable.
	islandDeadline int64

	finalized bool
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{islandDeadline: math.MaxInt64}
}

// Size returns the current number of bytes emitted.
func (b *Buffer) Size() int64 {
	return int64(len(b.data))
}

// Append appends raw bytes.
func (b *Buffer) Append(bs []byte) {
	b.assertWritable()
	b.data = append(b.data, bs...)
}

// EmitByte appends one byte.
func (b *Buffer) EmitByte(v byte) {
	b.assertWritable()
	b.data = append(b.data, v)
}

// Emit4Bytes appends one little-endian 32-bit instruction word.
func (b *Buffer) Emit4Bytes(v uint32) {
	b.assertWritable()
	b.data = append(b.data, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// AllocateLabel allocates a fresh unbound label.
func (b *Buffer) AllocateLabel() Label {
	b.labels = append(b.labels, labelOffsetUnbound)
	return Label(len(b.labels) - 1)
}

// Bind binds the label to the current offset.
func (b *Buffer) Bind(l Label) {
	b.assertWritable()
	if b.labels[l] != labelOffsetUnbound {
		panic("BUG: label bound twice: " + l.String())
	}
	b.labels[l] = b.Size()
}

// LabelOffset returns the bound offset of the label.
func (b *Buffer) LabelOffset(l Label) int64 {
	off := b.labels[l]
	if off == labelOffsetUnbound {
		panic("BUG: label not bound: " + l.String())
	}
	return off
}

// UseLabel records a fix-up of the given kind at the current offset. The
// caller emits the placeholder bytes immediately after.
func (b *Buffer) UseLabel(l Label, kind LabelUseKind) {
	b.assertWritable()
	off := b.Size()
	b.fixups = append(b.fixups, fixup{label: l, offset: off, kind: kind})
	if _, max := kind.rangeOf(); max < math.MaxInt32 {
		if deadline := kind.deltaBase(off) + max - islandSlack; deadline < b.islandDeadline {
			b.islandDeadline = deadline
		}
	}
}

// AddReloc records an external relocation at the current offset.
func (b *Buffer) AddReloc(kind RelocKind, symbol string, addend int64) {
	b.relocs = append(b.relocs, Reloc{Offset: uint32(b.Size()), Kind: kind, Symbol: symbol, Addend: addend})
}

// AddTrap records a trap site at the current offset.
func (b *Buffer) AddTrap(code byte) {
	b.traps = append(b.traps, Trap{Offset: uint32(b.Size()), Code: code})
}

// AddSourceOffset records a source position mapping at the current offset.
func (b *Buffer) AddSourceOffset(src uint64) {
	b.srcs = append(b.srcs, SourceOffset{Source: src, Offset: uint32(b.Size())})
}

// AllocateConstant registers constant bytes for the next island and returns
// the label that will be bound to their location. Loads reference the label
// with LabelUseLdr19.
func (b *Buffer) AllocateConstant(data []byte, align int64) Label {
	l := b.AllocateLabel()
	b.consts = append(b.consts, pendingConst{label: l, data: append([]byte(nil), data...), align: align})
	// A literal load issued now must stay within LDR range of the pool.
	_, max := LabelUseLdr19.rangeOf()
	if deadline := b.Size() + max - islandSlack; deadline < b.islandDeadline {
		b.islandDeadline = deadline
	}
	return l
}

// IslandNeeded reports whether an island must be emitted before appending
// another worstCaseSize bytes of code.
func (b *Buffer) IslandNeeded(worstCaseSize int64) bool {
	return b.Size()+worstCaseSize >= b.islandDeadline
}

// EmitIsland flushes the pending constants and promotes endangered
// fix-ups to veneers. Unless terminal is set, a branch over the island is
// emitted first so fall-through execution skips it.
func (b *Buffer) EmitIsland(terminal bool) {
	b.assertWritable()
	if !terminal && len(b.consts) == 0 && !b.anyVeneerCandidates() {
		return
	}

	var cont Label
	if !terminal {
		cont = b.AllocateLabel()
		b.UseLabel(cont, LabelUseBranch26)
		b.Emit4Bytes(veneerWordB)
	}
	b.alignTo(4)

	// Veneers for short-range fix-ups whose target is still unbound: the
	// target will land past the island, so the stub keeps them encodable.
	// One veneer per label per island.
	veneered := make(map[Label]Label)
	for i := range b.fixups {
		f := &b.fixups[i]
		if f.veneered || !f.kind.supportsVeneer() || f.kind == LabelUseBranch26 {
			continue
		}
		if b.labels[f.label] != labelOffsetUnbound {
			continue
		}
		vl, ok := veneered[f.label]
		if !ok {
			vl = b.AllocateLabel()
			b.Bind(vl)
			b.UseLabel(f.label, LabelUseBranch26)
			b.Emit4Bytes(veneerWordB)
			// Reload f: UseLabel may have moved the backing array.
			f = &b.fixups[i]
			veneered[f.label] = vl
		}
		f.label = vl
		f.veneered = true
	}

	for i := range b.consts {
		c := &b.consts[i]
		b.alignTo(c.align)
		b.Bind(c.label)
		b.Append(c.data)
	}
	b.consts = b.consts[:0]
	b.alignTo(4)

	b.recomputeDeadline()
	if !terminal {
		b.Bind(cont)
	}
}

func (b *Buffer) anyVeneerCandidates() bool {
	for i := range b.fixups {
		f := &b.fixups[i]
		if !f.veneered && f.kind.supportsVeneer() && f.kind != LabelUseBranch26 &&
			b.labels[f.label] == labelOffsetUnbound {
			return true
		}
	}
	return false
}

func (b *Buffer) recomputeDeadline() {
	b.islandDeadline = math.MaxInt64
	for i := range b.fixups {
		f := &b.fixups[i]
		if b.labels[f.label] != labelOffsetUnbound {
			continue
		}
		if _, max := f.kind.rangeOf(); max < math.MaxInt32 {
			if deadline := f.kind.deltaBase(f.offset) + max - islandSlack; deadline < b.islandDeadline {
				b.islandDeadline = deadline
			}
		}
	}
}

func (b *Buffer) alignTo(align int64) {
	for b.Size()%align != 0 {
		b.data = append(b.data, 0)
	}
}

// Finalize emits the terminal island, resolves every fix-up (promoting
// residual out-of-range uses to end-of-code veneers), and freezes the
// buffer. After Finalize the buffer is read-only.
func (b *Buffer) Finalize() error {
	b.assertWritable()
	if len(b.consts) > 0 {
		b.EmitIsland(true)
	}

	// The fix-up list can grow while veneers are appended; iterate by index.
	endVeneers := make(map[Label]Label)
	for i := 0; i < len(b.fixups); i++ {
		f := &b.fixups[i]
		target := b.labels[f.label]
		if target == labelOffsetUnbound {
			panic("BUG: fix-up against unbound label " + f.label.String())
		}
		delta := target - f.kind.deltaBase(f.offset)
		min, max := f.kind.rangeOf()
		if delta >= min && delta <= max {
			f.kind.patch(b.data, f.offset, delta)
			continue
		}
		if f.veneered || !f.kind.supportsVeneer() {
			return fmt.Errorf("%w: %s at %#x, delta %d", ErrLabelOutOfRange, f.kind, f.offset, delta)
		}
		vl, ok := endVeneers[f.label]
		if !ok {
			b.alignTo(4)
			vl = b.AllocateLabel()
			b.Bind(vl)
			b.fixups = append(b.fixups, fixup{label: f.label, offset: b.Size(), kind: LabelUseBranch26})
			// Reload f: the append may have moved the backing array.
			f = &b.fixups[i]
			b.Emit4Bytes(veneerWordB)
			endVeneers[f.label] = vl
		}
		delta = b.labels[vl] - f.kind.deltaBase(f.offset)
		if delta < min || delta > max {
			return fmt.Errorf("%w: %s at %#x even via veneer", ErrLabelOutOfRange, f.kind, f.offset)
		}
		f.kind.patch(b.data, f.offset, delta)
	}

	b.finalized = true
	return nil
}

// Data returns the emitted bytes. Only valid after Finalize.
func (b *Buffer) Data() []byte {
	if !b.finalized {
		panic("BUG: Data before Finalize")
	}
	return b.data
}

// Relocs returns the recorded external relocations.
func (b *Buffer) Relocs() []Reloc {
	return b.relocs
}

// Traps returns the recorded trap sites.
func (b *Buffer) Traps() []Trap {
	return b.traps
}

// SourceOffsets returns the recorded source position mappings.
func (b *Buffer) SourceOffsets() []SourceOffset {
	return b.srcs
}

// Word returns the 32-bit word at the given offset, for tests and
// disassembly.
func (b *Buffer) Word(off int64) uint32 {
	return binary.LittleEndian.Uint32(b.data[off:])
}

func (b *Buffer) assertWritable() {
	if b.finalized {
		panic("BUG: write to finalized buffer")
	}
}
