package arm64

// Frame layout, prologue/epilogue shape and final emission.
//
// The frame, from the stack pointer up:
//
//	          (high address)
//	        +-----------------+
//	        |  caller's frame |
//	        |    stack args   |
//	 FP+16->+-----------------+  <- CFA
//	        |   ReturnAddress |
//	   FP-> |    saved x29    |
//	        +-----------------+
//	        |  clobbered N..0 |
//	        |      locals     |
//	        |   spill slots   |
//	        |  outgoing args  |
//	   SP-> +-----------------+
//	          (low address)
//
// Everything below the FP/LR pair is one aligned "body" allocated with a
// single SP adjustment, so the final stack pointer stays 16-byte aligned.

import (
	"github.com/joelreymont/hoist/asm"
	"github.com/joelreymont/hoist/backend"
	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/unwind"
)

// PostRegAlloc implements backend.Machine: the frame layout is final once
// the allocator has reported its spill area and clobbered registers, and
// redundant copies left by coalescing are dropped.
func (m *machine) PostRegAlloc() error {
	body := m.maxCallArgSpace + m.spillAreaSize + m.localsSize + 16*int64(len(m.clobbered))
	body = (body + 15) &^ 15

	m.frameless = m.cfg.OptLevel != OptLevelNone &&
		body == 0 && len(m.clobbered) == 0 &&
		!m.hasCalls() && !m.hasIncomingStackArgs()

	if m.frameless {
		m.frameSize = 0
	} else {
		m.frameSize = body + 16 // plus the FP/LR pair
	}

	// Remove copies that coalesced into themselves.
	for idx := range m.vcode.Instrs {
		i := &m.vcode.Instrs[idx]
		if dst, src, ok := i.isCopy(); ok && dst.IsReal() && src.IsReal() && dst == src {
			i.kind = nop0
		}
	}
	return nil
}

func (m *machine) hasCalls() bool {
	for idx := range m.vcode.Instrs {
		if m.vcode.Instrs[idx].isCall() {
			return true
		}
	}
	return false
}

func (m *machine) hasIncomingStackArgs() bool {
	for _, a := range m.currentABI.Args {
		for _, s := range a.Slots {
			if s.Kind == backend.ABIArgSlotStack {
				return true
			}
		}
	}
	return false
}

// bodySize is the frame body below the FP/LR pair.
func (m *machine) bodySize() int64 {
	if m.frameless {
		return 0
	}
	return m.frameSize - 16
}

func (m *machine) clobberedAreaOffset() int64 {
	return m.maxCallArgSpace + m.spillAreaSize + m.localsSize
}

// Encode implements backend.Machine: prologue, block bodies with island
// management, epilogues at each return, and the unwind description.
func (m *machine) Encode(buf *asm.Buffer) error {
	m.buf = buf
	m.labels = make(map[uint32]asm.Label)

	// Reverse map from vcode block index to its label key.
	blockKeys := make([]uint32, len(m.vcode.Blocks))
	for key, idx := range m.vcodeIndexOf {
		blockKeys[idx] = key
	}

	m.emitPrologue(buf)

	for b := range m.vcode.Blocks {
		buf.Bind(m.labelFor(blockKeys[b]))
		for idx := m.vcode.Blocks[b].Begin; idx < m.vcode.Blocks[b].End; idx++ {
			i := &m.vcode.Instrs[idx]
			if buf.IslandNeeded(i.size() + 4) {
				buf.EmitIsland(false)
			}
			switch {
			case i.kind == ret:
				m.emitEpilogue(buf)
				m.encodeInstr(buf, i)
			case i.kind == call && i.u3 == 1:
				m.tryCalls = append(m.tryCalls, pendingTryCall{offset: uint32(buf.Size()), exceptionKey: uint32(i.u2)})
				m.encodeInstr(buf, i)
			default:
				m.encodeInstr(buf, i)
			}
		}
	}

	// The exception successors' labels are all bound now; resolve the
	// LSDA call sites.
	for _, tc := range m.tryCalls {
		m.frameInfo.TryCalls = append(m.frameInfo.TryCalls, unwind.TryCallSite{
			Offset:     tc.offset,
			Length:     4,
			LandingPad: uint32(buf.LabelOffset(m.labelFor(tc.exceptionKey))),
		})
	}
	m.frameInfo.FrameSize = m.frameSize
	return nil
}

// emitPrologue saves FP/LR, establishes the frame pointer, allocates the
// body, and stores the callee-saved registers the allocation used,
// recording the offsets unwind generation needs.
func (m *machine) emitPrologue(buf *asm.Buffer) {
	if m.cfg.Features.BTI {
		m.encodeInstr(buf, &instruction{kind: bti})
	}
	if m.frameless {
		m.frameInfo.Frameless = true
		return
	}
	if m.cfg.Features.PAC {
		m.encodeInstr(buf, &instruction{kind: paciasp})
	}

	// stp x29, x30, [sp, #-16]!
	buf.Emit4Bytes(encodePreOrPostIndexLoadStorePair64(true, false,
		regNumberInEncoding(sp), regNumberInEncoding(fp), regNumberInEncoding(lr), -16))
	m.frameInfo.SaveOffset = uint32(buf.Size())

	// mov x29, sp
	buf.Emit4Bytes(encodeAluRRImm12(aluOpAdd, regNumberInEncoding(fp), regNumberInEncoding(sp), 0, 0, true))
	m.frameInfo.SetFPOffset = uint32(buf.Size())

	if body := m.bodySize(); body > 0 {
		m.emitStackAdjust(buf, body, false)
	}

	// Callee saves, stored above locals just under the FP/LR pair.
	base := m.clobberedAreaOffset()
	for k, r := range m.clobbered {
		off := base + 16*int64(k)
		m.encodeInstr(buf, &instruction{
			kind:  storeKindFor(r),
			rn:    operandNR(regalloc.RegFromReal(r)),
			amode: addressModeUnsigned(spReg, off),
		})
		m.frameInfo.SavedRegs = append(m.frameInfo.SavedRegs, unwind.SavedReg{
			Reg:       dwarfRegOf(r),
			CFAOffset: off - m.bodySize() - 16,
		})
	}
	m.frameInfo.SavedRegsOffset = uint32(buf.Size())
}

// emitEpilogue is the mirror image of the prologue, re-preserving values
// in the exact reverse order, and leaves only the RET to be emitted.
func (m *machine) emitEpilogue(buf *asm.Buffer) {
	if m.frameless {
		return
	}
	base := m.clobberedAreaOffset()
	for k := len(m.clobbered) - 1; k >= 0; k-- {
		r := m.clobbered[k]
		m.encodeInstr(buf, &instruction{
			kind:  loadKindFor(r),
			rd:    operandNR(regalloc.RegFromReal(r)),
			amode: addressModeUnsigned(spReg, base+16*int64(k)),
		})
	}
	if body := m.bodySize(); body > 0 {
		m.emitStackAdjust(buf, body, true)
	}
	// ldp x29, x30, [sp], #16
	buf.Emit4Bytes(encodePreOrPostIndexLoadStorePair64(false, true,
		regNumberInEncoding(sp), regNumberInEncoding(fp), regNumberInEncoding(lr), 16))
	if m.cfg.Features.PAC {
		m.encodeInstr(buf, &instruction{kind: autiasp})
	}
}

// emitStackAdjust moves SP down (or back up) by size using at most two
// immediate operations.
func (m *machine) emitStackAdjust(buf *asm.Buffer, size int64, up bool) {
	op := aluOpSub
	if up {
		op = aluOpAdd
	}
	spN := regNumberInEncoding(sp)
	lo := uint16(size & 0xfff)
	hi := uint16(size >> 12)
	if lo != 0 || hi == 0 {
		buf.Emit4Bytes(encodeAluRRImm12(op, spN, spN, lo, 0, true))
	}
	if hi != 0 {
		buf.Emit4Bytes(encodeAluRRImm12(op, spN, spN, hi, 1, true))
	}
}

func storeKindFor(r regalloc.RealReg) instructionKind {
	switch r.Class() {
	case regalloc.RegClassInt:
		return store64
	case regalloc.RegClassFloat:
		return fpuStore64
	default:
		return fpuStore128
	}
}

func loadKindFor(r regalloc.RealReg) instructionKind {
	switch r.Class() {
	case regalloc.RegClassInt:
		return uLoad64
	case regalloc.RegClassFloat:
		return fpuLoad64
	default:
		return fpuLoad128
	}
}

func dwarfRegOf(r regalloc.RealReg) uint8 {
	if r.Class() == regalloc.RegClassInt {
		return r.HwEnc()
	}
	return unwind.DwarfRegV0 + r.HwEnc()
}
