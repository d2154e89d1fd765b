package arm64

// Address-mode selection: loads and stores pick the most specific form the
// operands admit, folding a pure single-use address computation into the
// access.

import (
	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/ssa"
)

// computeAddressMode resolves `base + offset` for an access of sizeBytes,
// folding an add-of-constant or add-of-extended-index producer when legal.
// Since blocks are built backward, any address materialization is returned
// as emitAux for the caller to run after inserting the access itself.
func (m *machine) computeAddressMode(ptr ssa.Value, offset int64, consumer *ssa.Instruction, sizeBytes int64) (addressMode, func()) {
	def := m.compiler.ValueDefinition(ptr)
	if def.SinkableBy(consumer) && def.Instr.Opcode() == ssa.OpcodeIadd && ptr.Type().Bits() == 64 {
		x, y := def.Instr.Arg2()
		ydef := m.compiler.ValueDefinition(y)
		if ydef.SinkableBy(def.Instr) {
			switch ydef.Instr.Opcode() {
			case ssa.OpcodeIconst:
				if total := offset + int64(ydef.Instr.ConstantData()); offsetFitsUnsigned(total, sizeBytes) {
					m.compiler.MarkLowered(def.Instr)
					m.compiler.MarkLowered(ydef.Instr)
					return addressModeUnsigned(m.vregOf(x), total), nil
				}
			case ssa.OpcodeUExtend, ssa.OpcodeSExtend:
				if offset == 0 {
					idx, fromBits, toBits, signed := ydef.Instr.ExtendData()
					if fromBits == 32 && toBits == 64 {
						ext := extendOpUXTW
						if signed {
							ext = extendOpSXTW
						}
						m.compiler.MarkLowered(def.Instr)
						m.compiler.MarkLowered(ydef.Instr)
						return addressMode{kind: addressModeKindRegExtended, rn: m.vregOf(x), rm: m.vregOf(idx), ext: ext}, nil
					}
				}
			}
		}
		if offset == 0 {
			m.compiler.MarkLowered(def.Instr)
			return addressMode{kind: addressModeKindRegReg, rn: m.vregOf(x), rm: m.vregOf(y)}, nil
		}
	}

	base := m.vregOf(ptr)
	switch {
	case offsetFitsUnsigned(offset, sizeBytes):
		return addressModeUnsigned(base, offset), nil
	case offset >= -256 && offset < 256:
		return addressMode{kind: addressModeKindRegSignedImm9, rn: base, rm: regalloc.RegInvalid, imm: offset}, nil
	default:
		// Materialize base+offset into a fresh register, emitted after the
		// access so it precedes it in program order.
		tmp := regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt))
		amode := addressModeUnsigned(tmp, 0)
		emitAux := func() {
			if imm12, shift, ok := asImm12(uint64(offset)); ok {
				m.insert(instruction{kind: aluRRImm12, u1: uint64(aluOpAdd), rd: operandNR(tmp), rn: operandNR(base), rm: operandImm12(imm12, shift), u3: 1})
			} else {
				cnst := regalloc.RegFromVirtual(m.compiler.AllocateVReg(regalloc.RegClassInt))
				m.insert(instruction{kind: aluRRR, u1: uint64(aluOpAdd), rd: operandNR(tmp), rn: operandNR(base), rm: operandNR(cnst), u3: 1})
				m.lowerConstantI64(cnst, uint64(offset), true)
			}
		}
		return amode, emitAux
	}
}

func offsetFitsUnsigned(offset, sizeBytes int64) bool {
	return offset >= 0 && offset%sizeBytes == 0 && offset/sizeBytes < 1<<12
}

func loadKindOf(op ssa.Opcode, result ssa.Type) instructionKind {
	switch op {
	case ssa.OpcodeUload8:
		return uLoad8
	case ssa.OpcodeSload8:
		return sLoad8
	case ssa.OpcodeUload16:
		return uLoad16
	case ssa.OpcodeSload16:
		return sLoad16
	case ssa.OpcodeUload32:
		return uLoad32
	case ssa.OpcodeSload32:
		return sLoad32
	case ssa.OpcodeLoad:
		switch {
		case result.IsFloat() && result.Bits() == 32:
			return fpuLoad32
		case result.IsFloat():
			return fpuLoad64
		case result.IsVector():
			return fpuLoad128
		case result.Bits() == 8:
			return uLoad8
		case result.Bits() == 16:
			return uLoad16
		case result.Bits() == 32:
			return uLoad32
		default:
			return uLoad64
		}
	default:
		panic("BUG: not a load opcode: " + op.String())
	}
}

func registerMemoryRules() {
	loadOps := []ssa.Opcode{
		ssa.OpcodeLoad,
		ssa.OpcodeUload8, ssa.OpcodeSload8,
		ssa.OpcodeUload16, ssa.OpcodeSload16,
		ssa.OpcodeUload32, ssa.OpcodeSload32,
	}
	for _, op := range loadOps {
		registerRule(op, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
			ptr, offset, typ := si.LoadData()
			kind := loadKindOf(si.Opcode(), typ)
			rd := operandNR(m.vregOf(si.Return()))
			size := int64(typ.Size())
			if si.Opcode() != ssa.OpcodeLoad {
				size = loadAccessSize(si.Opcode())
			}
			amode, emitAux := m.computeAddressMode(ptr, int64(offset), si, size)
			m.insert(instruction{kind: kind, rd: rd, amode: amode})
			if emitAux != nil {
				emitAux()
			}
			return true, nil
		})
	}

	storeOps := []ssa.Opcode{ssa.OpcodeStore, ssa.OpcodeIstore8, ssa.OpcodeIstore16, ssa.OpcodeIstore32}
	for _, op := range storeOps {
		registerRule(op, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
			value, ptr, offset, sizeBits := si.StoreData()
			var kind instructionKind
			switch {
			case value.Type().IsFloat() && sizeBits == 32:
				kind = fpuStore32
			case value.Type().IsFloat():
				kind = fpuStore64
			case value.Type().IsVector():
				kind = fpuStore128
			case sizeBits == 8:
				kind = store8
			case sizeBits == 16:
				kind = store16
			case sizeBits == 32:
				kind = store32
			default:
				kind = store64
			}
			amode, emitAux := m.computeAddressMode(ptr, int64(offset), si, int64(sizeBits)/8)
			m.insert(instruction{kind: kind, rn: operandNR(m.vregOf(value)), amode: amode})
			if emitAux != nil {
				emitAux()
			}
			return true, nil
		})
	}

	registerRule(ssa.OpcodeStackLoad, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		slot, offset := si.StackSlotData()
		t := si.Return().Type()
		m.insert(loadInstrFor(t, m.vregOf(si.Return()), addressModeStackSlot(uint32(slot), int64(offset))))
		return true, nil
	})
	registerRule(ssa.OpcodeStackStore, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		slot, offset := si.StackSlotData()
		v := si.Arg()
		m.insert(storeInstrFor(v.Type(), m.vregOf(v), addressModeStackSlot(uint32(slot), int64(offset))))
		return true, nil
	})
	registerRule(ssa.OpcodeStackAddr, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		slot, offset := si.StackSlotData()
		m.insert(instruction{kind: stackAddr, rd: operandNR(m.vregOf(si.Return())), u1: uint64(slot), u2: uint64(offset)})
		return true, nil
	})
	registerRule(ssa.OpcodeGlobalAddr, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		gv := si.GlobalAddrData()
		data := m.compiler.SSABuilder().GlobalValueData(gv)
		kind := adrpAdd
		if data.TLS {
			kind = tlsLE
		}
		m.insert(instruction{kind: kind, rd: operandNR(m.vregOf(si.Return())), sym: data.Name})
		return true, nil
	})
	registerRule(ssa.OpcodeFuncAddr, 10, func(m *machine, si *ssa.Instruction) (bool, error) {
		name, _ := m.compiler.SSABuilder().FunctionData(si.FuncAddrData())
		m.insert(instruction{kind: adrpAdd, rd: operandNR(m.vregOf(si.Return())), sym: name})
		return true, nil
	})
}

func loadAccessSize(op ssa.Opcode) int64 {
	switch op {
	case ssa.OpcodeUload8, ssa.OpcodeSload8:
		return 1
	case ssa.OpcodeUload16, ssa.OpcodeSload16:
		return 2
	case ssa.OpcodeUload32, ssa.OpcodeSload32:
		return 4
	default:
		return 8
	}
}
