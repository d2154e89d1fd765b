package arm64

import (
	"fmt"

	"github.com/joelreymont/hoist/backend"
	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/ssa"
)

// conventionRegs is the per-convention register table from the AAPCS64
// family.
type conventionRegs struct {
	argInts   []regalloc.RealReg
	argFloats int // number of v-registers available for FP/vector args
	retInts   []regalloc.RealReg
	retFloats int
	calleePop bool
}

var (
	standardArgInts = []regalloc.RealReg{x0, x1, x2, x3, x4, x5, x6, x7}
	fastArgInts     = []regalloc.RealReg{
		x0, x1, x2, x3, x4, x5, x6, x7, x8, x9, x10, x11, x12, x13, x14, x15, x16, x17,
	}
	standardRetInts = []regalloc.RealReg{x0, x1}
)

func (m *machine) conventionFor(conv ssa.CallConv) (conventionRegs, error) {
	switch conv {
	case ssa.CallConvSystemV, ssa.CallConvAppleAArch64, ssa.CallConvPreserveAll:
		return conventionRegs{argInts: standardArgInts, argFloats: 8, retInts: standardRetInts, retFloats: 4}, nil
	case ssa.CallConvTail:
		return conventionRegs{argInts: standardArgInts, argFloats: 8, retInts: standardRetInts, retFloats: 4, calleePop: true}, nil
	case ssa.CallConvFast:
		return conventionRegs{argInts: fastArgInts, argFloats: 16, retInts: standardRetInts, retFloats: 4}, nil
	case ssa.CallConvWindowsFastcall:
		return conventionRegs{}, fmt.Errorf("%w: %s on aarch64", backend.ErrUnsupportedConvention, conv)
	default:
		return conventionRegs{}, fmt.Errorf("%w: %s", backend.ErrUnsupportedConvention, conv)
	}
}

// abiBuilder tracks the register and stack cursor while classifying one
// side of a signature.
type abiBuilder struct {
	m       *machine
	regs    conventionRegs
	apple   bool
	intIdx  int
	fpIdx   int
	stack   int64
	isRet   bool
	retArgs *[]backend.ABIArg
}

// ResolveABI implements backend.Machine.
//
// The aggregate classification follows AAPCS64: HFAs and HVAs of one to
// four members travel in consecutive v-registers (whole-aggregate stack
// fallback once they do not fit), other aggregates of at most 16 bytes are
// block-copied into one or two integer registers, and anything larger is
// passed indirectly through a caller-owned copy.
func (m *machine) ResolveABI(sig *ssa.Signature) (*backend.ABISignature, error) {
	regs, err := m.conventionFor(sig.CallConv)
	if err != nil {
		return nil, err
	}
	apple := sig.CallConv == ssa.CallConvAppleAArch64

	abi := &backend.ABISignature{CalleePop: regs.calleePop}

	// Returns are resolved first: an indirect return claims x8 before any
	// argument classification happens.
	rb := &abiBuilder{m: m, regs: regs, apple: apple, isRet: true, retArgs: &abi.Args}
	for i, t := range sig.Results {
		arg, err := rb.assignRet(i, t)
		if err != nil {
			return nil, err
		}
		abi.Rets = append(abi.Rets, arg)
	}
	abi.RetStackSize = rb.stack

	ab := &abiBuilder{m: m, regs: regs, apple: apple}
	for i, t := range sig.Params {
		arg, err := ab.assignArg(i, t)
		if err != nil {
			return nil, err
		}
		abi.Args = append(abi.Args, arg)
	}
	abi.ArgStackSize = ab.stack
	return abi, nil
}

func (b *abiBuilder) nextInt() (regalloc.RealReg, bool) {
	if b.intIdx < len(b.regs.argInts) {
		r := b.regs.argInts[b.intIdx]
		b.intIdx++
		return r, true
	}
	return regalloc.RealRegInvalid, false
}

func (b *abiBuilder) nextFp(vector bool) (regalloc.RealReg, bool) {
	if b.fpIdx < b.regs.argFloats {
		enc := byte(b.fpIdx)
		b.fpIdx++
		if vector {
			return regalloc.NewRealReg(regalloc.RegClassVector, enc), true
		}
		return regalloc.NewRealReg(regalloc.RegClassFloat, enc), true
	}
	return regalloc.RealRegInvalid, false
}

// stackSlotFor reserves the stack location of one chunk. The standard
// conventions round every slot to 8 bytes; Apple packs small arguments at
// their natural alignment.
func (b *abiBuilder) stackSlotFor(t ssa.Type) int64 {
	size := int64(t.Size())
	align := size
	if !b.apple {
		if size < 8 {
			size = 8
		}
		if align < 8 {
			align = 8
		}
	}
	b.stack = (b.stack + align - 1) &^ (align - 1)
	off := b.stack
	b.stack += size
	return off
}

func (b *abiBuilder) extFor(t ssa.Type) backend.ExtMode {
	if b.apple && t.IsInt() && t.Bits() < 32 {
		return backend.ExtModeZero
	}
	return backend.ExtModeNone
}

func (b *abiBuilder) assignArg(index int, t ssa.Type) (backend.ABIArg, error) {
	arg := backend.ABIArg{Index: index, Type: t}
	switch {
	case t.IsAggregate():
		return b.assignAggregate(index, t)
	case t == ssa.TypeI128:
		// An i128 occupies an even-aligned register pair.
		b.intIdx = (b.intIdx + 1) &^ 1
		lo, ok1 := b.nextInt()
		hi, ok2 := b.nextInt()
		if ok1 && ok2 {
			arg.Slots = []backend.ABIArgSlot{
				{Kind: backend.ABIArgSlotReg, Reg: lo, Type: ssa.TypeI64},
				{Kind: backend.ABIArgSlotReg, Reg: hi, Type: ssa.TypeI64},
			}
		} else {
			b.stack = (b.stack + 15) &^ 15
			arg.Slots = []backend.ABIArgSlot{
				{Kind: backend.ABIArgSlotStack, Offset: b.stackSlotFor(ssa.TypeI64), Type: ssa.TypeI64},
				{Kind: backend.ABIArgSlotStack, Offset: b.stackSlotFor(ssa.TypeI64), Type: ssa.TypeI64},
			}
		}
		return arg, nil
	case t.IsInt():
		if r, ok := b.nextInt(); ok {
			arg.Slots = []backend.ABIArgSlot{{Kind: backend.ABIArgSlotReg, Reg: r, Type: t, Ext: b.extFor(t)}}
		} else {
			arg.Slots = []backend.ABIArgSlot{{Kind: backend.ABIArgSlotStack, Offset: b.stackSlotFor(t), Type: t, Ext: b.extFor(t)}}
		}
		return arg, nil
	case t.IsFloat(), t.IsVector():
		if r, ok := b.nextFp(t.IsVector()); ok {
			arg.Slots = []backend.ABIArgSlot{{Kind: backend.ABIArgSlotReg, Reg: r, Type: t}}
		} else {
			arg.Slots = []backend.ABIArgSlot{{Kind: backend.ABIArgSlotStack, Offset: b.stackSlotFor(t), Type: t}}
		}
		return arg, nil
	default:
		return arg, fmt.Errorf("%w: %s", backend.ErrUnsupportedType, t)
	}
}

func (b *abiBuilder) assignAggregate(index int, t ssa.Type) (backend.ABIArg, error) {
	arg := backend.ABIArg{Index: index, Type: t}
	layout := b.m.aggLayout(t)

	if homog, n := homogeneousClass(layout); homog != ssa.Type(0) {
		// HFA/HVA: one v-register per member, or the whole aggregate on
		// the stack with no further v-register use.
		if b.fpIdx+n <= b.regs.argFloats {
			for i := 0; i < n; i++ {
				r, _ := b.nextFp(homog.IsVector())
				arg.Slots = append(arg.Slots, backend.ABIArgSlot{Kind: backend.ABIArgSlotReg, Reg: r, Type: homog})
			}
			return arg, nil
		}
		b.fpIdx = b.regs.argFloats
		for i := 0; i < n; i++ {
			arg.Slots = append(arg.Slots, backend.ABIArgSlot{
				Kind: backend.ABIArgSlotStack, Offset: b.stackSlotFor(homog), Type: homog,
			})
		}
		return arg, nil
	}

	if layout.Size <= 16 {
		// Block copy into one or two integer registers; the last chunk is
		// right-padded.
		chunks := int(layout.Size+7) / 8
		if b.intIdx+chunks <= len(b.regs.argInts) {
			for i := 0; i < chunks; i++ {
				r, _ := b.nextInt()
				arg.Slots = append(arg.Slots, backend.ABIArgSlot{Kind: backend.ABIArgSlotReg, Reg: r, Type: ssa.TypeI64})
			}
			return arg, nil
		}
		b.intIdx = len(b.regs.argInts)
		for i := 0; i < chunks; i++ {
			arg.Slots = append(arg.Slots, backend.ABIArgSlot{
				Kind: backend.ABIArgSlotStack, Offset: b.stackSlotFor(ssa.TypeI64), Type: ssa.TypeI64,
			})
		}
		return arg, nil
	}

	// The caller allocates a copy and passes its address.
	arg.Purpose = backend.ABIArgPurposeIndirect
	if r, ok := b.nextInt(); ok {
		arg.Slots = []backend.ABIArgSlot{{Kind: backend.ABIArgSlotReg, Reg: r, Type: ssa.TypePtr}}
	} else {
		arg.Slots = []backend.ABIArgSlot{{Kind: backend.ABIArgSlotStack, Offset: b.stackSlotFor(ssa.TypePtr), Type: ssa.TypePtr}}
	}
	return arg, nil
}

func (b *abiBuilder) assignRet(index int, t ssa.Type) (backend.ABIArg, error) {
	arg := backend.ABIArg{Index: index, Type: t}
	switch {
	case t.IsAggregate():
		layout := b.m.aggLayout(t)
		if homog, n := homogeneousClass(layout); homog != ssa.Type(0) {
			if n <= b.regs.retFloats-b.fpIdx {
				for i := 0; i < n; i++ {
					enc := byte(b.fpIdx)
					b.fpIdx++
					class := regalloc.RegClassFloat
					if homog.IsVector() {
						class = regalloc.RegClassVector
					}
					arg.Slots = append(arg.Slots, backend.ABIArgSlot{
						Kind: backend.ABIArgSlotReg, Reg: regalloc.NewRealReg(class, enc), Type: homog,
					})
				}
				return arg, nil
			}
			return arg, fmt.Errorf("%w: HFA return of %d members", backend.ErrTooManyReturns, n)
		}
		if layout.Size <= 16 {
			chunks := int(layout.Size+7) / 8
			if b.intIdx+chunks <= len(b.regs.retInts) {
				for i := 0; i < chunks; i++ {
					arg.Slots = append(arg.Slots, backend.ABIArgSlot{
						Kind: backend.ABIArgSlotReg, Reg: b.regs.retInts[b.intIdx], Type: ssa.TypeI64,
					})
					b.intIdx++
				}
				return arg, nil
			}
			return arg, fmt.Errorf("%w: aggregate return spills past the return registers", backend.ErrTooManyReturns)
		}
		// Large aggregate: the caller passes a return-slot pointer in x8.
		arg.Purpose = backend.ABIArgPurposeRetPointer
		arg.Slots = []backend.ABIArgSlot{{Kind: backend.ABIArgSlotReg, Reg: x8, Type: ssa.TypePtr}}
		*b.retArgs = append(*b.retArgs, backend.ABIArg{
			Index:   -1,
			Type:    ssa.TypePtr,
			Purpose: backend.ABIArgPurposeRetPointer,
			Slots:   []backend.ABIArgSlot{{Kind: backend.ABIArgSlotReg, Reg: x8, Type: ssa.TypePtr}},
		})
		return arg, nil
	case t == ssa.TypeI128:
		if b.intIdx+2 <= len(b.regs.retInts) {
			arg.Slots = []backend.ABIArgSlot{
				{Kind: backend.ABIArgSlotReg, Reg: b.regs.retInts[b.intIdx], Type: ssa.TypeI64},
				{Kind: backend.ABIArgSlotReg, Reg: b.regs.retInts[b.intIdx+1], Type: ssa.TypeI64},
			}
			b.intIdx += 2
			return arg, nil
		}
		return arg, fmt.Errorf("%w: i128 return", backend.ErrTooManyReturns)
	case t.IsInt():
		if b.intIdx < len(b.regs.retInts) {
			arg.Slots = []backend.ABIArgSlot{{Kind: backend.ABIArgSlotReg, Reg: b.regs.retInts[b.intIdx], Type: t}}
			b.intIdx++
			return arg, nil
		}
		return arg, fmt.Errorf("%w: integer result %d", backend.ErrTooManyReturns, index)
	case t.IsFloat(), t.IsVector():
		if b.fpIdx < b.regs.retFloats {
			class := regalloc.RegClassFloat
			if t.IsVector() {
				class = regalloc.RegClassVector
			}
			arg.Slots = []backend.ABIArgSlot{{Kind: backend.ABIArgSlotReg, Reg: regalloc.NewRealReg(class, byte(b.fpIdx)), Type: t}}
			b.fpIdx++
			return arg, nil
		}
		return arg, fmt.Errorf("%w: float result %d", backend.ErrTooManyReturns, index)
	default:
		return arg, fmt.Errorf("%w: %s", backend.ErrUnsupportedType, t)
	}
}

// homogeneousClass reports the member type when the layout is an HFA or
// HVA: one to four members of one floating-point or vector type.
func homogeneousClass(layout *ssa.AggregateLayout) (ssa.Type, int) {
	n := len(layout.Fields)
	if n == 0 || n > 4 {
		return 0, 0
	}
	first := layout.Fields[0].Type
	if !first.IsFloat() && !first.IsVector() {
		return 0, 0
	}
	for _, f := range layout.Fields[1:] {
		if f.Type != first {
			return 0, 0
		}
	}
	return first, n
}

func (m *machine) aggLayout(t ssa.Type) *ssa.AggregateLayout {
	return m.compiler.SSABuilder().AggregateLayoutOf(t)
}
