package backend

import (
	"fmt"

	"github.com/joelreymont/hoist/backend/regalloc"
	"github.com/joelreymont/hoist/ssa"
)

// ExtMode is the extension applied when a value narrower than its location
// is marshaled.
type ExtMode byte

const (
	ExtModeNone ExtMode = iota
	ExtModeSign
	ExtModeZero
)

// String implements fmt.Stringer.
func (e ExtMode) String() string {
	switch e {
	case ExtModeNone:
		return "none"
	case ExtModeSign:
		return "sign"
	case ExtModeZero:
		return "zero"
	default:
		panic(int(e))
	}
}

// ABIArgSlotKind discriminates register and stack slots.
type ABIArgSlotKind byte

const (
	// ABIArgSlotReg places the chunk in a physical register.
	ABIArgSlotReg ABIArgSlotKind = iota
	// ABIArgSlotStack places the chunk at a signed offset in the argument
	// area.
	ABIArgSlotStack
)

// ABIArgSlot is one location of an argument or return chunk.
type ABIArgSlot struct {
	Kind ABIArgSlotKind
	// Reg is valid if Kind == ABIArgSlotReg.
	Reg regalloc.RealReg
	// Offset is valid if Kind == ABIArgSlotStack: the signed offset from
	// the start of the argument (or return) area.
	Offset int64
	// Type is the type of the chunk held in this slot.
	Type ssa.Type
	// Ext is the extension the producer applies.
	Ext ExtMode
}

// String implements fmt.Stringer.
func (s ABIArgSlot) String() string {
	if s.Kind == ABIArgSlotReg {
		return fmt.Sprintf("reg(%s):%s", s.Reg, s.Type)
	}
	return fmt.Sprintf("stack(%d):%s", s.Offset, s.Type)
}

// ABIArgPurpose distinguishes ordinary arguments from the implicit
// return-slot pointer.
type ABIArgPurpose byte

const (
	ABIArgPurposeNormal ABIArgPurpose = iota
	// ABIArgPurposeIndirect marks an argument (or return) passed via a
	// caller-allocated memory copy whose pointer occupies the slot.
	ABIArgPurposeIndirect
	// ABIArgPurposeRetPointer marks the hidden return-slot pointer.
	ABIArgPurposeRetPointer
)

// ABIArg is the resolved location set of one parameter or return value:
// one or more slots.
type ABIArg struct {
	// Index is the index in the signature.
	Index int
	// Type is the IR type of the whole argument.
	Type ssa.Type
	// Slots are the chunk locations, in ascending chunk order.
	Slots []ABIArgSlot
	// Purpose is how the slots are to be interpreted.
	Purpose ABIArgPurpose
}

// ABISignature is the result of resolving a Signature under a calling
// convention: argument and return locations plus the stack space each side
// of the call consumes.
type ABISignature struct {
	Args, Rets []ABIArg
	// ArgStackSize is the byte size of the outgoing stack-argument area.
	ArgStackSize int64
	// RetStackSize is the byte size of the stack return area.
	RetStackSize int64
	// CalleePop is true when the callee pops the stack arguments (the tail
	// convention).
	CalleePop bool
}

// AlignedArgResultStackSlotSize returns the combined stack space for
// arguments and returns, aligned to 16 bytes as the conventions require.
func (a *ABISignature) AlignedArgResultStackSlotSize() int64 {
	stackSlotSize := a.RetStackSize + a.ArgStackSize
	return (stackSlotSize + 15) &^ 15
}
