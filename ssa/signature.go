package ssa

import (
	"fmt"
	"strings"
)

// CallConv enumerates the calling conventions a Signature can request.
// The set is closed; the backend rejects conventions it cannot resolve for
// the current target.
type CallConv byte

const (
	// CallConvFast is the internal, non-ABI-stable convention with an
	// enlarged argument-register set and a reduced callee-save set.
	CallConvFast CallConv = iota
	// CallConvTail is like the platform convention but callee-pops stack
	// arguments and permits tail calls.
	CallConvTail
	// CallConvSystemV is the canonical AAPCS64 convention used on
	// AArch64 Linux.
	CallConvSystemV
	// CallConvWindowsFastcall is reserved in the enumeration; the AArch64
	// core does not resolve it.
	CallConvWindowsFastcall
	// CallConvAppleAArch64 is the Apple platform variant of AAPCS64:
	// X18 is reserved, small stack arguments use natural alignment, and
	// callers extend sub-32-bit arguments.
	CallConvAppleAArch64
	// CallConvPreserveAll saves every register except the argument
	// registers; used for infrequently taken slow paths.
	CallConvPreserveAll
)

// String implements fmt.Stringer.
func (c CallConv) String() string {
	switch c {
	case CallConvFast:
		return "fast"
	case CallConvTail:
		return "tail"
	case CallConvSystemV:
		return "system_v"
	case CallConvWindowsFastcall:
		return "windows_fastcall"
	case CallConvAppleAArch64:
		return "apple_aarch64"
	case CallConvPreserveAll:
		return "preserve_all"
	default:
		panic(int(c))
	}
}

// Signature is a function signature: parameter and result types plus the
// calling convention.
type Signature struct {
	// ID is a unique identifier of this signature used to lookup.
	ID SigRef
	// Params and Results are the types of the parameters and results.
	Params, Results []Type

	CallConv CallConv
}

// String implements fmt.Stringer.
func (s *Signature) String() string {
	str := strings.Builder{}
	str.WriteString(s.ID.String())
	str.WriteString(": ")
	str.WriteString(s.CallConv.String())
	str.WriteByte(' ')
	if len(s.Params) > 0 {
		for _, typ := range s.Params {
			str.WriteString(typ.String())
			str.WriteByte(' ')
		}
	} else {
		str.WriteString("() ")
	}
	str.WriteString("-> ")
	if len(s.Results) > 0 {
		for _, typ := range s.Results {
			str.WriteString(typ.String())
			str.WriteByte(' ')
		}
	} else {
		str.WriteString("()")
	}
	return strings.TrimSpace(str.String())
}

func (s *Signature) clone() *Signature {
	cl := *s
	cl.Params = append([]Type(nil), s.Params...)
	cl.Results = append([]Type(nil), s.Results...)
	return &cl
}

var _ = fmt.Stringer(&Signature{})
