// Package hoist is a just-in-time compiler back end: it consumes a
// verified SSA function and produces relocatable AArch64 machine code
// together with the metadata a runtime needs to link, execute, and unwind
// it.
//
// The core is stateless across calls: every compilation owns its arenas,
// code buffer and allocator state, so independent functions may compile on
// independent goroutines with no shared mutable state.
package hoist

import (
	"errors"
	"fmt"

	"github.com/joelreymont/hoist/asm"
	"github.com/joelreymont/hoist/backend"
	"github.com/joelreymont/hoist/backend/isa/arm64"
	"github.com/joelreymont/hoist/ssa"
	"github.com/joelreymont/hoist/unwind"
)

// ErrInternalInvariant is reported when a documented invariant fails at
// runtime: a bug in the compiler, not in the input.
var ErrInternalInvariant = errors.New("internal invariant violated")

// Arch enumerates the supported instruction sets.
type Arch byte

const (
	ArchAArch64 Arch = iota
)

// OS enumerates the supported platforms.
type OS byte

const (
	OSLinux OS = iota
	OSDarwin
)

// Target is the compilation target triple.
type Target struct {
	Arch Arch
	OS   OS
}

// OptLevel is a code-generation hint: it gates frame elision and never
// changes semantics. Lowering-rule selection does not depend on it.
type OptLevel byte

const (
	OptNone OptLevel = iota
	OptSpeed
	OptSize
	OptSpeedAndSize
)

// Features toggles optional ISA extensions.
type Features struct {
	LSE bool
	PAC bool
	BTI bool
}

// Options configures one compilation.
type Options struct {
	OptLevel OptLevel
	Features Features
}

// TrapSite is one recorded trap location.
type TrapSite struct {
	Offset uint32
	Code   ssa.TrapCode
}

// CompiledCode is the artifact of one function compilation.
type CompiledCode struct {
	// Code is the relocatable machine code.
	Code []byte
	// Relocs are the external relocations for the linker.
	Relocs []asm.Reloc
	// Traps are the recorded trap sites.
	Traps []TrapSite
	// FrameSize is the total stack-frame size in bytes.
	FrameSize int64
	// Unwind is the DWARF unwind byte sequence: CIE + FDE and, for
	// exception-enabled functions, the LSDA.
	Unwind []byte
	// SourceOffsets maps source positions to code offsets when the
	// function carried sequence points.
	SourceOffsets []asm.SourceOffset
}

// Compile verifies and compiles one SSA function for the target.
//
// On any error no partial artifact is returned; the single error value is
// matched against the package sentinels (ssa.ErrInvalidSSA,
// backend.ErrUnhandledInstruction, backend.ErrUnsupportedType,
// backend.ErrUnsupportedConvention, backend.ErrTooManyReturns,
// regalloc.ErrImpossibleConstraint, asm.ErrLabelOutOfRange,
// ErrInternalInvariant) with errors.Is.
func Compile(fn ssa.Builder, target Target, opts Options) (compiled *CompiledCode, err error) {
	if target.Arch != ArchAArch64 {
		return nil, fmt.Errorf("%w: arch %d", backend.ErrUnsupportedConvention, target.Arch)
	}
	if err := fn.Verify(); err != nil {
		return nil, err
	}

	// Invariant failures inside the pipeline assert with panics; none may
	// cross the API boundary.
	defer func() {
		if r := recover(); r != nil {
			compiled = nil
			err = fmt.Errorf("%w: %v", ErrInternalInvariant, r)
		}
	}()

	mach := arm64.NewMachine(arm64.Config{
		Apple: target.OS == OSDarwin,
		Features: arm64.Features{
			LSE: opts.Features.LSE,
			PAC: opts.Features.PAC,
			BTI: opts.Features.BTI,
		},
		OptLevel: arm64.OptLevel(opts.OptLevel),
	})
	compiler := backend.NewCompiler(mach, fn)
	buf := asm.NewBuffer()

	res, err := compiler.Compile(buf)
	if err != nil {
		return nil, err
	}

	out := &CompiledCode{
		Code:          append([]byte(nil), buf.Data()...),
		Relocs:        append([]asm.Reloc(nil), buf.Relocs()...),
		FrameSize:     res.FrameSize,
		Unwind:        unwind.Emit(res.Frame),
		SourceOffsets: append([]asm.SourceOffset(nil), buf.SourceOffsets()...),
	}
	for _, t := range buf.Traps() {
		out.Traps = append(out.Traps, TrapSite{Offset: t.Offset, Code: ssa.TrapCode(t.Code)})
	}
	return out, nil
}
