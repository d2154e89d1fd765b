// Command hoist is a demonstration driver for the compiler back end: it
// builds a few representative functions through the SSA builder API,
// compiles them for a selectable target, and dumps the artifacts.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/joelreymont/hoist"
	"github.com/joelreymont/hoist/ssa"
)

var version = "dev"

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var (
		osFlag   string
		optFlag  string
		verbose  bool
		withLSE  bool
		withPAC  bool
		withBTI  bool
		demoName string
	)

	root := &cobra.Command{
		Use:   "hoist",
		Short: "AArch64 JIT compiler back end demo driver",
	}

	compile := &cobra.Command{
		Use:   "compile",
		Short: "Compile the built-in demo functions and dump the artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			target := hoist.Target{Arch: hoist.ArchAArch64}
			switch osFlag {
			case "linux":
				target.OS = hoist.OSLinux
			case "darwin":
				target.OS = hoist.OSDarwin
			default:
				return fmt.Errorf("unknown os %q", osFlag)
			}
			opts := hoist.Options{
				Features: hoist.Features{LSE: withLSE, PAC: withPAC, BTI: withBTI},
			}
			switch optFlag {
			case "none":
				opts.OptLevel = hoist.OptNone
			case "speed":
				opts.OptLevel = hoist.OptSpeed
			case "size":
				opts.OptLevel = hoist.OptSize
			default:
				return fmt.Errorf("unknown opt level %q", optFlag)
			}

			for _, d := range demos {
				if demoName != "" && demoName != d.name {
					continue
				}
				start := time.Now()
				compiled, err := hoist.Compile(d.build(), target, opts)
				if err != nil {
					log.WithField("fn", d.name).WithError(err).Error("compilation failed")
					return err
				}
				log.WithFields(logrus.Fields{
					"fn":       d.name,
					"bytes":    len(compiled.Code),
					"frame":    compiled.FrameSize,
					"relocs":   len(compiled.Relocs),
					"traps":    len(compiled.Traps),
					"duration": time.Since(start),
				}).Info("compiled")

				fmt.Printf("%s:\n%s", d.name, hex.Dump(compiled.Code))
				for _, r := range compiled.Relocs {
					fmt.Printf("  reloc %#06x %-14s %s%+d\n", r.Offset, r.Kind, r.Symbol, r.Addend)
				}
				for _, tr := range compiled.Traps {
					fmt.Printf("  trap  %#06x %s\n", tr.Offset, tr.Code)
				}
				log.WithField("unwind_bytes", len(compiled.Unwind)).Debug("unwind info emitted")
			}
			return nil
		},
	}
	compile.Flags().StringVar(&osFlag, "os", "linux", "target OS (linux, darwin)")
	compile.Flags().StringVar(&optFlag, "opt", "none", "optimization level (none, speed, size)")
	compile.Flags().StringVar(&demoName, "fn", "", "compile only the named demo function")
	compile.Flags().BoolVar(&withLSE, "lse", false, "enable LSE atomics")
	compile.Flags().BoolVar(&withPAC, "pac", false, "sign return addresses")
	compile.Flags().BoolVar(&withBTI, "bti", false, "emit BTI landing pads")
	compile.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the driver version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("hoist", version)
		},
	}

	root.AddCommand(compile, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type demo struct {
	name  string
	build func() ssa.Builder
}

var demos = []demo{
	{name: "add_i32", build: buildAddDemo},
	{name: "max_i64", build: buildMaxDemo},
	{name: "checked_div", build: buildDivDemo},
	{name: "call_out", build: buildCallDemo},
}

// add_i32(a, b) = a + b
func buildAddDemo() ssa.Builder {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI32, ssa.TypeI32},
		Results:  []ssa.Type{ssa.TypeI32},
		CallConv: ssa.CallConvSystemV,
	})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	p0 := blk.AddParam(b, ssa.TypeI32)
	p1 := blk.AddParam(b, ssa.TypeI32)
	sum := b.AllocateInstruction().AsBinary(ssa.OpcodeIadd, p0, p1).Insert(b).Return()
	b.AllocateInstruction().AsReturn([]ssa.Value{sum}).Insert(b)
	return b
}

// max_i64(a, b) through a diamond with block parameters.
func buildMaxDemo() ssa.Builder {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI64, ssa.TypeI64},
		Results:  []ssa.Type{ssa.TypeI64},
		CallConv: ssa.CallConvSystemV,
	})
	entry := b.AllocateBasicBlock()
	lesser := b.AllocateBasicBlock()
	join := b.AllocateBasicBlock()

	b.SetCurrentBlock(join)
	res := join.AddParam(b, ssa.TypeI64)
	b.AllocateInstruction().AsReturn([]ssa.Value{res}).Insert(b)

	b.SetCurrentBlock(entry)
	a := entry.AddParam(b, ssa.TypeI64)
	c := entry.AddParam(b, ssa.TypeI64)
	cmp := b.AllocateInstruction().AsIcmp(a, c, ssa.IntegerCmpCondSignedGreaterThan).Insert(b).Return()
	b.AllocateInstruction().AsBrnz(cmp, []ssa.Value{a}, join).Insert(b)
	b.AllocateInstruction().AsJump(nil, lesser).Insert(b)

	b.SetCurrentBlock(lesser)
	b.AllocateInstruction().AsJump([]ssa.Value{c}, join).Insert(b)
	return b
}

// checked_div(a, b) = a / b with the trapping checks.
func buildDivDemo() ssa.Builder {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI64, ssa.TypeI64},
		Results:  []ssa.Type{ssa.TypeI64},
		CallConv: ssa.CallConvSystemV,
	})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	p0 := blk.AddParam(b, ssa.TypeI64)
	p1 := blk.AddParam(b, ssa.TypeI64)
	q := b.AllocateInstruction().AsBinary(ssa.OpcodeSdiv, p0, p1).Insert(b).Return()
	b.AllocateInstruction().AsReturn([]ssa.Value{q}).Insert(b)
	return b
}

// call_out() = external_fn(7)
func buildCallDemo() ssa.Builder {
	b := ssa.NewBuilder()
	b.SetSignature(&ssa.Signature{Results: []ssa.Type{ssa.TypeI64}, CallConv: ssa.CallConvSystemV})
	sig := b.DeclareSignature(&ssa.Signature{
		Params:   []ssa.Type{ssa.TypeI64},
		Results:  []ssa.Type{ssa.TypeI64},
		CallConv: ssa.CallConvSystemV,
	})
	callee := b.DeclareFunction("external_fn", sig)

	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)
	arg := b.AllocateInstruction().AsIconst64(7).Insert(b).Return()
	call := b.AllocateInstruction().AsCall(callee, sig, []ssa.Value{arg}).Insert(b)
	b.AllocateInstruction().AsReturn([]ssa.Value{call.Return()}).Insert(b)
	return b
}
