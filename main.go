// Command yama runs one of the built-in example programs (examples
// package) against a fresh domain and prints its result. It exists to give
// the vm/domain/verifier stack a runnable entry point; the programs it runs
// are hand-built descriptor graphs, not compiled source, since no compiler
// front-end is implemented here (see compiler.Compiler).
package main

import (
	"flag"
	"fmt"
	"os"

	"yama/domain"
	"yama/examples"
	"yama/module"
	"yama/parcel"
	"yama/scalar"
	"yama/vm"
)

// selfHead is the parcel head the demo module is installed under; its
// functions are addressed as "demo:factorial" / "demo:counter".
const selfHead = "demo"

var (
	fn            = flag.String("fn", "factorial", "which example to run: factorial or counter")
	n             = flag.Uint64("n", 10, "argument passed to the example")
	maxLocals     = flag.Int("max-locals", 8, "user-frame register capacity")
	maxCallFrames = flag.Int("max-call-frames", 256, "call-stack depth limit, user frame included")
)

func init() {
	flag.Parse()
}

// buildDemoDomain installs the requested example under selfHead, returning
// its fully-qualified entry-point name alongside the domain it was
// installed into.
func buildDemoDomain(which string) (*domain.Domain, string, error) {
	var mod *module.Module
	var err error
	var entry string

	switch which {
	case "factorial":
		mod, err = examples.BuildFactorial()
		entry = selfHead + ":factorial"
	case "counter":
		mod, err = examples.BuildCounter()
		entry = selfHead + ":counter"
	default:
		return nil, "", fmt.Errorf("unknown example %q (want factorial or counter)", which)
	}
	if err != nil {
		return nil, "", err
	}

	p := parcel.NewSingle(parcel.Metadata{SelfName: selfHead}, mod)
	dom := domain.New()
	if err := dom.Apply(parcel.NewBatch().Install(selfHead, p)); err != nil {
		return nil, "", err
	}
	return dom, entry, nil
}

func main() {
	dom, entry, err := buildDemoDomain(*fn)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// Backstop against a bug escaping as a raw Go panic rather than the
	// ErrPanicked Run already converts a VM-level fault into; nothing in
	// this package's own logic should ever reach it.
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("internal error:", r)
			os.Exit(1)
		}
	}()

	ctx := vm.NewContext(dom, *maxLocals, *maxCallFrames)
	result, err := ctx.Run(entry, scalar.NewUInt(*n))
	if err != nil {
		fmt.Printf("%s(%d) panicked (panics=%d): %v\n", *fn, *n, ctx.Panics(), err)
		os.Exit(1)
	}
	fmt.Printf("%s(%d) = %s\n", *fn, *n, result)
}
