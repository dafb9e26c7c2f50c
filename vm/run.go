package vm

import (
	"github.com/pkg/errors"

	"yama/bytecode"
	"yama/scalar"
)

// ErrPanicked is returned by Run when the invocation panicked rather than
// returning cleanly. It carries no detail beyond the fact itself — the only
// runtime diagnostic spec.md defines for a panic is the context's panics
// counter, not a structured trace.
var ErrPanicked = errors.New("vm: invocation panicked")

// Run loads qualName, invokes it from the user frame with args, and reports
// its return value. Grounded on KTStephano-GVM's RunProgram: a single
// top-level deferred recover stands in for
// getDefaultRecoverFuncForVM, converting an unwound vmPanicSignal into a
// plain Go error instead of letting it escape to the caller.
func (ctx *Context) Run(qualName string, args ...scalar.Value) (result scalar.Value, err error) {
	h, lerr := ctx.dom.Load(qualName)
	if lerr != nil {
		return scalar.Value{}, lerr
	}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(vmPanicSignal); !ok {
				panic(r)
			}
			err = ErrPanicked
		}
	}()

	ctx.PutFn(bytecode.Newtop, h, true)
	for _, a := range args {
		ctx.write(bytecode.Newtop, a, true)
	}
	ctx.Call(len(args)+1, bytecode.Newtop, true)

	result = ctx.regs[len(ctx.regs)-1]
	ctx.regs = ctx.regs[:len(ctx.regs)-1]
	return result, nil
}
