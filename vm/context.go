// Package vm implements the execution context: the call stack, the shared
// register stack, the low-level command API (typedesc.CommandAPI), the
// bytecode dispatch loop, and the panic propagation protocol described in
// spec.md §4.7.
package vm

import (
	"yama/bytecode"
	"yama/constpool"
	"yama/domain"
	"yama/scalar"
	"yama/typedesc"
)

// frame is one active call. desc is nil only for the bottom sentinel (the
// user frame): no bytecode, no arguments, no owning descriptor. argBase and
// base both index into Context.regs: [argBase, base) holds the callable
// plus its arguments (read-only via PutArg), [base, ...) holds the frame's
// own local registers, grown by push (Newtop) and shrunk by Pop.
type frame struct {
	desc      *typedesc.Descriptor
	argBase   int
	base      int
	returned  bool
	retVal    scalar.Value
	panicking bool
}

// Context is one independent execution: its own call stack and register
// stack over a shared *domain.Domain. Not safe for concurrent use by
// multiple goroutines against the same Context.
type Context struct {
	dom           *domain.Domain
	regs          []scalar.Value
	frames        []*frame
	maxCallFrames int
	userMaxLocals int
	panics        uint64
}

// NewContext returns a fresh context with only the user frame on its call
// stack. userMaxLocals bounds how many registers host code may push
// directly into the user frame; maxCallFrames bounds total call depth
// (user frame included) before a call itself panics with overflow.
func NewContext(dom *domain.Domain, userMaxLocals, maxCallFrames int) *Context {
	return &Context{
		dom:           dom,
		frames:        []*frame{{}},
		maxCallFrames: maxCallFrames,
		userMaxLocals: userMaxLocals,
	}
}

func (ctx *Context) Domain() *domain.Domain { return ctx.dom }

// Panics returns the number of distinct panics raised over this context's
// lifetime.
func (ctx *Context) Panics() uint64 { return ctx.panics }

// Depth returns the current call-stack depth, user frame included.
func (ctx *Context) Depth() int { return len(ctx.frames) }

func (ctx *Context) cur() *frame { return ctx.frames[len(ctx.frames)-1] }

func (ctx *Context) regCount(f *frame) int { return len(ctx.regs) - f.base }

func (ctx *Context) maxLocalsOf(f *frame) int {
	if f.desc == nil {
		return ctx.userMaxLocals
	}
	return f.desc.MaxLocals()
}

// Arg reads argument i (0 is the callable itself) of the current frame's
// invocation without copying it into a register.
func (ctx *Context) Arg(i int) (scalar.Value, bool) {
	f := ctx.cur()
	argCount := f.base - f.argBase
	if f.desc == nil || i < 0 || i >= argCount {
		return scalar.Value{}, false
	}
	return ctx.regs[f.argBase+i], true
}

// Local reads local register i of the current frame.
func (ctx *Context) Local(i int) (scalar.Value, bool) {
	f := ctx.cur()
	if i < 0 || i >= ctx.regCount(f) {
		return scalar.Value{}, false
	}
	return ctx.regs[f.base+i], true
}

// Args returns the current frame's argument count (0 in the user frame).
func (ctx *Context) Args() int {
	f := ctx.cur()
	if f.desc == nil {
		return 0
	}
	return f.base - f.argBase
}

// Locals returns the current frame's live local-register count.
func (ctx *Context) Locals() int { return ctx.regCount(ctx.cur()) }

// MaxLocals returns the current frame's local-register capacity.
func (ctx *Context) MaxLocals() int { return ctx.maxLocalsOf(ctx.cur()) }

// CallFrames returns the current call-stack depth, user frame included.
func (ctx *Context) CallFrames() int { return len(ctx.frames) }

func (ctx *Context) MaxCallFrames() int { return ctx.maxCallFrames }

// Panicking reports whether the current frame is already unwinding.
func (ctx *Context) Panicking() bool { return ctx.cur().panicking }

// IsUser reports whether the current frame is the bottom sentinel.
func (ctx *Context) IsUser() bool { return ctx.cur().desc == nil }

// vmPanicSignal is the sentinel panicked with at every VM-level fault.
// Recovered once per call boundary (invoke) and once at Run's outermost
// boundary — see panic.go.
type vmPanicSignal struct{}

// raisePanic marks the current frame panicking and unwinds it via a Go
// panic. The counter increments once per distinct panic; a frame already
// panicking when this is called again (spec.md §4.7's "second call within
// the same invocation is silently absorbed") re-unwinds without counting
// again, though in practice no code runs again in a frame once it starts
// unwinding.
func (ctx *Context) raisePanic() {
	f := ctx.cur()
	if f.panicking {
		panic(vmPanicSignal{})
	}
	f.panicking = true
	ctx.panics++
	panic(vmPanicSignal{})
}

// propagatePanic marks the current frame panicking because a call it made
// came back bad, without incrementing the counter a second time for the
// same originating panic.
func (ctx *Context) propagatePanic() {
	ctx.cur().panicking = true
	panic(vmPanicSignal{})
}

// write implements every "put at index" operation's shared contract: a
// Newtop destination pushes (panicking on overflow), an existing-slot
// destination must be in bounds and, unless reinit, already hold a value of
// the same Kind.
func (ctx *Context) write(dest bytecode.Reg, v scalar.Value, reinit bool) {
	f := ctx.cur()
	if dest == bytecode.Newtop {
		if ctx.regCount(f) >= ctx.maxLocalsOf(f) {
			ctx.raisePanic()
		}
		ctx.regs = append(ctx.regs, v)
		return
	}
	if int(dest) >= ctx.regCount(f) {
		ctx.raisePanic()
	}
	idx := f.base + int(dest)
	if !reinit && ctx.regs[idx].Kind() != v.Kind() {
		ctx.raisePanic()
	}
	ctx.regs[idx] = v
}

func (ctx *Context) PutNone(dest bytecode.Reg, reinit bool) { ctx.write(dest, scalar.None(), reinit) }

func (ctx *Context) PutInt(dest bytecode.Reg, v int64, reinit bool) {
	ctx.write(dest, scalar.NewInt(v), reinit)
}

func (ctx *Context) PutUInt(dest bytecode.Reg, v uint64, reinit bool) {
	ctx.write(dest, scalar.NewUInt(v), reinit)
}

func (ctx *Context) PutFloat(dest bytecode.Reg, v float64, reinit bool) {
	ctx.write(dest, scalar.NewFloat(v), reinit)
}

func (ctx *Context) PutBool(dest bytecode.Reg, v bool, reinit bool) {
	ctx.write(dest, scalar.NewBool(v), reinit)
}

func (ctx *Context) PutChar(dest bytecode.Reg, v rune, reinit bool) {
	ctx.write(dest, scalar.NewChar(v), reinit)
}

func (ctx *Context) PutType(dest bytecode.Reg, h scalar.TypeHandle, reinit bool) {
	if h == nil {
		ctx.raisePanic()
	}
	ctx.write(dest, scalar.NewType(h), reinit)
}

// PutFn requires h to be a loaded, non-builtin, callable (function or
// method) handle.
func (ctx *Context) PutFn(dest bytecode.Reg, h scalar.TypeHandle, reinit bool) {
	if !callableHandle(h) {
		ctx.raisePanic()
	}
	ctx.write(dest, scalar.NewFn(h), reinit)
}

func callableHandle(h scalar.TypeHandle) bool {
	dh, ok := h.(*domain.Handle)
	return ok && !dh.IsBuiltin() && dh.Descriptor().Kind().IsCallable()
}

// PutArg copies argument argIndex (0 is the callable itself) of the current
// frame's invocation into dest.
func (ctx *Context) PutArg(dest bytecode.Reg, argIndex int, reinit bool) {
	f := ctx.cur()
	argCount := f.base - f.argBase
	if f.desc == nil || argIndex < 0 || argIndex >= argCount {
		ctx.raisePanic()
	}
	ctx.write(dest, ctx.regs[f.argBase+argIndex], reinit)
}

func (ctx *Context) Copy(src, dest bytecode.Reg, reinit bool) {
	f := ctx.cur()
	if int(src) >= ctx.regCount(f) {
		ctx.raisePanic()
	}
	ctx.write(dest, ctx.regs[f.base+int(src)], reinit)
}

// DefaultInit writes the default value of the type referenced by h: zero
// for a primitive, the function/method itself for a callable type. Struct
// types and the Type/Fn meta-primitives have no default and panic.
func (ctx *Context) DefaultInit(dest bytecode.Reg, h scalar.TypeHandle, reinit bool) {
	v, ok := defaultValueForHandle(h)
	if !ok {
		ctx.raisePanic()
	}
	ctx.write(dest, v, reinit)
}

func defaultValueForHandle(h scalar.TypeHandle) (scalar.Value, bool) {
	dh, ok := h.(*domain.Handle)
	if !ok {
		return scalar.Value{}, false
	}
	if dh.IsBuiltin() {
		return defaultForBuiltinName(dh.QualifiedName())
	}
	switch dh.Descriptor().Kind() {
	case typedesc.KindFunction, typedesc.KindMethod:
		return scalar.NewFn(dh), true
	default:
		return scalar.Value{}, false
	}
}

func defaultForBuiltinName(qualName string) (scalar.Value, bool) {
	switch qualName {
	case "builtin:None":
		return scalar.None(), true
	case "builtin:Int":
		return scalar.NewInt(0), true
	case "builtin:UInt":
		return scalar.NewUInt(0), true
	case "builtin:Float":
		return scalar.NewFloat(0), true
	case "builtin:Bool":
		return scalar.NewBool(false), true
	case "builtin:Char":
		return scalar.NewChar(0), true
	default:
		return scalar.Value{}, false // builtin:Type, builtin:Fn: not defaultable
	}
}

func (ctx *Context) Pop(n bytecode.Reg) {
	f := ctx.cur()
	cnt := ctx.regCount(f)
	pn := int(n)
	if pn > cnt {
		pn = cnt
	}
	ctx.regs = ctx.regs[:len(ctx.regs)-pn]
}

// Ret marks the current frame as returning the value at slot. Legal only
// in a non-user frame and at most once per invocation.
func (ctx *Context) Ret(slot bytecode.Reg) {
	f := ctx.cur()
	if f.desc == nil || f.returned {
		ctx.raisePanic()
	}
	if int(slot) >= ctx.regCount(f) {
		ctx.raisePanic()
	}
	f.retVal = ctx.regs[f.base+int(slot)]
	f.returned = true
}

func (ctx *Context) Panic() { ctx.raisePanic() }

// Call consumes the top argCount registers as callable+args, runs the
// callee, and writes its return value into dest.
func (ctx *Context) Call(argCount int, dest bytecode.Reg, reinit bool) {
	retVal := ctx.doCall(argCount)
	ctx.write(dest, retVal, reinit)
}

// CallNR is Call without a result slot.
func (ctx *Context) CallNR(argCount int) {
	ctx.doCall(argCount)
}

// doCall implements spec.md §4.7's call protocol. Every failure mode
// (missing callable, bad arg count/types, call-stack overflow, callee
// exiting without exactly one ret, callee panic) raises through
// raisePanic/propagatePanic and never returns to its caller.
func (ctx *Context) doCall(argCount int) scalar.Value {
	f := ctx.cur()
	if argCount < 1 || argCount > ctx.regCount(f) {
		ctx.raisePanic()
	}
	argBase := len(ctx.regs) - argCount
	calleeVal := ctx.regs[argBase]
	if calleeVal.Kind() != scalar.KFn {
		ctx.raisePanic()
	}
	th, _ := calleeVal.TypeHandle()
	if !callableHandle(th) {
		ctx.raisePanic()
	}
	desc := th.(*domain.Handle).Descriptor()

	params := desc.CallSig().Params
	if len(params) != argCount-1 {
		ctx.raisePanic()
	}
	for i, pidx := range params {
		entry, eok := desc.Consts().Get(pidx)
		wantKind, kok := runtimeRegKind(entry)
		if !eok || !kok || ctx.regs[argBase+1+i].Kind() != wantKind {
			ctx.raisePanic()
		}
	}
	if len(ctx.frames) >= ctx.maxCallFrames {
		ctx.raisePanic()
	}

	callee := &frame{desc: desc, argBase: argBase, base: len(ctx.regs)}
	ctx.frames = append(ctx.frames, callee)
	panicked := ctx.invoke(callee)
	ctx.frames = ctx.frames[:len(ctx.frames)-1]

	retVal := callee.retVal
	ctx.regs = ctx.regs[:argBase]
	if panicked {
		ctx.propagatePanic()
	}
	return retVal
}

// runtimeRegKind computes the scalar.Kind a resolved call-signature entry
// instantiates to, mirroring verifier.instantiatedRegType at runtime.
func runtimeRegKind(entry constpool.Entry) (scalar.Kind, bool) {
	switch entry.Kind {
	case constpool.KTypePrimitive:
		dh, ok := entry.Resolved.(*domain.Handle)
		if !ok {
			return 0, false
		}
		if dh.IsBuiltin() {
			return builtinPrimitiveKind(dh.QualifiedName())
		}
		return primitiveTagKind(dh.Descriptor().PrimitiveTag())
	case constpool.KTypeFunction, constpool.KTypeMethod:
		return scalar.KFn, true
	default:
		return 0, false
	}
}

func builtinPrimitiveKind(qualName string) (scalar.Kind, bool) {
	switch qualName {
	case "builtin:None":
		return scalar.KNone, true
	case "builtin:Int":
		return scalar.KInt, true
	case "builtin:UInt":
		return scalar.KUInt, true
	case "builtin:Float":
		return scalar.KFloat, true
	case "builtin:Bool":
		return scalar.KBool, true
	case "builtin:Char":
		return scalar.KChar, true
	default:
		return 0, false // Type, Fn: not instantiable as a call argument either
	}
}

func primitiveTagKind(tag typedesc.PrimitiveTag) (scalar.Kind, bool) {
	switch tag {
	case typedesc.PrimNone:
		return scalar.KNone, true
	case typedesc.PrimInt:
		return scalar.KInt, true
	case typedesc.PrimUInt:
		return scalar.KUInt, true
	case typedesc.PrimFloat:
		return scalar.KFloat, true
	case typedesc.PrimBool:
		return scalar.KBool, true
	case typedesc.PrimChar:
		return scalar.KChar, true
	default:
		return 0, false
	}
}
