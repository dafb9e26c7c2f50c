// Package typedesc implements the immutable type descriptor: the record
// describing one primitive, function, method, or struct type, as produced
// by a compiler or hand-built by host code, consumed by the verifier and
// domain packages.
package typedesc

import (
	"strings"

	"yama/bytecode"
	"yama/constpool"
	"yama/scalar"
)

// Kind is a type descriptor's kind.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindFunction
	KindMethod
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindStruct:
		return "struct"
	default:
		return "?unknown-kind?"
	}
}

func (k Kind) IsCallable() bool { return k == KindFunction || k == KindMethod }

// PrimitiveTag names one of the seven built-in primitives plus Type.
type PrimitiveTag uint8

const (
	PrimNone PrimitiveTag = iota
	PrimInt
	PrimUInt
	PrimFloat
	PrimBool
	PrimChar
	PrimType
	PrimFn
)

func (p PrimitiveTag) String() string {
	switch p {
	case PrimNone:
		return "None"
	case PrimInt:
		return "Int"
	case PrimUInt:
		return "UInt"
	case PrimFloat:
		return "Float"
	case PrimBool:
		return "Bool"
	case PrimChar:
		return "Char"
	case PrimType:
		return "Type"
	case PrimFn:
		return "Fn"
	default:
		return "?unknown-primitive?"
	}
}

// CallSig is a call signature: parameter and return constant-table indices,
// each of which must refer to a type constant in the owning table (spec.md
// §3).
type CallSig struct {
	Params []int
	Return int
}

// CallBody is the sum type from §9 Design Notes: a callable is either
// interpreted bytecode or a host-native function, never both.
type CallBody struct {
	Bytecode []bytecode.Instruction
	Native   NativeFunc
}

// NativeFunc is a host call function. The single argument is an opaque
// command-API handle; vm.Context implements it. Declared as an interface
// here (rather than importing package vm) to avoid a typedesc<->vm import
// cycle, since vm.Context itself holds loaded *Descriptor values. Per
// spec.md §7, the only runtime failure mode is a panic: a CommandAPI
// method that would misbehave (bad slot, overflow, type mismatch) panics
// through Context.Panic rather than returning a Go error, so NativeFunc
// itself returns nothing.
type NativeFunc func(ctx CommandAPI)

// CommandAPI is the low-level command API (§4.7) offered to a native call
// function: puts-at-index (each may target an existing slot or
// bytecode.Newtop to push), pop, nested call/call_nr, ret, and panic.
// vm.Context satisfies this interface structurally. PutType/PutFn/DefaultInit
// take a scalar.TypeHandle directly rather than a constant-table index,
// since native code holds loaded handles, not indices into some bytecode
// body's own constant table.
type CommandAPI interface {
	// Reads: introspection a native call function needs to actually compute
	// something from its arguments rather than merely shuffle registers.
	// Each returns ok=false on an out-of-bounds index rather than panicking
	// (grounded on the original implementation's context::arg/local, which
	// return an empty optional rather than fault on a bad index).
	Arg(i int) (scalar.Value, bool)
	Local(i int) (scalar.Value, bool)
	Args() int
	Locals() int
	MaxLocals() int
	CallFrames() int
	MaxCallFrames() int
	Panicking() bool
	IsUser() bool

	PutNone(dest bytecode.Reg, reinit bool)
	PutInt(dest bytecode.Reg, v int64, reinit bool)
	PutUInt(dest bytecode.Reg, v uint64, reinit bool)
	PutFloat(dest bytecode.Reg, v float64, reinit bool)
	PutBool(dest bytecode.Reg, v bool, reinit bool)
	PutChar(dest bytecode.Reg, v rune, reinit bool)
	PutType(dest bytecode.Reg, h scalar.TypeHandle, reinit bool)
	PutFn(dest bytecode.Reg, h scalar.TypeHandle, reinit bool)
	PutArg(dest bytecode.Reg, argIndex int, reinit bool)
	Copy(src, dest bytecode.Reg, reinit bool)
	DefaultInit(dest bytecode.Reg, h scalar.TypeHandle, reinit bool)
	Pop(n bytecode.Reg)
	Call(argCount int, dest bytecode.Reg, reinit bool)
	CallNR(argCount int)
	Ret(slot bytecode.Reg)
	Panic()
}

// Descriptor is immutable after Build. Member types (Owner::Name) require
// Owner to exist in the same module; that cross-reference is validated by
// the module package, not here.
type Descriptor struct {
	name      string // unqualified; contains "::" iff Kind == KindMethod
	kind      Kind
	consts    *constpool.Table
	sig       CallSig // meaningful only for callables
	maxLocals int
	body      CallBody
	primTag   PrimitiveTag // meaningful only for Kind == KindPrimitive
	ownerHead string       // set by the domain loader after load; empty until then
}

// New builds a descriptor. Callers are expected to have already validated
// name/kind agreement (the verifier's descriptor layer re-checks this
// defensively before a descriptor may be loaded).
func New(name string, kind Kind, consts *constpool.Table) *Descriptor {
	return &Descriptor{name: name, kind: kind, consts: consts}
}

func (d *Descriptor) Name() string              { return d.name }
func (d *Descriptor) Kind() Kind                 { return d.kind }
func (d *Descriptor) Consts() *constpool.Table   { return d.consts }
func (d *Descriptor) CallSig() CallSig           { return d.sig }
func (d *Descriptor) MaxLocals() int             { return d.maxLocals }
func (d *Descriptor) Body() CallBody             { return d.body }
func (d *Descriptor) PrimitiveTag() PrimitiveTag { return d.primTag }

// IsMethodName reports whether a raw unqualified name is in `Owner::Name`
// form.
func IsMethodName(name string) bool { return strings.Contains(name, "::") }

// OwnerOf splits a method name into (owner, member). Only meaningful when
// IsMethodName(name) is true.
func OwnerOf(name string) (owner, member string) {
	i := strings.Index(name, "::")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+2:]
}

// SetCallable attaches the call signature, max_locals, and body to a
// function or method descriptor. Build-time only — not called after the
// descriptor is installed into a module.
func (d *Descriptor) SetCallable(sig CallSig, maxLocals int, body CallBody) {
	d.sig = sig
	d.maxLocals = maxLocals
	d.body = body
}

// SetPrimitive attaches the primitive tag to a primitive descriptor.
func (d *Descriptor) SetPrimitive(tag PrimitiveTag) {
	d.primTag = tag
}

// SetOwnerHead records the head name of the parcel this descriptor's module
// was loaded under. Called once by the domain loader.
func (d *Descriptor) SetOwnerHead(head string) { d.ownerHead = head }

func (d *Descriptor) OwnerHead() string { return d.ownerHead }

// IsBytecode reports whether the callable's body is dispatched through the
// bytecode interpreter (as opposed to a native call function).
func (b CallBody) IsBytecode() bool { return b.Native == nil }
