// Package constpool implements the indexed constant table every type
// descriptor carries: object constants (embedded scalar literals) and type
// constants (symbolic references to other types, resolved to loaded-type
// handles at link time).
package constpool

import (
	"github.com/samber/lo"

	"yama/scalar"
)

// Kind is one of the exactly nine constant-entry kinds spec.md §3 requires:
// five object kinds and four type kinds (one per type-descriptor kind).
type Kind uint8

const (
	KObjInt Kind = iota
	KObjUInt
	KObjFloat
	KObjBool
	KObjChar
	KTypePrimitive
	KTypeFunction
	KTypeMethod
	KTypeStruct
)

// IsObjectConst and IsTypeConst classify a Kind; exactly one is true.
func (k Kind) IsObjectConst() bool { return k <= KObjChar }
func (k Kind) IsTypeConst() bool   { return !k.IsObjectConst() }

func (k Kind) String() string {
	switch k {
	case KObjInt:
		return "obj_int"
	case KObjUInt:
		return "obj_uint"
	case KObjFloat:
		return "obj_float"
	case KObjBool:
		return "obj_bool"
	case KObjChar:
		return "obj_char"
	case KTypePrimitive:
		return "type_primitive"
	case KTypeFunction:
		return "type_function"
	case KTypeMethod:
		return "type_method"
	case KTypeStruct:
		return "type_struct"
	default:
		return "?unknown-const-kind?"
	}
}

// CallSig is a symbolic call signature: parameter and return indices into
// the *same* constant table, each of which must (after descriptor-layer
// verification) point at a type constant.
type CallSig struct {
	Params []int
	Return int
}

// Entry is one constant-table slot. Object and QualName/Sig are populated
// according to Kind; Resolved is nil until the domain loader links the
// owning descriptor (§4.5 step 6).
type Entry struct {
	Kind     Kind
	Object   scalar.Value
	QualName string
	Sig      *CallSig // non-nil only for KTypeFunction / KTypeMethod
	Resolved scalar.TypeHandle
}

// Table is a sealed constant table, produced by Builder.Seal and owned by
// exactly one type descriptor.
type Table struct {
	entries []Entry
}

func (t *Table) Len() int { return len(t.entries) }

// Get returns entry i and whether i is in bounds.
func (t *Table) Get(i int) (Entry, bool) {
	if i < 0 || i >= len(t.entries) {
		return Entry{}, false
	}
	return t.entries[i], true
}

func (t *Table) IsObjectConst(i int) bool {
	e, ok := t.Get(i)
	return ok && e.Kind.IsObjectConst()
}

func (t *Table) IsTypeConst(i int) bool {
	e, ok := t.Get(i)
	return ok && e.Kind.IsTypeConst()
}

// Object returns the scalar value at i if it is an object constant.
func (t *Table) Object(i int) (scalar.Value, bool) {
	e, ok := t.Get(i)
	if !ok || !e.Kind.IsObjectConst() {
		return scalar.Value{}, false
	}
	return e.Object, true
}

// Resolve freezes the type-constant slot at i to handle h. Per invariant 7
// (spec.md §3), a type-constant slot is resolved exactly once, by the
// domain loader during link; resolving an already-resolved or non-type-const
// slot is a programmer error in the loader and panics rather than
// propagating a data-shaped error, since it can never legitimately happen
// against a table that passed the descriptor layer of verification.
func (t *Table) Resolve(i int, h scalar.TypeHandle) {
	if i < 0 || i >= len(t.entries) {
		panic("constpool: resolve index out of bounds")
	}
	e := &t.entries[i]
	if !e.Kind.IsTypeConst() {
		panic("constpool: resolve called on a non-type constant")
	}
	if e.Resolved != nil {
		panic("constpool: type constant already resolved")
	}
	e.Resolved = h
}

// TypeConstIndices returns the indices of every type-constant slot, in
// table order — used by the domain loader (§4.5 step 6) to know which slots
// still need link-time resolution.
func (t *Table) TypeConstIndices() []int {
	return lo.FilterMap(t.entries, func(e Entry, i int) (int, bool) {
		return i, e.Kind.IsTypeConst()
	})
}

// Unresolved returns whether any type-constant slot still lacks a resolved
// handle.
func (t *Table) Unresolved() bool {
	return lo.ContainsBy(t.TypeConstIndices(), func(i int) bool {
		return t.entries[i].Resolved == nil
	})
}

// Builder accumulates entries with add_<kind> calls; Seal freezes the table.
type Builder struct {
	entries []Entry
	sealed  bool
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) add(e Entry) int {
	if b.sealed {
		panic("constpool: add after seal")
	}
	b.entries = append(b.entries, e)
	return len(b.entries) - 1
}

func (b *Builder) AddInt(v int64) int   { return b.add(Entry{Kind: KObjInt, Object: scalar.NewInt(v)}) }
func (b *Builder) AddUInt(v uint64) int { return b.add(Entry{Kind: KObjUInt, Object: scalar.NewUInt(v)}) }
func (b *Builder) AddFloat(v float64) int {
	return b.add(Entry{Kind: KObjFloat, Object: scalar.NewFloat(v)})
}
func (b *Builder) AddBool(v bool) int { return b.add(Entry{Kind: KObjBool, Object: scalar.NewBool(v)}) }
func (b *Builder) AddChar(v rune) int { return b.add(Entry{Kind: KObjChar, Object: scalar.NewChar(v)}) }

func (b *Builder) AddPrimitive(qualName string) int {
	return b.add(Entry{Kind: KTypePrimitive, QualName: qualName})
}

func (b *Builder) AddStruct(qualName string) int {
	return b.add(Entry{Kind: KTypeStruct, QualName: qualName})
}

func (b *Builder) AddFunction(qualName string, params []int, ret int) int {
	return b.add(Entry{Kind: KTypeFunction, QualName: qualName, Sig: &CallSig{Params: params, Return: ret}})
}

func (b *Builder) AddMethod(qualName string, params []int, ret int) int {
	return b.add(Entry{Kind: KTypeMethod, QualName: qualName, Sig: &CallSig{Params: params, Return: ret}})
}

// Seal freezes the builder and returns the resulting table. The builder
// must not be used again afterward.
func (b *Builder) Seal() *Table {
	b.sealed = true
	t := &Table{entries: make([]Entry, len(b.entries))}
	copy(t.entries, b.entries)
	return t
}
