package verifier

import (
	"yama/constpool"
	"yama/scalar"
)

// regType is the verifier's static approximation of a register's value: a
// scalar kind plus, for Type/Fn-kind registers, the identity of the
// referenced type (its qualified name) and, for Fn-kind registers, the
// call signature to check call-site argument/return agreement against.
// The lattice is flat: two regTypes agree only if their kinds match, their
// idents match (except for Type-kind registers), and both or neither carry
// a signature; signature contents and sigTable are not compared.
type regType struct {
	kind     scalar.Kind
	ident    string
	sig      *constpool.CallSig
	sigTable *constpool.Table // the table sig's indices are relative to
}

func (a regType) equal(b regType) bool {
	if a.kind != b.kind {
		return false
	}
	// Every Type value shares the same static type (the Type primitive)
	// regardless of which type it references (spec.md §4.6: R(a) need only
	// be the Type primitive, reinit or not), so identity is not part of
	// the coherence/overwrite check for KType-kind registers.
	if a.kind != scalar.KType && a.ident != b.ident {
		return false
	}
	if (a.sig == nil) != (b.sig == nil) {
		return false
	}
	return true
}

// abstractFrame is the incoming/outgoing register state at one program
// point: a slice of regType, one per live register, in index order.
type abstractFrame struct {
	regs []regType
}

func (f abstractFrame) clone() abstractFrame {
	out := make([]regType, len(f.regs))
	copy(out, f.regs)
	return abstractFrame{regs: out}
}

// equal implements the coherence check: same register count, same type
// per slot.
func (f abstractFrame) equal(o abstractFrame) bool {
	if len(f.regs) != len(o.regs) {
		return false
	}
	for i := range f.regs {
		if !f.regs[i].equal(o.regs[i]) {
			return false
		}
	}
	return true
}

// instantiatedRegType computes the static type a value takes on when a type
// constant at idx is instantiated (default_init, put_arg, call-signature
// matching) rather than merely referenced (put_type_const). Structs are not
// instantiable as scalar values in this type system, so a struct-kind
// constant yields ok=false.
func instantiatedRegType(table *constpool.Table, idx int) (regType, bool) {
	entry, ok := table.Get(idx)
	if !ok || entry.Kind.IsObjectConst() {
		return regType{}, false
	}
	switch entry.Kind {
	case constpool.KTypePrimitive:
		k, ok := primitiveKindFromQualName(entry.QualName)
		if !ok {
			return regType{}, false
		}
		return regType{kind: k}, true
	case constpool.KTypeFunction, constpool.KTypeMethod:
		return regType{kind: scalar.KFn, ident: entry.QualName, sig: entry.Sig, sigTable: table}, true
	default:
		return regType{}, false
	}
}

// typeRefRegType computes the type of a put_type_const destination: always
// a Type-kind value carrying the referenced type constant's identity,
// regardless of what kind of type it refers to.
func typeRefRegType(table *constpool.Table, idx int) (regType, bool) {
	entry, ok := table.Get(idx)
	if !ok || entry.Kind.IsObjectConst() {
		return regType{}, false
	}
	return regType{kind: scalar.KType, ident: entry.QualName}, true
}

// objectConstRegType computes the type of a put_const destination.
func objectConstRegType(table *constpool.Table, idx int) (regType, bool) {
	entry, ok := table.Get(idx)
	if !ok || !entry.Kind.IsObjectConst() {
		return regType{}, false
	}
	switch entry.Kind {
	case constpool.KObjInt:
		return regType{kind: scalar.KInt}, true
	case constpool.KObjUInt:
		return regType{kind: scalar.KUInt}, true
	case constpool.KObjFloat:
		return regType{kind: scalar.KFloat}, true
	case constpool.KObjBool:
		return regType{kind: scalar.KBool}, true
	case constpool.KObjChar:
		return regType{kind: scalar.KChar}, true
	default:
		return regType{}, false
	}
}

// primitiveKindFromQualName maps a built-in primitive's qualified name
// (e.g. "builtin:Int") to its scalar.Kind. Only the built-in head carries
// primitive types in this domain model; see domain.go's reserved
// "builtin" head.
func primitiveKindFromQualName(qualName string) (scalar.Kind, bool) {
	head, rest, ok := splitQualName(qualName)
	if !ok || head != builtinHead {
		return 0, false
	}
	switch rest {
	case "None":
		return scalar.KNone, true
	case "Int":
		return scalar.KInt, true
	case "UInt":
		return scalar.KUInt, true
	case "Float":
		return scalar.KFloat, true
	case "Bool":
		return scalar.KBool, true
	case "Char":
		return scalar.KChar, true
	default:
		return 0, false
	}
}
