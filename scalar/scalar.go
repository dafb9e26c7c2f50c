// Package scalar implements Yama's tagged scalar value: the only kind of
// data a register can hold. A scalar is either stateless (None, a function
// or method handle), a fixed-width number (Int, UInt, Float), a Bool, a
// Char, or a Type handle.
package scalar

import "fmt"

// Kind tags the payload a Value carries.
type Kind uint8

const (
	KNone Kind = iota
	KInt
	KUInt
	KFloat
	KBool
	KChar
	KType
	KFn
)

func (k Kind) String() string {
	switch k {
	case KNone:
		return "None"
	case KInt:
		return "Int"
	case KUInt:
		return "UInt"
	case KFloat:
		return "Float"
	case KBool:
		return "Bool"
	case KChar:
		return "Char"
	case KType:
		return "Type"
	case KFn:
		return "Fn"
	default:
		return "?Kind?"
	}
}

// TypeHandle is the opaque reference a Value of kind KType or KFn carries.
// It is deliberately defined as an interface here so that the scalar package
// has no dependency on the domain/typedesc packages that produce the
// concrete handle; *domain.Handle satisfies it.
type TypeHandle interface {
	// QualifiedName returns "head:unqualified" or "head:Owner::unqualified".
	QualifiedName() string
}

// Value is a small, comparable-by-construction tagged union. Equality is
// defined as (kind, payload) bit-equality — two Values are equal iff their
// kinds match and their payloads bit-compare equal (NaN follows IEEE: a NaN
// Float never equals another NaN Float, including itself).
type Value struct {
	kind  Kind
	bits  uint64 // Int/UInt/Float payload (raw bits), Bool (0/1), Char (rune)
	thand TypeHandle
}

func None() Value                { return Value{kind: KNone} }
func NewInt(v int64) Value       { return Value{kind: KInt, bits: uint64(v)} }
func NewUInt(v uint64) Value     { return Value{kind: KUInt, bits: v} }
func NewFloat(v float64) Value   { return Value{kind: KFloat, bits: floatBits(v)} }
func NewBool(v bool) Value {
	if v {
		return Value{kind: KBool, bits: 1}
	}
	return Value{kind: KBool, bits: 0}
}

// NewChar is the low-level constructor: per §9 Open Questions, it accepts
// any 32-bit code point pattern, including UTF-16 surrogates and values
// beyond U+10FFFF. Only the literal parser (ParseChar) rejects those.
func NewChar(v rune) Value { return Value{kind: KChar, bits: uint64(uint32(v))} }

func NewType(h TypeHandle) Value { return Value{kind: KType, thand: h} }
func NewFn(h TypeHandle) Value   { return Value{kind: KFn, thand: h} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Int() (int64, bool) {
	if v.kind != KInt {
		return 0, false
	}
	return int64(v.bits), true
}

func (v Value) UInt() (uint64, bool) {
	if v.kind != KUInt {
		return 0, false
	}
	return v.bits, true
}

func (v Value) Float() (float64, bool) {
	if v.kind != KFloat {
		return 0, false
	}
	return floatFromBits(v.bits), true
}

func (v Value) Bool() (bool, bool) {
	if v.kind != KBool {
		return false, false
	}
	return v.bits != 0, true
}

func (v Value) Char() (rune, bool) {
	if v.kind != KChar {
		return 0, false
	}
	return rune(uint32(v.bits)), true
}

func (v Value) TypeHandle() (TypeHandle, bool) {
	if v.kind != KType && v.kind != KFn {
		return nil, false
	}
	return v.thand, true
}

// Equal implements kind-and-payload bit equality. NaN never equals NaN.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KNone:
		return true
	case KFloat:
		return v.bits == o.bits && !isNaNBits(v.bits)
	case KType, KFn:
		if v.thand == nil || o.thand == nil {
			return v.thand == o.thand
		}
		return v.thand.QualifiedName() == o.thand.QualifiedName()
	default:
		return v.bits == o.bits
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", v.kind, v.Format())
}
