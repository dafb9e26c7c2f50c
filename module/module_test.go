package module

import (
	"fmt"
	"testing"

	"yama/constpool"
	"yama/typedesc"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func emptyTable() *typedesc.Descriptor {
	b := constpool.NewBuilder()
	return typedesc.New("Int", typedesc.KindPrimitive, b.Seal())
}

func TestBuildAndLookup(t *testing.T) {
	b := NewBuilder()
	d := emptyTable()
	assert(t, b.Add(d) == nil, "unexpected add error")

	m, err := b.Finish()
	assert(t, err == nil, "unexpected finish error: %v", err)
	assert(t, m.Len() == 1, "expected 1 descriptor, got %d", m.Len())

	got, ok := m.Lookup("Int")
	assert(t, ok, "expected lookup to succeed")
	assert(t, got == d, "expected same descriptor back")

	_, ok = m.Lookup("Missing")
	assert(t, !ok, "expected missing lookup to fail")
}

func TestNamesAndDescriptorsPreserveInsertionOrder(t *testing.T) {
	b := NewBuilder()
	first := typedesc.New("First", typedesc.KindPrimitive, constpool.NewBuilder().Seal())
	second := typedesc.New("Second", typedesc.KindPrimitive, constpool.NewBuilder().Seal())
	assert(t, b.Add(first) == nil, "unexpected add error")
	assert(t, b.Add(second) == nil, "unexpected add error")

	m, err := b.Finish()
	assert(t, err == nil, "unexpected finish error: %v", err)

	names := m.Names()
	assert(t, len(names) == 2 && names[0] == "First" && names[1] == "Second", "got %v", names)

	descs := m.Descriptors()
	assert(t, len(descs) == 2 && descs[0] == first && descs[1] == second, "unexpected descriptor order")
}

func TestDuplicateNameRejected(t *testing.T) {
	b := NewBuilder()
	assert(t, b.Add(emptyTable()) == nil, "unexpected error")
	err := b.Add(emptyTable())
	assert(t, err != nil, "expected duplicate-name error")
}

func TestMethodRequiresOwnerStruct(t *testing.T) {
	b := NewBuilder()
	ct := constpool.NewBuilder().Seal()
	structDesc := typedesc.New("Counter", typedesc.KindStruct, ct)
	methodDesc := typedesc.New("Counter::bump", typedesc.KindMethod, ct)
	methodDesc.SetCallable(typedesc.CallSig{}, 1, typedesc.CallBody{})

	assert(t, b.Add(structDesc) == nil, "unexpected error")
	assert(t, b.Add(methodDesc) == nil, "unexpected error")

	m, err := b.Finish()
	assert(t, err == nil, "unexpected finish error: %v", err)
	assert(t, m.Has("Counter::bump"), "expected method present")
}

func TestOrphanMethodRejected(t *testing.T) {
	b := NewBuilder()
	ct := constpool.NewBuilder().Seal()
	methodDesc := typedesc.New("Ghost::bump", typedesc.KindMethod, ct)
	assert(t, b.Add(methodDesc) == nil, "unexpected error")

	_, err := b.Finish()
	assert(t, err != nil, "expected orphan-method error")
}

func TestAddAfterFinishPanics(t *testing.T) {
	b := NewBuilder()
	_, err := b.Finish()
	assert(t, err == nil, "unexpected finish error: %v", err)

	defer func() {
		r := recover()
		assert(t, r != nil, "expected panic on add after finish")
	}()
	b.Add(emptyTable())
}
