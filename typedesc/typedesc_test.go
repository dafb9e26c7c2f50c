package typedesc

import (
	"fmt"
	"testing"

	"yama/bytecode"
	"yama/constpool"
	"yama/scalar"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func TestPrimitiveDescriptor(t *testing.T) {
	b := constpool.NewBuilder()
	table := b.Seal()
	d := New("Int", KindPrimitive, table)
	d.SetPrimitive(PrimInt)

	assert(t, d.Kind() == KindPrimitive, "expected primitive kind")
	assert(t, d.PrimitiveTag() == PrimInt, "expected PrimInt tag, got %v", d.PrimitiveTag())
	assert(t, !d.Kind().IsCallable(), "primitive must not be callable")
}

func TestFunctionDescriptorBody(t *testing.T) {
	b := constpool.NewBuilder()
	intIdx := b.AddPrimitive("self:Int")
	table := b.Seal()

	code := []bytecode.Instruction{bytecode.NewRet(0)}
	d := New("add", KindFunction, table)
	d.SetCallable(CallSig{Params: []int{intIdx, intIdx}, Return: intIdx}, 3, CallBody{Bytecode: code})

	assert(t, d.Kind().IsCallable(), "function must be callable")
	assert(t, d.Body().IsBytecode(), "expected bytecode body")
	assert(t, len(d.CallSig().Params) == 2, "expected 2 params, got %d", len(d.CallSig().Params))
	assert(t, d.MaxLocals() == 3, "got %d", d.MaxLocals())
}

type stubCommandAPI struct{ putNoneCalls int }

func (s *stubCommandAPI) Arg(int) (scalar.Value, bool)   { return scalar.Value{}, false }
func (s *stubCommandAPI) Local(int) (scalar.Value, bool) { return scalar.Value{}, false }
func (s *stubCommandAPI) Args() int                      { return 0 }
func (s *stubCommandAPI) Locals() int                    { return 0 }
func (s *stubCommandAPI) MaxLocals() int                 { return 0 }
func (s *stubCommandAPI) CallFrames() int                { return 1 }
func (s *stubCommandAPI) MaxCallFrames() int             { return 1 }
func (s *stubCommandAPI) Panicking() bool                { return false }
func (s *stubCommandAPI) IsUser() bool                   { return false }

func (s *stubCommandAPI) PutNone(dest bytecode.Reg, reinit bool) { s.putNoneCalls++ }
func (s *stubCommandAPI) PutInt(bytecode.Reg, int64, bool)       {}
func (s *stubCommandAPI) PutUInt(bytecode.Reg, uint64, bool)     {}
func (s *stubCommandAPI) PutFloat(bytecode.Reg, float64, bool)   {}
func (s *stubCommandAPI) PutBool(bytecode.Reg, bool, bool)       {}
func (s *stubCommandAPI) PutChar(bytecode.Reg, rune, bool)       {}
func (s *stubCommandAPI) PutType(bytecode.Reg, scalar.TypeHandle, bool) {}
func (s *stubCommandAPI) PutFn(bytecode.Reg, scalar.TypeHandle, bool)   {}
func (s *stubCommandAPI) PutArg(bytecode.Reg, int, bool)         {}
func (s *stubCommandAPI) Copy(bytecode.Reg, bytecode.Reg, bool)  {}
func (s *stubCommandAPI) DefaultInit(bytecode.Reg, scalar.TypeHandle, bool) {}
func (s *stubCommandAPI) Pop(bytecode.Reg)                       {}
func (s *stubCommandAPI) Call(int, bytecode.Reg, bool)           {}
func (s *stubCommandAPI) CallNR(int)                             {}
func (s *stubCommandAPI) Ret(bytecode.Reg)                       {}
func (s *stubCommandAPI) Panic()                                 {}

func TestNativeCallBody(t *testing.T) {
	b := constpool.NewBuilder()
	table := b.Seal()
	d := New("print", KindFunction, table)
	d.SetCallable(CallSig{}, 0, CallBody{Native: func(ctx CommandAPI) {
		ctx.PutNone(bytecode.Newtop, true)
	}})
	assert(t, !d.Body().IsBytecode(), "expected native body")

	stub := &stubCommandAPI{}
	d.Body().Native(stub)
	assert(t, stub.putNoneCalls == 1, "expected native function to call PutNone once")
}

func TestMethodNameSplitting(t *testing.T) {
	assert(t, IsMethodName("Foo::bar"), "expected method name")
	assert(t, !IsMethodName("bar"), "expected plain name")

	owner, member := OwnerOf("Foo::bar")
	assert(t, owner == "Foo", "got %q", owner)
	assert(t, member == "bar", "got %q", member)
}

func TestKindStrings(t *testing.T) {
	kinds := []Kind{KindPrimitive, KindFunction, KindMethod, KindStruct}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		assert(t, s != "?unknown-kind?", "kind %d missing name", k)
		assert(t, !seen[s], "duplicate kind name %q", s)
		seen[s] = true
	}
}
