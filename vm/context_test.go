package vm

import (
	"fmt"
	"testing"

	"yama/bytecode"
	"yama/constpool"
	"yama/domain"
	"yama/module"
	"yama/parcel"
	"yama/scalar"
	"yama/typedesc"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

// install seals b into a module, wraps it as a Single parcel under head,
// and applies it to a fresh domain.
func install(t *testing.T, head string, b *module.Builder) *domain.Domain {
	mod, err := b.Finish()
	assert(t, err == nil, "unexpected finish error: %v", err)
	p := parcel.NewSingle(parcel.Metadata{SelfName: head}, mod)
	dom := domain.New()
	err = dom.Apply(parcel.NewBatch().Install(head, p))
	assert(t, err == nil, "unexpected apply error: %v", err)
	return dom
}

func TestIdentityRoundTrip(t *testing.T) {
	cb := constpool.NewBuilder()
	uintIdx := cb.AddPrimitive("builtin:UInt")
	table := cb.Seal()

	code := []bytecode.Instruction{
		bytecode.NewPutArg(bytecode.Newtop, 1, true),
		bytecode.NewRet(0),
	}
	d := typedesc.New("identity", typedesc.KindFunction, table)
	d.SetCallable(typedesc.CallSig{Params: []int{uintIdx}, Return: uintIdx}, 1, typedesc.CallBody{Bytecode: code})

	mb := module.NewBuilder()
	assert(t, mb.Add(d) == nil, "unexpected add error")
	dom := install(t, "abc", mb)

	ctx := NewContext(dom, 8, 64)
	result, err := ctx.Run("abc:identity", scalar.NewUInt(42))
	assert(t, err == nil, "unexpected run error: %v", err)
	v, ok := result.UInt()
	assert(t, ok, "expected uint result")
	assert(t, v == 42, "got %d", v)
}

func TestNativePanicPropagatesThroughCaller(t *testing.T) {
	cb := constpool.NewBuilder()
	noneIdx := cb.AddPrimitive("builtin:None")
	boomTable := cb.Seal()

	boom := typedesc.New("boom", typedesc.KindFunction, boomTable)
	boom.SetCallable(typedesc.CallSig{Return: noneIdx}, 0, typedesc.CallBody{Native: func(ctx typedesc.CommandAPI) {
		ctx.Panic()
	}})

	ob := constpool.NewBuilder()
	oNoneIdx := ob.AddPrimitive("builtin:None")
	boomSigIdx := ob.AddFunction("self:boom", nil, oNoneIdx)
	outerTable := ob.Seal()

	outerCode := []bytecode.Instruction{
		bytecode.NewDefaultInit(bytecode.Newtop, boomSigIdx, true),
		bytecode.NewCallNR(1),
		bytecode.NewPutNone(bytecode.Newtop, true),
		bytecode.NewRet(0),
	}
	outer := typedesc.New("outer", typedesc.KindFunction, outerTable)
	outer.SetCallable(typedesc.CallSig{Return: oNoneIdx}, 1, typedesc.CallBody{Bytecode: outerCode})

	mb := module.NewBuilder()
	assert(t, mb.Add(boom) == nil, "unexpected add error")
	assert(t, mb.Add(outer) == nil, "unexpected add error")
	dom := install(t, "abc", mb)

	ctx := NewContext(dom, 8, 64)
	_, err := ctx.Run("abc:outer")
	assert(t, err == ErrPanicked, "expected ErrPanicked, got %v", err)
	assert(t, ctx.Panics() == 1, "expected exactly one panic counted, got %d", ctx.Panics())
}

func TestCallStackOverflowPanicsOnce(t *testing.T) {
	cb := constpool.NewBuilder()
	noneIdx := cb.AddPrimitive("builtin:None")
	table := cb.Seal()

	code := []bytecode.Instruction{
		bytecode.NewPutArg(bytecode.Newtop, 0, true),
		bytecode.NewCallNR(1),
		bytecode.NewPutNone(bytecode.Newtop, true),
		bytecode.NewRet(0),
	}
	d := typedesc.New("loopforever", typedesc.KindFunction, table)
	d.SetCallable(typedesc.CallSig{Return: noneIdx}, 1, typedesc.CallBody{Bytecode: code})

	mb := module.NewBuilder()
	assert(t, mb.Add(d) == nil, "unexpected add error")
	dom := install(t, "abc", mb)

	ctx := NewContext(dom, 8, 6)
	_, err := ctx.Run("abc:loopforever")
	assert(t, err == ErrPanicked, "expected ErrPanicked, got %v", err)
	assert(t, ctx.Panics() == 1, "expected exactly one panic counted, got %d", ctx.Panics())
}

// buildFactorialModule ports the recursive factorial example from the
// original implementation's bytecode-execution test suite: subtract,
// multiply, and greaterThanZero are native helpers; factorial itself is
// interpreted bytecode recursing through itself via a function-type
// constant (loaded with default_init, since this ISA instantiates a
// callable value from a type constant rather than treating it as an
// object constant).
func buildFactorialModule(t *testing.T) *module.Builder {
	mb := module.NewBuilder()

	scb := constpool.NewBuilder()
	scb.AddPrimitive("builtin:UInt")
	subtractTable := scb.Seal()
	subtract := typedesc.New("subtract", typedesc.KindFunction, subtractTable)
	subtract.SetCallable(typedesc.CallSig{Params: []int{0, 0}, Return: 0}, 1, typedesc.CallBody{
		Native: func(ctx typedesc.CommandAPI) {
			a, _ := ctx.Arg(1)
			b, _ := ctx.Arg(2)
			av, _ := a.UInt()
			bv, _ := b.UInt()
			ctx.PutUInt(bytecode.Newtop, av-bv, true)
			ctx.Ret(0)
		},
	})
	assert(t, mb.Add(subtract) == nil, "unexpected add error")

	mcb := constpool.NewBuilder()
	mcb.AddPrimitive("builtin:UInt")
	multiplyTable := mcb.Seal()
	multiply := typedesc.New("multiply", typedesc.KindFunction, multiplyTable)
	multiply.SetCallable(typedesc.CallSig{Params: []int{0, 0}, Return: 0}, 1, typedesc.CallBody{
		Native: func(ctx typedesc.CommandAPI) {
			a, _ := ctx.Arg(1)
			b, _ := ctx.Arg(2)
			av, _ := a.UInt()
			bv, _ := b.UInt()
			ctx.PutUInt(bytecode.Newtop, av*bv, true)
			ctx.Ret(0)
		},
	})
	assert(t, mb.Add(multiply) == nil, "unexpected add error")

	gcb := constpool.NewBuilder()
	gcb.AddPrimitive("builtin:UInt")
	gcb.AddPrimitive("builtin:Bool")
	gtTable := gcb.Seal()
	greaterThanZero := typedesc.New("greaterThanZero", typedesc.KindFunction, gtTable)
	greaterThanZero.SetCallable(typedesc.CallSig{Params: []int{0}, Return: 1}, 1, typedesc.CallBody{
		Native: func(ctx typedesc.CommandAPI) {
			a, _ := ctx.Arg(1)
			av, _ := a.UInt()
			ctx.PutBool(bytecode.Newtop, av > 0, true)
			ctx.Ret(0)
		},
	})
	assert(t, mb.Add(greaterThanZero) == nil, "unexpected add error")

	fcb := constpool.NewBuilder()
	fUIntIdx := fcb.AddPrimitive("builtin:UInt")
	fcb.AddPrimitive("builtin:Bool")
	fSubtractIdx := fcb.AddFunction("self:subtract", []int{0, 0}, 0)
	fMultiplyIdx := fcb.AddFunction("self:multiply", []int{0, 0}, 0)
	fGreaterThanZeroIdx := fcb.AddFunction("self:greaterThanZero", []int{0}, 1)
	fFactorialIdx := fcb.AddFunction("self:factorial", []int{0}, 0)
	fOneIdx := fcb.AddUInt(1)
	factorialTable := fcb.Seal()

	// block #1: check n > 0
	// block #2: return 1 if n == 0
	// block #3: return n * (n - 1)!
	factorialCode := []bytecode.Instruction{
		bytecode.NewDefaultInit(bytecode.Newtop, fGreaterThanZeroIdx, true), // 0
		bytecode.NewPutArg(bytecode.Newtop, 1, true),                       // 1: n
		bytecode.NewCall(2, bytecode.Newtop, true),                         // 2: n > 0
		bytecode.NewJumpTrue(1, 2),                                         // 3

		bytecode.NewPutConst(bytecode.Newtop, fOneIdx, true), // 4
		bytecode.NewRet(0),                                   // 5

		bytecode.NewDefaultInit(bytecode.Newtop, fMultiplyIdx, true),        // 6
		bytecode.NewPutArg(bytecode.Newtop, 1, true),                       // 7: n
		bytecode.NewDefaultInit(bytecode.Newtop, fFactorialIdx, true),       // 8
		bytecode.NewDefaultInit(bytecode.Newtop, fSubtractIdx, true),        // 9
		bytecode.NewPutArg(bytecode.Newtop, 1, true),                       // 10: n
		bytecode.NewPutConst(bytecode.Newtop, fOneIdx, true),                // 11
		bytecode.NewCall(3, bytecode.Newtop, true),                         // 12: n - 1
		bytecode.NewCall(2, bytecode.Newtop, true),                         // 13: (n - 1)!
		bytecode.NewCall(3, bytecode.Newtop, true),                         // 14: n * (n - 1)!
		bytecode.NewRet(0),                                                 // 15
	}
	factorial := typedesc.New("factorial", typedesc.KindFunction, factorialTable)
	factorial.SetCallable(typedesc.CallSig{Params: []int{fUIntIdx}, Return: fUIntIdx}, 6, typedesc.CallBody{Bytecode: factorialCode})
	assert(t, mb.Add(factorial) == nil, "unexpected add error")

	return mb
}

func exampleFactorial(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	return n * exampleFactorial(n-1)
}

func TestFactorialRecursion(t *testing.T) {
	mb := buildFactorialModule(t)
	dom := install(t, "abc", mb)

	for n := uint64(0); n <= 11; n++ {
		ctx := NewContext(dom, 8, 64)
		result, err := ctx.Run("abc:factorial", scalar.NewUInt(n))
		assert(t, err == nil, "n=%d: unexpected run error: %v", n, err)
		got, ok := result.UInt()
		assert(t, ok, "n=%d: expected uint result", n)
		assert(t, got == exampleFactorial(n), "n=%d: got %d, want %d", n, got, exampleFactorial(n))
	}
}

// buildCounterModule ports the original implementation's looping example:
// a counter local register incremented until it reaches n, exercising
// copy, jump, and jump_false.
func buildCounterModule(t *testing.T) *module.Builder {
	mb := module.NewBuilder()

	acb := constpool.NewBuilder()
	acb.AddPrimitive("builtin:UInt")
	addOneTable := acb.Seal()
	addOne := typedesc.New("addOne", typedesc.KindFunction, addOneTable)
	addOne.SetCallable(typedesc.CallSig{Params: []int{0}, Return: 0}, 1, typedesc.CallBody{
		Native: func(ctx typedesc.CommandAPI) {
			a, _ := ctx.Arg(1)
			av, _ := a.UInt()
			ctx.PutUInt(bytecode.Newtop, av+1, true)
			ctx.Ret(0)
		},
	})
	assert(t, mb.Add(addOne) == nil, "unexpected add error")

	lcb := constpool.NewBuilder()
	lcb.AddPrimitive("builtin:UInt")
	lcb.AddPrimitive("builtin:Bool")
	lessThanTable := lcb.Seal()
	lessThan := typedesc.New("lessThan", typedesc.KindFunction, lessThanTable)
	lessThan.SetCallable(typedesc.CallSig{Params: []int{0, 0}, Return: 1}, 1, typedesc.CallBody{
		Native: func(ctx typedesc.CommandAPI) {
			a, _ := ctx.Arg(1)
			b, _ := ctx.Arg(2)
			av, _ := a.UInt()
			bv, _ := b.UInt()
			ctx.PutBool(bytecode.Newtop, av < bv, true)
			ctx.Ret(0)
		},
	})
	assert(t, mb.Add(lessThan) == nil, "unexpected add error")

	ccb := constpool.NewBuilder()
	cUIntIdx := ccb.AddPrimitive("builtin:UInt")
	ccb.AddPrimitive("builtin:Bool")
	cAddOneIdx := ccb.AddFunction("self:addOne", []int{0}, 0)
	cLessThanIdx := ccb.AddFunction("self:lessThan", []int{0, 0}, 1)
	cZeroIdx := ccb.AddUInt(0)
	counterTable := ccb.Seal()

	// block #1: init counter to 0
	// block #2: eval counter < n
	// block #3: counter = addOne(counter), jump back to block #2
	// block #4: return counter
	counterCode := []bytecode.Instruction{
		bytecode.NewPutConst(bytecode.Newtop, cZeroIdx, true), // 0: counter = 0

		bytecode.NewDefaultInit(bytecode.Newtop, cLessThanIdx, true), // 1
		bytecode.NewCopy(0, bytecode.Newtop, true),                  // 2: counter
		bytecode.NewPutArg(bytecode.Newtop, 1, true),                // 3: n
		bytecode.NewCall(3, bytecode.Newtop, true),                  // 4: counter < n
		bytecode.NewJumpFalse(1, 4),                                 // 5

		bytecode.NewDefaultInit(bytecode.Newtop, cAddOneIdx, true), // 6
		bytecode.NewCopy(0, bytecode.Newtop, true),                 // 7: counter
		bytecode.NewCall(2, 0, false),                              // 8: counter = addOne(counter)
		bytecode.NewJump(-9),                                       // 9

		bytecode.NewRet(0), // 10
	}
	counter := typedesc.New("counter", typedesc.KindFunction, counterTable)
	counter.SetCallable(typedesc.CallSig{Params: []int{cUIntIdx}, Return: cUIntIdx}, 4, typedesc.CallBody{Bytecode: counterCode})
	assert(t, mb.Add(counter) == nil, "unexpected add error")

	return mb
}

func TestCounterLoop(t *testing.T) {
	mb := buildCounterModule(t)
	dom := install(t, "abc", mb)

	for _, n := range []uint64{0, 1, 10, 100, 1000} {
		ctx := NewContext(dom, 8, 64)
		result, err := ctx.Run("abc:counter", scalar.NewUInt(n))
		assert(t, err == nil, "n=%d: unexpected run error: %v", n, err)
		got, ok := result.UInt()
		assert(t, ok, "n=%d: expected uint result", n)
		assert(t, got == n, "n=%d: got %d", n, got)
	}
}
