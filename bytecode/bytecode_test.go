package bytecode

import (
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func TestInstructionAccessors(t *testing.T) {
	i := NewPutConst(3, 7, false)
	assert(t, i.Dest() == 3, "got %d", i.Dest())
	assert(t, i.ConstIndex() == 7, "got %d", i.ConstIndex())
	assert(t, !i.Reinit(), "expected non-reinit")

	i = NewCopy(1, Newtop, true)
	assert(t, i.Src() == 1, "got %d", i.Src())
	assert(t, i.CopyDest() == Newtop, "expected newtop dest")
	assert(t, i.Reinit(), "expected reinit")

	i = NewCall(3, 0, false)
	assert(t, i.ArgCount() == 3, "got %d", i.ArgCount())
	assert(t, i.Dest() == 0, "got %d", i.Dest())
}

func TestSplitBlocksOnBranchAndTarget(t *testing.T) {
	code := []Instruction{
		NewPutConst(0, 0, false), // 0
		NewJumpTrue(0, 1),        // 1 -> target 3
		NewPutConst(1, 1, false), // 2
		NewRet(1),                // 3
	}
	blocks := SplitBlocks(code)
	assert(t, len(blocks) == 3, "expected 3 blocks, got %d: %v", len(blocks), blocks)
	assert(t, blocks[0] == Block{0, 2}, "got %v", blocks[0])
	assert(t, blocks[1] == Block{2, 3}, "got %v", blocks[1])
	assert(t, blocks[2] == Block{3, 4}, "got %v", blocks[2])
}

func TestOpStringRoundTrip(t *testing.T) {
	ops := []Op{Noop, Pop, PutNone, PutConst, PutTypeConst, PutArg, Copy,
		DefaultInit, Call, CallNR, Ret, Jump, JumpTrue, JumpFalse}
	seen := map[string]bool{}
	for _, op := range ops {
		s := op.String()
		assert(t, s != "?unknown-op?", "opcode %d missing name", op)
		assert(t, !seen[s], "duplicate opcode name %q", s)
		seen[s] = true
	}
}
