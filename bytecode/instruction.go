package bytecode

import "fmt"

// Reg indexes a register slot within a call frame's local register vector.
type Reg uint32

// Newtop is the sentinel register index meaning "one past the current top;
// push a new register". It is distinguished from any real index by using a
// value no real max_locals could ever reach.
const Newtop Reg = 0xFFFFFFFF

// Instruction is one fixed-width bytecode record. Not every field is
// meaningful for every Op — see the per-opcode constructors and accessors
// below, which mirror the operand table in spec.md §4.6.
type Instruction struct {
	Op     Op
	regA   Reg // dest / pop-count / arg-count / src, depending on Op
	regB   Reg // dest of a copy (regA is copy's src)
	imm    int32
	offset int32
	reinit bool
}

func NewNoop() Instruction { return Instruction{Op: Noop} }

func NewPop(n Reg) Instruction { return Instruction{Op: Pop, regA: n} }

func NewPutNone(dest Reg, reinit bool) Instruction {
	return Instruction{Op: PutNone, regA: dest, reinit: reinit}
}

func NewPutConst(dest Reg, constIdx int, reinit bool) Instruction {
	return Instruction{Op: PutConst, regA: dest, imm: int32(constIdx), reinit: reinit}
}

func NewPutTypeConst(dest Reg, constIdx int, reinit bool) Instruction {
	return Instruction{Op: PutTypeConst, regA: dest, imm: int32(constIdx), reinit: reinit}
}

func NewPutArg(dest Reg, argIdx int, reinit bool) Instruction {
	return Instruction{Op: PutArg, regA: dest, imm: int32(argIdx), reinit: reinit}
}

func NewCopy(src, dest Reg, reinit bool) Instruction {
	return Instruction{Op: Copy, regA: src, regB: dest, reinit: reinit}
}

func NewDefaultInit(dest Reg, constIdx int, reinit bool) Instruction {
	return Instruction{Op: DefaultInit, regA: dest, imm: int32(constIdx), reinit: reinit}
}

func NewCall(argCount int, dest Reg, reinit bool) Instruction {
	return Instruction{Op: Call, regA: Reg(argCount), regB: dest, reinit: reinit}
}

func NewCallNR(argCount int) Instruction {
	return Instruction{Op: CallNR, regA: Reg(argCount)}
}

func NewRet(slot Reg) Instruction { return Instruction{Op: Ret, regA: slot} }

func NewJump(offset int32) Instruction { return Instruction{Op: Jump, offset: offset} }

func NewJumpTrue(popCount Reg, offset int32) Instruction {
	return Instruction{Op: JumpTrue, regA: popCount, offset: offset}
}

func NewJumpFalse(popCount Reg, offset int32) Instruction {
	return Instruction{Op: JumpFalse, regA: popCount, offset: offset}
}

// Dest returns the destination register operand (put_none, put_const,
// put_type_const, put_arg, default_init, call). May be Newtop.
func (i Instruction) Dest() Reg {
	if i.Op == Call {
		return i.regB
	}
	return i.regA
}

// Src returns copy's source register.
func (i Instruction) Src() Reg { return i.regA }

// CopyDest returns copy's destination register. May be Newtop.
func (i Instruction) CopyDest() Reg { return i.regB }

// ConstIndex returns the constant-table index operand (put_const,
// put_type_const, default_init).
func (i Instruction) ConstIndex() int { return int(i.imm) }

// ArgIndex returns put_arg's argument index operand.
func (i Instruction) ArgIndex() int { return int(i.imm) }

// ArgCount returns call/call_nr's argument-count operand (the number of
// top-of-stack registers, including the callee, involved in the call).
func (i Instruction) ArgCount() int { return int(i.regA) }

// PopCount returns pop's count operand, or jump_true/jump_false's pop-count
// operand.
func (i Instruction) PopCount() Reg { return i.regA }

// Slot returns ret's return-value slot operand.
func (i Instruction) Slot() Reg { return i.regA }

// Offset returns a branch instruction's signed operand.
func (i Instruction) Offset() int32 { return i.offset }

// Reinit reports whether the write operand should bypass the
// must-match-existing-type rule.
func (i Instruction) Reinit() bool { return i.reinit }

func (i Instruction) String() string {
	switch i.Op {
	case Noop:
		return "noop"
	case Pop:
		return fmt.Sprintf("pop %d", i.regA)
	case PutNone:
		return fmt.Sprintf("put_none %s%s", regStr(i.regA), reinitStr(i.reinit))
	case PutConst:
		return fmt.Sprintf("put_const %s, %d%s", regStr(i.regA), i.imm, reinitStr(i.reinit))
	case PutTypeConst:
		return fmt.Sprintf("put_type_const %s, %d%s", regStr(i.regA), i.imm, reinitStr(i.reinit))
	case PutArg:
		return fmt.Sprintf("put_arg %s, %d%s", regStr(i.regA), i.imm, reinitStr(i.reinit))
	case Copy:
		return fmt.Sprintf("copy %s, %s%s", regStr(i.regA), regStr(i.regB), reinitStr(i.reinit))
	case DefaultInit:
		return fmt.Sprintf("default_init %s, %d%s", regStr(i.regA), i.imm, reinitStr(i.reinit))
	case Call:
		return fmt.Sprintf("call %d, %s%s", i.regA, regStr(i.regB), reinitStr(i.reinit))
	case CallNR:
		return fmt.Sprintf("call_nr %d", i.regA)
	case Ret:
		return fmt.Sprintf("ret %s", regStr(i.regA))
	case Jump:
		return fmt.Sprintf("jump %+d", i.offset)
	case JumpTrue:
		return fmt.Sprintf("jump_true %d, %+d", i.regA, i.offset)
	case JumpFalse:
		return fmt.Sprintf("jump_false %d, %+d", i.regA, i.offset)
	default:
		return "?unknown-instruction?"
	}
}

func regStr(r Reg) string {
	if r == Newtop {
		return "newtop"
	}
	return fmt.Sprintf("R(%d)", r)
}

func reinitStr(reinit bool) string {
	if reinit {
		return " reinit"
	}
	return ""
}
