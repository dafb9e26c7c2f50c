package vm

import (
	"yama/bytecode"
	"yama/scalar"
)

// execBytecode is the fetch-decode-execute loop for one frame's bytecode
// body, grounded on KTStephano-GVM's execNextInstruction switch. A call
// instruction recurses back into doCall/invoke, so the Go call stack
// mirrors the VM call stack one-for-one.
func (ctx *Context) execBytecode(f *frame, code []bytecode.Instruction) {
	pc := 0
	for {
		instr := code[pc]
		pc++

		switch instr.Op {
		case bytecode.Noop:
		case bytecode.Pop:
			ctx.Pop(instr.PopCount())
		case bytecode.PutNone:
			ctx.PutNone(instr.Dest(), instr.Reinit())
		case bytecode.PutConst:
			ctx.execPutConst(f, instr)
		case bytecode.PutTypeConst:
			ctx.execPutTypeConst(f, instr)
		case bytecode.PutArg:
			ctx.PutArg(instr.Dest(), instr.ArgIndex(), instr.Reinit())
		case bytecode.Copy:
			ctx.Copy(instr.Src(), instr.CopyDest(), instr.Reinit())
		case bytecode.DefaultInit:
			ctx.execDefaultInit(f, instr)
		case bytecode.Call:
			ctx.Call(instr.ArgCount(), instr.Dest(), instr.Reinit())
		case bytecode.CallNR:
			ctx.CallNR(instr.ArgCount())
		case bytecode.Ret:
			ctx.Ret(instr.Slot())
			return
		case bytecode.Jump:
			pc = pc + int(instr.Offset())
		case bytecode.JumpTrue, bytecode.JumpFalse:
			pc = ctx.execBranch(instr, pc)
		default:
			ctx.raisePanic()
		}
	}
}

func (ctx *Context) execPutConst(f *frame, instr bytecode.Instruction) {
	entry, ok := f.desc.Consts().Get(instr.ConstIndex())
	if !ok || !entry.Kind.IsObjectConst() {
		ctx.raisePanic()
	}
	ctx.write(instr.Dest(), entry.Object, instr.Reinit())
}

func (ctx *Context) execPutTypeConst(f *frame, instr bytecode.Instruction) {
	entry, ok := f.desc.Consts().Get(instr.ConstIndex())
	if !ok || !entry.Kind.IsTypeConst() || entry.Resolved == nil {
		ctx.raisePanic()
	}
	ctx.write(instr.Dest(), scalar.NewType(entry.Resolved), instr.Reinit())
}

func (ctx *Context) execDefaultInit(f *frame, instr bytecode.Instruction) {
	entry, ok := f.desc.Consts().Get(instr.ConstIndex())
	if !ok || !entry.Kind.IsTypeConst() || entry.Resolved == nil {
		ctx.raisePanic()
	}
	v, ok := defaultValueForHandle(entry.Resolved)
	if !ok {
		ctx.raisePanic()
	}
	ctx.write(instr.Dest(), v, instr.Reinit())
}

// execBranch implements jump_true/jump_false: the top register must be
// Bool, popCount registers are popped regardless of which way the branch
// goes, and only then does control transfer.
func (ctx *Context) execBranch(instr bytecode.Instruction, pcAfter int) int {
	f := ctx.cur()
	n := ctx.regCount(f)
	if n == 0 {
		ctx.raisePanic()
	}
	top := ctx.regs[len(ctx.regs)-1]
	if top.Kind() != scalar.KBool {
		ctx.raisePanic()
	}
	cond, _ := top.Bool()

	ctx.Pop(instr.PopCount())

	taken := (instr.Op == bytecode.JumpTrue && cond) || (instr.Op == bytecode.JumpFalse && !cond)
	if taken {
		return pcAfter + int(instr.Offset())
	}
	return pcAfter
}
