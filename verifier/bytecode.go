package verifier

import (
	"yama/bytecode"
	"yama/constpool"
	"yama/scalar"
	"yama/typedesc"
)

// verifyBytecodeLayer implements spec.md §4.6's bytecode layer: partition
// into basic blocks, then a worklist fixpoint over abstract frames,
// checking every opcode's per-instruction contract and the register
// coherence rule at every merge point. qualName is the descriptor's own
// qualified name, used to type put_arg(dst, 0)'s self-reference.
func verifyBytecodeLayer(qualName string, desc *typedesc.Descriptor) []Signal {
	code := desc.Body().Bytecode
	if len(code) == 0 {
		return []Signal{sig(CodeNoTerminator, "empty bytecode body")}
	}

	blocks := bytecode.SplitBlocks(code)
	if len(blocks) == 0 {
		return []Signal{sig(CodeNoTerminator, "no basic blocks")}
	}
	last := code[blocks[len(blocks)-1].End-1]
	var out []Signal
	if !last.Op.IsTerminator() {
		out = append(out, sig(CodeNoTerminator, "falls off end of bytecode"))
	}

	table := desc.Consts()
	selfSig := toConstSig(desc.CallSig())
	selfType := regType{kind: scalar.KFn, ident: qualName, sig: &selfSig, sigTable: table}

	seed := seedFrame(desc)
	incoming := make(map[int]abstractFrame) // block index -> incoming frame
	incoming[0] = seed
	worklist := []int{0}
	visited := make(map[int]bool)

	for len(worklist) > 0 {
		bi := worklist[0]
		worklist = worklist[1:]
		block := blocks[bi]
		frame := incoming[bi].clone()

		outFrames, sigs := runBlock(code, block, table, selfType, desc.MaxLocals(), frame)
		out = append(out, sigs...)

		for target, outFrame := range outFrames {
			ti := bytecode.BlockContaining(blocks, target)
			if ti < 0 {
				out = append(out, sig(CodePutsPCOutOfBounds, "branch target %d", target))
				continue
			}
			if existing, ok := incoming[ti]; ok {
				if !existing.equal(outFrame) {
					out = append(out, sig(CodeViolatesCoherence, "block %d -> %d", bi, ti))
				}
				continue
			}
			incoming[ti] = outFrame
			if !visited[ti] {
				worklist = append(worklist, ti)
			}
		}
		visited[bi] = true
	}

	return out
}

// seedFrame builds the block-0 incoming abstract frame: empty locals
// (registers are all pushed explicitly via newtop in this ISA, so the
// entry frame starts with zero live registers).
func seedFrame(desc *typedesc.Descriptor) abstractFrame {
	return abstractFrame{}
}

// runBlock symbolically executes one basic block from the given incoming
// frame, returning the outgoing frame(s) keyed by successor instruction
// index (one entry for fallthrough/unconditional, two for conditional
// branches) plus any signals raised.
func runBlock(code []bytecode.Instruction, block bytecode.Block, table *constpool.Table, selfType regType, maxLocals int, frame abstractFrame) (map[int]abstractFrame, []Signal) {
	var out []Signal
	push := func(rt regType) bool {
		if len(frame.regs) >= maxLocals {
			out = append(out, sig(CodePushOverflow, "locals %d >= max_locals %d", len(frame.regs), maxLocals))
			return false
		}
		frame.regs = append(frame.regs, rt)
		return true
	}
	slotOK := func(r bytecode.Reg) bool { return int(r) < len(frame.regs) }
	writeDest := func(r bytecode.Reg, rt regType, reinit bool) {
		if r == bytecode.Newtop {
			push(rt)
			return
		}
		if !slotOK(r) {
			out = append(out, sig(CodeRAOutOfBounds, "register %d", r))
			return
		}
		if !reinit && !frame.regs[r].equal(rt) {
			out = append(out, sig(CodePutsTypeMismatch, "register %d", r))
		}
		frame.regs[r] = rt
	}

	for pc := block.Start; pc < block.End; pc++ {
		instr := code[pc]
		switch instr.Op {
		case bytecode.Noop:
		case bytecode.Pop:
			n := int(instr.PopCount())
			if n > len(frame.regs) {
				n = len(frame.regs)
			}
			frame.regs = frame.regs[:len(frame.regs)-n]
		case bytecode.PutNone:
			writeDest(instr.Dest(), regType{}, instr.Reinit())
		case bytecode.PutConst:
			rt, ok := objectConstRegType(table, instr.ConstIndex())
			if !ok {
				out = append(out, sig(CodeKoBNotObjectConst, "const %d", instr.ConstIndex()))
				break
			}
			writeDest(instr.Dest(), rt, instr.Reinit())
		case bytecode.PutTypeConst:
			rt, ok := typeRefRegType(table, instr.ConstIndex())
			if !ok {
				out = append(out, sig(CodeKoBNotTypeConst, "const %d", instr.ConstIndex()))
				break
			}
			writeDest(instr.Dest(), rt, instr.Reinit())
		case bytecode.PutArg:
			rt, ok := argRegType(selfType, instr.ArgIndex())
			if !ok {
				out = append(out, sig(CodeArgRsIllegalCallobj, "arg %d", instr.ArgIndex()))
				break
			}
			writeDest(instr.Dest(), rt, instr.Reinit())
		case bytecode.Copy:
			if !slotOK(instr.Src()) {
				out = append(out, sig(CodeRAOutOfBounds, "register %d", instr.Src()))
				break
			}
			writeDest(instr.CopyDest(), frame.regs[instr.Src()], instr.Reinit())
		case bytecode.DefaultInit:
			rt, ok := instantiatedRegType(table, instr.ConstIndex())
			if !ok {
				out = append(out, sig(CodeKoBNotDefaultable, "const %d", instr.ConstIndex()))
				break
			}
			writeDest(instr.Dest(), rt, instr.Reinit())
		case bytecode.Call, bytecode.CallNR:
			verifyCall(&frame, instr, &out)
		case bytecode.Ret:
			if !slotOK(instr.Slot()) {
				out = append(out, sig(CodeRAOutOfBounds, "ret slot %d", instr.Slot()))
			}
		case bytecode.Jump, bytecode.JumpTrue, bytecode.JumpFalse:
			// handled by branch-target collection below
		}
	}

	last := code[block.End-1]
	outFrames := make(map[int]abstractFrame)
	switch {
	case last.Op == bytecode.Jump:
		outFrames[block.End+int(last.Offset())] = frame.clone()
	case last.Op == bytecode.JumpTrue || last.Op == bytecode.JumpFalse:
		if len(frame.regs) == 0 {
			out = append(out, sig(CodeTopOutOfBounds, "conditional jump on empty frame"))
			break
		}
		if frame.regs[len(frame.regs)-1].kind != scalar.KBool {
			out = append(out, sig(CodeArgRsTypeMismatch, "conditional jump requires Bool on top"))
		}
		popN := int(last.PopCount())
		if popN > len(frame.regs) {
			popN = len(frame.regs)
		}
		branchFrame := frame.clone()
		branchFrame.regs = branchFrame.regs[:len(branchFrame.regs)-popN]
		fallFrame := branchFrame.clone()
		outFrames[block.End+int(last.Offset())] = branchFrame
		outFrames[block.End] = fallFrame
	case last.Op == bytecode.Ret:
		// terminal; no successor
	default:
		if block.End < len(code) {
			outFrames[block.End] = frame.clone()
		}
	}
	return outFrames, out
}

// argRegType resolves put_arg's operand type: index 0 is always the
// currently-executing callable (its own Fn-kind type); index i>=1 is
// parameter i-1 of the same signature.
func argRegType(selfType regType, i int) (regType, bool) {
	if i == 0 {
		return selfType, true
	}
	if selfType.sig == nil || i-1 >= len(selfType.sig.Params) || i-1 < 0 {
		return regType{}, false
	}
	return instantiatedRegType(selfType.sigTable, selfType.sig.Params[i-1])
}

func verifyCall(frame *abstractFrame, instr bytecode.Instruction, out *[]Signal) {
	argCount := int(instr.ArgCount())
	if argCount < 1 {
		*out = append(*out, sig(CodeArgRsCountMismatch, "call arg-count must be >= 1"))
		return
	}
	n := len(frame.regs)
	if argCount > n {
		*out = append(*out, sig(CodeTopOutOfBounds, "call needs %d top registers, have %d", argCount, n))
		return
	}
	calleeIdx := n - argCount
	callee := frame.regs[calleeIdx]
	if callee.sig == nil {
		*out = append(*out, sig(CodeArgRsIllegalCallobj, "register %d is not callable", calleeIdx))
		frame.regs = frame.regs[:calleeIdx]
		if instr.Op == bytecode.Call {
			pushReturn(frame, regType{}, instr, out)
		}
		return
	}
	params := callee.sig.Params
	if len(params) != argCount-1 {
		*out = append(*out, sig(CodeArgRsCountMismatch, "want %d args, got %d", len(params), argCount-1))
	} else {
		for k, pidx := range params {
			want, ok := instantiatedRegType(callee.sigTable, pidx)
			got := frame.regs[calleeIdx+1+k]
			if !ok || !want.equal(got) {
				*out = append(*out, sig(CodeArgRsTypeMismatch, "arg %d", k))
			}
		}
	}
	retType, _ := instantiatedRegType(callee.sigTable, callee.sig.Return)
	frame.regs = frame.regs[:calleeIdx]
	if instr.Op == bytecode.Call {
		pushReturn(frame, retType, instr, out)
	}
}

func pushReturn(frame *abstractFrame, rt regType, instr bytecode.Instruction, out *[]Signal) {
	dest := instr.Dest()
	if dest == bytecode.Newtop {
		frame.regs = append(frame.regs, rt)
		return
	}
	if int(dest) >= len(frame.regs) {
		*out = append(*out, sig(CodeRAOutOfBounds, "call dest register %d", dest))
		return
	}
	if !instr.Reinit() && !frame.regs[dest].equal(rt) {
		*out = append(*out, sig(CodePutsTypeMismatch, "call dest register %d", dest))
	}
	frame.regs[dest] = rt
}
