// Package bytecode defines Yama's 14-opcode register instruction set: the
// fixed-width instruction record, the `newtop`/reinit sentinels, and
// disassembly. It has no knowledge of types or verification — those live in
// typedesc and verifier respectively — it only knows how an instruction
// stream is laid out and named.
package bytecode

// Op is one of the 14 opcodes in spec.md §4.6.
type Op uint8

const (
	Noop Op = iota
	Pop
	PutNone
	PutConst
	PutTypeConst
	PutArg
	Copy
	DefaultInit
	Call
	CallNR
	Ret
	Jump
	JumpTrue
	JumpFalse
)

var opNames = [...]string{
	Noop:         "noop",
	Pop:          "pop",
	PutNone:      "put_none",
	PutConst:     "put_const",
	PutTypeConst: "put_type_const",
	PutArg:       "put_arg",
	Copy:         "copy",
	DefaultInit:  "default_init",
	Call:         "call",
	CallNR:       "call_nr",
	Ret:          "ret",
	Jump:         "jump",
	JumpTrue:     "jump_true",
	JumpFalse:    "jump_false",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "?unknown-op?"
}

// IsBranch reports whether op unconditionally or conditionally transfers
// control via a signed offset operand.
func (op Op) IsBranch() bool {
	return op == Jump || op == JumpTrue || op == JumpFalse
}

// IsTerminator reports whether op must be the last instruction of a basic
// block (a branch or a return never falls through to the next instruction
// in the verifier's control-flow sense — jump_true/jump_false do fall
// through on the "not taken" edge, but that edge is itself an explicit
// block boundary).
func (op Op) IsTerminator() bool {
	return op.IsBranch() || op == Ret
}

// HasDest reports whether op writes to a destination register operand
// (which may be the `newtop` sentinel).
func (op Op) HasDest() bool {
	switch op {
	case PutNone, PutConst, PutTypeConst, PutArg, Copy, DefaultInit, Call:
		return true
	default:
		return false
	}
}
