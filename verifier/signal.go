// Package verifier implements the two-layer static verifier: the
// descriptor layer (name/kind agreement, qualified-name and signature
// validation) and the bytecode layer (control-flow partition plus
// symbolic register-coherence checking).
package verifier

import "fmt"

// Code is a fine-grained verifier signal code, named so the compiler (or a
// test) can assert on the exact failure mode rather than a boolean.
type Code string

const (
	CodeNameKindMismatch    Code = "name_kind_mismatch"
	CodeMalformedQualName   Code = "malformed_qual_name"
	CodeUnknownHead         Code = "unknown_head"
	CodeOwnerPrefixMismatch Code = "owner_prefix_mismatch"
	CodeRAOutOfBounds       Code = "RA_out_of_bounds"
	CodeKoBNotObjectConst   Code = "KoB_not_object_const"
	CodeKoBNotTypeConst     Code = "KoB_not_type_const"
	CodeKoBNotDefaultable   Code = "KoB_not_defaultable_type"
	CodeArgRsIllegalCallobj Code = "ArgRs_illegal_callobj"
	CodeArgRsCountMismatch  Code = "ArgRs_arg_count_mismatch"
	CodeArgRsTypeMismatch   Code = "ArgRs_arg_type_mismatch"
	CodePutsTypeMismatch    Code = "puts_type_mismatch"
	CodePutsPCOutOfBounds   Code = "puts_PC_out_of_bounds"
	CodeNoTerminator        Code = "no_terminating_instruction"
	CodeViolatesCoherence   Code = "violates_register_coherence"
	CodePushOverflow        Code = "push_overflow_locals"
	CodeTopOutOfBounds      Code = "top_out_of_bounds"
)

// Signal is one reported violation.
type Signal struct {
	Code   Code
	Detail string
}

func (s Signal) String() string { return fmt.Sprintf("%s: %s", s.Code, s.Detail) }

func sig(c Code, format string, args ...any) Signal {
	return Signal{Code: c, Detail: fmt.Sprintf(format, args...)}
}
