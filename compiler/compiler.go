// Package compiler declares the external contract between source text and
// the rest of the system: a Source, a fine-grained Diagnostic, and the
// Compile entry point a front-end (lexer/parser/semantic analyser lowering
// text into module info) would implement. Grounded on KTStephano-GVM's
// CompileSource(debug bool, files ...string) (Program, error) entry point,
// generalized into a diagnostics-returning contract instead of a single
// error — a source-to-module pipeline is out of scope here, so this package
// carries only the shape every implementation must agree on.
package compiler

import (
	"fmt"

	"yama/module"
)

// Source is one named unit of input text, e.g. a file. Name is used only
// for diagnostic source locations; it carries no filesystem meaning here.
type Source struct {
	Name string
	Text string
}

// Code is a fine-grained compile-time signal code, named so a test can
// assert on the exact failure mode rather than a boolean (mirrors
// verifier.Code's discipline one layer up the pipeline).
type Code string

const (
	CodeSyntaxError       Code = "compile_syntax_error"
	CodeNameConflict      Code = "compile_name_conflict"
	CodeUndeclaredName    Code = "compile_undeclared_name"
	CodeNotAType          Code = "compile_not_a_type"
	CodeInvalidLocalVar   Code = "compile_invalid_local_var"
	CodeNonlocalVar       Code = "compile_nonlocal_var"
	CodeTypeMismatch      Code = "compile_type_mismatch"
	CodeNonassignableExpr Code = "compile_nonassignable_expr"
	CodeInvalidOperation  Code = "compile_invalid_operation"
	CodeNumericOverflow   Code = "compile_numeric_overflow"
	CodeNumericUnderflow  Code = "compile_numeric_underflow"
	CodeIllegalUnicode    Code = "compile_illegal_unicode"
	CodeWrongArgCount     Code = "compile_wrong_arg_count"
	CodeNoReturnStmt      Code = "compile_no_return_stmt"
	CodeLocalFn           Code = "compile_local_fn"
	CodeInvalidParamList  Code = "compile_invalid_param_list"
	CodeNotInLoop         Code = "compile_not_in_loop"
	CodeNotAnExpr         Code = "compile_not_an_expr"
)

// Location is a source position, one-indexed to match conventional editor
// line/column display.
type Location struct {
	Source string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Source, l.Line, l.Column)
}

// Diagnostic is one reported compile-time failure.
type Diagnostic struct {
	Code   Code
	Where  Location
	Detail string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Where, d.Code, d.Detail)
}

// DomainView is the read-only slice of installed-parcel metadata a
// front-end needs to resolve names against (declared deps, self name) —
// never the full domain.Domain, since a compiler must not be able to
// trigger loads or install parcels of its own.
type DomainView interface {
	HasDep(name string) bool
	SelfName() string
}

// Compiler lowers source text into module info against a DomainView, or
// reports why it could not. No implementation is provided; a real
// front-end (lexer, parser, semantic analyser) is out of scope.
type Compiler interface {
	Compile(src Source, dom DomainView) (*module.Module, []Diagnostic)
}
