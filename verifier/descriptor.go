package verifier

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"yama/constpool"
	"yama/parcel"
	"yama/typedesc"
)

// builtinHead is the reserved head alias bound directly to the domain's
// built-in primitive handles, bypassing parcel resolution. Not part of
// spec.md's qualified-name grammar verbatim; see DESIGN.md's Open Question
// decisions for why the loader needs a reserved alias here.
const builtinHead = "builtin"

// splitQualName splits "head:name" or "head:Owner::name" without
// validating head against any parcel; headAllowed (below) and domain.go
// reject unknown heads separately.
func splitQualName(raw string) (head, rest string, ok bool) {
	i := strings.Index(raw, ":")
	if i <= 0 || i == len(raw)-1 {
		return "", "", false
	}
	head = raw[:i]
	rest = raw[i+1:]
	if strings.Contains(head, ":") {
		return "", "", false
	}
	return head, rest, true
}

func headAllowed(head string, meta parcel.Metadata) bool {
	return head == "self" || head == builtinHead || meta.HasDep(head)
}

// validateQualName checks grammar, head legality, and (when wantMethod is
// known) owner-prefix agreement.
func validateQualName(raw string, meta parcel.Metadata, wantMethod bool) *Signal {
	head, rest, ok := splitQualName(raw)
	if !ok {
		s := sig(CodeMalformedQualName, "%q", raw)
		return &s
	}
	if !headAllowed(head, meta) {
		s := sig(CodeUnknownHead, "%q in %q", head, raw)
		return &s
	}
	if typedesc.IsMethodName(rest) != wantMethod {
		s := sig(CodeOwnerPrefixMismatch, "%q", raw)
		return &s
	}
	return nil
}

// verifyDescriptorLayer implements spec.md §4.6's descriptor layer: name/kind
// agreement, per-constant qualified-name validation, and call-signature
// index validation (own signature plus every function/method constant's
// embedded signature).
func verifyDescriptorLayer(desc *typedesc.Descriptor, meta parcel.Metadata) []Signal {
	var out []Signal

	if typedesc.IsMethodName(desc.Name()) != (desc.Kind() == typedesc.KindMethod) {
		out = append(out, sig(CodeNameKindMismatch, "descriptor %q kind %v", desc.Name(), desc.Kind()))
	}

	table := desc.Consts()
	typeEntries := lo.Filter(tableEntries(table), func(e indexedEntry, _ int) bool {
		return e.entry.Kind.IsTypeConst()
	})
	perEntrySignals := lo.FlatMap(typeEntries, func(e indexedEntry, _ int) []Signal {
		var s []Signal
		if violation := validateQualName(e.entry.QualName, meta, e.entry.Kind == constpool.KTypeMethod); violation != nil {
			s = append(s, *violation)
		}
		if e.entry.Sig != nil {
			s = append(s, validateCallSigIndices(table, *e.entry.Sig, e.entry.QualName)...)
		}
		return s
	})
	out = append(out, perEntrySignals...)

	if desc.Kind().IsCallable() {
		out = append(out, validateCallSigIndices(table, toConstSig(desc.CallSig()), desc.Name())...)
	}

	return out
}

// indexedEntry pairs a constant-table entry with its index, letting
// verifyDescriptorLayer walk the table with lo.Filter/lo.FlatMap instead of
// a manual loop.
type indexedEntry struct {
	entry constpool.Entry
	index int
}

// tableEntries materializes every entry in table as an indexedEntry, not
// part of constpool.Table's own public surface.
func tableEntries(table *constpool.Table) []indexedEntry {
	out := make([]indexedEntry, table.Len())
	for i := range out {
		e, _ := table.Get(i)
		out[i] = indexedEntry{entry: e, index: i}
	}
	return out
}

func toConstSig(s typedesc.CallSig) constpool.CallSig {
	return constpool.CallSig{Params: s.Params, Return: s.Return}
}

// validateCallSigIndices checks that every parameter and the return index
// of sig exist in table and point at a type constant.
func validateCallSigIndices(table *constpool.Table, s constpool.CallSig, owner string) []Signal {
	var out []Signal
	check := func(idx int, label string) {
		if !table.IsTypeConst(idx) {
			out = append(out, sig(CodeKoBNotTypeConst, "%s %s index %d", owner, label, idx))
		}
	}
	for pi, idx := range s.Params {
		check(idx, fmt.Sprintf("param[%d]", pi))
	}
	check(s.Return, "return")
	return out
}
