package constrata

import (
	"sort"
	"strings"
)

// formulaKind discriminates Formula nodes.
type formulaKind uint8

const (
	fTrue formulaKind = iota
	fFalse
	fAtom   // a single comparison relation
	fOpaque // a condition with no relational rendering; rejected downstream
	fAnd
	fOr
)

// Formula is a boolean combination of comparison atoms, used as the
// intermediate shape between solution-set intersection and classification.
// Formulas are negation-free: solution sets only ever produce atoms, ANDs
// and ORs.
type Formula struct {
	kind formulaKind
	rel  Relation // fAtom
	note string   // fOpaque: description for warnings
	subs []*Formula
}

func trueFormula() *Formula               { return &Formula{kind: fTrue} }
func falseFormula() *Formula              { return &Formula{kind: fFalse} }
func atomFormula(r Relation) *Formula     { return &Formula{kind: fAtom, rel: r} }
func opaqueFormula(note string) *Formula  { return &Formula{kind: fOpaque, note: note} }
func andFormula(subs []*Formula) *Formula { return &Formula{kind: fAnd, subs: subs} }
func orFormula(subs []*Formula) *Formula  { return &Formula{kind: fOr, subs: subs} }

// atomKey identifies an atom within a branch for deduplication.
func (f *Formula) atomKey() string {
	if f.kind == fOpaque {
		return "opaque:" + f.note
	}
	return f.rel.Key()
}

// String renders the formula for diagnostics.
func (f *Formula) String() string {
	switch f.kind {
	case fTrue:
		return "true"
	case fFalse:
		return "false"
	case fAtom:
		return f.rel.String()
	case fOpaque:
		return f.note
	case fAnd, fOr:
		sep := " & "
		if f.kind == fOr {
			sep = " | "
		}
		parts := make([]string, len(f.subs))
		for i, s := range f.subs {
			parts[i] = "(" + s.String() + ")"
		}
		return strings.Join(parts, sep)
	}
	return "?"
}

// SimplifyDNF rewrites a formula into disjunctive normal form: fFalse,
// fTrue, a single atom, a single fAnd of atoms, or an fOr whose members
// are atoms or fAnds of atoms. Duplicate atoms within a branch and
// duplicate branches are removed.
func SimplifyDNF(f *Formula) *Formula {
	branches, isTrue := dnfBranches(f)
	if isTrue {
		return trueFormula()
	}
	if len(branches) == 0 {
		return falseFormula()
	}

	seen := make(map[string]struct{}, len(branches))
	rebuilt := make([]*Formula, 0, len(branches))
	for _, branch := range branches {
		key := branchKey(branch)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if len(branch) == 1 {
			rebuilt = append(rebuilt, branch[0])
		} else {
			rebuilt = append(rebuilt, andFormula(branch))
		}
	}
	if len(rebuilt) == 1 {
		return rebuilt[0]
	}
	return orFormula(rebuilt)
}

// dnfBranches returns the formula as a list of conjunctive branches of
// atoms (fAtom/fOpaque). An empty list with isTrue=false is fFalse; isTrue
// marks the vacuously true formula.
func dnfBranches(f *Formula) (branches [][]*Formula, isTrue bool) {
	switch f.kind {
	case fTrue:
		return nil, true
	case fFalse:
		return nil, false
	case fAtom, fOpaque:
		return [][]*Formula{{f}}, false
	case fOr:
		anyTrue := false
		var out [][]*Formula
		for _, sub := range f.subs {
			bs, t := dnfBranches(sub)
			if t {
				anyTrue = true
				continue
			}
			out = append(out, bs...)
		}
		if anyTrue {
			return nil, true
		}
		return out, false
	case fAnd:
		// Start from a single empty branch and distribute each
		// conjunct's branches across the accumulated set.
		acc := [][]*Formula{{}}
		for _, sub := range f.subs {
			bs, t := dnfBranches(sub)
			if t {
				continue
			}
			if len(bs) == 0 {
				return nil, false // conjunct is false
			}
			next := make([][]*Formula, 0, len(acc)*len(bs))
			for _, a := range acc {
				for _, b := range bs {
					next = append(next, mergeBranch(a, b))
				}
			}
			acc = next
		}
		if len(acc) == 1 && len(acc[0]) == 0 {
			return nil, true
		}
		return acc, false
	}
	return nil, false
}

// mergeBranch concatenates two atom lists, dropping duplicate atoms.
func mergeBranch(a, b []*Formula) []*Formula {
	out := make([]*Formula, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, f := range append(append([]*Formula{}, a...), b...) {
		k := f.atomKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

func branchKey(branch []*Formula) string {
	keys := make([]string, len(branch))
	for i, f := range branch {
		keys[i] = f.atomKey()
	}
	// Branch identity ignores atom order.
	sort.Strings(keys)
	return strings.Join(keys, "&")
}
