package constrata

import "fmt"

// placeholderRelation is the canonical classification of a relation that
// has been re-expressed over a placeholder variable: the placeholder
// compares to expr under op, which is "=", "<" or ">". Equality is never
// strict; for inequalities, strict records whether the bound is open.
type placeholderRelation struct {
	op     string
	expr   Expr
	strict bool
}

// classifyPlaceholder solves an atomic relation for the placeholder within
// the placeholder's domain and normalizes the resulting set into an
// (op, expr, strict) triple.
//
// Normalization first unwraps single-point Intersection/Union layers (a
// domain-restricted point such as Z ∩ {a/2} classifies by its point), then
// accepts exactly two shapes: a one-element finite set (equality) and an
// interval whose far end is constant, which pins the placeholder above or
// below the symbolic end. Everything else is unanalyzable.
func classifyPlaceholder(rel Relation, p Variable) (placeholderRelation, error) {
	set := Solve(rel, p, Resolve(p))

	// Unwrap one level at a time while the second member is a single
	// point; the remaining structure cannot tighten a point further.
	for {
		var members []SolutionSet
		switch t := set.(type) {
		case Intersection:
			members = t.Sets
		case Union:
			members = t.Sets
		default:
			members = nil
		}
		if len(members) != 2 {
			break
		}
		fs, ok := members[1].(FiniteSet)
		if !ok || len(fs.Elems) != 1 {
			break
		}
		set = fs
	}

	switch t := set.(type) {
	case FiniteSet:
		if len(t.Elems) == 1 {
			return placeholderRelation{op: "=", expr: t.Elems[0]}, nil
		}
	case Interval:
		hiConst := t.Hi == nil
		if t.Hi != nil {
			_, hiConst = t.Hi.Constant()
		}
		loConst := t.Lo == nil
		if t.Lo != nil {
			_, loConst = t.Lo.Constant()
		}
		if hiConst && t.Lo != nil {
			return placeholderRelation{op: ">", expr: *t.Lo, strict: t.LoOpen}, nil
		}
		if loConst && t.Hi != nil {
			return placeholderRelation{op: "<", expr: *t.Hi, strict: t.HiOpen}, nil
		}
	}

	return placeholderRelation{}, fmt.Errorf(
		"could not analyze relation %s: it generated the set %s", rel, set)
}
