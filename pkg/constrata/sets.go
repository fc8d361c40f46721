package constrata

import (
	"sort"
	"strings"
)

// SolutionSet is the abstract description of all values a variable may
// take for a relation to hold, restricted to that variable's domain.
// Solution sets are ephemeral: computed on demand during deduction and
// never part of the engine's output.
//
// Implementations are immutable values identified by Key.
type SolutionSet interface {
	// Key returns the canonical identity of the set, used to
	// deduplicate sets in working collections.
	Key() string

	// String returns a human-readable rendering for diagnostics.
	String() string
}

// FiniteSet is an explicit finite set of symbolic elements.
type FiniteSet struct {
	Elems []Expr
}

// NewFiniteSet builds a finite set with canonical element order and
// duplicates removed.
func NewFiniteSet(elems ...Expr) FiniteSet {
	seen := make(map[string]struct{}, len(elems))
	out := make([]Expr, 0, len(elems))
	for _, e := range elems {
		k := e.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return FiniteSet{Elems: out}
}

// Key implements SolutionSet.
func (s FiniteSet) Key() string {
	parts := make([]string, len(s.Elems))
	for i, e := range s.Elems {
		parts[i] = e.Key()
	}
	return "fin{" + strings.Join(parts, ";") + "}"
}

// String implements SolutionSet.
func (s FiniteSet) String() string {
	parts := make([]string, len(s.Elems))
	for i, e := range s.Elems {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Interval is a real interval with symbolic ends. A nil end is unbounded
// on that side; the open flags control end inclusion.
type Interval struct {
	Lo, Hi *Expr
	LoOpen bool
	HiOpen bool
}

// Key implements SolutionSet.
func (s Interval) Key() string {
	var b strings.Builder
	if s.LoOpen {
		b.WriteString("(")
	} else {
		b.WriteString("[")
	}
	if s.Lo == nil {
		b.WriteString("-inf")
	} else {
		b.WriteString(s.Lo.Key())
	}
	b.WriteString(";")
	if s.Hi == nil {
		b.WriteString("+inf")
	} else {
		b.WriteString(s.Hi.Key())
	}
	if s.HiOpen {
		b.WriteString(")")
	} else {
		b.WriteString("]")
	}
	return "ivl" + b.String()
}

// String implements SolutionSet.
func (s Interval) String() string {
	lo, hi := "-inf", "+inf"
	if s.Lo != nil {
		lo = s.Lo.String()
	}
	if s.Hi != nil {
		hi = s.Hi.String()
	}
	left, right := "[", "]"
	if s.LoOpen || s.Lo == nil {
		left = "("
	}
	if s.HiOpen || s.Hi == nil {
		right = ")"
	}
	return left + lo + ", " + hi + right
}

// constantEnds reports whether every present end is a constant expression.
func (s Interval) constantEnds() bool {
	if s.Lo != nil {
		if _, ok := s.Lo.Constant(); !ok {
			return false
		}
	}
	if s.Hi != nil {
		if _, ok := s.Hi.Constant(); !ok {
			return false
		}
	}
	return true
}

// Intersection is a structural intersection of sets that cannot be
// combined symbolically.
type Intersection struct {
	Sets []SolutionSet
}

// Key implements SolutionSet.
func (s Intersection) Key() string {
	parts := make([]string, len(s.Sets))
	for i, m := range s.Sets {
		parts[i] = m.Key()
	}
	return "cap(" + strings.Join(parts, "&") + ")"
}

// String implements SolutionSet.
func (s Intersection) String() string {
	parts := make([]string, len(s.Sets))
	for i, m := range s.Sets {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ∩ ")
}

// Union is a structural union of sets.
type Union struct {
	Sets []SolutionSet
}

// Key implements SolutionSet.
func (s Union) Key() string {
	parts := make([]string, len(s.Sets))
	for i, m := range s.Sets {
		parts[i] = m.Key()
	}
	return "cup(" + strings.Join(parts, "|") + ")"
}

// String implements SolutionSet.
func (s Union) String() string {
	parts := make([]string, len(s.Sets))
	for i, m := range s.Sets {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ∪ ")
}

// EmptySet is the set with no values.
type EmptySet struct{}

// Key implements SolutionSet.
func (EmptySet) Key() string { return "empty" }

// String implements SolutionSet.
func (EmptySet) String() string { return "∅" }

// IntegerSet marks restriction to the integers, used when an
// integer-domain variable's solutions cannot be checked symbolically.
type IntegerSet struct{}

// Key implements SolutionSet.
func (IntegerSet) Key() string { return "integers" }

// String implements SolutionSet.
func (IntegerSet) String() string { return "Z" }

// Unsolved marks a relation the bundled solver could not solve for the
// requested variable. Unsolved sets never enter the pairwise deduction
// pool.
type Unsolved struct {
	Reason string
}

// Key implements SolutionSet.
func (s Unsolved) Key() string { return "unsolved:" + s.Reason }

// String implements SolutionSet.
func (s Unsolved) String() string { return "unsolved(" + s.Reason + ")" }

// IntersectSets intersects two solution sets, combining them symbolically
// where possible and otherwise returning a structural Intersection, the
// way a CAS leaves an intersection unevaluated.
func IntersectSets(a, b SolutionSet) SolutionSet {
	if _, ok := a.(Unsolved); ok {
		return a
	}
	if _, ok := b.(Unsolved); ok {
		return b
	}
	if _, ok := a.(EmptySet); ok {
		return EmptySet{}
	}
	if _, ok := b.(EmptySet); ok {
		return EmptySet{}
	}
	if a.Key() == b.Key() {
		return a
	}

	if fa, ok := a.(FiniteSet); ok {
		if fb, ok := b.(FiniteSet); ok {
			return intersectFinite(fa, fb)
		}
	}
	if ia, ok := a.(Interval); ok {
		if ib, ok := b.(Interval); ok && ia.constantEnds() && ib.constantEnds() {
			return intersectConstIntervals(ia, ib)
		}
	}

	return Intersection{Sets: flattenIntersection(a, b)}
}

func flattenIntersection(sets ...SolutionSet) []SolutionSet {
	var out []SolutionSet
	seen := make(map[string]struct{})
	var add func(s SolutionSet)
	add = func(s SolutionSet) {
		if in, ok := s.(Intersection); ok {
			for _, m := range in.Sets {
				add(m)
			}
			return
		}
		k := s.Key()
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	for _, s := range sets {
		add(s)
	}
	return out
}

// intersectFinite keeps syntactically common elements. When nothing is
// common the result is empty only if every element on both sides is a
// constant; symbolic elements may still coincide for some data, so the
// intersection stays structural.
func intersectFinite(a, b FiniteSet) SolutionSet {
	inB := make(map[string]struct{}, len(b.Elems))
	for _, e := range b.Elems {
		inB[e.Key()] = struct{}{}
	}
	var common []Expr
	for _, e := range a.Elems {
		if _, ok := inB[e.Key()]; ok {
			common = append(common, e)
		}
	}
	if len(common) > 0 {
		return NewFiniteSet(common...)
	}
	allConst := true
	for _, e := range append(append([]Expr{}, a.Elems...), b.Elems...) {
		if _, ok := e.Constant(); !ok {
			allConst = false
			break
		}
	}
	if allConst {
		return EmptySet{}
	}
	return Intersection{Sets: flattenIntersection(a, b)}
}

func intersectConstIntervals(a, b Interval) SolutionSet {
	out := a
	if b.Lo != nil {
		bl, _ := b.Lo.Constant()
		switch {
		case out.Lo == nil:
			out.Lo, out.LoOpen = b.Lo, b.LoOpen
		default:
			al, _ := out.Lo.Constant()
			if c := bl.Cmp(al); c > 0 {
				out.Lo, out.LoOpen = b.Lo, b.LoOpen
			} else if c == 0 {
				out.LoOpen = out.LoOpen || b.LoOpen
			}
		}
	}
	if b.Hi != nil {
		bh, _ := b.Hi.Constant()
		switch {
		case out.Hi == nil:
			out.Hi, out.HiOpen = b.Hi, b.HiOpen
		default:
			ah, _ := out.Hi.Constant()
			if c := bh.Cmp(ah); c < 0 {
				out.Hi, out.HiOpen = b.Hi, b.HiOpen
			} else if c == 0 {
				out.HiOpen = out.HiOpen || b.HiOpen
			}
		}
	}
	if out.Lo != nil && out.Hi != nil {
		lo, _ := out.Lo.Constant()
		hi, _ := out.Hi.Constant()
		if c := lo.Cmp(hi); c > 0 || (c == 0 && (out.LoOpen || out.HiOpen)) {
			return EmptySet{}
		}
	}
	return out
}

// AsRelation re-expresses a solution set as a boolean formula over a
// placeholder variable, the inverse of solving. Sets with no relational
// rendering (the integers marker, unsolved markers) become opaque atoms
// that the classifier later rejects with a warning.
func AsRelation(s SolutionSet, p Variable) *Formula {
	pe := NewVariableExpr(p)
	switch t := s.(type) {
	case FiniteSet:
		if len(t.Elems) == 0 {
			return falseFormula()
		}
		subs := make([]*Formula, len(t.Elems))
		for i, e := range t.Elems {
			subs[i] = atomFormula(Eq(pe, e))
		}
		if len(subs) == 1 {
			return subs[0]
		}
		return orFormula(subs)
	case Interval:
		var subs []*Formula
		if t.Lo != nil {
			if t.LoOpen {
				subs = append(subs, atomFormula(Gt(pe, *t.Lo)))
			} else {
				subs = append(subs, atomFormula(Ge(pe, *t.Lo)))
			}
		}
		if t.Hi != nil {
			if t.HiOpen {
				subs = append(subs, atomFormula(Lt(pe, *t.Hi)))
			} else {
				subs = append(subs, atomFormula(Le(pe, *t.Hi)))
			}
		}
		switch len(subs) {
		case 0:
			return trueFormula()
		case 1:
			return subs[0]
		default:
			return andFormula(subs)
		}
	case Intersection:
		subs := make([]*Formula, len(t.Sets))
		for i, m := range t.Sets {
			subs[i] = AsRelation(m, p)
		}
		return andFormula(subs)
	case Union:
		subs := make([]*Formula, len(t.Sets))
		for i, m := range t.Sets {
			subs[i] = AsRelation(m, p)
		}
		return orFormula(subs)
	case EmptySet:
		return falseFormula()
	case IntegerSet:
		return opaqueFormula(p.Name() + " ∈ Z")
	default:
		return opaqueFormula(s.String())
	}
}
