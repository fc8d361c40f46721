package constrata

// Solve isolates a variable in a relation, returning the set of values the
// variable may take for the relation to hold within the given domain.
//
// Coverage: the variable must occur linearly. Equalities additionally
// allow a single-monomial coefficient (so "area = w*h" solves for w as
// "area/h"); inequalities require a constant coefficient, since the sign
// of a symbolic coefficient, and with it the direction of the inequality,
// is unknown. Outside this coverage Solve returns an Unsolved marker
// rather than guessing.
func Solve(r Relation, v Variable, dom DomainRestriction) SolutionSet {
	if !r.IsAtomic() {
		return Unsolved{Reason: "disjunctive relation"}
	}
	if dom.IsEmpty() {
		return EmptySet{}
	}
	if dom.nonReal {
		return Unsolved{Reason: "non-real domain"}
	}

	diff := r.Lhs().Sub(r.Rhs())
	op := r.Op()
	switch op {
	case OpGt:
		diff, op = diff.Neg(), OpLt
	case OpGe:
		diff, op = diff.Neg(), OpLe
	}

	if occurs, _ := diff.degreeIn(v); !occurs {
		return Unsolved{Reason: "variable " + v.Name() + " does not occur"}
	}
	coeff, rest, ok := diff.splitLinear(v)
	if !ok || coeff.IsZero() {
		return Unsolved{Reason: "nonlinear in " + v.Name()}
	}

	if op == OpEq {
		sol, err := rest.Neg().Div(coeff)
		if err != nil {
			return Unsolved{Reason: "cannot isolate " + v.Name()}
		}
		return restrictPoint(sol, dom)
	}

	// Inequality: the coefficient's sign decides the direction.
	c, isConst := coeff.Constant()
	if !isConst {
		return Unsolved{Reason: "coefficient sign of " + v.Name() + " unknown"}
	}
	sol, err := rest.Neg().Div(coeff)
	if err != nil {
		return Unsolved{Reason: "cannot isolate " + v.Name()}
	}
	var ivl Interval
	if c.Sign() > 0 {
		ivl = Interval{Hi: &sol, HiOpen: op == OpLt}
	} else {
		ivl = Interval{Lo: &sol, LoOpen: op == OpLt}
	}
	if dom.IsUnrestrictedReal() {
		return ivl
	}
	return IntersectSets(dom.restrictionSet(), ivl)
}

// restrictPoint applies the domain to a single-point solution. Constant
// points are checked directly; symbolic points are wrapped in a structural
// intersection with the domain set, mirroring how a CAS leaves the
// membership question open.
func restrictPoint(sol Expr, dom DomainRestriction) SolutionSet {
	point := NewFiniteSet(sol)
	if dom.IsUnrestrictedReal() {
		return point
	}
	if c, ok := sol.Constant(); ok {
		if dom.Contains(c) {
			return point
		}
		return EmptySet{}
	}
	ds := dom.restrictionSet()
	if ds == nil {
		return point
	}
	if _, ok := ds.(EmptySet); ok {
		return EmptySet{}
	}
	return Intersection{Sets: []SolutionSet{ds, point}}
}
