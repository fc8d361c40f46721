package constrata

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findValidation returns the validation over exactly the given variables,
// or nil.
func findValidation(c *Constraints, vars *VarSet) *Validation {
	for _, v := range c.Validations() {
		if v.Variables().Equal(vars) {
			return v
		}
	}
	return nil
}

func imputationKeys(c *Constraints) []string {
	imps := c.Imputations()
	keys := make([]string, len(imps))
	for i, im := range imps {
		keys[i] = im.String()
	}
	return keys
}

func TestDeduceInequalityClosure(t *testing.T) {
	av, bv, cv := Real("a"), Real("b"), Real("c")
	a, b, c := NewVariableExpr(av), NewVariableExpr(bv), NewVariableExpr(cv)

	// a = 2b and c < b + 3 imply a/2 > c - 3.
	cons := NewConstraints([]Relation{
		Eq(a, b.Scale(big.NewRat(2, 1))),
		Lt(c, b.Add(NewIntExpr(3))),
	})
	assert.Empty(t, cons.Warnings())

	vals := cons.Validations()
	require.Len(t, vals, 3)

	input1 := findValidation(cons, NewVarSet(av, bv))
	require.NotNil(t, input1)
	require.Len(t, input1.Relations(), 1)
	assert.Nil(t, input1.Provenance(), "direct inputs carry no provenance")

	input2 := findValidation(cons, NewVarSet(bv, cv))
	require.NotNil(t, input2)

	derived := findValidation(cons, NewVarSet(av, cv))
	require.NotNil(t, derived, "the b-free consequence must be deduced")
	rels := derived.Relations()
	require.Len(t, rels, 1)
	half, err := a.Div(NewIntExpr(2))
	require.NoError(t, err)
	assert.True(t, rels[0].Equal(Gt(half, c.Sub(NewIntExpr(3)))), "got %s", rels[0])

	prov := derived.Provenance()
	require.Len(t, prov, 2, "provenance names both input relations")

	// Only the equality yields recovery formulas.
	imps := cons.Imputations()
	require.Len(t, imps, 2, "got %v", imputationKeys(cons))
	assert.Equal(t, "Imputation: (b) => a = 2*b", imps[0].String())
	assert.Equal(t, "Imputation: (a) => b = a/2", imps[1].String())
}

func TestDeduceChainedEqualities(t *testing.T) {
	av, bv, cv, dv, ev := Real("a"), Real("b"), Real("c"), Real("d"), Real("e")
	a, b := NewVariableExpr(av), NewVariableExpr(bv)
	c, d, e := NewVariableExpr(cv), NewVariableExpr(dv), NewVariableExpr(ev)

	// a = b + c and c = d - e share c, so a - b = d - e follows and every
	// variable becomes recoverable from the rest of its group.
	cons := NewConstraints([]Relation{
		Eq(a, b.Add(c)),
		Eq(c, d.Sub(e)),
	})
	assert.Empty(t, cons.Warnings())

	require.Len(t, cons.Validations(), 3)
	derived := findValidation(cons, NewVarSet(av, bv, dv, ev))
	require.NotNil(t, derived)
	require.Len(t, derived.Relations(), 1)
	assert.True(t, derived.Relations()[0].Equal(Eq(a.Sub(b), d.Sub(e))),
		"got %s", derived.Relations()[0])

	imps := cons.Imputations()
	require.Len(t, imps, 10, "got %v", imputationKeys(cons))

	// Directly solvable rules from the inputs.
	want := []string{
		"Imputation: (b, c) => a = b + c",
		"Imputation: (a, c) => b = a - c",
		"Imputation: (a, b) => c = a - b",
		"Imputation: (d, e) => c = d - e",
		"Imputation: (c, e) => d = c + e",
		"Imputation: (c, d) => e = -c + d",
	}
	got := imputationKeys(cons)
	for _, w := range want {
		assert.Contains(t, got, w)
	}

	// Rules harvested from the derived equality.
	derivedTargets := map[string]bool{}
	for _, im := range imps[6:] {
		derivedTargets[im.Target().Name()] = true
		assert.Equal(t, 3, im.Sources().Len())
		require.Len(t, im.Provenance(), 2, "derived rules name their two sources")
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "d": true, "e": true}, derivedTargets)
}

func TestDeduceStrictness(t *testing.T) {
	av, bv, cv := Real("a"), Real("b"), Real("c")
	a, b, c := NewVariableExpr(av), NewVariableExpr(bv), NewVariableExpr(cv)

	t.Run("weak pair stays weak", func(t *testing.T) {
		// a <= b and a >= c imply b >= c.
		cons := NewConstraints([]Relation{Le(a, b), Ge(a, c)})
		derived := findValidation(cons, NewVarSet(bv, cv))
		require.NotNil(t, derived)
		require.Len(t, derived.Relations(), 1)
		assert.True(t, derived.Relations()[0].Equal(Ge(b, c)), "got %s", derived.Relations()[0])
	})

	t.Run("one strict member makes the result strict", func(t *testing.T) {
		// a < b and a >= c imply b > c.
		cons := NewConstraints([]Relation{Lt(a, b), Ge(a, c)})
		derived := findValidation(cons, NewVarSet(bv, cv))
		require.NotNil(t, derived)
		require.Len(t, derived.Relations(), 1)
		assert.True(t, derived.Relations()[0].Equal(Gt(b, c)), "got %s", derived.Relations()[0])
	})
}

func TestDeduceGroupingInvariant(t *testing.T) {
	av, bv, cv := Real("a"), Real("b"), Real("c")
	a, b, c := NewVariableExpr(av), NewVariableExpr(bv), NewVariableExpr(cv)

	// Two relations over (a, b) share one group; the (b, c) relation gets
	// its own.
	cons := NewConstraints([]Relation{
		Lt(a, b),
		Le(a, b.Scale(big.NewRat(2, 1))),
		Lt(b, c),
	})
	for _, v := range cons.Validations() {
		for _, rel := range v.Relations() {
			assert.True(t, rel.FreeVariables().Equal(v.Variables()),
				"relation %s filed under group %s", rel, v.Variables())
		}
	}
	ab := findValidation(cons, NewVarSet(av, bv))
	require.NotNil(t, ab)
	assert.Len(t, ab.Relations(), 2)
}

func TestDeduceDuplicateInputsCollapse(t *testing.T) {
	av, bv := Real("a"), Real("b")
	a, b := NewVariableExpr(av), NewVariableExpr(bv)
	two := big.NewRat(2, 1)

	cons := NewConstraints([]Relation{
		Eq(a, b.Scale(two)),
		Eq(b.Scale(two), a), // same relation, rearranged
	})
	require.Len(t, cons.Validations(), 1)
	assert.Len(t, cons.Validations()[0].Relations(), 1)
	assert.Len(t, cons.Imputations(), 2)
}

func TestDeduceWarnsOnUnsolvable(t *testing.T) {
	av, bv := Real("a"), Real("b")
	a, b := NewVariableExpr(av), NewVariableExpr(bv)

	// a^2 = b cannot be solved for a; the relation must still validate,
	// b is still recoverable, and the anomaly surfaces as a warning.
	cons := NewConstraints([]Relation{Eq(a.Mul(a), b)})

	warnings := cons.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), "skipping")
	assert.Contains(t, warnings[0].Error(), "nonlinear in a")

	require.Len(t, cons.Validations(), 1)
	assert.Len(t, cons.Validations()[0].Relations(), 1)

	imps := cons.Imputations()
	require.Len(t, imps, 1)
	assert.Equal(t, "Imputation: (a) => b = a^2", imps[0].String())
}

func TestDeduceProductRule(t *testing.T) {
	areaV, wV, hV := Real("area"), Real("width"), Real("height")
	area := NewVariableExpr(areaV)
	w, h := NewVariableExpr(wV), NewVariableExpr(hV)

	cons := NewConstraints([]Relation{
		Gt(h, w),
		Eq(area, w.Mul(h)),
	})

	// The product equality recovers each factor by division.
	got := imputationKeys(cons)
	assert.Contains(t, got, "Imputation: (height, width) => area = height*width")
	assert.Contains(t, got, "Imputation: (area, height) => width = area/height")
	assert.Contains(t, got, "Imputation: (area, width) => height = area/width")

	// Combining h > w with h = area/w eliminates h.
	derived := findValidation(cons, NewVarSet(areaV, wV))
	require.NotNil(t, derived)
	require.Len(t, derived.Relations(), 1)
	q, err := area.Div(w)
	require.NoError(t, err)
	assert.True(t, derived.Relations()[0].Equal(Lt(w, q)), "got %s", derived.Relations()[0])
}

// The engine deliberately deduces one level deep: relations derived in the
// pairwise pass are harvested for imputations but never fed back into the
// pairwise pool, so consequences of consequences stay out.
func TestDeductionIsSinglePass(t *testing.T) {
	av, bv, cv, dv := Real("a"), Real("b"), Real("c"), Real("d")
	a, b := NewVariableExpr(av), NewVariableExpr(bv)
	c, d := NewVariableExpr(cv), NewVariableExpr(dv)

	cons := NewConstraints([]Relation{
		Eq(a, b),
		Eq(b, c),
		Eq(c, d),
	})

	// One pairing step reaches a = c and b = d.
	assert.NotNil(t, findValidation(cons, NewVarSet(av, cv)))
	assert.NotNil(t, findValidation(cons, NewVarSet(bv, dv)))

	// Two steps would reach a = d; the engine must not.
	assert.Nil(t, findValidation(cons, NewVarSet(av, dv)))

	got := imputationKeys(cons)
	assert.Contains(t, got, "Imputation: (c) => a = c")
	assert.NotContains(t, got, "Imputation: (d) => a = d")
	assert.Len(t, got, 10)
}

// A union-shaped solution set (the solved variable is one of several
// candidate expressions) turns into a single disjunctive relation: each
// union branch is reduced through the elimination table and the results
// are OR'd together under the combined variable set.
func TestCombineUnionProducesDisjunction(t *testing.T) {
	xv := Real("x")
	av, bv, cv := Real("a"), Real("b"), Real("c")
	x := NewVariableExpr(xv)
	a, b, c := NewVariableExpr(av), NewVariableExpr(bv), NewVariableExpr(cv)

	d := newDeduction()
	d.combine(xv,
		solutionEntry{
			set:    Union{Sets: []SolutionSet{NewFiniteSet(a), NewFiniteSet(b)}},
			origin: OrRelations(Eq(x, a), Eq(x, b)),
		},
		solutionEntry{set: NewFiniteSet(c), origin: Eq(x, c)},
	)

	gk := NewVarSet(av, bv, cv).Key()
	g, ok := d.groups[gk]
	require.True(t, ok, "disjunction must file under the union of branch variables, got groups %v", d.groupOrder)
	require.Len(t, g.rels, 1)
	got := g.rels[0]
	assert.False(t, got.IsAtomic())
	assert.True(t, got.Equal(OrRelations(Eq(a, c), Eq(b, c))), "got %s", got)
	require.Len(t, g.parents[got.Key()], 2)

	assert.Empty(t, d.imputations, "disjunctive results are not harvested")
	assert.Empty(t, d.warnings)
}

// When any branch of a disjunction fails to reduce to a relation, keeping
// the remaining branches would strengthen the disjunction, so the whole
// result is discarded.
func TestCombineUnionDiscardsOnUnreducibleBranch(t *testing.T) {
	xv := Real("x")
	av, bv := Real("a"), Real("b")
	x := NewVariableExpr(xv)
	a, b := NewVariableExpr(av), NewVariableExpr(bv)

	// The integers marker re-relates to an opaque atom, so each branch
	// holds one classifiable atom and nothing to pair it with.
	d := newDeduction()
	d.combine(xv,
		solutionEntry{
			set:    Union{Sets: []SolutionSet{NewFiniteSet(a), NewFiniteSet(b)}},
			origin: OrRelations(Eq(x, a), Eq(x, b)),
		},
		solutionEntry{set: IntegerSet{}, origin: Ge(x, NewIntExpr(0))},
	)

	assert.Empty(t, d.groupOrder, "no partial disjunction may survive")
	assert.Empty(t, d.imputations)
	assert.NotEmpty(t, d.warnings, "the opaque branch member is reported")
}

func TestDeduceDeterministicOrder(t *testing.T) {
	av, bv, cv := Real("a"), Real("b"), Real("c")
	a, b, c := NewVariableExpr(av), NewVariableExpr(bv), NewVariableExpr(cv)

	build := func() ([]string, []string) {
		cons := NewConstraints([]Relation{
			Eq(a, b.Scale(big.NewRat(2, 1))),
			Lt(c, b.Add(NewIntExpr(3))),
			Eq(b, c.Add(NewIntExpr(1))),
		})
		var vals []string
		for _, v := range cons.Validations() {
			vals = append(vals, v.Key())
		}
		return vals, imputationKeys(cons)
	}

	vals, imps := build()
	for i := 0; i < 20; i++ {
		v2, i2 := build()
		require.Equal(t, vals, v2, "validation order must not vary between runs")
		require.Equal(t, imps, i2, "imputation order must not vary between runs")
	}
}
