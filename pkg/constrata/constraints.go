package constrata

import (
	"fmt"
	"strconv"
)

// Constraints is the result of a deduction run: the input relations plus
// everything they imply, packaged as Validations (relations grouped by
// exact free-variable set) and Imputations (directed recovery formulas).
//
// A Constraints value is immutable once built and safe to share across
// goroutines; evaluation against data never mutates it.
type Constraints struct {
	validations []*Validation
	imputations []*Imputation
	warnings    []error
}

// NewConstraints deduces the complete rule set implied by the given
// relations. Deduction anomalies (relations the bundled solver cannot
// analyze) degrade gracefully: the offending relation keeps its place in
// the validation grouping, is skipped for pairwise deduction, and a
// warning is recorded (see Warnings).
func NewConstraints(relations []Relation) *Constraints {
	d := newDeduction()

	// Pass 1: group the inputs, solve each relation per variable, and
	// harvest single-point solutions as imputation candidates.
	for _, rel := range relations {
		d.addRelation(rel, nil)
		for _, v := range rel.FreeVariables().Slice() {
			set := Solve(rel, v, Resolve(v))
			if u, ok := set.(Unsolved); ok {
				d.warnf("skipping %s for %s: %s", rel, v, u.Reason)
				continue
			}
			d.addSolution(v, set, rel)
			d.harvest(set, v, []Relation{rel})
		}
	}

	// Pass 2: pairwise-combine each variable's solution sets through a
	// placeholder, re-relate, and eliminate the placeholder. Deduction
	// is one level deep per pair: derived relations are re-solved once
	// for imputations but never re-paired.
	for _, v := range d.symOrder {
		entries := d.bySymbol[v].sets
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				d.combine(v, entries[i], entries[j])
			}
		}
	}

	return &Constraints{
		validations: d.assembleValidations(),
		imputations: d.imputations,
		warnings:    d.warnings,
	}
}

// Validations returns every deduced validation group in deterministic
// order (input groups first, then derived groups in discovery order).
func (c *Constraints) Validations() []*Validation {
	out := make([]*Validation, len(c.validations))
	copy(out, c.validations)
	return out
}

// Imputations returns every deduced imputation rule in deterministic
// order, deduplicated by (sources, target, expression).
func (c *Constraints) Imputations() []*Imputation {
	out := make([]*Imputation, len(c.imputations))
	copy(out, c.imputations)
	return out
}

// Warnings returns the non-fatal anomalies recorded during deduction.
func (c *Constraints) Warnings() []error {
	out := make([]error, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// solutionEntry pairs a solution set with the input relation it came from,
// for provenance tracking.
type solutionEntry struct {
	set    SolutionSet
	origin Relation
}

type symbolEntry struct {
	sets []solutionEntry
	seen map[string]struct{}
}

// relationGroup collects relations sharing one exact free-variable set.
type relationGroup struct {
	vars    *VarSet
	rels    []Relation
	seen    map[string]struct{}
	parents map[string][]Relation // relation key -> deduction sources
}

// deduction is the engine's working state. All collections are
// insertion-ordered so the output enumerates deterministically.
type deduction struct {
	symOrder    []Variable
	bySymbol    map[Variable]*symbolEntry
	groupOrder  []string
	groups      map[string]*relationGroup
	imputations []*Imputation
	impSeen     map[string]struct{}
	warnings    []error
	dummySeq    int
}

func newDeduction() *deduction {
	return &deduction{
		bySymbol: make(map[Variable]*symbolEntry),
		groups:   make(map[string]*relationGroup),
		impSeen:  make(map[string]struct{}),
	}
}

func (d *deduction) warnf(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Errorf(format, args...))
}

// addRelation files a relation under its free-variable group. It reports
// whether the relation was new; parents record provenance for derived
// relations.
func (d *deduction) addRelation(rel Relation, parents []Relation) bool {
	vars := rel.FreeVariables()
	gk := vars.Key()
	g, ok := d.groups[gk]
	if !ok {
		g = &relationGroup{
			vars:    vars,
			seen:    make(map[string]struct{}),
			parents: make(map[string][]Relation),
		}
		d.groups[gk] = g
		d.groupOrder = append(d.groupOrder, gk)
	}
	if _, dup := g.seen[rel.Key()]; dup {
		return false
	}
	g.seen[rel.Key()] = struct{}{}
	g.rels = append(g.rels, rel)
	if len(parents) > 0 {
		g.parents[rel.Key()] = parents
	}
	return true
}

func (d *deduction) addSolution(v Variable, set SolutionSet, origin Relation) {
	e, ok := d.bySymbol[v]
	if !ok {
		e = &symbolEntry{seen: make(map[string]struct{})}
		d.bySymbol[v] = e
		d.symOrder = append(d.symOrder, v)
	}
	if _, dup := e.seen[set.Key()]; dup {
		return
	}
	e.seen[set.Key()] = struct{}{}
	e.sets = append(e.sets, solutionEntry{set: set, origin: origin})
}

// harvest records an imputation candidate when the set is a single plain
// expression.
func (d *deduction) harvest(set SolutionSet, target Variable, provenance []Relation) {
	fs, ok := set.(FiniteSet)
	if !ok || len(fs.Elems) != 1 {
		return
	}
	expr := fs.Elems[0]
	sources := expr.FreeVariables()
	if sources.Contains(target) {
		return
	}
	im := newImputation(sources, target, expr, provenance)
	if _, dup := d.impSeen[im.Key()]; dup {
		return
	}
	d.impSeen[im.Key()] = struct{}{}
	d.imputations = append(d.imputations, im)
}

// freshDummy introduces a placeholder carrying the same domain assumptions
// as the paired variable.
func (d *deduction) freshDummy(v Variable) Variable {
	d.dummySeq++
	return Variable{name: "_p" + strconv.Itoa(d.dummySeq), assume: v.assume}
}

// combine intersects two of a variable's solution sets through a fresh
// placeholder and turns the resulting conjunction (or disjunction of
// conjunctions) into new placeholder-free relations.
func (d *deduction) combine(v Variable, s1, s2 solutionEntry) {
	p := d.freshDummy(v)
	combined := SimplifyDNF(AsRelation(IntersectSets(s1.set, s2.set), p))
	parents := []Relation{s1.origin, s2.origin}

	switch combined.kind {
	case fAnd:
		for _, rel := range d.eliminate(combined.subs, p) {
			if !d.addRelation(rel, parents) {
				continue
			}
			// Second-level harvesting: solve the derived relation
			// once per variable. Not iterated further.
			for _, nv := range rel.FreeVariables().Slice() {
				d.harvest(Solve(rel, nv, Resolve(nv)), nv, parents)
			}
		}
	case fOr:
		var branches []Relation
		for _, sub := range combined.subs {
			if sub.kind != fAnd {
				return // a branch that is not a conjunction: discard all
			}
			reduced := d.eliminate(sub.subs, p)
			if len(reduced) == 0 {
				return // a branch that reduces to nothing: discard all
			}
			branches = append(branches, reduced...)
		}
		d.addRelation(OrRelations(branches...), parents)
	}
}

// eliminate classifies the conjunction's atoms against the placeholder and
// applies the elimination table to every unordered pair, producing
// relations that no longer mention the placeholder. Unclassifiable atoms
// are dropped with a warning.
func (d *deduction) eliminate(atoms []*Formula, p Variable) []Relation {
	var useful []placeholderRelation
	for _, atom := range atoms {
		if atom.kind != fAtom {
			d.warnf("could not analyze condition %s", atom.note)
			continue
		}
		pr, err := classifyPlaceholder(atom.rel, p)
		if err != nil {
			d.warnings = append(d.warnings, err)
			continue
		}
		useful = append(useful, pr)
	}

	var out []Relation
	for i := 0; i < len(useful); i++ {
		for j := i + 1; j < len(useful); j++ {
			r1, r2 := useful[i], useful[j]
			strict := r1.strict || r2.strict
			switch {
			case r1.op == "=" && r2.op == "=":
				out = append(out, Eq(r1.expr, r2.expr))
			case (r1.op == ">" || r1.op == "=") && (r2.op == "<" || r2.op == "="):
				if strict {
					out = append(out, Lt(r1.expr, r2.expr))
				} else {
					out = append(out, Le(r1.expr, r2.expr))
				}
			case (r1.op == "<" || r1.op == "=") && (r2.op == ">" || r2.op == "="):
				if strict {
					out = append(out, Gt(r1.expr, r2.expr))
				} else {
					out = append(out, Ge(r1.expr, r2.expr))
				}
			}
		}
	}
	return out
}

// assembleValidations packages each group into a Validation, attaching as
// provenance the union of the deduction sources of its derived members.
func (d *deduction) assembleValidations() []*Validation {
	out := make([]*Validation, 0, len(d.groupOrder))
	for _, gk := range d.groupOrder {
		g := d.groups[gk]
		var prov []Relation
		seen := make(map[string]struct{})
		for _, rel := range g.rels {
			for _, parent := range g.parents[rel.Key()] {
				if _, dup := seen[parent.Key()]; dup {
					continue
				}
				seen[parent.Key()] = struct{}{}
				prov = append(prov, parent)
			}
		}
		out = append(out, newValidation(g.vars, g.rels, prov))
	}
	return out
}
