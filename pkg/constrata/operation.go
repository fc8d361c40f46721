package constrata

import (
	"fmt"
	"sort"
	"strings"
)

// Validation groups relations whose free-variable set is exactly the same.
// Evaluating a Validation against data answers "given that all of these
// variables are present, are they mutually consistent?".
//
// Validations are immutable value objects: equality and identity follow
// the (variables, relations) pair, with provenance excluded.
type Validation struct {
	vars       *VarSet
	relations  []Relation
	provenance []Relation
	key        string
}

// NewValidation creates a validation over the given variable set. Every
// relation's free-variable set must equal vars exactly.
func NewValidation(vars *VarSet, relations []Relation) (*Validation, error) {
	for _, r := range relations {
		if !r.FreeVariables().Equal(vars) {
			return nil, fmt.Errorf("relation %s has free variables %s, want %s",
				r, r.FreeVariables(), vars)
		}
	}
	return newValidation(vars, relations, nil), nil
}

func newValidation(vars *VarSet, relations, provenance []Relation) *Validation {
	keys := make([]string, len(relations))
	for i, r := range relations {
		keys[i] = r.Key()
	}
	sort.Strings(keys)
	return &Validation{
		vars:       vars,
		relations:  relations,
		provenance: provenance,
		key:        vars.Key() + "=>" + strings.Join(keys, ";"),
	}
}

// Variables returns the validation's variable set.
func (v *Validation) Variables() *VarSet {
	return v.vars
}

// Relations returns the member relations in deterministic order. The
// returned slice is a copy.
func (v *Validation) Relations() []Relation {
	out := make([]Relation, len(v.relations))
	copy(out, v.relations)
	return out
}

// Provenance returns the input relations the derived members were deduced
// from, or nil when every member was given directly.
func (v *Validation) Provenance() []Relation {
	if len(v.provenance) == 0 {
		return nil
	}
	out := make([]Relation, len(v.provenance))
	copy(out, v.provenance)
	return out
}

// Key returns the validation's canonical identity.
func (v *Validation) Key() string {
	return v.key
}

// Equal reports structural equality, ignoring provenance.
func (v *Validation) Equal(other *Validation) bool {
	return v.key == other.key
}

// String renders the validation as "Validation: (a, b) => [a = 2*b]".
func (v *Validation) String() string {
	parts := make([]string, len(v.relations))
	for i, r := range v.relations {
		parts[i] = r.String()
	}
	return fmt.Sprintf("Validation: %s => [%s]", v.vars, strings.Join(parts, ", "))
}

// Imputation is a directed rule recovering one variable from others:
// "target = expression" applies when every source variable is known and
// the target is unknown.
//
// Imputations are immutable value objects equal by their
// (sources, target, expression) triple; provenance is excluded from
// identity, so identical triples deduced along different paths collapse.
type Imputation struct {
	sources    *VarSet
	target     Variable
	expr       Expr
	provenance []Relation
	key        string
}

// NewImputation creates an imputation rule. The expression's free
// variables must equal sources, and the target must not be a source.
func NewImputation(sources *VarSet, target Variable, expr Expr) (*Imputation, error) {
	if !expr.FreeVariables().Equal(sources) {
		return nil, fmt.Errorf("expression %s has free variables %s, want %s",
			expr, expr.FreeVariables(), sources)
	}
	if sources.Contains(target) {
		return nil, fmt.Errorf("target %s is among the sources %s", target, sources)
	}
	return newImputation(sources, target, expr, nil), nil
}

func newImputation(sources *VarSet, target Variable, expr Expr, provenance []Relation) *Imputation {
	return &Imputation{
		sources:    sources,
		target:     target,
		expr:       expr,
		provenance: provenance,
		key:        sources.Key() + "=>" + target.Key() + "=" + expr.Key(),
	}
}

// Sources returns the variables the rule needs as inputs.
func (im *Imputation) Sources() *VarSet {
	return im.sources
}

// Target returns the variable the rule computes.
func (im *Imputation) Target() Variable {
	return im.target
}

// Expression returns the formula computing the target.
func (im *Imputation) Expression() Expr {
	return im.expr
}

// Provenance returns the relations the rule was derived from.
func (im *Imputation) Provenance() []Relation {
	out := make([]Relation, len(im.provenance))
	copy(out, im.provenance)
	return out
}

// Key returns the imputation's canonical identity.
func (im *Imputation) Key() string {
	return im.key
}

// Equal reports structural equality, ignoring provenance.
func (im *Imputation) Equal(other *Imputation) bool {
	return im.key == other.key
}

// String renders the imputation as "Imputation: (b) => a = 2*b".
func (im *Imputation) String() string {
	return fmt.Sprintf("Imputation: %s => %s = %s", im.sources, im.target, im.expr)
}
