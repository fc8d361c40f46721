package constrata

import (
	"math"
	"math/big"
	"sort"
	"strings"
)

// Op is a comparison operator of a relation.
type Op uint8

// The five supported comparison operators.
const (
	OpEq Op = iota // =
	OpLt           // <
	OpLe           // <=
	OpGt           // >
	OpGe           // >=
)

// String returns the operator's conventional symbol.
func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return "?"
}

// comparison is one atomic constraint "lhs op rhs".
type comparison struct {
	lhs Expr
	op  Op
	rhs Expr
}

// canonicalKey identifies the comparison up to rearrangement and positive
// scaling: the relation is rewritten as "diff OP 0" with OP in {=, <, <=}
// and diff normalized, so "a = 2*b" and "2*b = a" collapse to one key.
func (c comparison) canonicalKey() string {
	diff := c.lhs.Sub(c.rhs)
	op := c.op
	switch op {
	case OpGt:
		diff, op = diff.Neg(), OpLt
	case OpGe:
		diff, op = diff.Neg(), OpLe
	}
	if lead := diff.leadingCoeff(); lead != nil {
		scale := new(big.Rat).Inv(lead)
		if op != OpEq {
			// Inequalities admit positive scaling only.
			scale.Abs(scale)
		}
		diff = diff.Scale(scale)
	}
	return op.String() + ":" + diff.Key()
}

func (c comparison) String() string {
	return c.lhs.String() + " " + c.op.String() + " " + c.rhs.String()
}

// Relation is an immutable boolean constraint over variables: a single
// comparison "expr1 OP expr2", or a disjunction of such comparisons (which
// arise from deduction over union-shaped solution sets). Relations are
// pure values, comparable and deduplicable by Key.
type Relation struct {
	branches []comparison
	key      string
}

func newAtomicRelation(lhs Expr, op Op, rhs Expr) Relation {
	c := comparison{lhs: lhs, op: op, rhs: rhs}
	return Relation{branches: []comparison{c}, key: c.canonicalKey()}
}

// Eq constructs the relation lhs = rhs.
func Eq(lhs, rhs Expr) Relation { return newAtomicRelation(lhs, OpEq, rhs) }

// Lt constructs the relation lhs < rhs.
func Lt(lhs, rhs Expr) Relation { return newAtomicRelation(lhs, OpLt, rhs) }

// Le constructs the relation lhs <= rhs.
func Le(lhs, rhs Expr) Relation { return newAtomicRelation(lhs, OpLe, rhs) }

// Gt constructs the relation lhs > rhs.
func Gt(lhs, rhs Expr) Relation { return newAtomicRelation(lhs, OpGt, rhs) }

// Ge constructs the relation lhs >= rhs.
func Ge(lhs, rhs Expr) Relation { return newAtomicRelation(lhs, OpGe, rhs) }

// OrRelations constructs the disjunction of the given relations' branches,
// deduplicated. With a single distinct branch the result is atomic.
func OrRelations(rels ...Relation) Relation {
	var branches []comparison
	seen := make(map[string]struct{})
	for _, r := range rels {
		for _, c := range r.branches {
			k := c.canonicalKey()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			branches = append(branches, c)
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Relation{branches: branches, key: strings.Join(keys, " ∨ ")}
}

// IsAtomic reports whether the relation is a single comparison.
func (r Relation) IsAtomic() bool {
	return len(r.branches) == 1
}

// Op returns the comparison operator. For a disjunction it returns the
// first branch's operator; callers should check IsAtomic first.
func (r Relation) Op() Op {
	return r.branches[0].op
}

// Lhs returns the left-hand expression of an atomic relation.
func (r Relation) Lhs() Expr {
	return r.branches[0].lhs
}

// Rhs returns the right-hand expression of an atomic relation.
func (r Relation) Rhs() Expr {
	return r.branches[0].rhs
}

// FreeVariables returns the union of variables over all branches.
func (r Relation) FreeVariables() *VarSet {
	var vars []Variable
	for _, c := range r.branches {
		vars = append(vars, c.lhs.FreeVariables().Slice()...)
		vars = append(vars, c.rhs.FreeVariables().Slice()...)
	}
	return NewVarSet(vars...)
}

// Key returns the relation's canonical identity.
func (r Relation) Key() string {
	return r.key
}

// Equal reports whether both relations have identical canonical form.
func (r Relation) Equal(other Relation) bool {
	return r.key == other.key
}

// String renders the relation, joining disjunction branches with " or ".
func (r Relation) String() string {
	parts := make([]string, len(r.branches))
	for i, c := range r.branches {
		parts[i] = c.String()
	}
	return strings.Join(parts, " or ")
}

// Status is the ternary outcome of evaluating a relation against data.
type Status int8

// Evaluation outcomes. StatusIndeterminate means a participating value was
// missing, which is a first-class non-error result.
const (
	StatusIndeterminate Status = iota
	StatusSatisfied
	StatusUnsatisfied
)

// String returns "indeterminate", "satisfied" or "unsatisfied".
func (s Status) String() string {
	switch s {
	case StatusSatisfied:
		return "satisfied"
	case StatusUnsatisfied:
		return "unsatisfied"
	}
	return "indeterminate"
}

// eqTolerance bounds the relative error accepted when comparing floats
// for equality. Symbolic deduction itself is exact; the tolerance applies
// only when rules are evaluated against float data.
const eqTolerance = 1e-9

func approxEqual(a, b float64) bool {
	diff := math.Abs(a - b)
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return diff <= eqTolerance*scale
}

// EvalMap evaluates the relation against named float values. A missing or
// NaN participant yields StatusIndeterminate. A disjunction is satisfied
// when any branch is.
func (r Relation) EvalMap(values map[string]float64) Status {
	for _, v := range r.FreeVariables().Slice() {
		x, ok := values[v.Name()]
		if !ok || math.IsNaN(x) {
			return StatusIndeterminate
		}
	}
	for _, c := range r.branches {
		l, _ := c.lhs.Eval(values)
		rr, _ := c.rhs.Eval(values)
		var sat bool
		switch c.op {
		case OpEq:
			sat = approxEqual(l, rr)
		case OpLt:
			sat = l < rr
		case OpLe:
			sat = l <= rr || approxEqual(l, rr)
		case OpGt:
			sat = l > rr
		case OpGe:
			sat = l >= rr || approxEqual(l, rr)
		}
		if sat {
			return StatusSatisfied
		}
	}
	return StatusUnsatisfied
}
