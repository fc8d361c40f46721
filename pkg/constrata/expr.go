package constrata

import (
	"errors"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// ErrNonMonomialDivisor is returned when dividing by an expression that is
// neither a constant nor a single term; such quotients are outside the
// bundled solver's coverage.
var ErrNonMonomialDivisor = errors.New("divisor must be a constant or a single term")

// ErrDivisionByZero is returned when dividing by the zero expression.
var ErrDivisionByZero = errors.New("division by zero expression")

// varPow is one variable factor of a term, raised to a non-zero integer
// power. Negative powers express division by a variable.
type varPow struct {
	v   Variable
	pow int
}

// term is one summand of an Expr: a rational coefficient times a product
// of variable powers. factors is sorted canonically and never contains a
// zero power; the coefficient is never zero.
type term struct {
	coeff   *big.Rat
	factors []varPow
}

// monoKey returns the canonical identity of the term's variable part.
// The empty string identifies the constant monomial.
func (t term) monoKey() string {
	parts := make([]string, len(t.factors))
	for i, f := range t.factors {
		parts[i] = f.v.Key() + "^" + strconv.Itoa(f.pow)
	}
	return strings.Join(parts, "*")
}

// Expr is an immutable symbolic expression: a sum of rational-coefficient
// terms over variables. All operations return new expressions; an Expr is
// comparable by Key and re-derivable deterministically from its terms.
//
// The zero value is the constant 0.
type Expr struct {
	terms []term
}

// NewConstantExpr creates a constant expression. The rational is copied.
func NewConstantExpr(r *big.Rat) Expr {
	if r.Sign() == 0 {
		return Expr{}
	}
	return Expr{terms: []term{{coeff: new(big.Rat).Set(r)}}}
}

// NewIntExpr creates a constant expression from an integer.
func NewIntExpr(n int64) Expr {
	return NewConstantExpr(new(big.Rat).SetInt64(n))
}

// NewVariableExpr creates the expression consisting of a single variable.
func NewVariableExpr(v Variable) Expr {
	return Expr{terms: []term{{coeff: big.NewRat(1, 1), factors: []varPow{{v: v, pow: 1}}}}}
}

// normalize sorts terms canonically and drops zero coefficients. Terms with
// equal monomials must already be merged by the caller.
func normalizeTerms(ts []term) []term {
	out := ts[:0]
	for _, t := range ts {
		if t.coeff.Sign() != 0 {
			out = append(out, t)
		}
	}
	// Non-constant terms in monomial order, the constant term last.
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := out[i].monoKey(), out[j].monoKey()
		if (ki == "") != (kj == "") {
			return kj == ""
		}
		return ki < kj
	})
	return out
}

// mergeInto accumulates (coeff, factors) into the monomial-keyed map.
func mergeInto(acc map[string]*term, coeff *big.Rat, factors []varPow) {
	t := term{coeff: coeff, factors: factors}
	key := t.monoKey()
	if prev, ok := acc[key]; ok {
		prev.coeff.Add(prev.coeff, coeff)
		return
	}
	acc[key] = &term{coeff: new(big.Rat).Set(coeff), factors: factors}
}

func exprFromMap(acc map[string]*term) Expr {
	ts := make([]term, 0, len(acc))
	for _, t := range acc {
		ts = append(ts, *t)
	}
	return Expr{terms: normalizeTerms(ts)}
}

// Add returns e + o.
func (e Expr) Add(o Expr) Expr {
	acc := make(map[string]*term, len(e.terms)+len(o.terms))
	for _, t := range e.terms {
		mergeInto(acc, t.coeff, t.factors)
	}
	for _, t := range o.terms {
		mergeInto(acc, t.coeff, t.factors)
	}
	return exprFromMap(acc)
}

// Sub returns e - o.
func (e Expr) Sub(o Expr) Expr {
	return e.Add(o.Neg())
}

// Neg returns -e.
func (e Expr) Neg() Expr {
	return e.Scale(big.NewRat(-1, 1))
}

// Scale returns e multiplied by a rational constant.
func (e Expr) Scale(r *big.Rat) Expr {
	if r.Sign() == 0 {
		return Expr{}
	}
	ts := make([]term, 0, len(e.terms))
	for _, t := range e.terms {
		ts = append(ts, term{coeff: new(big.Rat).Mul(t.coeff, r), factors: t.factors})
	}
	return Expr{terms: normalizeTerms(ts)}
}

// mulFactors multiplies two sorted factor lists, summing powers and
// dropping factors that cancel.
func mulFactors(a, b []varPow) []varPow {
	out := make([]varPow, 0, len(a)+len(b))
	i, j := 0, 0
	less := func(x, y Variable) bool {
		if x.Name() != y.Name() {
			return x.Name() < y.Name()
		}
		return x.Key() < y.Key()
	}
	for i < len(a) && j < len(b) {
		switch {
		case a[i].v == b[j].v:
			if p := a[i].pow + b[j].pow; p != 0 {
				out = append(out, varPow{v: a[i].v, pow: p})
			}
			i++
			j++
		case less(a[i].v, b[j].v):
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// Mul returns e * o.
func (e Expr) Mul(o Expr) Expr {
	acc := make(map[string]*term, len(e.terms)*len(o.terms))
	for _, t1 := range e.terms {
		for _, t2 := range o.terms {
			c := new(big.Rat).Mul(t1.coeff, t2.coeff)
			mergeInto(acc, c, mulFactors(t1.factors, t2.factors))
		}
	}
	return exprFromMap(acc)
}

// Div returns e / o. The divisor must be a non-zero constant or a single
// term (monomial); other shapes return ErrNonMonomialDivisor.
func (e Expr) Div(o Expr) (Expr, error) {
	switch len(o.terms) {
	case 0:
		return Expr{}, ErrDivisionByZero
	case 1:
		d := o.terms[0]
		inv := new(big.Rat).Inv(d.coeff)
		recip := make([]varPow, len(d.factors))
		for i, f := range d.factors {
			recip[i] = varPow{v: f.v, pow: -f.pow}
		}
		acc := make(map[string]*term, len(e.terms))
		for _, t := range e.terms {
			c := new(big.Rat).Mul(t.coeff, inv)
			mergeInto(acc, c, mulFactors(t.factors, recip))
		}
		return exprFromMap(acc), nil
	default:
		return Expr{}, ErrNonMonomialDivisor
	}
}

// IsZero reports whether the expression is the constant 0.
func (e Expr) IsZero() bool {
	return len(e.terms) == 0
}

// Constant returns the expression's rational value when it is a constant.
func (e Expr) Constant() (*big.Rat, bool) {
	switch len(e.terms) {
	case 0:
		return new(big.Rat), true
	case 1:
		if len(e.terms[0].factors) == 0 {
			return new(big.Rat).Set(e.terms[0].coeff), true
		}
	}
	return nil, false
}

// leadingCoeff returns the coefficient of the first term in canonical
// order, or nil for the zero expression.
func (e Expr) leadingCoeff() *big.Rat {
	if len(e.terms) == 0 {
		return nil
	}
	return e.terms[0].coeff
}

// FreeVariables returns the set of variables occurring in the expression.
func (e Expr) FreeVariables() *VarSet {
	var vars []Variable
	for _, t := range e.terms {
		for _, f := range t.factors {
			vars = append(vars, f.v)
		}
	}
	return NewVarSet(vars...)
}

// degreeIn returns the occurrence profile of v: linear reports whether
// every term involving v has it at power exactly 1, and occurs whether v
// appears at all.
func (e Expr) degreeIn(v Variable) (occurs, linear bool) {
	linear = true
	for _, t := range e.terms {
		for _, f := range t.factors {
			if f.v == v {
				occurs = true
				if f.pow != 1 {
					linear = false
				}
			}
		}
	}
	return occurs, linear
}

// splitLinear decomposes e as coeff*v + rest, where neither coeff nor rest
// mentions v. It fails when v occurs at a power other than 1.
func (e Expr) splitLinear(v Variable) (coeff, rest Expr, ok bool) {
	var coeffTerms, restTerms []term
	for _, t := range e.terms {
		idx := -1
		for i, f := range t.factors {
			if f.v == v {
				if f.pow != 1 {
					return Expr{}, Expr{}, false
				}
				idx = i
			}
		}
		if idx < 0 {
			restTerms = append(restTerms, t)
			continue
		}
		reduced := make([]varPow, 0, len(t.factors)-1)
		reduced = append(reduced, t.factors[:idx]...)
		reduced = append(reduced, t.factors[idx+1:]...)
		coeffTerms = append(coeffTerms, term{coeff: new(big.Rat).Set(t.coeff), factors: reduced})
	}
	return Expr{terms: normalizeTerms(coeffTerms)}, Expr{terms: normalizeTerms(restTerms)}, true
}

// Eval substitutes float values for variables and computes the result.
// It reports false when a variable has no value in the map.
func (e Expr) Eval(values map[string]float64) (float64, bool) {
	total := 0.0
	for _, t := range e.terms {
		v, _ := t.coeff.Float64()
		for _, f := range t.factors {
			x, ok := values[f.v.Name()]
			if !ok {
				return 0, false
			}
			switch f.pow {
			case 1:
				v *= x
			case -1:
				v /= x
			default:
				v *= math.Pow(x, float64(f.pow))
			}
		}
		total += v
	}
	return total, true
}

// Key returns the canonical identity of the expression.
func (e Expr) Key() string {
	if len(e.terms) == 0 {
		return "0"
	}
	parts := make([]string, len(e.terms))
	for i, t := range e.terms {
		parts[i] = t.coeff.RatString() + "·" + t.monoKey()
	}
	return strings.Join(parts, "|")
}

// Equal reports whether both expressions have identical canonical form.
func (e Expr) Equal(o Expr) bool {
	return e.Key() == o.Key()
}

// renderTerm renders |t| without a leading sign, e.g. "2*b", "a/2",
// "a*b", "a/(2*c)", "a^2".
func renderTerm(t term) string {
	num := new(big.Int).Abs(t.coeff.Num())
	den := t.coeff.Denom()

	var numParts, denParts []string
	for _, f := range t.factors {
		name := f.v.Name()
		p := f.pow
		if p < 0 {
			p = -p
		}
		if p != 1 {
			name += "^" + strconv.Itoa(p)
		}
		if f.pow > 0 {
			numParts = append(numParts, name)
		} else {
			denParts = append(denParts, name)
		}
	}
	if num.Cmp(big.NewInt(1)) != 0 || len(numParts) == 0 {
		numParts = append([]string{num.String()}, numParts...)
	}
	if den.Cmp(big.NewInt(1)) != 0 {
		denParts = append([]string{den.String()}, denParts...)
	}

	numStr := strings.Join(numParts, "*")
	if len(denParts) == 0 {
		return numStr
	}
	denStr := strings.Join(denParts, "*")
	if len(denParts) > 1 {
		denStr = "(" + denStr + ")"
	}
	return numStr + "/" + denStr
}

// String renders the expression in conventional infix form, e.g.
// "a/2 - 3" or "b + 3".
func (e Expr) String() string {
	if len(e.terms) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, t := range e.terms {
		neg := t.coeff.Sign() < 0
		switch {
		case i == 0 && neg:
			b.WriteString("-")
		case i > 0 && neg:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		b.WriteString(renderTerm(t))
	}
	return b.String()
}
