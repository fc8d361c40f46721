package constrata

import (
	"math/big"
	"strings"
)

// BaseSet identifies the base number set of a domain restriction.
type BaseSet uint8

// Base sets, ordered from least to most restrictive.
const (
	BaseComplex BaseSet = iota
	BaseReal
	BaseInteger
)

// DomainRestriction is the abstract set of values a variable is assumed to
// lie in: a base set (complexes, reals, integers) narrowed by an interval
// of the real line. The zero value is "all complex numbers".
//
// Restrictions are immutable; the intersection operations used by Resolve
// return new values. They exist only to bound solving and are never part
// of the engine's output.
type DomainRestriction struct {
	base   BaseSet
	lo, hi *big.Rat // nil means unbounded on that side
	loOpen bool
	hiOpen bool

	empty      bool // no values remain
	nonReal    bool // restricted to the complement of the reals
	notInteger bool // integers excluded; carried for rendering only
}

// Resolve maps a variable's declared assumptions to a domain restriction.
// It starts from all complex numbers and, for every recognized assumption,
// intersects the running domain with the corresponding set when the
// assumption is declared true, or with its complement when declared false.
// Undeclared and unrecognized assumptions contribute nothing. Resolve is a
// pure function and cannot fail.
func Resolve(v Variable) DomainRestriction {
	d := DomainRestriction{}
	a := v.Assumptions()

	if val, ok := a.Declared(flagComplex); ok && !val {
		// Nothing lies outside the complex numbers.
		d.empty = true
		return d
	}
	if val, ok := a.Declared(flagReal); ok {
		if val {
			d.base = maxBase(d.base, BaseReal)
		} else {
			d.nonReal = true
		}
	}
	if val, ok := a.Declared(flagInteger); ok {
		if val {
			d.base = maxBase(d.base, BaseInteger)
		} else {
			d.notInteger = true
		}
	}

	zero := new(big.Rat)
	if val, ok := a.Declared(flagNegative); ok {
		if val {
			d = d.intersectInterval(nil, zero, false, true) // (-inf, 0)
		} else {
			d = d.intersectInterval(zero, nil, false, false) // [0, inf)
		}
	}
	if val, ok := a.Declared(flagPositive); ok {
		if val {
			d = d.intersectInterval(zero, nil, true, false) // (0, inf)
		} else {
			d = d.intersectInterval(nil, zero, false, false) // (-inf, 0]
		}
	}
	if val, ok := a.Declared(flagNonnegative); ok {
		if val {
			d = d.intersectInterval(zero, nil, false, false) // [0, inf)
		} else {
			d = d.intersectInterval(nil, zero, false, true) // (-inf, 0)
		}
	}
	if val, ok := a.Declared(flagNonpositive); ok {
		if val {
			d = d.intersectInterval(nil, zero, false, false) // (-inf, 0]
		} else {
			d = d.intersectInterval(zero, nil, true, false) // (0, inf)
		}
	}

	// A sign restriction only makes sense on the real line.
	if d.lo != nil || d.hi != nil {
		d.base = maxBase(d.base, BaseReal)
	}
	return d
}

func maxBase(a, b BaseSet) BaseSet {
	if b > a {
		return b
	}
	return a
}

// intersectInterval narrows the restriction by [lo, hi] with the given
// openness; nil ends are unbounded.
func (d DomainRestriction) intersectInterval(lo, hi *big.Rat, loOpen, hiOpen bool) DomainRestriction {
	if d.empty {
		return d
	}
	out := d
	if lo != nil {
		switch {
		case out.lo == nil, lo.Cmp(out.lo) > 0:
			out.lo, out.loOpen = lo, loOpen
		case lo.Cmp(out.lo) == 0:
			out.loOpen = out.loOpen || loOpen
		}
	}
	if hi != nil {
		switch {
		case out.hi == nil, hi.Cmp(out.hi) < 0:
			out.hi, out.hiOpen = hi, hiOpen
		case hi.Cmp(out.hi) == 0:
			out.hiOpen = out.hiOpen || hiOpen
		}
	}
	if out.lo != nil && out.hi != nil {
		switch c := out.lo.Cmp(out.hi); {
		case c > 0:
			out.empty = true
		case c == 0 && (out.loOpen || out.hiOpen):
			out.empty = true
		}
	}
	return out
}

// IsEmpty reports whether no value satisfies the restriction.
func (d DomainRestriction) IsEmpty() bool {
	return d.empty
}

// IsUnrestrictedReal reports whether the restriction is exactly the real
// line (or all of the complexes), with no interval narrowing. Solutions in
// such a domain need no wrapping.
func (d DomainRestriction) IsUnrestrictedReal() bool {
	return !d.empty && !d.nonReal && d.base != BaseInteger && d.lo == nil && d.hi == nil
}

// Base returns the base number set of the restriction.
func (d DomainRestriction) Base() BaseSet {
	return d.base
}

// Contains reports whether a rational constant lies in the restriction.
func (d DomainRestriction) Contains(x *big.Rat) bool {
	if d.empty || d.nonReal {
		return false
	}
	if d.base == BaseInteger && !x.IsInt() {
		return false
	}
	if d.notInteger && x.IsInt() {
		return false
	}
	if d.lo != nil {
		if c := x.Cmp(d.lo); c < 0 || (c == 0 && d.loOpen) {
			return false
		}
	}
	if d.hi != nil {
		if c := x.Cmp(d.hi); c > 0 || (c == 0 && d.hiOpen) {
			return false
		}
	}
	return true
}

// restrictionSet converts the restriction into a SolutionSet suitable for
// wrapping solved sets, or nil when no wrapping is needed (the restriction
// imposes nothing beyond the real line).
func (d DomainRestriction) restrictionSet() SolutionSet {
	if d.empty {
		return EmptySet{}
	}
	var parts []SolutionSet
	if d.base == BaseInteger {
		parts = append(parts, IntegerSet{})
	}
	if d.lo != nil || d.hi != nil {
		var lo, hi *Expr
		if d.lo != nil {
			e := NewConstantExpr(d.lo)
			lo = &e
		}
		if d.hi != nil {
			e := NewConstantExpr(d.hi)
			hi = &e
		}
		parts = append(parts, Interval{Lo: lo, Hi: hi, LoOpen: d.loOpen, HiOpen: d.hiOpen})
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return Intersection{Sets: parts}
	}
}

// String renders the restriction for diagnostics, e.g. "Z ∩ [0, +inf)".
func (d DomainRestriction) String() string {
	if d.empty {
		return "∅"
	}
	var b strings.Builder
	switch d.base {
	case BaseComplex:
		b.WriteString("C")
	case BaseReal:
		b.WriteString("R")
	case BaseInteger:
		b.WriteString("Z")
	}
	if d.nonReal {
		b.WriteString(" \\ R")
	}
	if d.notInteger {
		b.WriteString(" \\ Z")
	}
	if d.lo != nil || d.hi != nil {
		b.WriteString(" ∩ ")
		if d.lo == nil {
			b.WriteString("(-inf")
		} else if d.loOpen {
			b.WriteString("(" + d.lo.RatString())
		} else {
			b.WriteString("[" + d.lo.RatString())
		}
		b.WriteString(", ")
		if d.hi == nil {
			b.WriteString("+inf)")
		} else if d.hiOpen {
			b.WriteString(d.hi.RatString() + ")")
		} else {
			b.WriteString(d.hi.RatString() + "]")
		}
	}
	return b.String()
}
