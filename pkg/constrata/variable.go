package constrata

import (
	"fmt"
	"sort"
	"strings"
)

// assumeFlag identifies one recognized domain assumption. Assumptions are
// tri-state: a flag can be declared true, declared false, or left undeclared.
type assumeFlag uint8

const (
	flagReal assumeFlag = 1 << iota
	flagComplex
	flagInteger
	flagNegative
	flagPositive
	flagNonnegative
	flagNonpositive
)

// assumeNames maps recognized assumption keys to their flags, in the order
// they are resolved. Unrecognized keys are ignored everywhere.
var assumeNames = []struct {
	name string
	flag assumeFlag
}{
	{"real", flagReal},
	{"complex", flagComplex},
	{"integer", flagInteger},
	{"negative", flagNegative},
	{"positive", flagPositive},
	{"nonnegative", flagNonnegative},
	{"nonpositive", flagNonpositive},
}

// Assumptions is the set of domain assumptions declared on a Variable.
// It is a compact tri-state bitset: declared bits live in set, their truth
// values in val. The zero value declares nothing.
type Assumptions struct {
	set uint8
	val uint8
}

// NewAssumptions folds a generic key/value declaration into Assumptions.
// Recognized keys are real, complex, integer, negative, positive,
// nonnegative and nonpositive; anything else is silently ignored.
func NewAssumptions(decl map[string]bool) Assumptions {
	var a Assumptions
	for _, an := range assumeNames {
		if v, ok := decl[an.name]; ok {
			a.set |= uint8(an.flag)
			if v {
				a.val |= uint8(an.flag)
			}
		}
	}
	return a
}

// Declared reports whether the assumption is declared, and if so its value.
func (a Assumptions) Declared(flag assumeFlag) (value, ok bool) {
	if a.set&uint8(flag) == 0 {
		return false, false
	}
	return a.val&uint8(flag) != 0, true
}

// IsEmpty reports whether no assumption is declared.
func (a Assumptions) IsEmpty() bool {
	return a.set == 0
}

// String renders the declared assumptions as "integer, nonnegative" style
// text, with negated assumptions prefixed by "!".
func (a Assumptions) String() string {
	var parts []string
	for _, an := range assumeNames {
		v, ok := a.Declared(an.flag)
		if !ok {
			continue
		}
		if v {
			parts = append(parts, an.name)
		} else {
			parts = append(parts, "!"+an.name)
		}
	}
	return strings.Join(parts, ", ")
}

// Variable is a named symbol with an immutable set of domain assumptions.
// Identity is by name plus assumption set: two variables with the same name
// but different assumptions are distinct. Variable is a comparable value
// type and is safe to use as a map key.
type Variable struct {
	name   string
	assume Assumptions
}

// NewVariable creates a variable from a name and a generic assumption
// declaration. A nil declaration defaults to real, matching how columns of
// numeric data are usually declared.
func NewVariable(name string, decl map[string]bool) Variable {
	if decl == nil {
		decl = map[string]bool{"real": true}
	}
	return Variable{name: name, assume: NewAssumptions(decl)}
}

// Real creates a variable assumed to range over the real numbers.
func Real(name string) Variable {
	return Variable{name: name, assume: NewAssumptions(map[string]bool{"real": true})}
}

// Reals creates real variables for each space-separated name.
func Reals(names string) []Variable {
	fields := strings.Fields(names)
	vars := make([]Variable, 0, len(fields))
	for _, f := range fields {
		vars = append(vars, Real(f))
	}
	return vars
}

// Name returns the variable's name.
func (v Variable) Name() string {
	return v.name
}

// Assumptions returns the variable's declared assumptions.
func (v Variable) Assumptions() Assumptions {
	return v.assume
}

// Key returns a canonical identity string covering name and assumptions.
func (v Variable) Key() string {
	if v.assume.IsEmpty() {
		return v.name
	}
	return v.name + "[" + v.assume.String() + "]"
}

// String returns the variable's name.
func (v Variable) String() string {
	return v.name
}

// ColumnType identifies the storage type of a data column, used to infer
// domain assumptions for its variable.
type ColumnType string

// Supported column storage types.
const (
	ColumnUint    ColumnType = "uint"
	ColumnInt     ColumnType = "int"
	ColumnFloat   ColumnType = "float"
	ColumnComplex ColumnType = "complex"
)

// VariableForColumn creates a variable whose assumptions are inferred from
// a column's storage type: unsigned integers are non-negative integers,
// integers are integers, floats are reals, and complex columns are complex.
// Unsupported types fail with a descriptive error.
func VariableForColumn(name string, ct ColumnType) (Variable, error) {
	var decl map[string]bool
	switch ct {
	case ColumnUint:
		decl = map[string]bool{"integer": true, "nonnegative": true}
	case ColumnInt:
		decl = map[string]bool{"integer": true}
	case ColumnFloat:
		decl = map[string]bool{"real": true}
	case ColumnComplex:
		decl = map[string]bool{"complex": true}
	default:
		return Variable{}, fmt.Errorf("unsupported column type %q for column %q", ct, name)
	}
	return Variable{name: name, assume: NewAssumptions(decl)}, nil
}

// VarSet is an immutable, canonically ordered set of variables.
// Ordering is by name (then by full identity key), which makes every
// derived grouping and rendering reproducible.
type VarSet struct {
	vars []Variable
}

// NewVarSet builds a set from the given variables, deduplicating by
// identity and sorting canonically.
func NewVarSet(vars ...Variable) *VarSet {
	seen := make(map[Variable]struct{}, len(vars))
	out := make([]Variable, 0, len(vars))
	for _, v := range vars {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].Key() < out[j].Key()
	})
	return &VarSet{vars: out}
}

// Len returns the number of variables in the set.
func (s *VarSet) Len() int {
	return len(s.vars)
}

// Contains reports whether the set contains the variable.
func (s *VarSet) Contains(v Variable) bool {
	for _, w := range s.vars {
		if w == v {
			return true
		}
	}
	return false
}

// Slice returns the variables in canonical order. The returned slice is a
// copy; mutating it does not affect the set.
func (s *VarSet) Slice() []Variable {
	out := make([]Variable, len(s.vars))
	copy(out, s.vars)
	return out
}

// Names returns the variable names in canonical order.
func (s *VarSet) Names() []string {
	out := make([]string, len(s.vars))
	for i, v := range s.vars {
		out[i] = v.name
	}
	return out
}

// Key returns the canonical sorted-name tuple identifying this set.
func (s *VarSet) Key() string {
	keys := make([]string, len(s.vars))
	for i, v := range s.vars {
		keys[i] = v.Key()
	}
	return strings.Join(keys, ",")
}

// Equal reports whether both sets contain exactly the same variables.
func (s *VarSet) Equal(other *VarSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := range s.vars {
		if s.vars[i] != other.vars[i] {
			return false
		}
	}
	return true
}

// Union returns a new set containing the variables of both sets.
func (s *VarSet) Union(other *VarSet) *VarSet {
	return NewVarSet(append(s.Slice(), other.vars...)...)
}

// String renders the set as "(a, b, c)".
func (s *VarSet) String() string {
	return "(" + strings.Join(s.Names(), ", ") + ")"
}
