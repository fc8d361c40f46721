package constrata

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratFromString(t *testing.T, s string) *big.Rat {
	t.Helper()
	r, ok := new(big.Rat).SetString(s)
	require.True(t, ok)
	return r
}

func parseVars() map[string]Variable {
	return map[string]Variable{
		"a":      Real("a"),
		"b":      Real("b"),
		"height": Real("height"),
		"width":  Real("width"),
		"area":   Real("area"),
	}
}

func TestParseRelation(t *testing.T) {
	vars := parseVars()
	a := NewVariableExpr(vars["a"])
	b := NewVariableExpr(vars["b"])
	h := NewVariableExpr(vars["height"])
	w := NewVariableExpr(vars["width"])
	area := NewVariableExpr(vars["area"])

	half, err := a.Div(NewIntExpr(2))
	require.NoError(t, err)

	tests := []struct {
		input string
		want  Relation
	}{
		{"a = 2*b", Eq(a, b.Add(b))},
		{"a == 2 * b", Eq(a, b.Add(b))},
		{"a/2 <= b + 1", Le(half, b.Add(NewIntExpr(1)))},
		{"height > width", Gt(h, w)},
		{"area = width * height", Eq(area, w.Mul(h))},
		{"a >= -b", Ge(a, b.Neg())},
		{"-(a + b) < 3", Lt(a.Add(b).Neg(), NewIntExpr(3))},
		{"a = (b + 1) * (b - 1)", Eq(a, b.Mul(b).Sub(NewIntExpr(1)))},
		{"a < 2.5", Lt(a, NewConstantExpr(ratFromString(t, "5/2")))},
		{"a < 1e3", Lt(a, NewIntExpr(1000))},
		{"b = a - a", Eq(b, Expr{})},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRelation(tt.input, vars)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "parsed %s, want %s", got, tt.want)
		})
	}
}

func TestParseRelationErrors(t *testing.T) {
	vars := parseVars()

	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"unknown variable", "a = c + 1", `unknown variable "c"`},
		{"missing comparison", "a + b", "expected comparison operator"},
		{"trailing junk", "a = b) ", `unexpected ")"`},
		{"unclosed paren", "a = (b + 1", "expected ')'"},
		{"bad character", "a = b $ 1", "unexpected character"},
		{"chained comparison", "a < b < 1", `unexpected "<"`},
		{"sum divisor", "a = 1/(b + 1)", "divisor must be a constant or a single term"},
		{"empty input", "", `unexpected ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRelation(tt.input, vars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	t.Run("unknown variable lists the known ones", func(t *testing.T) {
		_, err := ParseRelation("x = 1", map[string]Variable{"a": Real("a"), "b": Real("b")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "known: a, b")
	})
}

func TestParsePrecedence(t *testing.T) {
	vars := parseVars()
	a := NewVariableExpr(vars["a"])
	b := NewVariableExpr(vars["b"])

	// a + 2*b, not (a + 2)*b
	got, err := ParseRelation("a + 2*b = 0", vars)
	require.NoError(t, err)
	assert.True(t, got.Equal(Eq(a.Add(b.Add(b)), Expr{})), "got %s", got)

	// Division binds like multiplication: a/2*b is (a/2)*b.
	half, err := a.Div(NewIntExpr(2))
	require.NoError(t, err)
	got, err = ParseRelation("a/2*b = 0", vars)
	require.NoError(t, err)
	assert.True(t, got.Equal(Eq(half.Mul(b), Expr{})), "got %s", got)
}
