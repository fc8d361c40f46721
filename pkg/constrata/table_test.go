package constrata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	t.Run("rejects duplicate columns", func(t *testing.T) {
		_, err := NewTable(
			Column{Name: "a", Values: []float64{1}},
			Column{Name: "a", Values: []float64{2}},
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate column "a"`)
	})

	t.Run("rejects ragged columns", func(t *testing.T) {
		_, err := NewTable(
			Column{Name: "a", Values: []float64{1, 2}},
			Column{Name: "b", Values: []float64{1}},
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `column "b" has 1 rows, want 2`)
	})

	t.Run("copies input data", func(t *testing.T) {
		vals := []float64{1, 2}
		tbl, err := NewTable(Column{Name: "a", Values: vals})
		require.NoError(t, err)
		vals[0] = 99
		assert.Equal(t, 1.0, tbl.Cell(0, "a"))
	})

	t.Run("missing column reads NaN", func(t *testing.T) {
		tbl, err := NewTable(Column{Name: "a", Values: []float64{1}})
		require.NoError(t, err)
		assert.True(t, math.IsNaN(tbl.Cell(0, "nope")))
	})
}

// measurementRules deduces the rule set for the height/width/area example
// used across the table tests.
func measurementRules(t *testing.T) *Constraints {
	t.Helper()
	h := NewVariableExpr(Real("height"))
	w := NewVariableExpr(Real("width"))
	area := NewVariableExpr(Real("area"))
	return NewConstraints([]Relation{
		Gt(h, w),
		Eq(area, w.Mul(h)),
	})
}

func TestCheckTable(t *testing.T) {
	cons := measurementRules(t)
	tbl, err := NewTable(
		Column{Name: "height", Values: []float64{10, 8, 12}},
		Column{Name: "width", Values: []float64{4, 90, 5}},
		Column{Name: "area", Values: []float64{40, math.NaN(), math.NaN()}},
	)
	require.NoError(t, err)

	check, err := CheckTable(cons, tbl)
	require.NoError(t, err)

	var hw []Status
	for i, rel := range check.Relations {
		if rel.Equal(Gt(NewVariableExpr(Real("height")), NewVariableExpr(Real("width")))) {
			hw = check.Relation(i)
		}
	}
	require.NotNil(t, hw, "height > width column missing from %v", check.Relations)
	assert.Equal(t, []Status{StatusSatisfied, StatusUnsatisfied, StatusSatisfied}, hw)

	var prod []Status
	for i, rel := range check.Relations {
		if rel.FreeVariables().Len() == 3 {
			prod = check.Relation(i)
		}
	}
	require.NotNil(t, prod)
	assert.Equal(t, []Status{StatusSatisfied, StatusIndeterminate, StatusIndeterminate}, prod,
		"rows with a missing member must be indeterminate")
}

func TestCheckTableSingleValidation(t *testing.T) {
	av, bv := Real("a"), Real("b")
	v, err := NewValidation(NewVarSet(av, bv), []Relation{
		Lt(NewVariableExpr(av), NewVariableExpr(bv)),
	})
	require.NoError(t, err)

	tbl, err := NewTable(
		Column{Name: "a", Values: []float64{1, 5}},
		Column{Name: "b", Values: []float64{2, 2}},
	)
	require.NoError(t, err)

	check, err := CheckTable(v, tbl)
	require.NoError(t, err)
	require.Len(t, check.Columns, 1)
	assert.Equal(t, []Status{StatusSatisfied, StatusUnsatisfied}, check.Relation(0))
}

func TestCheckTableRejectsRule(t *testing.T) {
	tbl, err := NewTable(Column{Name: "a", Values: []float64{1}})
	require.NoError(t, err)
	_, err = CheckTable(3.14, tbl)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestBlankInvalid(t *testing.T) {
	cons := measurementRules(t)
	tbl, err := NewTable(
		Column{Name: "height", Values: []float64{10, 8}},
		Column{Name: "width", Values: []float64{4, 90}},
		Column{Name: "area", Values: []float64{40, math.NaN()}},
	)
	require.NoError(t, err)

	blanked, err := BlankInvalid(cons, tbl)
	require.NoError(t, err)

	// Row 0 is consistent and untouched.
	assert.Equal(t, 10.0, blanked.Cell(0, "height"))
	assert.Equal(t, 40.0, blanked.Cell(0, "area"))

	// Row 1 violates height > width: both members are blanked. The area
	// relation was indeterminate there and blanks nothing further.
	assert.True(t, math.IsNaN(blanked.Cell(1, "height")))
	assert.True(t, math.IsNaN(blanked.Cell(1, "width")))

	// The input table is unchanged.
	assert.Equal(t, 8.0, tbl.Cell(1, "height"))
}

func TestBlankInvalidLeavesIndeterminate(t *testing.T) {
	cons := measurementRules(t)
	tbl, err := NewTable(
		Column{Name: "height", Values: []float64{math.NaN()}},
		Column{Name: "width", Values: []float64{4}},
		Column{Name: "area", Values: []float64{40}},
	)
	require.NoError(t, err)

	blanked, err := BlankInvalid(cons, tbl)
	require.NoError(t, err)
	assert.Equal(t, 4.0, blanked.Cell(0, "width"), "missing inputs are not evidence of a bad value")
	assert.Equal(t, 40.0, blanked.Cell(0, "area"))
}

func TestImputeTable(t *testing.T) {
	cons := measurementRules(t)
	tbl, err := NewTable(
		Column{Name: "height", Values: []float64{10, math.NaN()}},
		Column{Name: "width", Values: []float64{4, 5}},
		Column{Name: "area", Values: []float64{math.NaN(), 60}},
	)
	require.NoError(t, err)

	filled, err := ImputeTable(cons, tbl)
	require.NoError(t, err)
	assert.InDelta(t, 40, filled.Cell(0, "area"), 1e-9, "area = width * height")
	assert.InDelta(t, 12, filled.Cell(1, "height"), 1e-9, "height = area / width")

	// Present cells are never overwritten.
	assert.Equal(t, 60.0, filled.Cell(1, "area"))
}

func TestImputeTableIgnoresForeignColumns(t *testing.T) {
	cons := measurementRules(t)
	tbl, err := NewTable(
		Column{Name: "height", Values: []float64{10}},
		Column{Name: "width", Values: []float64{math.NaN()}},
	)
	require.NoError(t, err)

	filled, err := ImputeTable(cons, tbl)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(filled.Cell(0, "width")),
		"rules needing the absent area column must not apply")
}

// A bad row is blanked wholesale and, with no surviving inputs, imputation
// has nothing to work from: the repair pipeline must not resurrect values
// from data it just rejected.
func TestBlankThenImputeRoundTrip(t *testing.T) {
	cons := measurementRules(t)
	tbl, err := NewTable(
		Column{Name: "height", Values: []float64{8}},
		Column{Name: "width", Values: []float64{90}},
		Column{Name: "area", Values: []float64{math.NaN()}},
	)
	require.NoError(t, err)

	blanked, err := BlankInvalid(cons, tbl)
	require.NoError(t, err)
	filled, err := ImputeTable(cons, blanked)
	require.NoError(t, err)

	for _, col := range []string{"height", "width", "area"} {
		assert.True(t, math.IsNaN(filled.Cell(0, col)), "column %s", col)
	}
}

func TestTableAccessors(t *testing.T) {
	tbl, err := NewTable(
		Column{Name: "b", Values: []float64{1, 2}},
		Column{Name: "a", Values: []float64{3, 4}},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []string{"b", "a"}, tbl.ColumnNames(), "declaration order is kept")

	vals, ok := tbl.ColumnValues("a")
	require.True(t, ok)
	vals[0] = 99
	assert.Equal(t, 3.0, tbl.Cell(0, "a"), "returned values are a copy")

	_, ok = tbl.ColumnValues("z")
	assert.False(t, ok)
}
