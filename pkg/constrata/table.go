package constrata

import (
	"context"
	"fmt"
	"math"

	"github.com/gitrdm/constrata/internal/parallel"
)

// parallelRowThreshold is the row count above which table operations fan
// out across a worker pool. Below it the goroutine setup costs more than
// the evaluation.
const parallelRowThreshold = 512

// Column is one named column of float values. NaN marks a missing cell.
type Column struct {
	Name   string
	Values []float64
}

// Table is an immutable column-oriented table of float data with
// missing-value semantics: a NaN cell is absent. All table operations
// return modified copies and never mutate the receiver, so one Table can
// safely back concurrent evaluations.
type Table struct {
	names []string
	cols  map[string][]float64
	nrows int
}

// NewTable builds a table from columns, which must be uniquely named and
// of equal length.
func NewTable(cols ...Column) (*Table, error) {
	t := &Table{cols: make(map[string][]float64, len(cols))}
	for i, c := range cols {
		if _, dup := t.cols[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.nrows = len(c.Values)
		} else if len(c.Values) != t.nrows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Values), t.nrows)
		}
		vals := make([]float64, len(c.Values))
		copy(vals, c.Values)
		t.names = append(t.names, c.Name)
		t.cols[c.Name] = vals
	}
	return t, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.nrows
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// ColumnValues returns a copy of the named column's values.
func (t *Table) ColumnValues(name string) ([]float64, bool) {
	vals, ok := t.cols[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return out, true
}

// Cell returns the value at (row, column); missing cells are NaN.
func (t *Table) Cell(row int, name string) float64 {
	vals, ok := t.cols[name]
	if !ok {
		return math.NaN()
	}
	return vals[row]
}

func (t *Table) clone() *Table {
	out := &Table{
		names: append([]string(nil), t.names...),
		cols:  make(map[string][]float64, len(t.cols)),
		nrows: t.nrows,
	}
	for name, vals := range t.cols {
		cp := make([]float64, len(vals))
		copy(cp, vals)
		out.cols[name] = cp
	}
	return out
}

// hasColumns reports whether every variable of the set is a table column.
func (t *Table) hasColumns(vars *VarSet) bool {
	for _, v := range vars.Slice() {
		if _, ok := t.cols[v.Name()]; !ok {
			return false
		}
	}
	return true
}

// rowValues collects the row's present (non-NaN) values for the given
// variables; ok is false when any is missing.
func (t *Table) rowValues(row int, vars *VarSet) (map[string]float64, bool) {
	out := make(map[string]float64, vars.Len())
	for _, v := range vars.Slice() {
		vals, exists := t.cols[v.Name()]
		if !exists || math.IsNaN(vals[row]) {
			return nil, false
		}
		out[v.Name()] = vals[row]
	}
	return out, true
}

// forEachRow runs fn for every row index, in parallel for large tables.
// fn must be safe to call concurrently for distinct rows.
func (t *Table) forEachRow(fn func(row int)) {
	if t.nrows < parallelRowThreshold {
		for i := 0; i < t.nrows; i++ {
			fn(i)
		}
		return
	}
	pool := parallel.NewWorkerPool(0)
	defer pool.Shutdown()
	// Errors are impossible here: the context is never cancelled and the
	// pool outlives the call.
	_ = pool.ForEach(context.Background(), t.nrows, fn)
}

// TableCheck is the result of checking a table: one ternary status column
// per relation, aligned with the input rows.
type TableCheck struct {
	// Relations lists the checked relations in column order.
	Relations []Relation
	// Columns holds one status slice per relation, indexed by row.
	Columns [][]Status
}

// Relation returns the status column for the i-th relation.
func (tc *TableCheck) Relation(i int) []Status {
	return tc.Columns[i]
}

// CheckTable evaluates a rule against every table row, producing one
// status column per relation. A row whose member columns are not all
// present (column missing, or cell NaN) is indeterminate for that
// relation. The rule must be a *Validation or a *Constraints.
func CheckTable(rule any, t *Table) (*TableCheck, error) {
	var groups []*Validation
	switch r := rule.(type) {
	case *Validation:
		groups = []*Validation{r}
	case *Constraints:
		groups = r.Validations()
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, rule)
	}

	var rels []Relation
	var owners []*Validation
	for _, g := range groups {
		for _, rel := range g.Relations() {
			rels = append(rels, rel)
			owners = append(owners, g)
		}
	}

	check := &TableCheck{Relations: rels, Columns: make([][]Status, len(rels))}
	for i := range rels {
		check.Columns[i] = make([]Status, t.NumRows())
	}
	t.forEachRow(func(row int) {
		for i, rel := range rels {
			values, ok := t.rowValues(row, owners[i].Variables())
			if !ok {
				continue // stays StatusIndeterminate
			}
			check.Columns[i][row] = rel.EvalMap(values)
		}
	})
	return check, nil
}

// BlankInvalid returns a copy of the table in which, for every validation
// with at least one unsatisfied relation in a row, the cells of that
// validation's variables are blanked (set to NaN) in that row. Rows that
// are indeterminate are left untouched: missing inputs are not evidence
// of a bad value.
func BlankInvalid(c *Constraints, t *Table) (*Table, error) {
	out := t.clone()
	for _, v := range c.Validations() {
		if !t.hasColumns(v.Variables()) {
			continue
		}
		rels := v.Relations()
		vars := v.Variables().Slice()
		t.forEachRow(func(row int) {
			values, ok := t.rowValues(row, v.Variables())
			if !ok {
				return
			}
			for _, rel := range rels {
				if rel.EvalMap(values) != StatusUnsatisfied {
					continue
				}
				for _, mv := range vars {
					out.cols[mv.Name()][row] = math.NaN()
				}
				break
			}
		})
	}
	return out, nil
}

// ImputeTable returns a copy of the table with missing cells filled from
// the constraints' imputations, row-wise: a rule applies only where all
// of its source cells are present and the target cell is missing. Rules
// apply in deterministic order and later rules see earlier fills within
// the same row.
func ImputeTable(c *Constraints, t *Table) (*Table, error) {
	out := t.clone()
	imps := c.Imputations()

	// Keep only imputations fully backed by table columns.
	applicable := imps[:0:0]
	for _, im := range imps {
		if _, ok := out.cols[im.Target().Name()]; !ok {
			continue
		}
		if !out.hasColumns(im.Sources()) {
			continue
		}
		applicable = append(applicable, im)
	}

	out.forEachRow(func(row int) {
		for _, im := range applicable {
			if !math.IsNaN(out.cols[im.Target().Name()][row]) {
				continue
			}
			values, ok := out.rowValues(row, im.Sources())
			if !ok {
				continue
			}
			if x, evalOK := im.Expression().Eval(values); evalOK {
				out.cols[im.Target().Name()][row] = x
			}
		}
	})
	return out, nil
}
