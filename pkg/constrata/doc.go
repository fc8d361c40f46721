// Package constrata derives data-quality rules from mathematical relations
// over named variables. Given declared equalities and inequalities such as
// "a = 2*b" and "c < b + 3", it deduces the additional relations they imply
// (for example "a/2 > c - 3") together with explicit formulas that recover a
// missing variable from the others (for example "b = a/2").
//
// The result of a deduction run is a pair of immutable, queryable artifacts:
//   - Validations: relations grouped by their exact free-variable set, used
//     to decide whether a record or table row is internally consistent.
//   - Imputations: directed rules "target = expression" that fill a missing
//     value when every source variable is known.
//
// The engine is a pure function from a collection of relations to these two
// collections. It performs no I/O, stores no data, and never mutates its
// inputs; independent invocations are safe to run concurrently.
//
// Symbolic coverage: constrata bundles a lightweight exact solver over sums
// of rational-coefficient terms. A relation is solvable for a variable when
// the variable occurs linearly with either a constant coefficient, or (for
// equalities) a single-monomial coefficient, which covers affine relations
// and simple products such as "area = width * height". Anything outside
// that shape degrades gracefully: the relation is kept for validation but
// skipped for deduction, with a warning recorded on the Constraints value.
//
// Consumers are provided for two data shapes: key/value records
// (ValidateMap, ImputeMap) and column-oriented tables with missing-value
// semantics (CheckTable, BlankInvalid, ImputeTable). Missing data is never
// an error; it yields vacuously-valid or indeterminate outcomes.
package constrata
