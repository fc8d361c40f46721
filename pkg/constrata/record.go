package constrata

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalidRule is returned when a value passed to ValidateMap or
// ImputeMap is not a recognized rule object.
var ErrInvalidRule = errors.New("invalid rule object")

// MapValidationError reports a record that does not satisfy a validation.
// Values holds the record's values for the validation's variables, and
// Unsatisfied lists the member relations that failed.
type MapValidationError struct {
	Values      map[string]float64
	Unsatisfied []Relation
}

// Error implements the error interface.
func (e *MapValidationError) Error() string {
	parts := make([]string, len(e.Unsatisfied))
	for i, r := range e.Unsatisfied {
		parts[i] = r.String()
	}
	return fmt.Sprintf("mapping %s is invalid: does not satisfy [%s]",
		renderValues(e.Values), strings.Join(parts, ", "))
}

// ConstraintsValidationError aggregates the per-validation failures of a
// record checked against a full Constraints value.
type ConstraintsValidationError struct {
	Errors []*MapValidationError
}

// Error implements the error interface.
func (e *ConstraintsValidationError) Error() string {
	var b strings.Builder
	b.WriteString("mapping is invalid:")
	for _, ve := range e.Errors {
		b.WriteString("\n- ")
		b.WriteString(ve.Error())
	}
	return b.String()
}

func renderValues(values map[string]float64) string {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s: %v", n, values[n])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ValidateMap checks a key/value record against a rule, which must be a
// *Validation or a *Constraints; any other value yields an error wrapping
// ErrInvalidRule that names the received value.
//
// Missing data is not a failure: when any of a validation's variables is
// absent (or NaN) the validation is vacuously valid and not evaluated.
// A nil return therefore means "no relation was found violated".
func ValidateMap(rule any, values map[string]float64) error {
	switch r := rule.(type) {
	case *Validation:
		return validateMapOne(r, values)
	case *Constraints:
		var errs []*MapValidationError
		for _, v := range r.Validations() {
			if err := validateMapOne(v, values); err != nil {
				var ve *MapValidationError
				if errors.As(err, &ve) {
					errs = append(errs, ve)
				}
			}
		}
		if len(errs) > 0 {
			return &ConstraintsValidationError{Errors: errs}
		}
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrInvalidRule, rule)
	}
}

func validateMapOne(v *Validation, values map[string]float64) error {
	relevant := make(map[string]float64, v.vars.Len())
	for _, mv := range v.vars.Slice() {
		x, ok := values[mv.Name()]
		if !ok || math.IsNaN(x) {
			return nil // vacuously valid
		}
		relevant[mv.Name()] = x
	}
	var unsatisfied []Relation
	for _, rel := range v.relations {
		if rel.EvalMap(relevant) == StatusUnsatisfied {
			unsatisfied = append(unsatisfied, rel)
		}
	}
	if len(unsatisfied) > 0 {
		return &MapValidationError{Values: relevant, Unsatisfied: unsatisfied}
	}
	return nil
}

// ImputeMap fills missing values in a record using a rule, which must be
// an *Imputation or a *Constraints. A single imputation applies when all
// of its sources are present and its target absent; a Constraints value
// applies every imputation in deterministic order, each seeing the fills
// of the previous ones. The input map is never mutated; the result is a
// copy even when nothing applied.
func ImputeMap(rule any, values map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = v
	}
	switch r := rule.(type) {
	case *Imputation:
		imputeMapOne(r, out)
		return out, nil
	case *Constraints:
		for _, im := range r.Imputations() {
			imputeMapOne(im, out)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, rule)
	}
}

func imputeMapOne(im *Imputation, values map[string]float64) {
	if x, ok := values[im.target.Name()]; ok && !math.IsNaN(x) {
		return
	}
	for _, s := range im.sources.Slice() {
		if x, ok := values[s.Name()]; !ok || math.IsNaN(x) {
			return
		}
	}
	if x, ok := im.expr.Eval(values); ok {
		values[im.target.Name()] = x
	}
}
