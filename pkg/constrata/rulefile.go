package constrata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleColumn declares one data column in a rule file: its name and
// storage type ("uint", "int", "float" or "complex").
type RuleColumn struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// RuleFile is the YAML description of a rule set: the columns of the
// dataset and the textual constraints over them.
//
//	columns:
//	  - name: height
//	    type: float
//	  - name: width
//	    type: float
//	  - name: area
//	    type: float
//	constraints:
//	  - height > width
//	  - area = width * height
type RuleFile struct {
	Columns     []RuleColumn `yaml:"columns"`
	Constraints []string     `yaml:"constraints"`
}

// LoadRuleFile reads and parses a YAML rule file.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rule file %s: %w", path, err)
	}
	return &rf, nil
}

// Build resolves the rule file into variables (with domain assumptions
// inferred from the declared column types) and parsed relations. A column
// with an unsupported type or a constraint that does not parse fails with
// a descriptive error.
func (rf *RuleFile) Build() (map[string]Variable, []Relation, error) {
	vars := make(map[string]Variable, len(rf.Columns))
	for _, col := range rf.Columns {
		if col.Name == "" {
			return nil, nil, fmt.Errorf("column with empty name in rule file")
		}
		if _, dup := vars[col.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate column %q in rule file", col.Name)
		}
		ct := ColumnType(col.Type)
		if col.Type == "" {
			ct = ColumnFloat
		}
		v, err := VariableForColumn(col.Name, ct)
		if err != nil {
			return nil, nil, err
		}
		vars[col.Name] = v
	}

	rels := make([]Relation, 0, len(rf.Constraints))
	for _, text := range rf.Constraints {
		rel, err := ParseRelation(text, vars)
		if err != nil {
			return nil, nil, fmt.Errorf("constraint %q: %w", text, err)
		}
		rels = append(rels, rel)
	}
	return vars, rels, nil
}
