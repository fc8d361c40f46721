package constrata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRuleFile(t *testing.T) {
	path := writeRuleFile(t, `
columns:
  - name: height
    type: float
  - name: width
    type: float
  - name: count
    type: uint
constraints:
  - height > width
  - count >= 1
`)
	rf, err := LoadRuleFile(path)
	require.NoError(t, err)
	require.Len(t, rf.Columns, 3)
	require.Len(t, rf.Constraints, 2)

	vars, rels, err := rf.Build()
	require.NoError(t, err)
	require.Len(t, vars, 3)
	assert.Equal(t, "real", vars["height"].Assumptions().String())
	assert.Equal(t, "integer, nonnegative", vars["count"].Assumptions().String())

	require.Len(t, rels, 2)
	assert.Equal(t, OpGt, rels[0].Op())
}

func TestLoadRuleFileMissing(t *testing.T) {
	_, err := LoadRuleFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading rule file")
}

func TestLoadRuleFileMalformed(t *testing.T) {
	path := writeRuleFile(t, "columns: [:::")
	_, err := LoadRuleFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing rule file")
}

func TestRuleFileBuild(t *testing.T) {
	t.Run("type defaults to float", func(t *testing.T) {
		rf := &RuleFile{Columns: []RuleColumn{{Name: "x"}}}
		vars, _, err := rf.Build()
		require.NoError(t, err)
		assert.Equal(t, "real", vars["x"].Assumptions().String())
	})

	t.Run("unsupported type", func(t *testing.T) {
		rf := &RuleFile{Columns: []RuleColumn{{Name: "x", Type: "string"}}}
		_, _, err := rf.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported column type")
	})

	t.Run("duplicate column", func(t *testing.T) {
		rf := &RuleFile{Columns: []RuleColumn{{Name: "x"}, {Name: "x"}}}
		_, _, err := rf.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate column "x"`)
	})

	t.Run("empty column name", func(t *testing.T) {
		rf := &RuleFile{Columns: []RuleColumn{{Name: ""}}}
		_, _, err := rf.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty name")
	})

	t.Run("bad constraint names its text", func(t *testing.T) {
		rf := &RuleFile{
			Columns:     []RuleColumn{{Name: "x"}},
			Constraints: []string{"x < undeclared"},
		}
		_, _, err := rf.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `constraint "x < undeclared"`)
		assert.Contains(t, err.Error(), `unknown variable "undeclared"`)
	})
}

func TestRuleFileEndToEnd(t *testing.T) {
	path := writeRuleFile(t, `
columns:
  - name: height
  - name: width
  - name: area
constraints:
  - height > width
  - area = width * height
`)
	rf, err := LoadRuleFile(path)
	require.NoError(t, err)
	_, rels, err := rf.Build()
	require.NoError(t, err)

	cons := NewConstraints(rels)
	assert.Empty(t, cons.Warnings())
	assert.Len(t, cons.Imputations(), 3)
	assert.Len(t, cons.Validations(), 4)
}
