package statement

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleYAML = `
- name: Operating Revenues
  items:
    - name: Inpatient
      items:
        - account: "40000:Patient Revenues"
          category: Inpatient Revenue
          negative: true
- name: Deductions
  items:
    - account: "49000:Contractual Adjustments"
- name: Licenses & Taxes
  items: []
- name: Net Revenue
  total: ["Operating Revenues", "-Deductions"]
`

func TestDefinitionUnmarshalYAML(t *testing.T) {
	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(sampleYAML), &def))

	want := Definition{
		Group{Name: "Operating Revenues", Items: []Node{
			Group{Name: "Inpatient", Items: []Node{
				Leaf{Account: "40000:Patient Revenues", Category: "Inpatient Revenue", Negative: true},
			}},
		}},
		Group{Name: "Deductions", Items: []Node{
			Leaf{Account: "49000:Contractual Adjustments"},
		}},
		Group{Name: "Licenses & Taxes", Items: []Node{}},
		Total{Name: "Net Revenue", Total: []string{"Operating Revenues", "-Deductions"}},
	}
	assert.Equal(t, want, def)
}

func TestDefinitionUnmarshalRejectsMalformedNodes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no marker", `- name: Orphan`},
		{"group and total", `- {name: X, items: [], total: [A]}`},
		{"leaf and group", `- {account: "1:A", items: []}`},
		{"name on leaf", `- {name: X, account: "1:A"}`},
		{"unknown key", `- {account: "1:A", sign: -1}`},
		{"nested bad node", "- name: G\n  items:\n    - category: X\n"},
		{"not a list", `name: G`},
		{"scalar node", `- just a string`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var def Definition
			err := yaml.Unmarshal([]byte(tt.doc), &def)
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}
}

func TestDefinitionMarshalYAMLRoundTrip(t *testing.T) {
	for _, name := range BuiltinNames() {
		def, ok := Builtin(name)
		require.True(t, ok)

		data, err := yaml.Marshal(def)
		require.NoError(t, err)

		var back Definition
		require.NoError(t, yaml.Unmarshal(data, &back), string(data))
		assert.Equal(t, def, back, name)
	}
}

func TestBuiltinReturnsFreshCopies(t *testing.T) {
	a, ok := Builtin(DefaultName)
	require.True(t, ok)
	a[0] = Total{Name: "mutated"}

	b, _ := Builtin(DefaultName)
	assert.Equal(t, "Operating Revenues", b[0].(Group).Name)

	_, ok = Builtin("nope")
	assert.False(t, ok)
	assert.Equal(t, []string{"default", "department"}, BuiltinNames())
}

func TestBuiltinTotals(t *testing.T) {
	lastTotal := func(def Definition) Total {
		return def[len(def)-1].(Total)
	}
	assert.Equal(t, "Operating Margin", lastTotal(Default()).Name)
	assert.Equal(t, "Contribution Margin", lastTotal(Department()).Name)
}

func TestSetLookup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "therapy.yaml"), []byte(sampleYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yml"), []byte("- {name: Only, total: []}\n"), 0o644))

	set, err := NewSet(dir)
	require.NoError(t, err)

	therapy, err := set.Lookup("therapy")
	require.NoError(t, err)
	assert.Len(t, therapy, 4)

	// custom files shadow built-ins of the same name
	def, err := set.Lookup(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, Definition{Total{Name: "Only", Total: []string{}}}, def)

	dept, err := set.Lookup("")
	require.NoError(t, err)
	assert.Equal(t, Department(), dept)

	_, err = set.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownDefinition)

	assert.Equal(t, []string{"default", "department", "therapy"}, set.Names())
}

func TestLoadDirMissing(t *testing.T) {
	defs, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- {name: X}\n"), 0o644))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestRowHelpers(t *testing.T) {
	r := Row{Hier: "Expenses|Salaries|50000:Salaries & Wages"}
	assert.Equal(t, 2, r.Depth())
	assert.True(t, r.IsHeader())
	assert.True(t, IsSection("Contribution Margin"))
	assert.False(t, IsSection("Salaries"))
}
