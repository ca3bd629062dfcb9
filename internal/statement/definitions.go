package statement

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Names of the built-in definitions.
const (
	DefaultName    = "default"
	DepartmentName = "department"
)

// Default is the hospital-wide income statement, ending in Operating Margin.
func Default() Definition {
	return Definition{
		Group{Name: "Operating Revenues", Items: []Node{
			Group{Name: "Inpatient", Items: []Node{
				Leaf{Account: "40000:Patient Revenues", Category: "Inpatient Revenue", Negative: true},
			}},
			Group{Name: "Outpatient", Items: []Node{
				Leaf{Account: "40000:Patient Revenues", Category: "Outpatient Revenue", Negative: true},
				Leaf{Account: "40000:Patient Revenues", Category: "Clinic Revenue", Negative: true},
			}},
			Group{Name: "Other", Items: []Node{
				Leaf{Account: "40010:Sales Revenue", Category: "Cafeteria Sales", Negative: true},
				Leaf{Account: "40300:Other Operating Revenue", Category: "Misc Revenue", Negative: true},
			}},
		}},
		Group{Name: "Deductions", Items: []Node{
			Leaf{Account: "49000:Contractual Adjustments"},
			Leaf{Account: "49001:Bad Debts & Write Offs"},
			Leaf{Account: "49002:Administrative Write Offs"},
		}},
		Total{Name: "Net Revenue", Total: []string{"Operating Revenues", "-Deductions"}},
		Group{Name: "Expenses", Items: []Node{
			Group{Name: "Salaries", Items: []Node{
				Leaf{Account: "50000:Salaries & Wages", Category: Wildcard},
			}},
			Group{Name: "Employee Benefits", Items: []Node{
				Leaf{Account: "50011:Benefits-Taxes", Category: Wildcard},
				Leaf{Account: "50012:Benefits-Insurance", Category: Wildcard},
				Leaf{Account: "50013:Benefits-Retirement", Category: Wildcard},
				Leaf{Account: "50014:Benefits-Other", Category: Wildcard},
			}},
			Group{Name: "Professional Fees", Items: []Node{
				Leaf{Account: "60220:Professional Fees", Category: "Professional Fees"},
				Leaf{Account: "60221:Temp Labor", Category: Wildcard},
				Leaf{Account: "60222:Locum Tenens", Category: Wildcard},
			}},
			Group{Name: "Supplies", Items: []Node{
				Leaf{Account: "60300:Supplies", Category: Wildcard},
				Leaf{Account: "60301:Inventory Adjustments", Category: Wildcard},
				Leaf{Account: "60336:Pharmaceuticals", Category: Wildcard},
			}},
			Group{Name: "Utilities", Items: []Node{
				Leaf{Account: "60500:Utilities", Category: Wildcard},
			}},
			Group{Name: "Purchased Services", Items: []Node{
				Leaf{Account: "60600:Purchased Services", Category: Wildcard},
				Leaf{Account: "60620:Maintenance", Category: Wildcard},
				Leaf{Account: "60650:Software Licenses"},
			}},
			Group{Name: "Rental/Leases", Items: []Node{
				Leaf{Account: "60800:Leases/Rents Operating", Category: Wildcard},
			}},
			Group{Name: "Insurance", Items: []Node{
				Leaf{Account: "50012:Benefits-Insurance", Category: Wildcard},
			}},
			Group{Name: "Licenses & Taxes", Items: []Node{}},
			Group{Name: "Other Direct Expenses", Items: []Node{
				Leaf{Account: "60951:Professional Memberships", Category: Wildcard},
				Leaf{Account: "60960:Other Direct Expenses", Category: Wildcard},
				Leaf{Account: "60970:Travel & Education", Category: Wildcard},
			}},
			Group{Name: "Depreciation", Items: []Node{
				Leaf{Account: "70000:Depreciation"},
			}},
		}},
		Total{Name: "Total Operating Expenses", Total: []string{"Expenses/"}},
		Total{Name: "Operating Margin", Total: []string{"Operating Revenues/", "-Deductions/", "-Expenses/"}},
	}
}

// Department is the simplified statement used for single departments. It
// leaves out depreciation and ends in Contribution Margin.
func Department() Definition {
	return Definition{
		Group{Name: "Operating Revenues", Items: []Node{
			Group{Name: "Patient Revenue", Items: []Node{
				Leaf{Account: "40000:Patient Revenues", Category: "Inpatient Revenue", Negative: true},
				Leaf{Account: "40000:Patient Revenues", Category: "Outpatient Revenue", Negative: true},
				Leaf{Account: "40000:Patient Revenues", Category: "Clinic Revenue", Negative: true},
			}},
			Group{Name: "Other Revenue", Items: []Node{
				Leaf{Account: "40010:Sales Revenue", Category: "Cafeteria Sales", Negative: true},
				Leaf{Account: "40300:Other Operating Revenue", Category: "Misc Revenue", Negative: true},
			}},
		}},
		Total{Name: "Total Revenue", Total: []string{"Operating Revenues/"}},
		Group{Name: "Deductions", Items: []Node{
			Leaf{Account: "49000:Contractual Adjustments"},
			Leaf{Account: "49001:Bad Debts & Write Offs"},
			Leaf{Account: "49002:Administrative Write Offs"},
		}},
		Total{Name: "Net Revenue", Total: []string{"Operating Revenues/", "-Deductions/"}},
		Group{Name: "Expenses", Items: []Node{
			Group{Name: "Salaries", Items: []Node{
				Leaf{Account: "50000:Salaries & Wages", Category: Wildcard},
			}},
			Group{Name: "Employee Benefits", Items: []Node{
				Leaf{Account: "50011:Benefits-Taxes", Category: Wildcard},
				Leaf{Account: "50012:Benefits-Insurance", Category: Wildcard},
				Leaf{Account: "50013:Benefits-Retirement", Category: Wildcard},
				Leaf{Account: "50014:Benefits-Other", Category: Wildcard},
			}},
			Group{Name: "Professional Fees", Items: []Node{
				Leaf{Account: "60220:Professional Fees", Category: "Professional Fees"},
				Leaf{Account: "60221:Temp Labor", Category: Wildcard},
				Leaf{Account: "60222:Locum Tenens", Category: Wildcard},
			}},
			Group{Name: "Supplies", Items: []Node{
				Leaf{Account: "60300:Supplies", Category: Wildcard},
				Leaf{Account: "60301:Inventory Adjustments", Category: Wildcard},
				Leaf{Account: "60336:Pharmaceuticals", Category: Wildcard},
			}},
			Group{Name: "Purchased Services", Items: []Node{
				Leaf{Account: "60600:Purchased Services", Category: Wildcard},
				Leaf{Account: "60620:Maintenance", Category: Wildcard},
				Leaf{Account: "60650:Software Licenses"},
			}},
			Group{Name: "Other Direct Expenses", Items: []Node{
				Leaf{Account: "60500:Utilities", Category: Wildcard},
				Leaf{Account: "60800:Leases/Rents Operating", Category: Wildcard},
				Leaf{Account: "60951:Professional Memberships", Category: Wildcard},
				Leaf{Account: "60960:Other Direct Expenses", Category: Wildcard},
				Leaf{Account: "60970:Travel & Education", Category: Wildcard},
			}},
		}},
		Total{Name: "Total Operating Expenses", Total: []string{"Expenses/"}},
		Total{Name: "Contribution Margin", Total: []string{"Operating Revenues/", "-Deductions/", "-Expenses/"}},
	}
}

var builtins = map[string]func() Definition{
	DefaultName:    Default,
	DepartmentName: Department,
}

// Builtin returns a fresh copy of a built-in definition.
func Builtin(name string) (Definition, bool) {
	f, ok := builtins[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// BuiltinNames lists the built-in definitions in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// DEFINITION FILES
// =============================================================================

// LoadFile reads a YAML definition file.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return def, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, keyed by file name
// without extension. A missing directory yields an empty set.
func LoadDir(dir string) (map[string]Definition, error) {
	defs := make(map[string]Definition)
	if dir == "" {
		return defs, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return defs, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list definition files: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	for _, file := range files {
		def, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		defs[name] = def
	}
	return defs, nil
}

// Set resolves definition names against custom definitions first and the
// built-ins second.
type Set struct {
	Custom map[string]Definition
}

// NewSet loads the custom definitions in dir.
func NewSet(dir string) (*Set, error) {
	custom, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return &Set{Custom: custom}, nil
}

// Lookup returns the named definition or ErrUnknownDefinition.
func (s *Set) Lookup(name string) (Definition, error) {
	if name == "" {
		name = DepartmentName
	}
	if s != nil {
		if def, ok := s.Custom[name]; ok {
			return def.Clone(), nil
		}
	}
	if def, ok := Builtin(name); ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDefinition, name)
}

// Names lists every resolvable definition name in sorted order.
func (s *Set) Names() []string {
	seen := make(map[string]struct{})
	for _, n := range BuiltinNames() {
		seen[n] = struct{}{}
	}
	if s != nil {
		for n := range s.Custom {
			seen[n] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
