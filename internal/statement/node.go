// Package statement builds hierarchical income statements from flat ledger
// lines and a declarative statement definition.
//
// A definition is an ordered tree of three node kinds:
//
//	Group  {name, items}        a header row whose children are nested under it
//	Leaf   {account, category}  rows pulled from the ledger, optionally negated
//	Total  {name, total}        a row summing earlier rows by hierarchy prefix
//
// Definitions are written in YAML with the same keys:
//
//	- name: Operating Revenues
//	  items:
//	    - account: "40000:Patient Revenues"
//	      category: Inpatient Revenue
//	      negative: true
//	- name: Net Revenue
//	  total: ["Operating Revenues", "-Deductions"]
package statement

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wildcard as a leaf category expands the leaf into one child per category
// found in the ledger for that account.
const Wildcard = "*"

var (
	// ErrInvalidDefinition is returned when a definition node cannot be
	// decoded into exactly one node kind, or fails validation.
	ErrInvalidDefinition = errors.New("invalid statement definition")

	// ErrUnknownDefinition is returned when a named definition does not exist.
	ErrUnknownDefinition = errors.New("unknown statement definition")
)

// Node is one entry of a statement definition. It is implemented by
// Group, Leaf and Total only.
type Node interface {
	node()
}

// Group is a labeled header row. Its items are processed under the
// group's path.
type Group struct {
	Name  string
	Items []Node
}

// Leaf pulls matching ledger lines for an account into the statement.
// An empty Category matches every line of the account; Wildcard expands
// to one child leaf per category present in the ledger.
type Leaf struct {
	Account  string
	Category string
	Negative bool
}

// Total sums the values of every earlier row whose hierarchy path starts
// with one of the prefixes. A prefix beginning with "-" is subtracted, and
// "/" may be used in place of the path delimiter.
type Total struct {
	Name  string
	Total []string
}

func (Group) node() {}
func (Leaf) node()  {}
func (Total) node() {}

// Definition is an ordered list of top-level nodes. Definition order is
// emission order, so a Total must come after every row it refers to.
type Definition []Node

// Clone returns a deep copy of the definition.
func (d Definition) Clone() Definition {
	if d == nil {
		return nil
	}
	out := make(Definition, len(d))
	for i, n := range d {
		switch v := n.(type) {
		case Group:
			out[i] = Group{Name: v.Name, Items: Definition(v.Items).Clone()}
		case Total:
			var prefixes []string
			if v.Total != nil {
				prefixes = make([]string, len(v.Total))
				copy(prefixes, v.Total)
			}
			out[i] = Total{Name: v.Name, Total: prefixes}
		default:
			out[i] = n
		}
	}
	return out
}

// =============================================================================
// YAML CODEC
// =============================================================================

var nodeKeys = map[string][]string{
	"group": {"name", "items"},
	"leaf":  {"account", "category", "negative"},
	"total": {"name", "total"},
}

// UnmarshalYAML decodes a sequence of definition nodes. Each mapping must
// carry exactly one of the "items", "account" or "total" markers, and only
// keys belonging to that node kind.
func (d *Definition) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: line %d: expected a list of nodes", ErrInvalidDefinition, value.Line)
	}

	out := make(Definition, 0, len(value.Content))
	for _, item := range value.Content {
		n, err := decodeNode(item)
		if err != nil {
			return err
		}
		out = append(out, n)
	}
	*d = out
	return nil
}

func decodeNode(value *yaml.Node) (Node, error) {
	if value.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: expected a mapping", ErrInvalidDefinition, value.Line)
	}

	keys := make(map[string]bool)
	for i := 0; i < len(value.Content); i += 2 {
		keys[value.Content[i].Value] = true
	}

	var kinds []string
	for kind, marker := range map[string]string{"group": "items", "leaf": "account", "total": "total"} {
		if keys[marker] {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)

	switch len(kinds) {
	case 0:
		return nil, fmt.Errorf("%w: line %d: node has none of items, account or total", ErrInvalidDefinition, value.Line)
	case 1:
	default:
		return nil, fmt.Errorf("%w: line %d: node is ambiguous (%s)", ErrInvalidDefinition, value.Line, strings.Join(kinds, ", "))
	}

	kind := kinds[0]
	allowed := make(map[string]bool)
	for _, k := range nodeKeys[kind] {
		allowed[k] = true
	}
	for k := range keys {
		if !allowed[k] {
			return nil, fmt.Errorf("%w: line %d: unexpected key %q on %s node", ErrInvalidDefinition, value.Line, k, kind)
		}
	}

	switch kind {
	case "group":
		var raw struct {
			Name  string     `yaml:"name"`
			Items Definition `yaml:"items"`
		}
		if err := value.Decode(&raw); err != nil {
			return nil, err
		}
		return Group{Name: raw.Name, Items: raw.Items}, nil
	case "leaf":
		var raw struct {
			Account  string `yaml:"account"`
			Category string `yaml:"category"`
			Negative bool   `yaml:"negative"`
		}
		if err := value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidDefinition, value.Line, err)
		}
		return Leaf{Account: raw.Account, Category: raw.Category, Negative: raw.Negative}, nil
	default:
		var raw struct {
			Name  string   `yaml:"name"`
			Total []string `yaml:"total"`
		}
		if err := value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidDefinition, value.Line, err)
		}
		return Total{Name: raw.Name, Total: raw.Total}, nil
	}
}

type groupYAML struct {
	Name  string     `yaml:"name"`
	Items Definition `yaml:"items"`
}

type leafYAML struct {
	Account  string `yaml:"account"`
	Category string `yaml:"category,omitempty"`
	Negative bool   `yaml:"negative,omitempty"`
}

type totalYAML struct {
	Name  string   `yaml:"name"`
	Total []string `yaml:"total,flow"`
}

// MarshalYAML encodes the definition with the same keys UnmarshalYAML reads.
func (d Definition) MarshalYAML() (interface{}, error) {
	out := make([]interface{}, 0, len(d))
	for _, n := range d {
		switch v := n.(type) {
		case Group:
			items := Definition(v.Items)
			if items == nil {
				items = Definition{}
			}
			out = append(out, groupYAML{Name: v.Name, Items: items})
		case Leaf:
			out = append(out, leafYAML{Account: v.Account, Category: v.Category, Negative: v.Negative})
		case Total:
			out = append(out, totalYAML{Name: v.Name, Total: v.Total})
		default:
			return nil, fmt.Errorf("%w: unsupported node type %T", ErrInvalidDefinition, n)
		}
	}
	return out, nil
}
