package statement

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
)

// Delimiter separates the segments of a row's hierarchy path.
const Delimiter = "|"

// definitionDelimiter may be used in Total prefixes in place of Delimiter.
const definitionDelimiter = "/"

// Options tunes the generator.
type Options struct {
	// BoundaryMatch restricts Total prefixes to whole path segments: a
	// prefix matches a row whose path equals it or continues with the
	// delimiter. By default a prefix is a plain string prefix, so
	// "Expenses" also matches "Expenses-Other".
	BoundaryMatch bool
}

// NormalizeCategory returns the single logical category of a ledger line:
// the spend category if set, else the revenue category, else "".
func NormalizeCategory(l ledger.Line) string {
	if l.SpendCategory != "" {
		return l.SpendCategory
	}
	return l.RevenueCategory
}

// Generate builds a statement from ledger lines that the caller has already
// filtered to one department and time slice. Rows are returned in
// definition order, which is also display order.
//
// Generation is permissive: empty groups still emit their header, leaves
// with no matching lines emit nothing, and totals over unknown paths sum
// to zero.
func Generate(lines []ledger.Line, def Definition) []Row {
	return GenerateWithOptions(lines, def, Options{})
}

// GenerateWithOptions is Generate with explicit options.
func GenerateWithOptions(lines []ledger.Line, def Definition, opts Options) []Row {
	g := &generator{
		entries: make([]entry, len(lines)),
		opts:    opts,
	}
	for i, l := range lines {
		g.entries[i] = entry{line: l, category: NormalizeCategory(l)}
	}

	for _, n := range def {
		g.process(n, "")
	}
	return g.rows
}

type entry struct {
	line     ledger.Line
	category string
}

type generator struct {
	entries []entry
	rows    []Row
	opts    Options
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + Delimiter + name
}

func (g *generator) process(n Node, path string) {
	switch v := n.(type) {
	case Group:
		cur := joinPath(path, v.Name)
		g.rows = append(g.rows, Row{Hier: cur, Label: v.Name})
		for _, child := range v.Items {
			g.process(child, cur)
		}
	case Leaf:
		if v.Category == Wildcard {
			g.expandWildcard(v, path)
			return
		}
		g.emitLeaf(v, path)
	case Total:
		g.emitTotal(v, path)
	}
}

// expandWildcard emits a header row for the account followed by one child
// leaf per distinct category, in byte-wise lexicographic order.
func (g *generator) expandWildcard(leaf Leaf, path string) {
	cur := joinPath(path, leaf.Account)
	g.rows = append(g.rows, Row{Hier: cur, Label: leaf.Account})

	seen := make(map[string]struct{})
	for _, e := range g.entries {
		if e.line.Account == leaf.Account {
			seen[e.category] = struct{}{}
		}
	}
	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, c := range categories {
		g.emitLeaf(Leaf{Account: leaf.Account, Category: c}, cur)
	}
}

func (g *generator) emitLeaf(leaf Leaf, path string) {
	suffix := leaf.Account
	if leaf.Category != "" {
		suffix = leaf.Account + "-" + leaf.Category
	}
	cur := joinPath(path, suffix)

	multiplier := 1.0
	if leaf.Negative {
		multiplier = -1
	}

	for _, e := range g.entries {
		if e.line.Account != leaf.Account {
			continue
		}
		if leaf.Category != "" && e.category != leaf.Category {
			continue
		}

		label := leaf.Category
		if label == "" {
			label = e.line.Account
		}
		g.rows = append(g.rows, Row{
			Hier:      cur,
			Label:     label,
			Actual:    scale(e.line.Actual, multiplier),
			Budget:    scale(e.line.Budget, multiplier),
			ActualYTD: scale(e.line.ActualYTD, multiplier),
			BudgetYTD: scale(e.line.BudgetYTD, multiplier),
		})
	}
}

// emitTotal sums the rows emitted so far. Rows appended later are never
// visible to it.
func (g *generator) emitTotal(t Total, path string) {
	var actual, budget, actualYTD, budgetYTD float64

	for _, p := range t.Total {
		prefix := strings.ReplaceAll(p, definitionDelimiter, Delimiter)
		sign := 1.0
		if strings.HasPrefix(prefix, "-") {
			sign = -1
			prefix = prefix[1:]
		}

		for _, r := range g.rows {
			if !g.matches(r.Hier, prefix) {
				continue
			}
			actual += sign * valueOf(r.Actual)
			budget += sign * valueOf(r.Budget)
			actualYTD += sign * valueOf(r.ActualYTD)
			budgetYTD += sign * valueOf(r.BudgetYTD)
		}
	}

	g.rows = append(g.rows, Row{
		Hier:      joinPath(path, t.Name),
		Label:     t.Name,
		Actual:    &actual,
		Budget:    &budget,
		ActualYTD: &actualYTD,
		BudgetYTD: &budgetYTD,
	})
}

func (g *generator) matches(hier, prefix string) bool {
	if !g.opts.BoundaryMatch || strings.HasSuffix(prefix, Delimiter) {
		return strings.HasPrefix(hier, prefix)
	}
	return hier == prefix || strings.HasPrefix(hier, prefix+Delimiter)
}

func scale(v *float64, multiplier float64) *float64 {
	if v == nil {
		return nil
	}
	s := *v * multiplier
	// no negative zero
	if s == 0 {
		s = 0
	}
	return &s
}

func valueOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
