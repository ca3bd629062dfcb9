// =============================================================================
// Income Statement Generator - Ledger Lines
// =============================================================================
//
// This package contains the ledger line type shared by the loaders, the
// storage layer and the statement generator. Keeping it in its own package
// lets all of them depend on it without import cycles.
//
// A ledger line is one posted actual/budget fact for an account, a category
// and a month, as exported by the financial system:
//
//   | Month   | Ledger Account         | Cost Center | Spend Category | Revenue Category  | Actual | Budget | ...
//   |---------|------------------------|-------------|----------------|-------------------|--------|--------|
//   | 2023-06 | 40000:Patient Revenues | CC_71300    |                | Inpatient Revenue | -500   | -400   |
//
// =============================================================================

package ledger

import (
	"sort"
)

// =============================================================================
// LEDGER LINE
// =============================================================================

// Line represents one row of the flat ledger table.
type Line struct {
	// Month is the period identifier in YYYY-MM format.
	Month string

	// Account is the general-ledger account, formatted "<code>:<name>".
	// Example: "40000:Patient Revenues"
	Account string

	// CostCenter identifies the department the amount was posted to.
	// It is only used to pre-filter lines before generation.
	CostCenter string

	// SpendCategory and RevenueCategory sub-classify the account.
	// At most one of them is non-empty on a given line.
	SpendCategory   string
	RevenueCategory string

	// Amount columns. A nil value means the source cell was blank.
	Actual    *float64
	Budget    *float64
	ActualYTD *float64
	BudgetYTD *float64
}

// Float returns a pointer to v. It is a convenience for building lines
// with non-blank amounts.
func Float(v float64) *float64 {
	return &v
}

// =============================================================================
// FILTERING
// =============================================================================

// Filter selects the lines that belong to one department and time slice.
// Empty fields match everything.
type Filter struct {
	// Month restricts lines to a single YYYY-MM period.
	Month string

	// CostCenters restricts lines to the listed cost centers.
	CostCenters []string
}

// Match reports whether the line passes the filter.
func (f Filter) Match(l Line) bool {
	if f.Month != "" && l.Month != f.Month {
		return false
	}
	if len(f.CostCenters) == 0 {
		return true
	}
	for _, cc := range f.CostCenters {
		if cc == l.CostCenter {
			return true
		}
	}
	return false
}

// Apply returns the lines that pass the filter, preserving input order.
// The input slice is not modified.
func Apply(lines []Line, f Filter) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

// Months returns the distinct months present in lines, sorted ascending.
func Months(lines []Line) []string {
	seen := make(map[string]struct{})
	for _, l := range lines {
		if l.Month == "" {
			continue
		}
		seen[l.Month] = struct{}{}
	}

	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// HasYTD reports whether any line carries a year-to-date amount.
func HasYTD(lines []Line) bool {
	for _, l := range lines {
		if l.ActualYTD != nil || l.BudgetYTD != nil {
			return true
		}
	}
	return false
}
