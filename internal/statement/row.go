package statement

import "strings"

// Row is one line of a generated statement.
type Row struct {
	// Hier is the Delimiter-joined path of ancestor names ending in this
	// row's own name.
	Hier string

	// Label is the human-readable text shown for the row.
	Label string

	// Values are nil on header rows and on leaf rows whose source cell was
	// blank. Total rows always carry values.
	Actual    *float64
	Budget    *float64
	ActualYTD *float64
	BudgetYTD *float64
}

// SectionLabels are the labels rendered in bold by the report writers.
var SectionLabels = []string{
	"Operating Revenues",
	"Total Revenue",
	"Net Revenue",
	"Expenses",
	"Total Operating Expenses",
	"Operating Margin",
	"Contribution Margin",
}

// IsSection reports whether label is one of SectionLabels.
func IsSection(label string) bool {
	for _, s := range SectionLabels {
		if s == label {
			return true
		}
	}
	return false
}

// Segments splits the hierarchy path.
func (r Row) Segments() []string {
	return strings.Split(r.Hier, Delimiter)
}

// Depth is the number of ancestors of the row.
func (r Row) Depth() int {
	return strings.Count(r.Hier, Delimiter)
}

// IsHeader reports whether the row carries no values at all.
func (r Row) IsHeader() bool {
	return r.Actual == nil && r.Budget == nil && r.ActualYTD == nil && r.BudgetYTD == nil
}
