package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Blank is the placeholder the financial system writes into empty cells.
const Blank = "(Blank)"

var (
	ErrMissingColumn = errors.New("missing column")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month")
)

// =============================================================================
// COLUMN CONFIGURATION
// =============================================================================

// Columns names the header of each ledger field in an export.
// Header matching is case-insensitive and ignores surrounding whitespace.
type Columns struct {
	Month           string `yaml:"month"`
	Account         string `yaml:"account"`
	CostCenter      string `yaml:"cost_center"`
	SpendCategory   string `yaml:"spend_category"`
	RevenueCategory string `yaml:"revenue_category"`
	Actual          string `yaml:"actual"`
	Budget          string `yaml:"budget"`
	ActualYTD       string `yaml:"actual_ytd"`
	BudgetYTD       string `yaml:"budget_ytd"`
}

// DefaultColumns returns the headers used by the monthly income statement
// export.
func DefaultColumns() Columns {
	return Columns{
		Month:           "Month",
		Account:         "Ledger Account",
		CostCenter:      "Cost Center",
		SpendCategory:   "Spend Category",
		RevenueCategory: "Revenue Category",
		Actual:          "Actual",
		Budget:          "Budget",
		ActualYTD:       "Actual YTD",
		BudgetYTD:       "Budget YTD",
	}
}

// WithDefaults fills every empty header name from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&c.Month, d.Month)
	fill(&c.Account, d.Account)
	fill(&c.CostCenter, d.CostCenter)
	fill(&c.SpendCategory, d.SpendCategory)
	fill(&c.RevenueCategory, d.RevenueCategory)
	fill(&c.Actual, d.Actual)
	fill(&c.Budget, d.Budget)
	fill(&c.ActualYTD, d.ActualYTD)
	fill(&c.BudgetYTD, d.BudgetYTD)
	return c
}

// =============================================================================
// TABLE CONVERSION
// =============================================================================

// FromTable converts the raw cells of an export into ledger lines.
//
// The first non-empty row is the header row. Rows without an account are
// skipped, which drops blank separator rows and grand-total footers. The
// Account, Actual and Budget columns are required. A missing month column
// falls back to defaultMonth; if both are absent ErrMissingColumn is returned.
func FromTable(rows [][]string, cols Columns, defaultMonth string) ([]Line, error) {
	cols = cols.WithDefaults()

	if defaultMonth != "" {
		m, err := NormalizeMonth(defaultMonth)
		if err != nil {
			return nil, err
		}
		defaultMonth = m
	}

	headerIdx := -1
	for i, row := range rows {
		if !isRowEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: no header row found", ErrMissingColumn)
	}

	index := make(map[string]int)
	for i, h := range rows[headerIdx] {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	lookup := func(name string) int {
		if i, ok := index[strings.ToLower(strings.TrimSpace(name))]; ok {
			return i
		}
		return -1
	}

	var (
		accountCol   = lookup(cols.Account)
		actualCol    = lookup(cols.Actual)
		budgetCol    = lookup(cols.Budget)
		monthCol     = lookup(cols.Month)
		costCol      = lookup(cols.CostCenter)
		spendCol     = lookup(cols.SpendCategory)
		revenueCol   = lookup(cols.RevenueCategory)
		actualYTDCol = lookup(cols.ActualYTD)
		budgetYTDCol = lookup(cols.BudgetYTD)
	)

	required := []struct {
		name string
		idx  int
	}{
		{cols.Account, accountCol},
		{cols.Actual, actualCol},
		{cols.Budget, budgetCol},
	}
	for _, r := range required {
		if r.idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, r.name)
		}
	}
	if monthCol < 0 && defaultMonth == "" {
		return nil, fmt.Errorf("%w: %q (and no default month given)", ErrMissingColumn, cols.Month)
	}

	var lines []Line
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		cell := func(idx int) string {
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return CleanCell(row[idx])
		}

		line := Line{
			Account:         cell(accountCol),
			CostCenter:      cell(costCol),
			SpendCategory:   cell(spendCol),
			RevenueCategory: cell(revenueCol),
			Month:           defaultMonth,
		}
		if line.Account == "" {
			continue
		}

		if raw := cell(monthCol); raw != "" {
			m, err := NormalizeMonth(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			line.Month = m
		}

		amounts := []struct {
			dst **float64
			col int
		}{
			{&line.Actual, actualCol},
			{&line.Budget, budgetCol},
			{&line.ActualYTD, actualYTDCol},
			{&line.BudgetYTD, budgetYTDCol},
		}
		for _, a := range amounts {
			v, err := ParseAmount(cell(a.col))
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			*a.dst = v
		}

		lines = append(lines, line)
	}

	return lines, nil
}

// =============================================================================
// CELL HELPERS
// =============================================================================

// CleanCell trims a cell and maps the "(Blank)" placeholder to "".
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if s == Blank {
		return ""
	}
	return s
}

// ParseAmount parses a formatted amount cell. Blank cells return nil.
// Thousands separators, a leading "$" and accounting-style parentheses for
// negative numbers are accepted. A lone "-" is the accounting zero.
func ParseAmount(s string) (*float64, error) {
	s = CleanCell(s)
	if s == "" {
		return nil, nil
	}
	if s == "-" {
		return Float(0), nil
	}

	raw := s
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		v = -v
	}
	return &v, nil
}

var monthLayouts = []string{"2006-01", "01/2006", "1/2006", "2006-01-02", "Jan 2006", "January 2006"}

// NormalizeMonth converts a month cell into YYYY-MM. Spreadsheet date
// serials (days since 1899-12-30) are accepted as well.
func NormalizeMonth(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01"), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01"), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
