// =============================================================================
// Income Statement Generator - Spreadsheet Ledger Parser
// =============================================================================
//
// This module reads general-ledger exports saved as spreadsheets. Both the
// current Excel format (.xlsx) and the legacy binary format (.xls) are
// supported; each is reduced to plain rows of cell text and handed to
// ledger.FromTable, which locates the header row and builds ledger lines.
//
// EXPECTED LAYOUT (Workday "Income Statement by Cost Center" export):
//
//   | Month   | Ledger Account         | Cost Center | Spend Category | Revenue Category   | Actual | Budget | ...
//   |---------|------------------------|-------------|----------------|--------------------|--------|--------|
//   | 2023-06 | 40000:Patient Revenues | CC_71300    | (Blank)        | Outpatient Revenue | -1,250 | -1,100 |
//   | 2023-06 | 50000:Salaries & Wages | CC_71300    | Nursing        | (Blank)            | 820.50 | 800    |
//
//   The first non-empty row is the header row. Column headers are
//   configurable per department through ledger.Columns.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
)

// XLSCharset is the code page used to decode legacy .xls string cells.
const XLSCharset = "utf-8"

// Parse reads every row of a worksheet in an .xlsx workbook.
//
// PARAMETERS:
//   - path: The path to the .xlsx file.
//   - sheet: The worksheet name. Empty reads the first sheet.
//
// RETURNS:
//   - The rows as cell text, with numbers in their raw (unformatted) form.
//   - An error if the file or sheet cannot be read.
func Parse(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}

	// Raw values keep amounts parseable regardless of the cell's display
	// format.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %q: %w", sheet, err)
	}

	return rows, nil
}

// ParseXLS reads every row of the first worksheet in a legacy .xls workbook.
func ParseXLS(path string) ([][]string, error) {
	workbook, err := xls.Open(path, XLSCharset)
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}

	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("no data found in workbook")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}

		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}

	return rows, nil
}

// IsSupported reports whether path has a spreadsheet extension this
// package can read.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return true
	}
	return false
}

// LoadLines reads a spreadsheet ledger export into ledger lines.
//
// PARAMETERS:
//   - path: The .xlsx, .xlsm or .xls file.
//   - sheet: The worksheet name for .xlsx files. Ignored for .xls.
//   - columns: The header names of each ledger field.
//   - defaultMonth: The month used when the export has no month column.
//
// RETURNS:
//   - The ledger lines in file order.
//   - An error if the file cannot be read or a row is malformed.
func LoadLines(path, sheet string, columns ledger.Columns, defaultMonth string) ([]ledger.Line, error) {
	var (
		rows [][]string
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = Parse(path, sheet)
	case ".xls":
		rows, err = ParseXLS(path)
	default:
		return nil, fmt.Errorf("unsupported spreadsheet type: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	lines, err := ledger.FromTable(rows, columns, defaultMonth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return lines, nil
}
