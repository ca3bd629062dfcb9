// =============================================================================
// Income Statement Generator - Report Writers
// =============================================================================
//
// This module turns generated statement rows into files and terminal output.
//
// OUTPUT FORMATS:
//   xlsx - Excel workbook. A hidden "hier" column keeps the hierarchy path,
//          rows are grouped by depth so sections can be collapsed, and the
//          section rows (Net Revenue, Operating Margin, ...) are bold.
//   csv  - hier,label and one column per value; blank cells for headers.
//   json - An array of row objects with null for missing values.
//
// USAGE:
//   opts := report.Options{Title: "Imaging", Month: "2023-06", IncludeYTD: true}
//   err := report.Write("xlsx", w, rows, opts)
//
// =============================================================================

package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ginjaninja78/income-statement-generator/internal/statement"
)

// Supported formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned for a format name no writer handles.
var ErrUnknownFormat = errors.New("unknown report format")

// Options controls titles and columns of a report.
type Options struct {
	// Title is shown above the statement, usually the department name.
	Title string

	// Month is the statement period (YYYY-MM). It names the YTD columns.
	Month string

	// IncludeYTD adds the year-to-date actual and budget columns.
	IncludeYTD bool
}

// ColumnHeaders returns the display headers of the label and value columns.
func ColumnHeaders(opts Options) []string {
	headers := []string{"Ledger Account", "Actual", "Budget"}
	if !opts.IncludeYTD {
		return headers
	}

	if period := ytdPeriod(opts.Month); period != "" {
		return append(headers, "Actual, Year to "+period, "Budget, Year to "+period)
	}
	return append(headers, "Actual YTD", "Budget YTD")
}

func ytdPeriod(month string) string {
	if month == "" {
		return ""
	}
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return ""
	}
	return t.Format("Jan 2006")
}

// values returns the value cells of a row in column order.
func values(r statement.Row, opts Options) []*float64 {
	out := []*float64{r.Actual, r.Budget}
	if opts.IncludeYTD {
		out = append(out, r.ActualYTD, r.BudgetYTD)
	}
	return out
}

// Extension returns the file extension, with dot, of a format.
func Extension(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatXLSX:
		return ".xlsx", nil
	case FormatCSV:
		return ".csv", nil
	case FormatJSON:
		return ".json", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Write dispatches to the writer of format.
func Write(format string, w io.Writer, rows []statement.Row, opts Options) error {
	switch strings.ToLower(format) {
	case FormatXLSX:
		return WriteXLSX(w, rows, opts)
	case FormatCSV:
		return WriteCSV(w, rows, opts)
	case FormatJSON:
		return WriteJSON(w, rows, opts)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
