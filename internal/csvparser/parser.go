// =============================================================================
// Income Statement Generator - CSV Ledger Parser
// =============================================================================
//
// This module reads general-ledger exports saved as delimited text. It is
// designed to handle the variations between departments:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Report banners above the header row
//   - Comment lines
//   - A UTF-8 byte order mark written by spreadsheet tools
//
// FEATURES:
//   - Flexible configuration via config.CSVSettings
//   - Variable field counts (short footer rows are tolerated)
//   - Lazy quotes for hand-edited files
//
// The rows are handed to ledger.FromTable, which matches the header row and
// builds the ledger lines.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/income-statement-generator/internal/config"
	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// PARSING FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns its rows from the header row onward.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings from the department configuration.
//
// RETURNS:
//   - The rows, starting at settings.DataStartRow.
//   - An error if the file cannot be read or parsed.
//
// PROCESS:
//   1. Open the file and drop a leading byte order mark
//   2. Configure the CSV reader with the specified delimiter
//   3. Read all rows
//   4. Drop the banner rows above settings.DataStartRow
func Parse(filePath string, settings config.CSVSettings) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return Read(file, settings)
}

// Read parses CSV rows from r. See Parse.
func Read(r io.Reader, settings config.CSVSettings) ([][]string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	configureReader(reader, settings)

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	start := settings.DataStartRow - 1
	if start < 0 {
		start = 0
	}
	if start >= len(allRows) {
		return nil, fmt.Errorf("CSV has %d rows, header expected at row %d", len(allRows), settings.DataStartRow)
	}

	return allRows[start:], nil
}

// configureReader configures the CSV reader based on the settings.
//
// PARAMETERS:
//   - reader: The CSV reader to configure.
//   - settings: The CSV parsing settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	// Handle special cases for common delimiters.
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	if len(settings.Comment) > 0 {
		reader.Comment = rune(settings.Comment[0])
	}

	// Allow variable number of fields per row.
	// Grand-total footers are often shorter than the data rows.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	// Trim leading space from fields.
	reader.TrimLeadingSpace = true
}

// LoadLines reads a CSV ledger export into ledger lines.
func LoadLines(filePath string, settings config.CSVSettings, columns ledger.Columns, defaultMonth string) ([]ledger.Line, error) {
	rows, err := Parse(filePath, settings)
	if err != nil {
		return nil, err
	}

	lines, err := ledger.FromTable(rows, columns, defaultMonth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filePath), err)
	}
	return lines, nil
}
