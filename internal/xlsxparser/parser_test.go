package xlsxparser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
)

// writeWorkbook saves rows to a new workbook under sheet.
func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseFirstSheet(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"Ledger Account", "Actual"},
		{"60300:Supplies", 120.5},
	})

	rows, err := Parse(path, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Ledger Account", "Actual"}, rows[0])
	assert.Equal(t, "120.5", rows[1][1])
}

func TestParseNamedSheet(t *testing.T) {
	path := writeWorkbook(t, "GL Detail", [][]interface{}{{"Ledger Account"}})

	rows, err := Parse(path, "GL Detail")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Ledger Account"}}, rows)

	_, err = Parse(path, "Missing")
	assert.Error(t, err)
}

func TestLoadLines(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"Month", "Ledger Account", "Cost Center", "Spend Category", "Revenue Category", "Actual", "Budget"},
		{"2023-06", "40000:Patient Revenues", "CC_71300", "(Blank)", "Outpatient Revenue", -1250, -1100},
		{"2023-06", "50000:Salaries & Wages", "CC_71300", "Nursing", "(Blank)", 820.5, 800},
		{nil, "Total", nil, nil, nil, nil, nil},
	})

	lines, err := LoadLines(path, "", ledger.Columns{}, "")
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, "2023-06", lines[0].Month)
	assert.Equal(t, "Outpatient Revenue", lines[0].RevenueCategory)
	assert.Equal(t, "", lines[0].SpendCategory)
	assert.InDelta(t, -1250, *lines[0].Actual, 1e-9)
	assert.InDelta(t, 820.5, *lines[1].Actual, 1e-9)
	assert.Nil(t, lines[1].ActualYTD)

	// The footer keeps its account text but has no amounts.
	assert.Equal(t, "Total", lines[2].Account)
	assert.Nil(t, lines[2].Actual)
}

func TestLoadLinesUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.ods")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := LoadLines(path, "", ledger.Columns{}, "")
	assert.ErrorContains(t, err, "unsupported")
	assert.False(t, IsSupported(path))
	assert.True(t, IsSupported("GL.XLSX"))
	assert.True(t, IsSupported("legacy.xls"))
}

func TestParseXLSInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xls")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

	_, err := ParseXLS(path)
	assert.Error(t, err)
}
