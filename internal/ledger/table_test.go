package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"", nil},
		{"   ", nil},
		{"(Blank)", nil},
		{"-", Float(0)},
		{"1234.5", Float(1234.5)},
		{"1,234.50", Float(1234.5)},
		{"$1,000", Float(1000)},
		{"(250.25)", Float(-250.25)},
		{"-42", Float(-42)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}

	_, err := ParseAmount("twelve")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNormalizeMonth(t *testing.T) {
	for _, in := range []string{"2023-06", "06/2023", "6/2023", "2023-06-01", "Jun 2023", "45078"} {
		got, err := NormalizeMonth(in)
		require.NoError(t, err, in)
		assert.Equal(t, "2023-06", got, in)
	}

	_, err := NormalizeMonth("June-ish")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestFromTable(t *testing.T) {
	rows := [][]string{
		{},
		{"Month", "Ledger Account", "Cost Center", "Spend Category", "Revenue Category", "Actual", "Budget", "Actual YTD", "Budget YTD"},
		{"2023-06", "40000:Patient Revenues", "CC_71300", "(Blank)", "Inpatient Revenue", "(500.00)", "-400", "-3,000", "-2,400"},
		{"", "", "", "", "", "", "", "", ""},
		{"2023-06", "60300:Supplies", "CC_71300", "Medical Supplies", "", "120", "", "800", "900"},
		{"", "(Blank)", "", "", "", "999", "999", "", ""},
	}

	lines, err := FromTable(rows, Columns{}, "")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "40000:Patient Revenues", lines[0].Account)
	assert.Equal(t, "", lines[0].SpendCategory)
	assert.Equal(t, "Inpatient Revenue", lines[0].RevenueCategory)
	assert.Equal(t, "CC_71300", lines[0].CostCenter)
	assert.InDelta(t, -500, *lines[0].Actual, 1e-9)
	assert.InDelta(t, -3000, *lines[0].ActualYTD, 1e-9)

	assert.Equal(t, "Medical Supplies", lines[1].SpendCategory)
	assert.Nil(t, lines[1].Budget)
	assert.Equal(t, "2023-06", lines[1].Month)
}

func TestFromTableDefaultMonth(t *testing.T) {
	rows := [][]string{
		{"ledger account", "ACTUAL", "Budget"},
		{"70000:Depreciation", "10", "12"},
	}

	lines, err := FromTable(rows, DefaultColumns(), "06/2023")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "2023-06", lines[0].Month)
	assert.Nil(t, lines[0].ActualYTD)

	_, err = FromTable(rows, DefaultColumns(), "")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestFromTableMissingRequiredColumn(t *testing.T) {
	rows := [][]string{
		{"Ledger Account", "Actual"},
		{"70000:Depreciation", "10"},
	}

	_, err := FromTable(rows, DefaultColumns(), "2023-06")
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "Budget")
}

func TestFromTableCustomColumns(t *testing.T) {
	rows := [][]string{
		{"Acct", "Mtd Actual", "Mtd Budget"},
		{"70000:Depreciation", "1", "2"},
	}

	lines, err := FromTable(rows, Columns{Account: "Acct", Actual: "Mtd Actual", Budget: "Mtd Budget"}, "2023-01")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.InDelta(t, 2, *lines[0].Budget, 1e-9)
}

func TestFilter(t *testing.T) {
	lines := []Line{
		{Month: "2023-05", CostCenter: "CC_1", Account: "a"},
		{Month: "2023-06", CostCenter: "CC_1", Account: "b"},
		{Month: "2023-06", CostCenter: "CC_2", Account: "c"},
		{Month: "2023-06", CostCenter: "CC_3", Account: "d"},
	}

	got := Apply(lines, Filter{Month: "2023-06", CostCenters: []string{"CC_1", "CC_3"}})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Account)
	assert.Equal(t, "d", got[1].Account)

	assert.Len(t, Apply(lines, Filter{}), 4)
	assert.Equal(t, []string{"2023-05", "2023-06"}, Months(lines))
}
