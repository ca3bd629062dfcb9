package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
)

var f = ledger.Float

func createTestStorage(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleLines() []ledger.Line {
	return []ledger.Line{
		{Month: "2023-05", Account: "60300:Supplies", CostCenter: "CC_71300", SpendCategory: "Film", Actual: f(10), Budget: f(12)},
		{Month: "2023-06", Account: "40000:Patient Revenues", CostCenter: "CC_71300", RevenueCategory: "Outpatient Revenue", Actual: f(-500), Budget: f(-450), ActualYTD: f(-3000)},
		{Month: "2023-06", Account: "60300:Supplies", CostCenter: "CC_70700", SpendCategory: "Reagents", Actual: f(40)},
		{Month: "2023-06", Account: "60300:Supplies", CostCenter: "CC_71200", SpendCategory: "Film", Actual: nil, Budget: f(0)},
	}
}

func TestReplaceMonthsAndLines(t *testing.T) {
	ctx := context.Background()
	repo := createTestStorage(t)

	deleted, err := repo.ReplaceMonths(ctx, sampleLines())
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	all, err := repo.Lines(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, sampleLines(), all)

	june, err := repo.Lines(ctx, ledger.Filter{Month: "2023-06", CostCenters: []string{"CC_71300", "CC_71200"}})
	require.NoError(t, err)
	require.Len(t, june, 2)
	assert.Equal(t, "40000:Patient Revenues", june[0].Account)
	assert.Nil(t, june[1].Actual)
	require.NotNil(t, june[1].Budget)
	assert.Equal(t, 0.0, *june[1].Budget)
	assert.Nil(t, june[0].BudgetYTD)
}

func TestReplaceMonthsReplacesOnlyIngestedMonths(t *testing.T) {
	ctx := context.Background()
	repo := createTestStorage(t)

	_, err := repo.ReplaceMonths(ctx, sampleLines())
	require.NoError(t, err)

	corrected := []ledger.Line{
		{Month: "2023-06", Account: "60300:Supplies", CostCenter: "CC_71300", SpendCategory: "Film", Actual: f(99)},
	}
	deleted, err := repo.ReplaceMonths(ctx, corrected)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	june, err := repo.Lines(ctx, ledger.Filter{Month: "2023-06", CostCenters: []string{"CC_71300"}})
	require.NoError(t, err)
	assert.Equal(t, corrected, june)

	// Other cost centers of the month are untouched.
	others, err := repo.Lines(ctx, ledger.Filter{Month: "2023-06", CostCenters: []string{"CC_70700", "CC_71200"}})
	require.NoError(t, err)
	assert.Len(t, others, 2)

	may, err := repo.Lines(ctx, ledger.Filter{Month: "2023-05"})
	require.NoError(t, err)
	assert.Len(t, may, 1)
}

func TestReplaceMonthsKeepsOtherDepartments(t *testing.T) {
	ctx := context.Background()
	repo := createTestStorage(t)

	imaging := []ledger.Line{
		{Month: "2023-06", Account: "40000:Patient Revenues", CostCenter: "CC_71300", RevenueCategory: "Inpatient Revenue", Actual: f(-500)},
		{Month: "2023-06", Account: "50000:Salaries & Wages", CostCenter: "CC_71200", SpendCategory: "Staff", Actual: f(200)},
	}
	lab := []ledger.Line{
		{Month: "2023-06", Account: "40000:Patient Revenues", CostCenter: "CC_70700", RevenueCategory: "Outpatient Revenue", Actual: f(-900)},
	}

	_, err := repo.ReplaceMonths(ctx, imaging)
	require.NoError(t, err)
	deleted, err := repo.ReplaceMonths(ctx, lab)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	got, err := repo.Lines(ctx, ledger.Filter{Month: "2023-06", CostCenters: []string{"CC_71300", "CC_71200"}})
	require.NoError(t, err)
	assert.Equal(t, imaging, got)

	got, err = repo.Lines(ctx, ledger.Filter{Month: "2023-06", CostCenters: []string{"CC_70700"}})
	require.NoError(t, err)
	assert.Equal(t, lab, got)

	// Re-ingesting the lab export replaces only the lab line.
	deleted, err = repo.ReplaceMonths(ctx, lab)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	all, err := repo.Lines(ctx, ledger.Filter{Month: "2023-06"})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReplaceMonthsEmpty(t *testing.T) {
	repo := createTestStorage(t)

	_, err := repo.ReplaceMonths(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoLines)
}

func TestMonths(t *testing.T) {
	ctx := context.Background()
	repo := createTestStorage(t)

	months, err := repo.Months(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, months)

	_, err = repo.ReplaceMonths(ctx, sampleLines())
	require.NoError(t, err)
	_, err = repo.ReplaceMonths(ctx, []ledger.Line{
		{Month: "2023-07", Account: "60300:Supplies", CostCenter: "CC_70700", SpendCategory: "Reagents", Actual: f(5)},
	})
	require.NoError(t, err)

	months, err = repo.Months(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-07", "2023-06", "2023-05"}, months)

	months, err = repo.Months(ctx, ledger.Filter{CostCenters: []string{"CC_71300"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-06", "2023-05"}, months)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	_, err = repo.ReplaceMonths(ctx, sampleLines())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Migrations are a no-op on the second open.
	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	lines, err := repo.Lines(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Len(t, lines, 4)
}
