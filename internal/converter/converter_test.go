package converter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/income-statement-generator/internal/config"
	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
	"github.com/ginjaninja78/income-statement-generator/internal/statement"
	"github.com/ginjaninja78/income-statement-generator/internal/storage"
)

const imagingExport = `Month,Ledger Account,Cost Center,Spend Category,Revenue Category,Actual,Budget
2023-06,40000:Patient Revenues,CC_71300,(Blank),Inpatient Revenue,-500,-400
2023-06,50000:Salaries & Wages,CC_71300,Staff,(Blank),200,180
2023-06,40000:Patient Revenues,CC_99999,(Blank),Inpatient Revenue,-1000,-1000
2023-05,40000:Patient Revenues,CC_71300,(Blank),Inpatient Revenue,-300,-300
`

type fakeStore struct {
	mu    sync.Mutex
	lines []ledger.Line
	err   error
}

func (s *fakeStore) ReplaceMonths(_ context.Context, lines []ledger.Line) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.lines = append(s.lines, lines...)
	return 0, nil
}

type fakePublisher struct {
	objects []string
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, objectName string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.objects = append(p.objects, objectName)
	return "gs://reports/" + objectName, nil
}

type testEnv struct {
	main  *config.MainConfig
	dept  *config.DepartmentConfig
	input string
}

func newTestEnv(t *testing.T, export string) testEnv {
	t.Helper()
	root := t.TempDir()
	main := &config.MainConfig{
		InputDir:         filepath.Join(root, "input"),
		OutputDir:        filepath.Join(root, "output"),
		InputArchiveDir:  filepath.Join(root, "input_archive"),
		OutputArchiveDir: filepath.Join(root, "output_archive"),
		OutputFormats:    []string{"json", "csv"},
		UUIDFormat:       "{dept}_{month}_{statement}",
		ArchiveInputs:    true,
	}
	require.NoError(t, main.EnsureDirectories())

	input := filepath.Join(main.InputDir, "imaging_2023.csv")
	require.NoError(t, os.WriteFile(input, []byte(export), 0o644))

	dept := &config.DepartmentConfig{
		DepartmentName: "Imaging",
		DepartmentCode: "IMG",
		CostCenters:    []string{"CC_71300"},
		Statement:      statement.DepartmentName,
		LedgerColumns:  ledger.DefaultColumns(),
		CSVSettings:    config.CSVSettings{Delimiter: ",", DataStartRow: 1},
	}
	return testEnv{main: main, dept: dept, input: input}
}

func readJSONRows(t *testing.T, path string) map[string]map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &rows))

	byLabel := make(map[string]map[string]interface{})
	for _, r := range rows {
		byLabel[r["label"].(string)] = r
	}
	return byLabel
}

func TestRun(t *testing.T) {
	env := newTestEnv(t, imagingExport)
	store := &fakeStore{}
	pub := &fakePublisher{}

	result := New(env.input, env.dept, env.main, WithStore(store), WithPublisher(pub)).Run(context.Background())
	require.NoError(t, result.Error)
	assert.True(t, result.Success)

	assert.Equal(t, 4, result.Stats.LinesRead)
	assert.Equal(t, 4, result.Stats.LinesStored)
	assert.Equal(t, 3, result.Stats.LinesMatched)
	assert.Equal(t, []string{"2023-05", "2023-06"}, result.Stats.Months)
	assert.Equal(t, 2, result.Stats.StatementsGenerated)
	assert.Equal(t, 4, result.Stats.ReportsWritten)
	assert.Len(t, store.lines, 4)

	out := env.main.OutputDir
	assert.Equal(t, []string{
		filepath.Join(out, "IMG_2023-05_department.json"),
		filepath.Join(out, "IMG_2023-05_department.csv"),
		filepath.Join(out, "IMG_2023-06_department.json"),
		filepath.Join(out, "IMG_2023-06_department.csv"),
	}, result.OutputFiles)
	assert.Equal(t, []string{
		"IMG_2023-05_department.json",
		"IMG_2023-05_department.csv",
		"IMG_2023-06_department.json",
		"IMG_2023-06_department.csv",
	}, pub.objects)
	assert.Equal(t, "gs://reports/IMG_2023-06_department.csv", result.Published[3])

	june := readJSONRows(t, filepath.Join(out, "IMG_2023-06_department.json"))
	assert.Equal(t, 500.0, june["Inpatient Revenue"]["actual"])
	assert.Equal(t, 500.0, june["Total Revenue"]["actual"])
	assert.Equal(t, 200.0, june["Staff"]["actual"])
	assert.Equal(t, 300.0, june["Contribution Margin"]["actual"])
	assert.Equal(t, 220.0, june["Contribution Margin"]["budget"])
	assert.Equal(t, true, june["Contribution Margin"]["section"])

	may := readJSONRows(t, filepath.Join(out, "IMG_2023-05_department.json"))
	assert.Equal(t, 300.0, may["Contribution Margin"]["actual"])

	assert.NoFileExists(t, env.input)
	assert.Equal(t, filepath.Join(env.main.InputArchiveDir, "imaging_2023.csv"), result.ArchivePath)
	assert.FileExists(t, filepath.Join(env.main.OutputArchiveDir, "IMG_2023-06_department.csv"))
}

const labExport = `Month,Ledger Account,Cost Center,Spend Category,Revenue Category,Actual,Budget
2023-06,40000:Patient Revenues,CC_70700,(Blank),Outpatient Revenue,-900,-850
2023-06,50000:Salaries & Wages,CC_70700,Staff,(Blank),400,420
`

func TestRunDepartmentsShareStore(t *testing.T) {
	env := newTestEnv(t, imagingExport)
	env.main.OutputFormats = []string{"json"}

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer repo.Close()

	labInput := filepath.Join(env.main.InputDir, "lab_2023.csv")
	require.NoError(t, os.WriteFile(labInput, []byte(labExport), 0o644))
	lab := &config.DepartmentConfig{
		DepartmentName: "Laboratory",
		DepartmentCode: "LAB",
		CostCenters:    []string{"CC_70700"},
		Statement:      statement.DepartmentName,
		LedgerColumns:  ledger.DefaultColumns(),
		CSVSettings:    config.CSVSettings{Delimiter: ",", DataStartRow: 1},
	}

	ctx := context.Background()
	result := New(env.input, env.dept, env.main, WithStore(repo)).Run(ctx)
	require.NoError(t, result.Error)
	result = New(labInput, lab, env.main, WithStore(repo)).Run(ctx)
	require.NoError(t, result.Error)
	assert.Equal(t, 2, result.Stats.LinesStored)

	imaging, err := repo.Lines(ctx, ledger.Filter{Month: "2023-06", CostCenters: env.dept.CostCenters})
	require.NoError(t, err)
	assert.Len(t, imaging, 2)

	labLines, err := repo.Lines(ctx, ledger.Filter{Month: "2023-06", CostCenters: lab.CostCenters})
	require.NoError(t, err)
	assert.Len(t, labLines, 2)

	months, err := repo.Months(ctx, ledger.Filter{CostCenters: lab.CostCenters})
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-06"}, months)
}

func TestRunSingleMonthAndFormat(t *testing.T) {
	env := newTestEnv(t, imagingExport)
	env.main.ArchiveInputs = false

	result := New(env.input, env.dept, env.main, WithMonth("06/2023"), WithFormats("xlsx")).Run(context.Background())
	require.NoError(t, result.Error)

	assert.Equal(t, []string{"2023-06"}, result.Stats.Months)
	assert.Equal(t, []string{filepath.Join(env.main.OutputDir, "IMG_2023-06_department.xlsx")}, result.OutputFiles)
	assert.Empty(t, result.ArchivePath)
	assert.FileExists(t, env.input)
}

func TestRunDryRun(t *testing.T) {
	env := newTestEnv(t, imagingExport)
	store := &fakeStore{}

	result := New(env.input, env.dept, env.main, WithStore(store), WithDryRun(true)).Run(context.Background())
	require.NoError(t, result.Error)

	assert.Equal(t, 2, result.Stats.StatementsGenerated)
	assert.Zero(t, result.Stats.ReportsWritten)
	assert.Empty(t, result.OutputFiles)
	assert.Empty(t, store.lines)
	assert.FileExists(t, env.input)

	entries, err := os.ReadDir(env.main.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunTransformations(t *testing.T) {
	export := strings.ReplaceAll(imagingExport, "CC_71300", "71300")
	env := newTestEnv(t, export)
	env.dept.TransformationRules = []config.TransformationRule{
		{Field: FieldCostCenter, Actions: []config.TransformationAction{{Type: "prepend_string", Value: "CC_"}}},
	}

	result := New(env.input, env.dept, env.main, WithFormats("json")).Run(context.Background())
	require.NoError(t, result.Error)
	assert.Equal(t, 3, result.Stats.LinesMatched)
}

func TestRunCustomDefinition(t *testing.T) {
	env := newTestEnv(t, imagingExport)
	env.dept.Statement = "compact"

	defs := &statement.Set{Custom: map[string]statement.Definition{
		"compact": {
			statement.Group{Name: "Revenue", Items: []statement.Node{
				statement.Leaf{Account: "40000:Patient Revenues", Category: "Inpatient Revenue", Negative: true},
			}},
			statement.Total{Name: "Net Revenue", Total: []string{"Revenue/"}},
		},
	}}

	result := New(env.input, env.dept, env.main, WithDefinitions(defs), WithMonth("2023-06"), WithFormats("json")).Run(context.Background())
	require.NoError(t, result.Error)

	rows := readJSONRows(t, filepath.Join(env.main.OutputDir, "IMG_2023-06_compact.json"))
	assert.Equal(t, 500.0, rows["Net Revenue"]["actual"])
	assert.Len(t, rows, 3)
}

func TestRunFailures(t *testing.T) {
	t.Run("no matching lines", func(t *testing.T) {
		env := newTestEnv(t, imagingExport)
		env.dept.CostCenters = []string{"CC_00000"}

		result := New(env.input, env.dept, env.main).Run(context.Background())
		assert.False(t, result.Success)
		assert.ErrorIs(t, result.Error, ErrNoMatchingLines)
		assert.FileExists(t, env.input)
	})

	t.Run("unknown statement", func(t *testing.T) {
		env := newTestEnv(t, imagingExport)
		env.dept.Statement = "nope"

		result := New(env.input, env.dept, env.main).Run(context.Background())
		assert.ErrorIs(t, result.Error, statement.ErrUnknownDefinition)
	})

	t.Run("invalid definition", func(t *testing.T) {
		env := newTestEnv(t, imagingExport)
		env.dept.Statement = "broken"
		defs := &statement.Set{Custom: map[string]statement.Definition{
			"broken": {statement.Total{Name: "Empty"}},
		}}

		result := New(env.input, env.dept, env.main, WithDefinitions(defs)).Run(context.Background())
		assert.ErrorIs(t, result.Error, statement.ErrInvalidDefinition)
	})

	t.Run("store error", func(t *testing.T) {
		env := newTestEnv(t, imagingExport)
		store := &fakeStore{err: errors.New("disk full")}

		result := New(env.input, env.dept, env.main, WithStore(store)).Run(context.Background())
		assert.ErrorContains(t, result.Error, "disk full")
	})

	t.Run("publish error", func(t *testing.T) {
		env := newTestEnv(t, imagingExport)
		pub := &fakePublisher{err: errors.New("forbidden")}

		result := New(env.input, env.dept, env.main, WithPublisher(pub)).Run(context.Background())
		assert.ErrorContains(t, result.Error, "forbidden")
		assert.FileExists(t, env.input)
	})

	t.Run("unsupported file", func(t *testing.T) {
		env := newTestEnv(t, imagingExport)
		path := filepath.Join(env.main.InputDir, "ledger.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		result := New(path, env.dept, env.main).Run(context.Background())
		assert.ErrorContains(t, result.Error, "unsupported file type")
	})

	t.Run("cancelled", func(t *testing.T) {
		env := newTestEnv(t, imagingExport)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := New(env.input, env.dept, env.main).Run(ctx)
		assert.ErrorIs(t, result.Error, context.Canceled)
	})
}
