package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMainConfigDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "output_dir: ./reports\n")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./reports", cfg.OutputDir)
	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./definitions", cfg.DefinitionsDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"xlsx"}, cfg.OutputFormats)
	assert.Equal(t, "{dept}_{month}_{statement}", cfg.UUIDFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ContinueOnError)
	assert.True(t, cfg.ArchiveInputs)
	assert.False(t, cfg.StrictPrefixMatch)
	assert.False(t, cfg.ArchiveByDate)
	assert.Zero(t, cfg.ArchiveRetentionDays)
	assert.Empty(t, cfg.Publish.Bucket)
}

func TestLoadMainConfigFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
log_level: debug
output_formats: [xlsx, CSV]
max_concurrency: 0
strict_prefix_match: true
publish:
  bucket: finance-reports
  prefix: statements
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"xlsx", "csv"}, cfg.OutputFormats)
	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.True(t, cfg.StrictPrefixMatch)
	assert.Equal(t, PublishConfig{Bucket: "finance-reports", Prefix: "statements"}, cfg.Publish)
}

func TestLoadMainConfigEnvOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "log_level: info\n")
	t.Setenv("STMTGEN_LOG_LEVEL", "warn")
	t.Setenv("STMTGEN_OUTPUT_FORMATS", "csv,json")
	t.Setenv("STMTGEN_PUBLISH_BUCKET", "env-bucket")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"csv", "json"}, cfg.OutputFormats)
	assert.Equal(t, "env-bucket", cfg.Publish.Bucket)
}

func TestLoadMainConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadMainConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadMainConfig(writeFile(t, dir, "bad_level.yaml", "log_level: loud\n"))
	assert.ErrorContains(t, err, "log_level")

	_, err = LoadMainConfig(writeFile(t, dir, "bad_format.yaml", "output_formats: [pdf]\n"))
	assert.ErrorContains(t, err, "pdf")
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &MainConfig{
		InputDir:  filepath.Join(root, "in"),
		OutputDir: filepath.Join(root, "out", "nested"),
	}
	require.NoError(t, cfg.EnsureDirectories())

	assert.DirExists(t, cfg.InputDir)
	assert.DirExists(t, cfg.OutputDir)
}

func TestLoadDepartmentConfigs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "imaging.yaml", `
department_name: Imaging
department_code: IMG
cost_centers: [CC_71300, CC_71200]
file_matching_patterns: ["imaging_*.xlsx"]
ledger_columns:
  actual: Actual Amount
transformation_rules:
  - field: cost_center
    actions:
      - type: uppercase
`)
	writeFile(t, dir, "lab.yml", `
cost_centers: [CC_70700]
statement: default
csv_settings:
  delimiter: ";"
`)

	depts, err := LoadDepartmentConfigs(dir)
	require.NoError(t, err)
	require.Len(t, depts, 2)

	img := depts["IMG"]
	require.NotNil(t, img)
	assert.Equal(t, "Imaging", img.DepartmentName)
	assert.Equal(t, "department", img.Statement)
	assert.Equal(t, []string{"CC_71300", "CC_71200"}, img.CostCenters)
	assert.Equal(t, "Actual Amount", img.LedgerColumns.Actual)
	assert.Equal(t, ledger.DefaultColumns().Account, img.LedgerColumns.Account)
	assert.Equal(t, ",", img.CSVSettings.Delimiter)
	assert.Equal(t, 1, img.CSVSettings.DataStartRow)
	require.Len(t, img.TransformationRules, 1)
	assert.Equal(t, "uppercase", img.TransformationRules[0].Actions[0].Type)

	lab := depts["lab"]
	require.NotNil(t, lab)
	assert.Equal(t, "default", lab.Statement)
	assert.Equal(t, ";", lab.CSVSettings.Delimiter)
}

func TestLoadDepartmentConfigsDuplicateCode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "department_code: X\n")
	writeFile(t, dir, "b.yaml", "department_code: X\n")

	_, err := LoadDepartmentConfigs(dir)
	assert.ErrorContains(t, err, "duplicate department code")
}

func TestFindAndMatchDepartment(t *testing.T) {
	depts := map[string]*DepartmentConfig{
		"IMG": {DepartmentCode: "IMG", FileMatchingPatterns: []string{"imaging_*.xlsx"}},
		"LAB": {DepartmentCode: "LAB", FileMatchingPatterns: []string{"lab_*", "*_laboratory.csv"}},
	}

	dept, err := FindDepartment(depts, "img")
	require.NoError(t, err)
	assert.Equal(t, "IMG", dept.DepartmentCode)

	_, err = FindDepartment(depts, "ER")
	assert.ErrorIs(t, err, ErrUnknownDepartment)

	dept, ok := MatchDepartment(depts, "/data/in/2023_laboratory.csv")
	require.True(t, ok)
	assert.Equal(t, "LAB", dept.DepartmentCode)

	_, ok = MatchDepartment(depts, "payroll.xlsx")
	assert.False(t, ok)
}

func TestNewDepartmentConfig(t *testing.T) {
	dept := NewDepartmentConfig("ER")
	assert.Equal(t, "ER", dept.DepartmentName)
	assert.Equal(t, "department", dept.Statement)
	assert.Equal(t, ledger.DefaultColumns(), dept.LedgerColumns)
	assert.Equal(t, CSVSettings{Delimiter: ",", DataStartRow: 1}, dept.CSVSettings)
	assert.Empty(t, dept.CostCenters)
}

func TestShippedConfigs(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join("..", "..", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "statements", cfg.Publish.Prefix)

	depts, err := LoadDepartmentConfigs(filepath.Join("..", "..", "configs"))
	require.NoError(t, err)
	require.Contains(t, depts, "IMG")
	require.Contains(t, depts, "LAB")
	require.Contains(t, depts, "HOSP")

	assert.Equal(t, []string{"CC_71300", "CC_71200", "CC_71400", "CC_71430", "CC_71600", "CC_71450"}, depts["IMG"].CostCenters)
	assert.Equal(t, 3, depts["LAB"].CSVSettings.DataStartRow)
	assert.Equal(t, "Period", depts["HOSP"].LedgerColumns.Month)
	assert.Equal(t, "Ledger Account", depts["HOSP"].LedgerColumns.Account)

	dept, ok := MatchDepartment(depts, "imaging_2023_06.xlsx")
	require.True(t, ok)
	assert.Equal(t, "IMG", dept.DepartmentCode)
}
