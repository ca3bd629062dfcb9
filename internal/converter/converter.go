// =============================================================================
// Income Statement Generator - Converter Module
// =============================================================================
//
// This module contains the core processing logic. It orchestrates the entire
// pipeline for a single ledger export, from parsing to published reports.
//
// PROCESSING PIPELINE:
//   1. Load the ledger lines (.xlsx, .xls or .csv)
//   2. Apply the department's transformation rules
//   3. Persist the lines to the ledger store
//   4. Filter the lines to the department's cost centers
//   5. Resolve and validate the statement definition
//   6. Generate one statement per month
//   7. Write a report per statement and output format
//   8. Publish the reports
//   9. Archive the processed files
//
// CONCURRENCY:
//   A Converter processes one file and is not shared. Many converters may
//   run concurrently; the only shared collaborators are the Store and the
//   Publisher, which must be safe for concurrent use.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/income-statement-generator/internal/config"
	"github.com/ginjaninja78/income-statement-generator/internal/csvparser"
	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
	"github.com/ginjaninja78/income-statement-generator/internal/publish"
	"github.com/ginjaninja78/income-statement-generator/internal/report"
	"github.com/ginjaninja78/income-statement-generator/internal/statement"
	"github.com/ginjaninja78/income-statement-generator/internal/validation"
	"github.com/ginjaninja78/income-statement-generator/internal/xlsxparser"
	"github.com/ginjaninja78/income-statement-generator/pkg/utils"
)

// ErrNoMatchingLines is returned when no ledger line of the file belongs to
// the department (and month, when one is requested).
var ErrNoMatchingLines = errors.New("no ledger lines match the department")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Department is the code of the department the file was processed for.
	Department string

	// OutputFiles are the generated reports, one per month and format.
	// This is empty if processing failed or ran dry.
	OutputFiles []string

	// Published holds the remote location of each published report.
	Published []string

	// ArchivePath is where the input file was moved, if it was archived.
	ArchivePath string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	// This is nil if processing was successful.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// LinesRead is the number of ledger lines loaded from the file.
	LinesRead int

	// LinesStored is the number of lines written to the ledger store.
	LinesStored int

	// LinesMatched is the number of lines left after cost center and
	// month filtering.
	LinesMatched int

	// Months lists the statement months, ascending.
	Months []string

	// StatementsGenerated is the number of statements generated.
	StatementsGenerated int

	// ReportsWritten is the number of report files written.
	ReportsWritten int

	// ValidationWarnings is the number of definition warnings reported.
	ValidationWarnings int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Store persists ledger lines. *storage.SQLiteRepository implements it.
type Store interface {
	ReplaceMonths(ctx context.Context, lines []ledger.Line) (int, error)
}

// Converter handles the processing of a single ledger export.
type Converter struct {
	inputPath   string
	deptConfig  *config.DepartmentConfig
	mainConfig  *config.MainConfig
	files       *utils.FileManager
	definitions *statement.Set
	store       Store
	publisher   publish.Publisher

	// month restricts generation to one YYYY-MM period.
	month string

	// formats overrides mainConfig.OutputFormats.
	formats []string

	// dryRun loads and generates but writes, stores and archives nothing.
	dryRun bool

	logger Logger
}

// Logger is the logging interface used by the converter.
// *log.Logger from github.com/charmbracelet/log satisfies it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStore persists loaded lines before generation.
func WithStore(s Store) Option {
	return func(c *Converter) { c.store = s }
}

// WithPublisher uploads every written report.
func WithPublisher(p publish.Publisher) Option {
	return func(c *Converter) {
		if p != nil {
			c.publisher = p
		}
	}
}

// WithDefinitions resolves statement names against custom definitions.
func WithDefinitions(s *statement.Set) Option {
	return func(c *Converter) { c.definitions = s }
}

// WithMonth generates the statement for a single month only.
func WithMonth(month string) Option {
	return func(c *Converter) { c.month = month }
}

// WithFormats overrides the configured output formats.
func WithFormats(formats ...string) Option {
	return func(c *Converter) { c.formats = formats }
}

// WithDryRun skips every side effect.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) { c.dryRun = dryRun }
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - inputPath: The path to the ledger export.
//   - deptConfig: The department-specific configuration.
//   - mainConfig: The main application configuration.
//   - opts: Optional collaborators and overrides.
//
// RETURNS:
//   - A new Converter instance.
func New(inputPath string, deptConfig *config.DepartmentConfig, mainConfig *config.MainConfig, opts ...Option) *Converter {
	files := utils.NewFileManager(
		mainConfig.InputDir,
		mainConfig.OutputDir,
		mainConfig.InputArchiveDir,
		mainConfig.OutputArchiveDir,
	)
	files.UseTimestampSubdirs = mainConfig.ArchiveByDate
	files.ArchiveOnSuccess = mainConfig.ArchiveInputs

	c := &Converter{
		inputPath:  inputPath,
		deptConfig: deptConfig,
		mainConfig: mainConfig,
		files:      files,
		publisher:  publish.Nop{},
		formats:    mainConfig.OutputFormats,
		logger:     nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the file.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing. A failed
//     step leaves the input file in place.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{
		FilePath:   c.inputPath,
		Department: c.deptConfig.DepartmentCode,
		Success:    false,
	}
	fail := func(err error) Result {
		result.Error = err
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	// =========================================================================
	// STEP 1: LOAD LEDGER LINES
	// =========================================================================

	c.logger.Infof("Processing file: %s (department %s)", c.inputPath, c.deptConfig.DepartmentCode)

	lines, err := loadFile(c.inputPath, c.deptConfig)
	if err != nil {
		return fail(fmt.Errorf("failed to load ledger: %w", err))
	}

	result.Stats.LinesRead = len(lines)
	c.logger.Debugf("Loaded %d ledger lines", len(lines))

	// =========================================================================
	// STEP 2: APPLY TRANSFORMATION RULES
	// =========================================================================

	transformer, err := NewTransformer(c.deptConfig.TransformationRules)
	if err != nil {
		return fail(fmt.Errorf("invalid transformation rules: %w", err))
	}
	lines, err = transformer.ApplyAll(lines)
	if err != nil {
		return fail(fmt.Errorf("failed to apply transformations: %w", err))
	}

	if len(c.deptConfig.TransformationRules) > 0 {
		c.logger.Debugf("Applied %d transformation rules", len(c.deptConfig.TransformationRules))
	}

	// =========================================================================
	// STEP 3: PERSIST
	// =========================================================================
	// The whole file is stored, not only this department's slice, so other
	// departments can be reported from the store later.

	if c.store != nil && !c.dryRun && len(lines) > 0 {
		deleted, err := c.store.ReplaceMonths(ctx, lines)
		if err != nil {
			return fail(fmt.Errorf("failed to store ledger lines: %w", err))
		}
		result.Stats.LinesStored = len(lines)
		c.logger.Debugf("Stored %d ledger lines (replaced %d)", len(lines), deleted)
	}

	// =========================================================================
	// STEP 4: FILTER TO THE DEPARTMENT
	// =========================================================================

	filter := ledger.Filter{CostCenters: c.deptConfig.CostCenters}
	if c.month != "" {
		month, err := ledger.NormalizeMonth(c.month)
		if err != nil {
			return fail(err)
		}
		filter.Month = month
	}

	lines = ledger.Apply(lines, filter)
	result.Stats.LinesMatched = len(lines)
	if len(lines) == 0 {
		return fail(fmt.Errorf("%w %s in %s", ErrNoMatchingLines, c.deptConfig.DepartmentCode, filepath.Base(c.inputPath)))
	}

	// =========================================================================
	// STEP 5: RESOLVE STATEMENT DEFINITION
	// =========================================================================

	def, err := c.definitions.Lookup(c.deptConfig.Statement)
	if err != nil {
		return fail(err)
	}

	validationResult := validation.ValidateDefinition(c.deptConfig.Statement, def)
	for _, w := range validationResult.Warnings {
		c.logger.Warnf("Definition warning: %s", w.Error())
	}
	result.Stats.ValidationWarnings = len(validationResult.Warnings)
	if err := validationResult.Err(); err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 6-8: GENERATE, WRITE AND PUBLISH PER MONTH
	// =========================================================================

	if !c.dryRun {
		if err := os.MkdirAll(c.mainConfig.OutputDir, 0755); err != nil {
			return fail(fmt.Errorf("failed to create output directory: %w", err))
		}
	}

	genOpts := statement.Options{BoundaryMatch: c.mainConfig.StrictPrefixMatch}
	result.Stats.Months = ledger.Months(lines)

	for _, month := range result.Stats.Months {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		monthLines := ledger.Apply(lines, ledger.Filter{Month: month})
		rows := statement.GenerateWithOptions(monthLines, def, genOpts)
		result.Stats.StatementsGenerated++
		c.logger.Debugf("Generated %s statement for %s with %d rows", c.deptConfig.Statement, month, len(rows))

		opts := report.Options{
			Title:      c.deptConfig.DepartmentName,
			Month:      month,
			IncludeYTD: ledger.HasYTD(monthLines),
		}

		for _, format := range c.formats {
			outputPath, err := c.outputPath(format, month)
			if err != nil {
				return fail(err)
			}

			if c.dryRun {
				c.logger.Infof("Would write %s", outputPath)
				continue
			}

			if err := writeReport(outputPath, format, rows, opts); err != nil {
				return fail(fmt.Errorf("failed to write output: %w", err))
			}
			result.OutputFiles = append(result.OutputFiles, outputPath)
			result.Stats.ReportsWritten++
			c.logger.Infof("Wrote output to: %s", outputPath)

			location, err := c.publisher.Publish(ctx, outputPath, filepath.Base(outputPath))
			if err != nil {
				return fail(fmt.Errorf("failed to publish %s: %w", filepath.Base(outputPath), err))
			}
			if location != "" {
				result.Published = append(result.Published, location)
				c.logger.Infof("Published %s", location)
			}
		}
	}

	// =========================================================================
	// STEP 9: ARCHIVE FILES
	// =========================================================================

	if !c.dryRun {
		if err := c.archiveFiles(&result); err != nil {
			// Log the error but don't fail the processing.
			c.logger.Warnf("Failed to archive files: %v", err)
		}
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)

	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// LoadLedger reads a ledger export with the department's layout and applies
// its transformation rules.
func LoadLedger(path string, dept *config.DepartmentConfig) ([]ledger.Line, error) {
	lines, err := loadFile(path, dept)
	if err != nil {
		return nil, err
	}

	transformer, err := NewTransformer(dept.TransformationRules)
	if err != nil {
		return nil, fmt.Errorf("invalid transformation rules: %w", err)
	}
	return transformer.ApplyAll(lines)
}

// loadFile reads the input file with the loader for its extension.
func loadFile(path string, dept *config.DepartmentConfig) ([]ledger.Line, error) {
	switch {
	case xlsxparser.IsSupported(path):
		return xlsxparser.LoadLines(path, dept.Sheet, dept.LedgerColumns, dept.DefaultMonth)
	case strings.EqualFold(filepath.Ext(path), ".csv"):
		return csvparser.LoadLines(path, dept.CSVSettings, dept.LedgerColumns, dept.DefaultMonth)
	}
	return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
}

// outputPath names the report for a month and format.
//
// NAMING:
//   The file is named according to the UUIDFormat in the main configuration.
//   {dept}, {month} and {statement} are filled in here; {uuid} and
//   {timestamp} by utils.GenerateOutputFileName.
func (c *Converter) outputPath(format, month string) (string, error) {
	ext, err := report.Extension(format)
	if err != nil {
		return "", err
	}

	statementName := c.deptConfig.Statement
	if statementName == "" {
		statementName = statement.DepartmentName
	}

	fileName := utils.GenerateOutputFileName(c.mainConfig.UUIDFormat, map[string]string{
		"dept":      c.deptConfig.DepartmentCode,
		"month":     month,
		"statement": statementName,
	}, ext)

	return filepath.Join(c.mainConfig.OutputDir, fileName), nil
}

// writeReport writes one report file, removing it again if writing fails.
func writeReport(path, format string, rows []statement.Row, opts report.Options) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := report.Write(format, file, rows, opts); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// archiveFiles moves the input to the input archive and copies every report
// to the output archive.
func (c *Converter) archiveFiles(result *Result) error {
	archivePath, err := c.files.ArchiveInputFile(c.inputPath)
	if err != nil {
		return fmt.Errorf("failed to archive input file: %w", err)
	}
	if archivePath != c.inputPath {
		result.ArchivePath = archivePath
		c.logger.Debugf("Archived input to: %s", archivePath)
	}

	for _, outputPath := range result.OutputFiles {
		if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
			return fmt.Errorf("failed to archive output file: %w", err)
		}
	}

	return nil
}

// nopLogger discards all messages.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
