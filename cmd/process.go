// =============================================================================
// Income Statement Generator - Process Command
// =============================================================================
//
// This file defines the 'process' command, which is the main command for
// turning ledger exports into income statements.
//
// COMMAND USAGE:
//   stmtgen process [flags]
//
// FLAGS:
//   --dry-run     : Load and generate without writing, storing or archiving
//   --single      : Process only a single file (specify with --file)
//   --file        : Path to a specific file to process (used with --single)
//   --department  : Process only files for a specific department
//   --month       : Generate only the statement for one month (YYYY-MM)
//   --format      : Override the configured output formats
//
// PROCESSING PIPELINE:
//   1. Load department configurations and statement definitions
//   2. Discover ledger exports in the input directory
//   3. Match each file to a department configuration
//   4. For each file (concurrently, up to max_concurrency):
//      a. Load and transform the ledger lines
//      b. Store them in the ledger database
//      c. Generate the statement per month
//      d. Write, publish and archive the reports
//   5. Generate summary and error logs
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/income-statement-generator/internal/config"
	"github.com/ginjaninja78/income-statement-generator/internal/converter"
	"github.com/ginjaninja78/income-statement-generator/internal/publish"
	"github.com/ginjaninja78/income-statement-generator/internal/report"
	"github.com/ginjaninja78/income-statement-generator/internal/validation"
	"github.com/ginjaninja78/income-statement-generator/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun simulates processing without side effects.
var dryRun bool

// singleFile indicates whether to process only a single file.
var singleFile bool

// filePath is the path to a specific file to process (used with --single).
var filePath string

// department filters processing to a specific department.
var department string

// month restricts generation to one month.
var month string

// formats overrides output_formats.
var formats []string

var (
	okMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("✓")
	failMark = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process ledger exports into income statements",
	Long: `The process command scans the input directory for ledger exports (.xlsx,
.xls, .csv), matches them to the appropriate department configuration, and
generates the department's income statement for every month in the file.

Processing is done concurrently. Each file is processed independently, and
errors in one file do not affect the processing of others unless
continue_on_error is false.

On successful processing:
  - One report per month and output format is placed in the output directory
  - The ledger lines are stored in the ledger database
  - The original export is moved to the input archive
  - A summary report is generated

On error:
  - An error log is created in the output directory
  - The original export remains in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Generate statements without writing, storing or archiving anything")
	processCmd.Flags().BoolVar(&singleFile, "single", false, "Process only a single file (use with --file)")
	processCmd.Flags().StringVar(&filePath, "file", "", "Path to a specific file to process (used with --single)")
	processCmd.Flags().StringVar(&department, "department", "", "Process only files for a specific department code")
	processCmd.Flags().StringVar(&month, "month", "", "Generate only the statement for this month (YYYY-MM)")
	processCmd.Flags().StringSliceVar(&formats, "format", nil, "Output formats: xlsx, csv, json (overrides output_formats)")
}

// job pairs an input file with its department.
type job struct {
	path string
	dept *config.DepartmentConfig
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess orchestrates the processing of every discovered file.
func runProcess(ctx context.Context) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Println("=== Income Statement Generator ===")
	fmt.Println("Loading configuration...")

	deptConfigs, err := config.LoadDepartmentConfigs(mainConfig.ConfigsDir)
	if err != nil {
		return fmt.Errorf("failed to load department configs: %w", err)
	}

	definitions, err := loadDefinitions()
	if err != nil {
		return err
	}

	invalid := make(map[*config.DepartmentConfig]error)
	for code, dept := range deptConfigs {
		result := validation.ValidateDepartment(dept, definitions)
		for _, w := range result.Warnings {
			logger.Warn(w.Error())
		}
		if err := result.Err(); err != nil {
			logger.Error("invalid department configuration", "department", code, "err", err)
			invalid[dept] = err
		}
	}

	fmt.Printf("Loaded %d department configuration(s)\n", len(deptConfigs))

	if err := mainConfig.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: DISCOVER AND MATCH INPUT FILES
	// =========================================================================

	fmt.Println("Discovering input files...")

	jobs, unmatched, err := discoverJobs(deptConfigs)
	if err != nil {
		return err
	}

	if len(jobs) == 0 && len(unmatched) == 0 {
		fmt.Println("No ledger files found in the input directory.")
		return nil
	}

	fmt.Printf("Found %d file(s) to process\n", len(jobs)+len(unmatched))

	// =========================================================================
	// STEP 3: SET UP SHARED COLLABORATORS
	// =========================================================================

	opts := []converter.Option{
		converter.WithLogger(logger),
		converter.WithDefinitions(definitions),
		converter.WithDryRun(dryRun),
	}
	if month != "" {
		opts = append(opts, converter.WithMonth(month))
	}
	if len(formats) > 0 {
		for _, f := range formats {
			if _, err := report.Extension(f); err != nil {
				return err
			}
		}
		opts = append(opts, converter.WithFormats(formats...))
	}

	if !dryRun && mainConfig.DatabasePath != "" {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, converter.WithStore(store))
	}

	if !dryRun && mainConfig.Publish.Bucket != "" {
		publisher, err := publish.NewGCSPublisher(ctx, mainConfig.Publish.Bucket, mainConfig.Publish.Prefix)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, converter.WithPublisher(publisher))
	}

	// =========================================================================
	// STEP 4: PROCESS FILES CONCURRENTLY
	// =========================================================================

	fmt.Println("Processing files...")

	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Generating statements...[reset]"),
		progressbar.OptionClearOnFinish(),
	)

	results := make([]converter.Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mainConfig.MaxConcurrency)

	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			defer bar.Add(1)

			if gctx.Err() != nil {
				// An earlier file failed and continue_on_error is off.
				return nil
			}

			if err, bad := invalid[j.dept]; bad {
				results[i] = converter.Result{FilePath: j.path, Department: j.dept.DepartmentCode, Error: err}
			} else {
				results[i] = converter.New(j.path, j.dept, mainConfig, opts...).Run(gctx)
			}

			if !results[i].Success && !mainConfig.ContinueOnError {
				return fmt.Errorf("%s: %w", filepath.Base(j.path), results[i].Error)
			}
			return nil
		})
	}

	groupErr := g.Wait()
	bar.Finish()

	for _, path := range unmatched {
		results = append(results, converter.Result{
			FilePath: path,
			Error:    fmt.Errorf("no matching department configuration found"),
		})
	}

	// =========================================================================
	// STEP 5: COLLECT RESULTS AND GENERATE SUMMARY
	// =========================================================================

	summary := utils.ProcessingSummary{StartTime: startTime}
	var errorEntries []utils.ErrorLogEntry

	for _, result := range results {
		if result.FilePath == "" {
			// Never started because an earlier file failed.
			continue
		}
		summary.TotalFiles++

		name := filepath.Base(result.FilePath)
		if result.Success {
			summary.SuccessfulFiles++
			summary.TotalLines += result.Stats.LinesMatched
			summary.TotalStatements += result.Stats.StatementsGenerated
			summary.TotalReports += result.Stats.ReportsWritten
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   result.FilePath,
				Department:  result.Department,
				OutputFiles: result.OutputFiles,
				ArchivePath: result.ArchivePath,
				Lines:       result.Stats.LinesMatched,
				Statements:  result.Stats.StatementsGenerated,
				ProcessTime: result.Stats.ProcessingTime,
			})

			outputs := make([]string, len(result.OutputFiles))
			for i, out := range result.OutputFiles {
				outputs[i] = filepath.Base(out)
			}
			if dryRun {
				outputs = []string{fmt.Sprintf("%d statement(s), dry run", result.Stats.StatementsGenerated)}
			}
			fmt.Printf("  %s %s -> %s\n", okMark, name, strings.Join(outputs, ", "))
			continue
		}

		summary.FailedFiles++
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    result.FilePath,
			ErrorMessage: fmt.Sprint(result.Error),
			ErrorType:    "ProcessingError",
		})
		errorEntries = append(errorEntries, utils.ErrorLogEntry{
			Timestamp:    time.Now(),
			FileName:     name,
			Department:   result.Department,
			ErrorType:    "ProcessingError",
			ErrorMessage: fmt.Sprint(result.Error),
		})
		fmt.Printf("  %s %s: %v\n", failMark, name, result.Error)
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 6: PRINT SUMMARY AND WRITE LOGS
	// =========================================================================

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Statements:      %d\n", summary.TotalStatements)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(startTime).Round(time.Millisecond))

	if !dryRun {
		if path, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir); err != nil {
			logger.Warn("failed to write summary log", "err", err)
		} else {
			logger.Debug("wrote summary log", "path", path)
		}

		if path, err := utils.WriteErrorLog(errorEntries, mainConfig.OutputDir); err != nil {
			logger.Warn("failed to write error log", "err", err)
		} else if path != "" {
			fmt.Printf("\nErrors have been logged to %s\n", path)
		}

		pruneArchives()
	}

	if groupErr != nil {
		return groupErr
	}
	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// discoverJobs lists the files to process and the department of each.
// Files that match no department are returned separately.
func discoverJobs(deptConfigs map[string]*config.DepartmentConfig) ([]job, []string, error) {
	var only *config.DepartmentConfig
	if department != "" {
		dept, err := config.FindDepartment(deptConfigs, department)
		if err != nil {
			return nil, nil, err
		}
		only = dept
	}

	var files []string
	if singleFile {
		if filePath == "" {
			return nil, nil, fmt.Errorf("--single requires --file")
		}
		if !utils.FileExists(filePath) {
			return nil, nil, fmt.Errorf("file not found: %s", filePath)
		}
		files = []string{filePath}
	} else {
		fm := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
		found, err := fm.DiscoverInputFiles("")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to discover input files: %w", err)
		}
		files = found
	}

	var (
		jobs      []job
		unmatched []string
	)
	for _, path := range files {
		// A single file named on the command line may be processed for an
		// explicit department even when no pattern matches it.
		if singleFile && only != nil {
			jobs = append(jobs, job{path: path, dept: only})
			continue
		}

		dept, ok := config.MatchDepartment(deptConfigs, path)
		switch {
		case !ok && only == nil:
			unmatched = append(unmatched, path)
		case !ok:
			continue
		case only != nil && dept != only:
			continue
		default:
			jobs = append(jobs, job{path: path, dept: dept})
		}
	}

	return jobs, unmatched, nil
}

// pruneArchives removes archived files past the retention period.
func pruneArchives() {
	if mainConfig.ArchiveRetentionDays <= 0 {
		return
	}
	maxAge := time.Duration(mainConfig.ArchiveRetentionDays) * 24 * time.Hour

	for _, dir := range []string{mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir} {
		removed, err := utils.CleanOldArchives(dir, maxAge)
		if err != nil {
			logger.Warn("failed to clean archive", "dir", dir, "err", err)
			continue
		}
		if removed > 0 {
			logger.Info("cleaned archive", "dir", dir, "removed", removed)
		}
	}
}
