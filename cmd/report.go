// =============================================================================
// Income Statement Generator - Report Command
// =============================================================================
//
// This file defines the 'report' command, which builds a department's
// statement from the ledger database.
//
// COMMAND USAGE:
//   stmtgen report --department IMG [--month 2023-06] [--output FILE]
//
// Without --output the statement is rendered to the terminal. With --output
// the format follows --format or the file extension.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/income-statement-generator/internal/config"
	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
	"github.com/ginjaninja78/income-statement-generator/internal/report"
	"github.com/ginjaninja78/income-statement-generator/internal/statement"
	"github.com/ginjaninja78/income-statement-generator/internal/storage"
	"github.com/ginjaninja78/income-statement-generator/internal/validation"
)

var (
	reportDepartment string
	reportMonth      string
	reportStatement  string
	reportOutput     string
	reportFormat     string
	reportNoYTD      bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a department statement from the ledger database",
	Long: `The report command selects the stored ledger lines of a department's cost
centers for one month, generates the department's statement and renders it.

The month defaults to the latest month in the database. --statement
overrides the department's statement definition.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		deptConfigs, err := config.LoadDepartmentConfigs(mainConfig.ConfigsDir)
		if err != nil {
			return fmt.Errorf("failed to load department configs: %w", err)
		}
		dept, err := config.FindDepartment(deptConfigs, reportDepartment)
		if err != nil {
			return err
		}
		if reportStatement != "" {
			override := *dept
			override.Statement = reportStatement
			dept = &override
		}

		definitions, err := loadDefinitions()
		if err != nil {
			return err
		}
		def, err := definitionFor(dept, definitions)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		month := reportMonth
		if month == "" {
			months, err := store.Months(ctx, ledger.Filter{CostCenters: dept.CostCenters})
			if err != nil {
				return err
			}
			if len(months) == 0 {
				return fmt.Errorf("%w for department %s", storage.ErrNoLines, dept.DepartmentCode)
			}
			month = months[0]
		} else if month, err = ledger.NormalizeMonth(month); err != nil {
			return err
		}

		lines, err := store.Lines(ctx, ledger.Filter{Month: month, CostCenters: dept.CostCenters})
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w for department %s in %s", storage.ErrNoLines, dept.DepartmentCode, month)
		}

		rows := statement.GenerateWithOptions(lines, def, statement.Options{BoundaryMatch: mainConfig.StrictPrefixMatch})
		opts := report.Options{
			Title:      dept.DepartmentName,
			Month:      month,
			IncludeYTD: !reportNoYTD && ledger.HasYTD(lines),
		}
		logger.Debug("generated statement", "department", dept.DepartmentCode, "month", month, "rows", len(rows))

		if reportOutput == "" {
			return report.Render(cmd.OutOrStdout(), rows, opts)
		}
		return writeReportFile(cmd.OutOrStdout(), reportOutput, reportFormat, rows, opts)
	},
}

// definitionFor resolves and validates the statement of a department.
func definitionFor(dept *config.DepartmentConfig, definitions *statement.Set) (statement.Definition, error) {
	def, err := definitions.Lookup(dept.Statement)
	if err != nil {
		return nil, err
	}
	result := validation.ValidateDefinition(dept.Statement, def)
	for _, w := range result.Warnings {
		logger.Debug(w.Error())
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return def, nil
}

// writeReportFile writes rows to path and reports it on out. An empty
// format is taken from the file extension.
func writeReportFile(out io.Writer, path, format string, rows []statement.Row, opts report.Options) error {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	if _, err := report.Extension(format); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := report.Write(format, file, rows, opts); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s wrote %s\n", okMark, path)
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportDepartment, "department", "d", "", "Department code (required)")
	reportCmd.Flags().StringVarP(&reportMonth, "month", "m", "", "Statement month, YYYY-MM (default: latest stored month)")
	reportCmd.Flags().StringVar(&reportStatement, "statement", "", "Statement definition (overrides the department's)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the statement to this file instead of the terminal")
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "Output format for --output: xlsx, csv, json (default: from extension)")
	reportCmd.Flags().BoolVar(&reportNoYTD, "no-ytd", false, "Leave out the year-to-date columns")

	_ = reportCmd.MarkFlagRequired("department")
}
