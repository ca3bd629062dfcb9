// =============================================================================
// Income Statement Generator - Ingest Command
// =============================================================================
//
// This file defines the 'ingest' command, which loads ledger exports into
// the ledger database without generating any statement. Statements can then
// be produced from the database with 'stmtgen report'.
//
// COMMAND USAGE:
//   stmtgen ingest FILE... [--department CODE]
//
// Re-ingesting a month replaces every stored line of that month.
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/income-statement-generator/internal/config"
	"github.com/ginjaninja78/income-statement-generator/internal/converter"
	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
)

var ingestDepartment string

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Load ledger exports into the ledger database",
	Long: `The ingest command reads ledger exports (.xlsx, .xls, .csv) and stores their
lines in the ledger database configured by database_path.

The file layout (columns, sheet, CSV settings, transformation rules) is taken
from the department whose file_matching_patterns match the file, or from
--department. Files matching no department are read with the standard
export layout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deptConfigs, err := config.LoadDepartmentConfigs(mainConfig.ConfigsDir)
		if err != nil {
			return fmt.Errorf("failed to load department configs: %w", err)
		}

		var forced *config.DepartmentConfig
		if ingestDepartment != "" {
			if forced, err = config.FindDepartment(deptConfigs, ingestDepartment); err != nil {
				return err
			}
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		for _, path := range args {
			dept := forced
			if dept == nil {
				var ok bool
				if dept, ok = config.MatchDepartment(deptConfigs, path); !ok {
					dept = config.NewDepartmentConfig("")
				}
			}

			lines, err := converter.LoadLedger(path, dept)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
			if len(lines) == 0 {
				logger.Warn("no ledger lines found", "file", path)
				continue
			}

			replaced, err := store.ReplaceMonths(cmd.Context(), lines)
			if err != nil {
				return fmt.Errorf("failed to store %s: %w", path, err)
			}

			logger.Info("ingested ledger file",
				"file", filepath.Base(path),
				"lines", len(lines),
				"months", ledger.Months(lines),
				"replaced", replaced)
			fmt.Printf("  %s %s: %d line(s)\n", okMark, filepath.Base(path), len(lines))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestDepartment, "department", "", "Read files with this department's layout")
}
