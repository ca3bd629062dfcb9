// =============================================================================
// Income Statement Generator - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the configuration
// without processing any file.
//
// COMMAND USAGE:
//   stmtgen validate [--log FILE]
//
// CHECKS:
//   1. The main configuration loads (done by the root command)
//   2. Every department configuration loads and is consistent
//   3. Every statement definition, built-in and custom, is well-formed
//
// The command exits non-zero when any error is found. Warnings are printed
// but do not fail validation.
//
// =============================================================================

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/income-statement-generator/internal/config"
	"github.com/ginjaninja78/income-statement-generator/internal/validation"
)

var validateLog string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and statement definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		deptConfigs, err := config.LoadDepartmentConfigs(mainConfig.ConfigsDir)
		if err != nil {
			return fmt.Errorf("failed to load department configs: %w", err)
		}

		definitions, err := loadDefinitions()
		if err != nil {
			return err
		}

		var results []*validation.ValidationResult

		codes := make([]string, 0, len(deptConfigs))
		for code := range deptConfigs {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			results = append(results, validation.ValidateDepartment(deptConfigs[code], definitions))
		}

		for _, name := range definitions.Names() {
			def, err := definitions.Lookup(name)
			if err != nil {
				return err
			}
			results = append(results, validation.ValidateDefinition(name, def))
		}

		var (
			issues   []*validation.ValidationError
			errCount int
		)
		for _, r := range results {
			status := okMark
			if !r.IsValid() {
				status = failMark
			}
			fmt.Printf("  %s %s (%d error(s), %d warning(s))\n", status, r.Source, len(r.Errors), len(r.Warnings))

			issues = append(issues, r.Issues()...)
			errCount += len(r.Errors)
		}

		fmt.Println()
		fmt.Println(validation.FormatErrors(issues))

		if validateLog != "" {
			if err := validation.WriteErrorLog(issues, validateLog); err != nil {
				return err
			}
			logger.Info("wrote validation log", "path", validateLog)
		}

		if errCount > 0 {
			return fmt.Errorf("validation failed with %d error(s)", errCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateLog, "log", "", "Also write the issues to this file")
}
