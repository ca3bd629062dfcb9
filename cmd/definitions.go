// =============================================================================
// Income Statement Generator - Definitions Command
// =============================================================================
//
// This file defines the 'definitions' command, which lists and prints the
// statement definitions.
//
// COMMAND USAGE:
//   stmtgen definitions list
//   stmtgen definitions show NAME
//
// 'show' prints the definition as YAML. Saving that output to
// definitions_dir/<name>.yaml is the usual way to start a custom layout.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/income-statement-generator/internal/statement"
)

var definitionsCmd = &cobra.Command{
	Use:   "definitions",
	Short: "List and print statement definitions",
}

var definitionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available statement definitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		definitions, err := loadDefinitions()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, name := range definitions.Names() {
			source := "built-in"
			if _, custom := definitions.Custom[name]; custom {
				source = "custom"
				if _, builtin := statement.Builtin(name); builtin {
					source = "custom, replaces built-in"
				}
			}
			fmt.Fprintf(out, "%-20s %s\n", name, source)
		}
		return nil
	},
}

var definitionsShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a statement definition as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		definitions, err := loadDefinitions()
		if err != nil {
			return err
		}

		def, err := definitions.Lookup(args[0])
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(def); err != nil {
			return fmt.Errorf("failed to encode definition: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(definitionsCmd)
	definitionsCmd.AddCommand(definitionsListCmd)
	definitionsCmd.AddCommand(definitionsShowCmd)
}
