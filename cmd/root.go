// =============================================================================
// Income Statement Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (stmtgen)
//   ├── processCmd     (stmtgen process)
//   ├── ingestCmd      (stmtgen ingest)
//   ├── reportCmd      (stmtgen report)
//   ├── validateCmd    (stmtgen validate)
//   ├── definitionsCmd (stmtgen definitions list|show)
//   └── versionCmd     (stmtgen version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose, --log-format)
//   2. Loading the main configuration (viper + STMTGEN_* environment)
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/income-statement-generator/internal/config"
	"github.com/ginjaninja78/income-statement-generator/internal/logging"
	"github.com/ginjaninja78/income-statement-generator/internal/statement"
	"github.com/ginjaninja78/income-statement-generator/internal/storage"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// Empty searches the working directory for config.yaml.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// logFormat overrides the configured log format.
var logFormat string

// mainConfig and logger are set up by PersistentPreRunE for every command
// that needs configuration.
var (
	mainConfig *config.MainConfig
	logger     *log.Logger
	logCloser  io.Closer
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stmtgen",
	Short: "Income Statement Generator - Build departmental income statements from ledger exports",
	Long: `Income Statement Generator turns flat general-ledger exports into
hierarchical income statements with revenues, deductions, expenses and the
totals between them.

Key Features:
  - Built-in hospital and department statement layouts, plus YAML definitions
  - Department configuration by cost center
  - .xlsx, .xls and .csv ledger exports
  - XLSX, CSV and JSON reports, or a rendered statement in the terminal
  - SQLite ledger store for reporting across runs
  - Concurrent processing with automatic archival

Example Usage:
  stmtgen process                                # Process all files in the input directory
  stmtgen report --department IMG --month 2023-06
  stmtgen validate                               # Validate configuration and definitions`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: initApp,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
// SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeLog()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the main configuration file (default is ./config.yaml)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)

	rootCmd.PersistentFlags().StringVar(
		&logFormat,
		"log-format",
		"",
		"Log format: text, logfmt or json (overrides log_format)",
	)
}

// skipConfig marks commands that run without configuration.
const skipConfig = "skip-config"

// initApp loads the main configuration and builds the logger.
func initApp(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	format := cfg.LogFormat
	if logFormat != "" {
		format = logFormat
	}

	l, closer, err := logging.New(logging.Config{
		Level:  level,
		Format: format,
		File:   cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	closeLog()
	mainConfig = cfg
	logger = l
	logCloser = closer

	logger.Debug("configuration loaded", "config", cfgFile, "configs_dir", cfg.ConfigsDir)
	return nil
}

// closeLog closes the log file opened by initApp.
func closeLog() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadDefinitions loads the custom statement definitions.
func loadDefinitions() (*statement.Set, error) {
	defs, err := statement.NewSet(mainConfig.DefinitionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load definitions: %w", err)
	}
	return defs, nil
}

// openStore opens the ledger store.
func openStore() (*storage.SQLiteRepository, error) {
	if mainConfig.DatabasePath == "" {
		return nil, fmt.Errorf("database_path is not configured")
	}
	repo, err := storage.NewSQLiteRepository(mainConfig.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %w", err)
	}
	return repo, nil
}
