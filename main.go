// =============================================================================
// Income Statement Generator - Main Entry Point
// =============================================================================
//
// This is the main entry point for the stmtgen CLI application. It
// delegates command execution to the cmd package.
//
// USAGE:
//   stmtgen process       - Generate statements for every file in the input directory
//   stmtgen ingest        - Load ledger exports into the ledger database
//   stmtgen report        - Generate a statement from the ledger database
//   stmtgen validate      - Validate configuration files and definitions
//   stmtgen definitions   - List and print statement definitions
//   stmtgen version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core business logic (not for external import)
//   - pkg/           : Shared utilities
//   - configs/       : Department-specific YAML configurations
//   - definitions/   : Custom statement definitions
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/income-statement-generator/cmd"
)

func main() {
	cmd.Execute()
}
