package cmd

import (
	"github.com/spf13/cobra"

	"vistet.dev/pkg/devtask/internal/domain"
)

// lintCmd represents the lint command.
var lintCmd = newLintCmd()

func newLintCmd() *cobra.Command {
	return newOperationCmd(
		domain.OpLint,
		"Check style, import order and formatting without changing files",
		`Run the linter, the import-order check and the format check, in that order.
The first failing step stops the run and its exit code becomes devtask's.`,
	)
}

func init() {
	rootCmd.AddCommand(lintCmd)
}
