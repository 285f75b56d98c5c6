package cmd

import (
	"github.com/spf13/cobra"

	"vistet.dev/pkg/devtask/internal/domain"
)

// checkCmd represents the check command.
var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	return newOperationCmd(
		domain.OpCheck,
		"Run every read-only check and report all failures",
		`Run the linter, the import-order check and the format check. Unlike lint,
every step runs even after a failure, so one run shows every problem.
A missing tool still stops the run.`,
	)
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
