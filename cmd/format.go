package cmd

import (
	"github.com/spf13/cobra"

	"vistet.dev/pkg/devtask/internal/domain"
)

// formatCmd represents the format command.
var formatCmd = newFormatCmd()

func newFormatCmd() *cobra.Command {
	return newOperationCmd(
		domain.OpFormat,
		"Sort imports, then format code in place",
		`Sort imports, then reformat the code. The formatter only runs when the
import sort succeeded.`,
	)
}

func init() {
	rootCmd.AddCommand(formatCmd)
}
