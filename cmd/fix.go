package cmd

import (
	"github.com/spf13/cobra"

	"vistet.dev/pkg/devtask/internal/domain"
)

var fixDiffFlag bool

// fixCmd represents the fix command.
var fixCmd = newFixCmd()

func newFixCmd() *cobra.Command {
	cmd := newOperationCmd(
		domain.OpFix,
		"Sort imports, format code and strip trailing whitespace",
		`Apply every automatic fix: sort imports, reformat, then remove trailing
whitespace from each source file. Each step only runs when the previous one
succeeded.`,
	)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		runArgs, err := operationArgs(domain.OpFix, args)
		if err != nil {
			return err
		}

		runArgs.ShowDiff = fixDiffFlag

		return workflow.Run(cmd.Context(), runArgs)
	}

	cmd.Flags().BoolVar(&fixDiffFlag, diffFlagName, false, "print a unified diff of the whitespace changes")

	return cmd
}

func init() {
	rootCmd.AddCommand(fixCmd)
}
