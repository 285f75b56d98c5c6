package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vistet.dev/pkg/devtask/internal/domain"
)

// newOperationCmd builds a command that runs one of the named operations
// over the given targets.
func newOperationCmd(operation, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   operation + " [paths...]",
		Short: short,
		Long:  long + "\n\n" + pathPatternsHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			runArgs, err := operationArgs(operation, args)
			if err != nil {
				return err
			}

			return workflow.Run(cmd.Context(), runArgs)
		},
	}
}

// operationArgs assembles RunArgs from positional targets, flags and config.
func operationArgs(operation string, args []string) (domain.RunArgs, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return domain.RunArgs{}, fmt.Errorf("resolve working directory: %w", err)
	}

	return domain.RunArgs{
		SourceArgs:  sourceArgs(args),
		Operation:   operation,
		Tools:       toolsetFromConfig(),
		WorkDir:     workDir,
		DryRun:      dryRunFlag,
		StepTimeout: stepTimeout(),
	}, nil
}
