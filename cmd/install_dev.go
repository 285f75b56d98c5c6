package cmd

import (
	"github.com/spf13/cobra"

	"vistet.dev/pkg/devtask/internal/domain"
)

// installDevCmd represents the install-dev command.
var installDevCmd = newInstallDevCmd()

func newInstallDevCmd() *cobra.Command {
	return &cobra.Command{
		Use:   domain.OpInstallDev,
		Short: "Install development dependencies",
		Long: `Run the configured installer (tools.installer, by default
"pip install -r requirements.txt"). Its exit code becomes devtask's.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runArgs, err := operationArgs(domain.OpInstallDev, nil)
			if err != nil {
				return err
			}

			return workflow.Run(cmd.Context(), runArgs)
		},
	}
}

func init() {
	rootCmd.AddCommand(installDevCmd)
}
