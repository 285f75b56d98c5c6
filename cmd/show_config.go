package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command.
var configCmd = newConfigCmd()

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration devtask would use, after merging defaults,
devtask.yaml, DEVTASK_* environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := yaml.Marshal(viper.AllSettings())
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			source := "defaults"
			if path := viper.ConfigFileUsed(); path != "" {
				if _, err := os.Stat(path); err == nil {
					source = path
				}
			}

			cmd.Printf("# source: %s\n%s", source, out)

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
}
