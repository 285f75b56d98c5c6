package cmd

import (
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vistet.dev/pkg/devtask/internal/domain"
)

var watchDebounceFlag int64

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [lint|check|check-comments] [paths...]",
		Short: "Rerun a read-only task whenever a source file changes",
		Long: `Watch the target directories and rerun lint (the default), check or
check-comments after each change. Runs never overlap; changes made during a
run trigger one more run. Press Ctrl-C to stop.

` + pathPatternsHelp,
		ValidArgs: domain.WatchableOperations(),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation, args := watchOperation(cmd.ValidArgs, args)

			runArgs, err := operationArgs(operation, args)
			if err != nil {
				return err
			}

			return workflow.Watch(cmd.Context(), domain.WatchArgs{
				RunArgs:  runArgs,
				Rules:    commentRulesFromConfig(),
				Debounce: watchDebounce(),
			})
		},
	}

	cmd.Flags().Int64Var(&watchDebounceFlag, debounceFlagName, viper.GetInt64(debounceConfigKey), "milliseconds to wait for changes to settle")
	bindFlagToConfig(cmd.Flags().Lookup(debounceFlagName), debounceConfigKey)

	return cmd
}

// watchOperation splits an optional leading operation from the targets. A
// first argument that names no watchable operation is a target.
func watchOperation(operations, args []string) (string, []string) {
	if len(args) > 0 && slices.Contains(operations, args[0]) {
		return args[0], args[1:]
	}

	return domain.OpLint, args
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
