package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vistet.dev/pkg/devtask/internal/domain"
)

const maxMatchesFlagName = "max-matches"

var maxMatchesFlag int

// checkCommentsCmd represents the check-comments command.
var checkCommentsCmd = newCheckCommentsCmd()

func newCheckCommentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   domain.OpCheckComments + " [paths...]",
		Short: "Look for commented-out code",
		Long: `Scan source files for lines that look like commented-out code: a comment
marker directly followed by a letter ("#print(x)"), but not a prose comment
("# explain") or a tool directive ("#noqa"). Findings are advisory and never
change the exit code.

` + pathPatternsHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.CheckComments(cmd.Context(), domain.CommentArgs{
				SourceArgs: sourceArgs(args),
				Rules:      commentRulesFromConfig(),
			})
		},
	}

	cmd.Flags().IntVar(&maxMatchesFlag, maxMatchesFlagName, viper.GetInt(commentMaxMatchesKey), "maximum number of matches to print")
	bindFlagToConfig(cmd.Flags().Lookup(maxMatchesFlagName), commentMaxMatchesKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(checkCommentsCmd)
}
