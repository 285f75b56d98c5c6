// Package cmd provides the root command and CLI setup for devtask.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vistet.dev/pkg/devtask/internal/adapter"
	"vistet.dev/pkg/devtask/internal/controller"
	"vistet.dev/pkg/devtask/internal/domain"
	m "vistet.dev/pkg/devtask/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var toolAdapter adapter.ToolRunnerAdapter
var watcherAdapter adapter.WatcherAdapter
var orchestrator domain.Orchestrator
var workflow domain.Workflow
var ui *controller.SimpleUI

// dirFlag is the directory devtask switches to before doing anything else.
var dirFlag string

// excludePatterns is a root-level flag that filters files for applicable commands.
var excludePatterns []string

// dryRunFlag prints an operation's plan instead of running it.
var dryRunFlag bool

var verboseFlag bool
var logFileFlag string
var noColorFlag bool
var parallelFlag int
var stepTimeoutFlag int64

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	toolAdapter = adapter.NewLocalToolRunnerAdapter()
	watcherAdapter = adapter.NewFSNotifyWatcherAdapter()
	orchestrator = domain.NewOrchestrator(fsAdapter, toolAdapter, ui)
	workflow = domain.NewWorkflow(
		fsAdapter,
		watcherAdapter,
		ui,
		orchestrator,
	)
}

const pathPatternsHelp = `Targets default to paths.targets from devtask.yaml (".").
Supported forms:
  - .              the whole project, recursively
  - ./app/...      the app directory, recursively
  - app tests      several directories
  - manage.py      a single file`

const rootLongDescription = `devtask runs the project's code quality tasks: linting, import sorting,
formatting, trailing whitespace cleanup and a commented-out code check.

Each task is an ordered list of steps. Read-only tasks (lint, check) never
modify files; format and fix rewrite them in place.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "devtask",
		Short:             "Code quality task runner",
		Long:              rootLongDescription,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: prepareCommand,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&dirFlag, dirFlagName, "C", "", "run as if devtask was started in this directory")

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().BoolVar(&dryRunFlag, dryRunFlagName, false, "print the steps without running them")

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)

	cmd.PersistentFlags().BoolVar(&noColorFlag, noColorFlagName, viper.GetBool(noColorConfigKey), "disable colored output")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(noColorFlagName), noColorConfigKey)

	cmd.PersistentFlags().IntVarP(&parallelFlag, runParallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of files processed concurrently by in-process passes")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(runParallelFlagName), runParallelConfigKey)

	cmd.PersistentFlags().Int64Var(&stepTimeoutFlag, stepTimeoutFlagName, viper.GetInt64(stepTimeoutConfigKey), "seconds before a tool is killed (0 = no limit)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(stepTimeoutFlagName), stepTimeoutConfigKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// prepareCommand switches directory, reloads devtask.yaml and sets up logging
// and colors before any subcommand runs.
func prepareCommand(cmd *cobra.Command, _ []string) error {
	if dirFlag != "" {
		if err := os.Chdir(dirFlag); err != nil {
			return fmt.Errorf("change directory: %w", err)
		}
	}

	if err := loadConfig(); err != nil {
		return err
	}

	configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))

	ui.Attach(cmd)
	ui.EnableColor(!viper.GetBool(noColorConfigKey) && controller.IsTTY(os.Stdout))

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		if rootCmd.SilenceErrors && !isStepError(err) {
			rootCmd.PrintErrln("Error:", err)
		}

		os.Exit(exitCode(err))
	}
}

func isStepError(err error) bool {
	var stepErr *domain.StepError
	return errors.As(err, &stepErr)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var stepErr *domain.StepError
	if errors.As(err, &stepErr) {
		return stepErr.ExitCode()
	}

	if errors.Is(err, context.Canceled) {
		return domain.ExitCodeInterrupted
	}

	return 1
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
