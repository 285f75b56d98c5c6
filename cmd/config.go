package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"vistet.dev/pkg/devtask/internal/adapter"
	"vistet.dev/pkg/devtask/internal/domain"
	m "vistet.dev/pkg/devtask/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "devtask"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	dirFlagName         = "dir"
	excludeFlagName     = "exclude"
	dryRunFlagName      = "dry-run"
	verboseFlagName     = "verbose"
	logFileFlagName     = "log-file"
	noColorFlagName     = "no-color"
	runParallelFlagName = "parallel"
	stepTimeoutFlagName = "step-timeout"
	diffFlagName        = "diff"
	debounceFlagName    = "debounce"

	targetsConfigKey    = "paths.targets"
	excludeConfigKey    = "paths.exclude"
	extensionsConfigKey = "paths.extensions"
	skipDirsConfigKey   = "paths.skip_dirs"

	toolsConfigKey     = "tools"
	linterConfigKey    = toolsConfigKey + ".linter"
	sorterConfigKey    = toolsConfigKey + ".sorter"
	formatterConfigKey = toolsConfigKey + ".formatter"
	installerConfigKey = toolsConfigKey + ".installer"

	runParallelConfigKey = "run.parallel"
	stepTimeoutConfigKey = "run.step_timeout"
	debounceConfigKey    = "watch.debounce_ms"
	noColorConfigKey     = "output.no_color"

	commentPatternKey    = "comments.pattern"
	commentExemptKey     = "comments.exempt"
	commentMaxMatchesKey = "comments.max_matches"

	defaultRunParallel = 1
	defaultStepTimeout = 0
	defaultNoColor     = false

	envPrefix = "DEVTASK"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".devtask.log"
	defaultLogLevel      = "info"
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var (
	defaultExtensions = []string{".py"}
	defaultSkipDirs   = []string{
		".git", "venv", ".venv", "env", "node_modules",
		"__pycache__", ".tox", "build", "dist", ".mypy_cache",
	}
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(targetsConfigKey, []string{string(domain.DefaultTarget)})
	viper.SetDefault(excludeConfigKey, []string{})
	viper.SetDefault(extensionsConfigKey, defaultExtensions)
	viper.SetDefault(skipDirsConfigKey, defaultSkipDirs)

	tools := domain.DefaultToolset()
	setToolDefaults(linterConfigKey, tools.Linter)
	setToolDefaults(sorterConfigKey, tools.Sorter)
	setToolDefaults(formatterConfigKey, tools.Formatter)
	setToolDefaults(installerConfigKey, tools.Installer)

	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(stepTimeoutConfigKey, defaultStepTimeout)
	viper.SetDefault(debounceConfigKey, domain.DefaultDebounce.Milliseconds())
	viper.SetDefault(noColorConfigKey, defaultNoColor)

	rules := domain.DefaultCommentRules()
	viper.SetDefault(commentPatternKey, rules.Pattern)
	viper.SetDefault(commentExemptKey, rules.Exempt)
	viper.SetDefault(commentMaxMatchesKey, rules.MaxMatches)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	_ = loadConfig()
}

// setToolDefaults registers one default per leaf key so a config file that
// overrides a single field keeps the remaining defaults.
func setToolDefaults(key string, tool m.Tool) {
	viper.SetDefault(key+".name", tool.Name)
	viper.SetDefault(key+".command", tool.Command)
	viper.SetDefault(key+".check_args", nonNil(tool.CheckArgs))
	viper.SetDefault(key+".write_args", nonNil(tool.WriteArgs))
}

func nonNil(args []string) []string {
	if args == nil {
		return []string{}
	}

	return args
}

// loadConfig reads devtask.yaml from the current directory. A missing file is
// not an error.
func loadConfig() error {
	err := viper.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		// Drop settings read from a previous working directory.
		return viper.ReadConfig(strings.NewReader(""))
	}

	return fmt.Errorf("read %s: %w", configFileName, err)
}

func toolFromConfig(key string) m.Tool {
	return m.Tool{
		Name:      viper.GetString(key + ".name"),
		Command:   viper.GetString(key + ".command"),
		CheckArgs: viper.GetStringSlice(key + ".check_args"),
		WriteArgs: viper.GetStringSlice(key + ".write_args"),
	}
}

func toolsetFromConfig() domain.Toolset {
	return domain.Toolset{
		Linter:    toolFromConfig(linterConfigKey),
		Sorter:    toolFromConfig(sorterConfigKey),
		Formatter: toolFromConfig(formatterConfigKey),
		Installer: toolFromConfig(installerConfigKey),
	}
}

func sourceFilterFromConfig() adapter.SourceFilter {
	return adapter.SourceFilter{
		Extensions: viper.GetStringSlice(extensionsConfigKey),
		SkipDirs:   viper.GetStringSlice(skipDirsConfigKey),
		Exclude:    viper.GetStringSlice(excludeConfigKey),
	}
}

func commentRulesFromConfig() domain.CommentRules {
	return domain.CommentRules{
		Pattern:    viper.GetString(commentPatternKey),
		Exempt:     viper.GetStringSlice(commentExemptKey),
		MaxMatches: viper.GetInt(commentMaxMatchesKey),
	}
}

// sourceArgs resolves positional targets against the configured defaults.
func sourceArgs(args []string) domain.SourceArgs {
	if len(args) == 0 {
		args = viper.GetStringSlice(targetsConfigKey)
	}

	return domain.SourceArgs{
		Targets:  parsePaths(args),
		Filter:   sourceFilterFromConfig(),
		Parallel: viper.GetInt(runParallelConfigKey),
	}
}

func stepTimeout() time.Duration {
	return time.Duration(viper.GetInt64(stepTimeoutConfigKey)) * time.Second
}

func watchDebounce() time.Duration {
	return time.Duration(viper.GetInt64(debounceConfigKey)) * time.Millisecond
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at the configured level; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
