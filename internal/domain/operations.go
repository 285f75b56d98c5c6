package domain

import (
	"fmt"
	"sort"
	"strings"

	m "vistet.dev/pkg/devtask/internal/model"
)

// Operation names understood by BuildOperation.
const (
	OpLint          = "lint"
	OpFormat        = "format"
	OpCheck         = "check"
	OpFix           = "fix"
	OpInstallDev    = "install-dev"
	OpCheckComments = "check-comments"
)

// Toolset holds the external tools the operations are composed of.
type Toolset struct {
	Linter    m.Tool `mapstructure:"linter" yaml:"linter"`
	Sorter    m.Tool `mapstructure:"sorter" yaml:"sorter"`
	Formatter m.Tool `mapstructure:"formatter" yaml:"formatter"`
	Installer m.Tool `mapstructure:"installer" yaml:"installer"`
}

// DefaultToolset returns the flake8/isort/black toolchain and a pip installer.
func DefaultToolset() Toolset {
	return Toolset{
		Linter: m.Tool{
			Name:    "flake8",
			Command: "flake8",
		},
		Sorter: m.Tool{
			Name:      "isort",
			Command:   "isort",
			CheckArgs: []string{"--check-only", "--diff"},
		},
		Formatter: m.Tool{
			Name:      "black",
			Command:   "black",
			CheckArgs: []string{"--check"},
		},
		Installer: m.Tool{
			Name:      "pip",
			Command:   "pip",
			WriteArgs: []string{"install", "-r", "requirements.txt"},
		},
	}
}

type operationBuilder func(tools Toolset, targets []m.Path) m.Operation

var operationBuilders = map[string]operationBuilder{
	OpLint:       buildLint,
	OpFormat:     buildFormat,
	OpCheck:      buildCheck,
	OpFix:        buildFix,
	OpInstallDev: buildInstallDev,
}

// OperationNames lists the operations BuildOperation accepts, sorted.
func OperationNames() []string {
	names := make([]string, 0, len(operationBuilders))
	for name := range operationBuilders {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// BuildOperation returns the ordered step list and policy for the named operation.
func BuildOperation(name string, tools Toolset, targets []m.Path) (m.Operation, error) {
	build, ok := operationBuilders[name]
	if !ok {
		return m.Operation{}, fmt.Errorf("%w: %s (want one of %s)", ErrUnknownOperation, name, strings.Join(OperationNames(), ", "))
	}

	return build(tools, targets), nil
}

func toolStep(banner string, tool m.Tool, mode m.ToolMode, targets []m.Path) m.Step {
	return m.Step{
		Name:   tool.DisplayName(),
		Banner: fmt.Sprintf(banner, tool.DisplayName()),
		Kind:   m.StepTool,
		Invocation: m.Invocation{
			Tool:    tool,
			Mode:    mode,
			Targets: targets,
		},
	}
}

func readOnlySteps(tools Toolset, targets []m.Path) []m.Step {
	return []m.Step{
		toolStep("🔍 Running %s...", tools.Linter, m.ModeCheck, targets),
		toolStep("📦 Checking imports with %s...", tools.Sorter, m.ModeCheck, targets),
		toolStep("🎨 Checking formatting with %s...", tools.Formatter, m.ModeCheck, targets),
	}
}

func writeSteps(tools Toolset, targets []m.Path) []m.Step {
	return []m.Step{
		toolStep("📦 Sorting imports with %s...", tools.Sorter, m.ModeWrite, targets),
		toolStep("🎨 Formatting code with %s...", tools.Formatter, m.ModeWrite, targets),
	}
}

func buildLint(tools Toolset, targets []m.Path) m.Operation {
	return m.Operation{
		Name:           OpLint,
		Short:          "Check style, import order and formatting (stops at the first failure)",
		Policy:         m.FailFast,
		Steps:          readOnlySteps(tools, targets),
		SuccessMessage: "All checks passed!",
	}
}

func buildCheck(tools Toolset, targets []m.Path) m.Operation {
	return m.Operation{
		Name:           OpCheck,
		Short:          "Run every read-only check and report all failures",
		Policy:         m.RunAll,
		Steps:          readOnlySteps(tools, targets),
		SuccessMessage: "All checks passed!",
	}
}

func buildFormat(tools Toolset, targets []m.Path) m.Operation {
	return m.Operation{
		Name:           OpFormat,
		Short:          "Sort imports, then format code",
		Policy:         m.FailFast,
		Mutates:        true,
		Steps:          writeSteps(tools, targets),
		SuccessMessage: "Code formatted!",
	}
}

func buildFix(tools Toolset, targets []m.Path) m.Operation {
	steps := writeSteps(tools, targets)
	steps = append(steps, m.Step{
		Name:    "whitespace",
		Banner:  "🧹 Removing trailing whitespace...",
		Kind:    m.StepBuiltin,
		Builtin: m.BuiltinStripWhitespace,
	})

	return m.Operation{
		Name:           OpFix,
		Short:          "Sort imports, format code and strip trailing whitespace",
		Policy:         m.FailFast,
		Mutates:        true,
		Steps:          steps,
		SuccessMessage: "All fixes applied!",
	}
}

func buildInstallDev(tools Toolset, _ []m.Path) m.Operation {
	return m.Operation{
		Name:           OpInstallDev,
		Short:          "Install development dependencies",
		Policy:         m.FailFast,
		Mutates:        true,
		Steps:          []m.Step{toolStep("📥 Installing dependencies with %s...", tools.Installer, m.ModeWrite, nil)},
		SuccessMessage: "Development dependencies installed!",
	}
}

// validateOperation enforces that read-only operations never write.
func validateOperation(op m.Operation) error {
	if op.Mutates {
		return nil
	}

	for _, step := range op.Steps {
		if step.Writes() {
			return fmt.Errorf("%w: %s/%s", ErrReadOnlyViolation, op.Name, step.Name)
		}
	}

	return nil
}
