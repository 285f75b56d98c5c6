package model

// Policy decides what happens to the remaining steps once one fails.
type Policy int

const (
	// FailFast skips every step after the first failure.
	FailFast Policy = iota
	// RunAll runs every step and aggregates the outcome.
	RunAll
)

func (p Policy) String() string {
	if p == RunAll {
		return "run-all"
	}

	return "fail-fast"
}

// StepKind distinguishes external tool steps from in-process passes.
type StepKind int

const (
	// StepTool runs an external process.
	StepTool StepKind = iota
	// StepBuiltin runs an in-process pass over the source files.
	StepBuiltin
)

// Builtin identifies an in-process pass.
type Builtin string

const (
	// BuiltinStripWhitespace removes trailing whitespace from every source file.
	BuiltinStripWhitespace Builtin = "strip-whitespace"
)

// Step is one entry in an operation's ordered step list.
type Step struct {
	Name       string
	Banner     string
	Kind       StepKind
	Invocation Invocation
	Builtin    Builtin
}

// Writes reports whether the step may modify files.
func (s Step) Writes() bool {
	if s.Kind == StepBuiltin {
		return s.Builtin == BuiltinStripWhitespace
	}

	return s.Invocation.Mode == ModeWrite
}

// Operation is a named, ordered list of steps with a failure policy.
type Operation struct {
	Name           string
	Short          string
	Policy         Policy
	Mutates        bool
	Steps          []Step
	SuccessMessage string
}
