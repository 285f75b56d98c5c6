package model

// ToolMode selects which argument set a tool is invoked with.
type ToolMode int

const (
	// ModeCheck runs the tool without modifying any file.
	ModeCheck ToolMode = iota
	// ModeWrite lets the tool rewrite files in place.
	ModeWrite
)

func (m ToolMode) String() string {
	switch m {
	case ModeCheck:
		return "check"
	case ModeWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Tool describes an external program and the arguments it takes in each mode.
type Tool struct {
	Name      string   `mapstructure:"name" yaml:"name"`
	Command   string   `mapstructure:"command" yaml:"command"`
	CheckArgs []string `mapstructure:"check_args" yaml:"check_args"`
	WriteArgs []string `mapstructure:"write_args" yaml:"write_args"`
}

// DisplayName returns Name, falling back to Command.
func (t Tool) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}

	return t.Command
}

// Invocation is a tool bound to a mode and a set of targets.
type Invocation struct {
	Tool    Tool
	Mode    ToolMode
	Targets []Path
}

// Args returns the full argument list: mode arguments followed by targets.
func (i Invocation) Args() []string {
	var base []string
	if i.Mode == ModeWrite {
		base = i.Tool.WriteArgs
	} else {
		base = i.Tool.CheckArgs
	}

	args := make([]string, 0, len(base)+len(i.Targets))
	args = append(args, base...)

	for _, target := range i.Targets {
		args = append(args, string(target))
	}

	return args
}

// CommandLine renders the invocation the way a shell user would type it.
func (i Invocation) CommandLine() string {
	line := i.Tool.Command
	for _, arg := range i.Args() {
		line += " " + arg
	}

	return line
}
