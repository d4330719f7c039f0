package judge

import "time"

// Tool names an external process the harness drives.
type Tool string

const (
	ToolCompiler Tool = "compiler"
	ToolMARS     Tool = "mars"
	ToolLLVM     Tool = "llvm"
)

// Backends lists the runtime tools in the order they are invoked for a case.
// When both are enabled the later one overwrites the result slot.
var Backends = []Tool{ToolMARS, ToolLLVM}

// Invocation describes one external process call.
//
// Args may contain workspace placeholders ({source}, {ir}, {asm}, {input},
// {result}) which the runner resolves to its own view of the workspace.
type Invocation struct {
	Tool  Tool
	Args  []string
	Stdin []byte
	// InWorkspace runs the tool with the workspace as its working directory.
	// Otherwise the harness working directory is inherited.
	InWorkspace bool
	Limits      RunLimits
	// Outputs names the workspace slots the tool is expected to produce.
	// Runtimes that do not share the host filesystem copy them back.
	Outputs []string
}

// ToolResult captures what an external process produced.
type ToolResult struct {
	Stdout   string
	Stderr   string
	ExitCode int64
	Duration time.Duration
	TimedOut bool
}

// Output returns stdout followed by stderr, the form written to the result slot.
func (r *ToolResult) Output() string {
	if r == nil {
		return ""
	}
	return r.Stdout + r.Stderr
}
