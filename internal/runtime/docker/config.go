package docker

import "sysyjudge/internal/domain/judge"

// Config describes how to create a Docker-backed tool runner.
type Config struct {
	Tools         map[judge.Tool]ToolConfig
	DefaultLimits judge.RunLimits
}

// ToolConfig specifies container settings for a single tool.
type ToolConfig struct {
	Image   string
	Workdir string
	// Files are host paths copied next to the workspace slots before the
	// tool starts, e.g. the compiler binary or the simulator jar.
	Files []string
}
