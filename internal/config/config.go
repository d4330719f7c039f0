// Package config holds the harness configuration: built-in defaults, an
// optional YAML file on top, then validation. Environment and flag overrides
// are applied by the command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sysyjudge/internal/domain/judge"
)

const (
	RuntimeLocal  = "local"
	RuntimeDocker = "docker"
)

// Config is the complete harness configuration. It is treated as immutable
// once validated.
type Config struct {
	Low  int `yaml:"low"`
	High int `yaml:"high"`

	FixtureDir   string `yaml:"fixture_dir"`
	InputDir     string `yaml:"input_dir"`
	OutputDir    string `yaml:"output_dir"`
	WorkspaceDir string `yaml:"workspace_dir"`
	ReportDir    string `yaml:"report_dir"`

	WithInput     bool `yaml:"with_input"`
	RunMARS       bool `yaml:"run_mars"`
	RunLLVM       bool `yaml:"run_llvm"`
	StopOnFailure bool `yaml:"stop_on_failure"`

	// Timeout bounds every tool invocation. Zero waits forever.
	Timeout          time.Duration `yaml:"timeout"`
	MemoryLimitBytes int64         `yaml:"memory_limit_bytes"`

	// CompilerRepo, when it points into a git checkout, stamps reports with
	// the checked-out revision.
	CompilerRepo string `yaml:"compiler_repo"`

	// ToolEnv entries (KEY=VALUE) are added to the environment of tools run
	// by the local runtime.
	ToolEnv []string `yaml:"tool_env"`

	Tools    Tools  `yaml:"tools"`
	Kafka    Kafka  `yaml:"kafka"`
	HTTPAddr string `yaml:"http_addr"`
}

// Tools configures each external tool.
type Tools struct {
	Compiler Tool `yaml:"compiler"`
	MARS     Tool `yaml:"mars"`
	LLVM     Tool `yaml:"llvm"`
}

// Tool describes how one external tool is launched.
type Tool struct {
	Command []string `yaml:"command"`
	Runtime string   `yaml:"runtime"`
	// Image, Workdir and Files apply to the docker runtime only.
	Image   string   `yaml:"image"`
	Workdir string   `yaml:"workdir"`
	Files   []string `yaml:"files"`
}

// Kafka configures result publishing and worker mode.
type Kafka struct {
	Brokers       []string `yaml:"brokers"`
	ResultsTopic  string   `yaml:"results_topic"`
	RequestsTopic string   `yaml:"requests_topic"`
	GroupID       string   `yaml:"group_id"`
}

// Default returns the stock harness layout: fixtures 1 to 91 with stdin,
// interpreted through lli.
func Default() Config {
	return Config{
		Low:          1,
		High:         91,
		FixtureDir:   "./testfile/",
		InputDir:     "./input/",
		OutputDir:    "./output/",
		WorkspaceDir: "./intermediate/",
		ReportDir:    "./testlog/",
		WithInput:    true,
		RunMARS:      false,
		RunLLVM:      true,
		Tools: Tools{
			Compiler: Tool{
				Command: []string{"../../dist/sysyc", "--dump-ir", "{ir}", "--dump-mips", "{asm}", "{source}"},
				Runtime: RuntimeLocal,
			},
			MARS: Tool{
				Command: []string{"java", "-jar", "mars.jar", "{asm}", "nc"},
				Runtime: RuntimeLocal,
			},
			LLVM: Tool{
				Command: []string{"lli", "{ir}"},
				Runtime: RuntimeLocal,
			},
		},
		Kafka: Kafka{
			RequestsTopic: "sysyjudge-requests",
			ResultsTopic:  "sysyjudge-results",
			GroupID:       "sysyjudge-worker",
		},
	}
}

// Load reads the YAML file at path over the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if err := judge.ValidateRange(c.Low, c.High); err != nil {
		return err
	}
	for name, dir := range map[string]string{
		"fixture_dir":   c.FixtureDir,
		"output_dir":    c.OutputDir,
		"workspace_dir": c.WorkspaceDir,
		"report_dir":    c.ReportDir,
	} {
		if dir == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	if c.WithInput && c.InputDir == "" {
		return fmt.Errorf("input_dir must be set when with_input is enabled")
	}
	if !c.RunMARS && !c.RunLLVM {
		return fmt.Errorf("at least one of run_mars or run_llvm must be enabled")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	for _, entry := range c.ToolEnv {
		if key, _, ok := strings.Cut(entry, "="); !ok || key == "" {
			return fmt.Errorf("tool_env entry %q must have the form KEY=VALUE", entry)
		}
	}

	for _, tool := range c.ActiveTools() {
		if err := c.ToolConfig(tool).validate(); err != nil {
			return fmt.Errorf("tools.%s: %w", tool, err)
		}
	}
	return nil
}

func (t Tool) validate() error {
	if len(t.Command) == 0 || t.Command[0] == "" {
		return fmt.Errorf("command must not be empty")
	}
	switch t.Runtime {
	case "", RuntimeLocal:
	case RuntimeDocker:
		if t.Image == "" {
			return fmt.Errorf("docker runtime requires an image")
		}
	default:
		return fmt.Errorf("unknown runtime %q", t.Runtime)
	}
	return nil
}

// Warnings lists settings that are valid but probably unintended.
func (c Config) Warnings() []string {
	var warnings []string
	if c.RunMARS && c.RunLLVM {
		warnings = append(warnings, "both run_mars and run_llvm are enabled; the lli output overwrites the MARS output and is the one compared")
	}
	return warnings
}

// Backends returns the enabled runtime tools in invocation order.
func (c Config) Backends() []judge.Tool {
	var backends []judge.Tool
	for _, tool := range judge.Backends {
		if (tool == judge.ToolMARS && c.RunMARS) || (tool == judge.ToolLLVM && c.RunLLVM) {
			backends = append(backends, tool)
		}
	}
	return backends
}

// ActiveTools returns the compiler followed by the enabled backends.
func (c Config) ActiveTools() []judge.Tool {
	return append([]judge.Tool{judge.ToolCompiler}, c.Backends()...)
}

// ToolConfig returns the settings for tool.
func (c Config) ToolConfig(tool judge.Tool) Tool {
	switch tool {
	case judge.ToolCompiler:
		return c.Tools.Compiler
	case judge.ToolMARS:
		return c.Tools.MARS
	case judge.ToolLLVM:
		return c.Tools.LLVM
	default:
		return Tool{}
	}
}

// Commands maps every active tool to its argument vector.
func (c Config) Commands() map[judge.Tool][]string {
	commands := make(map[judge.Tool][]string)
	for _, tool := range c.ActiveTools() {
		commands[tool] = append([]string(nil), c.ToolConfig(tool).Command...)
	}
	return commands
}

// Layout returns the fixture directories.
func (c Config) Layout() judge.Layout {
	return judge.Layout{
		FixtureDir: c.FixtureDir,
		InputDir:   c.InputDir,
		OutputDir:  c.OutputDir,
	}
}

// Limits returns the per-invocation resource limits.
func (c Config) Limits() judge.RunLimits {
	return judge.RunLimits{
		Timeout:          c.Timeout,
		MemoryLimitBytes: c.MemoryLimitBytes,
	}
}
