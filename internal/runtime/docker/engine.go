// Package docker runs harness tools inside Docker containers. Each
// invocation gets a fresh container with the workspace slots copied in;
// declared outputs are copied back into the host workspace afterwards.
package docker

import (
	"context"
	"fmt"
	"os"

	"github.com/docker/docker/client"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
	"sysyjudge/internal/workspace"
)

// Engine implements ports.ToolRunner backed by Docker containers.
type Engine struct {
	client dockerClient
	engine *containerEngine
	tools  map[judge.Tool]*toolRuntime
}

var _ ports.ToolRunner = (*Engine)(nil)

// New constructs an Engine using the supplied configuration.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Tools) == 0 {
		return nil, fmt.Errorf("docker runtime: at least one tool must be configured")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker runtime: create client: %w", err)
	}

	engine, err := newEngineWithClient(cli, cfg)
	if err != nil {
		_ = cli.Close()
		return nil, err
	}

	return engine, nil
}

func newEngineWithClient(cli dockerClient, cfg Config) (*Engine, error) {
	env := newContainerEngine(cli, cfg.DefaultLimits)

	tools := make(map[judge.Tool]*toolRuntime, len(cfg.Tools))
	for tool, toolCfg := range cfg.Tools {
		runtime, err := newToolRuntime(tool, toolCfg, env)
		if err != nil {
			return nil, err
		}
		tools[tool] = runtime
	}

	return &Engine{
		client: cli,
		engine: env,
		tools:  tools,
	}, nil
}

// Run executes the invocation in a new container. Cancellation of ctx does
// not stop a running container; only the timeout does.
func (e *Engine) Run(ctx context.Context, ws workspace.Workspace, inv judge.Invocation) (*judge.ToolResult, error) {
	runtime, ok := e.tools[inv.Tool]
	if !ok {
		return nil, fmt.Errorf("docker runtime: tool %q is not configured", inv.Tool)
	}
	if len(inv.Args) == 0 {
		return nil, fmt.Errorf("docker runtime: %s: empty command", inv.Tool)
	}

	ctx = context.WithoutCancel(ctx)

	if err := runtime.ensureImage(ctx); err != nil {
		return nil, fmt.Errorf("docker runtime: %w", err)
	}

	files := newBundle()
	if err := files.addWorkspace(ws); err != nil {
		return nil, fmt.Errorf("docker runtime: %w", err)
	}
	if err := files.addShipped(runtime.config.Files); err != nil {
		return nil, fmt.Errorf("docker runtime: %w", err)
	}
	archive, err := files.reader()
	if err != nil {
		return nil, fmt.Errorf("docker runtime: %w", err)
	}

	result, collected, err := e.engine.runProgram(ctx, runtime, inv.Limits, program{
		command: workspace.Expand(inv.Args, runtime.config.Workdir),
		archive: archive,
		stdin:   inv.Stdin,
		collect: inv.Outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("docker runtime: %s: %w", inv.Tool, err)
	}

	for _, name := range inv.Outputs {
		data, ok := collected[name]
		if !ok {
			continue
		}
		if err := os.WriteFile(ws.Path(workspace.Slot(name)), data, 0o644); err != nil {
			return nil, fmt.Errorf("docker runtime: write %s: %w", name, err)
		}
	}

	return result, nil
}

// Close releases the Docker client.
func (e *Engine) Close() error {
	if err := e.client.Close(); err != nil {
		return fmt.Errorf("docker client: %w", err)
	}
	return nil
}
