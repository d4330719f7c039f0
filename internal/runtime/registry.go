package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
	"sysyjudge/internal/workspace"
)

// Binding assigns a runner to a tool.
type Binding struct {
	Tool   judge.Tool
	Runner ports.ToolRunner
}

// Registry wires per-tool runners into a single ports.ToolRunner.
type Registry struct {
	mu      sync.RWMutex
	runners map[judge.Tool]ports.ToolRunner
	owned   []ports.ToolRunner
}

var _ ports.ToolRunner = (*Registry)(nil)

// NewRegistry constructs a registry from the supplied bindings. A runner may
// be bound to several tools; it is closed once.
func NewRegistry(bindings ...Binding) (*Registry, error) {
	reg := &Registry{
		runners: make(map[judge.Tool]ports.ToolRunner, len(bindings)),
	}

	for _, binding := range bindings {
		if binding.Runner == nil {
			return nil, fmt.Errorf("runtime: runner for tool %q cannot be nil", binding.Tool)
		}
		if binding.Tool == "" {
			return nil, fmt.Errorf("runtime: binding missing tool name")
		}
		if _, exists := reg.runners[binding.Tool]; exists {
			return nil, fmt.Errorf("runtime: duplicate runner for tool %q", binding.Tool)
		}

		reg.runners[binding.Tool] = binding.Runner
		if !reg.owns(binding.Runner) {
			reg.owned = append(reg.owned, binding.Runner)
		}
	}

	if len(reg.runners) == 0 {
		return nil, fmt.Errorf("runtime: at least one tool runner must be registered")
	}

	return reg, nil
}

// Run dispatches the invocation to the runner bound to its tool.
func (r *Registry) Run(ctx context.Context, ws workspace.Workspace, inv judge.Invocation) (*judge.ToolResult, error) {
	runner, err := r.runnerFor(inv.Tool)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, ws, inv)
}

// Close releases resources held by each runner.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, runner := range r.owned {
		if err := runner.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Registry) owns(runner ports.ToolRunner) bool {
	for _, existing := range r.owned {
		if existing == runner {
			return true
		}
	}
	return false
}

func (r *Registry) runnerFor(tool judge.Tool) (ports.ToolRunner, error) {
	r.mu.RLock()
	runner, ok := r.runners[tool]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("runtime: no runner registered for tool %q", tool)
	}
	return runner, nil
}
