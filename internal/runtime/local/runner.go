// Package local runs tools as child processes of the harness.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
	"sysyjudge/internal/workspace"
)

const defaultWaitDelay = 2 * time.Second

// Config describes how child processes are started.
type Config struct {
	// Env is appended to the harness environment for every tool.
	Env           []string
	DefaultLimits judge.RunLimits
}

// Runner executes tools with os/exec.
type Runner struct {
	env    []string
	limits judge.RunLimits
}

var _ ports.ToolRunner = (*Runner)(nil)

// New constructs a Runner from cfg.
func New(cfg Config) *Runner {
	return &Runner{
		env:    append([]string(nil), cfg.Env...),
		limits: cfg.DefaultLimits.Normalize(),
	}
}

// Run starts the tool and waits for it to exit. The caller's context is not
// allowed to interrupt a running tool; only the configured timeout does.
func (r *Runner) Run(ctx context.Context, ws workspace.Workspace, inv judge.Invocation) (*judge.ToolResult, error) {
	if len(inv.Args) == 0 {
		return nil, fmt.Errorf("local runtime: %s: empty command", inv.Tool)
	}

	args := workspace.Expand(inv.Args, ws.Dir)
	limits := r.limits.Merge(inv.Limits)

	runCtx := context.WithoutCancel(ctx)
	if limits.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, limits.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	if inv.InWorkspace {
		cmd.Dir = ws.Dir
	}
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	cmd.Stdin = bytes.NewReader(inv.Stdin)
	cmd.WaitDelay = defaultWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &judge.ToolResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = int64(exitErr.ExitCode())
		return result, nil
	}

	return nil, fmt.Errorf("local runtime: start %s: %w", args[0], err)
}

// Close is a no-op; child processes do not outlive Run.
func (r *Runner) Close() error {
	return nil
}
