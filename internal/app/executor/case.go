package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
	"sysyjudge/internal/workspace"
)

// CaseConfig describes the tool commands used for a single case.
type CaseConfig struct {
	// Commands maps each tool to its argument vector. Arguments may use the
	// workspace placeholders understood by workspace.Expand.
	Commands map[judge.Tool][]string
	// Backends are the runtime tools to invoke after compiling, in order.
	Backends []judge.Tool
	Limits   judge.RunLimits
}

// CaseExecutor runs one test case through stage, compile, execute and compare.
// It keeps no state between cases.
type CaseExecutor struct {
	runner ports.ToolRunner
	ws     workspace.Workspace
	config CaseConfig
	logger *log.Logger
}

// NewCaseExecutor validates cfg and returns an executor bound to ws.
func NewCaseExecutor(runner ports.ToolRunner, ws workspace.Workspace, cfg CaseConfig, logger *log.Logger) (*CaseExecutor, error) {
	if runner == nil {
		return nil, fmt.Errorf("executor: tool runner is required")
	}
	if len(cfg.Commands[judge.ToolCompiler]) == 0 {
		return nil, fmt.Errorf("executor: compiler command is required")
	}
	for _, backend := range cfg.Backends {
		if len(cfg.Commands[backend]) == 0 {
			return nil, fmt.Errorf("executor: %s command is required", backend)
		}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CaseExecutor{
		runner: runner,
		ws:     ws,
		config: cfg,
		logger: logger,
	}, nil
}

// Execute runs tc to completion. Failures are reported through the result,
// never as a panic or an aborted suite.
func (e *CaseExecutor) Execute(ctx context.Context, tc judge.TestCase) judge.CaseResult {
	start := time.Now()
	match, line, err := e.execute(ctx, tc)

	result := judge.CaseResult{
		Case:     tc,
		Duration: time.Since(start),
	}
	switch {
	case err != nil:
		result.Status = judge.StatusForError(err)
		result.Err = err
	case !match:
		result.Status = judge.StatusWrongAnswer
		result.MismatchLine = line
	default:
		result.Status = judge.StatusAccepted
	}
	return result
}

func (e *CaseExecutor) execute(ctx context.Context, tc judge.TestCase) (bool, int, error) {
	if err := e.ws.Stage(tc); err != nil {
		return false, 0, err
	}
	if err := e.ws.Clear(); err != nil {
		return false, 0, err
	}

	if err := e.compile(ctx); err != nil {
		return false, 0, err
	}

	stdin, err := e.ws.Stdin()
	if err != nil {
		return false, 0, err
	}
	for _, backend := range e.config.Backends {
		if err := e.runBackend(ctx, backend, stdin); err != nil {
			return false, 0, err
		}
	}

	produced, err := e.ws.Lines(workspace.SlotResult)
	if err != nil {
		return false, 0, err
	}
	expected, err := e.ws.Lines(workspace.SlotExpected)
	if err != nil {
		return false, 0, err
	}

	match, line := judge.Compare(produced, expected)
	return match, line, nil
}

// compile runs the compiler inside the workspace. Any exit other than a clean
// zero is a tool failure.
func (e *CaseExecutor) compile(ctx context.Context) error {
	result, err := e.runner.Run(ctx, e.ws, judge.Invocation{
		Tool:        judge.ToolCompiler,
		Args:        e.config.Commands[judge.ToolCompiler],
		InWorkspace: true,
		Limits:      e.config.Limits,
		Outputs:     []string{string(workspace.SlotIR), string(workspace.SlotASM)},
	})
	if err != nil {
		return &judge.ToolError{Tool: judge.ToolCompiler, Err: err}
	}
	if result.TimedOut {
		return &judge.ToolError{Tool: judge.ToolCompiler, ExitCode: result.ExitCode, TimedOut: true, Stderr: result.Stderr}
	}
	if result.ExitCode != 0 {
		return &judge.ToolError{Tool: judge.ToolCompiler, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return nil
}

// runBackend executes the compiled program and overwrites the result slot
// with its stdout followed by its stderr. A non-zero exit is part of the
// program's behaviour, not a failure.
func (e *CaseExecutor) runBackend(ctx context.Context, backend judge.Tool, stdin []byte) error {
	result, err := e.runner.Run(ctx, e.ws, judge.Invocation{
		Tool:   backend,
		Args:   e.config.Commands[backend],
		Stdin:  stdin,
		Limits: e.config.Limits,
	})
	if err != nil {
		return &judge.ToolError{Tool: backend, Err: err}
	}
	if result.TimedOut {
		return &judge.ToolError{Tool: backend, ExitCode: result.ExitCode, TimedOut: true, Stderr: result.Stderr}
	}
	if result.ExitCode != 0 {
		e.logger.Printf("%s exited with status %d", backend, result.ExitCode)
	}
	return e.ws.WriteResult(result.Output())
}
