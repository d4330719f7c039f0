package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/workspace"
)

type toolHandler func(ws workspace.Workspace, inv judge.Invocation) (*judge.ToolResult, error)

// stubToolRunner plays every tool in-process. By default the compiler copies
// the source slot into the IR slot and the interpreter prints the IR back,
// so a fixture's source text is exactly what the program outputs.
type stubToolRunner struct {
	mu       sync.Mutex
	calls    []judge.Invocation
	handlers map[judge.Tool]toolHandler
	closed   bool
}

func newStubToolRunner() *stubToolRunner {
	return &stubToolRunner{
		handlers: map[judge.Tool]toolHandler{
			judge.ToolCompiler: copySlot(workspace.SlotSource, workspace.SlotIR),
			judge.ToolLLVM:     printSlot(workspace.SlotIR),
		},
	}
}

func (s *stubToolRunner) Run(ctx context.Context, ws workspace.Workspace, inv judge.Invocation) (*judge.ToolResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, inv)
	handler := s.handlers[inv.Tool]
	s.mu.Unlock()

	if handler == nil {
		return nil, errors.New("no handler for " + string(inv.Tool))
	}
	return handler(ws, inv)
}

func (s *stubToolRunner) Close() error {
	s.closed = true
	return nil
}

func (s *stubToolRunner) handle(tool judge.Tool, handler toolHandler) {
	s.mu.Lock()
	s.handlers[tool] = handler
	s.mu.Unlock()
}

func (s *stubToolRunner) toolsCalled() []judge.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	tools := make([]judge.Tool, 0, len(s.calls))
	for _, call := range s.calls {
		tools = append(tools, call.Tool)
	}
	return tools
}

func copySlot(from, to workspace.Slot) toolHandler {
	return func(ws workspace.Workspace, inv judge.Invocation) (*judge.ToolResult, error) {
		data, err := os.ReadFile(ws.Path(from))
		if err != nil {
			return &judge.ToolResult{ExitCode: 1, Stderr: err.Error()}, nil
		}
		if err := os.WriteFile(ws.Path(to), data, 0o644); err != nil {
			return nil, err
		}
		return &judge.ToolResult{}, nil
	}
}

func printSlot(slot workspace.Slot) toolHandler {
	return func(ws workspace.Workspace, inv judge.Invocation) (*judge.ToolResult, error) {
		data, err := os.ReadFile(ws.Path(slot))
		if err != nil {
			return &judge.ToolResult{ExitCode: 1, Stderr: err.Error()}, nil
		}
		return &judge.ToolResult{Stdout: string(data)}, nil
	}
}

func fixedOutput(stdout string, exitCode int64) toolHandler {
	return func(ws workspace.Workspace, inv judge.Invocation) (*judge.ToolResult, error) {
		return &judge.ToolResult{Stdout: stdout, ExitCode: exitCode}, nil
	}
}

type fixture struct {
	source   string
	expected string
	input    string
}

// writeFixtures lays fixtures out under the testfile/output/input naming scheme.
func writeFixtures(t *testing.T, fixtures map[int]fixture) judge.Layout {
	t.Helper()

	root := t.TempDir()
	layout := judge.Layout{
		FixtureDir: filepath.Join(root, "testfile"),
		InputDir:   filepath.Join(root, "input"),
		OutputDir:  filepath.Join(root, "output"),
	}
	for _, dir := range []string{layout.FixtureDir, layout.InputDir, layout.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	for id, fx := range fixtures {
		write(t, filepath.Join(layout.FixtureDir, judge.FixtureName(id)), fx.source)
		write(t, filepath.Join(layout.OutputDir, judge.ExpectedName(id)), fx.expected)
		write(t, filepath.Join(layout.InputDir, judge.InputName(id)), fx.input)
	}
	return layout
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newWorkspace(t *testing.T) workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(filepath.Join(t.TempDir(), "intermediate"))
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	if err := ws.Prepare(); err != nil {
		t.Fatalf("workspace.Prepare: %v", err)
	}
	return ws
}

func defaultCaseConfig(backends ...judge.Tool) CaseConfig {
	if len(backends) == 0 {
		backends = []judge.Tool{judge.ToolLLVM}
	}
	return CaseConfig{
		Commands: map[judge.Tool][]string{
			judge.ToolCompiler: {"sysyc", "--dump-ir", "{ir}", "--dump-mips", "{asm}", "{source}"},
			judge.ToolMARS:     {"java", "-jar", "mars.jar", "{asm}", "nc"},
			judge.ToolLLVM:     {"lli", "{ir}"},
		},
		Backends: backends,
	}
}

func newTestExecutor(t *testing.T, runner *stubToolRunner, cfg CaseConfig) *CaseExecutor {
	t.Helper()
	executor, err := NewCaseExecutor(runner, newWorkspace(t), cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewCaseExecutor: %v", err)
	}
	return executor
}

type memorySink struct {
	mu      sync.Mutex
	reports []*judge.SuiteReport
	err     error
}

func (s *memorySink) WriteReport(ctx context.Context, report *judge.SuiteReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.reports = append(s.reports, report)
	return "testlog.txt", nil
}

type recordingObserver struct {
	mu       sync.Mutex
	progress []string
	cases    []int
	finished []*judge.SuiteReport
	onCase   func(judge.CaseResult)
}

func (o *recordingObserver) Progress(current, high int) {
	o.mu.Lock()
	o.progress = append(o.progress, fmt.Sprintf("%d/%d", current, high))
	o.mu.Unlock()
}

func (o *recordingObserver) CaseFinished(result judge.CaseResult) {
	o.mu.Lock()
	o.cases = append(o.cases, result.Case.ID)
	hook := o.onCase
	o.mu.Unlock()
	if hook != nil {
		hook(result)
	}
}

func (o *recordingObserver) SuiteFinished(report *judge.SuiteReport) {
	o.mu.Lock()
	o.finished = append(o.finished, report)
	o.mu.Unlock()
}

type failingPublisher struct {
	mu     sync.Mutex
	cases  int
	suites int
}

func (p *failingPublisher) PublishCaseResult(ctx context.Context, result judge.CaseResult) error {
	p.mu.Lock()
	p.cases++
	p.mu.Unlock()
	return errors.New("broker unavailable")
}

func (p *failingPublisher) PublishSuiteReport(ctx context.Context, report *judge.SuiteReport) error {
	p.mu.Lock()
	p.suites++
	p.mu.Unlock()
	return errors.New("broker unavailable")
}

func (p *failingPublisher) Close() error { return nil }

// sequenceRequestSource replays requests in order. When errs holds an entry
// for a position, that error is returned in place of the request.
type sequenceRequestSource struct {
	mu       sync.Mutex
	requests []judge.RunRequest
	errs     map[int]error
	index    int
}

func (s *sequenceRequestSource) NextRequest(ctx context.Context) (judge.RunRequest, error) {
	select {
	case <-ctx.Done():
		return judge.RunRequest{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index >= len(s.requests) {
		return judge.RunRequest{}, io.EOF
	}
	req := s.requests[s.index]
	err := s.errs[s.index]
	s.index++
	if err != nil {
		return judge.RunRequest{}, err
	}
	return req, nil
}

type errorRequestSource struct {
	err error
}

func (s errorRequestSource) NextRequest(ctx context.Context) (judge.RunRequest, error) {
	return judge.RunRequest{}, s.err
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
