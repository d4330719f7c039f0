package ports

import (
	"context"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/workspace"
)

// ToolRunner executes external tools against a staged workspace.
//
// A tool that starts and exits, whatever its status, yields a result and a nil
// error. Errors are reserved for tools that could not be run at all.
type ToolRunner interface {
	Run(ctx context.Context, ws workspace.Workspace, inv judge.Invocation) (*judge.ToolResult, error)
	Close() error
}
