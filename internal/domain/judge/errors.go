package judge

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMissingFile marks a fixture, golden output or stdin file that does not exist.
	ErrMissingFile = errors.New("missing file")
	// ErrToolFailed marks an external tool that could not run to a clean exit.
	ErrToolFailed = errors.New("tool invocation failed")
	// ErrInvalidRequest marks a run request that cannot be decoded. Workers
	// skip it and keep consuming.
	ErrInvalidRequest = errors.New("invalid run request")
)

const stderrTail = 200

// ToolError reports an external process that failed to start, exited non-zero
// where that is not allowed, or ran past its timeout.
type ToolError struct {
	Tool     Tool
	ExitCode int64
	TimedOut bool
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	var msg string
	switch {
	case e.TimedOut:
		msg = fmt.Sprintf("%s: timed out", e.Tool)
	case e.Err != nil:
		msg = fmt.Sprintf("%s: %v", e.Tool, e.Err)
	default:
		msg = fmt.Sprintf("%s: exit status %d", e.Tool, e.ExitCode)
	}
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrToolFailed) match any ToolError.
func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailed
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		s = strings.TrimSpace(s[idx+1:])
	}
	if len(s) > stderrTail {
		cut := stderrTail
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}
