// Package workspace manages the intermediate directory a single case is
// staged into. Slot names are fixed, so only one case may occupy a
// Workspace at a time.
package workspace

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"sysyjudge/internal/domain/judge"
)

// Slot is a fixed file name inside the workspace.
type Slot string

const (
	SlotSource   Slot = "testfile.txt"
	SlotExpected Slot = "output.txt"
	SlotInput    Slot = "input.txt"
	SlotResult   Slot = "result.txt"
	SlotIR       Slot = "llvm_ir.txt"
	SlotASM      Slot = "mips.txt"
)

// Slots lists every slot in a stable order.
var Slots = []Slot{SlotSource, SlotExpected, SlotInput, SlotResult, SlotIR, SlotASM}

var placeholders = map[string]Slot{
	"{source}":   SlotSource,
	"{expected}": SlotExpected,
	"{input}":    SlotInput,
	"{result}":   SlotResult,
	"{ir}":       SlotIR,
	"{asm}":      SlotASM,
}

// Workspace names the intermediate directory.
type Workspace struct {
	Dir string
}

// New returns a Workspace rooted at dir, made absolute.
func New(dir string) (Workspace, error) {
	if dir == "" {
		return Workspace{}, fmt.Errorf("workspace: empty directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Workspace{}, fmt.Errorf("workspace: resolve %s: %w", dir, err)
	}
	return Workspace{Dir: abs}, nil
}

// Prepare creates the directory if it does not exist.
func (w Workspace) Prepare() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("workspace: create %s: %w", w.Dir, err)
	}
	return nil
}

// Path returns the host path of slot.
func (w Workspace) Path(slot Slot) string {
	return filepath.Join(w.Dir, string(slot))
}

// Stage copies the case files into their slots. Without an input file any
// stale input slot is removed so the next run sees empty stdin.
func (w Workspace) Stage(tc judge.TestCase) error {
	if err := copyText(tc.SourcePath, w.Path(SlotSource)); err != nil {
		return fmt.Errorf("stage source: %w", err)
	}
	if err := copyText(tc.ExpectedPath, w.Path(SlotExpected)); err != nil {
		return fmt.Errorf("stage expected output: %w", err)
	}
	if !tc.HasInput() {
		if err := os.Remove(w.Path(SlotInput)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear input: %w", err)
		}
		return nil
	}
	if err := copyText(tc.InputPath, w.Path(SlotInput)); err != nil {
		return fmt.Errorf("stage input: %w", err)
	}
	return nil
}

// Stdin returns the staged input bytes, or nil when no input is staged.
func (w Workspace) Stdin() ([]byte, error) {
	data, err := os.ReadFile(w.Path(SlotInput))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// WriteResult overwrites the result slot.
func (w Workspace) WriteResult(output string) error {
	if err := os.WriteFile(w.Path(SlotResult), []byte(output), 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// Lines reads slot as a sequence of text lines.
func (w Workspace) Lines(slot Slot) ([]string, error) {
	file, err := os.Open(w.Path(slot))
	if err != nil {
		return nil, wrapMissing(err)
	}
	defer file.Close()

	lines, err := judge.ReadLines(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", slot, err)
	}
	return lines, nil
}

// Clear removes the generated slots left by a previous case.
func (w Workspace) Clear() error {
	for _, slot := range []Slot{SlotResult, SlotIR, SlotASM} {
		if err := os.Remove(w.Path(slot)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("workspace: clear %s: %w", slot, err)
		}
	}
	return nil
}

// Files returns the slots currently present in the workspace.
func (w Workspace) Files() ([]Slot, error) {
	var present []Slot
	for _, slot := range Slots {
		info, err := os.Stat(w.Path(slot))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("workspace: stat %s: %w", slot, err)
		}
		if info.Mode().IsRegular() {
			present = append(present, slot)
		}
	}
	return present, nil
}

// Expand replaces slot placeholders in args with paths under root.
func Expand(args []string, root string) []string {
	expanded := make([]string, len(args))
	for i, arg := range args {
		for placeholder, slot := range placeholders {
			if strings.Contains(arg, placeholder) {
				arg = strings.ReplaceAll(arg, placeholder, joinSlot(root, slot))
			}
		}
		expanded[i] = arg
	}
	return expanded
}

func joinSlot(root string, slot Slot) string {
	if root == "" {
		return string(slot)
	}
	if strings.HasPrefix(root, "/") {
		return strings.TrimSuffix(root, "/") + "/" + string(slot)
	}
	return filepath.Join(root, string(slot))
}

// copyText copies src to dst line by line, normalising line endings to "\n".
func copyText(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return wrapMissing(err)
	}
	defer in.Close()

	lines, err := judge.ReadLines(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	writer := bufio.NewWriter(out)
	for _, line := range lines {
		if _, err := writer.WriteString(line); err != nil {
			out.Close()
			return fmt.Errorf("write %s: %w", dst, err)
		}
	}

	if err := writer.Flush(); err != nil {
		out.Close()
		return fmt.Errorf("flush %s: %w", dst, err)
	}
	return out.Close()
}

func wrapMissing(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return fmt.Errorf("%w: %s", judge.ErrMissingFile, pathErr.Path)
		}
		return fmt.Errorf("%w: %v", judge.ErrMissingFile, err)
	}
	return err
}
